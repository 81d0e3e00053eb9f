package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/builder"
	"github.com/vk/capsulrun/internal/engine"
	"github.com/vk/capsulrun/internal/iteration"
)

// fakeFSL installs an fslmaths script that appends its arguments to
// <dir>/calls.txt and returns an engine seeing dir as FSLDIR.
func fakeFSL(t *testing.T) (*engine.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	script := "#!/bin/sh\necho \"$@\" >> \"$FSLDIR/calls.txt\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "fslmaths"), []byte(script), 0o755))

	eng := engine.New(engine.WithGetenv(func(k string) string {
		if k == "FSLDIR" {
			return dir
		}
		return os.Getenv(k)
	}))
	return eng, dir
}

func readCalls(t *testing.T, dir string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, "calls.txt"))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestApp_RunsGoRunnerLocally(t *testing.T) {
	// --- Arrange ---
	cfg := &Config{
		ProcessName: "print",
		Args:        []string{"{'subject': 's01', 'run': 2}", "label=inputs"},
	}
	a, out, logs := SetupAppTest(t, cfg, Options{})

	// --- Act ---
	result, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, "inputs:\n      run = \"2\"\n      subject = \"s01\"\n", out.String())
	assert.Contains(t, logs.String(), "Execution finished")
}

func TestApp_RunsCommandWithCompletion(t *testing.T) {
	// --- Arrange ---
	eng, dir := fakeFSL(t)
	cfg := &Config{
		ProcessName: "fsl.threshold",
		Args:        []string{"/data/t1.nii.gz", "threshold1=80"},
	}
	a, _, _ := SetupAppTest(t, cfg, Options{Engine: eng})

	// --- Act ---
	result, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode())
	assert.Equal(t, []string{"/data/t1.nii.gz -thr 80 /data/t1_thr.nii.gz"}, readCalls(t, dir))
	assert.True(t, a.Study().UseFSL)
}

func TestApp_RunsPipeline(t *testing.T) {
	eng, dir := fakeFSL(t)
	cfg := &Config{
		ProcessName: "fsl.threshold_smooth",
		Args:        []string{"input=/data/t1.nii.gz", "smooth.sigma=3"},
	}
	a, _, _ := SetupAppTest(t, cfg, Options{Engine: eng})

	_, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{
		"/data/t1.nii.gz -thr 10 /data/t1_thr.nii.gz",
		"/data/t1_thr.nii.gz -s 3 /data/t1_thr_smooth.nii.gz",
	}, readCalls(t, dir))
}

func TestApp_Iteration(t *testing.T) {
	eng, dir := fakeFSL(t)
	cfg := &Config{
		ProcessName: "fsl.threshold",
		Iterate:     []string{"input", "threshold1"},
		Args:        []string{"input=['/d/a.nii', '/d/b.nii']", "threshold1=[1, 2]"},
	}
	a, _, _ := SetupAppTest(t, cfg, Options{Engine: eng})

	result, err := a.Run(context.Background())

	require.NoError(t, err)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, []string{
		"/d/a.nii -thr 1 /d/a_thr.nii.gz",
		"/d/b.nii -thr 2 /d/b_thr.nii.gz",
	}, readCalls(t, dir))
}

func TestApp_IterationLengthMismatch(t *testing.T) {
	eng, _ := fakeFSL(t)
	cfg := &Config{
		ProcessName: "fsl.threshold",
		Iterate:     []string{"input", "threshold1"},
		Args:        []string{"input=['/d/a.nii', '/d/b.nii']", "threshold1=[1, 2, 3]"},
	}
	a, _, _ := SetupAppTest(t, cfg, Options{Engine: eng})

	_, err := a.Run(context.Background())

	var mismatch *iteration.LengthMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []int{2, 3}, mismatch.Lengths)
}

func TestApp_UnknownProcess(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{ProcessName: "nope"}, Options{})

	_, err := a.Run(context.Background())

	var resolveErr *builder.ProcessResolutionError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, "nope", resolveErr.Name)
}

func TestApp_DistributedOnLocalResource(t *testing.T) {
	// --- Arrange ---
	use := true
	cfg := &Config{
		ProcessName:     "print",
		Args:            []string{"{'a': 'b'}"},
		UseSomaWorkflow: &use,
	}
	a, out, logs := SetupAppTest(t, cfg, Options{})

	// --- Act ---
	result, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.NotEmpty(t, result.WorkflowID)
	assert.True(t, result.Success())
	assert.Equal(t, "      a = \"b\"\n", out.String())
	assert.Contains(t, logs.String(), "Submitting workflow")
	assert.Equal(t, "localhost", a.Study().SomaWorkflowComputingResource)
}

func TestApp_ListProcesses(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{ListProcesses: true}, Options{})
	out := &bytes.Buffer{}

	require.NoError(t, a.ListProcesses(out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "fsl.bet "))
	assert.Contains(t, out.String(), "fsl.threshold_smooth")
	assert.Contains(t, out.String(), "pipeline")
}

func TestApp_ProcessHelp(t *testing.T) {
	a, _, _ := SetupAppTest(t, &Config{ProcessHelp: []string{"fsl.threshold"}}, Options{})
	out := &bytes.Buffer{}

	require.NoError(t, a.ProcessHelp(out, "fsl.threshold"))

	assert.Contains(t, out.String(), "fsl.threshold (process)")
	assert.Regexp(t, `input\s+string\s+required`, out.String())
	assert.Regexp(t, `output\s+string\s+required,output,completed`, out.String())
	assert.Regexp(t, `threshold1\s+number\s+default=10`, out.String())

	require.Error(t, a.ProcessHelp(out, "nope"))
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{WorkerCount: 1})
	require.Error(t, err)

	_, err = NewConfig(Config{ProcessName: "print"})
	require.Error(t, err)

	_, err = NewConfig(Config{ListProcesses: true, WorkerCount: 1})
	require.NoError(t, err)

	cfg, err := NewConfig(Config{ProcessName: "print", WorkerCount: 2})
	require.NoError(t, err)
	assert.Equal(t, "print", cfg.ProcessName)
}
