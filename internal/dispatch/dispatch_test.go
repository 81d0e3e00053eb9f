package dispatch

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/config"
	"github.com/vk/capsulrun/internal/engine"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/parampath"
	"github.com/vk/capsulrun/internal/process"
	"github.com/vk/capsulrun/internal/registry"
	"github.com/vk/capsulrun/internal/studyconfig"
	"github.com/vk/capsulrun/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

type fakeController struct {
	submitted *workflow.Workflow
	submitErr error
	waitErr   error
	deleted   []string
	closed    bool
}

func (f *fakeController) Submit(_ context.Context, wf *workflow.Workflow) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = wf
	return wf.ID, nil
}

func (f *fakeController) Wait(_ context.Context, id string) (*executor.Result, error) {
	result := &executor.Result{WorkflowID: id}
	status := executor.StatusDone
	if f.waitErr != nil {
		status = executor.StatusFailed
	}
	for _, job := range f.submitted.Jobs {
		result.Steps = append(result.Steps, executor.StepResult{ID: job.ID, Status: status})
	}
	return result, f.waitErr
}

func (f *fakeController) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeController) Close() error {
	f.closed = true
	return nil
}

func echoProcess(t *testing.T) process.Process {
	t.Helper()
	expr, diags := hclsyntax.ParseExpression([]byte(`["sh", "-c", "exit 0", message]`), "test.hcl", hcl.InitialPos)
	require.False(t, diags.HasErrors())
	inst := process.NewInstance(&config.ProcessDefinition{
		Name:    "echo",
		Command: expr,
		Parameters: []*config.ParameterDefinition{
			{Name: "message", Type: cty.String},
		},
	})
	require.NoError(t, inst.Set(parampath.Of("message"), cty.StringVal("hi")))
	return inst
}

type harness struct {
	dispatcher *Dispatcher
	study      *studyconfig.StudyConfig
	ctrl       *fakeController
	openedFor  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	eng := engine.New(engine.WithGetenv(func(string) string { return "" }))
	study, err := studyconfig.New(context.Background(), eng)
	require.NoError(t, err)
	exec := executor.New(registry.New(), eng, &bytes.Buffer{}, &bytes.Buffer{})
	h := &harness{study: study, ctrl: &fakeController{}}
	h.dispatcher = New(study, exec, func(_ context.Context, id string, _ *studyconfig.ResourceConfig) (workflow.Controller, error) {
		h.openedFor = id
		return h.ctrl, nil
	})
	return h
}

func ptr(b bool) *bool { return &b }

func TestRun_Local(t *testing.T) {
	h := newHarness(t)

	result, err := h.dispatcher.Run(context.Background(), echoProcess(t), Options{})

	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Empty(t, result.WorkflowID)
	assert.Empty(t, h.openedFor, "no controller should be opened for local runs")
}

func TestRun_DistributedSetsStudyConfig(t *testing.T) {
	// --- Arrange ---
	h := newHarness(t)
	opts := Options{
		UseSomaWorkflow: ptr(true),
		ResourceID:      "cluster",
		Login:           "alice",
		Password:        "secret",
		Queue:           "long",
	}

	// --- Act ---
	result, err := h.dispatcher.Run(context.Background(), echoProcess(t), opts)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.True(t, h.study.UseSomaWorkflow)
	assert.Equal(t, "cluster", h.study.SomaWorkflowComputingResource)
	assert.Equal(t, "cluster", h.openedFor)

	rc := h.study.Resource("cluster")
	assert.Equal(t, "alice", rc.Login)
	assert.Equal(t, "secret", rc.Password)

	wf := h.ctrl.submitted
	require.NotNil(t, wf)
	assert.Equal(t, "long", wf.Queue)
	assert.Equal(t, workflow.TranslateShared, wf.InputProcessing)
	require.Len(t, wf.Jobs, 1)
	assert.Equal(t, []string{"sh", "-c", "exit 0", "hi"}, wf.Jobs[0].Command)
	assert.True(t, h.ctrl.closed)
}

func TestRun_DistributedDefaultsToLocalhost(t *testing.T) {
	h := newHarness(t)

	_, err := h.dispatcher.Run(context.Background(), echoProcess(t), Options{UseSomaWorkflow: ptr(true)})

	require.NoError(t, err)
	assert.Equal(t, studyconfig.DefaultResource, h.openedFor)
	assert.Equal(t, workflow.LocalPath, h.ctrl.submitted.InputProcessing)
}

func TestRun_Retention(t *testing.T) {
	failure := &workflow.ExecutionError{WorkflowID: "x", Failed: []string{"echo"}}
	testCases := []struct {
		name        string
		keep        bool
		keepFailed  bool
		waitErr     error
		wantDeleted bool
	}{
		{name: "deleted by default", wantDeleted: true},
		{name: "kept unconditionally", keep: true},
		{name: "kept on failure", keepFailed: true, waitErr: failure},
		{name: "success deleted despite keep-failed", keepFailed: true, wantDeleted: true},
		{name: "failure deleted by default", waitErr: failure, wantDeleted: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.ctrl.waitErr = tc.waitErr

			result, err := h.dispatcher.Run(context.Background(), echoProcess(t), Options{
				UseSomaWorkflow:    ptr(true),
				KeepWorkflow:       tc.keep,
				KeepFailedWorkflow: tc.keepFailed,
			})

			require.NotNil(t, result)
			if tc.waitErr != nil {
				var execErr *workflow.ExecutionError
				require.ErrorAs(t, err, &execErr)
				assert.Equal(t, 1, result.ExitCode())
			} else {
				require.NoError(t, err)
			}
			if tc.wantDeleted {
				assert.Equal(t, []string{h.ctrl.submitted.ID}, h.ctrl.deleted)
			} else {
				assert.Empty(t, h.ctrl.deleted)
			}
		})
	}
}

func TestRun_SubmissionErrorIsDistinct(t *testing.T) {
	h := newHarness(t)
	h.ctrl.submitErr = &workflow.SubmissionError{Resource: "localhost", Err: errors.New("rejected")}

	result, err := h.dispatcher.Run(context.Background(), echoProcess(t), Options{UseSomaWorkflow: ptr(true)})

	assert.Nil(t, result)
	var subErr *workflow.SubmissionError
	require.ErrorAs(t, err, &subErr)
	var execErr *workflow.ExecutionError
	assert.False(t, errors.As(err, &execErr))
	assert.Empty(t, h.ctrl.deleted)
}

func TestRun_InvalidFileProcessing(t *testing.T) {
	h := newHarness(t)

	_, err := h.dispatcher.Run(context.Background(), echoProcess(t), Options{
		UseSomaWorkflow: ptr(true),
		InputProcessing: "ftp",
	})

	require.ErrorIs(t, err, workflow.ErrInvalidFileProcessing)
}

func TestRun_DistributedSendsResourceRoots(t *testing.T) {
	testCases := []struct {
		name         string
		input        string
		output       string
		wantShared   string
		wantTransfer string
	}{
		{name: "translate shared by default", wantShared: "/mnt/study"},
		{name: "translate", input: "translate", wantShared: "/mnt/study"},
		{name: "transfer", input: "transfer", wantTransfer: "/scratch/capsul"},
		{name: "transfer output", input: "local_path", output: "transfer", wantTransfer: "/scratch/capsul"},
		{name: "local path", input: "local_path"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			h := newHarness(t)
			rc := h.study.Resource("cluster")
			rc.SharedRoot = "/mnt/study"
			rc.TransferRoot = "/scratch/capsul"
			opts := Options{
				UseSomaWorkflow:  ptr(true),
				ResourceID:       "cluster",
				InputProcessing:  tc.input,
				OutputProcessing: tc.output,
			}

			// --- Act ---
			_, err := h.dispatcher.Run(context.Background(), echoProcess(t), opts)

			// --- Assert ---
			require.NoError(t, err)
			wf := h.ctrl.submitted
			require.NotNil(t, wf)
			assert.Equal(t, tc.wantShared, wf.SharedRoot)
			assert.Equal(t, tc.wantTransfer, wf.TransferRoot)
		})
	}
}
