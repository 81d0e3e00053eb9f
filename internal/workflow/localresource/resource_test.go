package localresource

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/process"
	"github.com/vk/capsulrun/internal/workflow"
	"go.uber.org/goleak"
)

type fakeRunner struct {
	mu   sync.Mutex
	fail map[string]bool
	ran  []string
}

func (f *fakeRunner) RunCommand(_ context.Context, inv *executor.Invocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ran = append(f.ran, inv.Argv[0])
	if f.fail[inv.Argv[0]] {
		return &executor.ExitError{Argv: inv.Argv, Code: 1}
	}
	return nil
}

func (f *fakeRunner) RunHandler(context.Context, *process.Instance) error {
	return errors.New("unexpected runner job")
}

func (f *fakeRunner) Ran() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ran...)
}

func job(id string, deps ...string) *workflow.Job {
	return &workflow.Job{ID: id, Process: "p", Command: []string{id}, DependsOn: deps}
}

func newWorkflow(jobs ...*workflow.Job) *workflow.Workflow {
	return &workflow.Workflow{
		ID:               "wf-" + jobs[0].ID,
		Name:             "test",
		InputProcessing:  workflow.LocalPath,
		OutputProcessing: workflow.LocalPath,
		Jobs:             jobs,
	}
}

func openTestResource(t *testing.T, runner Runner) *Resource {
	t.Helper()
	r, err := Open(filepath.Join(t.TempDir(), "db", "workflows.sqlite"), runner, 2)
	require.NoError(t, err)
	return r
}

func TestResource_RunsWorkflow(t *testing.T) {
	defer goleak.VerifyNone(t)

	// --- Arrange ---
	runner := &fakeRunner{}
	r := openTestResource(t, runner)
	ctx := context.Background()
	wf := newWorkflow(job("a"), job("b", "a"), job("c"))

	// --- Act ---
	id, err := r.Submit(ctx, wf)
	require.NoError(t, err)
	result, err := r.Wait(ctx, id)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, id, result.WorkflowID)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, "a", result.Steps[0].ID)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, runner.Ran())

	ran := runner.Ran()
	assert.Less(t, indexOf(ran, "a"), indexOf(ran, "b"), "dependencies run first")

	status, err := r.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, statusDone, status)

	require.NoError(t, r.Delete(ctx, id))
	_, err = r.Wait(ctx, id)
	require.ErrorIs(t, err, workflow.ErrWorkflowNotFound)

	require.NoError(t, r.Close())
}

func TestResource_SkipsDependentsOfFailedJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{fail: map[string]bool{"a": true}}
	r := openTestResource(t, runner)
	ctx := context.Background()

	id, err := r.Submit(ctx, newWorkflow(job("a"), job("b", "a"), job("c")))
	require.NoError(t, err)
	result, err := r.Wait(ctx, id)

	var execErr *workflow.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, []string{"a", "b"}, execErr.Failed)
	require.NotNil(t, result)
	assert.Equal(t, executor.StatusFailed, result.Steps[0].Status)
	assert.Contains(t, result.Steps[0].Err.Error(), "exited with status 1")
	assert.Equal(t, executor.StatusSkipped, result.Steps[1].Status)
	assert.Equal(t, executor.StatusDone, result.Steps[2].Status)
	assert.NotContains(t, runner.Ran(), "b")

	status, err := r.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, statusFailed, status)

	require.NoError(t, r.Close())
}

func TestResource_RejectsInvalidWorkflows(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := openTestResource(t, &fakeRunner{})
	ctx := context.Background()

	wf := newWorkflow(job("a"))
	wf.InputProcessing = workflow.Transfer
	_, err := r.Submit(ctx, wf)
	var subErr *workflow.SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.ErrorIs(t, err, workflow.ErrInvalidFileProcessing)

	_, err = r.Submit(ctx, newWorkflow(job("b", "later"), job("later")))
	require.True(t, errors.As(err, &subErr))

	require.NoError(t, r.Close())
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
