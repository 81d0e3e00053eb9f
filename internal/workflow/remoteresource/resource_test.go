package remoteresource

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/workflow"
)

// fakeServer implements Client and answers requests the way a workflow
// server would.
type fakeServer struct {
	mu           sync.Mutex
	handlers     map[string]func(...any)
	emitted      []string
	submitted    map[string]any
	rejectSubmit string
	silent       bool
	disconnected bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{handlers: make(map[string]func(...any))}
}

func (f *fakeServer) On(event string, fn func(...any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[event] = fn
}

func (f *fakeServer) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeServer) push(event string, payload map[string]any) {
	f.mu.Lock()
	fn := f.handlers[event]
	f.mu.Unlock()
	fn(payload)
}

func (f *fakeServer) Emit(event string, data any) {
	raw, _ := json.Marshal(data)
	var payload map[string]any
	_ = json.Unmarshal(raw, &payload)

	f.mu.Lock()
	f.emitted = append(f.emitted, event)
	silent := f.silent
	f.mu.Unlock()
	if silent {
		return
	}

	switch event {
	case EventSubmitWorkflow:
		f.mu.Lock()
		f.submitted = payload
		f.mu.Unlock()
		wf := payload["workflow"].(map[string]any)
		f.push(EventWorkflowSubmitted, map[string]any{
			"request_id":  payload["request_id"],
			"workflow_id": wf["id"],
			"error":       f.rejectSubmit,
		})
	case EventDeleteWorkflow:
		f.push(EventWorkflowDeleted, map[string]any{"request_id": payload["request_id"]})
	}
}

func remoteWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		ID:               "wf-1",
		Name:             "fsl.threshold",
		InputProcessing:  workflow.TranslateShared,
		OutputProcessing: workflow.LocalPath,
		SharedRoot:       "/mnt/study",
		Jobs: []*workflow.Job{
			{ID: "a", Process: "fsl.threshold", Command: []string{"fslmaths", "in", "-thr", "10", "out"}},
		},
	}
}

func TestResource_SubmitSendsCredentials(t *testing.T) {
	// --- Arrange ---
	server := newFakeServer()
	r := New("cluster", server, Credentials{Login: "alice", Password: "secret"}, time.Second)

	// --- Act ---
	id, err := r.Submit(context.Background(), remoteWorkflow())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "wf-1", id)
	creds := server.submitted["credentials"].(map[string]any)
	assert.Equal(t, "alice", creds["login"])
	assert.Equal(t, "secret", creds["password"])
	assert.NotEmpty(t, server.submitted["request_id"])
	wf := server.submitted["workflow"].(map[string]any)
	assert.Equal(t, "translate_shared", wf["input_processing"])
	assert.Equal(t, "/mnt/study", wf["shared_root"])
	assert.NotContains(t, wf, "transfer_root")
}

func TestResource_SubmitRejected(t *testing.T) {
	server := newFakeServer()
	server.rejectSubmit = "unknown queue"
	r := New("cluster", server, Credentials{}, time.Second)

	_, err := r.Submit(context.Background(), remoteWorkflow())

	var subErr *workflow.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "cluster", subErr.Resource)
	assert.Contains(t, err.Error(), "unknown queue")
}

func TestResource_SubmitRejectsRunnerJobs(t *testing.T) {
	server := newFakeServer()
	r := New("cluster", server, Credentials{}, time.Second)
	wf := remoteWorkflow()
	wf.Jobs[0].Runner = "print"

	_, err := r.Submit(context.Background(), wf)

	var subErr *workflow.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Empty(t, server.emitted, "nothing should be sent to the server")
}

func TestResource_SubmitTimesOut(t *testing.T) {
	server := newFakeServer()
	server.silent = true
	r := New("cluster", server, Credentials{}, 20*time.Millisecond)

	_, err := r.Submit(context.Background(), remoteWorkflow())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestResource_WaitForStatus(t *testing.T) {
	testCases := []struct {
		name       string
		status     string
		jobs       []map[string]any
		wantFailed []string
	}{
		{
			name:   "done",
			status: "done",
			jobs:   []map[string]any{{"id": "a", "status": "done", "duration_ms": 5}},
		},
		{
			name:   "failed job",
			status: "failed",
			jobs: []map[string]any{
				{"id": "a", "status": "failed", "error": "exit status 1"},
				{"id": "b", "status": "skipped"},
			},
			wantFailed: []string{"a", "b"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			server := newFakeServer()
			r := New("cluster", server, Credentials{}, time.Second)
			jobs := make([]any, len(tc.jobs))
			for i, j := range tc.jobs {
				jobs[i] = j
			}

			// --- Act ---
			go func() {
				server.push(EventWorkflowStatus, map[string]any{"workflow_id": "wf-1", "status": "running"})
				server.push(EventWorkflowStatus, map[string]any{"workflow_id": "wf-1", "status": tc.status, "jobs": jobs})
			}()
			result, err := r.Wait(context.Background(), "wf-1")

			// --- Assert ---
			require.NotNil(t, result)
			assert.Equal(t, "wf-1", result.WorkflowID)
			if tc.wantFailed == nil {
				require.NoError(t, err)
				assert.True(t, result.Success())
				assert.Equal(t, 5*time.Millisecond, result.Steps[0].Duration)
				return
			}
			var execErr *workflow.ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, tc.wantFailed, execErr.Failed)
			assert.Equal(t, executor.StatusFailed, result.Steps[0].Status)
			assert.EqualError(t, result.Steps[0].Err, "exit status 1")
		})
	}
}

func TestResource_WaitHonoursContext(t *testing.T) {
	r := New("cluster", newFakeServer(), Credentials{}, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Wait(ctx, "wf-1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResource_DeleteAndClose(t *testing.T) {
	server := newFakeServer()
	r := New("cluster", server, Credentials{}, time.Second)

	require.NoError(t, r.Delete(context.Background(), "wf-1"))
	require.NoError(t, r.Close())

	assert.Equal(t, []string{EventDeleteWorkflow}, server.emitted)
	assert.True(t, server.disconnected)
}
