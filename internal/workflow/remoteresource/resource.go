// Package remoteresource submits workflows to a remote workflow server over
// socket.io.
//
// Requests carry a request_id that the server echoes in its replies:
//
//	submit_workflow  -> workflow_submitted {request_id, workflow_id, error}
//	delete_workflow  -> workflow_deleted   {request_id, error}
//
// Progress is pushed as workflow_status {workflow_id, status, jobs}.
package remoteresource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/workflow"
)

// Event names.
const (
	EventSubmitWorkflow    = "submit_workflow"
	EventDeleteWorkflow    = "delete_workflow"
	EventWorkflowSubmitted = "workflow_submitted"
	EventWorkflowStatus    = "workflow_status"
	EventWorkflowDeleted   = "workflow_deleted"
)

// Credentials are sent with every submission.
type Credentials struct {
	Login      string `json:"login,omitempty"`
	Password   string `json:"password,omitempty"`
	RSAKeyPass string `json:"rsa_key_pass,omitempty"`
}

type submitRequest struct {
	RequestID   string             `json:"request_id"`
	Workflow    *workflow.Workflow `json:"workflow"`
	Credentials Credentials        `json:"credentials"`
}

type deleteRequest struct {
	RequestID  string `json:"request_id"`
	WorkflowID string `json:"workflow_id"`
}

type reply struct {
	RequestID  string `json:"request_id"`
	WorkflowID string `json:"workflow_id"`
	Error      string `json:"error"`
}

type jobStatus struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

type statusUpdate struct {
	WorkflowID string      `json:"workflow_id"`
	Status     string      `json:"status"`
	Jobs       []jobStatus `json:"jobs"`
}

func (u *statusUpdate) terminal() bool {
	return u.Status == string(executor.StatusDone) || u.Status == string(executor.StatusFailed)
}

// Resource is a workflow.Controller backed by a remote server.
type Resource struct {
	id          string
	client      Client
	credentials Credentials
	timeout     time.Duration

	mu       sync.Mutex
	pending  map[string]chan reply
	statuses map[string]*statusUpdate
	waiters  map[string][]chan struct{}
}

var _ workflow.Controller = (*Resource)(nil)

// New wraps a connected client. timeout bounds the wait for request
// replies; it does not bound Wait.
func New(resourceID string, client Client, creds Credentials, timeout time.Duration) *Resource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &Resource{
		id:          resourceID,
		client:      client,
		credentials: creds,
		timeout:     timeout,
		pending:     make(map[string]chan reply),
		statuses:    make(map[string]*statusUpdate),
		waiters:     make(map[string][]chan struct{}),
	}
	client.On(EventWorkflowSubmitted, r.onReply)
	client.On(EventWorkflowDeleted, r.onReply)
	client.On(EventWorkflowStatus, r.onStatus)
	return r
}

func decode(data []any, out any) error {
	if len(data) == 0 {
		return errors.New("empty payload")
	}
	raw, err := json.Marshal(data[0])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (r *Resource) onReply(data ...any) {
	var rep reply
	if err := decode(data, &rep); err != nil {
		return
	}
	r.mu.Lock()
	ch, ok := r.pending[rep.RequestID]
	delete(r.pending, rep.RequestID)
	r.mu.Unlock()
	if ok {
		ch <- rep
	}
}

func (r *Resource) onStatus(data ...any) {
	var update statusUpdate
	if err := decode(data, &update); err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[update.WorkflowID] = &update
	if update.terminal() {
		for _, w := range r.waiters[update.WorkflowID] {
			close(w)
		}
		delete(r.waiters, update.WorkflowID)
	}
}

// request emits event and waits for the reply correlated by request id.
func (r *Resource) request(ctx context.Context, event string, requestID string, payload any) (reply, error) {
	ch := make(chan reply, 1)
	r.mu.Lock()
	r.pending[requestID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, requestID)
		r.mu.Unlock()
	}()

	r.client.Emit(event, payload)

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case rep := <-ch:
		if rep.Error != "" {
			return rep, errors.New(rep.Error)
		}
		return rep, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	case <-timer.C:
		return reply{}, fmt.Errorf("timed out after %v waiting for reply to %s", r.timeout, event)
	}
}

// Submit sends the workflow. Go runner jobs cannot run remotely and are
// rejected.
func (r *Resource) Submit(ctx context.Context, wf *workflow.Workflow) (string, error) {
	for _, job := range wf.Jobs {
		if job.Runner != "" {
			return "", &workflow.SubmissionError{
				Resource: r.id,
				Err:      fmt.Errorf("job %q uses Go runner %q, which only runs on localhost", job.ID, job.Runner),
			}
		}
	}
	logger := ctxlog.FromContext(ctx).With("resource", r.id)
	requestID := uuid.NewString()
	logger.Debug("Emitting workflow submission.", "request_id", requestID, "jobs", len(wf.Jobs))

	rep, err := r.request(ctx, EventSubmitWorkflow, requestID, &submitRequest{
		RequestID:   requestID,
		Workflow:    wf,
		Credentials: r.credentials,
	})
	if err != nil {
		return "", &workflow.SubmissionError{Resource: r.id, Err: err}
	}
	id := rep.WorkflowID
	if id == "" {
		id = wf.ID
	}
	logger.Info("📨 Workflow submitted.", "workflow", id)
	return id, nil
}

// Wait blocks until the server reports the workflow done or failed.
func (r *Resource) Wait(ctx context.Context, id string) (*executor.Result, error) {
	r.mu.Lock()
	update, ok := r.statuses[id]
	if ok && update.terminal() {
		r.mu.Unlock()
		return toResult(update)
	}
	ch := make(chan struct{})
	r.waiters[id] = append(r.waiters[id], ch)
	r.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r.mu.Lock()
	update = r.statuses[id]
	r.mu.Unlock()
	return toResult(update)
}

func toResult(update *statusUpdate) (*executor.Result, error) {
	result := &executor.Result{WorkflowID: update.WorkflowID}
	var failed []string
	for _, j := range update.Jobs {
		sr := executor.StepResult{
			ID:       j.ID,
			Status:   executor.Status(j.Status),
			Duration: time.Duration(j.DurationMS) * time.Millisecond,
		}
		if j.Error != "" {
			sr.Err = errors.New(j.Error)
		}
		if sr.Status != executor.StatusDone {
			failed = append(failed, j.ID)
		}
		result.Steps = append(result.Steps, sr)
	}
	if update.Status == string(executor.StatusFailed) && len(failed) == 0 {
		failed = append(failed, "(workflow)")
		result.Steps = append(result.Steps, executor.StepResult{ID: update.WorkflowID, Status: executor.StatusFailed})
	}
	if len(failed) > 0 {
		return result, &workflow.ExecutionError{WorkflowID: update.WorkflowID, Failed: failed}
	}
	return result, nil
}

// Delete asks the server to remove the workflow.
func (r *Resource) Delete(ctx context.Context, id string) error {
	requestID := uuid.NewString()
	if _, err := r.request(ctx, EventDeleteWorkflow, requestID, &deleteRequest{RequestID: requestID, WorkflowID: id}); err != nil {
		return fmt.Errorf("deleting workflow %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.statuses, id)
	r.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Workflow deleted.", "workflow", id, "resource", r.id)
	return nil
}

// Close disconnects from the server.
func (r *Resource) Close() error {
	r.client.Disconnect()
	return nil
}
