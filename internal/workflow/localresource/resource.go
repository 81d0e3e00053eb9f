// Package localresource runs workflows on the local machine, recording
// workflow and job states in a SQLite database.
package localresource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/process"
	"github.com/vk/capsulrun/internal/workflow"
	"golang.org/x/sync/errgroup"
)

// ResourceID is the id under which the local resource is known.
const ResourceID = "localhost"

const (
	statusPending = "pending"
	statusRunning = "running"
	statusDone    = string(executor.StatusDone)
	statusFailed  = string(executor.StatusFailed)
	statusSkipped = string(executor.StatusSkipped)
)

// Runner executes the two kinds of jobs.
type Runner interface {
	RunCommand(ctx context.Context, inv *executor.Invocation) error
	RunHandler(ctx context.Context, inst *process.Instance) error
}

// Resource is a workflow.Controller executing jobs in-process.
type Resource struct {
	store   *store
	runner  Runner
	workers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]chan struct{}
}

var _ workflow.Controller = (*Resource)(nil)

// Open opens (or creates) the workflow database at path. Up to workers jobs
// run at the same time.
func Open(path string, runner Runner, workers int) (*Resource, error) {
	s, err := openStore(path)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resource{
		store:   s,
		runner:  runner,
		workers: workers,
		ctx:     ctx,
		cancel:  cancel,
		running: make(map[string]chan struct{}),
	}, nil
}

// Submit records the workflow and starts running it in the background.
func (r *Resource) Submit(ctx context.Context, wf *workflow.Workflow) (string, error) {
	if err := validate(wf); err != nil {
		return "", &workflow.SubmissionError{Resource: ResourceID, Err: err}
	}
	if err := r.store.insert(ctx, wf); err != nil {
		return "", &workflow.SubmissionError{Resource: ResourceID, Err: err}
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.running[wf.ID] = done
	r.mu.Unlock()

	logger := ctxlog.FromContext(ctx).With("workflow", wf.ID)
	logger.Info("📨 Workflow submitted.", "name", wf.Name, "jobs", len(wf.Jobs))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)
		r.run(ctxlog.WithLogger(r.ctx, logger), wf)
	}()
	return wf.ID, nil
}

func validate(wf *workflow.Workflow) error {
	if wf.InputProcessing != workflow.LocalPath || wf.OutputProcessing != workflow.LocalPath {
		return fmt.Errorf("%w: local resource only supports %s, got input=%s output=%s",
			workflow.ErrInvalidFileProcessing, workflow.LocalPath, wf.InputProcessing, wf.OutputProcessing)
	}
	seen := make(map[string]struct{}, len(wf.Jobs))
	for _, job := range wf.Jobs {
		for _, dep := range job.DependsOn {
			if _, ok := seen[dep]; !ok {
				return fmt.Errorf("job %q depends on %q, which is not an earlier job", job.ID, dep)
			}
		}
		if job.Runner != "" && job.Instance == nil {
			return fmt.Errorf("job %q: runner job without a process instance", job.ID)
		}
		if job.Runner == "" && len(job.Command) == 0 {
			return fmt.Errorf("job %q has no command", job.ID)
		}
		seen[job.ID] = struct{}{}
	}
	return nil
}

type jobState struct {
	done   chan struct{}
	status string
}

func (r *Resource) run(ctx context.Context, wf *workflow.Workflow) {
	logger := ctxlog.FromContext(ctx)
	if err := r.store.setWorkflowStatus(ctx, wf.ID, statusRunning); err != nil {
		logger.Error("Failed to record workflow status.", "error", err)
	}

	states := make(map[string]*jobState, len(wf.Jobs))
	for _, job := range wf.Jobs {
		states[job.ID] = &jobState{done: make(chan struct{})}
	}

	// Jobs are launched in dependency order, so a job holding a slot while
	// waiting only waits on jobs launched before it.
	eg := new(errgroup.Group)
	eg.SetLimit(r.workers)
	for _, job := range wf.Jobs {
		eg.Go(func() error {
			r.runJob(ctx, wf.ID, job, states)
			return nil
		})
	}
	_ = eg.Wait()

	status := statusDone
	for _, st := range states {
		if st.status != statusDone {
			status = statusFailed
			break
		}
	}
	if err := r.store.setWorkflowStatus(context.WithoutCancel(ctx), wf.ID, status); err != nil {
		logger.Error("Failed to record workflow status.", "error", err)
	}
	logger.Info("✅ Workflow finished.", "status", status)
}

func (r *Resource) runJob(ctx context.Context, workflowID string, job *workflow.Job, states map[string]*jobState) {
	st := states[job.ID]
	defer close(st.done)
	logger := ctxlog.FromContext(ctx).With("job", job.ID)

	for _, dep := range job.DependsOn {
		d := states[dep]
		<-d.done
		if d.status != statusDone {
			st.status = statusSkipped
			logger.Warn("Job skipped: dependency did not complete.", "dependency", dep)
			r.record(ctx, workflowID, job.ID, st.status, nil, 0)
			return
		}
	}
	if ctx.Err() != nil {
		st.status = statusSkipped
		r.record(ctx, workflowID, job.ID, st.status, ctx.Err(), 0)
		return
	}

	logger.Info("▶️ Starting job")
	start := time.Now()
	err := r.execute(ctxlog.WithLogger(ctx, logger), job)
	elapsed := time.Since(start)
	if err != nil {
		st.status = statusFailed
		logger.Error("Job failed.", "error", err)
	} else {
		st.status = statusDone
		logger.Info("✅ Finished job", "duration", elapsed)
	}
	r.record(ctx, workflowID, job.ID, st.status, err, elapsed)
}

func (r *Resource) execute(ctx context.Context, job *workflow.Job) error {
	if job.Runner != "" {
		return r.runner.RunHandler(ctx, job.Instance)
	}
	return r.runner.RunCommand(ctx, &executor.Invocation{Argv: job.Command, Env: job.Env})
}

func (r *Resource) record(ctx context.Context, workflowID, jobID, status string, jobErr error, d time.Duration) {
	if err := r.store.setJobStatus(context.WithoutCancel(ctx), workflowID, jobID, status, jobErr, d); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to record job status.", "job", jobID, "error", err)
	}
}

// Wait blocks until the workflow has finished and returns its result.
func (r *Resource) Wait(ctx context.Context, id string) (*executor.Result, error) {
	r.mu.Lock()
	done, ok := r.running[id]
	r.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if _, err := r.store.workflowStatus(ctx, id); err != nil {
		return nil, err
	}
	result, err := r.store.result(ctx, id)
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		var failed []string
		for _, s := range result.Steps {
			if s.Status != executor.StatusDone {
				failed = append(failed, s.ID)
			}
		}
		return result, &workflow.ExecutionError{WorkflowID: id, Failed: failed}
	}
	return result, nil
}

// Status returns the recorded status of a workflow.
func (r *Resource) Status(ctx context.Context, id string) (string, error) {
	return r.store.workflowStatus(ctx, id)
}

// Delete removes a finished workflow from the database.
func (r *Resource) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	done, ok := r.running[id]
	r.mu.Unlock()
	if ok {
		select {
		case <-done:
		default:
			return errors.New("cannot delete a running workflow")
		}
	}
	if err := r.store.delete(ctx, id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
	ctxlog.FromContext(ctx).Debug("Workflow deleted.", "workflow", id)
	return nil
}

// Close cancels running jobs, waits for them, and closes the database.
func (r *Resource) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.store.close()
}
