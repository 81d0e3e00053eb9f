// Package dispatch runs a built process either in-process or as a workflow
// submitted to a computing resource.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/capsulrun/internal/ctxlog"
	"github.com/vk/capsulrun/internal/executor"
	"github.com/vk/capsulrun/internal/process"
	"github.com/vk/capsulrun/internal/studyconfig"
	"github.com/vk/capsulrun/internal/workflow"
)

// Options control how a process is dispatched.
type Options struct {
	// UseSomaWorkflow overrides the study setting when non-nil.
	UseSomaWorkflow *bool
	ResourceID      string
	Login           string
	Password        string
	RSAKeyPass      string
	Queue           string

	InputProcessing  string
	OutputProcessing string

	KeepWorkflow       bool
	KeepFailedWorkflow bool
}

// Dispatcher chooses between local and distributed execution.
type Dispatcher struct {
	study    *studyconfig.StudyConfig
	exec     *executor.Executor
	controls ControllerFactory
}

// New creates a dispatcher. open is called once per distributed run.
func New(study *studyconfig.StudyConfig, exec *executor.Executor, open ControllerFactory) *Dispatcher {
	return &Dispatcher{study: study, exec: exec, controls: open}
}

// Run executes p and returns its result. On failure the result, when
// available, is returned alongside the error.
func (d *Dispatcher) Run(ctx context.Context, p process.Process, opts Options) (*executor.Result, error) {
	if opts.UseSomaWorkflow != nil {
		d.study.SetUseSomaWorkflow(*opts.UseSomaWorkflow)
	}
	if !d.study.UseSomaWorkflow {
		return d.exec.Run(ctx, p)
	}
	return d.runDistributed(ctx, p, opts)
}

func (d *Dispatcher) runDistributed(ctx context.Context, p process.Process, opts Options) (*executor.Result, error) {
	resourceID := d.study.ResourceID(opts.ResourceID, true)
	d.study.SetResourceLogin(resourceID, opts.Login)
	d.study.SetResourcePassword(resourceID, opts.Password, opts.RSAKeyPass)
	rc := d.study.Resource(resourceID)
	if opts.Queue != "" {
		rc.Queue = opts.Queue
	}

	logger := ctxlog.FromContext(ctx).With("resource", resourceID)

	fp, err := workflow.ParseFileProcessing(opts.InputProcessing, opts.OutputProcessing, resourceID)
	if err != nil {
		return nil, err
	}
	steps, err := executor.Plan(p)
	if err != nil {
		return nil, err
	}
	wf, err := workflow.FromPlan(p.Name(), steps, d.exec, fp)
	if err != nil {
		return nil, fmt.Errorf("building workflow: %w", err)
	}
	wf.Queue = rc.Queue
	if wf.Uses(workflow.Translate) || wf.Uses(workflow.TranslateShared) {
		wf.SharedRoot = rc.SharedRoot
	}
	if wf.Uses(workflow.Transfer) {
		wf.TransferRoot = rc.TransferRoot
	}

	ctrl, err := d.controls(ctx, resourceID, rc)
	if err != nil {
		return nil, &workflow.SubmissionError{Resource: resourceID, Err: err}
	}
	defer func() {
		if cerr := ctrl.Close(); cerr != nil {
			logger.Warn("Closing workflow controller failed.", "error", cerr)
		}
	}()

	logger.Info("▶️ Submitting workflow.", "process", p.Name(), "jobs", len(wf.Jobs), "queue", wf.Queue)
	id, err := ctrl.Submit(ctx, wf)
	if err != nil {
		return nil, err
	}
	logger = logger.With("workflow", id)

	result, runErr := ctrl.Wait(ctx, id)
	if runErr == nil {
		logger.Info("✅ Workflow finished.")
	} else {
		logger.Error("Workflow failed.", "error", runErr)
	}

	if keep(opts, runErr) {
		logger.Info("Keeping workflow.")
		return result, runErr
	}
	if err := ctrl.Delete(ctx, id); err != nil {
		logger.Warn("Deleting workflow failed.", "error", err)
	}
	return result, runErr
}

// keep applies the retention policy: workflows are deleted unless kept
// unconditionally, or kept on failure and the run failed.
func keep(opts Options, runErr error) bool {
	if opts.KeepWorkflow {
		return true
	}
	var execErr *workflow.ExecutionError
	return opts.KeepFailedWorkflow && errors.As(runErr, &execErr)
}
