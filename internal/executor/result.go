package executor

import "time"

// Status is the final state of a step or job.
type Status string

const (
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepResult records the outcome of one step.
type StepResult struct {
	ID       string
	Status   Status
	Err      error
	Duration time.Duration
}

// Result is the outcome of a run, local or distributed.
type Result struct {
	Steps []StepResult
	// WorkflowID is set for distributed runs.
	WorkflowID string
}

// Success reports whether every step completed.
func (r *Result) Success() bool {
	for _, s := range r.Steps {
		if s.Status != StatusDone {
			return false
		}
	}
	return true
}

// ExitCode maps the result to a process exit status.
func (r *Result) ExitCode() int {
	if r.Success() {
		return 0
	}
	return 1
}
