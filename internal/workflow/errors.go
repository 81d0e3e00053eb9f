package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWorkflowNotFound is returned for unknown workflow ids.
var ErrWorkflowNotFound = errors.New("workflow not found")

// SubmissionError reports a workflow the resource did not accept.
type SubmissionError struct {
	Resource string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("workflow submission to %q failed: %v", e.Resource, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ExecutionError reports an accepted workflow whose jobs did not all
// complete.
type ExecutionError struct {
	WorkflowID string
	Failed     []string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("workflow %s failed: jobs %s", e.WorkflowID, strings.Join(e.Failed, ", "))
}
