package executor

import (
	"fmt"
	"strings"
)

// ExitError reports a command that exited with a non-zero status.
type ExitError struct {
	Argv []string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command %q exited with status %d", strings.Join(e.Argv, " "), e.Code)
}

// ExecutionError reports the step that failed a run.
type ExecutionError struct {
	Step string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
