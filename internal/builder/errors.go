package builder

import (
	"errors"
	"fmt"
)

// ErrTooManyPositionals is returned when more positional arguments are given
// than the process declares parameters.
var ErrTooManyPositionals = errors.New("too many positional arguments")

// ProcessResolutionError reports that a process name could not be resolved.
type ProcessResolutionError struct {
	Name string
	Err  error
}

func (e *ProcessResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve process %q: %v", e.Name, e.Err)
}

func (e *ProcessResolutionError) Unwrap() error { return e.Err }

// ParameterAssignmentError reports a failure to assign a command-line
// argument.
type ParameterAssignmentError struct {
	Process  string
	Argument string
	Err      error
}

func (e *ParameterAssignmentError) Error() string {
	return fmt.Sprintf("process %q: cannot assign %s: %v", e.Process, e.Argument, e.Err)
}

func (e *ParameterAssignmentError) Unwrap() error { return e.Err }

// CompletionError reports a failure of the completion engine.
type CompletionError struct {
	Process string
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("process %q: completion failed: %v", e.Process, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
