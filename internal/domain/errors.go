package domain

import (
	"context"
	"errors"
	"fmt"

	"vistet.dev/pkg/devtask/internal/adapter"
)

// Exit statuses that mirror the shell's conventions.
const (
	ExitCodeToolNotFound = 127
	ExitCodeInterrupted  = 130
)

var (
	// ErrToolNotFound is returned when a step's tool is not installed.
	ErrToolNotFound = adapter.ErrToolNotFound
	// ErrReadOnlyViolation is returned when a read-only operation contains a
	// step that would write to disk.
	ErrReadOnlyViolation = errors.New("read-only operation contains a write step")
	// ErrUnknownOperation is returned for an operation name with no definition.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrNotWatchable is returned when watch is asked to rerun a mutating operation.
	ErrNotWatchable = errors.New("operation cannot be watched")
)

// StepError reports the step that made an operation fail.
type StepError struct {
	Operation string
	Step      string
	Code      int
	Err       error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: step %q failed: %v", e.Operation, e.Step, e.Err)
	}

	return fmt.Sprintf("%s: step %q failed with exit code %d", e.Operation, e.Step, e.Code)
}

// Unwrap returns the underlying cause, if any.
func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit status the CLI should use.
func (e *StepError) ExitCode() int {
	switch {
	case errors.Is(e.Err, ErrToolNotFound):
		return ExitCodeToolNotFound
	case errors.Is(e.Err, context.Canceled):
		return ExitCodeInterrupted
	case e.Code > 0:
		return e.Code
	default:
		return 1
	}
}
