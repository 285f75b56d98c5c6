package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepError_ExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  *StepError
		want int
	}{
		{"tool exit code", &StepError{Operation: "lint", Step: "flake8", Code: 2}, 2},
		{"missing tool", &StepError{Operation: "lint", Step: "flake8", Code: -1, Err: fmt.Errorf("%w: flake8", ErrToolNotFound)}, ExitCodeToolNotFound},
		{"interrupted", &StepError{Operation: "check", Step: "black", Code: -1, Err: fmt.Errorf("black: %w", context.Canceled)}, ExitCodeInterrupted},
		{"file system error", &StepError{Operation: "fix", Step: "whitespace", Code: -1, Err: errors.New("permission denied")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.ExitCode())
		})
	}
}

func TestStepError_Unwrap(t *testing.T) {
	err := fmt.Errorf("run: %w", &StepError{Operation: "lint", Step: "flake8", Err: ErrToolNotFound})

	var stepErr *StepError
	assert.True(t, errors.As(err, &stepErr))
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), `step "flake8" failed`)
}
