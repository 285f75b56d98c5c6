package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "vistet.dev/pkg/devtask/internal/model"
)

func stepNames(op m.Operation) []string {
	names := make([]string, 0, len(op.Steps))
	for _, step := range op.Steps {
		names = append(names, step.Name)
	}

	return names
}

func TestBuildOperation(t *testing.T) {
	targets := []m.Path{"app", "tests"}

	tests := []struct {
		name      string
		operation string
		policy    m.Policy
		mutates   bool
		steps     []string
		writes    []bool
	}{
		{
			name:      "lint",
			operation: OpLint,
			policy:    m.FailFast,
			steps:     []string{"flake8", "isort", "black"},
			writes:    []bool{false, false, false},
		},
		{
			name:      "check",
			operation: OpCheck,
			policy:    m.RunAll,
			steps:     []string{"flake8", "isort", "black"},
			writes:    []bool{false, false, false},
		},
		{
			name:      "format",
			operation: OpFormat,
			policy:    m.FailFast,
			mutates:   true,
			steps:     []string{"isort", "black"},
			writes:    []bool{true, true},
		},
		{
			name:      "fix",
			operation: OpFix,
			policy:    m.FailFast,
			mutates:   true,
			steps:     []string{"isort", "black", "whitespace"},
			writes:    []bool{true, true, true},
		},
		{
			name:      "install-dev",
			operation: OpInstallDev,
			policy:    m.FailFast,
			mutates:   true,
			steps:     []string{"pip"},
			writes:    []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := BuildOperation(tt.operation, DefaultToolset(), targets)
			require.NoError(t, err)

			assert.Equal(t, tt.operation, op.Name)
			assert.Equal(t, tt.policy, op.Policy)
			assert.Equal(t, tt.mutates, op.Mutates)
			assert.Equal(t, tt.steps, stepNames(op))
			assert.NotEmpty(t, op.SuccessMessage)
			require.NoError(t, validateOperation(op))

			for i, step := range op.Steps {
				assert.Equal(t, tt.writes[i], step.Writes(), "step %s", step.Name)
				assert.NotEmpty(t, step.Banner)
			}
		})
	}
}

func TestBuildOperation_Invocations(t *testing.T) {
	targets := []m.Path{"."}

	lint, err := BuildOperation(OpLint, DefaultToolset(), targets)
	require.NoError(t, err)

	assert.Equal(t, "flake8 .", lint.Steps[0].Invocation.CommandLine())
	assert.Equal(t, "isort --check-only --diff .", lint.Steps[1].Invocation.CommandLine())
	assert.Equal(t, "black --check .", lint.Steps[2].Invocation.CommandLine())

	format, err := BuildOperation(OpFormat, DefaultToolset(), targets)
	require.NoError(t, err)

	assert.Equal(t, "isort .", format.Steps[0].Invocation.CommandLine())
	assert.Equal(t, "black .", format.Steps[1].Invocation.CommandLine())

	install, err := BuildOperation(OpInstallDev, DefaultToolset(), targets)
	require.NoError(t, err)

	assert.Equal(t, "pip install -r requirements.txt", install.Steps[0].Invocation.CommandLine())
	assert.Equal(t, "📥 Installing dependencies with pip...", install.Steps[0].Banner)
}

func TestBuildOperation_Unknown(t *testing.T) {
	_, err := BuildOperation("deploy", DefaultToolset(), nil)
	require.ErrorIs(t, err, ErrUnknownOperation)
	assert.Contains(t, err.Error(), "want one of check, fix, format, install-dev, lint")
}

func TestOperationNames(t *testing.T) {
	assert.Equal(t, []string{OpCheck, OpFix, OpFormat, OpInstallDev, OpLint}, OperationNames())
}

func TestValidateOperation(t *testing.T) {
	op, err := BuildOperation(OpCheck, DefaultToolset(), nil)
	require.NoError(t, err)

	op.Steps[1].Invocation.Mode = m.ModeWrite

	require.ErrorIs(t, validateOperation(op), ErrReadOnlyViolation)
}
