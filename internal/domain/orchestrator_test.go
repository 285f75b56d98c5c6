package domain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vistet.dev/pkg/devtask/internal/adapter"
	adaptermocks "vistet.dev/pkg/devtask/internal/adapter/mocks"
	"vistet.dev/pkg/devtask/internal/controller"
	m "vistet.dev/pkg/devtask/internal/model"
)

func newTestUI() (*controller.SimpleUI, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)

	return controller.NewSimpleUI(cmd), &buf
}

// toolNamed matches an invocation of the named tool in the given mode.
func toolNamed(name string, mode m.ToolMode) interface{} {
	return mock.MatchedBy(func(inv m.Invocation) bool {
		return inv.Tool.Name == name && inv.Mode == mode
	})
}

// expectInstalled makes every tool resolve during the mutating-operation preflight.
func expectInstalled(runner *adaptermocks.MockToolRunnerAdapter) {
	runner.On("LookPath", mock.Anything, mock.Anything).Return("/usr/bin/tool", nil).Maybe()
}

func statuses(report m.RunReport) []m.StepStatus {
	out := make([]m.StepStatus, 0, len(report.Results))
	for _, result := range report.Results {
		out = append(out, result.Status)
	}

	return out
}

func TestOrchestrator_LintStopsAtFirstFailure(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("Run", mock.Anything, "", toolNamed("flake8", m.ModeCheck), mock.Anything, mock.Anything).
		Return(1, nil).Once()

	op, err := BuildOperation(OpLint, DefaultToolset(), []m.Path{"."})
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "flake8", stepErr.Step)
	assert.Equal(t, 1, stepErr.ExitCode())

	assert.Equal(t, []m.StepStatus{m.Failed, m.Skipped, m.Skipped}, statuses(report))
	assert.Contains(t, out.String(), "❌ flake8 failed (exit code 1)")
	assert.Contains(t, out.String(), "⏭️  isort skipped")
	assert.NotContains(t, out.String(), "All checks passed!")

	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, toolNamed("isort", m.ModeCheck), mock.Anything, mock.Anything)
}

func TestOrchestrator_LintPasses(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("Run", mock.Anything, "/project", mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Times(3)

	op, err := BuildOperation(OpLint, DefaultToolset(), []m.Path{"."})
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{WorkDir: "/project"})
	require.NoError(t, err)

	assert.Equal(t, []m.StepStatus{m.Passed, m.Passed, m.Passed}, statuses(report))
	assert.False(t, report.Failed())

	text := out.String()
	assert.Contains(t, text, "✅ All checks passed!")

	lint := strings.Index(text, "🔍 Running flake8...")
	imports := strings.Index(text, "📦 Checking imports with isort...")
	format := strings.Index(text, "🎨 Checking formatting with black...")
	require.True(t, lint >= 0 && imports > lint && format > imports, "banners out of order: %s", text)
}

func TestOrchestrator_CheckRunsEveryStep(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("Run", mock.Anything, mock.Anything, toolNamed("flake8", m.ModeCheck), mock.Anything, mock.Anything).Return(1, nil).Once()
	runner.On("Run", mock.Anything, mock.Anything, toolNamed("isort", m.ModeCheck), mock.Anything, mock.Anything).Return(0, nil).Once()
	runner.On("Run", mock.Anything, mock.Anything, toolNamed("black", m.ModeCheck), mock.Anything, mock.Anything).Return(1, nil).Once()

	op, err := BuildOperation(OpCheck, DefaultToolset(), nil)
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "flake8", stepErr.Step, "first failure is reported")
	assert.Equal(t, []m.StepStatus{m.Failed, m.Passed, m.Failed}, statuses(report))
	assert.Contains(t, out.String(), "❌ check: 2 of 3 step(s) failed")
}

func TestOrchestrator_MissingToolIsFatal(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("Run", mock.Anything, mock.Anything, toolNamed("flake8", m.ModeCheck), mock.Anything, mock.Anything).
		Return(-1, fmt.Errorf("%w: flake8", adapter.ErrToolNotFound)).Once()

	op, err := BuildOperation(OpCheck, DefaultToolset(), nil)
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})
	require.ErrorIs(t, err, ErrToolNotFound)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, ExitCodeToolNotFound, stepErr.ExitCode())
	assert.Equal(t, []m.StepStatus{m.Errored, m.Skipped, m.Skipped}, statuses(report))
	assert.Contains(t, out.String(), "devtask install-dev")
}

func TestOrchestrator_RejectsWriteStepInReadOnlyOperation(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	op, err := BuildOperation(OpLint, DefaultToolset(), nil)
	require.NoError(t, err)

	op.Steps = append(op.Steps, writeSteps(DefaultToolset(), nil)[0])

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})
	require.ErrorIs(t, err, ErrReadOnlyViolation)
	assert.Empty(t, report.Results)
	assert.Empty(t, out.String())
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_FixStripsWhitespaceAfterFormatting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.py")
	require.NoError(t, os.WriteFile(path, []byte("x=1   \ny = 2\t\n"), 0o644))

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	sources := func(ctx context.Context) ([]m.SourceFile, error) {
		return fsAdapter.Get(ctx, []m.Path{m.Path(dir)}, adapter.SourceFilter{Extensions: []string{".py"}})
	}

	t.Run("formatter failure leaves files untouched", func(t *testing.T) {
		runner := adaptermocks.NewMockToolRunnerAdapter(t)
		ui, _ := newTestUI()
		orch := NewOrchestrator(fsAdapter, runner, ui)

		expectInstalled(runner)
		runner.On("Run", mock.Anything, mock.Anything, toolNamed("isort", m.ModeWrite), mock.Anything, mock.Anything).Return(0, nil).Once()
		runner.On("Run", mock.Anything, mock.Anything, toolNamed("black", m.ModeWrite), mock.Anything, mock.Anything).Return(123, nil).Once()

		op, err := BuildOperation(OpFix, DefaultToolset(), []m.Path{m.Path(dir)})
		require.NoError(t, err)

		report, err := orch.RunOperation(context.Background(), op, RunOptions{Sources: sources})

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, 123, stepErr.ExitCode())
		assert.Equal(t, []m.StepStatus{m.Passed, m.Failed, m.Skipped}, statuses(report))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "x=1   \ny = 2\t\n", string(content))
	})

	t.Run("success strips every file", func(t *testing.T) {
		runner := adaptermocks.NewMockToolRunnerAdapter(t)
		ui, out := newTestUI()
		orch := NewOrchestrator(fsAdapter, runner, ui)

		expectInstalled(runner)
		runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Twice()

		op, err := BuildOperation(OpFix, DefaultToolset(), []m.Path{m.Path(dir)})
		require.NoError(t, err)

		report, err := orch.RunOperation(context.Background(), op, RunOptions{Sources: sources, ShowDiff: true})
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "x=1\ny = 2\n", string(content))

		last := report.Results[len(report.Results)-1]
		assert.Equal(t, []m.Path{m.Path(path)}, last.Changed)
		assert.Contains(t, last.Diff, "-x=1   ")
		assert.Contains(t, out.String(), "✅ All fixes applied!")
	})
}

func TestOrchestrator_FormatSkipsFormatterAfterFailedSort(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	expectInstalled(runner)
	runner.On("Run", mock.Anything, mock.Anything, toolNamed("isort", m.ModeWrite), mock.Anything, mock.Anything).Return(1, nil).Once()

	op, err := BuildOperation(OpFormat, DefaultToolset(), []m.Path{"."})
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "isort", stepErr.Step)
	assert.Equal(t, 1, stepErr.ExitCode())
	assert.Equal(t, []m.StepStatus{m.Failed, m.Skipped}, statuses(report))
	assert.Contains(t, out.String(), "⏭️  black skipped")
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, toolNamed("black", m.ModeWrite), mock.Anything, mock.Anything)
}

func TestOrchestrator_PreflightStopsMutatingOperationBeforeWrites(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, out := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("LookPath", mock.Anything, "isort").Return("/usr/bin/isort", nil).Once()
	runner.On("LookPath", mock.Anything, "black").Return("", fmt.Errorf("%w: black", adapter.ErrToolNotFound)).Once()

	op, err := BuildOperation(OpFix, DefaultToolset(), []m.Path{"."})
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})
	require.ErrorIs(t, err, ErrToolNotFound)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "black", stepErr.Step)
	assert.Equal(t, ExitCodeToolNotFound, stepErr.ExitCode())
	assert.Equal(t, []m.StepStatus{m.Skipped, m.Errored, m.Skipped}, statuses(report))
	assert.Contains(t, out.String(), "devtask install-dev")
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_ReadOnlyOperationsSkipPreflight(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, _ := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	runner.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(0, nil).Times(3)

	op, err := BuildOperation(OpLint, DefaultToolset(), nil)
	require.NoError(t, err)

	_, err = orch.RunOperation(context.Background(), op, RunOptions{})
	require.NoError(t, err)
	runner.AssertNotCalled(t, "LookPath", mock.Anything, mock.Anything)
}

func TestOrchestrator_BuiltinWithoutSources(t *testing.T) {
	ui, _ := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), adaptermocks.NewMockToolRunnerAdapter(t), ui)

	op := m.Operation{
		Name:    "strip",
		Policy:  m.FailFast,
		Mutates: true,
		Steps:   []m.Step{{Name: "whitespace", Kind: m.StepBuiltin, Builtin: m.BuiltinStripWhitespace}},
	}

	report, err := orch.RunOperation(context.Background(), op, RunOptions{})
	require.Error(t, err)
	assert.Equal(t, []m.StepStatus{m.Errored}, statuses(report))
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, _ := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op, err := BuildOperation(OpCheck, DefaultToolset(), nil)
	require.NoError(t, err)

	report, err := orch.RunOperation(ctx, op, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, ExitCodeInterrupted, err.(*StepError).ExitCode())
	assert.Equal(t, []m.StepStatus{m.Errored, m.Skipped, m.Skipped}, statuses(report))
}

func TestOrchestrator_StepTimeoutBoundsTools(t *testing.T) {
	runner := adaptermocks.NewMockToolRunnerAdapter(t)
	ui, _ := newTestUI()
	orch := NewOrchestrator(adapter.NewLocalSourceFSAdapter(), runner, ui)

	withDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})

	expectInstalled(runner)
	runner.On("Run", withDeadline, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(-1, fmt.Errorf("%w: pip", adapter.ErrToolTimeout)).Once()

	op, err := BuildOperation(OpInstallDev, DefaultToolset(), nil)
	require.NoError(t, err)

	report, err := orch.RunOperation(context.Background(), op, RunOptions{StepTimeout: time.Minute})
	require.ErrorIs(t, err, adapter.ErrToolTimeout)
	assert.Equal(t, []m.StepStatus{m.Errored}, statuses(report))
}
