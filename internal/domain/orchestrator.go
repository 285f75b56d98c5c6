package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vistet.dev/pkg/devtask/internal/adapter"
	"vistet.dev/pkg/devtask/internal/controller"
	m "vistet.dev/pkg/devtask/internal/model"
)

// SourceResolver lazily resolves the files a builtin pass works on.
type SourceResolver func(ctx context.Context) ([]m.SourceFile, error)

// RunOptions configures a single operation run.
type RunOptions struct {
	WorkDir  string
	Sources  SourceResolver
	Parallel int
	ShowDiff bool

	// StepTimeout bounds each external tool; zero means no limit.
	StepTimeout time.Duration
}

// Orchestrator runs an operation's steps in order and applies its failure
// policy. External tools run one at a time.
type Orchestrator interface {
	RunOperation(ctx context.Context, op m.Operation, opts RunOptions) (m.RunReport, error)
}

type orchestrator struct {
	fsAdapter   adapter.SourceFSAdapter
	toolAdapter adapter.ToolRunnerAdapter
	ui          controller.UI
}

// NewOrchestrator constructs an Orchestrator backed by the provided
// filesystem and tool runner adapters.
func NewOrchestrator(fsAdapter adapter.SourceFSAdapter, toolAdapter adapter.ToolRunnerAdapter, ui controller.UI) Orchestrator {
	return &orchestrator{
		fsAdapter:   fsAdapter,
		toolAdapter: toolAdapter,
		ui:          ui,
	}
}

// RunOperation executes op and returns a *StepError describing the first
// failing step, if any.
func (o *orchestrator) RunOperation(ctx context.Context, op m.Operation, opts RunOptions) (m.RunReport, error) {
	report := m.RunReport{Operation: op}

	if err := validateOperation(op); err != nil {
		slog.Error("Refusing to run operation", "operation", op.Name, "error", err)
		return report, err
	}

	start := time.Now()
	halted := false

	slog.Info("Running operation", "operation", op.Name, "policy", op.Policy.String(), "steps", len(op.Steps))

	missing := -1

	var missingErr error
	if op.Mutates {
		missing, missingErr = o.preflight(ctx, op)
	}

	for i, step := range op.Steps {
		if halted || i < missing {
			result := m.StepResult{Step: step, Status: m.Skipped}
			report.Results = append(report.Results, result)
			o.ui.DisplayStepResult(ctx, result)

			continue
		}

		o.ui.DisplayStepStart(ctx, step, i+1, len(op.Steps))

		var result m.StepResult
		if i == missing {
			result = m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: missingErr}
		} else {
			result = o.runStep(ctx, step, opts)
		}

		report.Results = append(report.Results, result)
		o.ui.DisplayStepResult(ctx, result)

		if result.OK() {
			continue
		}

		slog.Warn("Step did not pass",
			"operation", op.Name, "step", step.Name, "status", result.Status.String(),
			"exitCode", result.ExitCode, "error", result.Err)

		if op.Policy == m.FailFast || isFatal(result) || ctx.Err() != nil {
			halted = true
		}
	}

	report.Duration = time.Since(start)
	o.ui.DisplayRunSummary(ctx, report)

	failure, failed := report.FirstFailure()
	if !failed {
		slog.Info("Operation passed", "operation", op.Name, "duration", report.Duration)
		return report, nil
	}

	return report, &StepError{
		Operation: op.Name,
		Step:      failure.Step.Name,
		Code:      failure.ExitCode,
		Err:       failure.Err,
	}
}

// preflight resolves every tool of a mutating operation before anything runs,
// so a missing tool is reported before a single file is rewritten. It returns
// the index of the first step whose tool is missing, or -1.
func (o *orchestrator) preflight(ctx context.Context, op m.Operation) (int, error) {
	for i, step := range op.Steps {
		if step.Kind != m.StepTool {
			continue
		}

		if _, err := o.toolAdapter.LookPath(ctx, step.Invocation.Tool.Command); err != nil {
			slog.Error("Tool is not installed", "operation", op.Name, "step", step.Name, "error", err)
			return i, err
		}
	}

	return -1, nil
}

// isFatal reports whether a step result means no later step can succeed.
func isFatal(result m.StepResult) bool {
	return errors.Is(result.Err, ErrToolNotFound)
}

func (o *orchestrator) runStep(ctx context.Context, step m.Step, opts RunOptions) m.StepResult {
	start := time.Now()

	var result m.StepResult

	switch step.Kind {
	case m.StepTool:
		result = o.runTool(ctx, step, opts)
	case m.StepBuiltin:
		result = o.runBuiltin(ctx, step, opts)
	default:
		result = m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: fmt.Errorf("unsupported step kind %d", step.Kind)}
	}

	result.Duration = time.Since(start)

	return result
}

func (o *orchestrator) runTool(ctx context.Context, step m.Step, opts RunOptions) m.StepResult {
	if err := ctx.Err(); err != nil {
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: err}
	}

	if opts.StepTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.StepTimeout)
		defer cancel()
	}

	stdout, stderr := o.ui.Writers()

	exitCode, err := o.toolAdapter.Run(ctx, opts.WorkDir, step.Invocation, stdout, stderr)
	if err != nil {
		slog.Error("Failed to run tool", "step", step.Name, "command", step.Invocation.CommandLine(), "error", err)
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: exitCode, Err: err}
	}

	if exitCode != 0 {
		return m.StepResult{Step: step, Status: m.Failed, ExitCode: exitCode}
	}

	return m.StepResult{Step: step, Status: m.Passed}
}

func (o *orchestrator) runBuiltin(ctx context.Context, step m.Step, opts RunOptions) m.StepResult {
	if step.Builtin != m.BuiltinStripWhitespace {
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: fmt.Errorf("unknown builtin %q", step.Builtin)}
	}

	if opts.Sources == nil {
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: errors.New("no source resolver configured")}
	}

	sources, err := opts.Sources(ctx)
	if err != nil {
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: fmt.Errorf("collect sources: %w", err)}
	}

	pass := whitespacePass{fs: o.fsAdapter, parallel: opts.Parallel, withDiff: opts.ShowDiff}

	changed, diff, err := pass.run(ctx, sources)
	if err != nil {
		return m.StepResult{Step: step, Status: m.Errored, ExitCode: -1, Err: err}
	}

	slog.Info("Trailing whitespace pass finished", "files", len(sources), "changed", len(changed))

	return m.StepResult{Step: step, Status: m.Passed, Changed: changed, Diff: diff}
}
