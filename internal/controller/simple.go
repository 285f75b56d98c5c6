package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"vistet.dev/pkg/devtask/internal/adapter"
	m "vistet.dev/pkg/devtask/internal/model"
)

// SimpleUI implements UI using cobra Command's output streams.
type SimpleUI struct {
	cmd     *cobra.Command
	palette palette
}

// NewSimpleUI creates a new SimpleUI without colors.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Attach redirects output to cmd's streams.
func (s *SimpleUI) Attach(cmd *cobra.Command) {
	s.cmd = cmd
}

// EnableColor switches lipgloss styling on or off.
func (s *SimpleUI) EnableColor(enabled bool) {
	s.palette = newPalette(enabled)
}

// Writers returns the command's stdout and stderr.
func (s *SimpleUI) Writers() (io.Writer, io.Writer) {
	return s.cmd.OutOrStdout(), s.cmd.ErrOrStderr()
}

// DisplayPlan prints the steps an operation would run, without running them.
func (s *SimpleUI) DisplayPlan(ctx context.Context, op m.Operation) {
	if err := ctx.Err(); err != nil {
		return
	}

	access := "read-only"
	if op.Mutates {
		access = "rewrites files"
	}

	s.printf("%s\n", s.palette.Banner(fmt.Sprintf("Plan for %s (%s, %s):", op.Name, op.Policy, access)))

	for i, step := range op.Steps {
		s.printf("  %d. %s\n", i+1, describeStep(step))
	}
}

func describeStep(step m.Step) string {
	if step.Kind == m.StepBuiltin {
		if step.Builtin == m.BuiltinStripWhitespace {
			return "strip trailing whitespace from every source file"
		}

		return string(step.Builtin)
	}

	return step.Invocation.CommandLine()
}

// DisplayStepStart prints the step banner.
func (s *SimpleUI) DisplayStepStart(ctx context.Context, step m.Step, _ int, _ int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", s.palette.Banner(step.Banner))

	if step.Kind == m.StepTool {
		s.printf("%s\n", s.palette.Muted("$ "+step.Invocation.CommandLine()))
	}
}

// DisplayStepResult prints the outcome marker for a step.
func (s *SimpleUI) DisplayStepResult(ctx context.Context, result m.StepResult) {
	if err := ctx.Err(); err != nil && result.Status != m.Skipped {
		return
	}

	name := result.Step.Name

	switch result.Status {
	case m.Passed:
		line := fmt.Sprintf("✅ %s passed", name)
		if result.Step.Kind == m.StepBuiltin {
			line += fmt.Sprintf(", %d file(s) changed", len(result.Changed))
		}

		s.printf("%s %s\n", s.palette.Success(line), s.palette.Muted(formatDuration(result.Duration)))

		for _, path := range result.Changed {
			s.printf("   %s\n", path)
		}

		if result.Diff != "" {
			s.printf("%s", result.Diff)
		}
	case m.Failed:
		s.printf("%s\n", s.palette.Failure(fmt.Sprintf("❌ %s failed (exit code %d)", name, result.ExitCode)))
	case m.Errored:
		s.printf("%s\n", s.palette.Failure(fmt.Sprintf("❌ %s error: %v", name, result.Err)))

		if errors.Is(result.Err, adapter.ErrToolNotFound) {
			s.printf("%s\n", s.palette.Warning("   Is it installed? Try `devtask install-dev`."))
		}
	case m.Skipped:
		s.printf("%s\n", s.palette.Muted(fmt.Sprintf("⏭️  %s skipped", name)))
	}
}

// DisplayRunSummary prints a table of step outcomes and the final verdict.
func (s *SimpleUI) DisplayRunSummary(ctx context.Context, report m.RunReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(report))

	failure, failed := report.FirstFailure()
	if !failed {
		s.printf("%s\n", s.palette.Success("✅ "+report.Operation.SuccessMessage))
		return
	}

	if report.Operation.Policy == m.RunAll {
		s.printf("%s\n", s.palette.Failure(fmt.Sprintf("❌ %s: %d of %d step(s) failed",
			report.Operation.Name, report.Count(m.Failed)+report.Count(m.Errored), len(report.Results))))

		return
	}

	s.printf("%s\n", s.palette.Failure(fmt.Sprintf("❌ %s stopped at %s", report.Operation.Name, failure.Step.Name)))
}

func renderSummaryTable(report m.RunReport) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Step", "Status", "Duration"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, result := range report.Results {
		duration := "-"
		if result.Status != m.Skipped {
			duration = formatDuration(result.Duration)
		}

		table.Append([]string{result.Step.Name, result.Status.String(), duration})
	}

	table.SetFooter([]string{
		fmt.Sprintf("%d step(s)", len(report.Results)),
		fmt.Sprintf("%d passed", report.Count(m.Passed)),
		formatDuration(report.Duration),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplayComments prints the commented-out code findings.
func (s *SimpleUI) DisplayComments(ctx context.Context, report m.CommentReport) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", s.palette.Banner("🔎 Checking for commented-out code..."))

	for _, warning := range report.Warnings {
		s.printf("%s\n", s.palette.Warning("⚠️  "+warning))
	}

	if len(report.Matches) == 0 {
		s.printf("%s\n", s.palette.Success(fmt.Sprintf("✅ No commented code found (%d file(s) scanned)", report.FilesScanned)))
		return
	}

	s.printf("%s\n", s.palette.Warning("⚠️  Possible commented-out code:"))

	for _, match := range report.Matches {
		s.printf("%s:%d: %s\n", match.Path, match.Line, match.Text)
	}

	if report.Truncated {
		s.printf("%s\n", s.palette.Muted(fmt.Sprintf("... more matches not shown (first %d listed)", len(report.Matches))))
	}
}

// DisplaySources prints the resolved source files with their statistics.
func (s *SimpleUI) DisplaySources(ctx context.Context, stats []m.SourceStat) {
	if err := ctx.Err(); err != nil {
		return
	}

	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Lines", "Trailing WS", "Suspect comments"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})

	var lines, trailing, suspect int

	for _, stat := range stats {
		path := stat.File.ShortPath
		if path == "" {
			path = stat.File.Path
		}

		table.Append([]string{
			string(path),
			fmt.Sprintf("%d", stat.Lines),
			fmt.Sprintf("%d", stat.TrailingWhitespace),
			fmt.Sprintf("%d", stat.SuspectComments),
		})

		lines += stat.Lines
		trailing += stat.TrailingWhitespace
		suspect += stat.SuspectComments
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(stats)),
		fmt.Sprintf("%d", lines),
		fmt.Sprintf("%d", trailing),
		fmt.Sprintf("%d", suspect),
	})

	table.Render()

	s.printf("\n%s", tableBuffer.String())
}

// DisplayWatchStart announces watch mode.
func (s *SimpleUI) DisplayWatchStart(ctx context.Context, operation string, roots []m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	names := make([]string, 0, len(roots))
	for _, root := range roots {
		names = append(names, string(root))
	}

	s.printf("%s\n", s.palette.Banner(fmt.Sprintf("👀 Watching %s for changes (%s). Press Ctrl-C to stop.",
		strings.Join(names, ", "), operation)))
}

// DisplayWatchTrigger announces a rerun caused by a change.
func (s *SimpleUI) DisplayWatchTrigger(ctx context.Context, path m.Path) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s\n", s.palette.Banner(fmt.Sprintf("🔄 %s changed, rerunning...", path)))
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return d.Round(10 * time.Millisecond).String()
}
