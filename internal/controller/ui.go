// Package controller provides the terminal output for devtask runs.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "vistet.dev/pkg/devtask/internal/model"
)

// UI defines how run progress and diagnostics are presented.
// Implementations can use different output methods (plain text, styled, etc).
type UI interface {
	// Writers returns the streams external tools write their output to.
	Writers() (stdout, stderr io.Writer)
	DisplayPlan(ctx context.Context, op m.Operation)
	DisplayStepStart(ctx context.Context, step m.Step, index, total int)
	DisplayStepResult(ctx context.Context, result m.StepResult)
	DisplayRunSummary(ctx context.Context, report m.RunReport)
	DisplayComments(ctx context.Context, report m.CommentReport)
	DisplaySources(ctx context.Context, stats []m.SourceStat)
	DisplayWatchStart(ctx context.Context, operation string, roots []m.Path)
	DisplayWatchTrigger(ctx context.Context, path m.Path)
}

// NewUI returns a SimpleUI bound to cmd's output streams, with colors
// enabled when color is true.
func NewUI(cmd *cobra.Command, color bool) *SimpleUI {
	ui := NewSimpleUI(cmd)
	ui.EnableColor(color)

	return ui
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	fd := f.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
