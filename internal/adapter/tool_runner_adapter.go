package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"

	m "vistet.dev/pkg/devtask/internal/model"
)

// ErrToolNotFound is returned when a tool's command cannot be found on PATH.
var ErrToolNotFound = errors.New("tool not found")

// ErrToolTimeout is returned when a tool exceeds the configured step timeout.
var ErrToolTimeout = errors.New("tool timed out")

// ToolRunnerAdapter abstracts running external code quality tools.
type ToolRunnerAdapter interface {
	// LookPath resolves the tool command, returning ErrToolNotFound when it
	// is not installed.
	LookPath(ctx context.Context, command string) (string, error)

	// Run executes the invocation in workDir, streaming its output to stdout
	// and stderr. A tool that runs and exits non-zero yields its exit code and
	// a nil error; err is reserved for failures to run the tool at all.
	Run(ctx context.Context, workDir string, invocation m.Invocation, stdout, stderr io.Writer) (exitCode int, err error)
}

// waitDelay bounds how long Run waits for output pipes after the tool is killed.
const waitDelay = 2 * time.Second

// LocalToolRunnerAdapter provides a concrete implementation using os/exec.
type LocalToolRunnerAdapter struct{}

// NewLocalToolRunnerAdapter constructs a LocalToolRunnerAdapter. Tools run
// until they exit or ctx is done; callers bound a step with a ctx deadline.
func NewLocalToolRunnerAdapter() *LocalToolRunnerAdapter {
	return &LocalToolRunnerAdapter{}
}

// LookPath resolves command on PATH.
func (a *LocalToolRunnerAdapter) LookPath(_ context.Context, command string) (string, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, command)
	}

	return path, nil
}

// Run executes the invocation and returns the process exit code.
func (a *LocalToolRunnerAdapter) Run(ctx context.Context, workDir string, invocation m.Invocation, stdout, stderr io.Writer) (int, error) {
	path, err := a.LookPath(ctx, invocation.Tool.Command)
	if err != nil {
		return -1, err
	}

	// #nosec G204 - the command line comes from the project configuration
	cmd := exec.CommandContext(ctx, path, invocation.Args()...)
	cmd.Dir = workDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	slog.Debug("Running tool", "command", invocation.CommandLine(), "dir", workDir)

	err = cmd.Run()
	if err == nil {
		return 0, nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return -1, fmt.Errorf("%w: %s", ErrToolTimeout, invocation.Tool.Command)
	}

	if ctx.Err() != nil {
		return -1, fmt.Errorf("%s: %w", invocation.Tool.Command, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("failed to run %s: %w", invocation.Tool.Command, err)
}
