package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"vistet.dev/pkg/devtask/internal/adapter"
	"vistet.dev/pkg/devtask/internal/controller"
	m "vistet.dev/pkg/devtask/internal/model"
)

// DefaultTarget is used when no paths are given: the whole project tree.
const DefaultTarget = m.Path(".")

// SourceArgs selects the files the in-process passes work on.
type SourceArgs struct {
	Targets  []m.Path
	Filter   adapter.SourceFilter
	Parallel int
}

// RunArgs contains the arguments for running a named operation.
type RunArgs struct {
	SourceArgs
	Operation string
	Tools     Toolset
	WorkDir   string
	ShowDiff  bool
	DryRun    bool

	// StepTimeout bounds each external tool; zero means no limit.
	StepTimeout time.Duration
}

// CommentArgs contains the arguments for the commented-out code scan.
type CommentArgs struct {
	SourceArgs
	Rules CommentRules
}

// ListArgs contains the arguments for listing source files.
type ListArgs struct {
	SourceArgs
	Rules CommentRules
}

// Workflow is the entry point used by the CLI commands.
type Workflow interface {
	Run(ctx context.Context, args RunArgs) error
	CheckComments(ctx context.Context, args CommentArgs) error
	List(ctx context.Context, args ListArgs) error
	Watch(ctx context.Context, args WatchArgs) error
}

type workflow struct {
	adapter.SourceFSAdapter
	adapter.WatcherAdapter
	controller.UI
	Orchestrator
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	watcher adapter.WatcherAdapter,
	ui controller.UI,
	orchestrator Orchestrator,
) Workflow {
	return &workflow{
		SourceFSAdapter: fsAdapter,
		WatcherAdapter:  watcher,
		UI:              ui,
		Orchestrator:    orchestrator,
	}
}

func targetsOrDefault(targets []m.Path) []m.Path {
	if len(targets) == 0 {
		return []m.Path{DefaultTarget}
	}

	return targets
}

// Run builds the named operation and executes it, or prints its plan on a dry run.
func (w *workflow) Run(ctx context.Context, args RunArgs) error {
	targets := make([]m.Path, 0, len(args.Targets))
	for _, target := range targetsOrDefault(args.Targets) {
		targets = append(targets, trimRecursive(target))
	}

	op, err := BuildOperation(args.Operation, args.Tools, targets)
	if err != nil {
		return err
	}

	if err := validateOperation(op); err != nil {
		return err
	}

	if args.DryRun {
		w.DisplayPlan(ctx, op)
		return nil
	}

	_, err = w.RunOperation(ctx, op, RunOptions{
		WorkDir:     args.WorkDir,
		Sources:     w.sourceResolver(args.SourceArgs),
		Parallel:    args.Parallel,
		ShowDiff:    args.ShowDiff,
		StepTimeout: args.StepTimeout,
	})

	return err
}

func (w *workflow) sourceResolver(args SourceArgs) SourceResolver {
	return func(ctx context.Context) ([]m.SourceFile, error) {
		return w.Get(ctx, targetsOrDefault(args.Targets), args.Filter)
	}
}

// CheckComments scans sources for commented-out code. It is diagnostic
// only: findings, bad rules and unresolvable targets are reported and never
// make it fail. Only cancellation is returned.
func (w *workflow) CheckComments(ctx context.Context, args CommentArgs) error {
	report := w.scanComments(ctx, args)
	if err := ctx.Err(); err != nil {
		return err
	}

	w.DisplayComments(ctx, report)

	return nil
}

func (w *workflow) scanComments(ctx context.Context, args CommentArgs) m.CommentReport {
	scanner, err := newCommentScanner(args.Rules)
	if err != nil {
		slog.Warn("Skipping comment scan", "error", err)
		return m.CommentReport{Warnings: []string{err.Error()}}
	}

	if _, err := args.Filter.Matcher(); err != nil {
		slog.Warn("Skipping comment scan", "error", err)
		return m.CommentReport{Warnings: []string{err.Error()}}
	}

	sources, warnings := w.collectEach(ctx, targetsOrDefault(args.Targets), args.Filter)

	slog.Debug("Scanning for commented-out code", "files", len(sources), "skipped", len(warnings))

	pass := commentPass{fs: w.SourceFSAdapter, scanner: scanner, parallel: args.Parallel}

	report, err := pass.run(ctx, sources)
	if err != nil {
		slog.Warn("Comment scan interrupted", "error", err)
	}

	report.Warnings = append(warnings, report.Warnings...)

	return report
}

// collectEach resolves targets one at a time so a missing target only drops
// itself. Files are sorted by path and de-duplicated.
func (w *workflow) collectEach(ctx context.Context, targets []m.Path, filter adapter.SourceFilter) ([]m.SourceFile, []string) {
	var (
		sources  []m.SourceFile
		warnings []string
	)

	seen := make(map[m.Path]struct{})

	for _, target := range targets {
		files, err := w.Get(ctx, []m.Path{target}, filter)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			slog.Warn("Skipping unresolvable target", "target", target, "error", err)
			warnings = append(warnings, fmt.Sprintf("skipped %s: %v", target, err))

			continue
		}

		for _, file := range files {
			if _, ok := seen[file.Path]; ok {
				continue
			}

			seen[file.Path] = struct{}{}
			sources = append(sources, file)
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})

	return sources, warnings
}

// List shows the resolved source files with per-file statistics.
func (w *workflow) List(ctx context.Context, args ListArgs) error {
	scanner, err := newCommentScanner(args.Rules)
	if err != nil {
		return err
	}

	sources, err := w.Get(ctx, targetsOrDefault(args.Targets), args.Filter)
	if err != nil {
		return fmt.Errorf("collect sources: %w", err)
	}

	stats, err := forEachSource(ctx, sources, args.Parallel, func(ctx context.Context, source m.SourceFile) (m.SourceStat, error) {
		content, err := w.ReadFile(ctx, source.Path)
		if err != nil {
			return m.SourceStat{}, fmt.Errorf("read %s: %w", source.Path, err)
		}

		return m.SourceStat{
			File:               source,
			Lines:              countLines(content),
			TrailingWhitespace: CountTrailingWhitespaceLines(content),
			SuspectComments:    len(scanner.scanContent(source.Path, content, math.MaxInt)),
		}, nil
	})
	if err != nil {
		return err
	}

	w.DisplaySources(ctx, stats)

	return nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}

	lines := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		lines++
	}

	return lines
}
