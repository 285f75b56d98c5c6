package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vistet.dev/pkg/devtask/internal/adapter"
	m "vistet.dev/pkg/devtask/internal/model"
)

// DefaultDebounce is how long watch waits for the tree to settle before rerunning.
const DefaultDebounce = 300 * time.Millisecond

// WatchArgs contains the arguments for watch mode.
type WatchArgs struct {
	RunArgs
	Rules    CommentRules
	Debounce time.Duration
}

// watchable lists the operations that never write to the watched tree.
var watchable = map[string]bool{
	OpLint:          true,
	OpCheck:         true,
	OpCheckComments: true,
}

// WatchableOperations lists the operations Watch accepts, sorted.
func WatchableOperations() []string {
	names := make([]string, 0, len(watchable))
	for name := range watchable {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Watch reruns a read-only operation whenever a matching source file changes.
// Runs are serial; changes that arrive during a run trigger one follow-up run.
func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	if !watchable[args.Operation] {
		return fmt.Errorf("%w: %s (want one of %s)", ErrNotWatchable, args.Operation, strings.Join(WatchableOperations(), ", "))
	}

	match, err := args.Filter.Matcher()
	if err != nil {
		return err
	}

	debounce := args.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	roots, err := w.watchRoots(ctx, targetsOrDefault(args.Targets))
	if err != nil {
		return err
	}

	changes, errs, err := w.WatcherAdapter.Watch(ctx, roots, args.Filter.SkipDirs)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	known := w.snapshotHashes(ctx, roots, args.Filter)

	w.DisplayWatchStart(ctx, args.Operation, roots)
	w.runWatched(ctx, args)

	var (
		fire    <-chan time.Time
		pending m.Path
	)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Watch stopped", "operation", args.Operation)
			return nil
		case path, ok := <-changes:
			if !ok {
				return nil
			}

			if !match(w.relativeToWorkDir(ctx, path)) {
				continue
			}

			if !contentChanged(ctx, w.SourceFSAdapter, known, path) {
				slog.Debug("Ignoring event for unchanged file", "path", path)
				continue
			}

			pending = path
			fire = time.After(debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}

			slog.Warn("Watcher error", "error", err)
		case <-fire:
			fire = nil

			w.DisplayWatchTrigger(ctx, pending)
			w.runWatched(ctx, args)
		}
	}
}

func (w *workflow) runWatched(ctx context.Context, args WatchArgs) {
	var err error

	if args.Operation == OpCheckComments {
		err = w.CheckComments(ctx, CommentArgs{SourceArgs: args.SourceArgs, Rules: args.Rules})
	} else {
		runArgs := args.RunArgs
		runArgs.DryRun = false
		err = w.Run(ctx, runArgs)
	}

	var stepErr *StepError
	if err != nil && !errors.As(err, &stepErr) && ctx.Err() == nil {
		slog.Error("Watched run failed", "operation", args.Operation, "error", err)
	}
}

// watchRoots maps targets to the directories that must be watched.
func (w *workflow) watchRoots(ctx context.Context, targets []m.Path) ([]m.Path, error) {
	seen := make(map[m.Path]struct{}, len(targets))
	roots := make([]m.Path, 0, len(targets))

	for _, target := range targets {
		root := trimRecursive(target)

		info, err := w.FileInfo(ctx, root)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target, err)
		}

		if !info.IsDir() {
			root = m.Path(filepath.Dir(string(root)))
		}

		if _, ok := seen[root]; ok {
			continue
		}

		seen[root] = struct{}{}
		roots = append(roots, root)
	}

	return roots, nil
}

func trimRecursive(target m.Path) m.Path {
	root := strings.TrimSuffix(string(target), "/...")

	if root == "" || root == "..." {
		return DefaultTarget
	}

	return m.Path(root)
}

// snapshotHashes records the content hash of every watched source so saves
// that leave a file unchanged do not trigger a rerun.
func (w *workflow) snapshotHashes(ctx context.Context, roots []m.Path, filter adapter.SourceFilter) map[m.Path]string {
	known := make(map[m.Path]string)

	sources, err := w.Get(ctx, roots, filter)
	if err != nil {
		slog.Warn("Failed to fingerprint watched sources", "error", err)
		return known
	}

	for _, source := range sources {
		if source.Hash != "" {
			known[source.Path] = source.Hash
		}
	}

	return known
}

// contentChanged compares path with its last known hash and records the new
// one. Files that can no longer be read count as changed.
func contentChanged(ctx context.Context, fs adapter.SourceFSAdapter, known map[m.Path]string, path m.Path) bool {
	key := m.Path(filepath.Clean(string(path)))

	hash, err := fs.HashFile(ctx, key)
	if err != nil {
		delete(known, key)
		return true
	}

	previous, ok := known[key]
	known[key] = hash

	return !ok || previous != hash
}

func (w *workflow) relativeToWorkDir(ctx context.Context, path m.Path) string {
	if !filepath.IsAbs(string(path)) {
		return string(path)
	}

	wd, err := os.Getwd()
	if err != nil {
		return string(path)
	}

	rel, err := w.RelPath(ctx, m.Path(wd), path)
	if err != nil {
		return string(path)
	}

	return string(rel)
}
