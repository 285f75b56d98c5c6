package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	m "vistet.dev/pkg/devtask/internal/model"
)

// WatcherAdapter reports file-system changes below a set of roots.
type WatcherAdapter interface {
	// Watch starts watching roots recursively. Changed paths are delivered on
	// the returned channel until ctx is cancelled, after which both channels
	// are closed.
	Watch(ctx context.Context, roots []m.Path, skipDirs []string) (<-chan m.Path, <-chan error, error)
}

// FSNotifyWatcherAdapter implements WatcherAdapter with fsnotify.
type FSNotifyWatcherAdapter struct{}

// NewFSNotifyWatcherAdapter constructs an FSNotifyWatcherAdapter.
func NewFSNotifyWatcherAdapter() *FSNotifyWatcherAdapter {
	return &FSNotifyWatcherAdapter{}
}

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watch registers every directory below roots (fsnotify is not recursive) and
// forwards relevant events.
func (a *FSNotifyWatcherAdapter) Watch(ctx context.Context, roots []m.Path, skipDirs []string) (<-chan m.Path, <-chan error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("create watcher: %w", err)
	}

	skip := make(map[string]struct{}, len(skipDirs))
	for _, dir := range skipDirs {
		skip[dir] = struct{}{}
	}

	for _, root := range roots {
		if err := addRecursive(watcher, string(root), skip); err != nil {
			_ = watcher.Close()
			return nil, nil, err
		}
	}

	changes := make(chan m.Path)
	errs := make(chan error, 1)

	go func() {
		defer close(changes)
		defer close(errs)
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&relevantOps == 0 {
					continue
				}

				if event.Has(fsnotify.Create) {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						if addErr := addRecursive(watcher, event.Name, skip); addErr != nil {
							slog.Warn("Failed to watch new directory", "path", event.Name, "error", addErr)
						}
					}
				}

				select {
				case changes <- m.Path(event.Name):
				case <-ctx.Done():
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}

				select {
				case errs <- err:
				default:
					slog.Warn("Dropped watcher error", "error", err)
				}
			}
		}
	}()

	return changes, errs, nil
}

func addRecursive(watcher *fsnotify.Watcher, root string, skip map[string]struct{}) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		if _, ok := skip[info.Name()]; ok && path != root {
			return filepath.SkipDir
		}

		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		return nil
	})
}
