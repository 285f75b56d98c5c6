// Package adapter contains infrastructure adapters for the devtask CLI.
package adapter

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	m "vistet.dev/pkg/devtask/internal/model"
)

// recursiveSuffix marks a Go-style recursive path pattern (./...).
const recursiveSuffix = "/..."

// SourceFilter narrows the files returned by SourceFSAdapter.Get.
type SourceFilter struct {
	// Extensions lists accepted file extensions including the dot (".py").
	// An empty list accepts every file.
	Extensions []string
	// SkipDirs lists directory base names that are never descended into.
	SkipDirs []string
	// Exclude holds regular expressions matched against the slash-separated path.
	Exclude []string
}

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when processing the user's source tree. It hides direct `os`
// access so the runner logic can be tested without touching the disk.
//
//nolint:interfacebloat // A richer interface keeps domain logic decoupled from os/fs.
type SourceFSAdapter interface {
	// Get resolves targets into the sorted, de-duplicated list of source files.
	Get(ctx context.Context, targets []m.Path, filter SourceFilter) ([]m.SourceFile, error)

	// Walk traverses the provided root path. When recursive is false the
	// implementation should limit itself to the root directory (no sub-dirs).
	Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error

	// ReadFile loads a file from disk and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// WriteFile replaces the contents of a file, keeping its permissions.
	WriteFile(ctx context.Context, path m.Path, content []byte) error

	// HashFile returns a stable fingerprint (SHA-256) for the file at path.
	HashFile(ctx context.Context, path m.Path) (string, error)

	// FileInfo returns metadata for a path.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// RelPath returns the relative path from base to target.
	RelPath(ctx context.Context, base, target m.Path) (m.Path, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the standard-library type directly into the
// domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter implements SourceFSAdapter on top of the local disk.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Get resolves directories (recursively), dir/... patterns and single files.
func (a *LocalSourceFSAdapter) Get(ctx context.Context, targets []m.Path, filter SourceFilter) ([]m.SourceFile, error) {
	excludes, err := compileExcludes(filter.Exclude)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(filter.SkipDirs))
	for _, dir := range filter.SkipDirs {
		skip[dir] = struct{}{}
	}

	seen := make(map[m.Path]struct{})

	var files []m.SourceFile

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		root := strings.TrimSuffix(string(target), recursiveSuffix)
		if root == "" || root == "..." {
			root = "."
		}

		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", target, err)
		}

		if !info.IsDir() {
			if isExcluded(root, excludes) {
				continue
			}

			files = a.appendSource(ctx, files, seen, root)

			continue
		}

		err = a.Walk(ctx, m.Path(root), true, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return skipUnreadable(path, info, err)
			}

			if info.IsDir() {
				if _, ok := skip[info.Name()]; ok && path != root {
					return filepath.SkipDir
				}

				return nil
			}

			if !info.Mode().IsRegular() || !hasExtension(path, filter.Extensions) || isExcluded(path, excludes) {
				return nil
			}

			files = a.appendSource(ctx, files, seen, path)

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// skipUnreadable logs a path the walk could not read and moves past it.
func skipUnreadable(path string, info os.FileInfo, err error) error {
	slog.Warn("Skipping unreadable path", "path", path, "error", err)

	if info != nil && info.IsDir() {
		return filepath.SkipDir
	}

	return nil
}

func (a *LocalSourceFSAdapter) appendSource(ctx context.Context, files []m.SourceFile, seen map[m.Path]struct{}, path string) []m.SourceFile {
	clean := m.Path(filepath.Clean(path))
	if _, ok := seen[clean]; ok {
		return files
	}

	seen[clean] = struct{}{}

	hash, err := a.HashFile(ctx, clean)
	if err != nil {
		slog.Warn("Failed to hash source file", "path", clean, "error", err)
	}

	return append(files, m.SourceFile{
		Path:      clean,
		ShortPath: shortPath(clean),
		Hash:      hash,
	})
}

// Matcher returns a predicate that reports whether a changed path would be
// selected by this filter.
func (f SourceFilter) Matcher() (func(path string) bool, error) {
	excludes, err := compileExcludes(f.Exclude)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]struct{}, len(f.SkipDirs))
	for _, dir := range f.SkipDirs {
		skip[dir] = struct{}{}
	}

	return func(path string) bool {
		for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(path)), "/") {
			if _, ok := skip[part]; ok {
				return false
			}
		}

		return hasExtension(path, f.Extensions) && !isExcluded(path, excludes)
	}, nil
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))

	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}

		compiled = append(compiled, re)
	}

	return compiled, nil
}

func isExcluded(path string, excludes []*regexp.Regexp) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range excludes {
		if re.MatchString(slashed) {
			return true
		}
	}

	return false
}

func hasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}

	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}

	return false
}

func shortPath(path m.Path) m.Path {
	if !filepath.IsAbs(string(path)) {
		return path
	}

	wd, err := os.Getwd()
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(wd, string(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}

	return m.Path(rel)
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return filepath.Walk(rootStr, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// ReadFile loads file contents from disk.
func (a *LocalSourceFSAdapter) ReadFile(_ context.Context, path m.Path) ([]byte, error) {
	// #nosec G304 - path comes from the resolved source list
	return os.ReadFile(string(path))
}

// WriteFile writes content to an existing file, preserving its mode.
func (a *LocalSourceFSAdapter) WriteFile(_ context.Context, path m.Path, content []byte) error {
	perm := os.FileMode(0o644)
	if info, err := os.Stat(string(path)); err == nil {
		perm = info.Mode().Perm()
	}

	return os.WriteFile(string(path), content, perm)
}

// HashFile returns the SHA-256 hash of the file at the provided path.
func (a *LocalSourceFSAdapter) HashFile(_ context.Context, path m.Path) (string, error) {
	// #nosec G304 - path comes from the resolved source list
	f, err := os.Open(string(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(_ context.Context, path m.Path) (os.FileInfo, error) {
	return os.Stat(string(path))
}

// RelPath returns the relative path from base to target.
func (a *LocalSourceFSAdapter) RelPath(_ context.Context, base, target m.Path) (m.Path, error) {
	rel, err := filepath.Rel(string(base), string(target))
	if err != nil {
		return "", err
	}

	return m.Path(rel), nil
}
