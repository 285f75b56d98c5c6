package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"vistet.dev/pkg/devtask/internal/adapter"
	m "vistet.dev/pkg/devtask/internal/model"
)

// trailingWhitespace matches the POSIX [[:space:]] class minus the newline.
const trailingWhitespace = " \t\r\v\f"

// StripTrailingWhitespace removes trailing whitespace from every line. Line
// order, line content and the presence of a final newline are preserved.
func StripTrailingWhitespace(content []byte) []byte {
	lines := bytes.Split(content, []byte("\n"))
	for i, line := range lines {
		lines[i] = bytes.TrimRight(line, trailingWhitespace)
	}

	return bytes.Join(lines, []byte("\n"))
}

// CountTrailingWhitespaceLines returns how many lines end in whitespace.
func CountTrailingWhitespaceLines(content []byte) int {
	count := 0

	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(line) > 0 && strings.ContainsRune(trailingWhitespace, rune(line[len(line)-1])) {
			count++
		}
	}

	return count
}

type whitespaceResult struct {
	path    m.Path
	changed bool
	diff    string
}

// whitespacePass rewrites every source file that has trailing whitespace.
type whitespacePass struct {
	fs       adapter.SourceFSAdapter
	parallel int
	withDiff bool
}

func (p whitespacePass) run(ctx context.Context, sources []m.SourceFile) ([]m.Path, string, error) {
	results, err := forEachSource(ctx, sources, p.parallel, p.stripFile)
	if err != nil {
		return nil, "", err
	}

	var (
		changed []m.Path
		diff    strings.Builder
	)

	for _, result := range results {
		if !result.changed {
			continue
		}

		changed = append(changed, result.path)
		diff.WriteString(result.diff)
	}

	return changed, diff.String(), nil
}

func (p whitespacePass) stripFile(ctx context.Context, source m.SourceFile) (whitespaceResult, error) {
	original, err := p.fs.ReadFile(ctx, source.Path)
	if err != nil {
		return whitespaceResult{}, fmt.Errorf("read %s: %w", source.Path, err)
	}

	stripped := StripTrailingWhitespace(original)
	if bytes.Equal(original, stripped) {
		return whitespaceResult{path: source.Path}, nil
	}

	if err := p.fs.WriteFile(ctx, source.Path, stripped); err != nil {
		slog.Error("Failed to write stripped file", "path", source.Path, "error", err)
		return whitespaceResult{}, fmt.Errorf("write %s: %w", source.Path, err)
	}

	slog.Debug("Stripped trailing whitespace", "path", source.Path)

	result := whitespaceResult{path: source.Path, changed: true}
	if p.withDiff {
		result.diff = unifiedDiff(source, original, stripped)
	}

	return result, nil
}

func unifiedDiff(source m.SourceFile, before, after []byte) string {
	name := string(source.ShortPath)
	if name == "" {
		name = string(source.Path)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  1,
	})
	if err != nil {
		slog.Warn("Failed to render diff", "path", source.Path, "error", err)
		return ""
	}

	return diff
}
