package domain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"vistet.dev/pkg/devtask/internal/adapter"
	m "vistet.dev/pkg/devtask/internal/model"
)

// Default comment heuristics: a comment marker glued to a letter at the start
// of a line ("#print(x)") looks like disabled code; "# note" does not.
const (
	DefaultCommentPattern    = `^\s*#[A-Za-z]`
	DefaultCommentMaxMatches = 10
)

// DefaultCommentExempt lists tool directives that look like glued comments
// but are not commented-out code.
var DefaultCommentExempt = []string{`^\s*#\s*(noqa|type:|pragma|fmt:|isort:)`}

// CommentRules configures the commented-out code heuristic.
type CommentRules struct {
	Pattern    string   `mapstructure:"pattern" yaml:"pattern"`
	Exempt     []string `mapstructure:"exempt" yaml:"exempt"`
	MaxMatches int      `mapstructure:"max_matches" yaml:"max_matches"`
}

// DefaultCommentRules returns the default heuristic.
func DefaultCommentRules() CommentRules {
	return CommentRules{
		Pattern:    DefaultCommentPattern,
		Exempt:     append([]string(nil), DefaultCommentExempt...),
		MaxMatches: DefaultCommentMaxMatches,
	}
}

type commentScanner struct {
	pattern *regexp.Regexp
	exempt  []*regexp.Regexp
	max     int
}

func newCommentScanner(rules CommentRules) (*commentScanner, error) {
	if rules.Pattern == "" {
		rules.Pattern = DefaultCommentPattern
	}

	pattern, err := regexp.Compile(rules.Pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid comment pattern %q: %w", rules.Pattern, err)
	}

	exempt := make([]*regexp.Regexp, 0, len(rules.Exempt))

	for _, raw := range rules.Exempt {
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid comment exempt pattern %q: %w", raw, err)
		}

		exempt = append(exempt, re)
	}

	limit := rules.MaxMatches
	if limit <= 0 {
		limit = DefaultCommentMaxMatches
	}

	return &commentScanner{pattern: pattern, exempt: exempt, max: limit}, nil
}

// matchLine reports whether a single line looks like commented-out code.
func (s *commentScanner) matchLine(line string) bool {
	if !s.pattern.MatchString(line) {
		return false
	}

	for _, re := range s.exempt {
		if re.MatchString(line) {
			return false
		}
	}

	return true
}

// scanContent returns at most limit matches found in content. Lines have no
// length limit.
func (s *commentScanner) scanContent(path m.Path, content []byte, limit int) []m.CommentMatch {
	var matches []m.CommentMatch

	for i, raw := range bytes.Split(content, []byte("\n")) {
		line := string(bytes.TrimSuffix(raw, []byte("\r")))
		if !s.matchLine(line) {
			continue
		}

		matches = append(matches, m.CommentMatch{
			Path: path,
			Line: i + 1,
			Text: strings.TrimSpace(line),
		})

		if len(matches) >= limit {
			break
		}
	}

	return matches
}

// commentPass scans sources and keeps the first max matches in path order.
type commentPass struct {
	fs       adapter.SourceFSAdapter
	scanner  *commentScanner
	parallel int
}

func (p commentPass) run(ctx context.Context, sources []m.SourceFile) (m.CommentReport, error) {
	// One extra match per file is enough to know whether the total exceeds max.
	perFile := p.scanner.max + 1

	results, err := forEachSource(ctx, sources, p.parallel, func(ctx context.Context, source m.SourceFile) ([]m.CommentMatch, error) {
		content, err := p.fs.ReadFile(ctx, source.Path)
		if err != nil {
			slog.Warn("Skipping unreadable file", "path", source.Path, "error", err)
			return nil, nil
		}

		display := source.ShortPath
		if display == "" {
			display = source.Path
		}

		return p.scanner.scanContent(display, content, perFile), nil
	})
	if err != nil {
		return m.CommentReport{}, err
	}

	report := m.CommentReport{FilesScanned: len(sources)}

	for _, matches := range results {
		for _, match := range matches {
			if len(report.Matches) == p.scanner.max {
				report.Truncated = true
				return report, nil
			}

			report.Matches = append(report.Matches, match)
		}
	}

	return report, nil
}
