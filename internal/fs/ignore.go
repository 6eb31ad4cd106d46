package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-repository ignore file, read from the repo root.
const IgnoreFileName = ".metafileignore"

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks repository paths against a set of ignore patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the full path relative to the repository root.
// A path is ignored when it or any of its parent directories matches, so
// ignoring a directory drops everything below it.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped. A leading or
// trailing '/' is dropped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		raw = strings.Trim(raw, "/")
		if raw == "" {
			continue
		}
		patterns = append(patterns, ignorePattern{
			pattern:   raw,
			matchPath: strings.Contains(raw, "/"),
		})
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Len returns the number of usable patterns.
func (m *IgnoreMatcher) Len() int { return len(m.patterns) }

// Match reports whether the given relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	// Normalize to forward slashes for consistent matching.
	p := filepath.ToSlash(filepath.Clean(relativePath))
	for p != "." && p != "/" {
		if m.matchOne(p) {
			return true
		}
		p = path.Dir(p)
	}
	return false
}

func (m *IgnoreMatcher) matchOne(p string) bool {
	basename := path.Base(p)
	for _, ip := range m.patterns {
		var matched bool
		var err error
		if ip.matchPath {
			matched, err = path.Match(ip.pattern, p)
		} else {
			matched, err = path.Match(ip.pattern, basename)
		}
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// Filter returns the paths that are not ignored, keeping their order.
func (m *IgnoreMatcher) Filter(paths []string) []string {
	if len(m.patterns) == 0 {
		return paths
	}
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if !m.Match(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
