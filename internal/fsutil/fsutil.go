// Package fsutil provides glob-filtered tree walking and atomic file writes.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/renameio/v2"
)

// Matcher selects slash-separated relative paths by include and exclude globs.
// An empty include list matches every path.
type Matcher struct {
	Include []string
	Exclude []string
}

// Validate reports the first malformed pattern.
func (m Matcher) Validate() error {
	for _, p := range append(append([]string{}, m.Include...), m.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Match reports whether rel is included and not excluded.
func (m Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	if m.Excluded(rel) {
		return false
	}
	if len(m.Include) == 0 {
		return true
	}
	return matchAny(m.Include, rel)
}

// Excluded reports whether rel matches an exclude pattern.
func (m Matcher) Excluded(rel string) bool {
	return matchAny(m.Exclude, filepath.ToSlash(rel))
}

// Prunes reports whether every path below dir is excluded.
func (m Matcher) Prunes(dir string) bool {
	for _, p := range m.Exclude {
		base, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(base, dir); matched {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, rel); matched {
			return true
		}
	}
	return false
}

// Walk calls fn for every regular file below root that m matches, in lexical
// order. rel is slash-separated and relative to root. Excluded directories
// are not descended into.
func Walk(root string, m Matcher, fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if m.Prunes(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !m.Match(rel) {
			return nil
		}
		return fn(rel, d)
	})
}

// WriteFile atomically replaces path with data, creating parent directories.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CopyFile atomically copies src to dst, keeping the permission bits.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(src) //nolint:gosec // G304: src comes from a walk of the theme dir
	if err != nil {
		return err
	}
	return WriteFile(dst, data, info.Mode().Perm())
}

// RelTo returns target relative to base as a slash path when target lies
// inside base, or "" otherwise.
func RelTo(base, target string) string {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return ""
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(absBase, absTarget)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}
