package assets

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// DefaultContent selects the files scanned for class names in purge mode.
var DefaultContent = fsutil.Matcher{
	Include: []string{"**/*.hbs", "assets/js/**/*.js"},
	Exclude: []string{"node_modules/**", ".git/**", "assets/built/**"},
}

// CollectClasses returns every candidate class name found in the content
// files below root. Extraction is deliberately loose: any run of characters
// that may appear in a class name is a candidate.
func CollectClasses(root string, content fsutil.Matcher) (map[string]struct{}, error) {
	used := make(map[string]struct{})
	err := fsutil.Walk(root, content, func(rel string, _ fs.DirEntry) error {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel))) //nolint:gosec // G304: rel comes from walking root
		if err != nil {
			return err
		}
		addCandidates(used, string(data))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return used, nil
}

func addCandidates(used map[string]struct{}, s string) {
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return !isCandidateRune(r) }) {
		used[tok] = struct{}{}
		if trimmed := strings.Trim(tok, ".:#!"); trimmed != tok && trimmed != "" {
			used[trimmed] = struct{}{}
		}
		if strings.Contains(tok, ".") {
			for _, part := range strings.Split(tok, ".") {
				if part != "" {
					used[part] = struct{}{}
				}
			}
		}
	}
}

func isCandidateRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r > 0x7f:
		return true
	}
	return strings.ContainsRune("-_:/.%[]!@#", r)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
