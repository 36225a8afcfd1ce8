// Package release writes the changelog and publishes theme releases.
package release

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/google/renameio/v2"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ChangelogFile is the changelog kept at the theme root.
const ChangelogFile = "CHANGELOG.md"

// Entry is one changelog line.
type Entry struct {
	Subject string
	Hash    string
}

func (e Entry) String() string {
	return fmt.Sprintf("- %s (%s)", e.Subject, e.Hash)
}

// Changelog collects the commits since the previous release. The walk
// starts at HEAD and stops at the first commit carrying a tag other than
// version. Merge commits are skipped.
func Changelog(dir, version string) ([]Entry, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	tagged, err := taggedCommits(repo)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(c *object.Commit) error {
		for _, tag := range tagged[c.Hash] {
			if !isVersionTag(tag, version) {
				return storer.ErrStop
			}
		}
		if c.NumParents() > 1 {
			return nil
		}
		subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
		entries = append(entries, Entry{
			Subject: strings.TrimSpace(subject),
			Hash:    c.Hash.String()[:7],
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk commits: %w", err)
	}
	return entries, nil
}

// taggedCommits maps commit hashes to the tag names pointing at them.
// Annotated tags are peeled to their commit.
func taggedCommits(repo *git.Repository) (map[plumbing.Hash][]string, error) {
	refs, err := repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer refs.Close()

	tagged := make(map[plumbing.Hash][]string)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		hash := ref.Hash()
		tag, err := repo.TagObject(hash)
		switch {
		case err == nil:
			commit, err := tag.Commit()
			if err != nil {
				// Tags of trees or blobs never bound a commit range.
				return nil
			}
			hash = commit.Hash
		case !errors.Is(err, plumbing.ErrObjectNotFound):
			return err
		}
		tagged[hash] = append(tagged[hash], ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tags: %w", err)
	}
	return tagged, nil
}

func isVersionTag(tag, version string) bool {
	return strings.TrimPrefix(tag, "v") == strings.TrimPrefix(version, "v")
}

// FormatEntries renders entries one per line.
func FormatEntries(entries []Entry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// AppendChangelog adds a "## version" section to CHANGELOG.md in dir.
// It reports false without writing when the section already exists.
func AppendChangelog(dir, version string, entries []Entry) (bool, error) {
	path := filepath.Join(dir, ChangelogFile)
	existing, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the theme dir
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read changelog: %w", err)
	}
	if hasSection(existing, version) {
		return false, nil
	}

	var b bytes.Buffer
	if len(existing) == 0 {
		b.WriteString("# Changelog\n")
	} else {
		b.Write(existing)
		if !bytes.HasSuffix(existing, []byte("\n")) {
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "\n## %s\n\n", version)
	if len(entries) == 0 {
		b.WriteString("- No changes\n")
	} else {
		b.WriteString(FormatEntries(entries))
	}

	if err := renameio.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return false, fmt.Errorf("failed to write changelog: %w", err)
	}
	return true, nil
}

// hasSection reports whether source has a level-two heading for version.
func hasSection(source []byte, version string) bool {
	if len(source) == 0 {
		return false
	}
	root := goldmark.New().Parser().Parse(text.NewReader(source))

	found := false
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		if h.Level == 2 && isVersionTag(headingText(h, source), version) {
			found = true
			return gmast.WalkStop, nil
		}
		return gmast.WalkSkipChildren, nil
	})
	return found
}

func headingText(h *gmast.Heading, source []byte) string {
	var b bytes.Buffer
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}
