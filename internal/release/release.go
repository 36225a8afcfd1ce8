package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/themekit/internal/theme"
)

// Options configures a release.
type Options struct {
	ThemeDir string
	// Archive is the packaged theme uploaded as the release asset.
	Archive string
	// Repo is "owner/name" or just "name", in which case Username owns it.
	// Empty selects the manifest name.
	Repo     string
	Username string
	Token    string
	// SkipChangelog leaves CHANGELOG.md untouched.
	SkipChangelog bool
	Logger        *slog.Logger
}

// Run writes the changelog for the manifest version and publishes a draft
// release through pub. A nil pub selects GitHub. Missing preconditions are
// logged and Run returns nil, nil.
func Run(ctx context.Context, opts Options, pub Publisher) (*Published, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m, err := theme.LoadManifest(opts.ThemeDir)
	if err != nil {
		if errors.Is(err, theme.ErrManifestNotFound) {
			logger.Warn("skipping release: no package.json", "dir", opts.ThemeDir)
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(m.Version) == "" {
		logger.Warn("skipping release: package.json has no version")
		return nil, nil
	}

	owner, repo := splitRepo(opts.Repo, opts.Username, m.Name)
	if opts.Token == "" || owner == "" {
		logger.Warn("skipping release: GitHub credentials missing",
			"hint", "set github.username and github.token in .themekit.local.yaml or THEMEKIT_GITHUB__TOKEN")
		return nil, nil
	}

	entries, err := Changelog(opts.ThemeDir, m.Version)
	if err != nil {
		logger.Warn("changelog unavailable", "error", err)
	}
	if !opts.SkipChangelog {
		written, err := AppendChangelog(opts.ThemeDir, m.Version, entries)
		if err != nil {
			return nil, err
		}
		if written {
			logger.Info("changelog updated", "version", m.Version, "entries", len(entries))
		}
	}

	if pub == nil {
		pub = NewGitHubPublisher(nil, opts.Token)
	}
	out, err := pub.Publish(ctx, Draft{
		Owner: owner,
		Repo:  repo,
		Tag:   m.Version,
		Name:  m.Version,
		Body:  FormatEntries(entries),
		Asset: opts.Archive,
	})
	if err != nil {
		return out, fmt.Errorf("failed to publish release: %w", err)
	}
	logger.Info("release drafted", "repo", owner+"/"+repo, "tag", m.Version, "url", out.URL)
	return out, nil
}

func splitRepo(repo, username, fallback string) (owner, name string) {
	if o, n, ok := strings.Cut(repo, "/"); ok {
		return o, n
	}
	if repo == "" {
		repo = fallback
	}
	return username, repo
}
