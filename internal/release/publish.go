package release

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/v66/github"
)

// Draft describes a release to publish.
type Draft struct {
	Owner string
	Repo  string
	Tag   string
	Name  string
	Body  string
	// Asset is the archive uploaded with the release. Empty skips the upload.
	Asset string
}

// Published is what the hosting service reports back.
type Published struct {
	ID       int64
	URL      string
	AssetURL string
}

// Publisher creates releases on a hosting service.
type Publisher interface {
	Publish(ctx context.Context, d Draft) (*Published, error)
}

// GitHubPublisher publishes draft releases through the GitHub REST API.
type GitHubPublisher struct {
	client *github.Client
}

// NewGitHubPublisher authenticates with token. A nil httpClient selects
// http.DefaultClient.
func NewGitHubPublisher(httpClient *http.Client, token string) *GitHubPublisher {
	return &GitHubPublisher{client: github.NewClient(httpClient).WithAuthToken(token)}
}

// NewGitHubPublisherWithClient wraps a configured client.
func NewGitHubPublisherWithClient(client *github.Client) *GitHubPublisher {
	return &GitHubPublisher{client: client}
}

// Publish creates the draft release and uploads the asset. Nothing is
// retried.
func (p *GitHubPublisher) Publish(ctx context.Context, d Draft) (*Published, error) {
	rel, _, err := p.client.Repositories.CreateRelease(ctx, d.Owner, d.Repo, &github.RepositoryRelease{
		TagName: github.String(d.Tag),
		Name:    github.String(d.Name),
		Body:    github.String(d.Body),
		Draft:   github.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create release %s: %w", d.Tag, err)
	}

	out := &Published{ID: rel.GetID(), URL: rel.GetHTMLURL()}
	if d.Asset == "" {
		return out, nil
	}

	f, err := os.Open(d.Asset)
	if err != nil {
		return out, fmt.Errorf("failed to open asset: %w", err)
	}
	defer func() { _ = f.Close() }()

	asset, _, err := p.client.Repositories.UploadReleaseAsset(ctx, d.Owner, d.Repo, rel.GetID(), &github.UploadOptions{
		Name:      filepath.Base(d.Asset),
		MediaType: "application/zip",
	}, f)
	if err != nil {
		return out, fmt.Errorf("failed to upload %s: %w", filepath.Base(d.Asset), err)
	}
	out.AssetURL = asset.GetBrowserDownloadURL()
	return out, nil
}
