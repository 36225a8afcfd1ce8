package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/themekit/internal/assets"
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/release"
	"github.com/leapstack-labs/themekit/internal/task"
	"github.com/leapstack-labs/themekit/internal/testutil"
)

type console struct {
	*output.Renderer
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newConsole(mode output.Mode) *console {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &console{
		Renderer: output.NewRendererWithTTY(out, errOut, false, mode),
		out:      out,
		errOut:   errOut,
	}
}

func testConfig(dir string) Config {
	return Config{
		ThemeDir: dir,
		MountDir: filepath.Join(dir, "docker-mount"),
		ZipDir:   filepath.Join(dir, "zip"),
		CSS: assets.CSSOptions{
			Entry:   "assets/css/screen.css",
			OutDir:  "assets/built",
			Targets: assets.DefaultTargets,
			Minify:  true,
		},
		JS: assets.JSOptions{
			SourceDir: "assets/js",
			OutFile:   "assets/built/main.js",
			Target:    "es2017",
			Minify:    true,
		},
		Check:      compat.Options{CheckVersion: "v5"},
		ReloadAddr: "127.0.0.1:0",
		Debounce:   20 * time.Millisecond,
	}
}

func newPipeline(t *testing.T, cfg Config, c *console, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)
	p, err := New(cfg, c.Renderer, opts...)
	require.NoError(t, err)
	return p
}

func zipEntries(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = zr.Close() }()
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestBuildThenZip(t *testing.T) {
	dir := testutil.WriteTheme(t)
	cfg := testConfig(dir)
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, cfg, c)

	require.NoError(t, p.Runner().Run(context.Background(), "build"))

	for _, rel := range []string{
		"package.json",
		"default.hbs",
		"index.hbs",
		"post.hbs",
		"partials/post-card.hbs",
		"locales/en.json",
		"assets/built/screen.css",
		"assets/built/screen.css.map",
		"assets/built/main.js",
		"assets/built/main.js.map",
	} {
		assert.FileExists(t, filepath.Join(cfg.MountDir, rel))
	}
	assert.NoDirExists(t, filepath.Join(cfg.MountDir, "node_modules"))
	assert.NoDirExists(t, filepath.Join(cfg.MountDir, "assets/css"))
	assert.NoFileExists(t, filepath.Join(cfg.MountDir, "README.md"))

	assert.Contains(t, c.out.String(), "✓ Your theme is compatible with Ghost 5.x")
	assert.Contains(t, c.errOut.String(), "Starting 'css'...")
	assert.Contains(t, c.errOut.String(), "Finished 'check' after")
	assert.Less(t, strings.Index(c.errOut.String(), "Starting 'css'"), strings.Index(c.errOut.String(), "Starting 'copy'"))

	require.NoError(t, p.Runner().Run(context.Background(), "zip"))

	entries, err := os.ReadDir(cfg.ZipDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "starter.zip", entries[0].Name())

	names := zipEntries(t, filepath.Join(cfg.ZipDir, "starter.zip"))
	assert.Contains(t, names, "package.json")
	assert.Contains(t, names, "index.hbs")
	assert.Contains(t, names, "assets/built/screen.css")
	assert.Contains(t, names, "assets/css/screen.css")
	for _, name := range names {
		assert.False(t, strings.HasPrefix(name, "node_modules/"), name)
		assert.False(t, strings.HasPrefix(name, "docker-mount/"), name)
		assert.False(t, strings.HasPrefix(name, "zip/"), name)
	}
	assert.Contains(t, c.out.String(), "Packaged zip/starter.zip")
}

func TestBuild_FatalFindingsHalt(t *testing.T) {
	dir := testutil.WriteTheme(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "index.hbs")))
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, testConfig(dir), c)

	err := p.Runner().Run(context.Background(), "zip")
	require.Error(t, err)

	pe, ok := task.AsPluginError(err)
	require.True(t, ok, "expected a plugin error, got %v", err)
	assert.Equal(t, "compat", pe.Plugin)
	assert.ErrorIs(t, err, ErrFatalFindings)

	assert.Contains(t, c.out.String(), "Your theme has 1 error")
	assert.Contains(t, c.errOut.String(), "'check' errored after")
	assert.NoDirExists(t, filepath.Join(dir, "zip"), "archive must not run after a fatal check")
}

func TestCheck_JSON(t *testing.T) {
	dir := testutil.WriteTheme(t)
	c := newConsole(output.ModeJSON)
	p := newPipeline(t, testConfig(dir), c)

	require.NoError(t, p.Runner().Run(context.Background(), "check"))

	var got compat.Theme
	require.NoError(t, json.Unmarshal(c.out.Bytes(), &got))
	assert.Equal(t, "5.x", got.CheckedVersion)
	assert.False(t, got.Results.HasFatalErrors)
}

func TestCheck_IgnoresCopiedTemplates(t *testing.T) {
	dir := testutil.WriteTheme(t)
	testutil.WriteFiles(t, dir, map[string]string{"tag.hbs": "<a href=\"{{pageUrl 2}}\">next</a>\n"})
	cfg := testConfig(dir)
	cfg.Check.CheckVersion = "canary"
	c := newConsole(output.ModeJSON)
	p := newPipeline(t, cfg, c)

	require.NoError(t, p.Runner().Run(context.Background(), "copy", "check"))
	require.FileExists(t, filepath.Join(dir, "docker-mount", "tag.hbs"))

	var got compat.Theme
	require.NoError(t, json.Unmarshal(c.out.Bytes(), &got))
	var refs []string
	for _, f := range got.Fail["GS001-DEPR-PURL"].Failures {
		refs = append(refs, f.Ref)
	}
	assert.Equal(t, []string{"tag.hbs"}, refs)
}

func TestBuild_StepFailure(t *testing.T) {
	dir := testutil.WriteTheme(t)
	testutil.WriteFiles(t, dir, map[string]string{"assets/css/screen.css": `@import "./missing.css";`})
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, testConfig(dir), c)

	err := p.Runner().Run(context.Background(), "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "css")
	_, isPlugin := task.AsPluginError(err)
	assert.False(t, isPlugin)
	assert.NoDirExists(t, filepath.Join(dir, "docker-mount"))
}

func TestBuild_Purge(t *testing.T) {
	dir := testutil.WriteTheme(t)
	cfg := testConfig(dir)
	cfg.Purge = true
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, cfg, c)

	require.NoError(t, p.Runner().Run(context.Background(), "css"))

	css, err := os.ReadFile(filepath.Join(dir, "assets/built/screen.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), ".site")
	assert.NotContains(t, string(css), "unused-block")
	assert.NoFileExists(t, filepath.Join(dir, "assets/built/screen.css.map"))
}

type fakePublisher struct {
	mu     sync.Mutex
	drafts []release.Draft
}

func (f *fakePublisher) Publish(_ context.Context, d release.Draft) (*release.Published, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, d)
	return &release.Published{ID: 1, URL: "https://example.test/releases/1"}, nil
}

func TestRelease(t *testing.T) {
	dir := testutil.WriteTheme(t)
	cfg := testConfig(dir)
	cfg.Release = release.Options{Username: "acme", Token: "t"}
	pub := &fakePublisher{}
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, cfg, c, WithPublisher(pub))

	require.NoError(t, p.Runner().Run(context.Background(), "release"))

	require.Len(t, pub.drafts, 1)
	assert.Equal(t, "acme", pub.drafts[0].Owner)
	assert.Equal(t, "starter", pub.drafts[0].Repo)
	assert.Equal(t, "1.2.0", pub.drafts[0].Tag)
	assert.Equal(t, filepath.Join(cfg.ZipDir, "starter.zip"), pub.drafts[0].Asset)
	assert.FileExists(t, filepath.Join(dir, release.ChangelogFile))
	assert.Contains(t, c.out.String(), "Drafted release https://example.test/releases/1")
}

func TestRelease_MissingCredentials(t *testing.T) {
	dir := testutil.WriteTheme(t)
	pub := &fakePublisher{}
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, testConfig(dir), c, WithPublisher(pub))

	require.NoError(t, p.Runner().Run(context.Background(), "publish"))
	assert.Empty(t, pub.drafts)
	assert.Contains(t, c.errOut.String(), "Release skipped")
}

type alertRecorder struct {
	mu    sync.Mutex
	tasks []string
}

func (a *alertRecorder) Alert(name string, _ error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tasks = append(a.tasks, name)
}

func (a *alertRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tasks)
}

func TestDev(t *testing.T) {
	dir := testutil.WriteTheme(t)
	cfg := testConfig(dir)
	alerts := &alertRecorder{}
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, cfg, c, WithAlerter(alerts))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Runner().Run(ctx, "dev") }()

	select {
	case <-p.ReloadServer().Ready():
	case err := <-done:
		t.Fatalf("dev stopped early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("reload server did not start")
	}
	assert.FileExists(t, filepath.Join(cfg.MountDir, "assets/built/screen.css"))

	// Edits are rewritten until the watcher, once ready, picks one up.
	index := filepath.Join(dir, "index.hbs")
	mounted := filepath.Join(cfg.MountDir, "index.hbs")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(mounted)
		if err == nil && strings.Contains(string(data), "edited") {
			return true
		}
		_ = os.WriteFile(index, []byte("{{!< default}}\n<main class=\"feed\">edited</main>\n"), 0o600)
		return false
	}, 10*time.Second, 200*time.Millisecond)

	// A broken stylesheet alerts and the loop keeps running.
	screen := filepath.Join(dir, "assets/css/screen.css")
	require.Eventually(t, func() bool {
		if alerts.count() > 0 {
			return true
		}
		_ = os.WriteFile(screen, []byte(`@import "./missing.css";`), 0o600)
		return false
	}, 10*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("dev did not stop")
	}
	assert.Equal(t, "css", alerts.tasks[0])
}

func TestTerminalAlerter(t *testing.T) {
	tests := []struct {
		name  string
		isTTY bool
	}{
		{"terminal", true},
		{"pipe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			r := output.NewRendererWithTTY(out, errOut, tt.isTTY, output.ModeText)

			NewTerminalAlerter(r).Alert("css", errors.New("esbuild errors"))

			assert.Empty(t, out.String())
			assert.Contains(t, errOut.String(), "'css' failed")
			assert.Contains(t, errOut.String(), "esbuild errors")
			assert.Equal(t, tt.isTTY, strings.HasPrefix(errOut.String(), bell))
		})
	}
}

func TestRegistry(t *testing.T) {
	c := newConsole(output.ModeMarkdown)
	p := newPipeline(t, testConfig(t.TempDir()), c)

	levels, err := p.Registry().Plan("build")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"css"}, {"js"}, {"copy"}, {"check"}}, levels)

	levels, err = p.Registry().Plan("dev")
	require.NoError(t, err)
	require.Len(t, levels, 4)
	assert.ElementsMatch(t, []string{"serve", "watch-css", "watch-js", "watch-sources"}, levels[3])

	levels, err = p.Registry().Plan("release")
	require.NoError(t, err)
	assert.Equal(t, []string{"publish"}, levels[len(levels)-1])

	assert.NotEmpty(t, p.RunID())
}

func TestNew_RequiresThemeDir(t *testing.T) {
	_, err := New(Config{}, newConsole(output.ModeMarkdown).Renderer)
	assert.Error(t, err)
}
