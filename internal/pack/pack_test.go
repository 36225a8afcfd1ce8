package pack

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/themekit/internal/testutil"
)

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		assert.Equal(t, zip.Deflate, f.Method, f.Name)
	}
	sort.Strings(names)
	return names
}

func TestArchive(t *testing.T) {
	dir := testutil.WriteTheme(t)
	testutil.WriteFiles(t, dir, map[string]string{
		".env":                    "GITHUB_TOKEN=secret",
		".themekit.local.yaml":    "github:\n  token: secret\n",
		"docker-mount/index.hbs":  "copy",
		"assets/built/screen.css": ".site{margin:0}",
	})
	zipDir := filepath.Join(dir, "zip")

	res, err := Archive(context.Background(), Options{
		ThemeDir: dir,
		ZipDir:   zipDir,
		Name:     "starter.zip",
	}, filepath.Join(dir, "docker-mount"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(zipDir, "starter.zip"), res.Path)
	info, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), res.Size)

	names := archiveNames(t, res.Path)
	assert.Len(t, names, res.Files)
	assert.Contains(t, names, "package.json")
	assert.Contains(t, names, "index.hbs")
	assert.Contains(t, names, "assets/css/screen.css")
	assert.Contains(t, names, "assets/built/screen.css")
	for _, name := range names {
		assert.NotRegexp(t, `^(node_modules|docker-mount|zip)/`, name)
		assert.NotEqual(t, ".env", name)
		assert.NotEqual(t, ".themekit.local.yaml", name)
	}

	entries, err := os.ReadDir(zipDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the archive may remain in the zip dir")
}

func TestArchive_ReplacesPrevious(t *testing.T) {
	dir := testutil.WriteTheme(t)
	opts := Options{ThemeDir: dir, ZipDir: filepath.Join(dir, "zip"), Name: "starter.zip"}

	_, err := Archive(context.Background(), opts)
	require.NoError(t, err)
	res, err := Archive(context.Background(), opts)
	require.NoError(t, err)

	assert.NotContains(t, archiveNames(t, res.Path), "zip/starter.zip")
}

func TestArchive_Errors(t *testing.T) {
	_, err := Archive(context.Background(), Options{ThemeDir: t.TempDir(), ZipDir: t.TempDir()})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	zipDir := t.TempDir()
	_, err = Archive(ctx, Options{ThemeDir: testutil.WriteTheme(t), ZipDir: zipDir, Name: "x.zip"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(zipDir, "x.zip"))
}
