package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/themekit/internal/testutil"
)

func TestLoadManifest(t *testing.T) {
	dir := testutil.WriteTheme(t)

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "starter", m.Name)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, ">=5.0.0", m.Engines["ghost"])
	assert.InDelta(t, 10, m.Config["posts_per_page"], 0)
	assert.Equal(t, "starter.zip", m.ArchiveName())
	assert.True(t, m.HasValidVersion())
}

func TestLoadManifest_Missing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	assert.ErrorIs(t, err, ErrManifestNotFound)
}

func TestLoadManifest_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{"), 0o600))

	_, err := LoadManifest(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrManifestNotFound)
}

func TestManifest_HasValidVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"1.0.0", true},
		{"v2.10.3", true},
		{"3.0.0-beta.1", true},
		{"1.2.3+build.7", true},
		{"", false},
		{"1.0", false},
		{"1", false},
		{"01.2.3", false},
		{"1.02.3", false},
		{"vv1.2.3", false},
		{"latest", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			m := &Manifest{Version: tt.version}
			assert.Equal(t, tt.want, m.HasValidVersion())
		})
	}
}

func TestManifest_ArchiveNameDefault(t *testing.T) {
	assert.Equal(t, "theme.zip", (&Manifest{}).ArchiveName())
}
