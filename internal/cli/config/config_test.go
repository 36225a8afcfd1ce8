package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("config", "", "config file")
	flags.String("theme-dir", "", "theme directory")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.StringP("output", "o", "", "output format")
	flags.String("check-version", "", "check version")
	flags.Bool("fatal", false, "only fatal errors")
	return flags
}

// TestLoadConfig_Defaults tests loading with no config file.
func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()

	flags := newFlags()
	require.NoError(t, flags.Set("theme-dir", dir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ThemeDir)
	assert.Equal(t, filepath.Join(dir, DefaultMountDir), cfg.MountDir)
	assert.Equal(t, filepath.Join(dir, DefaultZipDir), cfg.ZipDir)
	assert.Equal(t, DefaultCSSEntry, cfg.CSS.Entry)
	assert.Equal(t, DefaultBuiltDir, cfg.CSS.OutDir)
	assert.NotEmpty(t, cfg.CSS.Targets)
	assert.True(t, cfg.CSS.Minify)
	assert.Equal(t, DefaultJSTarget, cfg.JS.Target)
	assert.Equal(t, DefaultCheckVersion, cfg.Check.Version)
	assert.Equal(t, DefaultReloadAddr, cfg.Dev.ReloadAddr)
	assert.Equal(t, DefaultDebounce, cfg.Dev.Debounce)
	assert.True(t, cfg.Release.Changelog)
	assert.False(t, cfg.Purge)
	assert.Empty(t, GetConfigFilesUsed())
}

// TestLoadConfig_File tests that themekit.yaml in the theme dir is picked up.
func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, `mount_dir: ../ghost/content/themes/starter
css:
  entry: assets/css/main.css
  safelist: [is-open, has-cover]
dev:
  debounce: 250ms
copy:
  include: ["**/*.hbs", "assets/built/**"]
release:
  repo: acme/starter
`)

	flags := newFlags()
	require.NoError(t, flags.Set("theme-dir", dir))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "../ghost/content/themes/starter"), cfg.MountDir)
	assert.Equal(t, "assets/css/main.css", cfg.CSS.Entry)
	assert.Equal(t, []string{"is-open", "has-cover"}, cfg.CSS.Safelist)
	assert.Equal(t, 250*time.Millisecond, cfg.Dev.Debounce)
	assert.Equal(t, []string{"**/*.hbs", "assets/built/**"}, cfg.Copy.Include)
	assert.Equal(t, "acme/starter", cfg.Release.Repo)
	assert.Equal(t, []string{filepath.Join(dir, ConfigFileName)}, GetConfigFilesUsed())
}

// TestLoadConfig_ExplicitFile tests that --config anchors the theme dir.
func TestLoadConfig_ExplicitFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, "custom.yaml", "zip_dir: dist\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ThemeDir)
	assert.Equal(t, filepath.Join(dir, "dist"), cfg.ZipDir)

	ResetConfig()
	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

// TestLoadConfig_LocalCredentials tests that the local file overrides the shared one.
func TestLoadConfig_LocalCredentials(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	writeConfig(t, dir, ConfigFileName, "github:\n  username: shared\n")
	writeConfig(t, dir, LocalConfigFileName, "github:\n  username: me\n  token: from_local\n")

	cfg, err := LoadConfig(filepath.Join(dir, ConfigFileName), nil)
	require.NoError(t, err)

	assert.Equal(t, "me", cfg.GitHub.Username)
	assert.Equal(t, "from_local", cfg.GitHub.Token)
	assert.Len(t, GetConfigFilesUsed(), 2)
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config files.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, ConfigFileName, "zip_dir: from_file\ngithub:\n  token: from_file\n")

	t.Setenv("THEMEKIT_ZIP_DIR", "from_env")
	t.Setenv("THEMEKIT_GITHUB__TOKEN", "from_env")
	t.Setenv("THEMEKIT_CSS__TARGETS", "chrome100,safari15")
	t.Setenv("THEMEKIT_DEV__DEBOUNCE", "300ms")
	t.Setenv("THEMEKIT_CSS__MINIFY", "false")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "from_env"), cfg.ZipDir, "env var should override config file")
	assert.Equal(t, "from_env", cfg.GitHub.Token)
	assert.Equal(t, []string{"chrome100", "safari15"}, cfg.CSS.Targets)
	assert.Equal(t, 300*time.Millisecond, cfg.Dev.Debounce)
	assert.False(t, cfg.CSS.Minify)
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, ConfigFileName, "check:\n  version: v4\n")

	t.Setenv("THEMEKIT_CHECK__VERSION", "v5")

	flags := newFlags()
	require.NoError(t, flags.Set("check-version", "canary"))
	require.NoError(t, flags.Set("fatal", "true"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "canary", cfg.Check.Version, "flag value should override config file and env var")
	assert.True(t, cfg.Check.Fatal)
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, ConfigFileName, "check:\n  version: v4\n")

	t.Setenv("THEMEKIT_CHECK__VERSION", "v5")

	cfg, err := LoadConfig(path, newFlags())
	require.NoError(t, err)

	assert.Equal(t, "v5", cfg.Check.Version, "unset flag should not override env var")
}

// TestLoadConfig_Purge tests the production purge toggles.
func TestLoadConfig_Purge(t *testing.T) {
	tests := []struct {
		name    string
		nodeEnv string
		purge   string
		want    bool
	}{
		{"off by default", "", "", false},
		{"production node env", "production", "", true},
		{"development node env", "development", "", false},
		{"explicit purge", "", "true", true},
		{"explicit opt out in production", "production", "false", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			t.Setenv("NODE_ENV", tt.nodeEnv)
			if tt.purge != "" {
				t.Setenv("THEMEKIT_PURGE", tt.purge)
			}
			flags := newFlags()
			require.NoError(t, flags.Set("theme-dir", t.TempDir()))

			cfg, err := LoadConfig("", flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Purge)
		})
	}
}

// TestLoadConfig_Invalid tests that invalid values are reported.
func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown check version", "check:\n  version: v9\n", "check.version"},
		{"bad browser target", "css:\n  targets: [netscape4]\n", "css.targets"},
		{"bad js target", "js:\n  target: es3\n", "js.target"},
		{"bad output", "output: html\n", "invalid output format"},
		{"bad glob", "copy:\n  include: [\"[oops\"]\n", "copy"},
		{"mount dir is theme dir", "mount_dir: .\n", "mount_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			dir := t.TempDir()
			path := writeConfig(t, dir, ConfigFileName, tt.content)

			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

// TestFindThemeRootUpward tests the upward config search.
func TestFindThemeRootUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, ConfigFileName, "")
	nested := filepath.Join(root, "assets", "css")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	assert.Equal(t, root, findThemeRootUpward(nested))
	assert.Empty(t, findThemeRootUpward(t.TempDir()))
}

// TestConfig_ValidateThemeDir tests the theme dir existence check.
func TestConfig_ValidateThemeDir(t *testing.T) {
	cfg := Default()
	cfg.ThemeDir = t.TempDir()
	assert.NoError(t, cfg.ValidateThemeDir())

	cfg.ThemeDir = filepath.Join(cfg.ThemeDir, "missing")
	err := cfg.ValidateThemeDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--theme-dir")
}

// TestGetConfig tests the context lookup and its fallback.
func TestGetConfig(t *testing.T) {
	cfg := Default()
	cfg.ThemeDir = "/themes/starter"
	ctx := context.WithValue(context.Background(), ConfigKey(), cfg)
	assert.Same(t, cfg, GetConfig(ctx))

	fallback := GetConfig(context.Background())
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, fallback.ThemeDir)
	assert.Equal(t, filepath.Join(wd, DefaultMountDir), fallback.MountDir)
	assert.Equal(t, DefaultCheckVersion, fallback.Check.Version)

	assert.NotNil(t, GetLogger(context.Background()))
}
