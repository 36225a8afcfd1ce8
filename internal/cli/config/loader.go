package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/themekit/internal/assets"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// EnvPrefix prefixes environment overrides. A double underscore nests:
// THEMEKIT_GITHUB__TOKEN sets github.token.
const EnvPrefix = "THEMEKIT_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var k = koanf.New(".")

var configFilesUsed []string

// flagKeys maps flag names onto config keys where they differ from the
// kebab-to-snake default. An empty key leaves the flag out of the config.
var flagKeys = map[string]string{
	"config":        "",
	"check-version": "check.version",
	"fatal":         "check.fatal",
	"reload-addr":   "dev.reload_addr",
	"repo":          "release.repo",
}

func configExistsIn(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// findThemeRootUpward searches upward from startDir for a themekit config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findThemeRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferThemeDir determines the theme root.
// Priority:
//  1. Explicit --theme-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for themekit.yaml
//  4. Current working directory
func inferThemeDir(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Lookup("theme-dir") != nil && flags.Changed("theme-dir") {
		if dir, _ := flags.GetString("theme-dir"); dir != "" {
			return absOrClean(dir)
		}
	}

	if cfgFile != "" {
		return filepath.Dir(absOrClean(cfgFile))
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	if root := findThemeRootUpward(cwd); root != "" {
		return root
	}
	return cwd
}

func absOrClean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFilesUsed = nil
}

func defaults() map[string]any {
	d := Default()
	return map[string]any{
		"mount_dir":         d.MountDir,
		"zip_dir":           d.ZipDir,
		"purge":             false,
		"verbose":           false,
		"output":            d.OutputFormat,
		"css.entry":         d.CSS.Entry,
		"css.out_dir":       d.CSS.OutDir,
		"css.targets":       assets.DefaultTargets,
		"css.minify":        d.CSS.Minify,
		"js.source_dir":     d.JS.SourceDir,
		"js.out_file":       d.JS.OutFile,
		"js.target":         d.JS.Target,
		"js.minify":         d.JS.Minify,
		"check.version":     d.Check.Version,
		"check.fatal":       false,
		"dev.reload_addr":   d.Dev.ReloadAddr,
		"dev.debounce":      d.Dev.Debounce,
		"release.changelog": d.Release.Changelog,
	}
}

// LoadConfig loads configuration from defaults, themekit.yaml, the local
// credentials file, the environment and flags.
// Precedence (highest to lowest): flags > env vars > local file > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")
	configFilesUsed = nil

	themeDir := inferThemeDir(cfgFile, flags)

	// 1. Load defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, then the uncommitted local file holding credentials
	if cfgFile == "" {
		if candidate := filepath.Join(themeDir, ConfigFileName); fileExists(candidate) {
			cfgFile = candidate
		}
	} else if !fileExists(cfgFile) {
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}
	for _, path := range []string{cfgFile, filepath.Join(themeDir, LocalConfigFileName)} {
		if path == "" || !fileExists(path) {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		configFilesUsed = append(configFilesUsed, path)
	}

	// 3. Production builds purge unless THEMEKIT_PURGE says otherwise
	if os.Getenv("NODE_ENV") == "production" {
		if err := k.Load(confmap.Provider(map[string]any{"purge": true}, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}

	// 4. Load environment variables (THEMEKIT_ prefix)
	// Transform: THEMEKIT_GITHUB__TOKEN -> github.token
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s, v string) (string, interface{}) {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", "."), v
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority - overrides env vars and config files)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal into Config struct
	// Env values arrive as strings: "250ms" decodes to a duration and
	// "chrome100,safari15" to a list.
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 7. Anchor output directories at the theme dir
	cfg.ThemeDir = themeDir
	cfg.MountDir = resolvePathRelativeTo(cfg.MountDir, themeDir)
	cfg.ZipDir = resolvePathRelativeTo(cfg.ZipDir, themeDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GetConfigFilesUsed returns the config files loaded, lowest precedence first.
func GetConfigFilesUsed() []string {
	return append([]string(nil), configFilesUsed...)
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context, falling back to
// the defaults anchored at the working directory.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	cfg := Default()
	cfg.ThemeDir = absOrClean(".")
	cfg.MountDir = resolvePathRelativeTo(cfg.MountDir, cfg.ThemeDir)
	cfg.ZipDir = resolvePathRelativeTo(cfg.ZipDir, cfg.ThemeDir)
	return cfg
}
