// Package config provides configuration management for the themekit CLI.
package config

import "time"

// CSSConfig configures the stylesheet step.
type CSSConfig struct {
	Entry    string   `koanf:"entry"`
	OutDir   string   `koanf:"out_dir"`
	Targets  []string `koanf:"targets"`
	Minify   bool     `koanf:"minify"`
	Safelist []string `koanf:"safelist"`
}

// JSConfig configures the script bundle.
type JSConfig struct {
	SourceDir string `koanf:"source_dir"`
	OutFile   string `koanf:"out_file"`
	Target    string `koanf:"target"`
	Minify    bool   `koanf:"minify"`
}

// CopyConfig selects the files mirrored into the mount dir.
type CopyConfig struct {
	Include []string `koanf:"include"`
	Exclude []string `koanf:"exclude"`
}

// CheckConfig configures the compatibility check.
type CheckConfig struct {
	Version string   `koanf:"version"`
	Fatal   bool     `koanf:"fatal"`
	Skip    []string `koanf:"skip"`
}

// DevConfig configures watch mode.
type DevConfig struct {
	ReloadAddr string        `koanf:"reload_addr"`
	Debounce   time.Duration `koanf:"debounce"`
}

// GitHubConfig holds release credentials. They usually live in
// .themekit.local.yaml or the environment, never in themekit.yaml.
type GitHubConfig struct {
	Username string `koanf:"username"`
	Token    string `koanf:"token"`
}

// ReleaseConfig configures release publishing.
type ReleaseConfig struct {
	// Repo is "owner/name" or "name" owned by github.username.
	Repo      string `koanf:"repo"`
	Changelog bool   `koanf:"changelog"`
}

// Config holds all CLI configuration options.
type Config struct {
	ThemeDir     string        `koanf:"theme_dir"`
	MountDir     string        `koanf:"mount_dir"`
	ZipDir       string        `koanf:"zip_dir"`
	Purge        bool          `koanf:"purge"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	CSS          CSSConfig     `koanf:"css"`
	JS           JSConfig      `koanf:"js"`
	Copy         CopyConfig    `koanf:"copy"`
	Check        CheckConfig   `koanf:"check"`
	Dev          DevConfig     `koanf:"dev"`
	GitHub       GitHubConfig  `koanf:"github"`
	Release      ReleaseConfig `koanf:"release"`
}

// Default configuration values.
const (
	DefaultMountDir     = "docker-mount"
	DefaultZipDir       = "zip"
	DefaultCSSEntry     = "assets/css/screen.css"
	DefaultBuiltDir     = "assets/built"
	DefaultJSSourceDir  = "assets/js"
	DefaultJSOutFile    = "assets/built/main.js"
	DefaultJSTarget     = "es2017"
	DefaultCheckVersion = "v5"
	DefaultReloadAddr   = "localhost:35729"
	DefaultDebounce     = 100 * time.Millisecond
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

// Config file names, searched in the theme dir.
const (
	ConfigFileName      = "themekit.yaml"
	LocalConfigFileName = ".themekit.local.yaml"
)

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		MountDir:     DefaultMountDir,
		ZipDir:       DefaultZipDir,
		OutputFormat: DefaultOutput,
		CSS: CSSConfig{
			Entry:  DefaultCSSEntry,
			OutDir: DefaultBuiltDir,
			Minify: true,
		},
		JS: JSConfig{
			SourceDir: DefaultJSSourceDir,
			OutFile:   DefaultJSOutFile,
			Target:    DefaultJSTarget,
			Minify:    true,
		},
		Check: CheckConfig{Version: DefaultCheckVersion},
		Dev: DevConfig{
			ReloadAddr: DefaultReloadAddr,
			Debounce:   DefaultDebounce,
		},
		Release: ReleaseConfig{Changelog: true},
	}
}
