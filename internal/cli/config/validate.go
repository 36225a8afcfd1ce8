package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/themekit/internal/assets"
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/fsutil"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		errs = append(errs, err)
	}
	if c.CSS.Entry == "" {
		errs = append(errs, errors.New("css.entry is required"))
	}
	if _, err := assets.ParseEngines(c.CSS.Targets); err != nil {
		errs = append(errs, fmt.Errorf("css.targets: %w", err))
	}
	if _, err := assets.ParseTarget(c.JS.Target); err != nil {
		errs = append(errs, fmt.Errorf("js.target: %w", err))
	}
	if _, _, err := compat.DefaultRules().ResolveVersion(c.Check.Version); err != nil {
		errs = append(errs, fmt.Errorf("check.version: %w", err))
	}
	if err := (fsutil.Matcher{Include: c.Copy.Include, Exclude: c.Copy.Exclude}).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("copy: %w", err))
	}
	if c.Dev.Debounce < 0 {
		errs = append(errs, fmt.Errorf("dev.debounce must not be negative, got %s", c.Dev.Debounce))
	}
	if c.ThemeDir != "" && c.MountDir != "" && filepath.Clean(c.MountDir) == filepath.Clean(c.ThemeDir) {
		errs = append(errs, errors.New("mount_dir must differ from the theme dir"))
	}

	return errors.Join(errs...)
}

// ValidateThemeDir checks that the theme directory exists.
func (c *Config) ValidateThemeDir() error {
	info, err := os.Stat(c.ThemeDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("theme directory does not exist: %s\nHint: run inside a theme or use --theme-dir to point at one", c.ThemeDir)
	}
	return nil
}
