package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/assets"
	"github.com/leapstack-labs/themekit/internal/cli/config"
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
	"github.com/leapstack-labs/themekit/internal/pipeline"
	"github.com/leapstack-labs/themekit/internal/release"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Pipeline *pipeline.Pipeline
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a pipeline built from the
// loaded config. mutate, when set, adjusts the config first.
func NewCommandContext(cmd *cobra.Command, mutate func(*config.Config)) (*CommandContext, error) {
	cfg := *config.GetConfig(cmd.Context())
	if mutate != nil {
		mutate(&cfg)
	}
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	p, err := pipeline.New(PipelineConfig(&cfg), r, pipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      &cfg,
		Logger:   logger,
		Pipeline: p,
		Renderer: r,
	}, nil
}

// Run runs the named tasks in order.
func (c *CommandContext) Run(ctx context.Context, names ...string) error {
	return c.Pipeline.Runner().Run(ctx, names...)
}

// PipelineConfig maps the CLI config onto the pipeline's settings.
func PipelineConfig(cfg *config.Config) pipeline.Config {
	targets := cfg.CSS.Targets
	if len(targets) == 0 {
		targets = assets.DefaultTargets
	}
	return pipeline.Config{
		ThemeDir: cfg.ThemeDir,
		MountDir: cfg.MountDir,
		ZipDir:   cfg.ZipDir,
		Purge:    cfg.Purge,
		CSS: assets.CSSOptions{
			Entry:    cfg.CSS.Entry,
			OutDir:   cfg.CSS.OutDir,
			Targets:  targets,
			Minify:   cfg.CSS.Minify,
			Safelist: cfg.CSS.Safelist,
		},
		JS: assets.JSOptions{
			SourceDir: cfg.JS.SourceDir,
			OutFile:   cfg.JS.OutFile,
			Target:    cfg.JS.Target,
			Targets:   targets,
			Minify:    cfg.JS.Minify,
		},
		CopyInclude: cfg.Copy.Include,
		CopyExclude: cfg.Copy.Exclude,
		Check: compat.Options{
			CheckVersion:    cfg.Check.Version,
			OnlyFatalErrors: cfg.Check.Fatal,
			Verbose:         cfg.Verbose,
			Skip:            cfg.Check.Skip,
		},
		ReloadAddr: cfg.Dev.ReloadAddr,
		Debounce:   cfg.Dev.Debounce,
		Release: release.Options{
			Repo:          cfg.Release.Repo,
			Username:      cfg.GitHub.Username,
			Token:         cfg.GitHub.Token,
			SkipChangelog: !cfg.Release.Changelog,
		},
	}
}
