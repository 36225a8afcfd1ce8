package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/cli/config"
)

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build assets, copy the theme into the mount dir and check it",
		Long: `Compile the stylesheet, bundle the scripts, copy templates and built
assets into the mount dir, then run the compatibility check.

The build stops at the first failing step. Fatal compatibility errors fail
the build after the report is printed.`,
		Example: `  # Build the theme in the current directory
  themekit build

  # Build a theme elsewhere, mounting it into a local Ghost install
  themekit build --theme-dir ./themes/starter --mount-dir ../ghost/content/themes/starter`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, false)
		},
	}
}

// NewBuildProdCommand creates the production build command.
func NewBuildProdCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "build:prod",
		Aliases: []string{"build-prod"},
		Short:   "Build with unused styles purged",
		Long: `Run the build with purge enabled. Class names found in templates and
scripts are kept, along with css.safelist; every other class rule is dropped.

Setting NODE_ENV=production has the same effect on any command.`,
		Example: `  themekit build:prod`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, true)
		},
	}
}

func runBuild(cmd *cobra.Command, purge bool) error {
	cc, err := NewCommandContext(cmd, func(cfg *config.Config) {
		if purge {
			cfg.Purge = true
		}
	})
	if err != nil {
		return err
	}
	return cc.Run(cmd.Context(), "build")
}
