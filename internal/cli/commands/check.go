package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/compat"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Version string
	Fatal   bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"test"},
		Short:   "Check the theme for compatibility issues",
		Long: `Check the theme against the rules of a Ghost version and print the
findings grouped by level: errors, warnings and recommendations.

The command fails when the theme has fatal errors. Use --output json for the
full result as JSON.`,
		Example: `  # Check against the default version
  themekit check

  # Only report errors that would stop the theme from being activated
  themekit check --fatal

  # Check against an older release line
  themekit check --check-version v4 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			return cc.Run(cmd.Context(), "check")
		},
	}

	// Read through the config loader, which maps them onto check.version and check.fatal.
	cmd.Flags().StringVar(&opts.Version, "check-version", "", "Ghost version to check against (v4, v5, canary)")
	cmd.Flags().BoolVar(&opts.Fatal, "fatal", false, "Only report fatal errors")

	_ = cmd.RegisterFlagCompletionFunc("check-version", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return compat.DefaultRules().VersionKeys(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
