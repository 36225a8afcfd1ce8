package commands

import (
	"github.com/spf13/cobra"
)

// NewReleaseCommand creates the release command.
func NewReleaseCommand() *cobra.Command {
	var repo string

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Package the theme and draft a GitHub release",
		Long: `Build and package the theme, add the commits since the last version tag
to CHANGELOG.md, then draft a GitHub release named after the manifest version
with the zip attached.

Credentials come from github.username and github.token, usually kept in the
uncommitted .themekit.local.yaml or set through THEMEKIT_GITHUB__TOKEN. The
publish step is skipped with a warning when they are missing.`,
		Example: `  themekit release
  themekit release --repo acme/starter-theme`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			return cc.Run(cmd.Context(), "release")
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository as owner/name (default: the theme name)")

	return cmd
}
