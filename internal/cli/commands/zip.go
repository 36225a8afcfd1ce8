package commands

import (
	"github.com/spf13/cobra"
)

// NewZipCommand creates the zip command.
func NewZipCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "zip",
		Aliases: []string{"package"},
		Short:   "Build the theme and package it as a zip",
		Long: `Run the build, then write zip/<name>.zip holding the theme sources and
built assets. Dev dirs, the mount dir and earlier archives are left out.

The archive name comes from package.json: <name>.zip.`,
		Example: `  themekit zip
  themekit zip --zip-dir dist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			return cc.Run(cmd.Context(), "zip")
		},
	}
}
