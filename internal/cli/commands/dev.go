package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

// NewDevCommand creates the dev command.
func NewDevCommand() *cobra.Command {
	var reloadAddr string

	cmd := &cobra.Command{
		Use:     "dev",
		Aliases: []string{"watch"},
		Short:   "Build once, then rebuild and live reload on change",
		Long: `Build the assets and copy the theme into the mount dir, then watch the
theme. Style and script edits rebuild the bundles; template and asset edits
are copied into the mount dir and connected browsers reload.

A failing rebuild rings the terminal bell and prints the error; watching
continues. Press Ctrl+C to stop.`,
		Example: `  themekit dev
  themekit dev --reload-addr :35729 --mount-dir ../ghost/content/themes/starter`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunDev(cmd)
		},
	}

	cmd.Flags().StringVar(&reloadAddr, "reload-addr", "", "Address of the live reload server (default localhost:35729)")

	return cmd
}

// RunDev runs the dev loop until the command context is cancelled.
func RunDev(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd, nil)
	if err != nil {
		return err
	}
	cc.Renderer.Info("Live reload script: http://" + cc.Cfg.Dev.ReloadAddr + "/livereload.js")
	err = cc.Run(cmd.Context(), "dev")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
