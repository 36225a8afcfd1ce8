// Package cli provides the command-line interface for themekit.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/cli/commands"
	"github.com/leapstack-labs/themekit/internal/cli/config"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "themekit",
		Short: "themekit - Ghost theme build pipeline",
		Long: `themekit builds Ghost themes: it compiles and prefixes the stylesheet,
bundles the scripts, copies the theme into a local Ghost install, checks it
for compatibility issues, packages it as a zip and drafts GitHub releases.

Running themekit without a command starts the dev loop.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg.Verbose)
			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			// Print config files used (if verbose)
			if cfg.Verbose {
				for _, f := range config.GetConfigFilesUsed() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", f)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.RunDev(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Ghost theme build pipeline
`)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./themekit.yaml)")
	rootCmd.PersistentFlags().String("theme-dir", "", "Path to the theme (default: nearest dir with themekit.yaml)")
	rootCmd.PersistentFlags().String("mount-dir", "", "Directory the theme is copied into")
	rootCmd.PersistentFlags().String("zip-dir", "", "Directory archives are written to")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"auto", "text", "markdown", "json"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.MarkPersistentFlagDirname("theme-dir")
	_ = rootCmd.MarkPersistentFlagDirname("mount-dir")
	_ = rootCmd.MarkPersistentFlagDirname("zip-dir")

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewBuildProdCommand())
	rootCmd.AddCommand(commands.NewZipCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewDevCommand())
	rootCmd.AddCommand(commands.NewReleaseCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewTasksCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// newLogger writes structured logs to stderr. Progress lines come from the
// renderer, so only warnings show unless --verbose is set.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for themekit.

To load completions:

Bash:
  $ source <(themekit completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ themekit completion bash > /etc/bash_completion.d/themekit
  # macOS:
  $ themekit completion bash > $(brew --prefix)/etc/bash_completion.d/themekit

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ themekit completion zsh > "${fpath[1]}/_themekit"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ themekit completion fish | source

  # To load completions for each session, execute once:
  $ themekit completion fish > ~/.config/fish/completions/themekit.fish

PowerShell:
  PS> themekit completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> themekit completion powershell > themekit.ps1
  # and source this file from your PowerShell profile.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
