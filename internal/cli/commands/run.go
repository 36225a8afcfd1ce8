package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/pipeline"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>...",
		Short: "Run one or more tasks by name",
		Long: `Run tasks from the task graph in the order given. Each task runs its
dependencies first. Use "themekit tasks" to list them.`,
		Example: `  # Compile only the stylesheet
  themekit run css

  # Rebuild the bundles and copy them without checking
  themekit run css js copy`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: completeTasks,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			err = cc.Run(cmd.Context(), args...)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func completeTasks(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cc, err := NewCommandContext(cmd, nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return taskCompletions(cc.Pipeline), cobra.ShellCompDirectiveNoFileComp
}

func taskCompletions(p *pipeline.Pipeline) []string {
	tasks := p.Registry().All()
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Name+"\t"+t.Description)
	}
	return out
}

