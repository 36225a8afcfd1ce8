package commands

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/task"
)

// TaskInfo is the JSON form of a registered task.
type TaskInfo struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Steps       []string `json:"steps,omitempty"`
	Description string   `json:"description"`
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls"},
		Short:   "List the tasks in the task graph",
		Example: `  themekit tasks
  themekit tasks --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd, nil)
			if err != nil {
				return err
			}
			return renderTasks(cc.Renderer, cc.Pipeline.Registry().All())
		},
	}
}

func renderTasks(r *output.Renderer, tasks []*task.Task) error {
	if r.EffectiveMode() == output.ModeJSON {
		infos := make([]TaskInfo, 0, len(tasks))
		for _, t := range tasks {
			infos = append(infos, TaskInfo{
				Name:        t.Name,
				Kind:        t.Kind.String(),
				Steps:       t.Steps,
				Description: t.Description,
			})
		}
		return r.JSON(infos)
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Out())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Task", "Kind", "Steps", "Description"})
	for _, tk := range tasks {
		t.AppendRow(table.Row{tk.Name, tk.Kind.String(), joinSteps(tk), tk.Description})
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		t.RenderMarkdown()
		return nil
	}
	t.Render()
	return nil
}

func joinSteps(t *task.Task) string {
	switch t.Kind {
	case task.KindSeries:
		return strings.Join(t.Steps, " → ")
	case task.KindParallel:
		return strings.Join(t.Steps, " | ")
	default:
		return ""
	}
}

