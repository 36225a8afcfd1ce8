package pipeline

import (
	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/task"
)

const bell = "\a"

// NewTerminalAlerter rings the terminal bell and prints a banner naming the
// failed task. The bell is only sent to terminals.
func NewTerminalAlerter(r *output.Renderer) task.Alerter {
	return task.AlerterFunc(func(name string, err error) {
		s := r.Styles()
		banner := s.ErrorBold.Render(" ✗ '" + name + "' failed ")
		if r.IsTTY() {
			banner = bell + banner
		}
		r.LogError(banner)
		r.LogError(s.Error.Render(err.Error()))
		r.LogError(s.Muted.Render("Still watching for changes..."))
	})
}
