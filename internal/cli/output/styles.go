package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used for console output. With the Ascii
// profile every style renders plain text.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	Link    lipgloss.Style

	// Emphasised variants for counts and section headings.
	ErrorBold   lipgloss.Style
	WarningBold lipgloss.Style

	Header1 lipgloss.Style
	Header2 lipgloss.Style

	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	TaskName      lipgloss.Style
}

const (
	colorRed    = lipgloss.Color("1")
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
	colorCyan   = lipgloss.Color("6")
	colorGray   = lipgloss.Color("8")
)

// NewStyles builds styles bound to a renderer with the given color profile.
func NewStyles(r *lipgloss.Renderer, profile termenv.Profile) *Styles {
	r.SetColorProfile(profile)
	base := r.NewStyle()

	return &Styles{
		Error:   base.Foreground(colorRed),
		Warning: base.Foreground(colorYellow),
		Success: base.Foreground(colorGreen),
		Info:    base.Foreground(colorCyan),
		Muted:   base.Foreground(colorGray),
		Bold:    base.Bold(true),
		Link:    base.Foreground(colorCyan).Underline(true),

		ErrorBold:   base.Foreground(colorRed).Bold(true),
		WarningBold: base.Foreground(colorYellow).Bold(true),

		Header1: base.Bold(true).Underline(true),
		Header2: base.Bold(true),

		StatusSuccess: base.Foreground(colorGreen).Bold(true),
		StatusFailed:  base.Foreground(colorRed).Bold(true),
		TaskName:      base.Foreground(colorCyan),
	}
}
