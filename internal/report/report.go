// Package report renders compatibility results for humans.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/themekit/internal/cli/output"
	"github.com/leapstack-labs/themekit/internal/compat"
)

const (
	checkSymbol = "✓"

	docsURL    = "https://ghost.org/docs/api/handlebars-themes/"
	checkerURL = "https://gscan.ghost.org/"
)

// Logger receives report lines. Operands are joined by single spaces.
type Logger interface {
	Log(a ...any)
	LogError(a ...any)
	Styles() *output.Styles
}

// Summary returns the one-line verdict for t. When there are errors or
// warnings it is followed by a dashed separator as wide as the visible text.
func Summary(t *compat.Theme, opts compat.Options, s *output.Styles) string {
	errCount := len(t.Results.Error)
	warnCount := len(t.Results.Warning)

	switch {
	case errCount == 0 && warnCount == 0 && opts.OnlyFatalErrors:
		return s.Success.Render(checkSymbol) + " Your theme has no fatal compatibility issues with Ghost " + t.CheckedVersion
	case errCount == 0 && warnCount == 0:
		return s.Success.Render(checkSymbol) + " Your theme is compatible with Ghost " + t.CheckedVersion
	}

	var b strings.Builder
	b.WriteString("Your theme has")
	if errCount > 0 {
		b.WriteString(s.ErrorBold.Render(" " + pluralize(errCount, "error")))
	}
	if errCount > 0 && warnCount > 0 {
		b.WriteString(" and")
	}
	if warnCount > 0 {
		b.WriteString(s.WarningBold.Render(" " + pluralize(warnCount, "warning")))
	}
	b.WriteString("!")
	text := b.String()

	return text + "\n" + Separator(text)
}

// Separator returns a run of dashes matching the visible width of text. The
// invisible markup is whatever the styles added: byte length minus width.
func Separator(text string) string {
	markup := len(text) - lipgloss.Width(text)
	return strings.Repeat("-", len(text)-markup)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// PrintResults formats t and writes the summary, one section per non-empty
// severity and the help footer. Formatting failures are reported through
// LogError and printing continues with whatever results remain.
func PrintResults(t *compat.Theme, opts compat.Options, log Logger) {
	if _, err := compat.Format(t, opts); err != nil {
		log.LogError("Error formatting result, some results may be missing.")
		log.LogError(err)
	}
	s := log.Styles()

	log.Log(Summary(t, opts, s))

	if len(t.Results.Error) > 0 {
		log.Log(s.ErrorBold.Render("Errors"))
		log.Log(s.ErrorBold.Render("------"))
		log.Log(s.Error.Render("Important to fix, functionality may be degraded."))
		for _, f := range t.Results.Error {
			printFinding(f, opts, log)
		}
	}

	if len(t.Results.Warning) > 0 {
		log.Log(s.WarningBold.Render("Warnings"))
		log.Log(s.WarningBold.Render("--------"))
		for _, f := range t.Results.Warning {
			printFinding(f, opts, log)
		}
	}

	if len(t.Results.Recommendation) > 0 {
		log.Log(s.WarningBold.Render("Recommendations"))
		log.Log(s.WarningBold.Render("---------------"))
		for _, f := range t.Results.Recommendation {
			printFinding(f, opts, log)
		}
	}

	log.Log("Get more help at " + s.Link.Render(docsURL))
	log.Log("You can also check theme compatibility at " + s.Link.Render(checkerURL))
}

func printFinding(f compat.Finding, opts compat.Options, log Logger) {
	s := log.Styles()
	level := cases.Title(language.English).String(string(f.Level))
	log.Log(levelStyle(s, f.Level).Render("- "+level+":"), f.Rule)

	if opts.Verbose {
		log.Log(s.Bold.Render("Details:") + " " + f.Details)
	}

	if len(f.Failures) > 0 {
		if opts.Verbose {
			log.Log("")
			log.Log(s.Bold.Render("Files:"))
			for _, failure := range f.Failures {
				log.Log(failure.Ref + " - " + failure.Message)
			}
		} else {
			refs := make([]string, len(f.Failures))
			for i, failure := range f.Failures {
				refs[i] = failure.Ref
			}
			log.Log(s.Bold.Render("Files:") + " " + strings.Join(refs, ", "))
		}
	}

	log.Log("")
}

func levelStyle(s *output.Styles, level compat.Level) lipgloss.Style {
	switch level {
	case compat.LevelError:
		return s.Error
	default:
		return s.Warning
	}
}
