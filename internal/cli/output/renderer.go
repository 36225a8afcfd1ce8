// Package output renders command results for terminals, markdown and JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// OutputMode selects how results are rendered.
type OutputMode string //nolint:revive // kept for call sites that spell it out

// Mode is shorthand for OutputMode.
type Mode = OutputMode

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
)

// ParseMode validates a user supplied mode. Empty selects ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return m, nil
	default:
		return "", fmt.Errorf("invalid output format %q (expected auto, text, markdown or json)", s)
	}
}

// Renderer writes user-facing output. Results go to out, diagnostics to
// errOut.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	isTTY  bool
	styles *Styles
}

// NewRenderer creates a renderer, detecting whether out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	isTTY := isTerminal(out)
	profile := termenv.Ascii
	if isTTY {
		profile = termenv.NewOutput(out).EnvColorProfile()
	}
	return newRenderer(out, errOut, isTTY, mode, profile)
}

// NewRendererWithTTY creates a renderer with an explicit terminal state.
// A simulated terminal gets ANSI colors unless NO_COLOR is set.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	profile := termenv.Ascii
	if isTTY && !termenv.EnvNoColor() {
		profile = termenv.ANSI
	}
	return newRenderer(out, errOut, isTTY, mode, profile)
}

func newRenderer(out, errOut io.Writer, isTTY bool, mode Mode, profile termenv.Profile) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	// Parallel tasks share one renderer; whole writes never interleave.
	mu := &sync.Mutex{}
	r := &Renderer{
		out:    &lockedWriter{mu: mu, w: out},
		errOut: &lockedWriter{mu: mu, w: errOut},
		mode:   mode,
		isTTY:  isTTY,
	}
	if r.EffectiveMode() != ModeText {
		profile = termenv.Ascii
	}
	r.styles = NewStyles(lipgloss.NewRenderer(out), profile)
	return r
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: fd fits in int
}

// EffectiveMode resolves ModeAuto: text on a terminal, markdown otherwise.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Styles returns the styles for the current mode.
func (r *Renderer) Styles() *Styles { return r.styles }

// Out returns the result writer.
func (r *Renderer) Out() io.Writer { return r.out }

// ErrOut returns the diagnostics writer.
func (r *Renderer) ErrOut() io.Writer { return r.errOut }

// Println writes a line to out.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to out.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Log writes its operands separated by spaces and a newline, like a
// console logger.
func (r *Renderer) Log(a ...any) {
	_, _ = fmt.Fprintln(r.out, joinOperands(a))
}

// LogError is Log on the diagnostics writer.
func (r *Renderer) LogError(a ...any) {
	_, _ = fmt.Fprintln(r.errOut, joinOperands(a))
}

func joinOperands(a []any) string {
	parts := make([]string, len(a))
	for i, v := range a {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, " ")
}

// Success prints a success message.
func (r *Renderer) Success(msg string) {
	r.Println(r.styles.Success.Render("✓") + " " + msg)
}

// Warning prints a warning to errOut.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render("!")+" "+msg)
}

// Error prints an error to errOut.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("✗")+" "+msg)
}

// Info prints a muted informational line.
func (r *Renderer) Info(msg string) {
	r.Println(r.styles.Muted.Render(msg))
}

// JSON writes v as indented JSON to out.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatHeader renders a markdown heading of the given level.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue renders a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s**: %s", key, value)
}
