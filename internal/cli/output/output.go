// Package output renders command results in the configured format.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Mode is an output format.
type Mode string

// Output modes.
const (
	ModeTable    Mode = "table"
	ModeJSON     Mode = "json"
	ModeCSV      Mode = "csv"
	ModeMarkdown Mode = "md"
	ModeYAML     Mode = "yaml"
)

// Styles used for status messages.
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Header  lipgloss.Style
}

// Renderer writes results and status messages.
type Renderer struct {
	out    io.Writer
	errOut io.Writer
	mode   Mode
	lg     *lipgloss.Renderer
	styles Styles
}

// NewRenderer creates a renderer writing results to out and status
// messages to errOut. Colors are only emitted when out is a terminal.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeTable
	}
	lg := lipgloss.NewRenderer(out)
	if !IsTerminal(out) {
		lg.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		out:    out,
		errOut: errOut,
		mode:   mode,
		lg:     lg,
		styles: Styles{
			Success: lg.NewStyle().Foreground(lipgloss.Color("2")),
			Warning: lg.NewStyle().Foreground(lipgloss.Color("3")),
			Error:   lg.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
			Muted:   lg.NewStyle().Faint(true),
			Header:  lg.NewStyle().Bold(true),
		},
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Mode returns the configured output mode.
func (r *Renderer) Mode() Mode { return r.mode }

// Writer returns the result writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Lipgloss returns the lipgloss renderer bound to the result writer.
func (r *Renderer) Lipgloss() *lipgloss.Renderer { return r.lg }

// Styles returns the status message styles.
func (r *Renderer) Styles() Styles { return r.styles }

// Structured reports whether the mode is machine readable.
func (r *Renderer) Structured() bool {
	return r.mode == ModeJSON || r.mode == ModeYAML
}

// Println writes a line to the result writer.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted text to the result writer.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Success writes a success message to the status writer.
func (r *Renderer) Success(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Success.Render(msg))
}

// Warning writes a warning to the status writer.
func (r *Renderer) Warning(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Warning.Render(msg))
}

// Error writes an error message to the status writer.
func (r *Renderer) Error(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Error.Render("Error: "+msg))
}

// Muted writes a dimmed line to the status writer.
func (r *Renderer) Muted(msg string) {
	_, _ = fmt.Fprintln(r.errOut, r.styles.Muted.Render(msg))
}

// Value encodes v as JSON or YAML, depending on the mode. Other modes fall
// back to JSON.
func (r *Renderer) Value(v any) error {
	if r.mode == ModeYAML {
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
