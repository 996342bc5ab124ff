// Package output renders the human-facing status lines of the CLI.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ANSI colors, so the terminal theme decides the exact shade.
const (
	colorRed    = lipgloss.Color("1")
	colorGreen  = lipgloss.Color("2")
	colorYellow = lipgloss.Color("3")
	colorBlue   = lipgloss.Color("4")
)

// Printer writes styled lines to a writer. Styling degrades to plain text
// when the writer is not a color-capable terminal.
type Printer struct {
	out io.Writer

	bold    lipgloss.Style
	failure lipgloss.Style
	danger  lipgloss.Style
	info    lipgloss.Style
	banner  lipgloss.Style
	success lipgloss.Style
}

// NewPrinter creates a Printer for out.
func NewPrinter(out io.Writer) *Printer {
	r := lipgloss.NewRenderer(out)
	return &Printer{
		out:     out,
		bold:    r.NewStyle().Bold(true),
		failure: r.NewStyle().Bold(true).Foreground(colorRed),
		danger:  r.NewStyle().Foreground(colorRed),
		info:    r.NewStyle().Bold(true).Foreground(colorBlue),
		banner:  r.NewStyle().Foreground(colorBlue).Background(colorYellow),
		success: r.NewStyle().Bold(true).Foreground(colorGreen),
	}
}

// Missing reports a required option that was not supplied.
func (p *Printer) Missing(key, description string) {
	p.println(p.failure.Render("Missing: ") + p.bold.Render(key) + " - " + description)
}

// NotExist reports a file that could not be found. what is e.g.
// "Backup file".
func (p *Printer) NotExist(what, path string) {
	p.println(p.failure.Render(what+" does not exist: ") + p.bold.Render(path))
}

// Error prints msg in red.
func (p *Printer) Error(msg string) {
	p.println(p.danger.Render(msg))
}

// Info prints msg in bold blue, preceded by a blank gap.
func (p *Printer) Info(msg string) {
	p.println("\n\n" + p.info.Render(msg))
}

// Warning prints msg as a highlighted banner.
func (p *Printer) Warning(msg string) {
	p.println(p.banner.Render(msg))
}

// Success prints msg in bold green.
func (p *Printer) Success(msg string) {
	p.println(p.success.Render(msg))
}

// Danger returns s styled in red without printing it.
func (p *Printer) Danger(s string) string {
	return p.danger.Render(s)
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}
