// Package ui renders user-facing progress output and prompts, kept apart
// from the structured logs on stderr.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Printer writes styled progress lines. Styling is dropped automatically
// when the destination is not a terminal.
type Printer struct {
	out io.Writer

	step    *color.Color
	success *color.Color
	warn    *color.Color
	fail    *color.Color
}

// NewPrinter returns a Printer writing to out.
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{
		out:     out,
		step:    color.New(color.FgCyan, color.Bold),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
	}
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		for _, c := range []*color.Color{p.step, p.success, p.warn, p.fail} {
			c.DisableColor()
		}
	}
	return p
}

// Stepf prints a progress line for a provisioning step.
func (p *Printer) Stepf(format string, a ...any) {
	fmt.Fprintln(p.out, p.step.Sprint("==> ")+fmt.Sprintf(format, a...))
}

// Successf prints a completion line.
func (p *Printer) Successf(format string, a ...any) {
	fmt.Fprintln(p.out, p.success.Sprint("✓ ")+fmt.Sprintf(format, a...))
}

// Warnf prints a warning line.
func (p *Printer) Warnf(format string, a ...any) {
	fmt.Fprintln(p.out, p.warn.Sprint("warning: ")+fmt.Sprintf(format, a...))
}

// Failf prints a failure line.
func (p *Printer) Failf(format string, a ...any) {
	fmt.Fprintln(p.out, p.fail.Sprint("error: ")+fmt.Sprintf(format, a...))
}

// Plainf prints an unstyled line.
func (p *Printer) Plainf(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}
