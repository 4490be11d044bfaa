// Package ui renders checkguard console output.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Console writes progress to stdout and warnings to stderr, colouring
// prefixes when the terminal supports it.
type Console struct {
	out io.Writer
	err io.Writer

	step *color.Color
	warn *color.Color
}

// NewConsole creates a Console over the given writers.
func NewConsole(out, errOut io.Writer) *Console {
	return &Console{
		out:  out,
		err:  errOut,
		step: color.New(color.FgCyan),
		warn: color.New(color.FgYellow, color.Bold),
	}
}

// Progressf prints a progress line. Indented detail lines ("  - ...") get a
// coloured bullet; everything else is printed as is.
func (c *Console) Progressf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if rest, ok := strings.CutPrefix(msg, "  - "); ok {
		_, _ = fmt.Fprintf(c.out, "  %s %s\n", c.step.Sprint("-"), rest)
		return
	}
	_, _ = fmt.Fprintln(c.out, msg)
}

// Warnf prints a warning to stderr.
func (c *Console) Warnf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.err, "%s %s\n", c.warn.Sprint("Warning:"), fmt.Sprintf(format, args...))
}
