package manager

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Notifier prints user-facing notices. They go to stderr so the child's
// stdout stays clean for pipes.
type Notifier struct {
	w       io.Writer
	info    *color.Color
	success *color.Color
	warn    *color.Color
	err     *color.Color
	hint    *color.Color
}

// NewNotifier writes to w; colors are used only when w is a terminal and
// noColor is false
func NewNotifier(w io.Writer, noColor bool) *Notifier {
	n := &Notifier{
		w:       w,
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
		err:     color.New(color.FgRed, color.Bold),
		hint:    color.New(color.FgMagenta),
	}

	enabled := !noColor && isTerminal(w)
	for _, c := range []*color.Color{n.info, n.success, n.warn, n.err, n.hint} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return n
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (n *Notifier) print(c *color.Color, format string, args ...any) {
	c.Fprintln(n.w, fmt.Sprintf(format, args...))
}

// Info prints a neutral notice
func (n *Notifier) Info(format string, args ...any) { n.print(n.info, format, args...) }

// Success prints a confirmation
func (n *Notifier) Success(format string, args ...any) { n.print(n.success, format, args...) }

// Warn prints a warning
func (n *Notifier) Warn(format string, args ...any) { n.print(n.warn, format, args...) }

// Error prints a failure
func (n *Notifier) Error(format string, args ...any) { n.print(n.err, format, args...) }

// Hint prints a suggestion
func (n *Notifier) Hint(format string, args ...any) { n.print(n.hint, format, args...) }
