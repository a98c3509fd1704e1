// Package diagfmt renders diagnostic bags for people and for tools.
package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"kernlower/internal/diag"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	noteColor    = color.New(color.FgBlue)
	locColor     = color.New(color.Bold)
)

// Pretty writes each diagnostic of bag as
//
//	<location>: <severity>[<CODE>]: <message>
//	    = note: <location>: <message>
//
// in bag order; call bag.Sort first for a stable listing. It returns the
// number of diagnostics written.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) int {
	if bag == nil {
		return 0
	}
	items := bag.Items()
	if opts.Max > 0 && len(items) > opts.Max {
		items = items[:opts.Max]
	}
	var b strings.Builder
	for _, d := range items {
		fmt.Fprintf(&b, "%s: %s: %s\n",
			paint(opts.Color, locColor, withPath(d.Primary, opts.PathMode).String()),
			paint(opts.Color, severityColor(d.Severity), fmt.Sprintf("%s[%s]", d.Severity.Label(), d.Code.ID())),
			d.Message)
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(&b, "    = %s %s: %s\n",
				paint(opts.Color, noteColor, "note:"),
				withPath(n.Loc, opts.PathMode), n.Msg)
		}
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return 0
	}
	return len(items)
}

// Summary is the closing line printed after a listing, empty when there is
// nothing to count.
func Summary(bag *diag.Bag, useColor bool) string {
	if bag == nil {
		return ""
	}
	var errs, warns int
	for _, d := range bag.Items() {
		switch d.Severity {
		case diag.SevError:
			errs++
		case diag.SevWarning:
			warns++
		}
	}
	if errs == 0 && warns == 0 {
		return ""
	}
	parts := make([]string, 0, 2)
	if errs > 0 {
		parts = append(parts, paint(useColor, errorColor, plural(errs, "error")))
	}
	if warns > 0 {
		parts = append(parts, paint(useColor, warningColor, plural(warns, "warning")))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func severityColor(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

// paint colors s only when asked, regardless of color.NoColor.
func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}
