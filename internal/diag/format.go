package diag

import (
	"fmt"
	"sort"
	"strings"
)

// FormatShort renders diagnostics one per line, sorted by location, as
// "<severity> <code> <location> <message>". Notes follow their diagnostic
// with the severity "note" when includeNotes is set.
func FormatShort(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	sorted := append([]Diagnostic(nil), diags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i], sorted[j]
		if di.Primary != dj.Primary {
			return di.Primary.Less(dj.Primary)
		}
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		return di.Code < dj.Code
	})

	lines := make([]string, 0, len(sorted))
	for _, d := range sorted {
		lines = append(lines, fmt.Sprintf("%s %s %s %s", d.Severity.Label(), d.Code.ID(), d.Primary, sanitizeMessage(d.Message)))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, fmt.Sprintf("note %s %s %s", d.Code.ID(), n.Loc, sanitizeMessage(n.Msg)))
		}
	}
	return strings.Join(lines, "\n")
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
