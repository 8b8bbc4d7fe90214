package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table prints rows under headers, padding by display width so CJK and
// other wide text lines up. Cells wider than maxWidth are truncated; a
// maxWidth of 0 disables truncation.
func (ui *UI) Table(headers []string, rows [][]string, maxWidth int) {
	if ui.jsonMode {
		return
	}

	cell := func(s string) string {
		if maxWidth > 0 && runewidth.StringWidth(s) > maxWidth {
			return runewidth.Truncate(s, maxWidth, "…")
		}
		return s
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range widths {
			if i < len(row) {
				if w := runewidth.StringWidth(cell(row[i])); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	line := func(cols []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			var s string
			if i < len(cols) {
				s = cell(cols[i])
			}
			if i == len(widths)-1 {
				parts[i] = s
			} else {
				parts[i] = runewidth.FillRight(s, widths[i])
			}
		}
		fmt.Fprintln(ui.out, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}
