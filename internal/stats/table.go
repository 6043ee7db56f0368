package stats

import (
	"fmt"
	"strings"
	"time"
)

// Render lays out a table as monospace text: a header row, a separator, and
// data rows. Numeric columns are right-aligned, everything else left.
func (t *Table) Render() string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c.Name)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			pad := widths[i] - len(cell)
			if t.Columns[i].Numeric {
				b.WriteString(strings.Repeat(" ", pad))
				b.WriteString(cell)
			} else {
				b.WriteString(cell)
				if i < len(cells)-1 {
					b.WriteString(strings.Repeat(" ", pad))
				}
			}
		}
		b.WriteByte('\n')
	}

	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	writeRow(header)

	sep := make([]string, len(t.Columns))
	for i := range t.Columns {
		sep[i] = strings.Repeat("-", widths[i])
	}
	writeRow(sep)

	for _, row := range t.Rows {
		writeRow(row)
	}

	return b.String()
}

// FormatPercent renders part/total as a percentage with one decimal place.
// A zero total renders as 0.0 rather than dividing.
func FormatPercent(part, total int64) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", 100*float64(part)/float64(total))
}

// FormatDuration renders a duration as days, hours and minutes, dropping
// leading zero components. Sub-minute values render as "0m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	days := int64(d / (24 * time.Hour))
	hours := int64(d/time.Hour) % 24
	mins := int64(d/time.Minute) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
