package telegram

import (
	"fmt"
	"html"
	"strings"

	"github.com/edgard/groupstats/internal/stats"
)

// renderResult converts a StatResult into a Telegram HTML message. Tables,
// series, and summaries go into <pre> blocks so columns stay aligned; the
// result itself is never modified.
func renderResult(res *stats.StatResult) string {
	var b strings.Builder

	switch res.Kind {
	case stats.KindTable:
		writeTitle(&b, res.Title)
		b.WriteString("<pre>")
		b.WriteString(html.EscapeString(res.Table.Render()))
		b.WriteString("</pre>")

	case stats.KindSeries:
		writeTitle(&b, res.Title)
		b.WriteString("<pre>")
		b.WriteString(html.EscapeString(renderSeries(res.Series)))
		b.WriteString("</pre>")

	case stats.KindSummary:
		writeTitle(&b, res.Title)
		b.WriteString("<pre>")
		b.WriteString(html.EscapeString(renderSummary(res.Summary)))
		b.WriteString("</pre>")

	default:
		if res.Title != "" {
			writeTitle(&b, res.Title)
		}
		b.WriteString(html.EscapeString(res.Message))
	}

	return b.String()
}

func writeTitle(b *strings.Builder, title string) {
	if title == "" {
		return
	}
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>\n")
}

// renderSeries draws a series as labeled bars, scaled to a fixed width.
func renderSeries(points []stats.Point) string {
	if len(points) == 0 {
		return "No matching messages."
	}

	const barWidth = 20

	var maxVal float64
	labelWidth := 0
	for _, p := range points {
		if p.Value > maxVal {
			maxVal = p.Value
		}
		if len(p.Label) > labelWidth {
			labelWidth = len(p.Label)
		}
	}

	var b strings.Builder
	for _, p := range points {
		bar := 0
		if maxVal > 0 {
			bar = int(p.Value / maxVal * barWidth)
		}
		fmt.Fprintf(&b, "%-*s %s %d\n", labelWidth, p.Label, strings.Repeat("█", bar), int64(p.Value))
	}
	return b.String()
}

func renderSummary(kvs []stats.KV) string {
	keyWidth := 0
	for _, kv := range kvs {
		if len(kv.Key) > keyWidth {
			keyWidth = len(kv.Key)
		}
	}

	var b strings.Builder
	for _, kv := range kvs {
		fmt.Fprintf(&b, "%-*s  %s\n", keyWidth, kv.Key, kv.Value)
	}
	return b.String()
}
