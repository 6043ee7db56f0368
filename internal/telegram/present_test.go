package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/groupstats/internal/stats"
)

func TestRenderResult(t *testing.T) {
	t.Parallel()

	t.Run("table goes into a pre block", func(t *testing.T) {
		t.Parallel()

		res := &stats.StatResult{
			Kind:  stats.KindTable,
			Title: "Most active users",
			Table: &stats.Table{
				Columns: []stats.Column{{Name: "User"}, {Name: "Messages", Numeric: true}},
				Rows:    [][]string{{"alice", "10"}},
			},
		}

		out := renderResult(res)
		assert.Contains(t, out, "<b>Most active users</b>")
		assert.Contains(t, out, "<pre>")
		assert.Contains(t, out, "alice")
	})

	t.Run("cell content is html escaped", func(t *testing.T) {
		t.Parallel()

		res := &stats.StatResult{
			Kind: stats.KindTable,
			Table: &stats.Table{
				Columns: []stats.Column{{Name: "Title"}},
				Rows:    [][]string{{"<script>alert(1)</script>"}},
			},
		}

		out := renderResult(res)
		assert.NotContains(t, out, "<script>")
		assert.Contains(t, out, "&lt;script&gt;")
	})

	t.Run("series renders one bar per point", func(t *testing.T) {
		t.Parallel()

		res := &stats.StatResult{
			Kind:  stats.KindSeries,
			Title: "Messages by hour of day",
			Series: []stats.Point{
				{Label: "00", Value: 2},
				{Label: "01", Value: 4},
			},
		}

		out := renderResult(res)
		assert.Contains(t, out, "00")
		assert.Contains(t, out, "01")
		assert.Contains(t, out, "█")
	})

	t.Run("plain message passes through", func(t *testing.T) {
		t.Parallel()

		res := &stats.StatResult{Kind: stats.KindMessage, Message: "No matching messages."}
		assert.Equal(t, "No matching messages.", renderResult(res))
	})
}
