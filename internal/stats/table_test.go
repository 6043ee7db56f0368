package stats

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		part  int64
		total int64
		want  string
	}{
		{part: 1, total: 2, want: "50.0"},
		{part: 1, total: 3, want: "33.3"},
		{part: 2, total: 3, want: "66.7"},
		{part: 0, total: 10, want: "0.0"},
		{part: 10, total: 10, want: "100.0"},
		{part: 3, total: 0, want: "0.0"},
		// Ties round half to even.
		{part: 1, total: 400, want: "0.2"},
		{part: 3, total: 400, want: "0.8"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPercent(tt.part, tt.total), "%d/%d", tt.part, tt.total)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 30 * time.Second, want: "0m"},
		{d: 5 * time.Minute, want: "5m"},
		{d: 90 * time.Minute, want: "1h 30m"},
		{d: 26*time.Hour + 5*time.Minute, want: "1d 2h 5m"},
		{d: -time.Minute, want: "0m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.d), "%v", tt.d)
	}
}

func TestTableRender(t *testing.T) {
	t.Parallel()

	table := &Table{
		Columns: []Column{
			{Name: "User"},
			{Name: "Messages", Numeric: true},
			{Name: "%", Numeric: true},
		},
		Rows: [][]string{
			{"alice", "1200", "60.0"},
			{"bob", "800", "40.0"},
		},
	}

	out := table.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "User   Messages     %", lines[0])
	assert.Equal(t, "-----  --------  ----", lines[1])
	assert.Equal(t, "alice      1200  60.0", lines[2])
	assert.Equal(t, "bob         800  40.0", lines[3])
}

func TestTableRenderHeaderOnly(t *testing.T) {
	t.Parallel()

	table := &Table{
		Columns: []Column{{Name: "User"}, {Name: "Messages", Numeric: true}},
	}

	out := table.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "User  Messages", lines[0])
}
