package telegram

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgard/groupstats/internal/stats"
)

func TestSplitCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		wantStat string
		wantArgs []string
	}{
		{name: "bare command defaults to counts", text: "/stats", wantStat: "counts"},
		{name: "stat name", text: "/stats hours", wantStat: "hours"},
		{name: "stat name uppercased", text: "/stats HOURS", wantStat: "hours"},
		{name: "with filter args", text: "/stats counts -start 2024 -me", wantStat: "counts", wantArgs: []string{"-start", "2024", "-me"}},
		{name: "bot suffix on command", text: "/stats@statbot delta", wantStat: "delta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stat, args := splitCommand(tt.text)
			assert.Equal(t, tt.wantStat, stat)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestUserFacingError(t *testing.T) {
	t.Parallel()

	names := []string{"counts", "hours"}

	t.Run("filter errors are echoed", func(t *testing.T) {
		t.Parallel()

		err := &stats.FilterError{Kind: stats.UnknownOption, Message: `unknown option "-x"`}
		assert.Equal(t, `unknown option "-x"`, userFacingError(err, names))
	})

	t.Run("unknown stat lists available names", func(t *testing.T) {
		t.Parallel()

		msg := userFacingError(stats.ErrUnknownStat, names)
		assert.Contains(t, msg, "counts, hours")
	})

	t.Run("timeouts suggest narrowing", func(t *testing.T) {
		t.Parallel()

		msg := userFacingError(stats.ErrTimeout, names)
		assert.Contains(t, msg, "too long")
	})

	t.Run("internal errors stay generic", func(t *testing.T) {
		t.Parallel()

		msg := userFacingError(errors.New("pq: connection refused"), names)
		assert.NotContains(t, msg, "pq:")
	})
}
