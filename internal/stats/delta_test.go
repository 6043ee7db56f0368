package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hh, mm int) time.Time {
	return time.Date(2024, 1, 1, hh, mm, 0, 0, time.UTC)
}

func TestNearestDeltas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    []time.Time
		b    []time.Time
		want []time.Duration
	}{
		{
			name: "messages at 10:00 and 10:10 against 10:05",
			a:    []time.Time{at(10, 0), at(10, 10)},
			b:    []time.Time{at(10, 5)},
			want: []time.Duration{5 * time.Minute, 5 * time.Minute},
		},
		{
			name: "nearest neighbor can be behind or ahead",
			a:    []time.Time{at(10, 0), at(10, 30), at(11, 0)},
			b:    []time.Time{at(10, 10), at(10, 50)},
			want: []time.Duration{10 * time.Minute, 20 * time.Minute, 10 * time.Minute},
		},
		{
			name: "empty other side",
			a:    []time.Time{at(10, 0)},
			b:    nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, nearestDeltas(tt.a, tt.b))
		})
	}
}

// The forward scan must agree with an exhaustive nearest-neighbor search.
func TestNearestDeltasMatchesExhaustive(t *testing.T) {
	t.Parallel()

	var a, b []time.Time
	for i := 0; i < 50; i++ {
		a = append(a, at(0, 0).Add(time.Duration(i*i%97)*time.Minute))
		b = append(b, at(0, 0).Add(time.Duration(i*37%89)*time.Minute))
	}
	sortTimes(a)
	sortTimes(b)

	got := nearestDeltas(a, b)
	require.Len(t, got, len(a))

	for i, tm := range a {
		best := absDelta(b[0], tm)
		for _, other := range b[1:] {
			if d := absDelta(other, tm); d < best {
				best = d
			}
		}
		assert.Equal(t, best, got[i], "timestamp %d", i)
	}
}

func sortTimes(ts []time.Time) {
	for i := 1; i < len(ts); i++ {
		for j := i; j > 0 && ts[j].Before(ts[j-1]); j-- {
			ts[j], ts[j-1] = ts[j-1], ts[j]
		}
	}
}

func TestMedian(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 5*time.Minute, median([]time.Duration{5 * time.Minute, 5 * time.Minute}))
	assert.Equal(t, 3*time.Minute, median([]time.Duration{1 * time.Minute, 3 * time.Minute, 9 * time.Minute}))
	assert.Equal(t, 2*time.Minute, median([]time.Duration{3 * time.Minute, 1 * time.Minute}))
}

func TestResponseDeltas(t *testing.T) {
	t.Parallel()

	senders := []SenderMessages{
		{UserID: 1, Times: []time.Time{at(10, 0), at(10, 10)}},
		{UserID: 2, Times: []time.Time{at(10, 5)}},
		{UserID: 3, Times: []time.Time{at(12, 0)}},
	}

	results := responseDeltas(senders, 1, 1)
	require.Len(t, results, 2)

	// Sorted ascending by median: the conversational partner first.
	assert.Equal(t, int64(2), results[0].UserID)
	assert.Equal(t, 5*time.Minute, results[0].Median)

	assert.Equal(t, int64(3), results[1].UserID)
	assert.Equal(t, 115*time.Minute, results[1].Median)
}

func TestResponseDeltasActivityFloor(t *testing.T) {
	t.Parallel()

	senders := []SenderMessages{
		{UserID: 1, Times: []time.Time{at(10, 0), at(10, 10)}},
		{UserID: 2, Times: []time.Time{at(10, 5)}},
	}

	// The other sender has one message, below the floor of two.
	assert.Empty(t, responseDeltas(senders, 1, 2))
}

func TestResponseDeltasCapsAtFive(t *testing.T) {
	t.Parallel()

	senders := []SenderMessages{{UserID: 1, Times: []time.Time{at(10, 0)}}}
	for i := int64(2); i <= 9; i++ {
		senders = append(senders, SenderMessages{
			UserID: i,
			Times:  []time.Time{at(10, int(i))},
		})
	}

	results := responseDeltas(senders, 1, 1)
	assert.Len(t, results, 5)
}
