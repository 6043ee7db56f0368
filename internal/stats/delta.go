package stats

import (
	"sort"
	"time"
)

// ResponseDelta is one other sender's median time distance to the
// requester's messages.
type ResponseDelta struct {
	UserID int64
	Median time.Duration
}

// responseDeltas computes, for every other sender with at least minMessages
// messages, the median absolute distance from each requester message to that
// sender's nearest message. Results are sorted ascending by median, closest
// conversational partners first.
func responseDeltas(senders []SenderMessages, requesterID int64, minMessages int) []ResponseDelta {
	var mine []time.Time
	for _, s := range senders {
		if s.UserID == requesterID {
			mine = s.Times
			break
		}
	}
	if len(mine) < minMessages {
		return nil
	}

	var results []ResponseDelta
	for _, s := range senders {
		if s.UserID == requesterID || len(s.Times) < minMessages {
			continue
		}
		deltas := nearestDeltas(mine, s.Times)
		if len(deltas) == 0 {
			continue
		}
		results = append(results, ResponseDelta{UserID: s.UserID, Median: median(deltas)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Median != results[j].Median {
			return results[i].Median < results[j].Median
		}
		return results[i].UserID < results[j].UserID
	})

	if len(results) > 5 {
		results = results[:5]
	}
	return results
}

// nearestDeltas returns, for each timestamp in a, the absolute distance to
// the nearest timestamp in b. Both inputs must be sorted ascending; the scan
// is a single forward pass over each.
func nearestDeltas(a, b []time.Time) []time.Duration {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	deltas := make([]time.Duration, 0, len(a))
	j := 0
	for _, t := range a {
		for j+1 < len(b) && absDelta(b[j+1], t) <= absDelta(b[j], t) {
			j++
		}
		deltas = append(deltas, absDelta(b[j], t))
	}
	return deltas
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}

// median returns the middle value, averaging the two central values for
// even-length input. The input slice is sorted in place.
func median(ds []time.Duration) time.Duration {
	sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
	mid := len(ds) / 2
	if len(ds)%2 == 1 {
		return ds[mid]
	}
	return (ds[mid-1] + ds[mid]) / 2
}
