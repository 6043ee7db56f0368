package stats

import (
	"math"
	"sort"
	"time"
)

// Correlation is one other sender's activity correlation with the requester.
type Correlation struct {
	UserID      int64
	Coefficient float64
}

// correlate buckets every sender's timestamps into fixed windows and
// computes the Pearson coefficient between the requester's bucket counts and
// every other sender's, over the full observed bucket range with absent
// buckets counted as zero. Senders below minMessages or with zero variance
// are excluded. Results are sorted by coefficient descending.
func correlate(senders []SenderMessages, requesterID int64, bucket time.Duration, minMessages int) []Correlation {
	counts := make(map[int64]map[int64]float64, len(senders))
	totals := make(map[int64]int, len(senders))

	var (
		minIdx, maxIdx int64
		seen           bool
	)

	for _, s := range senders {
		buckets := make(map[int64]float64, len(s.Times))
		for _, t := range s.Times {
			idx := t.Unix() / int64(bucket.Seconds())
			buckets[idx]++
			if !seen || idx < minIdx {
				minIdx = idx
			}
			if !seen || idx > maxIdx {
				maxIdx = idx
			}
			seen = true
		}
		counts[s.UserID] = buckets
		totals[s.UserID] = len(s.Times)
	}

	me, ok := counts[requesterID]
	if !ok || totals[requesterID] < minMessages {
		return nil
	}

	n := float64(maxIdx - minIdx + 1)

	var results []Correlation
	for userID, other := range counts {
		if userID == requesterID || totals[userID] < minMessages {
			continue
		}
		r, ok := pearson(me, other, n)
		if !ok {
			continue
		}
		results = append(results, Correlation{UserID: userID, Coefficient: r})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Coefficient != results[j].Coefficient {
			return results[i].Coefficient > results[j].Coefficient
		}
		return results[i].UserID < results[j].UserID
	})

	return results
}

// pearson computes the correlation coefficient between two sparse count
// vectors over a shared domain of n buckets. It reports false when either
// vector has zero variance.
func pearson(x, y map[int64]float64, n float64) (float64, bool) {
	if n <= 1 {
		return 0, false
	}

	var sumX, sumY, sumX2, sumY2, sumXY float64
	for _, v := range x {
		sumX += v
		sumX2 += v * v
	}
	for idx, v := range y {
		sumY += v
		sumY2 += v * v
		if xv, ok := x[idx]; ok {
			sumXY += xv * v
		}
	}

	varX := n*sumX2 - sumX*sumX
	varY := n*sumY2 - sumY*sumY
	if varX <= 0 || varY <= 0 {
		return 0, false
	}

	return (n*sumXY - sumX*sumY) / math.Sqrt(varX*varY), true
}

// corrSelection trims sorted correlations to the strongest and weakest
// groups, each at most 5 entries and never overlapping. The top group keeps
// its descending order; the bottom group is returned ascending, weakest
// first.
func corrSelection(results []Correlation) (top, bottom []Correlation) {
	nTop := (len(results) + 1) / 2
	if nTop > 5 {
		nTop = 5
	}
	nBot := len(results) / 2
	if nBot > 5 {
		nBot = 5
	}

	top = results[:nTop]
	bottom = make([]Correlation, 0, nBot)
	for i := 0; i < nBot; i++ {
		bottom = append(bottom, results[len(results)-1-i])
	}
	return top, bottom
}
