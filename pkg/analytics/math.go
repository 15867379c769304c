package analytics

import (
	"math"
	"sort"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

// Percent returns round(100 * num / max(den, 1))
func Percent(num, den int) int {
	if den < 1 {
		den = 1
	}
	return int(math.Round(100 * float64(num) / float64(den)))
}

// runningMean is an incrementally updated arithmetic mean:
// newAvg = (oldAvg*(n-1) + v) / n
type runningMean struct {
	avg float64
	n   int
}

func (m *runningMean) add(v float64) {
	m.n++
	m.avg = (m.avg*float64(m.n-1) + v) / float64(m.n)
}

func (m runningMean) rounded() int {
	return int(math.Round(m.avg))
}

// mean is a sum/count accumulator
type mean struct {
	sum   int64
	count int
}

func (m *mean) add(v int64) {
	m.sum += v
	m.count++
}

// addMillis records d only when it is a plausible duration
func (m *mean) addMillis(d events.Millis) {
	if d.Plausible() {
		m.add(d.Value)
	}
}

func (m mean) rounded() int {
	if m.count == 0 {
		return 0
	}
	return int(math.Round(float64(m.sum) / float64(m.count)))
}

// ratio counts successes over attempts
type ratio struct {
	hits  int
	total int
}

func (r *ratio) add(hit bool) {
	r.total++
	if hit {
		r.hits++
	}
}

func (r ratio) percent() int {
	return Percent(r.hits, r.total)
}

// percentile returns the nearest-rank percentile of sorted samples
func percentile(sorted []int64, p float64) int {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return int(sorted[rank-1])
}

// countEntry is a key with its frequency
type countEntry struct {
	Key   string
	Count int
}

// rankCounts sorts counts by frequency descending, then key ascending, and keeps limit
// entries (all when limit <= 0).
func rankCounts(counts map[string]int, limit int) []countEntry {
	out := make([]countEntry, 0, len(counts))
	for k, v := range counts {
		out = append(out, countEntry{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// mostCommon returns the most frequent key, ties broken alphabetically
func mostCommon(counts map[string]int) string {
	ranked := rankCounts(counts, 1)
	if len(ranked) == 0 {
		return ""
	}
	return ranked[0].Key
}

// isSet reports whether a selection holds a real choice
func isSet(v string) bool {
	return v != "" && v != "none" && v != "false"
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
