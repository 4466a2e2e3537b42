package domain

import (
	"sort"
	"time"
)

const (
	DefaultHistorySize = 20
	DefaultTopSources  = 5

	// HistoryTimeFormat is the display format of history point labels.
	HistoryTimeFormat = "15:04:05"
)

// HistoryPoint is one sample of the total packet count.
type HistoryPoint struct {
	Time  string `json:"time"`
	Count int64  `json:"count"`
}

func NewHistoryPoint(at time.Time, count int64) HistoryPoint {
	return HistoryPoint{Time: at.Format(HistoryTimeFormat), Count: count}
}

// ComputeTotal sums all packet counts.
func ComputeTotal(counts PacketCounts) int64 {
	var total int64
	for _, e := range counts {
		total += e.Count
	}
	return total
}

// ComputeTopSources ranks sources by count, highest first, and keeps the
// first n. Equal counts keep their order from counts.
func ComputeTopSources(counts PacketCounts, n int) []IPCount {
	if n <= 0 || len(counts) == 0 {
		return []IPCount{}
	}
	ranked := make([]IPCount, len(counts))
	copy(ranked, counts)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// AppendHistory returns a new window holding history followed by point,
// trimmed from the front to DefaultHistorySize entries.
func AppendHistory(history []HistoryPoint, point HistoryPoint) []HistoryPoint {
	return AppendHistoryN(history, point, DefaultHistorySize)
}

// AppendHistoryN is AppendHistory with an explicit window size. The input
// slice is never written to.
func AppendHistoryN(history []HistoryPoint, point HistoryPoint, size int) []HistoryPoint {
	if size <= 0 {
		size = DefaultHistorySize
	}
	start := 0
	if len(history)+1 > size {
		start = len(history) + 1 - size
	}
	out := make([]HistoryPoint, 0, len(history)-start+1)
	out = append(out, history[start:]...)
	return append(out, point)
}

// Aggregator derives a snapshot from one complete poll result.
type Aggregator struct {
	HistorySize int
	TopN        int
}

func NewAggregator() Aggregator {
	return Aggregator{HistorySize: DefaultHistorySize, TopN: DefaultTopSources}
}

// Derive builds the next snapshot from prev and a fresh counts/blocked pair.
// Sniffing state and generation bookkeeping carry over from prev; the caller
// stamps the generation.
func (a Aggregator) Derive(prev Snapshot, counts PacketCounts, blocked BlockedIPs, now time.Time) Snapshot {
	total := ComputeTotal(counts)
	return Snapshot{
		Generation:  prev.Generation,
		Counts:      counts.Clone(),
		Blocked:     blocked.Clone(),
		Total:       total,
		History:     AppendHistoryN(prev.History, NewHistoryPoint(now, total), a.HistorySize),
		TopSources:  ComputeTopSources(counts, a.TopN),
		Sniffing:    prev.Sniffing,
		SettledAt:   now,
		LastSuccess: now,
		Cycles:      prev.Cycles + 1,
		Failures:    prev.Failures,
	}
}
