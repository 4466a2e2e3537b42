package domain

import (
	"fmt"
	"sort"
)

// Status is the display classification of a source IP.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusBlocked
)

// DefaultWarningThreshold is the packet count above which an unblocked IP
// is flagged. The bound is exclusive.
const DefaultWarningThreshold int64 = 500

func (s Status) String() string {
	switch s {
	case StatusBlocked:
		return "Blocked"
	case StatusWarning:
		return "Warning"
	case StatusNormal:
		return "Normal"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Classify maps an IP and its count to a status using the default threshold.
// Blocked membership wins regardless of count.
func Classify(ip string, count int64, blocked BlockedIPs) Status {
	return Classifier{WarningThreshold: DefaultWarningThreshold}.Classify(ip, count, blocked)
}

type Classifier struct {
	WarningThreshold int64
}

func NewClassifier() Classifier {
	return Classifier{WarningThreshold: DefaultWarningThreshold}
}

func (c Classifier) Classify(ip string, count int64, blocked BlockedIPs) Status {
	return c.status(count, blocked.Contains(ip))
}

// status is the single blocked > warning > normal decision.
func (c Classifier) status(count int64, blocked bool) Status {
	if blocked {
		return StatusBlocked
	}
	if count > c.WarningThreshold {
		return StatusWarning
	}
	return StatusNormal
}

// TrafficRow is one line of the per-source traffic table.
type TrafficRow struct {
	IP     string `json:"ip"`
	Count  int64  `json:"count"`
	Status Status `json:"status"`
}

// Rows classifies every source in counts, highest count first.
func (c Classifier) Rows(counts PacketCounts, blocked BlockedIPs) []TrafficRow {
	set := make(map[string]struct{}, len(blocked))
	for _, ip := range blocked {
		set[ip] = struct{}{}
	}

	rows := make([]TrafficRow, 0, len(counts))
	for _, e := range counts {
		_, isBlocked := set[e.IP]
		rows = append(rows, TrafficRow{IP: e.IP, Count: e.Count, Status: c.status(e.Count, isBlocked)})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// ClassifyAll is Rows over the counts and blocked set of one snapshot.
func (c Classifier) ClassifyAll(s Snapshot) []TrafficRow {
	return c.Rows(s.Counts, s.Blocked)
}

// ClassifyAll classifies a snapshot with the default threshold.
func ClassifyAll(s Snapshot) []TrafficRow {
	return NewClassifier().ClassifyAll(s)
}
