package domain

import "time"

// Snapshot is the aggregated state produced by one settled poll cycle.
// Counts, blocked IPs, history and top sources always come from the same
// successful cycle.
type Snapshot struct {
	Generation  uint64         `json:"generation"`
	Counts      PacketCounts   `json:"packet_counts"`
	Blocked     BlockedIPs     `json:"blocked_ips"`
	Total       int64          `json:"total_packets"`
	History     []HistoryPoint `json:"traffic_history"`
	TopSources  []IPCount      `json:"top_sources"`
	Sniffing    bool           `json:"sniffing"`
	SettledAt   time.Time      `json:"settled_at"`
	LastSuccess time.Time      `json:"last_success"`
	LastError   string         `json:"last_error,omitempty"`
	Cycles      uint64         `json:"cycles"`
	Failures    uint64         `json:"failures"`
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Counts = s.Counts.Clone()
	out.Blocked = s.Blocked.Clone()
	if s.History != nil {
		out.History = make([]HistoryPoint, len(s.History))
		copy(out.History, s.History)
	}
	if s.TopSources != nil {
		out.TopSources = make([]IPCount, len(s.TopSources))
		copy(out.TopSources, s.TopSources)
	}
	return out
}

// WithFailure records a failed cycle. Data fields are left as they were.
func (s Snapshot) WithFailure(err error, now time.Time) Snapshot {
	out := s.Clone()
	out.SettledAt = now
	out.LastError = err.Error()
	out.Failures++
	return out
}

// Healthy reports whether the most recent cycle succeeded.
func (s Snapshot) Healthy() bool {
	return s.LastError == "" && !s.LastSuccess.IsZero()
}
