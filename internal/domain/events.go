package domain

import (
	"fmt"
	"time"
)

type EventKind string

const (
	EventSystem  EventKind = "system"
	EventBlocked EventKind = "blocked"
	EventTraffic EventKind = "traffic"
)

// Event is one line of the system log view.
type Event struct {
	Time    time.Time `json:"time"`
	Kind    EventKind `json:"kind"`
	IP      string    `json:"ip,omitempty"`
	Message string    `json:"message"`
}

// DeriveEvents renders the system log for a snapshot with the default
// classifier.
func DeriveEvents(s Snapshot, now time.Time) []Event {
	return NewClassifier().DeriveEvents(s, now)
}

// DeriveEvents lists, in order: startup, monitoring state, one entry per
// blocked IP, and one entry per IP classified as Warning.
func (c Classifier) DeriveEvents(s Snapshot, now time.Time) []Event {
	events := make([]Event, 0, 2+len(s.Blocked))
	events = append(events, Event{Time: now, Kind: EventSystem, Message: "System initialized"})
	if s.Sniffing {
		events = append(events, Event{Time: now, Kind: EventSystem, Message: "Packet monitoring active"})
	}
	for _, ip := range s.Blocked {
		events = append(events, Event{
			Time:    now,
			Kind:    EventBlocked,
			IP:      ip,
			Message: fmt.Sprintf("IP %s blocked due to excessive traffic", ip),
		})
	}
	for _, row := range c.Rows(s.Counts, s.Blocked) {
		if row.Status != StatusWarning {
			continue
		}
		events = append(events, Event{
			Time:    now,
			Kind:    EventTraffic,
			IP:      row.IP,
			Message: fmt.Sprintf("High traffic from %s: %d packets", row.IP, row.Count),
		})
	}
	return events
}
