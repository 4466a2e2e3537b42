package views

import (
	"fmt"
	"strings"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

// EventLog renders the derived system log.
type EventLog struct {
	Events       []domain.Event
	Width        int
	VisibleCount int
	ScrollPos    int
}

func NewEventLog(width int) *EventLog {
	return &EventLog{Width: width, VisibleCount: 15}
}

func (e *EventLog) Update(events []domain.Event) {
	e.Events = events
	if e.ScrollPos > max(len(events)-e.VisibleCount, 0) {
		e.ScrollPos = max(len(events)-e.VisibleCount, 0)
	}
}

func (e *EventLog) ScrollUp() {
	if e.ScrollPos > 0 {
		e.ScrollPos--
	}
}

func (e *EventLog) ScrollDown() {
	if e.ScrollPos < len(e.Events)-e.VisibleCount {
		e.ScrollPos++
	}
}

func (e *EventLog) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)

	if len(e.Events) == 0 {
		return dim.Italic(true).Render("  No events")
	}

	end := min(e.ScrollPos+e.VisibleCount, len(e.Events))
	var lines []string
	for _, ev := range e.Events[e.ScrollPos:end] {
		var tag string
		style := p.fg(p.Cyan)
		switch ev.Kind {
		case domain.EventBlocked:
			tag, style = "BLK", p.fg(p.Red).Bold(true)
		case domain.EventTraffic:
			tag, style = "WRN", p.fg(p.Amber).Bold(true)
		default:
			tag = "SYS"
		}
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			dim.Render(ev.Time.Format("15:04:05")),
			style.Render(tag),
			muted.Render(sanitize.Message(ev.Message, max(e.Width-20, 10))),
		))
	}

	if len(e.Events) > e.VisibleCount {
		lines = append(lines, dim.Render(fmt.Sprintf("  [%d-%d of %d]", e.ScrollPos+1, end, len(e.Events))))
	}
	return strings.Join(lines, "\n")
}
