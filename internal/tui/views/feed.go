package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

// Feed shows the most recent notifications, newest first.
type Feed struct {
	Notifications []*domain.Notification
	Max           int
	VisibleCount  int
	Width         int
}

func NewFeed(maxItems, visibleCount int) *Feed {
	return &Feed{
		Notifications: make([]*domain.Notification, 0, maxItems),
		Max:           maxItems,
		VisibleCount:  visibleCount,
		Width:         100,
	}
}

func (f *Feed) Add(n *domain.Notification) {
	if n == nil {
		return
	}
	if len(f.Notifications) >= f.Max {
		copy(f.Notifications, f.Notifications[1:])
		f.Notifications = f.Notifications[:len(f.Notifications)-1]
	}
	f.Notifications = append(f.Notifications, n)
}

func (f *Feed) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)

	if len(f.Notifications) == 0 {
		return dim.Italic(true).Render("  No notifications")
	}

	var lines []string
	shown := 0
	for i := len(f.Notifications) - 1; i >= 0 && shown < f.VisibleCount; i-- {
		n := f.Notifications[i]
		lvl, style := levelLabel(p, n.Level)

		msg := sanitize.Message(n.Message, max(f.Width-20, 10))
		lines = append(lines, fmt.Sprintf("  %s  %s  %s",
			dim.Render(n.Timestamp.Format("15:04:05")),
			style.Render(lvl),
			muted.Render(msg),
		))
		shown++
	}
	return strings.Join(lines, "\n")
}

func levelLabel(p Palette, level domain.NotificationLevel) (string, lipgloss.Style) {
	switch level {
	case domain.NotificationError:
		return "ERR", p.fg(p.Red).Bold(true)
	case domain.NotificationSuccess:
		return "OK ", p.fg(p.Primary).Bold(true)
	default:
		return "INF", p.fg(p.Cyan)
	}
}
