package views

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

var testPalette = Palette{
	Primary: lipgloss.Color("#00ff41"),
	Amber:   lipgloss.Color("#ffb000"),
	Red:     lipgloss.Color("#ff3333"),
	Text:    lipgloss.Color("#e5e5e5"),
	Muted:   lipgloss.Color("#707070"),
	Dim:     lipgloss.Color("#404040"),
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name                             string
		total, visible, selected, offset int
		start, end                       int
	}{
		{"fits", 3, 10, 2, 0, 0, 3},
		{"top", 20, 5, 0, 0, 0, 5},
		{"scroll down", 20, 5, 7, 0, 3, 8},
		{"scroll up", 20, 5, 2, 10, 2, 7},
		{"keep offset", 20, 5, 6, 4, 4, 9},
		{"clamp", 20, 5, 19, 18, 15, 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := window(tc.total, tc.visible, tc.selected, tc.offset)
			assert.Equal(t, tc.start, start)
			assert.Equal(t, tc.end, end)
		})
	}
}

func TestBar(t *testing.T) {
	assert.Equal(t, "██████████", bar(10, 10, 10))
	assert.Equal(t, "█████░░░░░", bar(5, 10, 10))
	assert.Equal(t, "░░░░░░░░░░", bar(0, 0, 10))
}

func TestFmtLarge(t *testing.T) {
	assert.Equal(t, "999", fmtLarge(999))
	assert.Equal(t, "1.5K", fmtLarge(1500))
	assert.Equal(t, "2.0M", fmtLarge(2000000))
}

func TestFeedIsBounded(t *testing.T) {
	f := NewFeed(3, 2)
	for i := 0; i < 5; i++ {
		f.Add(domain.NewNotification(domain.NotificationInfo, domain.ActionPoll, "", fmt.Sprintf("msg-%d", i)))
	}
	f.Add(nil)

	require.Len(t, f.Notifications, 3)
	assert.Equal(t, "msg-2", f.Notifications[0].Message)

	out := f.Render(testPalette)
	assert.Contains(t, out, "msg-4")
	assert.Contains(t, out, "msg-3")
	assert.NotContains(t, out, "msg-2")
	assert.Less(t, strings.Index(out, "msg-4"), strings.Index(out, "msg-3"))
}

func TestFeedSanitizesMessages(t *testing.T) {
	f := NewFeed(10, 10)
	f.Add(domain.NewNotification(domain.NotificationError, domain.ActionUnblock, "", "bad\x1b[2Jinput"))

	assert.Contains(t, f.Render(testPalette), "bad[ESC]input")
}

func TestHistoryRender(t *testing.T) {
	h := NewHistory(80)
	assert.Contains(t, h.Render(testPalette), "Waiting")

	h.Update([]domain.HistoryPoint{{Time: "12:00:00", Count: 10}, {Time: "12:00:02", Count: 1500}})
	out := h.Render(testPalette)
	assert.Contains(t, out, "1.5K")
	assert.Contains(t, out, "12:00:02")
}

func TestTrafficTableScroll(t *testing.T) {
	tt := NewTrafficTable(80)
	tt.VisibleCount = 2
	tt.Update([]domain.TrafficRow{
		{IP: "10.0.0.1", Count: 3},
		{IP: "10.0.0.2", Count: 2},
		{IP: "10.0.0.3", Count: 1},
	})

	tt.ScrollDown()
	tt.ScrollDown()
	tt.ScrollDown()
	assert.Equal(t, 2, tt.Cursor)

	out := tt.Render(testPalette)
	assert.Contains(t, out, "10.0.0.3")
	assert.NotContains(t, out, "10.0.0.1")
	assert.Contains(t, out, "[2-3 of 3]")

	tt.Update(nil)
	assert.Equal(t, 0, tt.Cursor)
}

func TestStatusHeartbeat(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStatus(240, 2*time.Second)
	s.now = func() time.Time { return now }
	s.StartTime = now

	assert.Contains(t, s.Render(testPalette), "○")

	s.Update(domain.Snapshot{Total: 1200, Cycles: 3})
	out := s.Render(testPalette)
	assert.Contains(t, out, "●")
	assert.Contains(t, out, "1.2K")

	s.Update(domain.Snapshot{LastError: "GET /packet_counts: connection refused"})
	assert.Contains(t, s.Render(testPalette), "connection refused")
}
