package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

type Status struct {
	Width        int
	Snapshot     domain.Snapshot
	Theme        string
	PollInterval time.Duration
	StartTime    time.Time
	lastUpdate   time.Time

	now func() time.Time
}

func NewStatus(width int, pollInterval time.Duration) *Status {
	return &Status{Width: width, PollInterval: pollInterval, StartTime: time.Now(), now: time.Now}
}

func (s *Status) Update(snap domain.Snapshot) {
	s.Snapshot = snap
	s.lastUpdate = s.now()
}

func (s *Status) Render(p Palette) string {
	green := p.fg(p.Primary)
	amber := p.fg(p.Amber)
	red := p.fg(p.Red)
	muted := p.fg(p.Muted)
	border := p.fg(p.Ghost)

	snap := s.Snapshot

	fail := green
	if snap.Failures > 0 {
		fail = amber.Bold(true)
	}

	blk := green
	if len(snap.Blocked) > 0 {
		blk = red.Bold(true)
	}

	items := []string{
		s.heartbeat(p),
		muted.Render("TOTAL:") + " " + green.Render(fmtLarge(snap.Total)),
		muted.Render("IPS:") + " " + green.Render(fmt.Sprintf("%d", len(snap.Counts))),
		muted.Render("BLK:") + " " + blk.Render(fmt.Sprintf("%d", len(snap.Blocked))),
		muted.Render("CYC:") + " " + green.Render(fmt.Sprintf("%d", snap.Cycles)),
		muted.Render("FAIL:") + " " + fail.Render(fmt.Sprintf("%d", snap.Failures)),
		muted.Render("THEME:") + " " + green.Render(s.Theme),
		muted.Render("UP:") + " " + green.Render(fmtUptime(s.now().Sub(s.StartTime).Round(time.Second))),
	}

	line := strings.Join(items, border.Render(" │ "))
	if snap.LastError != "" {
		line += border.Render(" │ ") + red.Render(sanitize.Message(snap.LastError, max(s.Width/3, 20)))
	}

	return lipgloss.NewStyle().
		Width(s.Width).
		Padding(0, 1).
		Background(p.BgAlt).
		Render(line)
}

// heartbeat ages the indicator against the poll interval.
func (s *Status) heartbeat(p Palette) string {
	interval := s.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var icon string
	var style lipgloss.Style

	switch elapsed := s.now().Sub(s.lastUpdate); {
	case s.lastUpdate.IsZero():
		icon, style = "○", p.fg(p.Dim)
	case s.Snapshot.LastError != "":
		icon, style = "●", p.fg(p.Red).Bold(true)
	case elapsed <= interval:
		icon, style = "●", p.fg(p.Primary).Bold(true)
	case elapsed <= 3*interval:
		icon, style = "○", p.fg(p.Amber)
	default:
		icon, style = "○", p.fg(p.Red)
	}

	return p.fg(p.Muted).Render("SVC:") + " " + style.Render(icon)
}
