package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

func padRight(s string, length int) string {
	if len(s) >= length {
		return s[:length]
	}
	return s + strings.Repeat(" ", length-len(s))
}

func fmtLarge(n int64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	if n >= 1000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

func fmtUptime(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func statusStyle(p Palette, s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusBlocked:
		return p.fg(p.Red).Bold(true)
	case domain.StatusWarning:
		return p.fg(p.Amber).Bold(true)
	default:
		return p.fg(p.Primary)
	}
}

// bar draws a proportional meter of width cells.
func bar(value, maxValue int64, width int) string {
	fill := 0
	if maxValue > 0 {
		fill = int(float64(value) / float64(maxValue) * float64(width))
	}
	if fill > width {
		fill = width
	}
	if fill < 0 {
		fill = 0
	}
	return strings.Repeat("█", fill) + strings.Repeat("░", width-fill)
}

// window returns the [start, end) range of length visible that keeps
// selected on screen, scrolling as little as possible from offset.
func window(total, visible, selected, offset int) (start, end int) {
	if visible <= 0 || total <= visible {
		return 0, total
	}
	if selected < offset {
		offset = selected
	}
	if selected >= offset+visible {
		offset = selected - visible + 1
	}
	if offset > total-visible {
		offset = total - visible
	}
	if offset < 0 {
		offset = 0
	}
	return offset, offset + visible
}
