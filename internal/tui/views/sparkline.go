package views

import (
	"strings"

	"github.com/xoelrdgz/trafficradar/internal/domain"
)

var barChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// History draws the traffic history window as a bar sparkline.
type History struct {
	Points []domain.HistoryPoint
	Width  int
	// Cell is the number of columns per history point.
	Cell int
	// Warn and Crit color the trace by the latest total.
	Warn, Crit int64
}

func NewHistory(width int) *History {
	if width <= 0 {
		width = 60
	}
	return &History{Width: width, Cell: 2, Warn: 5000, Crit: 20000}
}

func (h *History) Update(points []domain.HistoryPoint) { h.Points = points }

func (h *History) SetWidth(width int) {
	if width > 0 {
		h.Width = width
	}
}

func (h *History) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)

	if len(h.Points) == 0 {
		return dim.Italic(true).Render("  Waiting for first poll...")
	}

	var current, maxVal int64
	for _, pt := range h.Points {
		if pt.Count > maxVal {
			maxVal = pt.Count
		}
	}
	last := h.Points[len(h.Points)-1]
	current = last.Count

	color := p.fg(p.Primary)
	if current > h.Crit {
		color = p.fg(p.Red)
	} else if current > h.Warn {
		color = p.fg(p.Amber)
	}

	cell := h.Cell
	if cell < 1 {
		cell = 1
	}
	points := h.Points
	if fit := (h.Width - 20) / cell; fit > 0 && len(points) > fit {
		points = points[len(points)-fit:]
	}

	var b strings.Builder
	b.WriteString(" ")
	for _, pt := range points {
		idx := 0
		if maxVal > 0 && pt.Count > 0 {
			idx = int(float64(pt.Count) / float64(maxVal) * float64(len(barChars)-1))
		}
		if idx >= len(barChars) {
			idx = len(barChars) - 1
		}
		glyph := strings.Repeat(string(barChars[idx]), cell)
		if pt.Count == 0 {
			b.WriteString(dim.Render(glyph))
		} else {
			b.WriteString(color.Render(glyph))
		}
	}

	b.WriteString(color.Bold(true).Render(" ▶ " + fmtLarge(current)))
	b.WriteString(muted.Render(" @ " + last.Time))
	return b.String()
}
