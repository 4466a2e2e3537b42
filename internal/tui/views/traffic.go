package views

import (
	"fmt"
	"strings"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

// TrafficTable is the scrollable per-IP table with classification.
type TrafficTable struct {
	Rows         []domain.TrafficRow
	Width        int
	VisibleCount int
	Cursor       int
	offset       int
}

func NewTrafficTable(width int) *TrafficTable {
	return &TrafficTable{Width: width, VisibleCount: 15}
}

func (t *TrafficTable) Update(rows []domain.TrafficRow) {
	t.Rows = rows
	if t.Cursor >= len(rows) {
		t.Cursor = max(len(rows)-1, 0)
	}
}

func (t *TrafficTable) ScrollUp() {
	if t.Cursor > 0 {
		t.Cursor--
	}
}

func (t *TrafficTable) ScrollDown() {
	if t.Cursor < len(t.Rows)-1 {
		t.Cursor++
	}
}

func (t *TrafficTable) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)

	if len(t.Rows) == 0 {
		return dim.Italic(true).Render("  No traffic recorded")
	}

	var lines []string
	lines = append(lines, muted.Bold(true).Render(fmt.Sprintf("  %-39s %10s  %s", "IP", "PACKETS", "STATUS")))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", max(t.Width-4, 10))))

	start, end := window(len(t.Rows), t.VisibleCount, t.Cursor, t.offset)
	t.offset = start

	for i := start; i < end; i++ {
		row := t.Rows[i]
		style := statusStyle(p, row.Status)
		prefix := "  "
		ipStyle := p.fg(p.Text)
		if i == t.Cursor {
			prefix = "▶ "
			ipStyle = p.selected()
		}
		lines = append(lines, fmt.Sprintf("%s%s %s  %s",
			prefix,
			ipStyle.Render(padRight(sanitize.IP(row.IP), 39)),
			style.Render(fmt.Sprintf("%10d", row.Count)),
			style.Render(row.Status.String()),
		))
	}

	if len(t.Rows) > t.VisibleCount {
		lines = append(lines, dim.Render(fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(t.Rows))))
	}
	return strings.Join(lines, "\n")
}
