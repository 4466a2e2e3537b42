package views

import (
	"fmt"
	"strings"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

// BlockedList shows the blocked IPs with a selection used by unblock.
type BlockedList struct {
	IPs          domain.BlockedIPs
	Width        int
	VisibleCount int
	Cursor       int
	offset       int
}

func NewBlockedList(width int) *BlockedList {
	return &BlockedList{Width: width, VisibleCount: 15}
}

// Update replaces the list and keeps the cursor on the same IP when it is
// still blocked.
func (b *BlockedList) Update(ips domain.BlockedIPs) {
	prev, hadPrev := b.Selected()
	b.IPs = ips

	if hadPrev {
		for i, ip := range ips {
			if ip == prev {
				b.Cursor = i
				return
			}
		}
	}
	if b.Cursor >= len(ips) {
		b.Cursor = max(len(ips)-1, 0)
	}
}

func (b *BlockedList) ScrollUp() {
	if b.Cursor > 0 {
		b.Cursor--
	}
}

func (b *BlockedList) ScrollDown() {
	if b.Cursor < len(b.IPs)-1 {
		b.Cursor++
	}
}

// Selected returns the IP under the cursor.
func (b *BlockedList) Selected() (string, bool) {
	if b.Cursor >= 0 && b.Cursor < len(b.IPs) {
		return b.IPs[b.Cursor], true
	}
	return "", false
}

func (b *BlockedList) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)
	red := p.fg(p.Red)

	if len(b.IPs) == 0 {
		return dim.Italic(true).Render("  No blocked IPs")
	}

	var lines []string
	lines = append(lines, muted.Bold(true).Render(fmt.Sprintf("  %-3s %s", "#", "BLOCKED IP")))
	lines = append(lines, dim.Render("  "+strings.Repeat("─", max(b.Width-4, 10))))

	start, end := window(len(b.IPs), b.VisibleCount, b.Cursor, b.offset)
	b.offset = start

	for i := start; i < end; i++ {
		prefix := "  "
		style := red.Bold(true)
		if i == b.Cursor {
			prefix = "▶ "
			style = p.selected()
		}
		lines = append(lines, fmt.Sprintf("%s%s %s",
			prefix,
			muted.Render(fmt.Sprintf("%2d.", i+1)),
			style.Render(sanitize.IP(b.IPs[i])),
		))
	}

	if len(b.IPs) > b.VisibleCount {
		lines = append(lines, dim.Render(fmt.Sprintf("  [%d-%d of %d]", start+1, end, len(b.IPs))))
	}
	lines = append(lines, "", muted.Render("  press u to unblock the selected IP"))
	return strings.Join(lines, "\n")
}
