package views

import (
	"fmt"
	"strings"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/pkg/sanitize"
)

// TopSources lists the highest-volume IPs with a relative meter.
type TopSources struct {
	Sources []domain.IPCount
	Blocked domain.BlockedIPs
	Width   int
	// Classify decides the color of each entry.
	Classify func(ip string, count int64, blocked domain.BlockedIPs) domain.Status
}

func NewTopSources(width int) *TopSources {
	return &TopSources{Width: width, Classify: domain.Classify}
}

func (v *TopSources) Update(sources []domain.IPCount, blocked domain.BlockedIPs) {
	v.Sources = sources
	v.Blocked = blocked
}

func (v *TopSources) Render(p Palette) string {
	dim := p.fg(p.Dim)
	muted := p.fg(p.Muted)

	if len(v.Sources) == 0 {
		return dim.Italic(true).Render("  No traffic recorded")
	}

	var lines []string
	lines = append(lines, muted.Bold(true).Render(fmt.Sprintf(" %-3s %-39s %-20s %s", "#", "IP", "PACKETS", "STATUS")))
	lines = append(lines, dim.Render(strings.Repeat("─", max(v.Width, 10))))

	maxCount := v.Sources[0].Count
	for i, src := range v.Sources {
		status := v.Classify(src.IP, src.Count, v.Blocked)
		style := statusStyle(p, status)

		lines = append(lines, fmt.Sprintf(" %s %s %s %s",
			muted.Render(fmt.Sprintf("%2d.", i+1)),
			style.Render(padRight(sanitize.IP(src.IP), 39)),
			style.Render(fmt.Sprintf("%s %7s", bar(src.Count, maxCount, 10), fmtLarge(src.Count))),
			style.Render(status.String()),
		))
	}

	return strings.Join(lines, "\n")
}
