package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/tui/views"
)

var DarkPalette = views.Palette{
	Bg:         lipgloss.Color("#0a0a0a"),
	BgAlt:      lipgloss.Color("#0f0f0f"),
	Border:     lipgloss.Color("#1a3a1a"),
	Primary:    lipgloss.Color("#00ff41"),
	PrimaryDim: lipgloss.Color("#00aa2a"),
	Amber:      lipgloss.Color("#ffb000"),
	Red:        lipgloss.Color("#ff3333"),
	Cyan:       lipgloss.Color("#00b8ff"),
	Text:       lipgloss.Color("#e5e5e5"),
	Muted:      lipgloss.Color("#707070"),
	Dim:        lipgloss.Color("#404040"),
	Ghost:      lipgloss.Color("#252525"),
	Select:     lipgloss.Color("#003300"),
	SelectFg:   lipgloss.Color("#00ff41"),
}

var LightPalette = views.Palette{
	Bg:         lipgloss.Color("#fafafa"),
	BgAlt:      lipgloss.Color("#eeeeee"),
	Border:     lipgloss.Color("#b8d8b8"),
	Primary:    lipgloss.Color("#007a1f"),
	PrimaryDim: lipgloss.Color("#2e8b3d"),
	Amber:      lipgloss.Color("#b36b00"),
	Red:        lipgloss.Color("#c62828"),
	Cyan:       lipgloss.Color("#0069a8"),
	Text:       lipgloss.Color("#1a1a1a"),
	Muted:      lipgloss.Color("#5f5f5f"),
	Dim:        lipgloss.Color("#9e9e9e"),
	Ghost:      lipgloss.Color("#cfcfcf"),
	Select:     lipgloss.Color("#cdebd3"),
	SelectFg:   lipgloss.Color("#00511a"),
}

func PaletteFor(t app.Theme) views.Palette {
	if t == app.ThemeLight {
		return LightPalette
	}
	return DarkPalette
}

func headerStyle(p views.Palette) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(p.Primary).Bold(true)
}
