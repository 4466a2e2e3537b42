package views

import "github.com/charmbracelet/lipgloss"

// Palette is the set of colors every view renders with.
type Palette struct {
	Bg         lipgloss.Color
	BgAlt      lipgloss.Color
	Border     lipgloss.Color
	Primary    lipgloss.Color
	PrimaryDim lipgloss.Color
	Amber      lipgloss.Color
	Red        lipgloss.Color
	Cyan       lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Dim        lipgloss.Color
	Ghost      lipgloss.Color
	Select     lipgloss.Color
	SelectFg   lipgloss.Color
}

func (p Palette) fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func (p Palette) selected() lipgloss.Style {
	return lipgloss.NewStyle().Background(p.Select).Foreground(p.SelectFg).Bold(true)
}
