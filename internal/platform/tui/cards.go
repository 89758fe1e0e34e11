package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmkor/tui-sets/internal/sets"
)

// Card cell layout constants
const (
	cardInnerWidth = 7 // Room for three glyphs with spacing
)

// symbolGlyphs maps (shape, shading) to the glyph drawn on a card.
// Shading picks the solid, striped, or open variant of the shape.
var symbolGlyphs = [3][3]string{
	{"▲", "◭", "△"}, // triangles
	{"■", "▥", "□"}, // squares
	{"●", "◐", "○"}, // circles
}

// symbolColors maps a card's color feature to a lipgloss style.
var symbolColors = [3]lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("9")),  // red
	lipgloss.NewStyle().Foreground(lipgloss.Color("10")), // green
	lipgloss.NewStyle().Foreground(lipgloss.Color("13")), // purple
}

// Card frame styles. The selected frame is thicker and brighter so a
// picked card reads at a glance.
var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(cardInnerWidth).
			Align(lipgloss.Center)

	cardSelectedStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("229")).
				Width(cardInnerWidth).
				Align(lipgloss.Center)

	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderCard draws one market card as a bordered cell: the symbol row on
// top, the toggle key label underneath.
func renderCard(card sets.Card, label string, selected bool) string {
	shape := int(card.Shape) % 3
	shading := int(card.Shading) % 3
	glyph := symbolGlyphs[shape][shading]

	symbols := strings.TrimSpace(strings.Repeat(glyph+" ", int(card.Count)+1))
	content := symbolColors[int(card.Color)%3].Render(symbols) + "\n" + cardLabelStyle.Render(label)

	if selected {
		return cardSelectedStyle.Render(content)
	}
	return cardStyle.Render(content)
}

// renderMarket lays the face-up cards out in a grid with the given
// column count. Extended markets simply wrap onto extra rows.
func renderMarket(cards []sets.Card, selection []int, columns int) string {
	if columns < 1 {
		columns = 1
	}

	selected := make(map[int]bool, len(selection))
	for _, idx := range selection {
		selected[idx] = true
	}

	var rows []string
	for start := 0; start < len(cards); start += columns {
		end := start + columns
		if end > len(cards) {
			end = len(cards)
		}

		cells := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			cells = append(cells, renderCard(cards[i], cardKeyLabel(i), selected[i]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
