package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/variant"
)

// maxSetupPlayers caps the seat count offered by the setup screen.
// The engine itself has no upper bound.
const maxSetupPlayers = 6

// Setup screen rows, top to bottom.
const (
	rowVariant = iota
	rowPlayers
	rowBots
	rowDifficulty
	rowStart
	rowCount
)

// SetupModel is the Bubble Tea model for the match setup screen. It
// edits a copy of the base match config and hands the result back
// through Selected.
type SetupModel struct {
	base       config.MatchConfig
	variants   []variant.Variant
	presets    []config.DifficultyPreset
	variantIdx int
	presetIdx  int
	players    int
	bots       int
	cursor     int
	width      int
	height     int
	keyMapper  *KeyMapper
	quitting   bool
	done       bool
}

// NewSetupModel creates a setup screen seeded from the given config.
func NewSetupModel(base config.MatchConfig, width, height int) SetupModel {
	m := SetupModel{
		base:      base,
		variants:  variant.List(),
		presets:   config.Presets(),
		presetIdx: 1, // standard
		players:   base.Players,
		bots:      base.Bots,
		width:     width,
		height:    height,
		keyMapper: NewKeyMapper(),
	}

	for i, v := range m.variants {
		if v.ID == base.Variant {
			m.variantIdx = i
			break
		}
	}

	if m.players < 1 {
		m.players = 1
	}
	if m.players > maxSetupPlayers {
		m.players = maxSetupPlayers
	}
	m.clampBots()

	return m
}

// clampBots keeps at least one human seat and never more bots than the
// table has room for.
func (m *SetupModel) clampBots() {
	if m.bots > m.players-1 {
		m.bots = m.players - 1
	}
	if m.bots < 0 {
		m.bots = 0
	}
}

// Init initializes the setup model.
func (m SetupModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the setup screen.
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input for setup navigation.
func (m SetupModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keyMapper.MapKeyToMenuAction(msg)

	switch action {
	case MenuActionQuit, MenuActionBack:
		m.quitting = true
		return m, tea.Quit

	case MenuActionUp:
		if m.cursor > 0 {
			m.cursor--
		}

	case MenuActionDown:
		if m.cursor < rowCount-1 {
			m.cursor++
		}

	case MenuActionLeft:
		m.adjust(-1)

	case MenuActionRight:
		m.adjust(1)

	case MenuActionSelect:
		if m.cursor == rowStart {
			m.done = true
			return m, tea.Quit
		}
		m.adjust(1)
	}

	return m, nil
}

// adjust shifts the value under the cursor by delta. Variant and
// difficulty wrap around; seat counts clamp.
func (m *SetupModel) adjust(delta int) {
	switch m.cursor {
	case rowVariant:
		if n := len(m.variants); n > 0 {
			m.variantIdx = (m.variantIdx + delta + n) % n
		}

	case rowPlayers:
		m.players += delta
		if m.players < 1 {
			m.players = 1
		}
		if m.players > maxSetupPlayers {
			m.players = maxSetupPlayers
		}
		m.clampBots()

	case rowBots:
		m.bots += delta
		m.clampBots()

	case rowDifficulty:
		if n := len(m.presets); n > 0 {
			m.presetIdx = (m.presetIdx + delta + n) % n
		}
	}
}

// View renders the setup screen.
func (m SetupModel) View() string {
	if m.quitting || m.done {
		return ""
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(centerText("  S E T S  ", m.width)))
	b.WriteString("\n\n")
	b.WriteString(centerText("Match setup", m.width))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Variant", m.variants[m.variantIdx].Title},
		{"Players", fmt.Sprintf("%d", m.players)},
		{"Bots", fmt.Sprintf("%d", m.bots)},
		{"Difficulty", string(m.presets[m.presetIdx])},
		{"Start match", ""},
	}

	for i, row := range rows {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		line := fmt.Sprintf("%s%-12s", cursor, row.label)
		if row.value != "" {
			line = fmt.Sprintf("%s%-12s < %s >", cursor, row.label, row.value)
		}
		b.WriteString(centerText(line, m.width))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(centerText(m.variants[m.variantIdx].Description, m.width)))
	b.WriteString("\n\n")

	controls := "Up/Down: Navigate  |  Left/Right: Adjust  |  Enter: Start  |  Q: Quit"
	b.WriteString(dimStyle.Render(centerText(controls, m.width)))
	b.WriteString("\n")

	return b.String()
}

// Selected returns the configured match, or nil if the user left
// without starting one. The difficulty preset is folded in here.
func (m SetupModel) Selected() *config.MatchConfig {
	if !m.done || len(m.variants) == 0 {
		return nil
	}

	cfg := m.base
	cfg.Variant = m.variants[m.variantIdx].ID
	cfg.Players = m.players
	cfg.Bots = m.bots
	config.ApplyDifficulty(&cfg, m.presets[m.presetIdx])
	return &cfg
}

// IsQuitting returns true if user requested to quit.
func (m SetupModel) IsQuitting() bool {
	return m.quitting
}

// RunSetup runs the setup screen and returns the configured match, or
// nil when the user quit instead of starting one.
func RunSetup(base config.MatchConfig, width, height int) (*config.MatchConfig, error) {
	model := NewSetupModel(base, width, height)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}

	m, ok := finalModel.(SetupModel)
	if !ok {
		return nil, nil
	}

	return m.Selected(), nil
}

// centerText centers text within given width.
func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}
