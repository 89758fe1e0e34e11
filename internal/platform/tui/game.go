package tui

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dmkor/tui-sets/internal/bot"
	"github.com/dmkor/tui-sets/internal/config"
	"github.com/dmkor/tui-sets/internal/session"
	"github.com/dmkor/tui-sets/internal/sets"
	"github.com/dmkor/tui-sets/internal/storage"
	"github.com/dmkor/tui-sets/internal/variant"
)

// Match screen layout constants
const (
	defaultFPS  = 30 // View refresh rate when the host does not pick one
	banBarWidth = 24 // Width of the ban countdown gauge
)

// Options carries host-level knobs that are not part of the match rules.
type Options struct {
	// FPS is the view refresh rate.
	FPS int

	// Seed drives the deal and the bots. Zero means time-based.
	Seed int64

	// Width and Height seed the layout before the first resize message.
	Width  int
	Height int
}

// MatchKeyMap defines the key bindings for the match screen.
type MatchKeyMap struct {
	Toggle key.Binding
	Claim  key.Binding
	Back   key.Binding
	Quit   key.Binding
	Help   key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k MatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Claim, k.Back, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k MatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Claim},
		{k.Back, k.Quit, k.Help},
	}
}

// DefaultMatchKeyMap returns default key bindings.
func DefaultMatchKeyMap() MatchKeyMap {
	return MatchKeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(strings.Split(cardKeys, "")...),
			key.WithHelp("1-9/a-l", "toggle card"),
		),
		Claim: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "claim set"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "new match"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more help"),
		),
	}
}

// matchRig bundles a live controller with the bot goroutines playing in
// it. Closing the rig stops the bots and disposes the session.
type matchRig struct {
	ctrl   *session.Controller
	cancel context.CancelFunc
}

// startMatch wires a controller from the match config, starts it, and
// launches one bot per bot seat. Bots occupy the highest seats; seat 0
// is always the local player.
func startMatch(cfg config.MatchConfig, seed int64) (*matchRig, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	names := make([]string, cfg.Players)
	copy(names, cfg.Names)
	for i := cfg.Players - cfg.Bots; i < cfg.Players; i++ {
		if names[i] == "" {
			names[i] = fmt.Sprintf("Bot %d", i-(cfg.Players-cfg.Bots)+1)
		}
	}

	var banPolicy func(prev time.Duration) time.Duration
	if cfg.Bans.Enabled {
		banPolicy = sets.EscalatingBans(cfg.Bans.Base(), cfg.Bans.Growth)
	}

	rng := rand.New(rand.NewSource(seed))
	ctrl, err := session.New(session.Config{
		Players:          cfg.Players,
		Names:            names,
		Rand:             rng.Intn,
		PreventAutoClaim: cfg.PreventAutoClaim,
		NextBanDuration:  banPolicy,
		Variant:          cfg.Variant,
	})
	if err != nil {
		return nil, err
	}
	if err := ctrl.Start(); err != nil {
		ctrl.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	for seat := cfg.Players - cfg.Bots; seat < cfg.Players; seat++ {
		botRng := rand.New(rand.NewSource(seed + int64(seat) + 1))
		botCfg := bot.Config{
			Player:   seat,
			Claim:    ctrl.AttemptClaim,
			View:     ctrl.View,
			Rand:     botRng.Intn,
			MinDelay: cfg.Bot.MinDelay(),
			MaxDelay: cfg.Bot.MaxDelay(),
			Blunder:  cfg.Bot.Blunder,
		}
		go func() {
			//nolint:errcheck // Bots exit with the match context; the error carries nothing actionable.
			bot.Run(ctx, botCfg)
		}()
	}

	return &matchRig{ctrl: ctrl, cancel: cancel}, nil
}

// Close stops the bots and disposes the underlying session. Idempotent.
func (r *matchRig) Close() {
	r.cancel()
	r.ctrl.Close()
}

// GameModel is the Bubble Tea model for a running match. It polls the
// controller view on every tick and renders the market, the players,
// and the end-of-match standings.
type GameModel struct {
	ctrl  *session.Controller
	saver session.ResultSaver
	info  variant.Variant

	view  session.View
	keys  MatchKeyMap
	help  help.Model
	gauge progress.Model

	fps       int
	width     int
	height    int
	startedAt time.Time

	resultSaved bool
	quitting    bool
	backToMenu  bool
}

// NewGameModel creates a match screen over a started controller.
func NewGameModel(ctrl *session.Controller, saver session.ResultSaver, info variant.Variant, fps, width, height int) GameModel {
	if fps <= 0 {
		fps = defaultFPS
	}

	h := help.New()
	h.ShowAll = false

	return GameModel{
		ctrl:      ctrl,
		saver:     saver,
		info:      info,
		keys:      DefaultMatchKeyMap(),
		help:      h,
		gauge:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(banBarWidth), progress.WithoutPercentage()),
		fps:       fps,
		width:     width,
		height:    height,
		startedAt: time.Now(),
	}
}

// Init starts the tick loop.
func (m GameModel) Init() tea.Cmd {
	return tickCmd(m.fps)
}

// Update handles messages.
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case TickMsg:
		return m.handleTick()
	}
	return m, nil
}

// handleKey processes keyboard input.
func (m GameModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Back):
		m.backToMenu = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Claim):
		if !m.view.Finished {
			m.ctrl.RequestLocalClaim()
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.view.Finished {
			return m, nil
		}
		if idx, ok := cardIndexForKey(msg.String()); ok && idx < len(m.view.Cards) {
			m.ctrl.ToggleCard(idx)
		}
		return m, nil
	}

	return m, nil
}

// handleTick refreshes the view snapshot and persists the result once
// the match finishes.
func (m GameModel) handleTick() (tea.Model, tea.Cmd) {
	m.view = m.ctrl.View()

	if m.view.Finished && !m.resultSaved {
		if m.saver != nil {
			//nolint:errcheck // Best-effort save, the standings screen shows regardless
			m.saver.SaveResult(session.NewResult(m.view, m.info.ID, time.Since(m.startedAt)))
		}
		m.resultSaved = true
	}

	return m, tickCmd(m.fps)
}

// View renders the match screen.
func (m GameModel) View() string {
	if m.quitting || m.backToMenu {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(centerText("  S E T S  ", m.width)))
	b.WriteString("\n")
	b.WriteString(centerText(m.info.Title, m.width))
	b.WriteString("\n\n")

	if m.view.Finished {
		b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.renderStandings()))
	} else {
		b.WriteString(m.renderTable())
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderTable draws the live market grid with the player block below.
func (m GameModel) renderTable() string {
	var b strings.Builder

	if len(m.view.Cards) == 0 {
		b.WriteString(centerText("Shuffling the deck...", m.width))
		b.WriteString("\n")
		return b.String()
	}

	columns := m.info.MarketTarget / 3
	grid := renderMarket(m.view.Cards, m.view.Selection, columns)
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, grid))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.renderPlayers()))
	b.WriteString("\n")

	return b.String()
}

// renderPlayers draws one line per seat: name, score, and the ban
// countdown gauge while the seat is locked out.
func (m GameModel) renderPlayers() string {
	localStyle := lipgloss.NewStyle().Bold(true)

	var b strings.Builder
	for i, name := range m.view.Names {
		if i > 0 {
			b.WriteString("\n")
		}

		label := fmt.Sprintf("%-14s %3d", name, m.view.Scores[i])
		if i == 0 {
			label = localStyle.Render(label)
		}
		b.WriteString(label)

		if p, banned := m.view.Bans[i]; banned {
			b.WriteString("  ")
			b.WriteString(m.gauge.ViewAs(p / 100))
		}
	}
	return b.String()
}

// renderStandings draws the end-of-match box: winners first, then every
// seat sorted by score.
func (m GameModel) renderStandings() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("229")).
		Padding(1, 3).
		Align(lipgloss.Center)
	winnerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))

	order := make([]int, len(m.view.Names))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.view.Scores[order[a]] > m.view.Scores[order[b]]
	})

	best := 0
	for _, score := range m.view.Scores {
		if score > best {
			best = score
		}
	}
	var winners []string
	for _, i := range order {
		if m.view.Scores[i] == best {
			winners = append(winners, m.view.Names[i])
		}
	}

	headline := fmt.Sprintf("Winner: %s", strings.Join(winners, ", "))
	if len(winners) > 1 {
		headline = fmt.Sprintf("Draw: %s", strings.Join(winners, ", "))
	}

	var b strings.Builder
	b.WriteString(winnerStyle.Render("MATCH OVER"))
	b.WriteString("\n\n")
	b.WriteString(headline)
	b.WriteString("\n\n")
	for rank, i := range order {
		b.WriteString(fmt.Sprintf("%d. %-14s %3d", rank+1, m.view.Names[i], m.view.Scores[i]))
		if rank < len(order)-1 {
			b.WriteString("\n")
		}
	}

	return boxStyle.Render(b.String())
}

// IsQuitting returns true if user requested to quit entirely.
func (m GameModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user requested a new match.
func (m GameModel) BackToMenu() bool {
	return m.backToMenu
}

// Run starts a match over the given config and blocks until the player
// leaves. The returned flag is true when the player backed out to play
// another match rather than quitting.
func Run(match config.MatchConfig, store *storage.Store, opts Options) (playAgain bool, err error) {
	rig, err := startMatch(match, opts.Seed)
	if err != nil {
		return false, err
	}
	defer rig.Close()

	info, err := variant.Get(rig.ctrl.Variant())
	if err != nil {
		return false, err
	}

	var saver session.ResultSaver
	if store != nil {
		saver = store
	}

	model := NewGameModel(rig.ctrl, saver, info, opts.FPS, opts.Width, opts.Height)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // Enable mouse (for future use)
	)

	finalModel, err := p.Run()
	if err != nil {
		return false, err
	}

	if m, ok := finalModel.(GameModel); ok {
		return m.BackToMenu(), nil
	}
	return false, nil
}
