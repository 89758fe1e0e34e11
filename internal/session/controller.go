// Package session implements the controller between the game engine
// and a presentation layer: it keeps a renderable view of the market,
// the local player's selection, per-player ban countdowns, and scores
// in sync with engine lifecycle events, and mediates claim attempts
// for every seat.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmkor/tui-sets/internal/sets"
)

// ClaimFunc attempts a set claim on behalf of the given player. Hosts
// obtain one through Config.OnStarted to drive any seat
// programmatically (bots, remote bridges).
type ClaimFunc func(player int, indices []int) bool

// Config configures a new controller. Players and Rand are required.
type Config struct {
	// Players is the number of seats, at least 1. Index 0 is the
	// local player.
	Players int

	// Names holds display names by seat. Missing or empty entries
	// fall back to "Player N".
	Names []string

	// Rand returns a value in [0, n); it seeds the engine's deal.
	Rand func(n int) int

	// PreventAutoClaim makes RequestLocalClaim notify the observer
	// without dispatching the claim.
	PreventAutoClaim bool

	// NextBanDuration is handed to the engine as its ban policy.
	// Nil disables banning.
	NextBanDuration func(prev time.Duration) time.Duration

	// Variant selects the engine rule set by ID. Empty means classic.
	Variant string

	// Clock drives ban tick timing and the engine's unban timers.
	// Nil means the real clock.
	Clock clockwork.Clock

	// OnToggle observes local selection toggles.
	OnToggle func(index int, selected bool)

	// OnClaimRequest observes the selection of every local claim
	// attempt, dispatched or not.
	OnClaimRequest func(indices []int)

	// OnStarted receives the claim capability when the session
	// starts.
	OnStarted func(claim ClaimFunc)
}

// Controller owns one engine session and its player handles. It folds
// engine events and ban ticks into a view model; all exported methods
// are safe for concurrent use.
type Controller struct {
	session *sets.Session
	players []*sets.Player
	clock   clockwork.Clock

	preventAutoClaim bool
	onToggle         func(index int, selected bool)
	onClaimRequest   func(indices []int)
	onStarted        func(claim ClaimFunc)

	mu       sync.Mutex
	names    []string
	cards    []sets.Card
	sel      *selection
	scores   map[int]int
	bans     map[int]*banTimer
	finished bool
	closed   bool

	closeOnce sync.Once
}

// New creates a controller: one engine session configured with the
// injected rand and ban policy, the event subscription, and exactly
// cfg.Players handles registered in index order. Engine construction
// and subscription failures surface before any player handle exists.
func New(cfg Config) (*Controller, error) {
	if cfg.Players < 1 {
		return nil, fmt.Errorf("session: needs at least one player, got %d", cfg.Players)
	}
	if cfg.Rand == nil {
		return nil, fmt.Errorf("session: config requires a Rand source")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	engine, err := sets.NewSession(sets.Config{
		Rand:            cfg.Rand,
		NextBanDuration: cfg.NextBanDuration,
		Variant:         cfg.Variant,
		Clock:           clock,
	})
	if err != nil {
		return nil, fmt.Errorf("session: create engine session: %w", err)
	}

	names := make([]string, cfg.Players)
	for i := range names {
		if i < len(cfg.Names) && cfg.Names[i] != "" {
			names[i] = cfg.Names[i]
		} else {
			names[i] = fmt.Sprintf("Player %d", i+1)
		}
	}

	c := &Controller{
		session:          engine,
		clock:            clock,
		preventAutoClaim: cfg.PreventAutoClaim,
		onToggle:         cfg.OnToggle,
		onClaimRequest:   cfg.OnClaimRequest,
		onStarted:        cfg.OnStarted,
		names:            names,
		sel:              newSelection(),
		scores:           make(map[int]int, cfg.Players),
		bans:             make(map[int]*banTimer),
	}

	if err := engine.Subscribe(c.handleEvent); err != nil {
		engine.Dispose()
		return nil, fmt.Errorf("session: subscribe: %w", err)
	}

	for i := 0; i < cfg.Players; i++ {
		p, err := engine.AddPlayer()
		if err != nil {
			engine.Unsubscribe()
			engine.Dispose()
			return nil, fmt.Errorf("session: add player %d: %w", i, err)
		}
		c.players = append(c.players, p)
		c.scores[i] = 0
	}

	return c, nil
}

// Start begins the engine session: the opening deal fires and events
// start flowing.
func (c *Controller) Start() error {
	return c.session.Start()
}

// Close tears the controller down: every ban timer is cancelled, the
// engine subscription is released, and the session is disposed.
// Idempotent.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		timers := c.bans
		c.bans = make(map[int]*banTimer)
		c.mu.Unlock()

		for _, t := range timers {
			t.cancel()
		}
		c.session.Unsubscribe()
		c.session.Dispose()
	})
}

// Players returns the number of seats.
func (c *Controller) Players() int {
	return len(c.players)
}

// Variant returns the rule set ID the engine session plays.
func (c *Controller) Variant() string {
	return c.session.Variant()
}

// AttemptClaim clears the selection unconditionally, then asks the
// player's handle to claim the three market positions. Validity, ban
// state, and staleness are all engine verdicts; a wrong index count or
// an unknown seat fails without reaching the engine.
func (c *Controller) AttemptClaim(player int, indices []int) bool {
	c.mu.Lock()
	c.sel.Clear()
	var handle *sets.Player
	if player >= 0 && player < len(c.players) {
		handle = c.players[player]
	}
	closed := c.closed
	c.mu.Unlock()

	if closed || handle == nil || len(indices) != 3 {
		return false
	}
	return handle.ClaimSet(indices[0], indices[1], indices[2])
}

// RequestLocalClaim reports the current selection to the claim
// observer and, unless the controller is in prevent-auto-claim mode,
// dispatches it on behalf of the local player. In prevent mode nothing
// is dispatched and the selection survives.
func (c *Controller) RequestLocalClaim() bool {
	c.mu.Lock()
	indices := c.sel.Indices()
	c.mu.Unlock()

	if c.onClaimRequest != nil {
		c.onClaimRequest(indices)
	}
	if c.preventAutoClaim {
		return false
	}
	return c.AttemptClaim(0, indices)
}

// ToggleCard flips the position in the local selection and reports the
// toggle to the observer. No selection size limit is enforced here;
// the claim affordance is gated on exactly three elsewhere.
func (c *Controller) ToggleCard(index int) {
	c.mu.Lock()
	selected := c.sel.Toggle(index)
	c.mu.Unlock()

	if c.onToggle != nil {
		c.onToggle(index, selected)
	}
}

// View snapshots the controller state for rendering.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Cards:     append([]sets.Card(nil), c.cards...),
		Names:     append([]string(nil), c.names...),
		Selection: c.sel.Indices(),
		Bans:      make(map[int]float64, len(c.bans)),
		Scores:    make(map[int]int, len(c.scores)),
		Finished:  c.finished,
	}
	for idx, t := range c.bans {
		v.Bans[idx] = clampPercent(t.progress)
	}
	for idx, score := range c.scores {
		v.Scores[idx] = score
	}
	return v
}

// BanProgress returns the raw, unclamped ban progress for a player.
// The boolean is false when the player is not banned.
func (c *Controller) BanProgress(player int) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, exists := c.bans[player]
	if !exists {
		return 0, false
	}
	return t.progress, true
}

// handleEvent folds one engine event into controller state. The engine
// delivers events serially and in emission order; ban ticks arrive
// independently and are guarded in the timer code.
func (c *Controller) handleEvent(ev sets.Event) {
	switch ev := ev.(type) {
	case sets.SessionStarted:
		c.handleStarted()
	case sets.PlayerBanned:
		c.startBan(ev.Player.Index(), ev.Timeout)
	case sets.PlayerUnbanned:
		c.stopBan(ev.Player.Index())
	case sets.MarketFilled:
		c.refreshMarket()
	case sets.MarketGrab:
		c.refreshScores()
	case sets.SessionFinished:
		c.finish()
	}
}

// handleStarted hands the claim capability to the host.
func (c *Controller) handleStarted() {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	if c.onStarted != nil && !closed {
		c.onStarted(c.AttemptClaim)
	}
}

// refreshMarket re-binds the visible cards wholesale and drops the
// selection: a position from before the refill may denote an unrelated
// card now.
func (c *Controller) refreshMarket() {
	cards := c.session.PlayableCards()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.cards = cards
	c.sel.Clear()
}

// refreshScores re-reads every player's score wholesale.
func (c *Controller) refreshScores() {
	scores := make(map[int]int, len(c.players))
	for i, p := range c.players {
		scores[i] = p.Score()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.scores = scores
}

// finish latches the finished flag. Nothing ever resets it.
func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.finished = true
}
