package sets

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmkor/tui-sets/internal/variant"
)

// Config configures a new session. Rand is required; everything else
// has a usable zero value.
type Config struct {
	// Rand returns a value in [0, n). It drives the deck shuffle, so
	// the same source replays the same deal.
	Rand func(n int) int

	// NextBanDuration maps a player's previous ban duration (zero for
	// a first offense) to the next one. Nil disables banning entirely.
	NextBanDuration func(prev time.Duration) time.Duration

	// Variant selects the rule set by ID. Empty means classic.
	Variant string

	// Clock is the time source for unban scheduling. Nil means the
	// real clock; tests inject a fake.
	Clock clockwork.Clock
}

// Session is one authoritative game: a shuffled deck, the face-up
// market, and the players seated at it. Sessions emit Events to a
// single subscribed listener; all exported methods are safe for
// concurrent use.
type Session struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	nextBan func(prev time.Duration) time.Duration
	rules   variant.Variant

	deck    []Card
	market  []Card
	players []*Player

	// unbanTimers holds the pending unban timer per banned player
	// index. Guarded by mu.
	unbanTimers map[int]clockwork.Timer

	started  bool
	finished bool
	disposed bool

	done     chan struct{}
	doneOnce sync.Once

	// emitMu serializes event dispatch so the listener observes
	// events one at a time, in emission order. Never held together
	// with mu.
	emitMu   sync.Mutex
	listener func(Event)
}

// Player is a seat at a session. Handles are created in index order by
// AddPlayer and stay valid for the session's lifetime.
type Player struct {
	session *Session
	index   int

	// Guarded by session.mu.
	score   int
	banned  bool
	lastBan time.Duration
}

// NewSession creates a session for the configured variant with a
// freshly shuffled deck. It fails on a missing Rand or an unknown
// variant; no players exist yet.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Rand == nil {
		return nil, fmt.Errorf("sets: config requires a Rand source")
	}

	id := cfg.Variant
	if id == "" {
		id = VariantClassic
	}
	rules, err := variant.Get(id)
	if err != nil {
		return nil, fmt.Errorf("sets: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	deck := newDeck(rules.Features)
	shuffle(deck, cfg.Rand)

	return &Session{
		clock:       clock,
		nextBan:     cfg.NextBanDuration,
		rules:       rules,
		deck:        deck,
		unbanTimers: make(map[int]clockwork.Timer),
		done:        make(chan struct{}),
	}, nil
}

// Variant returns the ID of the rule set this session plays.
func (s *Session) Variant() string {
	return s.rules.ID
}

// AddPlayer seats a new player. Players can only be added before Start.
func (s *Session) AddPlayer() (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, fmt.Errorf("sets: session is disposed")
	}
	if s.started {
		return nil, fmt.Errorf("sets: cannot add players after start")
	}

	p := &Player{session: s, index: len(s.players)}
	s.players = append(s.players, p)
	return p, nil
}

// Subscribe registers the session's single event listener. Registering
// a second listener is an error; there is no partial subscription.
func (s *Session) Subscribe(fn func(Event)) error {
	if fn == nil {
		return fmt.Errorf("sets: nil event listener")
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("sets: session already has a listener")
	}
	s.listener = fn
	return nil
}

// Unsubscribe removes the listener. It waits for any in-flight event
// dispatch to complete, so no callback runs after it returns.
func (s *Session) Unsubscribe() {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.listener = nil
}

// Start deals the opening market and emits SessionStarted followed by
// MarketFilled. At least one player must be seated.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return fmt.Errorf("sets: session is disposed")
	}
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("sets: session already started")
	}
	if len(s.players) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("sets: session needs at least one player")
	}

	s.started = true
	for len(s.market) < s.rules.MarketTarget && len(s.deck) > 0 {
		s.market = append(s.market, s.draw())
	}
	s.extendWhileSetless()
	s.mu.Unlock()

	s.emit(SessionStarted{}, MarketFilled{})
	return nil
}

// Dispose tears the session down: pending unban timers are stopped and
// drained, and further claims are rejected. Idempotent; emits nothing.
func (s *Session) Dispose() {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.disposed = true
		timers := s.unbanTimers
		s.unbanTimers = make(map[int]clockwork.Timer)
		s.mu.Unlock()

		close(s.done)
		for _, t := range timers {
			stopAndDrainTimer(t)
		}
	})
}

// PlayableCards returns a copy of the current face-up market.
func (s *Session) PlayableCards() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := make([]Card, len(s.market))
	copy(cards, s.market)
	return cards
}

// Finished reports whether the game has ended.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Winners returns the players holding the top score. Nil until the
// session has finished.
func (s *Session) Winners() []*Player {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.finished {
		return nil
	}

	best := 0
	for _, p := range s.players {
		if p.score > best {
			best = p.score
		}
	}
	var winners []*Player
	for _, p := range s.players {
		if p.score == best {
			winners = append(winners, p)
		}
	}
	return winners
}

// ClaimSet asserts that the market cards at positions i, j, k form a
// valid set. On success the player scores, the market refills, and
// MarketGrab then MarketFilled are emitted. Claiming a non-set gets
// the player banned when banning is enabled. Claims from banned
// players, claims with bad indices, and claims after finish or dispose
// simply return false.
func (p *Player) ClaimSet(i, j, k int) bool {
	s := p.session

	s.mu.Lock()
	if !s.started || s.finished || s.disposed || p.banned {
		s.mu.Unlock()
		return false
	}
	if !validIndices(len(s.market), i, j, k) {
		s.mu.Unlock()
		return false
	}

	if !IsSet(s.market[i], s.market[j], s.market[k]) {
		events := s.banLocked(p)
		s.mu.Unlock()
		s.emit(events...)
		return false
	}

	p.score++
	s.replaceClaimed(i, j, k)
	s.extendWhileSetless()

	events := []Event{MarketGrab{}, MarketFilled{}}
	if len(s.deck) == 0 && !ContainsSet(s.market) {
		s.finished = true
		events = append(events, SessionFinished{})
	}
	s.mu.Unlock()

	s.emit(events...)
	return true
}

// Score returns the player's current score.
func (p *Player) Score() int {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.score
}

// Index returns the player's seat index, assigned in AddPlayer order.
func (p *Player) Index() int {
	return p.index
}

// Banned reports whether the player is currently suspended.
func (p *Player) Banned() bool {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.banned
}

// draw pops the next card off the deck. Caller holds mu.
func (s *Session) draw() Card {
	card := s.deck[len(s.deck)-1]
	s.deck = s.deck[:len(s.deck)-1]
	return card
}

// replaceClaimed removes the three claimed positions, refilling them in
// place from the deck while the market is at its target size. When the
// market was extended beyond the target, or the deck runs dry, the
// positions are compacted away instead. Caller holds mu.
func (s *Session) replaceClaimed(i, j, k int) {
	picked := [3]int{i, j, k}
	refill := len(s.market) <= s.rules.MarketTarget

	var leftover []int
	for _, pos := range picked {
		if refill && len(s.deck) > 0 {
			s.market[pos] = s.draw()
		} else {
			leftover = append(leftover, pos)
		}
	}

	// Compact unreplaced positions from the highest index down so the
	// lower ones stay valid while removing.
	for len(leftover) > 0 {
		high := 0
		for n, pos := range leftover {
			if pos > leftover[high] {
				high = n
			}
		}
		pos := leftover[high]
		s.market = append(s.market[:pos], s.market[pos+1:]...)
		leftover = append(leftover[:high], leftover[high+1:]...)
	}
}

// extendWhileSetless grows the market by RefillStep cards at a time
// until it contains a set or the deck is exhausted. Caller holds mu.
func (s *Session) extendWhileSetless() {
	for !ContainsSet(s.market) && len(s.deck) > 0 {
		for range s.rules.RefillStep {
			if len(s.deck) == 0 {
				break
			}
			s.market = append(s.market, s.draw())
		}
	}
}

// banLocked suspends the player and arms the unban timer, replacing any
// stale timer left for the same seat. Returns the events to emit after
// mu is released; nil when banning is disabled. Caller holds mu.
func (s *Session) banLocked(p *Player) []Event {
	if s.nextBan == nil {
		return nil
	}
	d := s.nextBan(p.lastBan)
	if d <= 0 {
		return nil
	}

	p.lastBan = d
	p.banned = true

	timer := s.clock.NewTimer(d)
	if old, exists := s.unbanTimers[p.index]; exists {
		stopAndDrainTimer(old)
	}
	s.unbanTimers[p.index] = timer
	go s.awaitUnban(p, timer)

	return []Event{PlayerBanned{Player: p, Timeout: d}}
}

// awaitUnban waits for the player's unban timer, racing session
// teardown.
func (s *Session) awaitUnban(p *Player, timer clockwork.Timer) {
	select {
	case <-timer.Chan():
		s.unban(p, timer)
	case <-s.done:
		stopAndDrainTimer(timer)
	}
}

// unban lifts the player's suspension and emits PlayerUnbanned. The
// timer identity check guards against a fire that raced a replacement
// or teardown.
func (s *Session) unban(p *Player, timer clockwork.Timer) {
	s.mu.Lock()
	if s.disposed || !p.banned || s.unbanTimers[p.index] != timer {
		s.mu.Unlock()
		return
	}
	p.banned = false
	delete(s.unbanTimers, p.index)
	s.mu.Unlock()

	s.emit(PlayerUnbanned{Player: p})
}

// emit delivers events to the listener, serialized so emission order is
// observation order. Must not be called with mu held: listeners call
// back into session reads.
func (s *Session) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.listener == nil {
		return
	}
	for _, ev := range events {
		s.listener(ev)
	}
}

// validIndices reports whether i, j, k are three distinct positions
// inside a market of the given size.
func validIndices(size, i, j, k int) bool {
	if i < 0 || i >= size || j < 0 || j >= size || k < 0 || k >= size {
		return false
	}
	return i != j && j != k && i != k
}

// stopAndDrainTimer stops a timer and drains a pending fire so no
// goroutine is left blocked on its channel.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// EscalatingBans returns the standard ban policy: base for a first
// offense, then the previous duration multiplied by growth.
func EscalatingBans(base time.Duration, growth float64) func(prev time.Duration) time.Duration {
	return func(prev time.Duration) time.Duration {
		if prev <= 0 {
			return base
		}
		return time.Duration(float64(prev) * growth)
	}
}
