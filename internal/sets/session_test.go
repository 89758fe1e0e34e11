package sets

import (
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// orderedRand makes the Fisher-Yates walk a no-op so the deck keeps
// its generation order and deals are fully predictable.
func orderedRand(n int) int {
	return n - 1
}

// eventLog records emitted events for later inspection.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) snapshot() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// trace renders the recorded event kinds as a comma-separated string
// for compact order assertions.
func (l *eventLog) trace() string {
	var parts []string
	for _, ev := range l.snapshot() {
		switch ev.(type) {
		case SessionStarted:
			parts = append(parts, "started")
		case PlayerBanned:
			parts = append(parts, "banned")
		case PlayerUnbanned:
			parts = append(parts, "unbanned")
		case MarketFilled:
			parts = append(parts, "filled")
		case MarketGrab:
			parts = append(parts, "grab")
		case SessionFinished:
			parts = append(parts, "finished")
		}
	}
	return strings.Join(parts, ",")
}

// findNonSet returns three distinct market positions that do not form
// a valid set.
func findNonSet(t *testing.T, cards []Card) [3]int {
	t.Helper()
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			for k := j + 1; k < len(cards); k++ {
				if !IsSet(cards[i], cards[j], cards[k]) {
					return [3]int{i, j, k}
				}
			}
		}
	}
	t.Fatal("market contains only sets")
	return [3]int{}
}

// waitUntil polls cond with a real-time deadline, for effects delivered
// from timer goroutines.
func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newStartedSession(t *testing.T, cfg Config, players int) (*Session, []*Player, *eventLog) {
	t.Helper()

	if cfg.Rand == nil {
		cfg.Rand = orderedRand
	}
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Dispose)

	log := &eventLog{}
	if err := s.Subscribe(log.record); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var ps []*Player
	for range players {
		p, err := s.AddPlayer()
		if err != nil {
			t.Fatalf("AddPlayer: %v", err)
		}
		ps = append(ps, p)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, ps, log
}

func TestStartDealsMarket(t *testing.T) {
	s, _, log := newStartedSession(t, Config{}, 1)

	cards := s.PlayableCards()
	if len(cards) != 12 {
		t.Fatalf("market size after start: got %d, want 12", len(cards))
	}
	if !ContainsSet(cards) {
		t.Error("opening market should contain a set")
	}
	if got := log.trace(); got != "started,filled" {
		t.Errorf("start events: got %q, want %q", got, "started,filled")
	}
}

func TestNewSessionValidation(t *testing.T) {
	if _, err := NewSession(Config{}); err == nil {
		t.Error("expected error for missing Rand")
	}
	if _, err := NewSession(Config{Rand: orderedRand, Variant: "no-such-variant"}); err == nil {
		t.Error("expected error for unknown variant")
	}
}

func TestAddPlayerAfterStart(t *testing.T) {
	s, _, _ := newStartedSession(t, Config{}, 1)
	if _, err := s.AddPlayer(); err == nil {
		t.Error("expected error adding a player after start")
	}
}

func TestStartWithoutPlayers(t *testing.T) {
	s, err := NewSession(Config{Rand: orderedRand})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Dispose()

	if err := s.Start(); err == nil {
		t.Error("expected error starting with no players")
	}
}

func TestSubscribeSingleListener(t *testing.T) {
	s, err := NewSession(Config{Rand: orderedRand})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Dispose()

	if err := s.Subscribe(func(Event) {}); err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if err := s.Subscribe(func(Event) {}); err == nil {
		t.Error("second Subscribe should fail")
	}

	// After Unsubscribe the slot is free again
	s.Unsubscribe()
	if err := s.Subscribe(func(Event) {}); err != nil {
		t.Errorf("Subscribe after Unsubscribe: %v", err)
	}
}

func TestClaimValidSet(t *testing.T) {
	s, ps, log := newStartedSession(t, Config{}, 1)
	p := ps[0]

	before := s.PlayableCards()
	idx, ok := FindSet(before)
	if !ok {
		t.Fatal("no set in opening market")
	}

	if !p.ClaimSet(idx[0], idx[1], idx[2]) {
		t.Fatal("valid claim rejected")
	}
	if p.Score() != 1 {
		t.Errorf("score after claim: got %d, want 1", p.Score())
	}

	after := s.PlayableCards()
	if len(after) != 12 {
		t.Errorf("market size after refill: got %d, want 12", len(after))
	}
	// Claimed positions hold fresh cards; deck cards are unique so
	// they cannot equal the removed ones.
	for _, pos := range idx {
		if after[pos] == before[pos] {
			t.Errorf("position %d not refilled", pos)
		}
	}

	if got := log.trace(); got != "started,filled,grab,filled" {
		t.Errorf("events after claim: got %q", got)
	}
}

func TestClaimBadIndices(t *testing.T) {
	s, ps, log := newStartedSession(t, Config{NextBanDuration: EscalatingBans(time.Second, 2)}, 1)
	p := ps[0]

	cases := [][3]int{
		{0, 1, 12},  // out of range
		{-1, 1, 2},  // negative
		{3, 3, 5},   // duplicate
		{7, 7, 7},   // all duplicates
	}
	for _, c := range cases {
		if p.ClaimSet(c[0], c[1], c[2]) {
			t.Errorf("claim %v should fail", c)
		}
	}

	if p.Score() != 0 {
		t.Errorf("score changed on bad-index claims: %d", p.Score())
	}
	if p.Banned() {
		t.Error("bad indices must not ban the player")
	}
	if got := log.trace(); got != "started,filled" {
		t.Errorf("unexpected events: %q", got)
	}
	if len(s.PlayableCards()) != 12 {
		t.Error("market changed on rejected claims")
	}
}

func TestClaimNonSetBansPlayer(t *testing.T) {
	s, ps, log := newStartedSession(t, Config{
		NextBanDuration: EscalatingBans(5*time.Second, 2),
		Clock:           clockwork.NewFakeClock(),
	}, 2)
	p := ps[0]

	bad := findNonSet(t, s.PlayableCards())
	if p.ClaimSet(bad[0], bad[1], bad[2]) {
		t.Fatal("non-set claim reported success")
	}
	if !p.Banned() {
		t.Fatal("player should be banned after a wrong claim")
	}
	if ps[1].Banned() {
		t.Error("other player should not be banned")
	}

	// Banned players cannot claim, even a valid set
	idx, ok := FindSet(s.PlayableCards())
	if !ok {
		t.Fatal("no set in market")
	}
	if p.ClaimSet(idx[0], idx[1], idx[2]) {
		t.Error("banned player's claim should be rejected")
	}
	if !ps[1].ClaimSet(idx[0], idx[1], idx[2]) {
		t.Error("unbanned player's claim should succeed")
	}

	events := log.snapshot()
	var ban PlayerBanned
	found := false
	for _, ev := range events {
		if b, ok := ev.(PlayerBanned); ok {
			ban = b
			found = true
		}
	}
	if !found {
		t.Fatal("no PlayerBanned event emitted")
	}
	if ban.Player != p {
		t.Error("ban event names the wrong player")
	}
	if ban.Timeout != 5*time.Second {
		t.Errorf("ban timeout: got %v, want 5s", ban.Timeout)
	}
}

func TestUnbanAfterTimeout(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, ps, log := newStartedSession(t, Config{
		NextBanDuration: EscalatingBans(5*time.Second, 2),
		Clock:           fc,
	}, 1)
	p := ps[0]

	bad := findNonSet(t, s.PlayableCards())
	p.ClaimSet(bad[0], bad[1], bad[2])
	if !p.Banned() {
		t.Fatal("player not banned")
	}

	fc.Advance(5 * time.Second)
	waitUntil(t, time.Second, "unban", func() bool { return !p.Banned() })

	trace := log.trace()
	if !strings.Contains(trace, "unbanned") {
		t.Errorf("no unbanned event in trace %q", trace)
	}

	// The player can claim again after the ban lifts
	idx, ok := FindSet(s.PlayableCards())
	if !ok {
		t.Fatal("no set in market")
	}
	if !p.ClaimSet(idx[0], idx[1], idx[2]) {
		t.Error("claim after unban should succeed")
	}
}

func TestBanEscalation(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, ps, log := newStartedSession(t, Config{
		NextBanDuration: EscalatingBans(5*time.Second, 2),
		Clock:           fc,
	}, 1)
	p := ps[0]

	bad := findNonSet(t, s.PlayableCards())
	p.ClaimSet(bad[0], bad[1], bad[2])
	fc.Advance(5 * time.Second)
	waitUntil(t, time.Second, "first unban", func() bool { return !p.Banned() })

	bad = findNonSet(t, s.PlayableCards())
	p.ClaimSet(bad[0], bad[1], bad[2])

	var timeouts []time.Duration
	for _, ev := range log.snapshot() {
		if b, ok := ev.(PlayerBanned); ok {
			timeouts = append(timeouts, b.Timeout)
		}
	}
	if len(timeouts) != 2 {
		t.Fatalf("ban count: got %d, want 2", len(timeouts))
	}
	if timeouts[0] != 5*time.Second || timeouts[1] != 10*time.Second {
		t.Errorf("ban durations: got %v, want [5s 10s]", timeouts)
	}
}

func TestBanningDisabled(t *testing.T) {
	s, ps, log := newStartedSession(t, Config{}, 1)
	p := ps[0]

	bad := findNonSet(t, s.PlayableCards())
	if p.ClaimSet(bad[0], bad[1], bad[2]) {
		t.Fatal("non-set claim reported success")
	}
	if p.Banned() {
		t.Error("banning disabled, player must not be banned")
	}
	if strings.Contains(log.trace(), "banned") {
		t.Error("no ban event expected with banning disabled")
	}
}

func TestDisposeStopsUnbanTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s, ps, log := newStartedSession(t, Config{
		NextBanDuration: EscalatingBans(time.Second, 2),
		Clock:           fc,
	}, 1)
	p := ps[0]

	bad := findNonSet(t, s.PlayableCards())
	p.ClaimSet(bad[0], bad[1], bad[2])
	if !p.Banned() {
		t.Fatal("player not banned")
	}

	s.Dispose()
	fc.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)

	if strings.Contains(log.trace(), "unbanned") {
		t.Error("unban fired after dispose")
	}
	if p.ClaimSet(0, 1, 2) {
		t.Error("claim accepted after dispose")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s, ps, log := newStartedSession(t, Config{}, 1)

	s.Unsubscribe()
	before := log.trace()

	idx, ok := FindSet(s.PlayableCards())
	if !ok {
		t.Fatal("no set in market")
	}
	ps[0].ClaimSet(idx[0], idx[1], idx[2])

	if got := log.trace(); got != before {
		t.Errorf("events delivered after Unsubscribe: %q", got)
	}
}

func TestPlayThroughToFinish(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	s, ps, log := newStartedSession(t, Config{Rand: r.Intn, Variant: VariantMini}, 1)
	p := ps[0]

	// Mini deck holds 27 cards, so at most 9 claims end the game.
	for claims := 0; claims < 15 && !s.Finished(); claims++ {
		cards := s.PlayableCards()
		idx, ok := FindSet(cards)
		if !ok {
			t.Fatalf("unfinished session with setless market of %d cards", len(cards))
		}
		if !p.ClaimSet(idx[0], idx[1], idx[2]) {
			t.Fatal("valid claim rejected mid-game")
		}
	}

	if !s.Finished() {
		t.Fatal("session did not finish")
	}
	if strings.Count(log.trace(), "finished") != 1 {
		t.Errorf("finished emitted %d times", strings.Count(log.trace(), "finished"))
	}

	winners := s.Winners()
	if len(winners) != 1 || winners[0] != p {
		t.Errorf("winners: got %v, want the sole player", winners)
	}

	// Cards are conserved: claimed sets plus the residue equal the deck
	if got := 3*p.Score() + len(s.PlayableCards()); got != 27 {
		t.Errorf("cards conserved: got %d, want 27", got)
	}

	// Claims after finish are rejected
	if p.ClaimSet(0, 1, 2) {
		t.Error("claim accepted after finish")
	}
}

func TestWinnersTopScore(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	s, ps, _ := newStartedSession(t, Config{Rand: r.Intn, Variant: VariantMini}, 2)

	// Alternate claims between both players until the game ends
	turn := 0
	for claims := 0; claims < 15 && !s.Finished(); claims++ {
		idx, ok := FindSet(s.PlayableCards())
		if !ok {
			t.Fatal("unfinished session with setless market")
		}
		if !ps[turn%2].ClaimSet(idx[0], idx[1], idx[2]) {
			t.Fatal("valid claim rejected")
		}
		turn++
	}
	if !s.Finished() {
		t.Fatal("session did not finish")
	}

	best := ps[0].Score()
	if ps[1].Score() > best {
		best = ps[1].Score()
	}
	for _, w := range s.Winners() {
		if w.Score() != best {
			t.Errorf("winner with score %d, best is %d", w.Score(), best)
		}
	}
	if len(s.Winners()) == 0 {
		t.Error("no winners after finish")
	}
}
