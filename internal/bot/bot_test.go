package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmkor/tui-sets/internal/session"
	"github.com/dmkor/tui-sets/internal/sets"
)

// testMarket has exactly one set, positions 0-2, and plenty of
// adjacent non-set windows for blunders.
func testMarket() []sets.Card {
	return []sets.Card{
		{Count: 0, Shape: 0, Color: 0, Shading: 0},
		{Count: 1, Shape: 1, Color: 1, Shading: 1},
		{Count: 2, Shape: 2, Color: 2, Shading: 2},
		{Count: 0, Shape: 1, Color: 2, Shading: 0},
	}
}

// stubTable is a hand-driven stand-in for a session controller.
type stubTable struct {
	mu       sync.Mutex
	view     session.View
	claims   [][]int
	claimers []int
}

func (s *stubTable) View() session.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.view
	if s.view.Bans != nil {
		v.Bans = make(map[int]float64, len(s.view.Bans))
		for seat, p := range s.view.Bans {
			v.Bans[seat] = p
		}
	}
	return v
}

func (s *stubTable) Claim(player int, indices []int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimers = append(s.claimers, player)
	s.claims = append(s.claims, append([]int(nil), indices...))
	return true
}

func (s *stubTable) setBanned(player int, banned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if banned {
		if s.view.Bans == nil {
			s.view.Bans = make(map[int]float64)
		}
		s.view.Bans[player] = 0
	} else {
		delete(s.view.Bans, player)
	}
}

func (s *stubTable) setFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Finished = true
}

func (s *stubTable) claimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *stubTable) firstClaim() ([]int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.claims) == 0 {
		return nil, -1
	}
	return append([]int(nil), s.claims[0]...), s.claimers[0]
}

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

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunValidation(t *testing.T) {
	ctx := context.Background()
	tbl := &stubTable{}

	if err := Run(ctx, Config{}); err == nil {
		t.Error("expected error for missing Claim and View")
	}
	if err := Run(ctx, Config{Claim: tbl.Claim, View: tbl.View}); err == nil {
		t.Error("expected error for nil Rand")
	}
}

func TestBotClaimsFoundSet(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tbl := &stubTable{view: session.View{Cards: testMarket()}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Player:   1,
			Claim:    tbl.Claim,
			View:     tbl.View,
			Clock:    fc,
			Rand:     rand.New(rand.NewSource(7)).Intn,
			MinDelay: 50 * time.Millisecond,
			MaxDelay: 50 * time.Millisecond,
		})
	}()

	fc.BlockUntil(1)
	fc.Advance(50 * time.Millisecond)
	waitUntil(t, time.Second, "the bot to claim", func() bool {
		return tbl.claimCount() >= 1
	})

	indices, claimer := tbl.firstClaim()
	if claimer != 1 {
		t.Errorf("claimed as seat %d, want 1", claimer)
	}
	if !equalInts(indices, []int{0, 1, 2}) {
		t.Errorf("claimed %v, want [0 1 2]", indices)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestBotSkipsWhileBanned(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tbl := &stubTable{view: session.View{Cards: testMarket()}}
	tbl.setBanned(2, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Player:   2,
			Claim:    tbl.Claim,
			View:     tbl.View,
			Clock:    fc,
			Rand:     rand.New(rand.NewSource(3)).Intn,
			MinDelay: 10 * time.Millisecond,
			MaxDelay: 10 * time.Millisecond,
		})
	}()

	for range 3 {
		fc.BlockUntil(1)
		fc.Advance(10 * time.Millisecond)
	}
	// The next registered delay means the previous round is done.
	fc.BlockUntil(1)
	if n := tbl.claimCount(); n != 0 {
		t.Fatalf("banned bot claimed %d times", n)
	}

	tbl.setBanned(2, false)
	fc.Advance(10 * time.Millisecond)
	waitUntil(t, time.Second, "a claim after the ban", func() bool {
		return tbl.claimCount() == 1
	})

	tbl.setFinished()
	fc.BlockUntil(1)
	fc.Advance(10 * time.Millisecond)
	if err := <-done; err != nil {
		t.Errorf("Run returned %v after finish, want nil", err)
	}
}

func TestBotBlunderClaimsMiss(t *testing.T) {
	fc := clockwork.NewFakeClock()
	cards := testMarket()
	tbl := &stubTable{view: session.View{Cards: cards}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Claim:    tbl.Claim,
			View:     tbl.View,
			Clock:    fc,
			Rand:     rand.New(rand.NewSource(11)).Intn,
			MinDelay: 10 * time.Millisecond,
			MaxDelay: 10 * time.Millisecond,
			Blunder:  1,
		})
	}()

	fc.BlockUntil(1)
	fc.Advance(10 * time.Millisecond)
	waitUntil(t, time.Second, "the bot to blunder", func() bool {
		return tbl.claimCount() >= 1
	})

	indices, _ := tbl.firstClaim()
	if len(indices) != 3 {
		t.Fatalf("blunder claimed %v", indices)
	}
	if sets.IsSet(cards[indices[0]], cards[indices[1]], cards[indices[2]]) {
		t.Errorf("blunder %v is a real set", indices)
	}

	cancel()
	<-done
}

func TestBotStopsWhenFinished(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tbl := &stubTable{view: session.View{Finished: true}}

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), Config{
			Claim:    tbl.Claim,
			View:     tbl.View,
			Clock:    fc,
			Rand:     rand.New(rand.NewSource(5)).Intn,
			MinDelay: 10 * time.Millisecond,
			MaxDelay: 10 * time.Millisecond,
		})
	}()

	fc.BlockUntil(1)
	fc.Advance(10 * time.Millisecond)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on a finished view")
	}
	if n := tbl.claimCount(); n != 0 {
		t.Errorf("finished bot claimed %d times", n)
	}
}

func TestThinkTimeBounds(t *testing.T) {
	low := func(int) int { return 0 }
	high := func(n int) int { return n - 1 }

	if d := thinkTime(low, 100, 300); d != 100 {
		t.Errorf("low roll: got %v, want 100", d)
	}
	if d := thinkTime(high, 100, 300); d != 300 {
		t.Errorf("high roll: got %v, want 300", d)
	}
	if d := thinkTime(high, 200, 50); d != 200 {
		t.Errorf("inverted bounds: got %v, want 200", d)
	}
}
