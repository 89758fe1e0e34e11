// Package bot plays a session seat automatically. A bot sees the same
// view a human sees and claims through the same claim capability, so
// it exercises no private engine surface.
package bot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dmkor/tui-sets/internal/session"
	"github.com/dmkor/tui-sets/internal/sets"
)

// blunderGrain is the resolution of the blunder dice roll.
const blunderGrain = 10000

// Config describes one bot seat.
type Config struct {
	// Player is the seat index the bot claims as.
	Player int

	// Claim dispatches a claim for a seat. Required.
	Claim session.ClaimFunc

	// View snapshots the session state. Required.
	View func() session.View

	// Clock drives the think delays. Nil means the wall clock.
	Clock clockwork.Clock

	// Rand returns a value in [0, n). Required.
	Rand func(n int) int

	// MinDelay and MaxDelay bound the pause before each move. A
	// MaxDelay below MinDelay collapses to MinDelay.
	MinDelay time.Duration
	MaxDelay time.Duration

	// Blunder is the probability in [0, 1] that a move claims a
	// deliberate non-set instead of a real one.
	Blunder float64
}

// Run plays the seat until the session finishes or ctx is cancelled.
// Each round it pauses for a think delay, skips the round while the
// seat is banned, and otherwise claims a set from the current view.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Claim == nil || cfg.View == nil {
		return fmt.Errorf("bot: config requires Claim and View")
	}
	if cfg.Rand == nil {
		return fmt.Errorf("bot: config requires a Rand source")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	minDelay := cfg.MinDelay
	if minDelay < 0 {
		minDelay = 0
	}
	maxDelay := cfg.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(thinkTime(cfg.Rand, minDelay, maxDelay)):
		}

		v := cfg.View()
		if v.Finished {
			return nil
		}
		if _, banned := v.Bans[cfg.Player]; banned {
			continue
		}
		indices, ok := pickClaim(cfg.Rand, cfg.Blunder, v.Cards)
		if !ok {
			continue
		}
		cfg.Claim(cfg.Player, indices)
	}
}

// thinkTime returns a delay in [min, max].
func thinkTime(randInt func(int) int, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(randInt(int(max-min)+1))
}

// pickClaim chooses the triple to claim: a real set, or on a blunder
// roll a miss that will draw a ban.
func pickClaim(randInt func(int) int, blunder float64, cards []sets.Card) ([]int, bool) {
	if len(cards) < 3 {
		return nil, false
	}
	if blunder > 0 && randInt(blunderGrain) < int(blunder*blunderGrain) {
		if miss, ok := findMiss(randInt, cards); ok {
			return miss, true
		}
	}
	set, ok := sets.FindSet(cards)
	if !ok {
		return nil, false
	}
	return []int{set[0], set[1], set[2]}, true
}

// findMiss returns three positions that do not form a set, scanning
// adjacent windows from a random start. Markets where every window is
// a set give up and report none.
func findMiss(randInt func(int) int, cards []sets.Card) ([]int, bool) {
	n := len(cards)
	start := randInt(n)
	for off := 0; off < n; off++ {
		i := (start + off) % n
		j := (i + 1) % n
		k := (i + 2) % n
		if !sets.IsSet(cards[i], cards[j], cards[k]) {
			miss := []int{i, j, k}
			sort.Ints(miss)
			return miss, true
		}
	}
	return nil, false
}
