package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// banTickInterval is the cadence of ban progress updates, 1000/60 ms
// rounded up (~60 Hz).
const banTickInterval = 17 * time.Millisecond

// banTimer tracks one player's ban countdown. At most one timer is
// live per player index; re-bans replace the previous timer before a
// new one is armed.
type banTimer struct {
	player   int
	start    time.Time
	duration time.Duration

	// progress is the latest computed percentage, deliberately
	// unclamped so an overdue unban is visible in diagnostics.
	// Guarded by the owning controller's mutex.
	progress float64

	ticker   clockwork.Ticker
	stop     chan struct{}
	stopOnce sync.Once
}

func newBanTimer(player int, start time.Time, duration time.Duration) *banTimer {
	return &banTimer{
		player:   player,
		start:    start,
		duration: duration,
		stop:     make(chan struct{}),
	}
}

// cancel stops the tick loop. Stopping an already-stopped timer is a
// no-op.
func (t *banTimer) cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// percentAt computes the raw progress at the given instant.
func (t *banTimer) percentAt(now time.Time) float64 {
	return float64(now.Sub(t.start)) / float64(t.duration) * 100
}

// startBan arms a ban timer for the player's index. An existing timer
// for the same index is cancelled first.
func (c *Controller) startBan(player int, duration time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if old, exists := c.bans[player]; exists {
		old.cancel()
	}
	t := newBanTimer(player, c.clock.Now(), duration)
	c.bans[player] = t
	c.mu.Unlock()

	// Arm the ticker before returning so the recurring tick is live by
	// the time the ban event is done processing.
	t.ticker = c.clock.NewTicker(banTickInterval)
	go c.runBanTicks(t)
}

// stopBan cancels the player's ban timer and removes its entry.
// Unbanning a player with no active timer is a no-op.
func (c *Controller) stopBan(player int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, exists := c.bans[player]
	if !exists {
		return
	}
	delete(c.bans, player)
	t.cancel()
}

// runBanTicks publishes progress at the tick cadence until the timer
// is cancelled or loses its entry.
func (c *Controller) runBanTicks(t *banTimer) {
	defer t.ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-t.ticker.Chan():
			if !c.publishBanProgress(t) {
				return
			}
		}
	}
}

// publishBanProgress folds the current progress into the timer if it
// still owns the player's ban entry. A tick can race the unban event
// or a replacing re-ban, so the entry is re-checked by identity before
// publishing; a stale tick must not revive a removed ban.
func (c *Controller) publishBanProgress(t *banTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.bans[t.player] != t {
		return false
	}
	t.progress = t.percentAt(c.clock.Now())
	return true
}
