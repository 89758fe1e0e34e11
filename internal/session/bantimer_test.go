package session

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestBanEntryLifecycle(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	if bans := c.View().Bans; len(bans) != 0 {
		t.Fatalf("fresh controller has ban entries: %v", bans)
	}

	c.startBan(0, 5*time.Second)
	v := c.View()
	p, ok := v.Bans[0]
	if !ok {
		t.Fatal("ban entry missing after startBan")
	}
	if p != 0 {
		t.Errorf("initial ban progress: got %v, want 0", p)
	}

	c.stopBan(0)
	if _, ok := c.View().Bans[0]; ok {
		t.Error("ban entry still present after stopBan")
	}
}

func TestBanProgressAdvances(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.startBan(0, 2*time.Second)

	fc.Advance(500 * time.Millisecond)
	waitUntil(t, time.Second, "progress to reach 25", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 24.99 && p < 25.01
	})

	fc.Advance(500 * time.Millisecond)
	waitUntil(t, time.Second, "progress to reach 50", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 49.99 && p < 50.01
	})

	fc.Advance(time.Second)
	waitUntil(t, time.Second, "progress to reach 100", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 99.99
	})
}

func TestBanProgressMidpointAndStop(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.startBan(0, 5*time.Second)
	fc.Advance(2500 * time.Millisecond)
	waitUntil(t, time.Second, "progress to reach the midpoint", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 49 && p < 51
	})

	c.stopBan(0)
	if _, ok := c.BanProgress(0); ok {
		t.Fatal("ban entry survived stopBan")
	}

	// A stale tick must not bring the entry back.
	fc.Advance(10 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if _, ok := c.BanProgress(0); ok {
		t.Error("ban entry resurrected after stopBan")
	}
}

func TestRebanReplacesTimer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.startBan(0, 10*time.Second)
	fc.Advance(5 * time.Second)
	waitUntil(t, time.Second, "first ban to reach 50", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 49 && p < 51
	})

	// Banning again starts over with the new duration.
	c.startBan(0, 20*time.Second)
	if p, ok := c.BanProgress(0); !ok || p != 0 {
		t.Fatalf("re-ban progress: got %v (present=%v), want 0", p, ok)
	}

	fc.Advance(2 * time.Second)
	waitUntil(t, time.Second, "re-ban progress to reach 10", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 9 && p < 11
	})
}

func TestStopBanIdempotent(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.stopBan(3) // never banned

	c.startBan(1, time.Second)
	c.stopBan(1)
	c.stopBan(1)

	c.startBan(1, time.Second)
	if _, ok := c.BanProgress(1); !ok {
		t.Error("ban after repeated stops did not register")
	}
}

func TestBanProgressUnclampedAfterOverrun(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.startBan(0, time.Second)
	fc.Advance(1500 * time.Millisecond)
	waitUntil(t, time.Second, "raw progress to pass 100", func() bool {
		p, ok := c.BanProgress(0)
		return ok && p > 149
	})

	if p := c.View().Bans[0]; p != 100 {
		t.Errorf("view progress: got %v, want clamped 100", p)
	}
}

func TestCloseCancelsBanTimers(t *testing.T) {
	fc := clockwork.NewFakeClock()
	c := newTestController(t, Config{Clock: fc})

	c.startBan(0, time.Minute)
	c.startBan(1, time.Minute)
	c.Close()

	if bans := c.View().Bans; len(bans) != 0 {
		t.Errorf("ban entries survived Close: %v", bans)
	}

	// Neither late ticks nor late bans land after Close.
	c.startBan(2, time.Second)
	fc.Advance(time.Hour)
	time.Sleep(10 * time.Millisecond)
	if bans := c.View().Bans; len(bans) != 0 {
		t.Errorf("ban entries appeared after Close: %v", bans)
	}
}
