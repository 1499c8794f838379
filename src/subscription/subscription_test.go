package subscription

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newThrottle(c *fakeClock) *Throttle {
	return NewThrottle(map[Kind]time.Duration{
		KindPrice:   250 * time.Millisecond,
		KindRefresh: time.Second,
		KindStatus:  5 * time.Second,
	}).WithClock(c.now)
}

func TestThrottleFloor(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := newThrottle(clock)

	sent := 0
	emit := func() bool { sent++; return true }

	th.TryEmit("c1", KindPrice, "1m", emit)
	clock.advance(50 * time.Millisecond)
	th.TryEmit("c1", KindPrice, "1m", emit)
	clock.advance(210 * time.Millisecond) // t+260ms
	th.TryEmit("c1", KindPrice, "1m", emit)

	if sent != 2 {
		t.Fatalf("expected 2 emissions, got %d", sent)
	}
}

func TestThrottleKeysAreIndependent(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := newThrottle(clock)

	th.MarkEmitted("c1", KindPrice, "1m")
	if !th.ShouldEmit("c1", KindPrice, "5m") {
		t.Fatalf("other timeframe should not be throttled")
	}
	if !th.ShouldEmit("c2", KindPrice, "1m") {
		t.Fatalf("other client should not be throttled")
	}
	if !th.ShouldEmit("c1", KindRefresh, "1m") {
		t.Fatalf("other kind should not be throttled")
	}
}

func TestUndeliveredEmissionIsNotRecorded(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := newThrottle(clock)

	th.TryEmit("c1", KindStatus, "", func() bool { return false })
	if !th.ShouldEmit("c1", KindStatus, "") {
		t.Fatalf("failed delivery must not consume the interval")
	}
}

func TestPurgeRemovesClientEntries(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	th := newThrottle(clock)
	reg := NewRegistry()

	reg.Set("c1", "1m")
	reg.Set("c2", "1m")
	th.MarkEmitted("c1", KindPrice, "1m")
	th.MarkEmitted("c1", KindRefresh, "1m")
	th.MarkEmitted("c2", KindPrice, "1m")

	reg.Remove("c1")
	th.Purge("c1")

	if th.Len() != 1 {
		t.Fatalf("expected 1 throttle entry left, got %d", th.Len())
	}
	if subs := reg.Subscribers("1m"); len(subs) != 1 || subs[0] != "c2" {
		t.Fatalf("expected only c2 subscribed, got %v", subs)
	}
}

func TestRegistryChangeTimeframe(t *testing.T) {
	reg := NewRegistry()
	reg.Set("c1", "1m")
	reg.Set("c1", "1h")

	if reg.HasSubscribers("1m") {
		t.Fatalf("expected no 1m subscribers")
	}
	if !reg.HasSubscribers("1h") {
		t.Fatalf("expected 1h subscriber")
	}
	if counts := reg.CountByTimeframe(); counts["1h"] != 1 || len(counts) != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
