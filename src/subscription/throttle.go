package subscription

import (
	"sync"
	"time"
)

// Kind separates throttle budgets so a refresh never consumes the price budget.
type Kind string

const (
	KindPrice   Kind = "price"
	KindRefresh Kind = "refresh"
	KindStatus  Kind = "status"
)

type throttleKey struct {
	clientID  string
	kind      Kind
	timeframe string
}

// Throttle enforces a minimum interval between emissions per
// (client, kind, timeframe). Skipped emissions are never queued.
type Throttle struct {
	mu        sync.Mutex
	intervals map[Kind]time.Duration
	last      map[throttleKey]time.Time
	now       func() time.Time
}

// -----------------------------------------------------------------------------

func NewThrottle(intervals map[Kind]time.Duration) *Throttle {
	return &Throttle{
		intervals: intervals,
		last:      make(map[throttleKey]time.Time),
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}

// -----------------------------------------------------------------------------

// ShouldEmit reports whether the minimum interval has elapsed since the last
// recorded emission. It does not record anything.
func (t *Throttle) ShouldEmit(clientID string, kind Kind, timeframe string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.last[throttleKey{clientID, kind, timeframe}]
	if !ok {
		return true
	}
	return t.now().Sub(last) >= t.intervals[kind]
}

// -----------------------------------------------------------------------------

// MarkEmitted records an emission that was actually delivered.
func (t *Throttle) MarkEmitted(clientID string, kind Kind, timeframe string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[throttleKey{clientID, kind, timeframe}] = t.now()
}

// -----------------------------------------------------------------------------

// TryEmit runs emit when allowed and records the emission if emit reports delivery.
func (t *Throttle) TryEmit(clientID string, kind Kind, timeframe string, emit func() bool) bool {
	if !t.ShouldEmit(clientID, kind, timeframe) {
		return false
	}
	if !emit() {
		return false
	}
	t.MarkEmitted(clientID, kind, timeframe)
	return true
}

// -----------------------------------------------------------------------------

// Purge drops every entry for a client.
func (t *Throttle) Purge(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.last {
		if k.clientID == clientID {
			delete(t.last, k)
		}
	}
}

func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
