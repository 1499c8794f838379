package reconcile

import (
	"math"
	"sort"
	"sync"

	"terminal-bridge/src/models"
)

const (
	profitEpsilon = 0.001
	priceEpsilon  = 1e-6
)

type TransitionType string

const (
	Opened  TransitionType = "opened"
	Updated TransitionType = "updated"
	Closed  TransitionType = "closed"
)

// Transition is one lifecycle step for a ticket. For Closed, Position is the
// last snapshot seen before the ticket disappeared.
type Transition struct {
	Type     TransitionType
	Position models.MPosition
}

// PositionReconciler diffs successive open-position snapshots into
// opened/updated/closed transitions. It owns the baseline map and the set of
// tickets whose close has already been claimed.
type PositionReconciler struct {
	mu          sync.Mutex
	initialized bool
	baseline    map[int64]models.MPosition
	closed      *BoundedSet[int64]
}

// -----------------------------------------------------------------------------

func NewPositionReconciler(closedMax, closedTrimTo int) *PositionReconciler {
	return &PositionReconciler{
		baseline: make(map[int64]models.MPosition),
		closed:   NewBoundedSet[int64](closedMax, closedTrimTo),
	}
}

// -----------------------------------------------------------------------------

// Reconcile applies a fresh snapshot. The first snapshot after construction or
// Reset becomes the baseline without producing transitions. Closed transitions
// are only returned for tickets whose close had not been claimed yet.
func (r *PositionReconciler) Reconcile(snapshot []models.MPosition) []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(map[int64]models.MPosition, len(snapshot))
	live := snapshot[:0:0]
	for _, p := range snapshot {
		if r.closed.Contains(p.Ticket) {
			// Stale snapshot of a ticket already closed through deal history
			continue
		}
		current[p.Ticket] = p
		live = append(live, p)
	}

	if !r.initialized {
		r.initialized = true
		r.baseline = current
		return nil
	}

	var out []Transition
	for _, p := range live {
		prev, known := r.baseline[p.Ticket]
		switch {
		case !known:
			out = append(out, Transition{Type: Opened, Position: p})
		case math.Abs(p.Profit-prev.Profit) > profitEpsilon ||
			math.Abs(p.CurrentPrice-prev.CurrentPrice) > priceEpsilon:
			out = append(out, Transition{Type: Updated, Position: p})
		}
	}

	var gone []int64
	for ticket := range r.baseline {
		if _, still := current[ticket]; !still {
			gone = append(gone, ticket)
		}
	}
	sort.Slice(gone, func(i, j int) bool { return gone[i] < gone[j] })
	for _, ticket := range gone {
		if r.closed.Add(ticket) {
			out = append(out, Transition{Type: Closed, Position: r.baseline[ticket]})
		}
	}

	r.baseline = current
	return out
}

// -----------------------------------------------------------------------------

// Reset forces the next snapshot to be adopted as a silent baseline.
func (r *PositionReconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initialized = false
}

// -----------------------------------------------------------------------------

// ClaimClose marks a ticket as closed and reports whether this caller is the
// first to do so. The ticket leaves the baseline so the snapshot diff will not
// report it again.
func (r *PositionReconciler) ClaimClose(ticket int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed.Add(ticket) {
		return false
	}
	delete(r.baseline, ticket)
	return true
}

// -----------------------------------------------------------------------------

func (r *PositionReconciler) IsClosed(ticket int64) bool {
	return r.closed.Contains(ticket)
}

// Known returns the last snapshot of an open ticket.
func (r *PositionReconciler) Known(ticket int64) (models.MPosition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.baseline[ticket]
	return p, ok
}

// Initialized reports whether a baseline has been adopted.
func (r *PositionReconciler) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Open returns the current baseline.
func (r *PositionReconciler) Open() []models.MPosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.MPosition, 0, len(r.baseline))
	for _, p := range r.baseline {
		out = append(out, p)
	}
	return out
}
