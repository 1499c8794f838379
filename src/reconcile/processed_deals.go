package reconcile

import "sync"

// BoundedSet remembers keys in insertion order. Once it holds more than max
// keys it keeps only the trimTo most recent ones.
type BoundedSet[K comparable] struct {
	mu     sync.Mutex
	max    int
	trimTo int
	order  []K
	index  map[K]struct{}
}

// -----------------------------------------------------------------------------

func NewBoundedSet[K comparable](max, trimTo int) *BoundedSet[K] {
	if trimTo <= 0 || trimTo >= max {
		trimTo = max / 2
	}
	return &BoundedSet[K]{
		max:    max,
		trimTo: trimTo,
		index:  make(map[K]struct{}),
	}
}

// -----------------------------------------------------------------------------

// Add inserts k and reports whether it was new.
func (s *BoundedSet[K]) Add(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.order = append(s.order, k)

	if len(s.order) > s.max {
		drop := len(s.order) - s.trimTo
		for _, old := range s.order[:drop] {
			delete(s.index, old)
		}
		s.order = append([]K(nil), s.order[drop:]...)
	}
	return true
}

// -----------------------------------------------------------------------------

func (s *BoundedSet[K]) Contains(k K) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[k]
	return ok
}

func (s *BoundedSet[K]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// -----------------------------------------------------------------------------

// ProcessedDealSet holds deal tickets already attributed to a close.
type ProcessedDealSet = BoundedSet[int64]

func NewProcessedDealSet(max, trimTo int) *ProcessedDealSet {
	return NewBoundedSet[int64](max, trimTo)
}
