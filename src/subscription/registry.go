package subscription

import (
	"sort"
	"sync"
)

// Registry maps each connected client to the timeframe it is watching.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]string
}

// -----------------------------------------------------------------------------

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]string)}
}

// -----------------------------------------------------------------------------

// Set creates or changes a client's subscription.
func (r *Registry) Set(clientID, timeframe string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[clientID] = timeframe
}

// -----------------------------------------------------------------------------

func (r *Registry) Get(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tf, ok := r.clients[clientID]
	return tf, ok
}

// -----------------------------------------------------------------------------

func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, clientID)
}

// -----------------------------------------------------------------------------

// Subscribers returns the clients watching a timeframe, sorted for stable fan-out.
func (r *Registry) Subscribers(timeframe string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, tf := range r.clients {
		if tf == timeframe {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// -----------------------------------------------------------------------------

func (r *Registry) HasSubscribers(timeframe string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tf := range r.clients {
		if tf == timeframe {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Clients returns every subscribed client id.
func (r *Registry) Clients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// -----------------------------------------------------------------------------

// CountByTimeframe is used for periodic activity logs.
func (r *Registry) CountByTimeframe() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, tf := range r.clients {
		counts[tf]++
	}
	return counts
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
