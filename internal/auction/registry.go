package auction

import (
	"sync"

	"github.com/google/uuid"
)

// registry maps running lot ids to their coordinators. Entries live from
// the moment a lot starts until its terminal persistence write completes.
type registry struct {
	mu           sync.RWMutex
	coordinators map[uuid.UUID]*Coordinator
}

func newRegistry() *registry {
	return &registry{
		coordinators: make(map[uuid.UUID]*Coordinator),
	}
}

func (r *registry) add(id uuid.UUID, c *Coordinator) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.coordinators[id]; ok {
		return false
	}
	r.coordinators[id] = c
	return true
}

func (r *registry) get(id uuid.UUID) (*Coordinator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.coordinators[id]
	return c, ok
}

func (r *registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.coordinators, id)
}

func (r *registry) ids() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(r.coordinators))
	for id := range r.coordinators {
		ids = append(ids, id)
	}
	return ids
}
