package session

import (
	"container/list"
	"sync"
	"time"
)

// Registry hands out session managers keyed by client. Sessions are kept
// in an LRU with an idle TTL so abandoned clients do not accumulate.
type Registry struct {
	capacity int
	idleTTL  time.Duration
	mu       sync.Mutex

	sessions map[string]*registryEntry
	order    *list.List // Doubly linked list for LRU ordering

	now func() time.Time
}

type registryEntry struct {
	key        string
	manager    *Manager
	lastAccess time.Time
	element    *list.Element
}

// NewRegistry creates a session registry.
func NewRegistry(capacity int, idleTTL time.Duration) *Registry {
	if capacity <= 0 {
		capacity = 1000
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}

	return &Registry{
		capacity: capacity,
		idleTTL:  idleTTL,
		sessions: make(map[string]*registryEntry),
		order:    list.New(),
		now:      time.Now,
	}
}

// Get returns the session for the key, creating it on first access.
func (r *Registry) Get(key string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if e, ok := r.sessions[key]; ok {
		if now.Sub(e.lastAccess) <= r.idleTTL {
			e.lastAccess = now
			r.order.MoveToFront(e.element)
			return e.manager
		}
		// Idle sessions restart from scratch.
		r.removeEntry(e)
	}

	for len(r.sessions) >= r.capacity {
		r.evictOldest()
	}

	e := &registryEntry{
		key:        key,
		manager:    NewManager(key),
		lastAccess: now,
	}
	e.element = r.order.PushFront(e)
	r.sessions[key] = e
	return e.manager
}

// Size returns the number of live sessions.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CleanupExpired removes sessions idle past the TTL.
// Returns the number of sessions removed.
func (r *Registry) CleanupExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var toDelete []*registryEntry
	now := r.now()

	for _, e := range r.sessions {
		if now.Sub(e.lastAccess) > r.idleTTL {
			toDelete = append(toDelete, e)
		}
	}
	for _, e := range toDelete {
		r.removeEntry(e)
	}

	return len(toDelete)
}

// evictOldest removes the least recently accessed session.
// Must be called with the lock held.
func (r *Registry) evictOldest() {
	oldest := r.order.Back()
	if oldest == nil {
		return
	}
	r.removeEntry(oldest.Value.(*registryEntry))
}

// removeEntry removes a session from the registry.
// Must be called with the lock held.
func (r *Registry) removeEntry(e *registryEntry) {
	r.order.Remove(e.element)
	delete(r.sessions, e.key)
}
