package ws

import (
	"sync"

	"project-chat-service/internal/models"
)

// Subscriber is one live realtime connection, regardless of transport.
// Deliver must be safe for concurrent use; a non-nil error means the
// connection is dead and the caller should drop it.
type Subscriber interface {
	ID() string
	Identity() models.Identity
	Deliver(event Event) error
}

// Registry tracks which subscribers belong to which project room. The
// interface exists so a multi-process deployment can swap in a shared
// pub/sub backing without touching the broadcast engine.
type Registry interface {
	Join(projectID string, sub Subscriber)
	Leave(projectID string, sub Subscriber)
	LeaveAll(sub Subscriber)
	SubscribersOf(projectID string) []Subscriber
}

// MemoryRegistry is the single-process map-of-sets implementation.
// Rooms come into existence on first join and disappear when their
// last subscriber leaves.
type MemoryRegistry struct {
	mu     sync.RWMutex
	rooms  map[string]map[Subscriber]bool
	joined map[Subscriber]map[string]bool
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms:  make(map[string]map[Subscriber]bool),
		joined: make(map[Subscriber]map[string]bool),
	}
}

// Join adds sub to the project's room. Idempotent.
func (r *MemoryRegistry) Join(projectID string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[projectID]; !ok {
		r.rooms[projectID] = make(map[Subscriber]bool)
	}
	r.rooms[projectID][sub] = true
	if _, ok := r.joined[sub]; !ok {
		r.joined[sub] = make(map[string]bool)
	}
	r.joined[sub][projectID] = true
}

// Leave removes sub from the project's room. No-op when absent.
func (r *MemoryRegistry) Leave(projectID string, sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(projectID, sub)
}

// LeaveAll removes sub from every room it joined. Called on transport
// disconnect so dead subscribers never leak.
func (r *MemoryRegistry) LeaveAll(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for projectID := range r.joined[sub] {
		r.leaveLocked(projectID, sub)
	}
}

func (r *MemoryRegistry) leaveLocked(projectID string, sub Subscriber) {
	if subs, ok := r.rooms[projectID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(r.rooms, projectID)
		}
	}
	if rooms, ok := r.joined[sub]; ok {
		delete(rooms, projectID)
		if len(rooms) == 0 {
			delete(r.joined, sub)
		}
	}
}

// SubscribersOf returns a snapshot of the room's current subscribers.
func (r *MemoryRegistry) SubscribersOf(projectID string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := make([]Subscriber, 0, len(r.rooms[projectID]))
	for sub := range r.rooms[projectID] {
		subs = append(subs, sub)
	}
	return subs
}
