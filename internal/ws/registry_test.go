package ws

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project-chat-service/internal/models"
)

// fakeSubscriber records delivered events and can be told to fail.
type fakeSubscriber struct {
	id       string
	identity models.Identity

	mu      sync.Mutex
	events  []Event
	failing bool
}

func newFakeSubscriber(id, externalID string) *fakeSubscriber {
	return &fakeSubscriber{id: id, identity: models.Identity{ExternalID: externalID}}
}

func (s *fakeSubscriber) ID() string { return s.id }

func (s *fakeSubscriber) Identity() models.Identity { return s.identity }

func (s *fakeSubscriber) Deliver(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return assert.AnError
	}
	s.events = append(s.events, event)
	return nil
}

func (s *fakeSubscriber) delivered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestMemoryRegistryJoinIsIdempotent(t *testing.T) {
	registry := NewMemoryRegistry()
	sub := newFakeSubscriber("c1", "ext-1")

	registry.Join("p1", sub)
	registry.Join("p1", sub)

	require.Len(t, registry.SubscribersOf("p1"), 1)
}

func TestMemoryRegistryLeaveUnknownRoomIsNoop(t *testing.T) {
	registry := NewMemoryRegistry()
	sub := newFakeSubscriber("c1", "ext-1")

	registry.Leave("never-joined", sub)
	registry.Join("p1", sub)
	registry.Leave("p2", sub)

	require.Len(t, registry.SubscribersOf("p1"), 1)
}

func TestMemoryRegistryLeaveAll(t *testing.T) {
	registry := NewMemoryRegistry()
	sub := newFakeSubscriber("c1", "ext-1")
	other := newFakeSubscriber("c2", "ext-2")

	registry.Join("p1", sub)
	registry.Join("p2", sub)
	registry.Join("p1", other)

	registry.LeaveAll(sub)

	assert.Len(t, registry.SubscribersOf("p1"), 1)
	assert.Empty(t, registry.SubscribersOf("p2"))
}

func TestMemoryRegistryEmptyRoomIsDropped(t *testing.T) {
	registry := NewMemoryRegistry()
	sub := newFakeSubscriber("c1", "ext-1")

	registry.Join("p1", sub)
	registry.Leave("p1", sub)

	assert.Empty(t, registry.SubscribersOf("p1"))
	registry.mu.RLock()
	_, exists := registry.rooms["p1"]
	registry.mu.RUnlock()
	assert.False(t, exists)
}

func TestMemoryRegistrySubscribersOfIsolatedPerRoom(t *testing.T) {
	registry := NewMemoryRegistry()
	a := newFakeSubscriber("a", "ext-a")
	b := newFakeSubscriber("b", "ext-b")

	registry.Join("p1", a)
	registry.Join("p2", b)

	subs := registry.SubscribersOf("p1")
	require.Len(t, subs, 1)
	assert.Equal(t, "a", subs[0].ID())
}
