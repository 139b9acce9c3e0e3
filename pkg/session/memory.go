package session

import (
	"context"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps sessions in process memory with sliding expiry.
type MemoryStore struct {
	items *cache.Cache
	ttl   time.Duration
}

// NewMemoryStore creates a store whose sessions expire after ttl without use.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: cache.New(ttl, ttl/2),
		ttl:   ttl,
	}
}

// Load returns a copy of the session state and refreshes its expiry.
func (m *MemoryStore) Load(_ context.Context, id string) (*browse.State, error) {
	v, ok := m.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	st, ok := v.(*browse.State)
	if !ok {
		storeErrors.WithLabelValues("memory", "load").Inc()
		m.items.Delete(id)
		return nil, ErrInvalidState
	}
	m.items.Set(id, st, m.ttl)
	return st.Clone(), nil
}

// Save stores a copy of st.
func (m *MemoryStore) Save(_ context.Context, id string, st *browse.State) error {
	m.items.Set(id, st.Clone(), m.ttl)
	return nil
}

// Delete removes a session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	return m.items.ItemCount()
}
