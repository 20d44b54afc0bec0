package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps token state in memory. Useful for tests and the HTTP server
// when no state directory is configured.
type MemoryStore struct {
	mu     sync.Mutex
	state  State
	saves  int
	clears int
}

// NewMemoryStore creates a MemoryStore seeded with the given state.
func NewMemoryStore(initial State) *MemoryStore {
	return &MemoryStore{state: initial}
}

func (m *MemoryStore) Load(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *MemoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{}
	m.clears++
	return nil
}

// Counts returns how many times Save and Clear were called.
func (m *MemoryStore) Counts() (saves, clears int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves, m.clears
}
