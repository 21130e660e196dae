package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/shelf/internal/domain"
)

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expired entries are invisible
// to Get and removed by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	clock    domain.Clock
}

// NewMemoryStore creates an empty store with the given idle lifetime.
func NewMemoryStore(ttl time.Duration, clock domain.Clock) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		clock:    clock,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.sessions[id]
	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return e.session.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("session without id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[s.ID] = memoryEntry{
		session:   s.Clone(),
		expiresAt: m.clock.Now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Kind() string { return "memory" }

// Sweep drops every session expired at now and returns how many went.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions. Expired entries waiting for
// Sweep are not counted.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.clock.Now()
	count := 0
	for _, e := range m.sessions {
		if now.Before(e.expiresAt) {
			count++
		}
	}
	return count, nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Counter = (*MemoryStore)(nil)
)
