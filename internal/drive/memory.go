package drive

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps files in process memory. Useful for tests and demos; nothing
// survives a restart. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	files   map[string][]byte
	failPut error
}

// NewMemory creates an empty in-memory drive.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPut != nil {
		return m.failPut
	}
	m.files[name] = append([]byte(nil), data...)
	return nil
}

// SetFailPut makes every following Put return err (nil restores writes).
func (m *Memory) SetFailPut(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = err
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Kind() string { return "memory" }

var _ Drive = (*Memory)(nil)
