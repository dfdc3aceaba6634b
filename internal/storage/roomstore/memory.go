package roomstore

import (
	"context"
	"sync"
)

// Memory is the default, in-process RoomStore: a plain mutex-guarded
// map. This is what this package's tests run against (the Lifecycle
// Coordinator keeps rooms in room.Registry, not here); Postgres exists
// only to demonstrate the seam is real.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemory builds an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Code] = rec
	return nil
}

func (m *Memory) Find(_ context.Context, code string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[code]
	return rec, ok, nil
}

func (m *Memory) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, code)
	return nil
}
