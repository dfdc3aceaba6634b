// Package store implements the Game Store (C3): one live engine.Engine
// per room code, with activity tracking and the Serialize/Restore seam
// spec.md §4.4 names. Grounded on internal/game/rules/registry.go's
// EngineRegistry singleton-with-mutex shape, retargeted from
// kind-keyed to room-code-keyed.
package store

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"lobby-platform/internal/engine"
)

// entry is one room's live engine plus its activity bookkeeping.
type entry struct {
	Engine         engine.Engine
	Kind           engine.Kind
	CreatedAtMs    int64
	LastActivityMs int64
}

// GameStore holds at most one engine per room code.
type GameStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     slog.Logger
}

// New builds an empty GameStore.
func New(log slog.Logger) *GameStore {
	return &GameStore{entries: make(map[string]*entry), log: log}
}

func normalize(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// Create builds a fresh engine of kind for code via engine.New, and
// stores it. Returns an error if an engine already exists for code, or
// if engine construction itself fails.
func (s *GameStore) Create(code string, kind engine.Kind, opts engine.Options) (engine.Engine, error) {
	code = normalize(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[code]; exists {
		return nil, fmt.Errorf("store: engine already exists for room %s", code)
	}
	eng, err := engine.New(kind, opts)
	if err != nil {
		return nil, fmt.Errorf("store: create engine: %w", err)
	}
	now := nowMs()
	s.entries[code] = &entry{Engine: eng, Kind: kind, CreatedAtMs: now, LastActivityMs: now}
	s.log.Infof("engine created for room %s (kind=%s)", code, kind)
	return eng, nil
}

// Get returns the engine for code, touching its last-activity
// timestamp, or (nil, false) if no engine is live for that room.
func (s *GameStore) Get(code string) (engine.Engine, bool) {
	code = normalize(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[code]
	if !ok {
		return nil, false
	}
	e.LastActivityMs = nowMs()
	return e.Engine, true
}

// Peek returns the engine for code without touching activity, for
// read-only diagnostics (e.g. the debug REST dump).
func (s *GameStore) Peek(code string) (engine.Engine, bool) {
	code = normalize(code)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[code]
	if !ok {
		return nil, false
	}
	return e.Engine, true
}

// Delete removes the engine for code entirely.
func (s *GameStore) Delete(code string) {
	code = normalize(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, code)
	s.log.Infof("engine deleted for room %s", code)
}

// Touch bumps the room's last-activity timestamp without requiring a
// full Get (used by the router after a successful action).
func (s *GameStore) Touch(code string) {
	code = normalize(code)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[code]; ok {
		e.LastActivityMs = nowMs()
	}
}

// CleanupStale deletes every engine whose last activity predates
// maxIdle, returning the codes it removed.
func (s *GameStore) CleanupStale(maxIdle time.Duration) []string {
	cutoff := nowMs() - maxIdle.Milliseconds()
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for code, e := range s.entries {
		if e.LastActivityMs < cutoff {
			delete(s.entries, code)
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		s.log.Infof("cleaned up %d stale engines", len(removed))
	}
	return removed
}

// Serialize delegates to the room's engine, the seam spec.md §4.4 names.
func (s *GameStore) Serialize(code string) ([]byte, error) {
	eng, ok := s.Peek(code)
	if !ok {
		return nil, fmt.Errorf("store: no engine for room %s", normalize(code))
	}
	return eng.Serialize()
}

// Restore delegates to the room's engine, the seam spec.md §4.4 names.
func (s *GameStore) Restore(code string, data []byte) error {
	eng, ok := s.Peek(code)
	if !ok {
		return fmt.Errorf("store: no engine for room %s", normalize(code))
	}
	return eng.Restore(data)
}

// Count reports the number of live engines, for metrics.
func (s *GameStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func nowMs() int64 { return time.Now().UnixMilli() }
