// Package timer implements the Turn Timer scheduler (C8): a per-room
// Idle/Armed/Fired state machine, one goroutine per armed timer,
// cancelled atomically under the room lock via a generation counter so
// a cancelled timer can never emit a late fire. Grounded on the
// teacher's gameLoop select-based single-goroutine-per-table pattern
// (internal/game/table.go), retargeted from one goroutine-per-table to
// one goroutine-per-armed-timer.
package timer

import (
	"sync"
	"time"

	"github.com/decred/slog"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/roomlock"
)

// State is a room timer's lifecycle phase.
type State int

const (
	StateIdle State = iota
	StateArmed
	StateFired
)

// FiredHandler is invoked (under the room lock) when a timer reaches
// zero without being cancelled first. It should auto-play the seat,
// and the Scheduler will decide whether to re-arm or escalate to
// elimination based on the auto-play count it tracks.
type FiredHandler func(roomCode string, seatIndex int, playerID string)

type entry struct {
	state      State
	seatIndex  int
	playerID   string
	generation int
	startedAt  time.Time
	timer      *time.Timer
	autoPlays  int
}

// Scheduler owns one entry per room with an armed or fired timer.
type Scheduler struct {
	mu      sync.Mutex
	entries map[string]*entry
	locks   *roomlock.Registry
	log     slog.Logger

	timeout      time.Duration
	maxAutoPlays int
	onFired      FiredHandler
}

// New builds a Scheduler. onFired is called each time an un-cancelled
// timer reaches zero; it is the caller's job to call RecordAutoPlay
// afterward to advance the per-seat auto-play count.
func New(locks *roomlock.Registry, log slog.Logger, timeout time.Duration, maxAutoPlays int, onFired FiredHandler) *Scheduler {
	return &Scheduler{
		entries:      make(map[string]*entry),
		locks:        locks,
		log:          log,
		timeout:      timeout,
		maxAutoPlays: maxAutoPlays,
		onFired:      onFired,
	}
}

// Arm starts (or restarts) the turn timer for roomCode's current
// seat/player. Kinds excluded from timing per spec.md §4.1
// (Sudoku/2048/Candy/Chess have their own pacing or none) make Arm a
// no-op: it checks engine.Kind.TimerExcluded() itself.
func (s *Scheduler) Arm(roomCode string, kind engine.Kind, seatIndex int, playerID string) {
	if kind.TimerExcluded() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[roomCode]
	if !ok {
		e = &entry{}
		s.entries[roomCode] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.generation++
	gen := e.generation
	e.state = StateArmed
	e.seatIndex = seatIndex
	e.playerID = playerID
	e.startedAt = time.Now()

	e.timer = time.AfterFunc(s.timeout, func() { s.fire(roomCode, gen) })
}

// Cancel disarms roomCode's timer, e.g. because the acting player
// submitted a valid action before the clock expired. The generation
// bump makes any already-scheduled fire for the old generation a
// silent no-op even if it races past this call.
func (s *Scheduler) Cancel(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[roomCode]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.generation++
	e.state = StateIdle
	e.autoPlays = 0
}

// Clear fully removes roomCode's timer state, e.g. on room teardown.
func (s *Scheduler) Clear(roomCode string) {
	s.Cancel(roomCode)
	s.mu.Lock()
	delete(s.entries, roomCode)
	s.mu.Unlock()
}

// fire runs on the timer's own goroutine. It acquires the room lock so
// it serializes with any concurrent action handling, then validates
// its generation is still current before invoking onFired.
func (s *Scheduler) fire(roomCode string, generation int) {
	s.locks.WithLock(roomCode, func() {
		s.mu.Lock()
		e, ok := s.entries[roomCode]
		if !ok || e.generation != generation || e.state != StateArmed {
			s.mu.Unlock()
			return
		}
		e.state = StateFired
		seatIndex, playerID := e.seatIndex, e.playerID
		s.mu.Unlock()

		if s.onFired != nil {
			s.onFired(roomCode, seatIndex, playerID)
		}
	})
}

// AutoPlayCount returns how many consecutive auto-plays a room's
// current seat has accumulated.
func (s *Scheduler) AutoPlayCount(roomCode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[roomCode]; ok {
		return e.autoPlays
	}
	return 0
}

// RecordAutoPlay increments the auto-play counter for roomCode's
// current seat and reports whether that seat has now exceeded
// MaxAutoPlays and should be eliminated instead of re-armed.
func (s *Scheduler) RecordAutoPlay(roomCode string) (shouldEliminate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[roomCode]
	if !ok {
		return false
	}
	e.autoPlays++
	return e.autoPlays >= s.maxAutoPlays
}

// ResetAutoPlays clears the auto-play counter, called whenever the
// acting seat produces a real (non-timed-out) action.
func (s *Scheduler) ResetAutoPlays(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[roomCode]; ok {
		e.autoPlays = 0
	}
}

// StateOf reports the current state of roomCode's timer, for tests and
// the debug REST endpoint.
func (s *Scheduler) StateOf(roomCode string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[roomCode]; ok {
		return e.state
	}
	return StateIdle
}
