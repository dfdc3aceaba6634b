// Package room implements the lobby's room/session registry: 6-char
// join codes from a confusion-free alphabet, seat bookkeeping, and a
// bounded chat history ring buffer. Grounded on the teacher's
// bounded-buffer instincts (internal/game/table.go buffers its action
// channel at 10) generalized to a fixed-capacity ring for chat.
package room

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/decred/slog"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/wire"
)

// codeAlphabet excludes characters easily confused over voice or in a
// low-resolution font: no 0/O, 1/I/L.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Status is a room's lifecycle state.
type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Seat is one occupied or reserved seat in a room.
type Seat struct {
	Index     int
	PlayerID  string
	Name      string
	Connected bool
	IsHost    bool
}

// Room is one lobby room: a join code, its game kind, its seats, and
// state that outlives any single engine instance (chat, theme, host).
type Room struct {
	mu sync.Mutex

	Code      string
	Kind      engine.Kind
	Status    Status
	Theme     string
	Seats     []Seat
	CreatedAt time.Time
	LastActivityAt time.Time

	chatHistory []wire.ChatMessage
	chatLimit   int
}

// New builds a Room with code in the lobby state and no seats.
func New(code string, kind engine.Kind, chatLimit int) *Room {
	now := time.Now()
	return &Room{
		Code:           code,
		Kind:           kind,
		Status:         StatusLobby,
		CreatedAt:      now,
		LastActivityAt: now,
		chatLimit:      chatLimit,
	}
}

// Touch bumps LastActivityAt to now under the room's own mutex.
func (r *Room) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastActivityAt = time.Now()
}

// IdleFor reports how long the room has been without activity.
func (r *Room) IdleFor() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.LastActivityAt)
}

// AddSeat reserves the first free seat index up to maxSeats for
// playerID, or reconnects an existing seat for the same player.
func (r *Room) AddSeat(playerID, name string, maxSeats int) (Seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.Seats {
		if r.Seats[i].PlayerID == playerID {
			r.Seats[i].Connected = true
			return r.Seats[i], true
		}
	}
	if len(r.Seats) >= maxSeats {
		return Seat{}, false
	}
	seat := Seat{
		Index:     len(r.Seats),
		PlayerID:  playerID,
		Name:      name,
		Connected: true,
		IsHost:    len(r.Seats) == 0,
	}
	r.Seats = append(r.Seats, seat)
	return seat, true
}

// MarkDisconnected flags playerID's seat as disconnected without
// removing it, so a reconnect can resume the same seat index.
func (r *Room) MarkDisconnected(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.Seats {
		if r.Seats[i].PlayerID == playerID {
			r.Seats[i].Connected = false
			return
		}
	}
}

// IsHost reports whether playerID occupies the host seat.
func (r *Room) IsHost(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Seats {
		if s.PlayerID == playerID {
			return s.IsHost
		}
	}
	return false
}

// SeatCount returns the number of occupied seats.
func (r *Room) SeatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Seats)
}

// SetTheme applies a host-only cosmetic theme change.
func (r *Room) SetTheme(theme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Theme = theme
}

// SetStatus transitions the room's lifecycle status.
func (r *Room) SetStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = s
}

// AppendChat records msg in the bounded history, dropping the oldest
// entry once chatLimit is reached.
func (r *Room) AppendChat(msg wire.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatHistory = append(r.chatHistory, msg)
	if over := len(r.chatHistory) - r.chatLimit; over > 0 {
		r.chatHistory = r.chatHistory[over:]
	}
}

// ChatHistory returns a copy of the room's bounded chat buffer.
func (r *Room) ChatHistory() []wire.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.ChatMessage, len(r.chatHistory))
	copy(out, r.chatHistory)
	return out
}

// Registry is the in-process map of live rooms, keyed by normalized
// code. It is the in-memory half of the RoomStore seam spec.md §4.4
// names; internal/storage/roomstore provides an out-of-process
// implementation behind the same shape for operators who want rooms
// to survive a restart of this process (engines themselves never do,
// per the Non-goals).
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	log   slog.Logger
}

// NewRegistry builds an empty room Registry.
func NewRegistry(log slog.Logger) *Registry {
	return &Registry{rooms: make(map[string]*Room), log: log}
}

// Normalize uppercases and trims a caller-supplied room code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateCode produces a fresh, unused 6-char code from the
// confusion-free alphabet, retrying on the (astronomically unlikely)
// collision with an already-live room.
func (reg *Registry) GenerateCode() (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		reg.mu.RLock()
		_, taken := reg.rooms[code]
		reg.mu.RUnlock()
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("room: exhausted code generation attempts")
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("room: read entropy: %w", err)
	}
	var sb strings.Builder
	sb.Grow(codeLength)
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String(), nil
}

// Create registers a brand-new Room under a freshly generated code.
func (reg *Registry) Create(kind engine.Kind, chatLimit int) (*Room, error) {
	code, err := reg.GenerateCode()
	if err != nil {
		return nil, err
	}
	r := New(code, kind, chatLimit)
	reg.mu.Lock()
	reg.rooms[code] = r
	reg.mu.Unlock()
	reg.log.Infof("room %s created (kind=%s)", code, kind)
	return r, nil
}

// Get returns the room for code, normalizing it first.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[Normalize(code)]
	return r, ok
}

// Delete removes a room from the registry.
func (reg *Registry) Delete(code string) {
	code = Normalize(code)
	reg.mu.Lock()
	delete(reg.rooms, code)
	reg.mu.Unlock()
	reg.log.Infof("room %s deleted", code)
}

// CleanupStale deletes every finished or empty room idle longer than
// ttl, returning the codes it removed.
func (reg *Registry) CleanupStale(ttl time.Duration) []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var removed []string
	for code, r := range reg.rooms {
		if r.IdleFor() < ttl {
			continue
		}
		if r.Status == StatusFinished || r.SeatCount() == 0 {
			delete(reg.rooms, code)
			removed = append(removed, code)
		}
	}
	if len(removed) > 0 {
		reg.log.Infof("cleaned up %d stale rooms", len(removed))
	}
	return removed
}
