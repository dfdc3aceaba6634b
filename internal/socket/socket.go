// Package socket implements the Socket Manager (C5): bidirectional
// socketID<->roomCode maps and room-scoped emission, behind a
// transport-agnostic Emitter so C5-C9 never import gorilla/websocket
// directly.
package socket

import (
	"sync"

	"github.com/decred/slog"

	"lobby-platform/internal/store"
)

// Emitter is anything that can push a wire event to one connected
// client. The cmd/game-server wire-up supplies an implementation
// backed by *websocket.Conn; tests supply an in-memory recorder.
type Emitter interface {
	Emit(eventType string, payload any) error
	Close() error
}

// Manager tracks which socket is in which room and fans out emission
// across a room's connected sockets.
type Manager struct {
	mu        sync.RWMutex
	sockets   map[string]Emitter
	socketRoom map[string]string
	roomSockets map[string]map[string]bool
	players   map[string]string // socketID -> playerID

	store *store.GameStore
	log   slog.Logger
}

// New builds a Manager; store is consulted by LeaveRoom only to log
// when a room is left with neither sockets nor a live engine.
func New(gameStore *store.GameStore, log slog.Logger) *Manager {
	return &Manager{
		sockets:     make(map[string]Emitter),
		socketRoom:  make(map[string]string),
		roomSockets: make(map[string]map[string]bool),
		players:     make(map[string]string),
		store:       gameStore,
		log:         log,
	}
}

// Register associates socketID with its Emitter and the authenticated
// playerID driving it.
func (m *Manager) Register(socketID, playerID string, e Emitter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sockets[socketID] = e
	m.players[socketID] = playerID
}

// PlayerID returns the player bound to socketID, if registered.
func (m *Manager) PlayerID(socketID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[socketID]
	return p, ok
}

// JoinRoom moves socketID into roomCode, leaving its previous room (if
// any) first.
func (m *Manager) JoinRoom(socketID, roomCode string) {
	m.LeaveRoom(socketID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.socketRoom[socketID] = roomCode
	set, ok := m.roomSockets[roomCode]
	if !ok {
		set = make(map[string]bool)
		m.roomSockets[roomCode] = set
	}
	set[socketID] = true
}

// LeaveRoom removes socketID from whatever room it is in. If that
// empties the room's socket set, the set entry is dropped whether or
// not an engine is live; no room record is deleted here.
func (m *Manager) LeaveRoom(socketID string) {
	m.mu.Lock()
	roomCode, inRoom := m.socketRoom[socketID]
	if !inRoom {
		m.mu.Unlock()
		return
	}
	delete(m.socketRoom, socketID)
	set := m.roomSockets[roomCode]
	delete(set, socketID)
	empty := len(set) == 0
	if empty {
		delete(m.roomSockets, roomCode)
	}
	m.mu.Unlock()

	if empty && m.store != nil {
		if _, hasEngine := m.store.Peek(roomCode); !hasEngine {
			m.log.Debugf("room %s has no sockets or engine left", roomCode)
		}
	}
}

// Unregister fully removes socketID: leaves its room and drops its
// emitter/player binding.
func (m *Manager) Unregister(socketID string) {
	m.LeaveRoom(socketID)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sockets, socketID)
	delete(m.players, socketID)
}

// RoomOf returns the room code socketID currently occupies.
func (m *Manager) RoomOf(socketID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	code, ok := m.socketRoom[socketID]
	return code, ok
}

// EmitToSocket sends an event to exactly one socket.
func (m *Manager) EmitToSocket(socketID string, eventType string, payload any) error {
	m.mu.RLock()
	e, ok := m.sockets[socketID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.Emit(eventType, payload)
}

// EmitToRoom sends an event to every socket currently in roomCode,
// skipping skipSocketID if non-empty (e.g. don't echo ERROR to anyone
// but the sender). Errors from individual sockets are logged, not
// returned — one dead connection should not block the rest of the room.
func (m *Manager) EmitToRoom(roomCode, eventType string, payload any, skipSocketID string) {
	m.mu.RLock()
	set := m.roomSockets[roomCode]
	ids := make([]string, 0, len(set))
	for id := range set {
		if id != skipSocketID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.EmitToSocket(id, eventType, payload); err != nil {
			m.log.Warnf("emit to socket %s failed: %v", id, err)
		}
	}
}

// SocketsInRoom returns the socket IDs currently joined to roomCode.
func (m *Manager) SocketsInRoom(roomCode string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := m.roomSockets[roomCode]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
