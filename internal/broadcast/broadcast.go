// Package broadcast implements Broadcast & Projection (C7): per-socket
// masked state emission, optional animation-hint relay, and GAME_WINNER
// emission on termination (internal/lifecycle assembles the leaderboard
// and does the room-finish + engine cleanup).
package broadcast

import (
	"github.com/decred/slog"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/room"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/store"
	"lobby-platform/internal/wire"
)

// Broadcaster emits GAME_STATE (and optionally GAME_TOKEN_MOVE) to
// every socket in a room, each with its own masked projection.
type Broadcaster struct {
	rooms   *room.Registry
	games   *store.GameStore
	sockets *socket.Manager
	log     slog.Logger
}

// New builds a Broadcaster.
func New(rooms *room.Registry, games *store.GameStore, sockets *socket.Manager, log slog.Logger) *Broadcaster {
	return &Broadcaster{rooms: rooms, games: games, sockets: sockets, log: log}
}

// BroadcastState emits a masked GAME_STATE to every socket in
// roomCode, one ProjectFor call per connected player, plus any
// animation hints the engine produced for its most recent action.
func (b *Broadcaster) BroadcastState(roomCode string) {
	eng, ok := b.games.Peek(roomCode)
	if !ok {
		return
	}
	rm, ok := b.rooms.Get(roomCode)
	if !ok {
		return
	}
	currentSeat, hasTurn := eng.CurrentPlayerIndex()

	for _, socketID := range b.sockets.SocketsInRoom(roomCode) {
		playerID, ok := b.sockets.PlayerID(socketID)
		if !ok {
			continue
		}
		proj := eng.ProjectFor(playerID)
		viewerHasTurn := hasTurn && b.seatIndexOf(rm, playerID) == currentSeat
		payload := wire.GameStatePayload{
			RoomCode:        roomCode,
			State:           proj.State,
			CurrentSeat:     currentSeat,
			HasTurn:         viewerHasTurn,
			AvailableAction: proj.AvailableActions,
		}
		if err := b.sockets.EmitToSocket(socketID, string(wire.EventGameState), payload); err != nil {
			b.log.Warnf("broadcast to socket %s failed: %v", socketID, err)
		}
	}

	for _, step := range eng.AnimationHints() {
		b.sockets.EmitToRoom(roomCode, string(wire.EventTokenMove), wire.TokenMovePayload{
			RoomCode: roomCode, Kind: step.Kind, From: step.From, To: step.To, Meta: step.Meta,
		}, "")
	}
}

func (b *Broadcaster) seatIndexOf(rm *room.Room, playerID string) int {
	for _, s := range rm.Seats {
		if s.PlayerID == playerID {
			return s.Index
		}
	}
	return -1
}

// BroadcastWinner emits GAME_WINNER with the assembled leaderboard.
func (b *Broadcaster) BroadcastWinner(roomCode string, leaderboard []engine.LeaderboardEntry) {
	wireBoard := make([]wire.LeaderboardEntry, len(leaderboard))
	for i, e := range leaderboard {
		wireBoard[i] = wire.LeaderboardEntry{SeatIndex: e.SeatIndex, PlayerID: e.PlayerID, Rank: e.Rank}
	}
	b.sockets.EmitToRoom(roomCode, string(wire.EventGameWinner), wire.GameWinnerPayload{
		RoomCode: roomCode, Leaderboard: wireBoard,
	}, "")
}
