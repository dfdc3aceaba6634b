package broadcast

import (
	"encoding/json"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"lobby-platform/internal/engine"
	_ "lobby-platform/internal/engine/poker"
	"lobby-platform/internal/room"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/store"
	"lobby-platform/internal/wire"
)

// recordingEmitter captures every payload it is asked to emit, keyed by
// event type, so a test can inspect exactly what a viewer would see.
type recordingEmitter struct {
	payloads map[string]any
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{payloads: make(map[string]any)}
}

func (r *recordingEmitter) Emit(eventType string, payload any) error {
	r.payloads[eventType] = payload
	return nil
}
func (r *recordingEmitter) Close() error { return nil }

type playerView struct {
	SeatIndex  int    `json:"seatIndex"`
	PlayerID   string `json:"playerId"`
	HoleCards  []any  `json:"holeCards,omitempty"`
}

func decodeState(t *testing.T, state any) map[string]playerView {
	t.Helper()
	data, err := json.Marshal(state)
	require.NoError(t, err)
	var decoded struct {
		Players []playerView `json:"players"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	out := make(map[string]playerView, len(decoded.Players))
	for _, p := range decoded.Players {
		out[p.PlayerID] = p
	}
	return out
}

func setup(t *testing.T) (*Broadcaster, *room.Room, *socket.Manager, *recordingEmitter, *recordingEmitter) {
	t.Helper()
	rooms := room.NewRegistry(slog.Disabled)
	games := store.New(slog.Disabled)
	sockets := socket.New(games, slog.Disabled)
	bc := New(rooms, games, sockets, slog.Disabled)

	rm, err := rooms.Create(engine.KindPoker, 50)
	require.NoError(t, err)
	_, ok := rm.AddSeat("p0", "Alice", 9)
	require.True(t, ok)
	_, ok = rm.AddSeat("p1", "Bob", 9)
	require.True(t, ok)

	eng, err := games.Create(rm.Code, engine.KindPoker, engine.Options{})
	require.NoError(t, err)
	require.True(t, eng.AddPlayer(engine.Seat{SeatIndex: 0, PlayerID: "p0"}))
	require.True(t, eng.AddPlayer(engine.Seat{SeatIndex: 1, PlayerID: "p1"})) // auto-starts the hand at 2 seats

	e0, e1 := newRecordingEmitter(), newRecordingEmitter()
	sockets.Register("sock0", "p0", e0)
	sockets.Register("sock1", "p1", e1)
	sockets.JoinRoom("sock0", rm.Code)
	sockets.JoinRoom("sock1", rm.Code)

	return bc, rm, sockets, e0, e1
}

// TestBroadcastStateMasksOtherPlayersHoleCards checks that each socket's
// GAME_STATE sees its own hole cards but not the opponent's, mid-hand.
func TestBroadcastStateMasksOtherPlayersHoleCards(t *testing.T) {
	bc, rm, _, e0, e1 := setup(t)

	bc.BroadcastState(rm.Code)

	raw0, ok := e0.payloads[string(wire.EventGameState)]
	require.True(t, ok)
	raw1, ok := e1.payloads[string(wire.EventGameState)]
	require.True(t, ok)

	payload0 := raw0.(wire.GameStatePayload)
	payload1 := raw1.(wire.GameStatePayload)
	require.Equal(t, rm.Code, payload0.RoomCode)

	views0 := decodeState(t, payload0.State)
	views1 := decodeState(t, payload1.State)

	require.NotEmpty(t, views0["p0"].HoleCards, "seat 0's own socket must see its hole cards")
	require.Empty(t, views0["p1"].HoleCards, "seat 0's socket must not see seat 1's hole cards mid-hand")

	require.NotEmpty(t, views1["p1"].HoleCards, "seat 1's own socket must see its hole cards")
	require.Empty(t, views1["p0"].HoleCards, "seat 1's socket must not see seat 0's hole cards mid-hand")
}

// TestBroadcastWinnerEmitsLeaderboardToEveryoneInRoom checks that
// BroadcastWinner reaches every socket in the room with the same
// leaderboard payload, unmasked.
func TestBroadcastWinnerEmitsLeaderboardToEveryoneInRoom(t *testing.T) {
	bc, rm, _, e0, e1 := setup(t)

	board := []engine.LeaderboardEntry{
		{SeatIndex: 0, PlayerID: "p0", Rank: 1},
		{SeatIndex: 1, PlayerID: "p1", Rank: 2},
	}
	bc.BroadcastWinner(rm.Code, board)

	for _, e := range []*recordingEmitter{e0, e1} {
		raw, ok := e.payloads[string(wire.EventGameWinner)]
		require.True(t, ok)
		payload := raw.(wire.GameWinnerPayload)
		require.Equal(t, rm.Code, payload.RoomCode)
		require.Len(t, payload.Leaderboard, 2)
		require.Equal(t, "p0", payload.Leaderboard[0].PlayerID)
		require.Equal(t, 1, payload.Leaderboard[0].Rank)
	}
}
