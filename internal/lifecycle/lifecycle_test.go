package lifecycle

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"lobby-platform/internal/broadcast"
	"lobby-platform/internal/engine"
	_ "lobby-platform/internal/engine/tictactoe"
	"lobby-platform/internal/events"
	"lobby-platform/internal/rng"
	"lobby-platform/internal/room"
	"lobby-platform/internal/roomlock"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/store"
	"lobby-platform/internal/timer"
)

// newCoordinator wires a Coordinator the way cmd/game-server does: the
// timer's FiredHandler closes over a not-yet-constructed Coordinator
// variable, since the two depend on each other.
func newCoordinator(t *testing.T) (*Coordinator, *room.Registry, *store.GameStore, *timer.Scheduler) {
	t.Helper()
	rooms := room.NewRegistry(slog.Disabled)
	games := store.New(slog.Disabled)
	sockets := socket.New(games, slog.Disabled)
	locks := roomlock.New()
	bc := broadcast.New(rooms, games, sockets, slog.Disabled)

	var coord *Coordinator
	timers := timer.New(locks, slog.Disabled, time.Hour, 3, func(roomCode string, seatIndex int, playerID string) {
		coord.HandleTimerFired(roomCode, seatIndex, playerID)
	})
	coord = New(rooms, games, timers, locks, bc, func() rng.Source { return rng.NewFixed(0) }, events.NewNoop(), nil, slog.Disabled)
	return coord, rooms, games, timers
}

func seatRoom(t *testing.T, rooms *room.Registry) *room.Room {
	t.Helper()
	rm, err := rooms.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)
	_, ok := rm.AddSeat("host", "Host", 2)
	require.True(t, ok)
	_, ok = rm.AddSeat("guest", "Guest", 2)
	require.True(t, ok)
	return rm
}

func cellPayload(cell int) map[string]any {
	return map[string]any{"cell": float64(cell)}
}

func TestStartGameRejectsNonHost(t *testing.T) {
	coord, rooms, _, _ := newCoordinator(t)
	rm := seatRoom(t, rooms)

	err := coord.StartGame(rm, "guest", engine.KindTicTacToe)
	require.Error(t, err)
	require.Equal(t, room.StatusLobby, rm.Status)
}

func TestStartGameRejectsUnknownKind(t *testing.T) {
	coord, rooms, _, _ := newCoordinator(t)
	rm := seatRoom(t, rooms)

	err := coord.StartGame(rm, "host", engine.Kind("not_a_real_game"))
	require.Error(t, err)
}

func TestStartGameSeedsPlayersAndArmsTimer(t *testing.T) {
	coord, rooms, games, timers := newCoordinator(t)
	rm := seatRoom(t, rooms)

	require.NoError(t, coord.StartGame(rm, "host", engine.KindTicTacToe))
	require.Equal(t, room.StatusPlaying, rm.Status)

	eng, ok := games.Peek(rm.Code)
	require.True(t, ok)
	idx, has := eng.CurrentPlayerIndex()
	require.True(t, has)
	require.Equal(t, 0, idx, "tic-tac-toe's seat 0 always moves first")

	require.Equal(t, timer.StateArmed, timers.StateOf(rm.Code))
}

func TestStartGameRejectsASecondConcurrentGame(t *testing.T) {
	coord, rooms, _, _ := newCoordinator(t)
	rm := seatRoom(t, rooms)
	require.NoError(t, coord.StartGame(rm, "host", engine.KindTicTacToe))

	err := coord.StartGame(rm, "host", engine.KindTicTacToe)
	require.Error(t, err, "a room may hold only one live engine at a time")
}

func TestHandleTerminalAssemblesLeaderboardAndTearsDownEngine(t *testing.T) {
	coord, rooms, games, timers := newCoordinator(t)
	rm := seatRoom(t, rooms)
	require.NoError(t, coord.StartGame(rm, "host", engine.KindTicTacToe))

	eng, ok := games.Peek(rm.Code)
	require.True(t, ok)
	// host (seat 0) takes the top row; guest (seat 1) plays elsewhere.
	require.NoError(t, eng.HandleAction("host", "place", cellPayload(0)))
	require.NoError(t, eng.HandleAction("guest", "place", cellPayload(3)))
	require.NoError(t, eng.HandleAction("host", "place", cellPayload(1)))
	require.NoError(t, eng.HandleAction("guest", "place", cellPayload(4)))
	require.NoError(t, eng.HandleAction("host", "place", cellPayload(2)))
	require.True(t, eng.IsTerminal())

	coord.HandleTerminal(rm, eng)

	require.Equal(t, room.StatusFinished, rm.Status)
	_, stillLive := games.Peek(rm.Code)
	require.False(t, stillLive, "the engine must be torn down once a game finishes")
	require.Equal(t, timer.StateIdle, timers.StateOf(rm.Code))
}

func TestHandleTimerFiredAutoPlaysAndRearmsNextSeat(t *testing.T) {
	coord, rooms, games, timers := newCoordinator(t)
	rm := seatRoom(t, rooms)
	require.NoError(t, coord.StartGame(rm, "host", engine.KindTicTacToe))

	coord.HandleTimerFired(rm.Code, 0, "host")

	eng, ok := games.Peek(rm.Code)
	require.True(t, ok)
	require.False(t, eng.IsTerminal())
	idx, has := eng.CurrentPlayerIndex()
	require.True(t, has)
	require.Equal(t, 1, idx, "the auto-played seat's turn must pass to the other seat")
	require.Equal(t, timer.StateArmed, timers.StateOf(rm.Code), "the next seat's timer must be re-armed")
}

func TestHandleTimerFiredEliminatesAfterMaxAutoPlays(t *testing.T) {
	coord, rooms, games, timers := newCoordinator(t)
	rm := seatRoom(t, rooms)
	require.NoError(t, coord.StartGame(rm, "host", engine.KindTicTacToe))

	// Taken before the fires: the game ending tears the engine out of the store.
	eng, ok := games.Peek(rm.Code)
	require.True(t, ok)

	// maxAutoPlays is 3: the scheduler's own entry accumulates auto-plays
	// per room, not per seat, so three consecutive fires on this room
	// must eliminate whichever seat is current on the third fire.
	coord.HandleTimerFired(rm.Code, 0, "host")
	coord.HandleTimerFired(rm.Code, 1, "guest")
	coord.HandleTimerFired(rm.Code, 0, "host")

	require.True(t, eng.IsTerminal(), "the third auto-play on this room must eliminate the current seat")
	require.Equal(t, timer.StateIdle, timers.StateOf(rm.Code))
}
