package router

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"lobby-platform/internal/broadcast"
	"lobby-platform/internal/engine"
	_ "lobby-platform/internal/engine/tictactoe"
	"lobby-platform/internal/events"
	"lobby-platform/internal/lifecycle"
	"lobby-platform/internal/metrics"
	"lobby-platform/internal/rng"
	"lobby-platform/internal/room"
	"lobby-platform/internal/roomlock"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/store"
	"lobby-platform/internal/timer"
	"lobby-platform/internal/wire"
)

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

func rawEnvelope(t *testing.T, evType wire.EventType, payload any) wire.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return wire.Envelope{Type: evType, Payload: data}
}

// harness bundles a fully wired Router the way cmd/game-server's
// newServer does, plus the collaborators a test needs direct access to.
type harness struct {
	router  *Router
	rooms   *room.Registry
	games   *store.GameStore
	sockets *socket.Manager
	timers  *timer.Scheduler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	rooms := room.NewRegistry(slog.Disabled)
	games := store.New(slog.Disabled)
	sockets := socket.New(games, slog.Disabled)
	locks := roomlock.New()
	bc := broadcast.New(rooms, games, sockets, slog.Disabled)
	m := metrics.New(prometheus.NewRegistry())

	var coord *lifecycle.Coordinator
	timers := timer.New(locks, slog.Disabled, time.Hour, 3, func(roomCode string, seatIndex int, playerID string) {
		coord.HandleTimerFired(roomCode, seatIndex, playerID)
	})
	coord = lifecycle.New(rooms, games, timers, locks, bc, func() rng.Source { return rng.NewFixed(0) }, events.NewNoop(), nil, slog.Disabled)

	r := New(rooms, games, sockets, locks, timers, coord, m, slog.Disabled)
	return &harness{router: r, rooms: rooms, games: games, sockets: sockets, timers: timers}
}

// seatedRoom creates a two-seat tic-tac-toe room, registers both
// sockets, joins them to the room, and starts the game so seat 0
// (host) is on the clock.
func (h *harness) seatedRoom(t *testing.T) (rm *room.Room, hostEmitter, guestEmitter *recordingEmitter) {
	t.Helper()
	rm, err := h.rooms.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)

	he, ge := newRecordingEmitter(), newRecordingEmitter()
	h.sockets.Register("sockHost", "host", he)
	h.sockets.Register("sockGuest", "guest", ge)

	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: rm.Code, PlayerID: "host", Name: "Host"}))
	h.router.Dispatch("sockGuest", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: rm.Code, PlayerID: "guest", Name: "Guest"}))

	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventGameStart, wire.GameStartPayload{Kind: string(engine.KindTicTacToe)}))
	return rm, he, ge
}

func TestRoomJoinSeatsSocketAndSendsChatHistory(t *testing.T) {
	h := newHarness(t)
	rm, err := h.rooms.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)

	he := newRecordingEmitter()
	h.sockets.Register("sockHost", "host", he)

	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: rm.Code, PlayerID: "host", Name: "Host"}))

	code, ok := h.sockets.RoomOf("sockHost")
	require.True(t, ok)
	require.Equal(t, rm.Code, code)
	require.Equal(t, 1, rm.SeatCount())
	_, ok = he.payloads[string(wire.EventChatHistory)]
	require.True(t, ok)
}

func TestRoomJoinUnknownRoomSendsEnvelopeError(t *testing.T) {
	h := newHarness(t)
	he := newRecordingEmitter()
	h.sockets.Register("sockHost", "host", he)

	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: "NOSUCH", PlayerID: "host"}))

	raw, ok := he.payloads[string(wire.EventError)]
	require.True(t, ok)
	errPayload := raw.(wire.ErrorPayload)
	require.Equal(t, "envelope", errPayload.Kind)
}

func TestUnknownEventTypeSendsEnvelopeError(t *testing.T) {
	h := newHarness(t)
	he := newRecordingEmitter()
	h.sockets.Register("sockHost", "host", he)

	h.router.Dispatch("sockHost", wire.Envelope{Type: wire.EventType("BOGUS")})

	raw, ok := he.payloads[string(wire.EventError)]
	require.True(t, ok)
	errPayload := raw.(wire.ErrorPayload)
	require.Equal(t, "envelope", errPayload.Kind)
	require.Equal(t, ErrUnknownEvent.Error(), errPayload.Message)
}

func TestGameStartByNonHostSendsLifecycleError(t *testing.T) {
	h := newHarness(t)
	rm, err := h.rooms.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)
	he, ge := newRecordingEmitter(), newRecordingEmitter()
	h.sockets.Register("sockHost", "host", he)
	h.sockets.Register("sockGuest", "guest", ge)
	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: rm.Code, PlayerID: "host"}))
	h.router.Dispatch("sockGuest", rawEnvelope(t, wire.EventRoomJoin, wire.RoomJoinPayload{RoomCode: rm.Code, PlayerID: "guest"}))

	h.router.Dispatch("sockGuest", rawEnvelope(t, wire.EventGameStart, wire.GameStartPayload{Kind: string(engine.KindTicTacToe)}))

	raw, ok := ge.payloads[string(wire.EventError)]
	require.True(t, ok)
	errPayload := raw.(wire.ErrorPayload)
	require.Equal(t, "lifecycle", errPayload.Kind)
	_, hasEngine := h.games.Peek(rm.Code)
	require.False(t, hasEngine, "the game must not start when a non-host requests it")
}

func TestGameActionNotYourTurnSendsTurnErrorOnlyToSender(t *testing.T) {
	h := newHarness(t)
	_, he, ge := h.seatedRoom(t)

	h.router.Dispatch("sockGuest", rawEnvelope(t, wire.EventGameAction, wire.GameActionPayload{Action: "place", Data: json.RawMessage(`{"cell":0}`)}))

	raw, ok := ge.payloads[string(wire.EventError)]
	require.True(t, ok, "the acting socket must receive its own rejection")
	errPayload := raw.(wire.ErrorPayload)
	require.Equal(t, "turn", errPayload.Kind)

	_, hostGotError := he.payloads[string(wire.EventError)]
	require.False(t, hostGotError, "ERROR must never be broadcast to sockets other than the sender")
}

func TestGameActionSuccessBroadcastsStateAndRearmsTimer(t *testing.T) {
	h := newHarness(t)
	rm, he, ge := h.seatedRoom(t)

	h.router.Dispatch("sockHost", rawEnvelope(t, wire.EventGameAction, wire.GameActionPayload{Action: "place", Data: json.RawMessage(`{"cell":0}`)}))

	_, hostGotError := he.payloads[string(wire.EventError)]
	require.False(t, hostGotError)
	_, guestGotError := ge.payloads[string(wire.EventError)]
	require.False(t, guestGotError)

	rawHost, ok := he.payloads[string(wire.EventGameState)]
	require.True(t, ok, "a successful action must broadcast fresh state to the room")
	statePayload := rawHost.(wire.GameStatePayload)
	require.Equal(t, rm.Code, statePayload.RoomCode)
	require.False(t, statePayload.HasTurn, "it is now seat 1's turn, not the host's")

	rawGuest := ge.payloads[string(wire.EventGameState)].(wire.GameStatePayload)
	require.True(t, rawGuest.HasTurn, "seat 1 (guest) is now on the clock")

	require.Equal(t, timer.StateArmed, h.timers.StateOf(rm.Code))
}

func TestGameActionTerminalTearsDownEngineAndFinishesRoom(t *testing.T) {
	h := newHarness(t)
	rm, _, _ := h.seatedRoom(t)

	moves := []struct {
		sock, player string
		cell         int
	}{
		{"sockHost", "host", 0},
		{"sockGuest", "guest", 3},
		{"sockHost", "host", 1},
		{"sockGuest", "guest", 4},
		{"sockHost", "host", 2}, // completes the top row for the host
	}
	for _, mv := range moves {
		h.router.Dispatch(mv.sock, rawEnvelope(t, wire.EventGameAction, wire.GameActionPayload{
			Action: "place",
			Data:   json.RawMessage(fmt.Sprintf(`{"cell":%d}`, mv.cell)),
		}))
	}

	_, hasEngine := h.games.Peek(rm.Code)
	require.False(t, hasEngine, "a terminal game must be torn down from the store")
	finishedRoom, ok := h.rooms.Get(rm.Code)
	require.True(t, ok)
	require.Equal(t, room.StatusFinished, finishedRoom.Status)
}
