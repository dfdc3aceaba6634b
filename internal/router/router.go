// Package router implements the Action Router (C6): resolves a room
// and its engine from an inbound wire envelope, forwards game actions
// to the engine, and translates envelope/lifecycle/turn/rules failures
// into a typed ERROR event sent only to the originating socket.
// Sentinel errors follow internal/game/table.go's ErrTableFull /
// ErrPlayerNotFound style.
package router

import (
	"errors"
	"fmt"

	"github.com/decred/slog"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/lifecycle"
	"lobby-platform/internal/metrics"
	"lobby-platform/internal/room"
	"lobby-platform/internal/roomlock"
	"lobby-platform/internal/socket"
	"lobby-platform/internal/store"
	"lobby-platform/internal/timer"
	"lobby-platform/internal/wire"
)

// Router-level sentinel errors, wire-translated to EventError with
// KindEnvelope or KindLifecycle.
var (
	ErrRoomNotFound    = errors.New("router: room not found")
	ErrNotInRoom       = errors.New("router: socket is not joined to that room")
	ErrNoEngine        = errors.New("router: no active game in room")
	ErrNotHost         = errors.New("router: action requires the room host")
	ErrUnknownEvent    = errors.New("router: unknown event type")
)

// Router wires together the room registry, game store, socket manager,
// turn timer, and lifecycle coordinator to process one inbound event at
// a time.
type Router struct {
	rooms   *room.Registry
	games   *store.GameStore
	sockets *socket.Manager
	locks   *roomlock.Registry
	timers  *timer.Scheduler
	life    *lifecycle.Coordinator
	metrics *metrics.Registry
	log     slog.Logger
}

// New builds a Router from its already-constructed collaborators.
func New(rooms *room.Registry, games *store.GameStore, sockets *socket.Manager, locks *roomlock.Registry, timers *timer.Scheduler, life *lifecycle.Coordinator, m *metrics.Registry, log slog.Logger) *Router {
	return &Router{rooms: rooms, games: games, sockets: sockets, locks: locks, timers: timers, life: life, metrics: m, log: log}
}

// Dispatch handles one inbound envelope from socketID.
func (r *Router) Dispatch(socketID string, env wire.Envelope) {
	switch env.Type {
	case wire.EventRoomJoin:
		r.handleRoomJoin(socketID, env)
	case wire.EventRoomTheme:
		r.handleRoomTheme(socketID, env)
	case wire.EventGameStart:
		r.handleGameStart(socketID, env)
	case wire.EventGameAction:
		r.handleGameAction(socketID, env)
	case wire.EventChatSend:
		r.handleChatSend(socketID, env)
	case wire.EventRoomLeave:
		r.sockets.Unregister(socketID)
	default:
		r.sendError(socketID, "envelope", ErrUnknownEvent.Error())
	}
}

func (r *Router) handleRoomJoin(socketID string, env wire.Envelope) {
	var p wire.RoomJoinPayload
	if err := env.Decode(&p); err != nil {
		r.sendError(socketID, "envelope", err.Error())
		return
	}
	code := room.Normalize(p.RoomCode)
	rm, ok := r.rooms.Get(code)
	if !ok {
		r.sendError(socketID, "envelope", ErrRoomNotFound.Error())
		return
	}

	playerID, _ := r.sockets.PlayerID(socketID)
	if playerID == "" {
		playerID = p.PlayerID
	}

	var seat room.Seat
	var seated bool
	r.locks.WithLock(code, func() {
		maxSeats := 8
		if eng, ok := r.games.Peek(code); ok {
			maxSeats = eng.MaxSeats()
		}
		seat, seated = rm.AddSeat(playerID, p.Name, maxSeats)
	})
	if !seated {
		r.sendError(socketID, "lifecycle", "room is full")
		return
	}

	r.sockets.JoinRoom(socketID, code)
	rm.Touch()

	r.sockets.EmitToSocket(socketID, string(wire.EventChatHistory), wire.ChatHistoryPayload{
		RoomCode: code, Messages: rm.ChatHistory(),
	})
	r.log.Infof("socket %s joined room %s as seat %d", socketID, code, seat.Index)
}

func (r *Router) handleRoomTheme(socketID string, env wire.Envelope) {
	code, ok := r.sockets.RoomOf(socketID)
	if !ok {
		r.sendError(socketID, "envelope", ErrNotInRoom.Error())
		return
	}
	rm, ok := r.rooms.Get(code)
	if !ok {
		r.sendError(socketID, "envelope", ErrRoomNotFound.Error())
		return
	}
	playerID, _ := r.sockets.PlayerID(socketID)
	if !rm.IsHost(playerID) {
		r.sendError(socketID, "lifecycle", ErrNotHost.Error())
		return
	}
	var p wire.RoomThemePayload
	if err := env.Decode(&p); err != nil {
		r.sendError(socketID, "envelope", err.Error())
		return
	}
	rm.SetTheme(p.Theme)
	rm.Touch()
}

func (r *Router) handleGameStart(socketID string, env wire.Envelope) {
	code, ok := r.sockets.RoomOf(socketID)
	if !ok {
		r.sendError(socketID, "envelope", ErrNotInRoom.Error())
		return
	}
	rm, ok := r.rooms.Get(code)
	if !ok {
		r.sendError(socketID, "envelope", ErrRoomNotFound.Error())
		return
	}
	var p wire.GameStartPayload
	if err := env.Decode(&p); err != nil {
		r.sendError(socketID, "envelope", err.Error())
		return
	}
	playerID, _ := r.sockets.PlayerID(socketID)

	var startErr error
	r.locks.WithLock(code, func() {
		startErr = r.life.StartGame(rm, playerID, engine.Kind(p.Kind))
	})
	if startErr != nil {
		r.sendError(socketID, "lifecycle", startErr.Error())
		return
	}
	r.life.BroadcastState(code)
}

func (r *Router) handleGameAction(socketID string, env wire.Envelope) {
	code, ok := r.sockets.RoomOf(socketID)
	if !ok {
		r.sendError(socketID, "envelope", ErrNotInRoom.Error())
		return
	}
	var p wire.GameActionPayload
	if err := env.Decode(&p); err != nil {
		r.sendError(socketID, "envelope", err.Error())
		return
	}
	playerID, _ := r.sockets.PlayerID(socketID)

	eng, ok := r.games.Get(code)
	if !ok {
		r.sendError(socketID, "lifecycle", ErrNoEngine.Error())
		return
	}

	var actionErr error
	r.locks.WithLock(code, func() {
		actionErr = eng.HandleAction(playerID, p.Action, p.Data)
		if actionErr == nil {
			r.timers.ResetAutoPlays(code)
			if idx, has := eng.CurrentPlayerIndex(); has {
				r.timers.Arm(code, eng.Kind(), idx, playerID)
			} else {
				r.timers.Cancel(code)
			}
		}
	})

	if actionErr != nil {
		var ee *engine.Error
		if errors.As(actionErr, &ee) {
			r.metrics.ActionErrorsTotal.WithLabelValues(string(eng.Kind()), ee.Kind.String()).Inc()
			r.sendError(socketID, ee.Kind.String(), ee.Message)
			return
		}
		r.metrics.ActionErrorsTotal.WithLabelValues(string(eng.Kind()), "rules").Inc()
		r.sendError(socketID, "rules", actionErr.Error())
		return
	}

	r.metrics.ActionsTotal.WithLabelValues(string(eng.Kind())).Inc()
	r.games.Touch(code)
	r.life.BroadcastState(code)
	if eng.IsTerminal() {
		r.locks.WithLock(code, func() {
			if rm, ok := r.rooms.Get(code); ok {
				r.life.HandleTerminal(rm, eng)
			}
		})
	}
}

func (r *Router) handleChatSend(socketID string, env wire.Envelope) {
	code, ok := r.sockets.RoomOf(socketID)
	if !ok {
		r.sendError(socketID, "envelope", ErrNotInRoom.Error())
		return
	}
	rm, ok := r.rooms.Get(code)
	if !ok {
		r.sendError(socketID, "envelope", ErrRoomNotFound.Error())
		return
	}
	var p wire.ChatSendPayload
	if err := env.Decode(&p); err != nil {
		r.sendError(socketID, "envelope", err.Error())
		return
	}
	playerID, _ := r.sockets.PlayerID(socketID)

	msg := wire.ChatMessage{PlayerID: playerID, Text: p.Text}
	rm.AppendChat(msg)
	rm.Touch()
	r.sockets.EmitToRoom(code, string(wire.EventChatHistory), wire.ChatHistoryPayload{
		RoomCode: code, Messages: rm.ChatHistory(),
	}, "")
}

func (r *Router) sendError(socketID, kind, message string) {
	if err := r.sockets.EmitToSocket(socketID, string(wire.EventError), wire.ErrorPayload{Kind: kind, Message: message}); err != nil {
		r.log.Warnf("failed to deliver error to socket %s: %v", socketID, err)
	}
}

// Errorf is a small helper matching the teacher's fmt.Errorf("%w", ...)
// sentinel-wrapping style for layered router errors.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
