// Package lifecycle implements the Lifecycle Coordinator (C9):
// host-only game start gating, single-engine-per-room invariant,
// leaderboard assembly, room status transitions, and best-effort,
// fire-and-forget publication of game-over analytics. Grounded on
// internal/game/table.go's ShouldStartHand/min-player gating,
// generalized from "enough players for a poker hand" to "enough seats
// for any of the ten engines."
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"

	"lobby-platform/internal/broadcast"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/events"
	"lobby-platform/internal/room"
	"lobby-platform/internal/roomlock"
	"lobby-platform/internal/rng"
	"lobby-platform/internal/storage/analytics"
	"lobby-platform/internal/store"
	"lobby-platform/internal/timer"
)

// Coordinator owns the start/finish transitions every room goes through.
type Coordinator struct {
	rooms      *room.Registry
	games      *store.GameStore
	timers     *timer.Scheduler
	locks      *roomlock.Registry
	broadcast  *broadcast.Broadcaster
	rngSource  func() rng.Source
	publisher  *events.Publisher
	analytics  *analytics.Sink
	log        slog.Logger
}

// New builds a Coordinator. analyticsSink may be nil (ClickHouse is
// optional per CLICKHOUSE_DSN); publisher is never nil — callers pass
// events.NewNoop() when KAFKA_BROKERS is unset.
func New(rooms *room.Registry, games *store.GameStore, timers *timer.Scheduler, locks *roomlock.Registry, bc *broadcast.Broadcaster, rngSource func() rng.Source, publisher *events.Publisher, analyticsSink *analytics.Sink, log slog.Logger) *Coordinator {
	return &Coordinator{
		rooms: rooms, games: games, timers: timers, locks: locks,
		broadcast: bc, rngSource: rngSource, publisher: publisher,
		analytics: analyticsSink, log: log,
	}
}

// StartGame gates and performs a room's transition from lobby to
// playing: only the host may start, a room may hold only one live
// engine at a time, and the engine's own MinSeats bounds readiness.
// Callers must hold roomCode's lock.
func (c *Coordinator) StartGame(rm *room.Room, requestingPlayerID string, kind engine.Kind) error {
	if !rm.IsHost(requestingPlayerID) {
		return fmt.Errorf("lifecycle: only the host may start the game")
	}
	if !kind.Valid() {
		return fmt.Errorf("lifecycle: unknown game kind %q", kind)
	}
	if _, exists := c.games.Peek(rm.Code); exists {
		return fmt.Errorf("lifecycle: room already has an active game")
	}

	opts := engine.Options{}
	if c.rngSource != nil {
		opts.RNG = c.rngSource()
	}
	for _, s := range rm.Seats {
		opts.SeedPlayer = append(opts.SeedPlayer, engine.Seat{SeatIndex: s.Index, PlayerID: s.PlayerID})
	}

	eng, err := c.games.Create(rm.Code, kind, opts)
	if err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	if len(opts.SeedPlayer) < eng.MinSeats() {
		c.games.Delete(rm.Code)
		return fmt.Errorf("lifecycle: need at least %d seats, have %d", eng.MinSeats(), len(opts.SeedPlayer))
	}
	for _, seat := range opts.SeedPlayer {
		eng.AddPlayer(seat)
	}

	rm.SetStatus(room.StatusPlaying)
	rm.Touch()

	if idx, has := eng.CurrentPlayerIndex(); has {
		playerID := seatPlayerID(rm, idx)
		c.timers.Arm(rm.Code, kind, idx, playerID)
	}

	c.publisher.PublishRoomLifecycle(events.RoomLifecycleEvent{
		RoomCode: rm.Code, Kind: string(kind), Action: "started", At: time.Now(),
	})
	c.log.Infof("room %s started game %s", rm.Code, kind)
	return nil
}

func seatPlayerID(rm *room.Room, seatIndex int) string {
	for _, s := range rm.Seats {
		if s.Index == seatIndex {
			return s.PlayerID
		}
	}
	return ""
}

// BroadcastState relays to the Broadcaster, so the router has a single
// collaborator (the Coordinator) to call after successful actions.
func (c *Coordinator) BroadcastState(roomCode string) {
	c.broadcast.BroadcastState(roomCode)
}

// HandleTerminal assembles the leaderboard, transitions the room to
// finished, tears down the engine and its timer state, and
// fire-and-forgets analytics publication. Callers must hold roomCode's
// lock.
func (c *Coordinator) HandleTerminal(rm *room.Room, eng engine.Engine) {
	leaderboard := assembleLeaderboard(rm, eng)
	c.broadcast.BroadcastWinner(rm.Code, leaderboard)

	rm.SetStatus(room.StatusFinished)
	winnerSeat, hasWinner := eng.WinnerIndex()

	c.timers.Clear(rm.Code)
	c.games.Delete(rm.Code)

	c.publisher.PublishGameOver(events.GameOverEvent{
		RoomCode: rm.Code, Kind: string(eng.Kind()), WinnerSeat: winnerSeat,
		HasWinner: hasWinner, SeatCount: len(rm.Seats), FinishedAt: time.Now(),
	})
	if c.analytics != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := c.analytics.Append(ctx, analytics.Event{
				EventType: "game_over", RoomCode: rm.Code, GameKind: string(eng.Kind()),
				WinnerSeat: winnerSeat, HasWinner: hasWinner, SeatCount: len(rm.Seats),
				Timestamp: time.Now(),
			}); err != nil {
				c.log.Warnf("analytics append failed for room %s: %v", rm.Code, err)
			}
		}()
	}
	c.log.Infof("room %s game finished (kind=%s)", rm.Code, eng.Kind())
}

// assembleLeaderboard prefers the engine's native finish order
// (engine.FinishOrderer) and falls back to winner-then-remaining-rank.
func assembleLeaderboard(rm *room.Room, eng engine.Engine) []engine.LeaderboardEntry {
	if fo, ok := eng.(engine.FinishOrderer); ok {
		order := fo.FinishOrder()
		out := make([]engine.LeaderboardEntry, 0, len(order))
		for rank, seatIdx := range order {
			out = append(out, engine.LeaderboardEntry{
				SeatIndex: seatIdx, PlayerID: seatPlayerID(rm, seatIdx), Rank: rank + 1,
			})
		}
		return out
	}

	winnerSeat, hasWinner := eng.WinnerIndex()
	out := make([]engine.LeaderboardEntry, 0, len(rm.Seats))
	rank := 1
	if hasWinner {
		out = append(out, engine.LeaderboardEntry{SeatIndex: winnerSeat, PlayerID: seatPlayerID(rm, winnerSeat), Rank: rank})
		rank++
	}
	for _, s := range rm.Seats {
		if hasWinner && s.Index == winnerSeat {
			continue
		}
		out = append(out, engine.LeaderboardEntry{SeatIndex: s.Index, PlayerID: s.PlayerID, Rank: rank})
		rank++
	}
	return out
}

// HandleTimerFired is the timer.FiredHandler the server wires in: auto-
// play the expired seat, and either re-arm or eliminate depending on
// how many consecutive auto-plays that seat has accumulated.
func (c *Coordinator) HandleTimerFired(roomCode string, seatIndex int, playerID string) {
	eng, ok := c.games.Peek(roomCode)
	if !ok {
		return
	}
	if err := eng.AutoPlay(seatIndex); err != nil {
		c.log.Warnf("auto-play failed for room %s seat %d: %v", roomCode, seatIndex, err)
	}

	if c.timers.RecordAutoPlay(roomCode) {
		if err := eng.Eliminate(seatIndex); err != nil {
			c.log.Warnf("eliminate failed for room %s seat %d: %v", roomCode, seatIndex, err)
		}
		c.timers.Cancel(roomCode)
	}

	c.broadcast.BroadcastState(roomCode)

	if eng.IsTerminal() {
		if rm, ok := c.rooms.Get(roomCode); ok {
			c.HandleTerminal(rm, eng)
		}
		return
	}
	if idx, has := eng.CurrentPlayerIndex(); has {
		c.timers.Arm(roomCode, eng.Kind(), idx, seatPlayerID0(c.rooms, roomCode, idx))
	}
}

func seatPlayerID0(rooms *room.Registry, roomCode string, seatIndex int) string {
	rm, ok := rooms.Get(roomCode)
	if !ok {
		return ""
	}
	return seatPlayerID(rm, seatIndex)
}
