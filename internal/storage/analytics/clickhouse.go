// Package analytics is the append-only game/hand-event sink: hand
// started/completed, winner, auto-play counts. An audit trail, distinct
// from the teacher's excluded player-fraud analytics. Adapted from
// internal/storage/clickhouse.go's connection/CreateTables shape,
// pared down to one table for this narrower purpose.
package analytics

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// Config holds ClickHouse connection parameters.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Secure   bool
}

// Sink writes game-event rows to ClickHouse.
type Sink struct {
	db clickhouse.Conn
}

// Open connects to ClickHouse and ensures the game_events table exists.
func Open(ctx context.Context, cfg Config) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		TLS: &tls.Config{InsecureSkipVerify: !cfg.Secure},
	})
	if err != nil {
		return nil, fmt.Errorf("analytics: connect: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("analytics: ping: %w", err)
	}
	s := &Sink{db: conn}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) createTable(ctx context.Context) error {
	return s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_events (
			event_type String,
			room_code String,
			game_kind String,
			seat_index Int32,
			player_id String,
			winner_seat Int32,
			has_winner Bool,
			seat_count Int32,
			auto_plays Int32,
			timestamp DateTime64(3)
		) ENGINE = MergeTree()
		ORDER BY (room_code, timestamp)`)
}

// Event is one row appended to game_events.
type Event struct {
	EventType  string
	RoomCode   string
	GameKind   string
	SeatIndex  int
	PlayerID   string
	WinnerSeat int
	HasWinner  bool
	SeatCount  int
	AutoPlays  int
	Timestamp  time.Time
}

// Append inserts ev. Callers treat failures as best-effort (log and
// continue) since analytics must never block game handling.
func (s *Sink) Append(ctx context.Context, ev Event) error {
	batch, err := s.db.PrepareBatch(ctx, "INSERT INTO game_events")
	if err != nil {
		return err
	}
	if err := batch.Append(
		ev.EventType, ev.RoomCode, ev.GameKind, int32(ev.SeatIndex), ev.PlayerID,
		int32(ev.WinnerSeat), ev.HasWinner, int32(ev.SeatCount), int32(ev.AutoPlays), ev.Timestamp,
	); err != nil {
		return err
	}
	return batch.Send()
}

// Close releases the underlying connection.
func (s *Sink) Close() error { return s.db.Close() }
