package roomstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Postgres is a RoomStore backed by a `rooms` table, adapted from
// internal/storage/postgres/postgres_sessions.go's plain sql.DB
// query/scan style.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and ensures the rooms table exists.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("roomstore: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("roomstore: ping: %w", err)
	}
	p := &Postgres{db: db}
	if err := p.createTable(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) createTable() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			theme TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			last_activity_at TIMESTAMPTZ NOT NULL
		)`)
	return err
}

func (p *Postgres) Save(ctx context.Context, rec Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rooms (code, kind, status, theme, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			status = EXCLUDED.status,
			theme = EXCLUDED.theme,
			last_activity_at = EXCLUDED.last_activity_at`,
		rec.Code, rec.Kind, rec.Status, rec.Theme, rec.CreatedAt, rec.LastActivityAt,
	)
	return err
}

func (p *Postgres) Find(ctx context.Context, code string) (Record, bool, error) {
	var rec Record
	err := p.db.QueryRowContext(ctx, `
		SELECT code, kind, status, theme, created_at, last_activity_at
		FROM rooms WHERE code = $1`, code,
	).Scan(&rec.Code, &rec.Kind, &rec.Status, &rec.Theme, &rec.CreatedAt, &rec.LastActivityAt)
	if err == sql.ErrNoRows {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	return err
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error { return p.db.Close() }
