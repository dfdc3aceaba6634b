// Package roomstore demonstrates the out-of-process half of the
// RoomStore seam spec.md §4.4 names for room records (not live
// engines, which stay memory-resident per the Non-goals). An in-memory
// implementation is the default, used by this package's tests (the
// Lifecycle Coordinator keeps rooms in room.Registry); Postgres is a concrete out-of-process adapter behind
// the same interface, adapted from
// internal/storage/postgres/postgres_sessions.go's sql.DB query shape.
package roomstore

import (
	"context"
	"time"
)

// Record is the persisted shape of a room, independent of the live
// in-process room.Room (which additionally holds socket-facing state).
type Record struct {
	Code           string
	Kind           string
	Status         string
	Theme          string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// RoomStore is the persistence seam: save/find/delete a room record by
// code. Both the in-memory and Postgres implementations satisfy it.
type RoomStore interface {
	Save(ctx context.Context, rec Record) error
	Find(ctx context.Context, code string) (Record, bool, error)
	Delete(ctx context.Context, code string) error
}
