// Package logging builds the single decred/slog backend the server
// hands tagged subsystem loggers out of, grounded on
// vctt94-pokerbisonrelay/pkg/server/server.go's logBackend.Logger(tag)
// pattern. No package-level logger globals; every component takes its
// Logger through its constructor.
package logging

import (
	"io"
	"os"

	"github.com/decred/slog"
)

// Backend wraps a slog.Backend and remembers the level new loggers
// should start at, so every subsystem tag is consistent.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
}

// New builds a Backend writing to w (os.Stdout in production, a
// bytes.Buffer in tests that want to assert on log output).
func New(w io.Writer, level slog.Level) *Backend {
	return &Backend{backend: slog.NewBackend(w), level: level}
}

// NewStdout is the common case: log to stdout at the given level name
// ("debug", "info", "warn", "error"; unrecognized names fall back to
// info).
func NewStdout(levelName string) *Backend {
	lvl, ok := slog.LevelFromString(levelName)
	if !ok {
		lvl = slog.LevelInfo
	}
	return New(os.Stdout, lvl)
}

// Logger returns a tagged logger for subsystem (e.g. "ROOM", "STOR",
// "TMR ", "RTR ", "BCST"). The tag is used as given; callers pass
// four-character tags, padded in the teacher's style, so columns line up.
func (b *Backend) Logger(subsystem string) slog.Logger {
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	return l
}
