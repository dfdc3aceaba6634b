package store

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"lobby-platform/internal/engine"
	_ "lobby-platform/internal/engine/tictactoe"
)

func TestCreateGetDelete(t *testing.T) {
	s := New(slog.Disabled)

	eng, err := s.Create("abcd12", engine.KindTicTacToe, engine.Options{})
	require.NoError(t, err)
	require.Equal(t, engine.KindTicTacToe, eng.Kind())

	got, ok := s.Get("ABCD12") // normalization is case-insensitive
	require.True(t, ok)
	require.Same(t, eng, got)

	_, err = s.Create("abcd12", engine.KindTicTacToe, engine.Options{})
	require.Error(t, err, "a second engine for the same room must be rejected")

	s.Delete("abcd12")
	_, ok = s.Get("abcd12")
	require.False(t, ok)
}

func TestGetTouchesActivityPeekDoesNot(t *testing.T) {
	s := New(slog.Disabled)
	_, err := s.Create("room01", engine.KindTicTacToe, engine.Options{})
	require.NoError(t, err)

	s.entries["ROOM01"].LastActivityMs = 0

	_, ok := s.Peek("room01")
	require.True(t, ok)
	require.Equal(t, int64(0), s.entries["ROOM01"].LastActivityMs, "Peek must not touch activity")

	_, ok = s.Get("room01")
	require.True(t, ok)
	require.Greater(t, s.entries["ROOM01"].LastActivityMs, int64(0), "Get must touch activity")
}

func TestCleanupStaleRemovesOnlyOldEntries(t *testing.T) {
	s := New(slog.Disabled)
	_, err := s.Create("old001", engine.KindTicTacToe, engine.Options{})
	require.NoError(t, err)
	_, err = s.Create("new001", engine.KindTicTacToe, engine.Options{})
	require.NoError(t, err)

	s.entries["OLD001"].LastActivityMs = time.Now().Add(-time.Hour).UnixMilli()

	removed := s.CleanupStale(time.Minute)
	require.ElementsMatch(t, []string{"OLD001"}, removed)

	_, ok := s.Get("old001")
	require.False(t, ok)
	_, ok = s.Get("new001")
	require.True(t, ok)
}

func TestSerializeRestoreDelegatesToEngine(t *testing.T) {
	s := New(slog.Disabled)
	_, err := s.Create("room02", engine.KindTicTacToe, engine.Options{})
	require.NoError(t, err)

	data, err := s.Serialize("room02")
	require.NoError(t, err)
	require.NoError(t, s.Restore("room02", data))

	_, err = s.Serialize("missing")
	require.Error(t, err)
}
