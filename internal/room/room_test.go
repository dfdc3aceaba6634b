package room

import (
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stretchr/testify/require"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/wire"
)

func TestGenerateCodeUsesConfusionFreeAlphabet(t *testing.T) {
	reg := NewRegistry(slog.Disabled)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := reg.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, codeLength)
		for _, ch := range code {
			require.NotContains(t, "0O1IL", string(ch))
		}
		require.False(t, seen[code], "code %s generated twice in one run", code)
		seen[code] = true
	}
}

func TestAddSeatFirstSeatIsHost(t *testing.T) {
	r := New("ABCD12", engine.KindTicTacToe, 50)
	seat, ok := r.AddSeat("p1", "Alice", 2)
	require.True(t, ok)
	require.True(t, seat.IsHost)
	require.Equal(t, 0, seat.Index)

	seat2, ok := r.AddSeat("p2", "Bob", 2)
	require.True(t, ok)
	require.False(t, seat2.IsHost)
	require.Equal(t, 1, seat2.Index)

	_, ok = r.AddSeat("p3", "Carl", 2)
	require.False(t, ok, "room should reject a third seat over maxSeats=2")
}

func TestAddSeatReconnectSameSeat(t *testing.T) {
	r := New("ABCD12", engine.KindTicTacToe, 50)
	first, _ := r.AddSeat("p1", "Alice", 2)
	r.MarkDisconnected("p1")

	again, ok := r.AddSeat("p1", "Alice", 2)
	require.True(t, ok)
	require.Equal(t, first.Index, again.Index)
	require.True(t, again.Connected)
	require.Equal(t, 1, r.SeatCount())
}

func TestChatHistoryBounded(t *testing.T) {
	r := New("ABCD12", engine.KindTicTacToe, 3)
	for i := 0; i < 5; i++ {
		r.AppendChat(wire.ChatMessage{Text: "msg-" + string(rune('0'+i))})
	}
	hist := r.ChatHistory()
	require.Len(t, hist, 3)
	require.Equal(t, "msg-2", hist[0].Text)
	require.Equal(t, "msg-4", hist[2].Text)
}

func TestCleanupStaleRemovesOnlyFinishedOrEmptyIdleRooms(t *testing.T) {
	reg := NewRegistry(slog.Disabled)
	stale, err := reg.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)
	stale.SetStatus(StatusFinished)
	stale.LastActivityAt = time.Now().Add(-time.Hour)

	active, err := reg.Create(engine.KindTicTacToe, 50)
	require.NoError(t, err)
	active.AddSeat("p1", "Alice", 2)
	active.LastActivityAt = time.Now().Add(-time.Hour)
	active.SetStatus(StatusPlaying)

	removed := reg.CleanupStale(time.Minute)
	require.ElementsMatch(t, []string{stale.Code}, removed)

	_, ok := reg.Get(active.Code)
	require.True(t, ok, "an active, occupied room must survive the sweep even when idle")
}
