package chess

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lobby-platform/internal/engine"
)

func seatTwo(e *Engine) (white, black string) {
	white, black = "white-player", "black-player"
	e.AddPlayer(engine.Seat{SeatIndex: 0, PlayerID: white})
	e.AddPlayer(engine.Seat{SeatIndex: 1, PlayerID: black})
	return
}

func move(t *testing.T, e *Engine, playerID, from, to string) error {
	t.Helper()
	return e.HandleAction(playerID, "move", map[string]any{"from": from, "to": to})
}

// Fool's Mate: the fastest possible checkmate, two moves each side.
func TestFoolsMate(t *testing.T) {
	e := New()
	white, black := seatTwo(e)

	require.NoError(t, move(t, e, white, "f2", "f3"))
	require.NoError(t, move(t, e, black, "e7", "e5"))
	require.NoError(t, move(t, e, white, "g2", "g4"))
	require.NoError(t, move(t, e, black, "d8", "h4"))

	require.True(t, e.IsTerminal())
	winner, ok := e.WinnerIndex()
	require.True(t, ok)
	require.Equal(t, 1, winner) // black delivers checkmate

	_, hasTurn := e.CurrentPlayerIndex()
	require.False(t, hasTurn)
}

func TestIllegalMoveRejectedWithoutMutatingState(t *testing.T) {
	e := New()
	white, _ := seatTwo(e)

	before, err := e.Serialize()
	require.NoError(t, err)

	err = move(t, e, white, "e2", "e5") // pawns can't jump two past the first rank move distance
	require.Error(t, err)
	var rerr *engine.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, engine.KindRules, rerr.Kind)

	after, err := e.Serialize()
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))
}

func TestNotYourTurnRejected(t *testing.T) {
	e := New()
	_, black := seatTwo(e)

	err := move(t, e, black, "e7", "e5")
	require.Error(t, err)
	var rerr *engine.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, engine.KindTurn, rerr.Kind)
}

func TestSerializeRestoreRoundTrip(t *testing.T) {
	e := New()
	white, black := seatTwo(e)
	require.NoError(t, move(t, e, white, "e2", "e4"))
	require.NoError(t, move(t, e, black, "e7", "e5"))

	data, err := e.Serialize()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Restore(data))

	idx, ok := restored.CurrentPlayerIndex()
	require.True(t, ok)
	require.Equal(t, 0, idx) // white to move again after e4 e5
}
