package snakeladder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func seatTwo(e *Engine) {
	e.AddPlayer(engine.Seat{SeatIndex: 0, PlayerID: "p0"})
	e.AddPlayer(engine.Seat{SeatIndex: 1, PlayerID: "p1"})
}

func TestLadderClimbsToTop(t *testing.T) {
	e := New(rng.NewFixed(1)) // Intn(6) -> 1 => roll of 2
	seatTwo(e)

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, board[2], e.seats[0].Position)
	require.Equal(t, 38, e.seats[0].Position)
	require.Equal(t, 1, e.currentSeat, "a non-six roll passes the turn")
}

func TestSnakeSlidesDown(t *testing.T) {
	e := New(rng.NewFixed(5)) // roll of 6
	seatTwo(e)
	e.seats[0].Position = 10

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 6, e.seats[0].Position, "landing on square 16 slides down the snake to square 6")
}

func TestTripleSixForfeitsThirdRoll(t *testing.T) {
	e := New(rng.NewFixed(5, 5, 5))
	seatTwo(e)

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 6, e.seats[0].Position)
	require.Equal(t, 0, e.currentSeat, "a six grants an extra roll")

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 12, e.seats[0].Position)
	require.Equal(t, 0, e.currentSeat)

	require.NoError(t, e.HandleAction("p0", "roll", nil))
	require.Equal(t, 12, e.seats[0].Position, "the third six forfeits its move entirely")
	require.Equal(t, 0, e.seats[0].ConsecutiveSixes)
	require.Equal(t, 1, e.currentSeat, "turn passes after the forfeited triple six")
}

func TestOvershootPastFinalSquareIsRejected(t *testing.T) {
	e := New(rng.NewFixed(1)) // roll of 2
	seatTwo(e)
	e.seats[0].Position = 99

	require.NoError(t, e.HandleAction("p0", "roll", nil))

	require.Equal(t, 99, e.seats[0].Position, "a move that would overshoot square 100 is rejected")
	require.Equal(t, 1, e.currentSeat, "the turn still passes on a non-six overshoot")
}
