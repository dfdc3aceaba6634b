package poker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"lobby-platform/internal/cards"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

// seatThree builds a 3-handed table without going through AddPlayer's
// auto-start-at-2-seats behavior, so the dealt hand is the 3-player one.
func seatThree(e *Engine) {
	e.players[0] = &Player{SeatIndex: 0, PlayerID: "p0", Chips: 1000, Status: StatusActive, Connected: true}
	e.players[1] = &Player{SeatIndex: 1, PlayerID: "p1", Chips: 1000, Status: StatusActive, Connected: true}
	e.players[2] = &Player{SeatIndex: 2, PlayerID: "p2", Chips: 1000, Status: StatusActive, Connected: true}
	e.seatCount = 3
	e.startHand()
}

// TestThreePlayerCheckdownChipConservation plays a full hand with no
// raises (button calls, SB calls, BB checks their option — this must
// close the preflop round immediately rather than cycling back to the
// BB) through to a board-plays showdown, and checks that chips are
// conserved and the pot splits exactly three ways.
func TestThreePlayerCheckdownChipConservation(t *testing.T) {
	e := New(rng.NewFixed(0))
	seatThree(e)

	require.Equal(t, 0, e.dealerSeat)
	require.Equal(t, 0, e.currentTurnSeat) // button acts first, 3-handed preflop

	act := func(playerID string, action Action) {
		require.NoError(t, e.HandleAction(playerID, string(action), nil))
	}

	// Preflop: button calls, SB calls, BB checks its option closed.
	act("p0", ActionCall)
	act("p1", ActionCall)
	act("p2", ActionCheck)
	require.Equal(t, PhaseFlop, e.phase, "BB's preflop check must close the round without an extra lap")

	// Flop, turn, river: check around each time.
	for _, phase := range []Phase{PhaseFlop, PhaseTurn, PhaseRiver} {
		require.Equal(t, phase, e.phase)
		act("p1", ActionCheck)
		act("p2", ActionCheck)
		act("p0", ActionCheck)
	}

	require.Equal(t, PhaseHandComplete, e.phase)
	_, hasTurn := e.CurrentPlayerIndex()
	require.False(t, hasTurn)

	require.Len(t, e.pots, 1)
	require.Equal(t, int64(60), e.pots[0].Amount)
	require.ElementsMatch(t, []int{0, 1, 2}, e.pots[0].WinnerSeats, "the board plays — all three tie for a full house")

	require.Equal(t, int64(1000), e.players[0].Chips)
	require.Equal(t, int64(1000), e.players[1].Chips)
	require.Equal(t, int64(1000), e.players[2].Chips)
}

// TestSplitPotRemainderDistributesClockwiseFromDealer isolates the
// showdown distribution math: two tied winners splitting an odd pot,
// with the leftover chip going to whichever tied winner sits closest
// to the dealer in clockwise order.
func TestSplitPotRemainderDistributesClockwiseFromDealer(t *testing.T) {
	e := New(rng.NewFixed(0))
	e.players[0] = &Player{
		SeatIndex: 0, PlayerID: "p0", Chips: 983, Status: StatusActive, TotalInvested: 17,
		HoleCards: []cards.Card{cards.NewCard(cards.RankA, cards.SuitHearts), cards.NewCard(cards.RankA, cards.SuitSpades)},
	}
	e.players[1] = &Player{
		SeatIndex: 1, PlayerID: "p1", Chips: 983, Status: StatusActive, TotalInvested: 17,
		HoleCards: []cards.Card{cards.NewCard(cards.RankA, cards.SuitDiamonds), cards.NewCard(cards.RankA, cards.SuitClubs)},
	}
	e.players[2] = &Player{
		SeatIndex: 2, PlayerID: "p2", Chips: 983, Status: StatusActive, TotalInvested: 17,
		HoleCards: []cards.Card{cards.NewCard(cards.Rank7, cards.SuitDiamonds), cards.NewCard(cards.Rank7, cards.SuitHearts)},
	}
	e.seatCount = 3
	e.dealerSeat = 0
	e.community = []cards.Card{
		cards.NewCard(cards.Rank2, cards.SuitDiamonds),
		cards.NewCard(cards.Rank5, cards.SuitSpades),
		cards.NewCard(cards.Rank9, cards.SuitClubs),
		cards.NewCard(cards.RankJ, cards.SuitHearts),
		cards.NewCard(cards.RankK, cards.SuitSpades),
	}
	e.pots = []Pot{{ID: "main", EligibleSeats: map[int]bool{}}}

	e.resolveShowdown()

	require.Equal(t, PhaseHandComplete, e.phase)
	require.Len(t, e.pots, 1)
	require.Equal(t, int64(51), e.pots[0].Amount)
	require.ElementsMatch(t, []int{0, 1}, e.pots[0].WinnerSeats, "pocket aces tie, pocket sevens lose")

	require.Equal(t, int64(1009), e.players[0].Chips, "seat 0 is closest to the dealer clockwise, takes the odd chip")
	require.Equal(t, int64(1008), e.players[1].Chips)
	require.Equal(t, int64(983), e.players[2].Chips, "the losing hand keeps nothing from the pot")

	total := e.players[0].Chips + e.players[1].Chips + e.players[2].Chips
	require.Equal(t, int64(3000), total, "chips are conserved across the showdown")
}

func TestNotYourTurnRejected(t *testing.T) {
	e := New(rng.NewFixed(0))
	seatThree(e)

	err := e.HandleAction("p1", string(ActionCall), nil) // seat 0 acts first, not seat 1
	require.Error(t, err)
	var rerr *engine.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, engine.KindTurn, rerr.Kind)
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	e := New(rng.NewFixed(0))
	seatThree(e)

	err := e.HandleAction("p0", string(ActionRaise), ActionPayload{Amount: 5})
	require.Error(t, err)
	var rerr *engine.Error
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, engine.KindRules, rerr.Kind)
	require.Equal(t, 0, e.currentTurnSeat, "a rejected raise must not advance the turn")
}

func TestRaiseAdvancesAggressorAndClearsBBOption(t *testing.T) {
	e := New(rng.NewFixed(0))
	seatThree(e)

	require.NoError(t, e.HandleAction("p0", string(ActionRaise), ActionPayload{Amount: 40}))
	require.Equal(t, 0, e.lastAggressorSeat)
	require.False(t, e.bbOptionPending)
	require.Equal(t, int64(60), e.currentBet) // BB's 20 + the 40 raise on top
	require.Equal(t, 1, e.currentTurnSeat)
}
