// Package poker implements the Texas Hold'em engine: blind posting,
// last-aggressor betting closure, side-pot computation, and masked
// per-viewer projection of hole cards. Adapted from the teacher's
// internal/game/table.go + internal/game/rules/{engine.go,
// texas_holdem.go} + pkg/poker/hand.go, generalized behind
// internal/engine.Engine instead of the teacher's free-standing
// Table/RulesEngine pair.
package poker

import (
	"lobby-platform/internal/cards"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindPoker, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

// Phase is a hand's betting phase.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseHandComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePreflop:
		return "preflop"
	case PhaseFlop:
		return "flop"
	case PhaseTurn:
		return "turn"
	case PhaseRiver:
		return "river"
	case PhaseShowdown:
		return "showdown"
	case PhaseHandComplete:
		return "hand_complete"
	default:
		return "unknown"
	}
}

// Status is a seated player's standing within the current hand.
type Status int

const (
	StatusActive Status = iota
	StatusFolded
	StatusAllIn
	StatusSittingOut
	StatusBusted
)

// Action is the set of player actions a betting round accepts.
type Action string

const (
	ActionFold   Action = "fold"
	ActionCheck  Action = "check"
	ActionCall   Action = "call"
	ActionBet    Action = "bet"
	ActionRaise  Action = "raise"
	ActionAllIn  Action = "all_in"
)

// Player is one seated participant. Chips are in whole cents/units —
// the engine never assumes a currency.
type Player struct {
	SeatIndex     int
	PlayerID      string
	Chips         int64
	HoleCards     []cards.Card
	Status        Status
	CurrentBet    int64
	TotalInvested int64
	Connected     bool
}

// Pot is the main pot or one side pot, keyed by the all-in threshold
// that created it.
type Pot struct {
	ID              string
	Amount          int64
	EligibleSeats   map[int]bool
	WinnerSeats     []int
}

const (
	defaultSmallBlind = int64(10)
	defaultBigBlind   = int64(20)
	minSeats          = 2
	maxSeats          = 9
)

// ActionPayload is the decoded payload HandleAction expects for a
// bet/raise; fold/check/call/all_in ignore Amount.
type ActionPayload struct {
	Amount int64 `json:"amount"`
}
