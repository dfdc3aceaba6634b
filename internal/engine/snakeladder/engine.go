// Package snakeladder implements Snake & Ladder: single die roll per
// turn, the production board table (canonical per spec — two
// divergent board layouts exist in the reference material; the
// production one is used here), and the triple-six penalty that
// forfeits the third roll's move. Grounded on the Ludo engine's
// seat/turn/dice shape, generalized to a single-token-per-seat board.
package snakeladder

import (
	"encoding/json"
	"sort"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindSnakeLadder, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats   = 2
	maxSeats   = 4
	boardSize  = 100
)

// board is the production snakes-and-ladders table: head/bottom → tail/top.
var board = map[int]int{
	// ladders
	2: 38, 7: 14, 8: 31, 15: 26, 21: 42, 28: 84, 36: 44, 51: 67, 71: 91, 78: 98, 87: 94,
	// snakes
	16: 6, 46: 25, 49: 11, 62: 19, 64: 60, 74: 53, 89: 68, 92: 88, 95: 75, 99: 80,
}

type seatState struct {
	SeatIndex        int    `json:"seatIndex"`
	PlayerID         string `json:"playerId"`
	Position         int    `json:"position"`
	ConsecutiveSixes int    `json:"consecutiveSixes"`
	Finished         bool   `json:"finished"`
}

type Engine struct {
	rng         rng.Source
	seats       [maxSeats]*seatState
	seatCount   int
	currentSeat int
	finishOrder []int
	terminal    bool
	lastStep    engine.Step
}

func New(source rng.Source) *Engine { return &Engine{rng: source} }

func (e *Engine) Kind() engine.Kind { return engine.KindSnakeLadder }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex >= maxSeats || e.seats[seat.SeatIndex] != nil {
		return false
	}
	e.seats[seat.SeatIndex] = &seatState{SeatIndex: seat.SeatIndex, PlayerID: seat.PlayerID}
	e.seatCount++
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, s := range e.seats {
		if s != nil && s.PlayerID == playerID {
			e.seats[i] = nil
			e.seatCount--
			return true
		}
	}
	return false
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	if e.terminal {
		return 0, false
	}
	return e.currentSeat, true
}

func (e *Engine) IsTerminal() bool { return e.terminal }

func (e *Engine) WinnerIndex() (int, bool) {
	if len(e.finishOrder) == 0 {
		return 0, false
	}
	return e.finishOrder[0], true
}

func (e *Engine) FinishOrder() []int { return e.finishOrder }

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

func (e *Engine) HandleAction(actingPlayerID string, action string, _ any) error {
	if e.terminal {
		return engine.NewTurnError("game already over")
	}
	seatIdx, s := e.findSeat(actingPlayerID)
	if s == nil {
		return engine.NewRulesError("player not seated")
	}
	if seatIdx != e.currentSeat {
		return engine.NewTurnError("not your turn")
	}
	if action != "roll" {
		return engine.NewRulesError("unknown action %q", action)
	}
	return e.roll(s)
}

func (e *Engine) findSeat(playerID string) (int, *seatState) {
	for i, s := range e.seats {
		if s != nil && s.PlayerID == playerID {
			return i, s
		}
	}
	return -1, nil
}

func (e *Engine) roll(s *seatState) error {
	value := e.rng.Intn(6) + 1
	e.lastStep = engine.Step{Kind: "dice_roll", From: s.SeatIndex, Meta: map[string]any{"value": value}}

	if value == 6 {
		s.ConsecutiveSixes++
	}
	if s.ConsecutiveSixes == 3 {
		s.ConsecutiveSixes = 0
		e.advanceTurn()
		return nil
	}

	from := s.Position
	target := s.Position + value
	if target > boardSize {
		// overshoot: the token does not move; the turn passes unless the roll was a six
		if value != 6 {
			e.advanceTurn()
		}
		return nil
	}
	if landed, ok := board[target]; ok {
		target = landed
	}
	s.Position = target
	e.lastStep = engine.Step{Kind: "token_move", From: from, To: target, Meta: map[string]any{"seat": s.SeatIndex}}

	if target == boardSize {
		s.Finished = true
		e.finishOrder = append(e.finishOrder, s.SeatIndex)
		if e.remainingSeats() <= 1 {
			e.terminal = true
			return nil
		}
	}

	if value != 6 {
		s.ConsecutiveSixes = 0
		e.advanceTurn()
	}
	return nil
}

func (e *Engine) remainingSeats() int {
	n := 0
	for _, s := range e.seats {
		if s != nil && !s.Finished {
			n++
		}
	}
	return n
}

func (e *Engine) advanceTurn() {
	order := e.seatOrder()
	if len(order) == 0 {
		return
	}
	idx := 0
	for i, s := range order {
		if s == e.currentSeat {
			idx = i
			break
		}
	}
	for i := 1; i <= len(order); i++ {
		next := order[(idx+i)%len(order)]
		if !e.seats[next].Finished {
			e.currentSeat = next
			return
		}
	}
}

func (e *Engine) seatOrder() []int {
	var out []int
	for i, s := range e.seats {
		if s != nil {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (e *Engine) AutoPlay(seatIndex int) error {
	s := e.seats[seatIndex]
	if s == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	return e.HandleAction(s.PlayerID, "roll", nil)
}

func (e *Engine) Eliminate(seatIndex int) error {
	s := e.seats[seatIndex]
	if s == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	s.Finished = true
	if seatIndex == e.currentSeat {
		e.advanceTurn()
	}
	if e.remainingSeats() <= 1 {
		e.terminal = true
	}
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	var seatsView []*seatState
	for _, s := range e.seats {
		if s != nil {
			seatsView = append(seatsView, s)
		}
	}
	state := map[string]any{
		"seats":       seatsView,
		"currentSeat": e.currentSeat,
		"finishOrder": e.finishOrder,
		"terminal":    e.terminal,
	}
	var actions []string
	if idx, s := e.findSeat(viewerPlayerID); s != nil && idx == e.currentSeat && !e.terminal {
		actions = []string{"roll"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Seats       [maxSeats]*seatState `json:"seats"`
	CurrentSeat int                  `json:"currentSeat"`
	FinishOrder []int                `json:"finishOrder"`
	Terminal    bool                 `json:"terminal"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Seats: e.seats, CurrentSeat: e.currentSeat, FinishOrder: e.finishOrder, Terminal: e.terminal})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.seats = s.Seats
	e.currentSeat = s.CurrentSeat
	e.finishOrder = s.FinishOrder
	e.terminal = s.Terminal
	e.seatCount = 0
	for _, seat := range e.seats {
		if seat != nil {
			e.seatCount++
		}
	}
	return nil
}
