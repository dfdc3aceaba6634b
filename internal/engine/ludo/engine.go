// Package ludo implements the four-color Ludo board: dice roll,
// capture-on-landing, triple-six penalty, and overshoot rejection at
// the home stretch. Grounded on the player/seat/turn and
// EngineCallbacks shape of
// other_examples/11748083_obrien-tchaleu-ludo-king-go's room/game
// engine split, generalized behind internal/engine.Engine.
package ludo

import (
	"encoding/json"
	"sort"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindLudo, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats      = 2
	maxSeats      = 4
	tokensPerSeat = 4
	trackLength   = 52
	homeStretch   = 6
	startOffset   = 0 // each seat's entry square, offset per color
)

// safeSquares are the star squares on the shared 52-cell track where
// tokens cannot be captured.
var safeSquares = map[int]bool{0: true, 8: true, 13: true, 21: true, 26: true, 34: true, 39: true, 47: true}

// Token is one of a seat's four pieces. Position -1 means at home
// (not yet entered); 0..51 is the shared track; 52..57 is that seat's
// home stretch; 58 means arrived home.
type Token struct {
	ID       int `json:"id"`
	Position int `json:"position"`
}

type seatState struct {
	SeatIndex       int     `json:"seatIndex"`
	PlayerID        string  `json:"playerId"`
	Connected       bool    `json:"connected"`
	Tokens          [tokensPerSeat]Token `json:"tokens"`
	ConsecutiveSixes int    `json:"consecutiveSixes"`
	Finished        bool    `json:"finished"`
}

// Engine is a single Ludo match.
type Engine struct {
	rng          rng.Source
	seats        [maxSeats]*seatState
	seatCount    int
	currentSeat  int
	lastRoll     int
	awaitingMove bool
	finishOrder  []int
	terminal     bool
	lastStep     engine.Step
}

func New(source rng.Source) *Engine {
	return &Engine{rng: source}
}

func (e *Engine) Kind() engine.Kind { return engine.KindLudo }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex >= maxSeats || e.seats[seat.SeatIndex] != nil {
		return false
	}
	s := &seatState{SeatIndex: seat.SeatIndex, PlayerID: seat.PlayerID, Connected: true}
	for i := range s.Tokens {
		s.Tokens[i] = Token{ID: i, Position: -1}
	}
	e.seats[seat.SeatIndex] = s
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

// FinishOrder implements engine.FinishOrderer.
func (e *Engine) FinishOrder() []int { return e.finishOrder }

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

type payload struct {
	TokenID int `json:"tokenId"`
}

func (e *Engine) HandleAction(actingPlayerID string, action string, pl any) error {
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
	switch action {
	case "roll":
		if e.awaitingMove {
			return engine.NewTurnError("must move a token first")
		}
		return e.roll(s)
	case "move_token":
		if !e.awaitingMove {
			return engine.NewTurnError("roll first")
		}
		return e.moveToken(s, decodeTokenID(pl))
	default:
		return engine.NewRulesError("unknown action %q", action)
	}
}

func decodeTokenID(pl any) int {
	switch v := pl.(type) {
	case payload:
		return v.TokenID
	case map[string]any:
		if f, ok := v["tokenId"].(float64); ok {
			return int(f)
		}
	case json.RawMessage:
		var p payload
		if json.Unmarshal(v, &p) == nil {
			return p.TokenID
		}
	}
	return -1
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
	e.lastRoll = e.rng.Intn(6) + 1
	e.lastStep = engine.Step{Kind: "dice_roll", From: s.SeatIndex, Meta: map[string]any{"value": e.lastRoll}}

	if e.lastRoll == 6 {
		s.ConsecutiveSixes++
	} else {
		s.ConsecutiveSixes = 0
	}

	if s.ConsecutiveSixes == 3 {
		s.ConsecutiveSixes = 0
		e.awaitingMove = false
		e.advanceTurn()
		return nil
	}

	if !e.hasLegalMove(s) {
		e.awaitingMove = false
		if e.lastRoll == 6 {
			return nil // extra roll, stays on this seat
		}
		e.advanceTurn()
		return nil
	}
	e.awaitingMove = true
	return nil
}

func (e *Engine) hasLegalMove(s *seatState) bool {
	for _, t := range s.Tokens {
		if e.canMove(s, t) {
			return true
		}
	}
	return false
}

func (e *Engine) canMove(s *seatState, t Token) bool {
	if t.Position == 58 {
		return false
	}
	if t.Position == -1 {
		return e.lastRoll == 6
	}
	return t.Position+e.lastRoll <= 58
}

func (e *Engine) moveToken(s *seatState, tokenID int) error {
	if tokenID < 0 || tokenID >= tokensPerSeat {
		return engine.NewRulesError("invalid token id")
	}
	t := &s.Tokens[tokenID]
	if !e.canMove(s, *t) {
		return engine.NewRulesError("token cannot make that move")
	}
	from := t.Position
	if t.Position == -1 {
		t.Position = e.entrySquare(s.SeatIndex)
	} else {
		t.Position += e.lastRoll
	}
	e.lastStep = engine.Step{Kind: "token_move", From: from, To: t.Position, Meta: map[string]any{"seat": s.SeatIndex, "tokenId": tokenID}}

	if t.Position < trackLength {
		e.resolveCapture(s, t)
	}
	if t.Position == 58 {
		e.checkFinished(s)
	}

	extraTurn := e.lastRoll == 6
	e.awaitingMove = false
	if !extraTurn {
		e.advanceTurn()
	}
	return nil
}

func (e *Engine) entrySquare(seatIndex int) int {
	return (seatIndex * (trackLength / maxSeats)) % trackLength
}

func (e *Engine) resolveCapture(mover *seatState, moved *Token) {
	abs := moved.Position
	if safeSquares[abs] {
		return
	}
	for _, other := range e.seats {
		if other == nil || other.SeatIndex == mover.SeatIndex {
			continue
		}
		for i := range other.Tokens {
			ot := &other.Tokens[i]
			if ot.Position == abs {
				ot.Position = -1
			}
		}
	}
}

func (e *Engine) checkFinished(s *seatState) {
	for _, t := range s.Tokens {
		if t.Position != 58 {
			return
		}
	}
	if s.Finished {
		return
	}
	s.Finished = true
	e.finishOrder = append(e.finishOrder, s.SeatIndex)
	if e.remainingSeats() <= 1 {
		e.terminal = true
	}
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
	if !e.awaitingMove {
		return e.HandleAction(s.PlayerID, "roll", nil)
	}
	for i, t := range s.Tokens {
		if e.canMove(s, t) {
			return e.HandleAction(s.PlayerID, "move_token", payload{TokenID: i})
		}
	}
	e.awaitingMove = false
	e.advanceTurn()
	return nil
}

func (e *Engine) Eliminate(seatIndex int) error {
	s := e.seats[seatIndex]
	if s == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	s.Finished = true
	if seatIndex == e.currentSeat {
		e.awaitingMove = false
		e.advanceTurn()
	}
	if e.remainingSeats() <= 1 {
		e.terminal = true
		for _, rem := range e.seats {
			if rem != nil && !rem.Finished {
				e.finishOrder = append(e.finishOrder, rem.SeatIndex)
			}
		}
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
		"seats":        seatsView,
		"currentSeat":  e.currentSeat,
		"lastRoll":     e.lastRoll,
		"awaitingMove": e.awaitingMove,
		"finishOrder":  e.finishOrder,
		"terminal":     e.terminal,
	}
	var actions []string
	if idx, s := e.findSeat(viewerPlayerID); s != nil && idx == e.currentSeat && !e.terminal {
		if e.awaitingMove {
			actions = []string{"move_token"}
		} else {
			actions = []string{"roll"}
		}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Seats        [maxSeats]*seatState `json:"seats"`
	CurrentSeat  int                  `json:"currentSeat"`
	LastRoll     int                  `json:"lastRoll"`
	AwaitingMove bool                 `json:"awaitingMove"`
	FinishOrder  []int                `json:"finishOrder"`
	Terminal     bool                 `json:"terminal"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{
		Seats: e.seats, CurrentSeat: e.currentSeat, LastRoll: e.lastRoll,
		AwaitingMove: e.awaitingMove, FinishOrder: e.finishOrder, Terminal: e.terminal,
	})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.seats = s.Seats
	e.currentSeat = s.CurrentSeat
	e.lastRoll = s.LastRoll
	e.awaitingMove = s.AwaitingMove
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
