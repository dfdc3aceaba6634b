// Package memory implements card-matching Memory: flip two cards per
// turn, turn passes only on a non-matching pair, grounded on the Ludo
// engine's turn-advance shape and internal/cards for the deck.
package memory

import (
	"encoding/json"
	"sort"

	"lobby-platform/internal/cards"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindMemory, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats  = 2
	maxSeats  = 6
	boardSize = 24 // 12 pairs
)

type cell struct {
	Card    cards.Card `json:"card"`
	Matched bool       `json:"matched"`
}

type seatState struct {
	SeatIndex int    `json:"seatIndex"`
	PlayerID  string `json:"playerId"`
	Score     int    `json:"score"`
}

type Engine struct {
	rng         rng.Source
	board       [boardSize]cell
	seats       [maxSeats]*seatState
	seatCount   int
	currentSeat int
	flipped     []int
	terminal    bool
	lastStep    engine.Step
}

func New(source rng.Source) *Engine {
	e := &Engine{rng: source}
	deck := cards.NewDeck()[:boardSize/2]
	full := append(append([]cards.Card{}, deck...), deck...)
	source.Shuffle(len(full), func(i, j int) { full[i], full[j] = full[j], full[i] })
	for i, c := range full {
		e.board[i] = cell{Card: c}
	}
	return e
}

func (e *Engine) Kind() engine.Kind { return engine.KindMemory }
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
	if !e.terminal {
		return 0, false
	}
	best, bestScore, ties := -1, -1, 0
	for _, s := range e.seats {
		if s == nil {
			continue
		}
		if s.Score > bestScore {
			best, bestScore, ties = s.SeatIndex, s.Score, 1
		} else if s.Score == bestScore {
			ties++
		}
	}
	if ties > 1 {
		return 0, false
	}
	return best, best >= 0
}

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

type flipPayload struct {
	Cell int `json:"cell"`
}

func decodeCell(pl any) int {
	switch v := pl.(type) {
	case flipPayload:
		return v.Cell
	case map[string]any:
		if f, ok := v["cell"].(float64); ok {
			return int(f)
		}
	case json.RawMessage:
		var p flipPayload
		if json.Unmarshal(v, &p) == nil {
			return p.Cell
		}
	}
	return -1
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
	if action != "flip" {
		return engine.NewRulesError("unknown action %q", action)
	}
	idx := decodeCell(pl)
	if idx < 0 || idx >= boardSize || e.board[idx].Matched || contains(e.flipped, idx) {
		return engine.NewRulesError("cell unavailable")
	}
	e.flipped = append(e.flipped, idx)
	e.lastStep = engine.Step{Kind: "flip", To: idx, Meta: map[string]any{"seat": seatIdx}}

	if len(e.flipped) < 2 {
		return nil
	}
	a, b := e.flipped[0], e.flipped[1]
	if e.board[a].Card == e.board[b].Card {
		e.board[a].Matched = true
		e.board[b].Matched = true
		s.Score++
		e.flipped = nil
		if e.allMatched() {
			e.terminal = true
		}
		return nil
	}
	e.flipped = nil
	e.advanceTurn()
	return nil
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func (e *Engine) allMatched() bool {
	for _, c := range e.board {
		if !c.Matched {
			return false
		}
	}
	return true
}

func (e *Engine) findSeat(playerID string) (int, *seatState) {
	for i, s := range e.seats {
		if s != nil && s.PlayerID == playerID {
			return i, s
		}
	}
	return -1, nil
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
	e.currentSeat = order[(idx+1)%len(order)]
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
	for i, c := range e.board {
		if !c.Matched && !contains(e.flipped, i) {
			return e.HandleAction(s.PlayerID, "flip", flipPayload{Cell: i})
		}
	}
	return engine.NewRulesError("no cell available")
}

func (e *Engine) Eliminate(seatIndex int) error {
	s := e.seats[seatIndex]
	if s == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	e.seats[seatIndex] = nil
	e.seatCount--
	if seatIndex == e.currentSeat {
		e.flipped = nil
		e.advanceTurn()
	}
	if e.seatCount <= 1 {
		e.terminal = true
	}
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	type cellView struct {
		Card    *cards.Card `json:"card,omitempty"`
		Matched bool        `json:"matched"`
	}
	var boardView [boardSize]cellView
	for i, c := range e.board {
		cv := cellView{Matched: c.Matched}
		if c.Matched || contains(e.flipped, i) {
			card := c.Card
			cv.Card = &card
		}
		boardView[i] = cv
	}
	var seatsView []*seatState
	for _, s := range e.seats {
		if s != nil {
			seatsView = append(seatsView, s)
		}
	}
	state := map[string]any{
		"board":       boardView,
		"seats":       seatsView,
		"currentSeat": e.currentSeat,
		"terminal":    e.terminal,
	}
	var actions []string
	if idx, _ := e.findSeat(viewerPlayerID); idx == e.currentSeat && !e.terminal {
		actions = []string{"flip"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Board       [boardSize]cell      `json:"board"`
	Seats       [maxSeats]*seatState `json:"seats"`
	CurrentSeat int                  `json:"currentSeat"`
	Flipped     []int                `json:"flipped"`
	Terminal    bool                 `json:"terminal"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Board: e.board, Seats: e.seats, CurrentSeat: e.currentSeat, Flipped: e.flipped, Terminal: e.terminal})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.board = s.Board
	e.seats = s.Seats
	e.currentSeat = s.CurrentSeat
	e.flipped = s.Flipped
	e.terminal = s.Terminal
	e.seatCount = 0
	for _, seat := range e.seats {
		if seat != nil {
			e.seatCount++
		}
	}
	return nil
}
