// Package tictactoe implements the minimal two-seat turn/action shape,
// grounded on other_examples' websocket tic-tac-toe services (plain
// 3x3 grid, mark placement, win-line/draw detection).
package tictactoe

import (
	"encoding/json"

	"lobby-platform/internal/engine"
)

func init() {
	engine.Register(engine.KindTicTacToe, func(opts engine.Options) (engine.Engine, error) {
		return New(), nil
	})
}

const (
	minSeats = 2
	maxSeats = 2
)

var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Engine is a single tic-tac-toe match; seat 0 plays X, seat 1 plays O.
type Engine struct {
	board       [9]int // 0=empty, 1=seat0, 2=seat1
	currentSeat int
	terminal    bool
	winner      int
	draw        bool
	players     [2]string
	lastStep    engine.Step
}

func New() *Engine { return &Engine{} }

func (e *Engine) Kind() engine.Kind { return engine.KindTicTacToe }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex > 1 || e.players[seat.SeatIndex] != "" {
		return false
	}
	e.players[seat.SeatIndex] = seat.PlayerID
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, p := range e.players {
		if p == playerID {
			e.players[i] = ""
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
	if e.terminal && !e.draw {
		return e.winner, true
	}
	return 0, false
}

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

type placePayload struct {
	Cell int `json:"cell"`
}

func decodeCell(pl any) int {
	switch v := pl.(type) {
	case placePayload:
		return v.Cell
	case map[string]any:
		if f, ok := v["cell"].(float64); ok {
			return int(f)
		}
	case json.RawMessage:
		var p placePayload
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
	if e.players[e.currentSeat] != actingPlayerID {
		return engine.NewTurnError("not your turn")
	}
	if action != "place" {
		return engine.NewRulesError("unknown action %q", action)
	}
	cell := decodeCell(pl)
	if cell < 0 || cell > 8 || e.board[cell] != 0 {
		return engine.NewRulesError("cell unavailable")
	}
	e.board[cell] = e.currentSeat + 1
	e.lastStep = engine.Step{Kind: "place", To: cell, Meta: map[string]any{"seat": e.currentSeat}}
	e.classifyTerminal()
	if !e.terminal {
		e.currentSeat = 1 - e.currentSeat
	}
	return nil
}

func (e *Engine) classifyTerminal() {
	for _, line := range winLines {
		a, b, c := e.board[line[0]], e.board[line[1]], e.board[line[2]]
		if a != 0 && a == b && b == c {
			e.terminal = true
			e.winner = a - 1
			return
		}
	}
	for _, v := range e.board {
		if v == 0 {
			return
		}
	}
	e.terminal = true
	e.draw = true
}

func (e *Engine) AutoPlay(seatIndex int) error {
	for i, v := range e.board {
		if v == 0 {
			return e.HandleAction(e.players[seatIndex], "place", placePayload{Cell: i})
		}
	}
	return engine.NewRulesError("no empty cell available")
}

func (e *Engine) Eliminate(seatIndex int) error {
	e.terminal = true
	e.winner = 1 - seatIndex
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	state := map[string]any{
		"board":       e.board,
		"currentSeat": e.currentSeat,
		"terminal":    e.terminal,
		"winner":      e.winner,
		"draw":        e.draw,
	}
	var actions []string
	if e.players[e.currentSeat] == viewerPlayerID && !e.terminal {
		actions = []string{"place"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Board       [9]int    `json:"board"`
	CurrentSeat int       `json:"currentSeat"`
	Terminal    bool      `json:"terminal"`
	Winner      int       `json:"winner"`
	Draw        bool      `json:"draw"`
	Players     [2]string `json:"players"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Board: e.board, CurrentSeat: e.currentSeat, Terminal: e.terminal, Winner: e.winner, Draw: e.draw, Players: e.players})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.board = s.Board
	e.currentSeat = s.CurrentSeat
	e.terminal = s.Terminal
	e.winner = s.Winner
	e.draw = s.Draw
	e.players = s.Players
	return nil
}
