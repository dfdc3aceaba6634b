// Package sudoku implements a single-player, timer-excluded puzzle:
// cell-fill action with row/column/box conflict validation and
// completion detection. CurrentPlayerIndex always reports no turn
// model, per spec.md §4.1.
package sudoku

import (
	"encoding/json"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindSudoku, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats = 1
	maxSeats = 1
	size     = 9
	box      = 3
)

// solvedBase is one valid completed grid; New derives a puzzle from it
// by masking cells, so every generated puzzle has a guaranteed solution.
var solvedBase = [size][size]int{
	{5, 3, 4, 6, 7, 8, 9, 1, 2},
	{6, 7, 2, 1, 9, 5, 3, 4, 8},
	{1, 9, 8, 3, 4, 2, 5, 6, 7},
	{8, 5, 9, 7, 6, 1, 4, 2, 3},
	{4, 2, 6, 8, 5, 3, 7, 9, 1},
	{7, 1, 3, 9, 2, 4, 8, 5, 6},
	{9, 6, 1, 5, 3, 7, 2, 8, 4},
	{2, 8, 7, 4, 1, 9, 6, 3, 5},
	{3, 4, 5, 2, 8, 6, 1, 7, 9},
}

type Engine struct {
	grid   [size][size]int
	fixed  [size][size]bool
	player string
	solved bool
}

func New(source rng.Source) *Engine {
	e := &Engine{grid: solvedBase}
	// Mask ~55 of 81 cells to form the puzzle, driven by the injected source.
	masked := 0
	for masked < 55 {
		r := source.Intn(size)
		c := source.Intn(size)
		if e.grid[r][c] != 0 {
			e.grid[r][c] = 0
			masked++
		}
	}
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			e.fixed[r][c] = e.grid[r][c] != 0
		}
	}
	return e
}

func (e *Engine) Kind() engine.Kind { return engine.KindSudoku }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if e.player != "" {
		return false
	}
	e.player = seat.PlayerID
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	if e.player == playerID {
		e.player = ""
		return true
	}
	return false
}

func (e *Engine) CurrentPlayerIndex() (int, bool) { return 0, false }
func (e *Engine) IsTerminal() bool                { return e.solved }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.solved {
		return 0, true
	}
	return 0, false
}

func (e *Engine) AnimationHints() []engine.Step { return nil }

type fillPayload struct {
	Row, Col, Value int `json:"row"`
}

func decodeFill(pl any) (int, int, int, bool) {
	switch v := pl.(type) {
	case map[string]any:
		r, ok1 := v["row"].(float64)
		c, ok2 := v["col"].(float64)
		val, ok3 := v["value"].(float64)
		if ok1 && ok2 && ok3 {
			return int(r), int(c), int(val), true
		}
	case json.RawMessage:
		var m map[string]int
		if json.Unmarshal(v, &m) == nil {
			return m["row"], m["col"], m["value"], true
		}
	}
	return 0, 0, 0, false
}

func (e *Engine) HandleAction(actingPlayerID string, action string, pl any) error {
	if e.solved {
		return engine.NewTurnError("puzzle already solved")
	}
	if actingPlayerID != e.player {
		return engine.NewRulesError("player not seated")
	}
	if action != "fill" {
		return engine.NewRulesError("unknown action %q", action)
	}
	r, c, v, ok := decodeFill(pl)
	if !ok || r < 0 || r >= size || c < 0 || c >= size || v < 1 || v > 9 {
		return engine.NewRulesError("malformed fill payload")
	}
	if e.fixed[r][c] {
		return engine.NewRulesError("cell is fixed")
	}
	if e.conflicts(r, c, v) {
		return engine.NewRulesError("value conflicts with row, column, or box")
	}
	e.grid[r][c] = v
	if e.isComplete() {
		e.solved = true
	}
	return nil
}

func (e *Engine) conflicts(row, col, v int) bool {
	for i := 0; i < size; i++ {
		if i != col && e.grid[row][i] == v {
			return true
		}
		if i != row && e.grid[i][col] == v {
			return true
		}
	}
	br, bc := (row/box)*box, (col/box)*box
	for r := br; r < br+box; r++ {
		for c := bc; c < bc+box; c++ {
			if (r != row || c != col) && e.grid[r][c] == v {
				return true
			}
		}
	}
	return false
}

func (e *Engine) isComplete() bool {
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if e.grid[r][c] == 0 {
				return false
			}
		}
	}
	return true
}

func (e *Engine) AutoPlay(seatIndex int) error {
	return engine.NewRulesError("sudoku has no auto-play move")
}

func (e *Engine) Eliminate(seatIndex int) error {
	e.player = ""
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	state := map[string]any{"grid": e.grid, "fixed": e.fixed, "solved": e.solved}
	var actions []string
	if viewerPlayerID == e.player && !e.solved {
		actions = []string{"fill"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Grid   [size][size]int  `json:"grid"`
	Fixed  [size][size]bool `json:"fixed"`
	Player string           `json:"player"`
	Solved bool             `json:"solved"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Grid: e.grid, Fixed: e.fixed, Player: e.player, Solved: e.solved})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.grid = s.Grid
	e.fixed = s.Fixed
	e.player = s.Player
	e.solved = s.Solved
	return nil
}
