// Package candy implements a single-player match-3: swap-adjacent,
// resolve same-color runs of 3+, cascade refill, and score. Timer-
// excluded per spec.md §4.1.
package candy

import (
	"encoding/json"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindCandy, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats  = 1
	maxSeats  = 1
	gridSize  = 8
	numColors = 5
)

type Engine struct {
	rng    rng.Source
	grid   [gridSize][gridSize]int // 1..numColors, 0 = empty (mid-cascade only)
	score  int
	player string
	over   bool
	moves  int
}

func New(source rng.Source) *Engine {
	e := &Engine{rng: source}
	e.fillRandom()
	for e.hasMatchAnywhere() {
		e.fillRandom()
	}
	return e
}

func (e *Engine) fillRandom() {
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			e.grid[r][c] = e.rng.Intn(numColors) + 1
		}
	}
}

func (e *Engine) Kind() engine.Kind { return engine.KindCandy }
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
func (e *Engine) IsTerminal() bool                { return e.over }

func (e *Engine) WinnerIndex() (int, bool) {
	if e.over {
		return 0, true
	}
	return 0, false
}

func (e *Engine) AnimationHints() []engine.Step { return nil }

func decodeSwap(pl any) (int, int, int, int, bool) {
	m, ok := pl.(map[string]any)
	if !ok {
		if raw, isRaw := pl.(json.RawMessage); isRaw {
			var mm map[string]int
			if json.Unmarshal(raw, &mm) == nil {
				return mm["r1"], mm["c1"], mm["r2"], mm["c2"], true
			}
		}
		return 0, 0, 0, 0, false
	}
	r1, ok1 := m["r1"].(float64)
	c1, ok2 := m["c1"].(float64)
	r2, ok3 := m["r2"].(float64)
	c2, ok4 := m["c2"].(float64)
	if ok1 && ok2 && ok3 && ok4 {
		return int(r1), int(c1), int(r2), int(c2), true
	}
	return 0, 0, 0, 0, false
}

func (e *Engine) HandleAction(actingPlayerID string, action string, pl any) error {
	if e.over {
		return engine.NewTurnError("game already over")
	}
	if actingPlayerID != e.player {
		return engine.NewRulesError("player not seated")
	}
	if action != "swap" {
		return engine.NewRulesError("unknown action %q", action)
	}
	r1, c1, r2, c2, ok := decodeSwap(pl)
	if !ok || !adjacent(r1, c1, r2, c2) || !inBounds(r1, c1) || !inBounds(r2, c2) {
		return engine.NewRulesError("invalid swap")
	}
	e.grid[r1][c1], e.grid[r2][c2] = e.grid[r2][c2], e.grid[r1][c1]
	if !e.hasMatchAnywhere() {
		e.grid[r1][c1], e.grid[r2][c2] = e.grid[r2][c2], e.grid[r1][c1]
		return engine.NewRulesError("swap produces no match")
	}
	e.resolveCascade()
	e.moves++
	return nil
}

func adjacent(r1, c1, r2, c2 int) bool {
	dr, dc := abs(r1-r2), abs(c1-c2)
	return (dr == 1 && dc == 0) || (dr == 0 && dc == 1)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func inBounds(r, c int) bool { return r >= 0 && r < gridSize && c >= 0 && c < gridSize }

func (e *Engine) hasMatchAnywhere() bool {
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if c+2 < gridSize && e.grid[r][c] == e.grid[r][c+1] && e.grid[r][c] == e.grid[r][c+2] {
				return true
			}
			if r+2 < gridSize && e.grid[r][c] == e.grid[r+1][c] && e.grid[r][c] == e.grid[r+2][c] {
				return true
			}
		}
	}
	return false
}

func (e *Engine) resolveCascade() {
	for {
		cleared := e.clearMatches()
		if cleared == 0 {
			break
		}
		e.score += cleared * 10
		e.collapseColumns()
		e.refill()
	}
}

func (e *Engine) clearMatches() int {
	var toClear [gridSize][gridSize]bool
	count := 0
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if c+2 < gridSize && e.grid[r][c] != 0 && e.grid[r][c] == e.grid[r][c+1] && e.grid[r][c] == e.grid[r][c+2] {
				toClear[r][c], toClear[r][c+1], toClear[r][c+2] = true, true, true
			}
			if r+2 < gridSize && e.grid[r][c] != 0 && e.grid[r][c] == e.grid[r+1][c] && e.grid[r][c] == e.grid[r+2][c] {
				toClear[r][c], toClear[r+1][c], toClear[r+2][c] = true, true, true
			}
		}
	}
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if toClear[r][c] {
				e.grid[r][c] = 0
				count++
			}
		}
	}
	return count
}

func (e *Engine) collapseColumns() {
	for c := 0; c < gridSize; c++ {
		write := gridSize - 1
		for r := gridSize - 1; r >= 0; r-- {
			if e.grid[r][c] != 0 {
				e.grid[write][c] = e.grid[r][c]
				write--
			}
		}
		for r := write; r >= 0; r-- {
			e.grid[r][c] = 0
		}
	}
}

func (e *Engine) refill() {
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if e.grid[r][c] == 0 {
				e.grid[r][c] = e.rng.Intn(numColors) + 1
			}
		}
	}
}

func (e *Engine) AutoPlay(seatIndex int) error {
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if c+1 < gridSize {
				if err := e.tryAutoSwap(r, c, r, c+1); err == nil {
					return nil
				}
			}
			if r+1 < gridSize {
				if err := e.tryAutoSwap(r, c, r+1, c); err == nil {
					return nil
				}
			}
		}
	}
	e.over = true
	return nil
}

func (e *Engine) tryAutoSwap(r1, c1, r2, c2 int) error {
	return e.HandleAction(e.player, "swap", map[string]any{
		"r1": float64(r1), "c1": float64(c1), "r2": float64(r2), "c2": float64(c2),
	})
}

func (e *Engine) Eliminate(seatIndex int) error {
	e.over = true
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	state := map[string]any{"grid": e.grid, "score": e.score, "over": e.over, "moves": e.moves}
	var actions []string
	if viewerPlayerID == e.player && !e.over {
		actions = []string{"swap"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Grid   [gridSize][gridSize]int `json:"grid"`
	Score  int                     `json:"score"`
	Player string                  `json:"player"`
	Over   bool                    `json:"over"`
	Moves  int                     `json:"moves"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Grid: e.grid, Score: e.score, Player: e.player, Over: e.over, Moves: e.moves})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.grid = s.Grid
	e.score = s.Score
	e.player = s.Player
	e.over = s.Over
	e.moves = s.Moves
	return nil
}
