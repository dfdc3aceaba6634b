// Package twentyfortyeight implements the single-player 2048 slide/
// merge grid: four directional slide actions, score accumulation, and
// game-over-on-no-moves detection. Timer-excluded per spec.md §4.1.
package twentyfortyeight

import (
	"encoding/json"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.Kind2048, func(opts engine.Options) (engine.Engine, error) {
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
	gridSize = 4
)

type Engine struct {
	rng    rng.Source
	grid   [gridSize][gridSize]int
	score  int
	player string
	over   bool
}

func New(source rng.Source) *Engine {
	e := &Engine{rng: source}
	e.spawnTile()
	e.spawnTile()
	return e
}

func (e *Engine) Kind() engine.Kind { return engine.Kind2048 }
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

type dirPayload struct {
	Direction string `json:"direction"`
}

func decodeDirection(pl any) string {
	switch v := pl.(type) {
	case dirPayload:
		return v.Direction
	case map[string]any:
		s, _ := v["direction"].(string)
		return s
	case json.RawMessage:
		var p dirPayload
		if json.Unmarshal(v, &p) == nil {
			return p.Direction
		}
	}
	return ""
}

func (e *Engine) HandleAction(actingPlayerID string, action string, pl any) error {
	if e.over {
		return engine.NewTurnError("game already over")
	}
	if actingPlayerID != e.player {
		return engine.NewRulesError("player not seated")
	}
	if action != "slide" {
		return engine.NewRulesError("unknown action %q", action)
	}
	dir := decodeDirection(pl)
	moved, gained := e.slide(dir)
	if !moved {
		return engine.NewRulesError("no tiles move in that direction")
	}
	e.score += gained
	e.spawnTile()
	if !e.anyMovePossible() {
		e.over = true
	}
	return nil
}

func (e *Engine) slide(dir string) (moved bool, gained int) {
	switch dir {
	case "up":
		for c := 0; c < gridSize; c++ {
			col := [gridSize]int{e.grid[0][c], e.grid[1][c], e.grid[2][c], e.grid[3][c]}
			merged, g, m := mergeLine(col)
			for r := 0; r < gridSize; r++ {
				e.grid[r][c] = merged[r]
			}
			gained += g
			moved = moved || m
		}
	case "down":
		for c := 0; c < gridSize; c++ {
			col := [gridSize]int{e.grid[3][c], e.grid[2][c], e.grid[1][c], e.grid[0][c]}
			merged, g, m := mergeLine(col)
			for r := 0; r < gridSize; r++ {
				e.grid[gridSize-1-r][c] = merged[r]
			}
			gained += g
			moved = moved || m
		}
	case "left":
		for r := 0; r < gridSize; r++ {
			merged, g, m := mergeLine(e.grid[r])
			e.grid[r] = merged
			gained += g
			moved = moved || m
		}
	case "right":
		for r := 0; r < gridSize; r++ {
			rev := [gridSize]int{e.grid[r][3], e.grid[r][2], e.grid[r][1], e.grid[r][0]}
			merged, g, m := mergeLine(rev)
			for c := 0; c < gridSize; c++ {
				e.grid[r][gridSize-1-c] = merged[c]
			}
			gained += g
			moved = moved || m
		}
	}
	return moved, gained
}

func mergeLine(line [gridSize]int) (out [gridSize]int, gained int, moved bool) {
	var vals []int
	for _, v := range line {
		if v != 0 {
			vals = append(vals, v)
		}
	}
	var merged []int
	for i := 0; i < len(vals); i++ {
		if i+1 < len(vals) && vals[i] == vals[i+1] {
			merged = append(merged, vals[i]*2)
			gained += vals[i] * 2
			i++
		} else {
			merged = append(merged, vals[i])
		}
	}
	for i := 0; i < gridSize; i++ {
		if i < len(merged) {
			out[i] = merged[i]
		}
	}
	moved = out != line
	return out, gained, moved
}

func (e *Engine) spawnTile() {
	var empty [][2]int
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if e.grid[r][c] == 0 {
				empty = append(empty, [2]int{r, c})
			}
		}
	}
	if len(empty) == 0 {
		return
	}
	pick := empty[e.rng.Intn(len(empty))]
	value := 2
	if e.rng.Intn(10) == 0 {
		value = 4
	}
	e.grid[pick[0]][pick[1]] = value
}

func (e *Engine) anyMovePossible() bool {
	for r := 0; r < gridSize; r++ {
		for c := 0; c < gridSize; c++ {
			if e.grid[r][c] == 0 {
				return true
			}
			if c+1 < gridSize && e.grid[r][c] == e.grid[r][c+1] {
				return true
			}
			if r+1 < gridSize && e.grid[r][c] == e.grid[r+1][c] {
				return true
			}
		}
	}
	return false
}

func (e *Engine) AutoPlay(seatIndex int) error {
	for _, dir := range []string{"left", "up", "right", "down"} {
		if moved, _ := e.slide(dir); moved {
			e.spawnTile()
			if !e.anyMovePossible() {
				e.over = true
			}
			return nil
		}
	}
	e.over = true
	return nil
}

func (e *Engine) Eliminate(seatIndex int) error {
	e.over = true
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	state := map[string]any{"grid": e.grid, "score": e.score, "over": e.over}
	var actions []string
	if viewerPlayerID == e.player && !e.over {
		actions = []string{"slide"}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Grid   [gridSize][gridSize]int `json:"grid"`
	Score  int                     `json:"score"`
	Player string                  `json:"player"`
	Over   bool                    `json:"over"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Grid: e.grid, Score: e.score, Player: e.player, Over: e.over})
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
	return nil
}
