package chess

import (
	"encoding/json"

	"lobby-platform/internal/engine"
)

// Engine is a single chess match between two seats (0=white, 1=black).
type Engine struct {
	board         *Board
	toMove        Color
	halfMoveClock int
	fullMoveNum   int
	result        Result
	terminal      bool
	drawOfferedBy *Color
	clock         *Clock
	history       []Move

	players [2]*seatPlayer
	lastStep engine.Step
}

type seatPlayer struct {
	SeatIndex int
	PlayerID  string
	Connected bool
}

// New starts a fresh chess engine at the standard opening position.
func New() *Engine {
	return &Engine{board: newStartingBoard(), toMove: White, fullMoveNum: 1}
}

func (e *Engine) Kind() engine.Kind { return engine.KindChess }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex > 1 {
		return false
	}
	if e.players[seat.SeatIndex] != nil {
		return false
	}
	e.players[seat.SeatIndex] = &seatPlayer{SeatIndex: seat.SeatIndex, PlayerID: seat.PlayerID, Connected: true}
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			e.players[i] = nil
			return true
		}
	}
	return false
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	if e.terminal {
		return 0, false
	}
	if e.toMove == White {
		return 0, true
	}
	return 1, true
}

func (e *Engine) IsTerminal() bool { return e.terminal }

func (e *Engine) WinnerIndex() (int, bool) {
	switch e.result {
	case ResultWhiteCheckmate, ResultBlackResigned, ResultBlackTimeout:
		return 0, true
	case ResultBlackCheckmate, ResultWhiteResigned, ResultWhiteTimeout:
		return 1, true
	default:
		return 0, false
	}
}

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

// HandleAction accepts move{from,to,promotion?}, resign, offer_draw,
// accept_draw, decline_draw.
func (e *Engine) HandleAction(actingPlayerID string, action string, payload any) error {
	if e.terminal {
		return engine.NewTurnError("game already over")
	}
	seat, p := e.findPlayer(actingPlayerID)
	if p == nil {
		return engine.NewRulesError("player not seated")
	}
	actingColor := Color(seat)
	switch action {
	case "resign":
		if actingColor == White {
			e.finish(ResultWhiteResigned)
		} else {
			e.finish(ResultBlackResigned)
		}
		return nil
	case "offer_draw":
		if actingColor != e.toMove {
			return engine.NewTurnError("not your turn")
		}
		c := actingColor
		e.drawOfferedBy = &c
		return nil
	case "accept_draw":
		if e.drawOfferedBy == nil || *e.drawOfferedBy == actingColor {
			return engine.NewRulesError("no draw offer to accept")
		}
		e.finish(ResultDrawAgreed)
		return nil
	case "decline_draw":
		e.drawOfferedBy = nil
		return nil
	case "move":
		return e.handleMove(actingColor, payload)
	default:
		return engine.NewRulesError("unknown action %q", action)
	}
}

func (e *Engine) findPlayer(playerID string) (int, *seatPlayer) {
	for i, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			return i, p
		}
	}
	return -1, nil
}

type movePayload struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion"`
}

func decodeMove(payload any) (Move, bool) {
	var mp movePayload
	switch v := payload.(type) {
	case movePayload:
		mp = v
	case map[string]any:
		if s, ok := v["from"].(string); ok {
			mp.From = s
		}
		if s, ok := v["to"].(string); ok {
			mp.To = s
		}
		if s, ok := v["promotion"].(string); ok {
			mp.Promotion = s
		}
	case json.RawMessage:
		if json.Unmarshal(v, &mp) != nil {
			return Move{}, false
		}
	default:
		return Move{}, false
	}
	from, ok1 := parseSquare(mp.From)
	to, ok2 := parseSquare(mp.To)
	if !ok1 || !ok2 {
		return Move{}, false
	}
	m := Move{From: from, To: to, Promotion: parsePromotion(mp.Promotion)}
	return m, true
}

func parseSquare(s string) (Pos, bool) {
	if len(s) != 2 {
		return Pos{}, false
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	p := Pos{file, rank}
	return p, p.Valid()
}

func parsePromotion(s string) PieceKind {
	switch s {
	case "q", "queen":
		return Queen
	case "r", "rook":
		return Rook
	case "b", "bishop":
		return Bishop
	case "n", "knight":
		return Knight
	default:
		return None
	}
}

func (e *Engine) handleMove(actingColor Color, payload any) error {
	if actingColor != e.toMove {
		return engine.NewTurnError("not your turn")
	}
	m, ok := decodeMove(payload)
	if !ok {
		return engine.NewRulesError("malformed move payload")
	}
	legal := e.board.legalMoves(actingColor)
	var matched *Move
	for _, lm := range legal {
		if lm.From == m.From && lm.To == m.To {
			if lm.Promotion != None && lm.Promotion != m.Promotion {
				continue
			}
			mm := lm
			matched = &mm
			break
		}
	}
	if matched == nil {
		return engine.NewRulesError("illegal move")
	}

	wasCapture := e.board.isCapture(*matched)
	wasPawn := e.board.at(matched.From).Kind == Pawn
	e.board = e.board.apply(*matched, actingColor)
	e.history = append(e.history, *matched)
	e.drawOfferedBy = nil

	if wasCapture || wasPawn {
		e.halfMoveClock = 0
	} else {
		e.halfMoveClock++
	}
	if actingColor == Black {
		e.fullMoveNum++
	}
	e.toMove = actingColor.Opponent()
	e.advanceClock(actingColor)
	e.lastStep = engine.Step{Kind: "move", From: squareName(matched.From), To: squareName(matched.To)}

	e.classifyTerminal()
	return nil
}

func squareName(p Pos) string {
	return string(rune('a'+p.File)) + string(rune('1'+p.Rank))
}

func (e *Engine) advanceClock(mover Color) {
	if e.clock == nil || e.clock.Kind == ClockNone {
		return
	}
	if mover == White {
		e.clock.WhiteRemainingMs += e.clock.IncrementMs
	} else {
		e.clock.BlackRemainingMs += e.clock.IncrementMs
	}
}

// classifyTerminal applies the §4.2 ordering: checkmate, stalemate,
// 50-move, insufficient material.
func (e *Engine) classifyTerminal() {
	legal := e.board.legalMoves(e.toMove)
	inCheck := e.board.inCheck(e.toMove)
	if len(legal) == 0 {
		if inCheck {
			if e.toMove == White {
				e.finish(ResultBlackCheckmate)
			} else {
				e.finish(ResultWhiteCheckmate)
			}
		} else {
			e.finish(ResultStalemate)
		}
		return
	}
	if e.halfMoveClock >= 100 {
		e.finish(ResultFiftyMove)
		return
	}
	if e.board.insufficientMaterial() {
		e.finish(ResultInsufficient)
		return
	}
}

func (e *Engine) finish(r Result) {
	e.result = r
	e.terminal = true
}

func (e *Engine) AutoPlay(seatIndex int) error {
	color := Color(seatIndex)
	legal := e.board.legalMoves(color)
	if len(legal) == 0 {
		return engine.NewRulesError("no legal moves available")
	}
	m := legal[0]
	p := e.players[seatIndex]
	if p == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	payload := movePayload{From: squareName(m.From), To: squareName(m.To)}
	if m.Promotion != None {
		payload.Promotion = "q"
	}
	return e.HandleAction(p.PlayerID, "move", payload)
}

func (e *Engine) Eliminate(seatIndex int) error {
	if seatIndex == 0 {
		e.finish(ResultWhiteResigned)
	} else {
		e.finish(ResultBlackResigned)
	}
	return nil
}

func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	idx, p := e.findPlayer(viewerPlayerID)
	_ = idx
	state := map[string]any{
		"board":         boardView(e.board),
		"toMove":        e.toMove.String(),
		"inCheck":       e.board.inCheck(e.toMove),
		"halfMoveClock": e.halfMoveClock,
		"fullMoveNum":   e.fullMoveNum,
		"result":        string(e.result),
		"terminal":      e.terminal,
		"history":       moveNames(e.history),
	}
	var actions []string
	if p != nil && !e.terminal && Color(p.SeatIndex) == e.toMove {
		actions = []string{"move", "resign", "offer_draw"}
		if e.drawOfferedBy != nil && *e.drawOfferedBy != Color(p.SeatIndex) {
			actions = append(actions, "accept_draw", "decline_draw")
		}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

func moveNames(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = squareName(m.From) + squareName(m.To)
	}
	return out
}

func boardView(b *Board) [8][8]map[string]any {
	var view [8][8]map[string]any
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := b.Squares[f][r]
			if sq.Empty() {
				continue
			}
			view[f][r] = map[string]any{"kind": pieceLetter(sq.Kind), "color": sq.Color.String()}
		}
	}
	return view
}

func pieceLetter(k PieceKind) string {
	switch k {
	case Pawn:
		return "p"
	case Knight:
		return "n"
	case Bishop:
		return "b"
	case Rook:
		return "r"
	case Queen:
		return "q"
	case King:
		return "k"
	default:
		return ""
	}
}

type snapshot struct {
	Board         *Board            `json:"board"`
	ToMove        Color             `json:"toMove"`
	HalfMoveClock int               `json:"halfMoveClock"`
	FullMoveNum   int               `json:"fullMoveNum"`
	Result        Result            `json:"result"`
	Terminal      bool              `json:"terminal"`
	Clock         *Clock            `json:"clock"`
	History       []Move            `json:"history"`
	Players       [2]*seatPlayer    `json:"players"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{
		Board: e.board, ToMove: e.toMove, HalfMoveClock: e.halfMoveClock,
		FullMoveNum: e.fullMoveNum, Result: e.result, Terminal: e.terminal,
		Clock: e.clock, History: e.history, Players: e.players,
	})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.board = s.Board
	e.toMove = s.ToMove
	e.halfMoveClock = s.HalfMoveClock
	e.fullMoveNum = s.FullMoveNum
	e.result = s.Result
	e.terminal = s.Terminal
	e.clock = s.Clock
	e.history = s.History
	e.players = s.Players
	return nil
}
