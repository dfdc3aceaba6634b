// Package monopoly implements a reduced Monopoly board: go/jail/
// properties/chance/chest/tax square resolution, rent/purchase
// actions, and the three-doubles-to-jail rule. Grounded on the Ludo
// engine's seat/turn/dice shape for connection and turn handling.
package monopoly

import (
	"encoding/json"
	"sort"

	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

func init() {
	engine.Register(engine.KindMonopoly, func(opts engine.Options) (engine.Engine, error) {
		source, ok := opts.RNG.(rng.Source)
		if !ok {
			source = rng.NewFixed(0)
		}
		return New(source), nil
	})
}

const (
	minSeats    = 2
	maxSeats    = 6
	boardSize   = 24
	jailSquare  = 10
	goSalary    = 200
	startingCash = 1500
)

type squareKind int

const (
	squareGo squareKind = iota
	squareProperty
	squareChance
	squareChest
	squareTax
	squareJail
)

type square struct {
	Kind  squareKind
	Price int
	Rent  int
}

var squares = buildBoard()

func buildBoard() [boardSize]square {
	var b [boardSize]square
	for i := range b {
		switch {
		case i == 0:
			b[i] = square{Kind: squareGo}
		case i == jailSquare:
			b[i] = square{Kind: squareJail}
		case i%6 == 0:
			b[i] = square{Kind: squareChance}
		case i%6 == 3:
			b[i] = square{Kind: squareChest}
		case i%8 == 5:
			b[i] = square{Kind: squareTax, Rent: 75}
		default:
			b[i] = square{Kind: squareProperty, Price: 100 + (i%5)*40, Rent: 10 + (i%5)*8}
		}
	}
	return b
}

type seatState struct {
	SeatIndex    int         `json:"seatIndex"`
	PlayerID     string      `json:"playerId"`
	Position     int         `json:"position"`
	Cash         int         `json:"cash"`
	DoublesCount int         `json:"doublesCount"`
	InJail       bool        `json:"inJail"`
	Bankrupt     bool        `json:"bankrupt"`
	Owned        map[int]bool `json:"owned"`
}

type phase int

const (
	phaseRoll phase = iota
	phaseResolved
	phaseEndTurn
)

type Engine struct {
	rng         rng.Source
	seats       [maxSeats]*seatState
	seatCount   int
	currentSeat int
	ownership   map[int]int // square index -> seat index
	phase       phase
	terminal    bool
	lastStep    engine.Step
}

func New(source rng.Source) *Engine {
	return &Engine{rng: source, ownership: map[int]int{}}
}

func (e *Engine) Kind() engine.Kind { return engine.KindMonopoly }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex >= maxSeats || e.seats[seat.SeatIndex] != nil {
		return false
	}
	e.seats[seat.SeatIndex] = &seatState{SeatIndex: seat.SeatIndex, PlayerID: seat.PlayerID, Cash: startingCash, Owned: map[int]bool{}}
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
	for _, s := range e.seats {
		if s != nil && !s.Bankrupt {
			return s.SeatIndex, true
		}
	}
	return 0, false
}

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastStep.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastStep}
}

type buyPayload struct{ Buy bool `json:"buy"` }

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
		if e.phase != phaseRoll {
			return engine.NewTurnError("already rolled this turn")
		}
		return e.roll(s)
	case "purchase_decision":
		if e.phase != phaseResolved {
			return engine.NewTurnError("nothing to decide")
		}
		return e.decidePurchase(s, decodeBuy(pl))
	case "end_turn":
		if e.phase != phaseResolved && e.phase != phaseEndTurn {
			return engine.NewTurnError("resolve the square first")
		}
		e.endTurn(s)
		return nil
	default:
		return engine.NewRulesError("unknown action %q", action)
	}
}

func decodeBuy(pl any) bool {
	switch v := pl.(type) {
	case buyPayload:
		return v.Buy
	case map[string]any:
		b, _ := v["buy"].(bool)
		return b
	case json.RawMessage:
		var p buyPayload
		if json.Unmarshal(v, &p) == nil {
			return p.Buy
		}
	}
	return false
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
	d1, d2 := e.rng.Intn(6)+1, e.rng.Intn(6)+1
	doubles := d1 == d2
	e.lastStep = engine.Step{Kind: "dice_roll", From: s.SeatIndex, Meta: map[string]any{"d1": d1, "d2": d2}}

	if s.InJail {
		s.InJail = false
		if !doubles {
			e.phase = phaseResolved
			e.resolveSquare(s)
			return nil
		}
	}

	if doubles {
		s.DoublesCount++
	} else {
		s.DoublesCount = 0
	}

	if s.DoublesCount == 3 {
		s.DoublesCount = 0
		s.Position = jailSquare
		s.InJail = true
		e.phase = phaseEndTurn
		e.lastStep = engine.Step{Kind: "sent_to_jail", From: s.SeatIndex}
		return nil
	}

	from := s.Position
	s.Position = (s.Position + d1 + d2) % boardSize
	if s.Position < from {
		s.Cash += goSalary
	}
	e.lastStep = engine.Step{Kind: "token_move", From: from, To: s.Position, Meta: map[string]any{"seat": s.SeatIndex}}
	e.resolveSquare(s)
	return nil
}

func (e *Engine) resolveSquare(s *seatState) {
	sq := squares[s.Position]
	switch sq.Kind {
	case squareTax:
		s.Cash -= sq.Rent
		e.phase = phaseEndTurn
	case squareProperty:
		owner, owned := e.ownership[s.Position]
		if !owned {
			e.phase = phaseResolved
			return
		}
		if owner != s.SeatIndex {
			s.Cash -= sq.Rent
			if other := e.seats[owner]; other != nil {
				other.Cash += sq.Rent
			}
		}
		e.phase = phaseEndTurn
	default:
		e.phase = phaseEndTurn
	}
	e.checkBankrupt(s)
}

func (e *Engine) decidePurchase(s *seatState, buy bool) error {
	sq := squares[s.Position]
	if sq.Kind != squareProperty {
		return engine.NewRulesError("not a purchasable square")
	}
	if buy && s.Cash >= sq.Price {
		s.Cash -= sq.Price
		e.ownership[s.Position] = s.SeatIndex
		s.Owned[s.Position] = true
	}
	e.phase = phaseEndTurn
	return nil
}

func (e *Engine) checkBankrupt(s *seatState) {
	if s.Cash < 0 {
		s.Bankrupt = true
		if e.remainingSeats() <= 1 {
			e.terminal = true
		}
	}
}

func (e *Engine) remainingSeats() int {
	n := 0
	for _, s := range e.seats {
		if s != nil && !s.Bankrupt {
			n++
		}
	}
	return n
}

func (e *Engine) endTurn(s *seatState) {
	if s.DoublesCount > 0 && !s.InJail {
		e.phase = phaseRoll
		return
	}
	e.advanceTurn()
	e.phase = phaseRoll
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
		if !e.seats[next].Bankrupt {
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
	switch e.phase {
	case phaseRoll:
		return e.HandleAction(s.PlayerID, "roll", nil)
	case phaseResolved:
		return e.HandleAction(s.PlayerID, "purchase_decision", buyPayload{Buy: false})
	default:
		return e.HandleAction(s.PlayerID, "end_turn", nil)
	}
}

func (e *Engine) Eliminate(seatIndex int) error {
	s := e.seats[seatIndex]
	if s == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	s.Bankrupt = true
	if seatIndex == e.currentSeat {
		e.advanceTurn()
		e.phase = phaseRoll
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
		"phase":       e.phase,
		"ownership":   e.ownership,
		"terminal":    e.terminal,
	}
	var actions []string
	if idx, s := e.findSeat(viewerPlayerID); s != nil && idx == e.currentSeat && !e.terminal {
		switch e.phase {
		case phaseRoll:
			actions = []string{"roll"}
		case phaseResolved:
			actions = []string{"purchase_decision"}
		default:
			actions = []string{"end_turn"}
		}
	}
	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Seats       [maxSeats]*seatState `json:"seats"`
	CurrentSeat int                  `json:"currentSeat"`
	Ownership   map[int]int          `json:"ownership"`
	Phase       phase                `json:"phase"`
	Terminal    bool                 `json:"terminal"`
}

func (e *Engine) Serialize() ([]byte, error) {
	return json.Marshal(snapshot{Seats: e.seats, CurrentSeat: e.currentSeat, Ownership: e.ownership, Phase: e.phase, Terminal: e.terminal})
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.seats = s.Seats
	e.currentSeat = s.CurrentSeat
	e.ownership = s.Ownership
	if e.ownership == nil {
		e.ownership = map[int]int{}
	}
	e.phase = s.Phase
	e.terminal = s.Terminal
	e.seatCount = 0
	for _, seat := range e.seats {
		if seat != nil {
			e.seatCount++
		}
	}
	return nil
}
