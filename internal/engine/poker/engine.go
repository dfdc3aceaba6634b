package poker

import (
	"encoding/json"
	"sort"

	"lobby-platform/internal/cards"
	"lobby-platform/internal/engine"
	"lobby-platform/internal/rng"
)

// Engine is the Texas Hold'em Engine implementation.
type Engine struct {
	rng       rng.Source
	evaluator *cards.HandEvaluator

	players      []*Player // index == seat index, nil for empty seats
	seatCount    int
	dealerSeat   int
	phase        Phase
	deck         []cards.Card
	community    []cards.Card

	pots []Pot

	currentBet         int64
	minRaise           int64
	smallBlind         int64
	bigBlind           int64
	currentTurnSeat    int
	lastAggressorSeat  int
	bbOptionPending    bool // preflop BB-option special case

	handNumber int
	lastAction engine.Step
}

// New builds a fresh, empty Texas Hold'em engine.
func New(source rng.Source) *Engine {
	return &Engine{
		rng:        source,
		evaluator:  cards.NewHandEvaluator(),
		players:    make([]*Player, maxSeats),
		smallBlind: defaultSmallBlind,
		bigBlind:   defaultBigBlind,
		phase:      PhaseWaiting,
	}
}

func (e *Engine) Kind() engine.Kind { return engine.KindPoker }
func (e *Engine) MinSeats() int     { return minSeats }
func (e *Engine) MaxSeats() int     { return maxSeats }

func (e *Engine) AddPlayer(seat engine.Seat) bool {
	if seat.SeatIndex < 0 || seat.SeatIndex >= maxSeats {
		return false
	}
	if e.players[seat.SeatIndex] != nil {
		return false
	}
	for _, p := range e.players {
		if p != nil && p.PlayerID == seat.PlayerID {
			return false
		}
	}
	e.players[seat.SeatIndex] = &Player{
		SeatIndex: seat.SeatIndex,
		PlayerID:  seat.PlayerID,
		Chips:     1000,
		Status:    StatusActive,
		Connected: true,
	}
	e.seatCount++
	if e.phase == PhaseWaiting && e.seatCount >= minSeats {
		e.startHand()
	}
	return true
}

func (e *Engine) RemovePlayer(playerID string) bool {
	for i, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			e.players[i] = nil
			e.seatCount--
			return true
		}
	}
	return false
}

func (e *Engine) CurrentPlayerIndex() (int, bool) {
	if e.phase == PhaseWaiting || e.phase == PhaseHandComplete || e.phase == PhaseShowdown {
		return 0, false
	}
	return e.currentTurnSeat, true
}

func (e *Engine) IsTerminal() bool {
	return e.countRemaining() <= 1 && e.seatCount > 0 && e.phase != PhaseWaiting
}

func (e *Engine) WinnerIndex() (int, bool) {
	var last int = -1
	count := 0
	for _, p := range e.players {
		if p != nil && p.Status != StatusBusted {
			last = p.SeatIndex
			count++
		}
	}
	if count == 1 {
		return last, true
	}
	return 0, false
}

func (e *Engine) AnimationHints() []engine.Step {
	if e.lastAction.Kind == "" {
		return nil
	}
	return []engine.Step{e.lastAction}
}

func (e *Engine) countRemaining() int {
	n := 0
	for _, p := range e.players {
		if p != nil && p.Status != StatusBusted {
			n++
		}
	}
	return n
}

// startHand deals a new hand: shuffles, posts blinds, sets first-to-act.
func (e *Engine) startHand() {
	e.handNumber++
	e.phase = PhasePreflop
	e.community = nil
	e.currentBet = 0
	e.minRaise = e.bigBlind
	e.pots = []Pot{{ID: "main", EligibleSeats: map[int]bool{}}}
	e.bbOptionPending = true

	e.deck = cards.NewDeck()
	e.rng.Shuffle(len(e.deck), func(i, j int) { e.deck[i], e.deck[j] = e.deck[j], e.deck[i] })

	seats := e.activeSeatOrder()
	for _, s := range seats {
		p := e.players[s]
		p.HoleCards = nil
		p.CurrentBet = 0
		p.TotalInvested = 0
		if p.Status != StatusSittingOut {
			p.Status = StatusActive
		}
	}

	if len(seats) < 2 {
		return
	}
	e.dealerSeat = e.nextValidDealer(seats)

	sbSeat, bbSeat := e.blindSeats(seats)
	e.postBlind(sbSeat, e.smallBlind)
	e.postBlind(bbSeat, e.bigBlind)
	e.currentBet = e.bigBlind

	// deal two hole cards round-robin
	for round := 0; round < 2; round++ {
		for _, s := range seats {
			e.players[s].HoleCards = append(e.players[s].HoleCards, e.draw())
		}
	}

	e.lastAggressorSeat = bbSeat
	e.currentTurnSeat = e.firstToActPreflop(seats, sbSeat, bbSeat)
	e.lastAction = engine.Step{Kind: "hand_start"}
}

func (e *Engine) nextValidDealer(seats []int) int {
	if e.handNumber == 1 {
		return seats[0]
	}
	for i, s := range seats {
		if s == e.dealerSeat {
			return seats[(i+1)%len(seats)]
		}
	}
	return seats[0]
}

func (e *Engine) blindSeats(seats []int) (sb, bb int) {
	idx := indexOf(seats, e.dealerSeat)
	if len(seats) == 2 {
		return seats[idx], seats[(idx+1)%len(seats)]
	}
	return seats[(idx+1)%len(seats)], seats[(idx+2)%len(seats)]
}

func (e *Engine) firstToActPreflop(seats []int, sb, bb int) int {
	idx := indexOf(seats, bb)
	return seats[(idx+1)%len(seats)]
}

func indexOf(seats []int, s int) int {
	for i, v := range seats {
		if v == s {
			return i
		}
	}
	return 0
}

func (e *Engine) activeSeatOrder() []int {
	var out []int
	for i, p := range e.players {
		if p != nil && p.Status != StatusBusted {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (e *Engine) postBlind(seat int, amount int64) {
	p := e.players[seat]
	if amount > p.Chips {
		amount = p.Chips
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalInvested += amount
	if p.Chips == 0 {
		p.Status = StatusAllIn
	}
}

func (e *Engine) draw() cards.Card {
	c := e.deck[0]
	e.deck = e.deck[1:]
	return c
}

// HandleAction applies actingPlayerID's action. See engine.Engine.
func (e *Engine) HandleAction(actingPlayerID string, action string, payload any) error {
	if e.phase == PhaseWaiting || e.phase == PhaseHandComplete {
		return engine.NewTurnError("no hand in progress")
	}
	seat, p := e.findPlayer(actingPlayerID)
	if p == nil {
		return engine.NewRulesError("player not seated")
	}
	if seat != e.currentTurnSeat {
		return engine.NewTurnError("not your turn")
	}
	if p.Status != StatusActive {
		return engine.NewTurnError("player is not active")
	}

	amount := decodeAmount(payload)

	// The BB's preflop option is consumed the moment the BB itself acts
	// without raising; otherwise roundClosedAt would never see the
	// round as closed and action would cycle back to the BB forever.
	consumesBBOption := e.phase == PhasePreflop && e.bbOptionPending && seat == e.lastAggressorSeat

	switch Action(action) {
	case ActionFold:
		e.processFold(seat)
	case ActionCheck:
		if p.CurrentBet != e.currentBet {
			return engine.NewRulesError("cannot check, must call %d", e.currentBet-p.CurrentBet)
		}
	case ActionCall:
		e.processCall(seat)
	case ActionBet, ActionRaise:
		if amount < e.minRaise {
			return engine.NewRulesError("raise must be at least %d", e.minRaise)
		}
		if err := e.processRaise(seat, amount); err != nil {
			return err
		}
	case ActionAllIn:
		e.processAllIn(seat)
	default:
		return engine.NewRulesError("unknown action %q", action)
	}

	optionResolvedWithoutRaise := consumesBBOption && (Action(action) == ActionCheck || Action(action) == ActionCall)
	if optionResolvedWithoutRaise {
		e.bbOptionPending = false
	}

	e.lastAction = engine.Step{Kind: "bet", From: seat, Meta: map[string]any{"action": action}}

	// The BB's own check/call IS the action returning to the last
	// aggressor with all bets matched — close right here rather than
	// routing through advanceAfterAction's next-seat scan, which would
	// otherwise require one more full lap before detecting closure.
	if optionResolvedWithoutRaise && e.allBetsMatched() {
		e.closeRoundAndAdvance()
		return nil
	}

	e.advanceAfterAction()
	return nil
}

// allBetsMatched reports whether every still-active player has
// committed the same amount this betting round.
func (e *Engine) allBetsMatched() bool {
	for _, p := range e.players {
		if p != nil && p.Status == StatusActive && p.CurrentBet != e.currentBet {
			return false
		}
	}
	return true
}

func decodeAmount(payload any) int64 {
	switch v := payload.(type) {
	case ActionPayload:
		return v.Amount
	case map[string]any:
		if a, ok := v["amount"].(float64); ok {
			return int64(a)
		}
	case json.RawMessage:
		var p ActionPayload
		if json.Unmarshal(v, &p) == nil {
			return p.Amount
		}
	}
	return 0
}

func (e *Engine) findPlayer(playerID string) (int, *Player) {
	for i, p := range e.players {
		if p != nil && p.PlayerID == playerID {
			return i, p
		}
	}
	return -1, nil
}

func (e *Engine) processFold(seat int) {
	e.players[seat].Status = StatusFolded
}

func (e *Engine) processCall(seat int) {
	p := e.players[seat]
	callAmount := e.currentBet - p.CurrentBet
	if callAmount >= p.Chips {
		e.commit(p, p.Chips)
		p.Status = StatusAllIn
		return
	}
	e.commit(p, callAmount)
}

func (e *Engine) processRaise(seat int, amount int64) error {
	p := e.players[seat]
	total := (e.currentBet - p.CurrentBet) + amount
	if total > p.Chips {
		return engine.NewRulesError("insufficient chips for raise")
	}
	e.commit(p, total)
	e.currentBet = p.CurrentBet
	e.minRaise = amount
	e.lastAggressorSeat = seat
	e.bbOptionPending = false
	return nil
}

func (e *Engine) processAllIn(seat int) {
	p := e.players[seat]
	amount := p.Chips
	e.commit(p, amount)
	p.Status = StatusAllIn
	if p.CurrentBet > e.currentBet {
		e.currentBet = p.CurrentBet
		e.minRaise = p.CurrentBet - e.currentBet
		if e.minRaise < e.bigBlind {
			e.minRaise = e.bigBlind
		}
		e.lastAggressorSeat = seat
		e.bbOptionPending = false
	}
}

func (e *Engine) commit(p *Player, amount int64) {
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalInvested += amount
	if p.Chips == 0 {
		p.Status = StatusAllIn
	}
}

// advanceAfterAction finds the next seat to act, or closes the
// betting round and advances phase if action has returned to the
// last aggressor with all live bets matched.
func (e *Engine) advanceAfterAction() {
	if e.countLiveContenders() <= 1 {
		e.phase = PhaseShowdown
		e.resolveShowdown()
		return
	}

	seats := e.activeSeatOrder()
	idx := indexOf(seats, e.currentTurnSeat)
	for i := 1; i <= len(seats); i++ {
		next := seats[(idx+i)%len(seats)]
		p := e.players[next]
		if p.Status != StatusActive {
			continue
		}
		if e.roundClosedAt(next) {
			e.closeRoundAndAdvance()
			return
		}
		e.currentTurnSeat = next
		return
	}
	e.closeRoundAndAdvance()
}

// roundClosedAt reports whether candidate is the seat that would close
// the round: it is the designated aggressor (or the BB with its
// preflop option) and all live bets already match currentBet.
func (e *Engine) roundClosedAt(candidate int) bool {
	if e.bbOptionPending && e.phase == PhasePreflop {
		return false
	}
	if candidate != e.lastAggressorSeat {
		return false
	}
	for _, p := range e.players {
		if p == nil || p.Status != StatusActive {
			continue
		}
		if p.CurrentBet != e.currentBet {
			return false
		}
	}
	return true
}

func (e *Engine) countLiveContenders() int {
	n := 0
	for _, p := range e.players {
		if p != nil && (p.Status == StatusActive || p.Status == StatusAllIn) {
			n++
		}
	}
	return n
}

func (e *Engine) closeRoundAndAdvance() {
	e.settleCurrentBetsIntoPot()
	for _, p := range e.players {
		if p != nil {
			p.CurrentBet = 0
		}
	}
	e.currentBet = 0
	e.minRaise = e.bigBlind
	e.bbOptionPending = false

	switch e.phase {
	case PhasePreflop:
		e.phase = PhaseFlop
		e.community = append(e.community, e.draw(), e.draw(), e.draw())
	case PhaseFlop:
		e.phase = PhaseTurn
		e.community = append(e.community, e.draw())
	case PhaseTurn:
		e.phase = PhaseRiver
		e.community = append(e.community, e.draw())
	case PhaseRiver:
		e.phase = PhaseShowdown
		e.resolveShowdown()
		return
	}

	seats := e.activeSeatOrder()
	if len(seats) == 0 {
		return
	}
	idx := indexOf(seats, e.dealerSeat)
	for i := 1; i <= len(seats); i++ {
		next := seats[(idx+i)%len(seats)]
		if e.players[next].Status == StatusActive {
			e.currentTurnSeat = next
			e.lastAggressorSeat = next
			return
		}
	}
	// everyone live is all-in: run it out.
	e.closeRoundAndAdvance()
}

func (e *Engine) settleCurrentBetsIntoPot() {
	var total int64
	for _, p := range e.players {
		if p != nil {
			total += p.CurrentBet
		}
	}
	if len(e.pots) == 0 {
		e.pots = []Pot{{ID: "main", EligibleSeats: map[int]bool{}}}
	}
	e.pots[0].Amount += total
}

// resolveShowdown computes side pots from each player's TotalInvested and
// awards each to the best eligible hand(s), splitting remainders
// clockwise from the dealer.
func (e *Engine) resolveShowdown() {
	e.settleCurrentBetsIntoPot()
	pots := e.computeSidePots()

	type scored struct {
		seat int
		hand *cards.EvaluatedHand
	}
	var contenders []scored
	for _, p := range e.players {
		if p == nil || p.Status == StatusFolded || p.Status == StatusBusted {
			continue
		}
		full := append(append([]cards.Card{}, p.HoleCards...), e.community...)
		contenders = append(contenders, scored{seat: p.SeatIndex, hand: e.evaluator.Best(full)})
	}

	for pi := range pots {
		pot := &pots[pi]
		var best []scored
		for _, c := range contenders {
			if !pot.EligibleSeats[c.seat] {
				continue
			}
			if len(best) == 0 {
				best = []scored{c}
				continue
			}
			cmp := e.evaluator.Compare(c.hand, best[0].hand)
			if cmp > 0 {
				best = []scored{c}
			} else if cmp == 0 {
				best = append(best, c)
			}
		}
		if len(best) == 0 {
			continue
		}
		share := pot.Amount / int64(len(best))
		remainder := pot.Amount % int64(len(best))
		clockwise := e.clockwiseFromDealer(best)
		for i, c := range clockwise {
			amount := share
			if int64(i) < remainder {
				amount++
			}
			e.players[c.seat].Chips += amount
			pot.WinnerSeats = append(pot.WinnerSeats, c.seat)
		}
	}
	e.pots = pots
	e.phase = PhaseHandComplete
	e.bustZeroChipPlayers()
}

func (e *Engine) clockwiseFromDealer(in []struct {
	seat int
	hand *cards.EvaluatedHand
}) []struct {
	seat int
	hand *cards.EvaluatedHand
} {
	sort.Slice(in, func(i, j int) bool {
		di := (in[i].seat - e.dealerSeat + maxSeats) % maxSeats
		dj := (in[j].seat - e.dealerSeat + maxSeats) % maxSeats
		return di < dj
	})
	return in
}

func (e *Engine) computeSidePots() []Pot {
	var committed []int64
	seatCommit := make(map[int]int64)
	for _, p := range e.players {
		if p != nil && p.Status != StatusFolded && p.Status != StatusBusted && p.TotalInvested > 0 {
			seatCommit[p.SeatIndex] = p.TotalInvested
		}
	}
	thresholds := make(map[int64]bool)
	for _, v := range seatCommit {
		thresholds[v] = true
	}
	for _, p := range e.players {
		if p != nil && p.Status == StatusFolded {
			thresholds[p.TotalInvested] = true
		}
	}
	var sorted []int64
	for t := range thresholds {
		if t > 0 {
			sorted = append(sorted, t)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var pots []Pot
	var prev int64
	for _, t := range sorted {
		count := int64(0)
		eligible := map[int]bool{}
		for _, p := range e.players {
			if p == nil || p.TotalInvested < t {
				continue
			}
			count++
			if p.Status != StatusFolded {
				eligible[p.SeatIndex] = true
			}
		}
		amount := (t - prev) * count
		if amount > 0 && len(eligible) > 0 {
			pots = append(pots, Pot{ID: "pot", Amount: amount, EligibleSeats: eligible})
		}
		prev = t
	}
	if len(pots) == 0 {
		eligible := map[int]bool{}
		for _, p := range e.players {
			if p != nil && p.Status != StatusFolded && p.Status != StatusBusted {
				eligible[p.SeatIndex] = true
			}
		}
		pots = append(pots, Pot{ID: "main", Amount: e.pots[0].Amount, EligibleSeats: eligible})
	}
	_ = committed
	return pots
}

func (e *Engine) bustZeroChipPlayers() {
	for _, p := range e.players {
		if p != nil && p.Chips <= 0 {
			p.Status = StatusBusted
		}
	}
}

func (e *Engine) AutoPlay(seatIndex int) error {
	p := e.players[seatIndex]
	if p == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	if p.CurrentBet == e.currentBet {
		return e.HandleAction(p.PlayerID, string(ActionCheck), nil)
	}
	return e.HandleAction(p.PlayerID, string(ActionFold), nil)
}

func (e *Engine) Eliminate(seatIndex int) error {
	p := e.players[seatIndex]
	if p == nil {
		return engine.NewRulesError("no player at seat %d", seatIndex)
	}
	p.Status = StatusBusted
	if seatIndex == e.currentTurnSeat {
		e.advanceAfterAction()
	}
	return nil
}

// ProjectFor renders the table from viewerPlayerID's perspective,
// masking opponents' hole cards except at showdown.
func (e *Engine) ProjectFor(viewerPlayerID string) engine.Projection {
	type playerView struct {
		SeatIndex  int           `json:"seatIndex"`
		PlayerID   string        `json:"playerId"`
		Chips      int64         `json:"chips"`
		CurrentBet int64         `json:"currentBet"`
		Status     string        `json:"status"`
		HoleCards  []cards.Card  `json:"holeCards,omitempty"`
	}
	statusName := func(s Status) string {
		switch s {
		case StatusFolded:
			return "folded"
		case StatusAllIn:
			return "all_in"
		case StatusSittingOut:
			return "sitting_out"
		case StatusBusted:
			return "busted"
		default:
			return "active"
		}
	}
	reveal := e.phase == PhaseShowdown || e.phase == PhaseHandComplete

	var views []playerView
	for _, p := range e.players {
		if p == nil {
			continue
		}
		v := playerView{
			SeatIndex:  p.SeatIndex,
			PlayerID:   p.PlayerID,
			Chips:      p.Chips,
			CurrentBet: p.CurrentBet,
			Status:     statusName(p.Status),
		}
		if p.PlayerID == viewerPlayerID || (reveal && p.Status != StatusFolded) {
			v.HoleCards = p.HoleCards
		}
		views = append(views, v)
	}

	state := map[string]any{
		"phase":           e.phase.String(),
		"dealerSeat":      e.dealerSeat,
		"currentTurnSeat": e.currentTurnSeat,
		"community":       e.community,
		"pots":            e.pots,
		"currentBet":      e.currentBet,
		"minRaise":        e.minRaise,
		"players":         views,
		"handNumber":      e.handNumber,
	}

	var actions []string
	if seat, p := e.findPlayer(viewerPlayerID); p != nil && seat == e.currentTurnSeat && p.Status == StatusActive {
		actions = []string{string(ActionFold), string(ActionAllIn)}
		if p.CurrentBet == e.currentBet {
			actions = append(actions, string(ActionCheck))
		} else {
			actions = append(actions, string(ActionCall))
		}
		if e.currentBet == 0 {
			actions = append(actions, string(ActionBet))
		} else {
			actions = append(actions, string(ActionRaise))
		}
	}

	return engine.Projection{State: state, AvailableActions: actions}
}

type snapshot struct {
	Players           []*Player    `json:"players"`
	DealerSeat        int          `json:"dealerSeat"`
	Phase             Phase        `json:"phase"`
	Deck              []cards.Card `json:"deck"`
	Community         []cards.Card `json:"community"`
	Pots              []Pot        `json:"pots"`
	CurrentBet        int64        `json:"currentBet"`
	MinRaise          int64        `json:"minRaise"`
	SmallBlind        int64        `json:"smallBlind"`
	BigBlind          int64        `json:"bigBlind"`
	CurrentTurnSeat   int          `json:"currentTurnSeat"`
	LastAggressorSeat int          `json:"lastAggressorSeat"`
	BBOptionPending   bool         `json:"bbOptionPending"`
	HandNumber        int          `json:"handNumber"`
	SeatCount         int          `json:"seatCount"`
}

func (e *Engine) Serialize() ([]byte, error) {
	s := snapshot{
		Players: e.players, DealerSeat: e.dealerSeat, Phase: e.phase,
		Deck: e.deck, Community: e.community, Pots: e.pots,
		CurrentBet: e.currentBet, MinRaise: e.minRaise,
		SmallBlind: e.smallBlind, BigBlind: e.bigBlind,
		CurrentTurnSeat: e.currentTurnSeat, LastAggressorSeat: e.lastAggressorSeat,
		BBOptionPending: e.bbOptionPending, HandNumber: e.handNumber, SeatCount: e.seatCount,
	}
	return json.Marshal(s)
}

func (e *Engine) Restore(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	e.players = s.Players
	e.dealerSeat = s.DealerSeat
	e.phase = s.Phase
	e.deck = s.Deck
	e.community = s.Community
	e.pots = s.Pots
	e.currentBet = s.CurrentBet
	e.minRaise = s.MinRaise
	e.smallBlind = s.SmallBlind
	e.bigBlind = s.BigBlind
	e.currentTurnSeat = s.CurrentTurnSeat
	e.lastAggressorSeat = s.LastAggressorSeat
	e.bbOptionPending = s.BBOptionPending
	e.handNumber = s.HandNumber
	e.seatCount = s.SeatCount
	if e.evaluator == nil {
		e.evaluator = cards.NewHandEvaluator()
	}
	return nil
}
