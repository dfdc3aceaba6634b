package chess

// Board is the 8x8 grid plus the en-passant target needed for legality.
type Board struct {
	Squares        [8][8]Square
	EnPassant      *Pos
}

func newStartingBoard() *Board {
	b := &Board{}
	backRank := []PieceKind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for f := 0; f < 8; f++ {
		b.Squares[f][0] = Square{Kind: backRank[f], Color: White}
		b.Squares[f][1] = Square{Kind: Pawn, Color: White}
		b.Squares[f][6] = Square{Kind: Pawn, Color: Black}
		b.Squares[f][7] = Square{Kind: backRank[f], Color: Black}
	}
	return b
}

func (b *Board) at(p Pos) Square { return b.Squares[p.File][p.Rank] }
func (b *Board) set(p Pos, s Square) { b.Squares[p.File][p.Rank] = s }

func (b *Board) clone() *Board {
	cp := &Board{Squares: b.Squares}
	if b.EnPassant != nil {
		ep := *b.EnPassant
		cp.EnPassant = &ep
	}
	return cp
}

var knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
var kingOffsets = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
var bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
var rookDirs = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// pseudoLegalMoves generates all moves for color ignoring self-check,
// except that castling is only offered when skipCastling is false (it
// is true when this is called from an attack query, to avoid
// king-moves -> attack-check -> king-moves recursion).
func (b *Board) pseudoLegalMoves(color Color, skipCastling bool) []Move {
	var moves []Move
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := b.Squares[f][r]
			if sq.Empty() || sq.Color != color {
				continue
			}
			from := Pos{f, r}
			switch sq.Kind {
			case Pawn:
				moves = append(moves, b.pawnMoves(from, color)...)
			case Knight:
				moves = append(moves, b.jumpMoves(from, color, knightOffsets[:])...)
			case King:
				moves = append(moves, b.jumpMoves(from, color, kingOffsets[:])...)
				if !skipCastling {
					moves = append(moves, b.castlingMoves(from, color)...)
				}
			case Bishop:
				moves = append(moves, b.slideMoves(from, color, bishopDirs[:])...)
			case Rook:
				moves = append(moves, b.slideMoves(from, color, rookDirs[:])...)
			case Queen:
				moves = append(moves, b.slideMoves(from, color, bishopDirs[:])...)
				moves = append(moves, b.slideMoves(from, color, rookDirs[:])...)
			}
		}
	}
	return moves
}

func (b *Board) pawnMoves(from Pos, color Color) []Move {
	var moves []Move
	dir := 1
	startRank := 1
	promoRank := 7
	if color == Black {
		dir = -1
		startRank = 6
		promoRank = 0
	}
	forward := Pos{from.File, from.Rank + dir}
	if forward.Valid() && b.at(forward).Empty() {
		moves = append(moves, withPromotions(from, forward, promoRank)...)
		if from.Rank == startRank {
			dbl := Pos{from.File, from.Rank + 2*dir}
			if b.at(dbl).Empty() {
				moves = append(moves, Move{From: from, To: dbl})
			}
		}
	}
	for _, df := range []int{-1, 1} {
		cap := Pos{from.File + df, from.Rank + dir}
		if !cap.Valid() {
			continue
		}
		target := b.at(cap)
		if !target.Empty() && target.Color != color {
			moves = append(moves, withPromotions(from, cap, promoRank)...)
		} else if b.EnPassant != nil && *b.EnPassant == cap {
			moves = append(moves, Move{From: from, To: cap})
		}
	}
	return moves
}

func withPromotions(from, to Pos, promoRank int) []Move {
	if to.Rank == promoRank {
		return []Move{
			{From: from, To: to, Promotion: Queen},
			{From: from, To: to, Promotion: Rook},
			{From: from, To: to, Promotion: Bishop},
			{From: from, To: to, Promotion: Knight},
		}
	}
	return []Move{{From: from, To: to}}
}

func (b *Board) jumpMoves(from Pos, color Color, offsets [][2]int) []Move {
	var moves []Move
	for _, o := range offsets {
		to := Pos{from.File + o[0], from.Rank + o[1]}
		if !to.Valid() {
			continue
		}
		target := b.at(to)
		if target.Empty() || target.Color != color {
			moves = append(moves, Move{From: from, To: to})
		}
	}
	return moves
}

func (b *Board) slideMoves(from Pos, color Color, dirs [4][2]int) []Move {
	var moves []Move
	for _, d := range dirs {
		to := Pos{from.File + d[0], from.Rank + d[1]}
		for to.Valid() {
			target := b.at(to)
			if target.Empty() {
				moves = append(moves, Move{From: from, To: to})
			} else {
				if target.Color != color {
					moves = append(moves, Move{From: from, To: to})
				}
				break
			}
			to = Pos{to.File + d[0], to.Rank + d[1]}
		}
	}
	return moves
}

func (b *Board) castlingMoves(kingFrom Pos, color Color) []Move {
	var moves []Move
	rank := 0
	if color == Black {
		rank = 7
	}
	king := b.at(kingFrom)
	if king.Kind != King || king.HasMoved {
		return nil
	}
	if b.attacksSquare(color.Opponent(), kingFrom) {
		return nil
	}
	// kingside
	if rookSq := (Pos{7, rank}); b.at(rookSq).Kind == Rook && !b.at(rookSq).HasMoved {
		if b.at(Pos{5, rank}).Empty() && b.at(Pos{6, rank}).Empty() {
			if !b.attacksSquare(color.Opponent(), Pos{5, rank}) && !b.attacksSquare(color.Opponent(), Pos{6, rank}) {
				moves = append(moves, Move{From: kingFrom, To: Pos{6, rank}})
			}
		}
	}
	// queenside
	if rookSq := (Pos{0, rank}); b.at(rookSq).Kind == Rook && !b.at(rookSq).HasMoved {
		if b.at(Pos{1, rank}).Empty() && b.at(Pos{2, rank}).Empty() && b.at(Pos{3, rank}).Empty() {
			if !b.attacksSquare(color.Opponent(), Pos{3, rank}) && !b.attacksSquare(color.Opponent(), Pos{2, rank}) {
				moves = append(moves, Move{From: kingFrom, To: Pos{2, rank}})
			}
		}
	}
	return moves
}

// attacksSquare reports whether color attacks target, using
// skipCastling=true to avoid recursing into castling legality checks.
func (b *Board) attacksSquare(color Color, target Pos) bool {
	for _, m := range b.pseudoLegalMoves(color, true) {
		if m.To == target {
			return true
		}
	}
	return false
}

func (b *Board) kingPos(color Color) (Pos, bool) {
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := b.Squares[f][r]
			if sq.Kind == King && sq.Color == color {
				return Pos{f, r}, true
			}
		}
	}
	return Pos{}, false
}

func (b *Board) inCheck(color Color) bool {
	king, ok := b.kingPos(color)
	if !ok {
		return false
	}
	return b.attacksSquare(color.Opponent(), king)
}

// apply executes m on a clone of b, updating hasMoved, en-passant
// target, and castling-rook movement side effects, and returns the
// resulting board without mutating b.
func (b *Board) apply(m Move, color Color) *Board {
	nb := b.clone()
	moving := nb.at(m.From)
	nb.EnPassant = nil

	isEnPassantCapture := moving.Kind == Pawn && m.From.File != m.To.File && nb.at(m.To).Empty()
	if isEnPassantCapture {
		capturedRank := m.From.Rank
		nb.set(Pos{m.To.File, capturedRank}, Square{})
	}

	if moving.Kind == King && abs(m.To.File-m.From.File) == 2 {
		rank := m.From.Rank
		if m.To.File == 6 {
			rookFrom, rookTo := Pos{7, rank}, Pos{5, rank}
			rook := nb.at(rookFrom)
			rook.HasMoved = true
			nb.set(rookTo, rook)
			nb.set(rookFrom, Square{})
		} else if m.To.File == 2 {
			rookFrom, rookTo := Pos{0, rank}, Pos{3, rank}
			rook := nb.at(rookFrom)
			rook.HasMoved = true
			nb.set(rookTo, rook)
			nb.set(rookFrom, Square{})
		}
	}

	if moving.Kind == Pawn && abs(m.To.Rank-m.From.Rank) == 2 {
		ep := Pos{m.From.File, (m.From.Rank + m.To.Rank) / 2}
		nb.EnPassant = &ep
	}

	if m.Promotion != None {
		moving.Kind = m.Promotion
	}
	moving.HasMoved = true
	nb.set(m.To, moving)
	nb.set(m.From, Square{})
	return nb
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// legalMoves filters pseudoLegalMoves by applying each and rejecting
// ones that leave color's own king in check.
func (b *Board) legalMoves(color Color) []Move {
	var out []Move
	for _, m := range b.pseudoLegalMoves(color, false) {
		candidate := b.apply(m, color)
		if !candidate.inCheck(color) {
			out = append(out, m)
		}
	}
	return out
}

func (b *Board) isCapture(m Move) bool {
	target := b.at(m.To)
	return !target.Empty() || (b.at(m.From).Kind == Pawn && m.From.File != m.To.File)
}

func (b *Board) insufficientMaterial() bool {
	var minorCount, otherCount int
	var minors []PieceKind
	for f := 0; f < 8; f++ {
		for r := 0; r < 8; r++ {
			sq := b.Squares[f][r]
			if sq.Kind == None || sq.Kind == King {
				continue
			}
			if sq.Kind == Bishop || sq.Kind == Knight {
				minorCount++
				minors = append(minors, sq.Kind)
			} else {
				otherCount++
			}
		}
	}
	if otherCount > 0 {
		return false
	}
	return minorCount <= 1
}
