// Package chess implements full legal-move chess: pseudo-legal
// generation per piece kind, self-check filtering via a
// skipCastling-parameterized attack query, castling/en-passant/
// promotion, and checkmate/stalemate/draw classification. Grounded on
// the teacher's layered rules-engine shape (internal/game/rules) for
// how phase/action enums and a ValidateAction/ProcessAction pair are
// organized, though the teacher has no chess code of its own.
package chess

import (
	"lobby-platform/internal/engine"
)

func init() {
	engine.Register(engine.KindChess, func(opts engine.Options) (engine.Engine, error) {
		return New(), nil
	})
}

// PieceKind identifies a chess piece type.
type PieceKind int8

const (
	None PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Color is one of the two sides.
type Color int8

const (
	White Color = iota
	Black
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// Square is a piece occupying a board cell, or the empty value.
type Square struct {
	Kind     PieceKind
	Color    Color
	HasMoved bool
}

func (s Square) Empty() bool { return s.Kind == None }

// Pos is a board coordinate, File/Rank both 0-7 (a1 = {0,0}).
type Pos struct {
	File, Rank int
}

func (p Pos) Valid() bool { return p.File >= 0 && p.File < 8 && p.Rank >= 0 && p.Rank < 8 }

// ClockKind selects the optional chess-clock variant.
type ClockKind string

const (
	ClockNone   ClockKind = "unlimited"
	ClockFixed  ClockKind = "delay"
	ClockFisher ClockKind = "fischer"
)

// Clock is the optional per-side chess clock.
type Clock struct {
	Kind              ClockKind
	InitialMs         int64
	IncrementMs       int64
	WhiteRemainingMs  int64
	BlackRemainingMs  int64
	LastMoveEpochMs   int64
}

// Result classifies how a terminal game ended.
type Result string

const (
	ResultNone             Result = ""
	ResultWhiteCheckmate   Result = "white-wins-checkmate"
	ResultBlackCheckmate   Result = "black-wins-checkmate"
	ResultStalemate        Result = "draw-stalemate"
	ResultFiftyMove        Result = "draw-fifty-move"
	ResultInsufficient     Result = "draw-insufficient-material"
	ResultWhiteResigned    Result = "black-wins-resignation"
	ResultBlackResigned    Result = "white-wins-resignation"
	ResultDrawAgreed       Result = "draw-agreed"
	ResultWhiteTimeout     Result = "black-wins-timeout"
	ResultBlackTimeout     Result = "white-wins-timeout"
)

// Move is one applied or candidate move.
type Move struct {
	From, To  Pos
	Promotion PieceKind
}

const (
	minSeats = 2
	maxSeats = 2
)
