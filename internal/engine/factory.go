package engine

import "fmt"

// Builder constructs a fresh Engine instance for one room. Each
// variant package registers its Builder into the builders map below via
// Register; New dispatches through a closed switch over the known kinds
// before the map lookup, so a Kind outside that list is rejected and a
// known Kind whose package was not linked in reports a missing import
// (grounded on internal/game/rules.EngineRegistry's CreateEngine
// switch).
type Builder func(opts Options) (Engine, error)

// Options carries everything a variant constructor might need; unused
// fields are ignored by variants that don't need them.
type Options struct {
	RNG        Source
	SeedPlayer []Seat
}

// Source is re-declared here (identical to rng.Source) so this package
// never imports internal/rng, keeping the contract package dependency-free;
// callers pass their *rng.System or *rng.Fixed, both of which satisfy it.
type Source interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

var builders = map[Kind]Builder{}

// Register binds a Builder to a Kind. Variant packages call this from
// an init() func so importing internal/engine/poker etc. is enough to
// make that kind constructible.
func Register(kind Kind, b Builder) {
	if !kind.Valid() {
		panic(fmt.Sprintf("engine: Register called with unknown kind %q", kind))
	}
	builders[kind] = b
}

// New builds an Engine for kind, per the closed registration switch.
func New(kind Kind, opts Options) (Engine, error) {
	switch kind {
	case KindChess, KindPoker, KindLudo, KindSnakeLadder, KindMonopoly,
		KindTicTacToe, KindSudoku, Kind2048, KindMemory, KindCandy:
		b, ok := builders[kind]
		if !ok {
			return nil, fmt.Errorf("engine: kind %q not registered (missing import)", kind)
		}
		return b(opts)
	default:
		return nil, fmt.Errorf("engine: unknown kind %q", kind)
	}
}
