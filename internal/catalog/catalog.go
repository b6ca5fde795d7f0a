package catalog

import (
	"math"

	"github.com/pkg/errors"
)

// ErrInvalidSymbol is returned by New when a symbol definition cannot be placed.
var ErrInvalidSymbol = errors.New("invalid symbol")

// SubEvent is one timed trigger inside a symbol. Beats is a duration in
// quarter-note beats and must be positive.
type SubEvent struct {
	Beats float64
	Rest  bool
}

// Symbol is a placeable catalog entry. Glyph is opaque to the core and is
// only used by the UI to pick an icon.
type Symbol struct {
	ID        string
	Name      string
	Glyph     string
	SubEvents []SubEvent
}

// Beats returns the total duration of the symbol in beats.
func (s Symbol) Beats() float64 {
	var sum float64
	for _, ev := range s.SubEvents {
		sum += ev.Beats
	}
	return sum
}

// TicksForSymbol is the single source of truth for how many ticks a symbol
// occupies on a timeline with the given resolution.
func TicksForSymbol(s Symbol, ticksPerBeat int) int {
	return int(math.Round(s.Beats() * float64(ticksPerBeat)))
}

// BeatsToTicks converts a single sub-event duration to ticks.
func BeatsToTicks(beats float64, ticksPerBeat int) int {
	return int(math.Round(beats * float64(ticksPerBeat)))
}

// Catalog is an immutable, ordered symbol table.
type Catalog struct {
	symbols []Symbol
	byID    map[string]int
}

// New validates and indexes symbols. Order is preserved for display.
func New(symbols ...Symbol) (*Catalog, error) {
	c := &Catalog{
		symbols: make([]Symbol, 0, len(symbols)),
		byID:    make(map[string]int, len(symbols)),
	}
	for _, s := range symbols {
		if s.ID == "" {
			return nil, errors.Wrap(ErrInvalidSymbol, "empty id")
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, errors.Wrapf(ErrInvalidSymbol, "duplicate id %q", s.ID)
		}
		if len(s.SubEvents) == 0 {
			return nil, errors.Wrapf(ErrInvalidSymbol, "symbol %q has no events", s.ID)
		}
		for i, ev := range s.SubEvents {
			if !(ev.Beats > 0) || math.IsInf(ev.Beats, 0) {
				return nil, errors.Wrapf(ErrInvalidSymbol, "symbol %q event %d: beats must be positive, got %v", s.ID, i, ev.Beats)
			}
		}
		// Copy sub-events so callers cannot mutate the catalog afterwards.
		s.SubEvents = append([]SubEvent(nil), s.SubEvents...)
		c.byID[s.ID] = len(c.symbols)
		c.symbols = append(c.symbols, s)
	}
	return c, nil
}

// Lookup returns the symbol with the given id.
func (c *Catalog) Lookup(id string) (Symbol, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return c.symbols[idx], true
}

// Symbols returns all symbols in declaration order.
func (c *Catalog) Symbols() []Symbol {
	return append([]Symbol(nil), c.symbols...)
}

func (c *Catalog) Len() int { return len(c.symbols) }

// Default returns the built-in card set: five note lengths, two beamed
// pairs and two rests.
func Default() *Catalog {
	c, err := New(defaultSymbols()...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultSymbols() []Symbol {
	note := func(beats float64) SubEvent { return SubEvent{Beats: beats} }
	rest := func(beats float64) SubEvent { return SubEvent{Beats: beats, Rest: true} }
	return []Symbol{
		{ID: "w", Name: "whole", Glyph: "whole-note", SubEvents: []SubEvent{note(4)}},
		{ID: "h", Name: "half", Glyph: "half-note", SubEvents: []SubEvent{note(2)}},
		{ID: "q", Name: "quarter", Glyph: "quarter-note", SubEvents: []SubEvent{note(1)}},
		{ID: "e", Name: "eighth", Glyph: "eighth-note", SubEvents: []SubEvent{note(0.5)}},
		{ID: "e2", Name: "eighth x2", Glyph: "eighth-pair", SubEvents: []SubEvent{note(0.5), note(0.5)}},
		{ID: "s", Name: "sixteenth", Glyph: "sixteenth-note", SubEvents: []SubEvent{note(0.25)}},
		{ID: "s2", Name: "sixteenth x2", Glyph: "sixteenth-pair", SubEvents: []SubEvent{note(0.25), note(0.25)}},
		{ID: "rq", Name: "quarter rest", Glyph: "quarter-rest", SubEvents: []SubEvent{rest(1)}},
		{ID: "re", Name: "eighth rest", Glyph: "eighth-rest", SubEvents: []SubEvent{rest(0.5)}},
	}
}
