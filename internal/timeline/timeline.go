package timeline

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/cbegin/rhythmbar-go/internal/catalog"
)

const (
	DefaultTotalTicks   = 16 // one 4/4 bar at sixteenth resolution
	DefaultTicksPerBeat = 4
)

var (
	ErrCapacity      = errors.New("timeline: not enough room in the bar")
	ErrNotFound      = errors.New("timeline: placement not found")
	ErrUnknownSymbol = errors.New("timeline: unknown symbol")
)

// Placement is one symbol instance occupying [StartTick, StartTick+LengthTicks).
type Placement struct {
	InstanceID  string
	SymbolID    string
	StartTick   int
	LengthTicks int
}

func (p Placement) EndTick() int { return p.StartTick + p.LengthTicks }

// Timeline keeps placements packed from tick 0 with no gaps. It is not safe
// for concurrent use; callers drive it from a single goroutine.
type Timeline struct {
	catalog      *catalog.Catalog
	totalTicks   int
	ticksPerBeat int
	items        []Placement
	used         int
	newID        func() string
}

// Option customizes a Timeline.
type Option func(*Timeline)

// WithIDGenerator replaces the uuid-based instance id source.
func WithIDGenerator(fn func() string) Option {
	return func(t *Timeline) {
		t.newID = fn
	}
}

// New creates an empty timeline. Non-positive sizes fall back to the defaults.
func New(cat *catalog.Catalog, totalTicks, ticksPerBeat int, opts ...Option) *Timeline {
	if totalTicks <= 0 {
		totalTicks = DefaultTotalTicks
	}
	if ticksPerBeat <= 0 {
		ticksPerBeat = DefaultTicksPerBeat
	}
	t := &Timeline{
		catalog:      cat,
		totalTicks:   totalTicks,
		ticksPerBeat: ticksPerBeat,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Timeline) Catalog() *catalog.Catalog { return t.catalog }
func (t *Timeline) TotalTicks() int            { return t.totalTicks }
func (t *Timeline) TicksPerBeat() int          { return t.ticksPerBeat }
func (t *Timeline) UsedTicks() int             { return t.used }
func (t *Timeline) RemainingTicks() int        { return t.totalTicks - t.used }
func (t *Timeline) Len() int                   { return len(t.items) }
func (t *Timeline) Empty() bool                { return len(t.items) == 0 }

// Placements returns a copy of the placements in timeline order.
func (t *Timeline) Placements() []Placement {
	return append([]Placement(nil), t.items...)
}

// Symbol resolves the catalog entry behind a placement.
func (t *Timeline) Symbol(p Placement) (catalog.Symbol, bool) {
	return t.catalog.Lookup(p.SymbolID)
}

// Cost returns how many ticks appending symbolID would consume.
func (t *Timeline) Cost(symbolID string) (int, error) {
	s, ok := t.catalog.Lookup(symbolID)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownSymbol, "%q", symbolID)
	}
	return catalog.TicksForSymbol(s, t.ticksPerBeat), nil
}

// CanAppend reports whether symbolID still fits. UIs use it to disable cards.
func (t *Timeline) CanAppend(symbolID string) bool {
	n, err := t.Cost(symbolID)
	if err != nil || n <= 0 {
		return false
	}
	return t.used+n <= t.totalTicks
}

// Append places symbolID at the end of the packed sequence. On rejection the
// timeline is left untouched.
func (t *Timeline) Append(symbolID string) (Placement, error) {
	n, err := t.Cost(symbolID)
	if err != nil {
		return Placement{}, err
	}
	if n <= 0 {
		// Sub-tick symbols would break the positive-length invariant.
		return Placement{}, errors.Wrapf(ErrCapacity, "%q rounds to zero ticks", symbolID)
	}
	if t.used+n > t.totalTicks {
		return Placement{}, errors.Wrapf(ErrCapacity, "%q needs %d ticks, %d remaining", symbolID, n, t.RemainingTicks())
	}
	p := Placement{
		InstanceID:  t.newID(),
		SymbolID:    symbolID,
		StartTick:   t.used,
		LengthTicks: n,
	}
	t.items = append(t.items, p)
	t.used += n
	return p, nil
}

// Remove deletes a placement and shifts every later placement left to close
// the gap.
func (t *Timeline) Remove(instanceID string) error {
	idx := -1
	for i := range t.items {
		if t.items[i].InstanceID == instanceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return errors.Wrapf(ErrNotFound, "%q", instanceID)
	}
	t.items = append(t.items[:idx], t.items[idx+1:]...)
	t.repack()
	return nil
}

// Clear empties the timeline.
func (t *Timeline) Clear() {
	t.items = nil
	t.used = 0
}

func (t *Timeline) repack() {
	tick := 0
	for i := range t.items {
		t.items[i].StartTick = tick
		tick += t.items[i].LengthTicks
	}
	t.used = tick
}
