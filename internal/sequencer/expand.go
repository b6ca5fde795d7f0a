package sequencer

import (
	"github.com/cbegin/rhythmbar-go/internal/catalog"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
)

// EventSpec is one sub-event positioned on the tick axis.
type EventSpec struct {
	TickOffset int
	Rest       bool
	SubBeats   float64
}

// Expand flattens a timeline into sub-events ordered by placement and then
// by sub-event. Offsets are non-decreasing. Placements whose symbol is no
// longer in the catalog are skipped.
func Expand(tl *timeline.Timeline, ticksPerBeat int) []EventSpec {
	placements := tl.Placements()
	out := make([]EventSpec, 0, len(placements)*2)
	for _, p := range placements {
		sym, ok := tl.Symbol(p)
		if !ok {
			continue
		}
		cursor := p.StartTick
		for _, ev := range sym.SubEvents {
			out = append(out, EventSpec{
				TickOffset: cursor,
				Rest:       ev.Rest,
				SubBeats:   ev.Beats,
			})
			cursor += catalog.BeatsToTicks(ev.Beats, ticksPerBeat)
		}
	}
	return out
}
