package timeline

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/pkg/errors"

	"github.com/cbegin/rhythmbar-go/internal/catalog"
)

func newTestTimeline() *Timeline {
	n := 0
	return New(catalog.Default(), DefaultTotalTicks, DefaultTicksPerBeat, WithIDGenerator(func() string {
		n++
		return "p" + strconv.Itoa(n)
	}))
}

func assertPacked(t *testing.T, tl *Timeline) {
	t.Helper()
	sum := 0
	for i, p := range tl.Placements() {
		if p.StartTick != sum {
			t.Fatalf("placement %d starts at %d, want %d", i, p.StartTick, sum)
		}
		if p.LengthTicks <= 0 {
			t.Fatalf("placement %d has length %d", i, p.LengthTicks)
		}
		sum += p.LengthTicks
	}
	if sum != tl.UsedTicks() {
		t.Fatalf("used ticks = %d, sum of lengths = %d", tl.UsedTicks(), sum)
	}
	if tl.UsedTicks() > tl.TotalTicks() {
		t.Fatalf("used %d exceeds capacity %d", tl.UsedTicks(), tl.TotalTicks())
	}
	if tl.RemainingTicks() != tl.TotalTicks()-tl.UsedTicks() {
		t.Fatalf("remaining mismatch")
	}
}

func TestAppendPacksFromZero(t *testing.T) {
	tl := newTestTimeline()
	for _, id := range []string{"q", "e", "s2"} {
		if _, err := tl.Append(id); err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}
	got := tl.Placements()
	wantStart := []int{0, 4, 6}
	wantLen := []int{4, 2, 2}
	for i, p := range got {
		if p.StartTick != wantStart[i] || p.LengthTicks != wantLen[i] {
			t.Fatalf("placement %d = %+v", i, p)
		}
	}
	if tl.UsedTicks() != 8 || tl.RemainingTicks() != 8 {
		t.Fatalf("used=%d remaining=%d", tl.UsedTicks(), tl.RemainingTicks())
	}
}

func TestFullBarRejectsFurtherAppend(t *testing.T) {
	tl := newTestTimeline()
	for i := 0; i < 4; i++ {
		if _, err := tl.Append("q"); err != nil {
			t.Fatalf("append quarter %d: %v", i, err)
		}
	}
	if tl.RemainingTicks() != 0 {
		t.Fatalf("remaining = %d, want 0", tl.RemainingTicks())
	}
	before := tl.Placements()
	for _, sym := range catalog.Default().Symbols() {
		if tl.CanAppend(sym.ID) {
			t.Fatalf("CanAppend(%s) on full bar", sym.ID)
		}
		_, err := tl.Append(sym.ID)
		if errors.Cause(err) != ErrCapacity {
			t.Fatalf("append %s on full bar: got %v, want ErrCapacity", sym.ID, err)
		}
	}
	after := tl.Placements()
	if len(after) != len(before) {
		t.Fatalf("rejected append mutated timeline")
	}
}

func TestAppendRejectsOverflowWithoutMutation(t *testing.T) {
	tl := newTestTimeline()
	if _, err := tl.Append("h"); err != nil {
		t.Fatalf("append half: %v", err)
	}
	if _, err := tl.Append("q"); err != nil {
		t.Fatalf("append quarter: %v", err)
	}
	if tl.CanAppend("h") {
		t.Fatalf("half should not fit in 4 remaining ticks")
	}
	if _, err := tl.Append("h"); errors.Cause(err) != ErrCapacity {
		t.Fatalf("expected ErrCapacity, got %v", err)
	}
	if tl.UsedTicks() != 12 || tl.Len() != 2 {
		t.Fatalf("state changed after rejection: used=%d len=%d", tl.UsedTicks(), tl.Len())
	}
	if !tl.CanAppend("q") {
		t.Fatalf("quarter should still fit")
	}
}

func TestAppendUnknownSymbol(t *testing.T) {
	tl := newTestTimeline()
	if _, err := tl.Append("zz"); errors.Cause(err) != ErrUnknownSymbol {
		t.Fatalf("expected ErrUnknownSymbol, got %v", err)
	}
	if tl.CanAppend("zz") {
		t.Fatalf("CanAppend unknown symbol")
	}
}

func TestRemoveRepacksFollowingPlacements(t *testing.T) {
	tl := newTestTimeline()
	a, _ := tl.Append("q")
	b, _ := tl.Append("e")
	c, _ := tl.Append("re")
	if err := tl.Remove(b.InstanceID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := tl.Placements()
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].InstanceID != a.InstanceID || got[0].StartTick != 0 || got[0].LengthTicks != 4 {
		t.Fatalf("A = %+v", got[0])
	}
	if got[1].InstanceID != c.InstanceID || got[1].StartTick != 4 || got[1].LengthTicks != 2 {
		t.Fatalf("C = %+v", got[1])
	}
	if tl.UsedTicks() != 6 {
		t.Fatalf("used = %d, want 6", tl.UsedTicks())
	}
}

func TestRemoveStaleIDIsNoop(t *testing.T) {
	tl := newTestTimeline()
	a, _ := tl.Append("q")
	tl.Append("e")
	if err := tl.Remove(a.InstanceID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	// A duplicate tap on the same block.
	if err := tl.Remove(a.InstanceID); errors.Cause(err) != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	assertPacked(t, tl)
	if tl.Len() != 1 || tl.UsedTicks() != 2 {
		t.Fatalf("len=%d used=%d", tl.Len(), tl.UsedTicks())
	}
}

func TestClearIsIdempotent(t *testing.T) {
	tl := newTestTimeline()
	tl.Append("w")
	tl.Clear()
	if !tl.Empty() || tl.UsedTicks() != 0 || tl.RemainingTicks() != 16 {
		t.Fatalf("clear left state behind")
	}
	tl.Clear()
	if !tl.Empty() || tl.UsedTicks() != 0 || tl.RemainingTicks() != 16 {
		t.Fatalf("second clear changed state")
	}
	if _, err := tl.Append("w"); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
}

func TestPlacementsReturnsCopy(t *testing.T) {
	tl := newTestTimeline()
	tl.Append("q")
	ps := tl.Placements()
	ps[0].StartTick = 9
	if tl.Placements()[0].StartTick != 0 {
		t.Fatalf("caller mutated timeline through Placements")
	}
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	syms := catalog.Default().Symbols()
	tl := newTestTimeline()
	for step := 0; step < 2000; step++ {
		switch rng.Intn(5) {
		case 0, 1, 2:
			id := syms[rng.Intn(len(syms))].ID
			fits := tl.CanAppend(id)
			_, err := tl.Append(id)
			if fits != (err == nil) {
				t.Fatalf("step %d: CanAppend(%s)=%v but Append err=%v", step, id, fits, err)
			}
		case 3:
			ps := tl.Placements()
			if len(ps) > 0 {
				if err := tl.Remove(ps[rng.Intn(len(ps))].InstanceID); err != nil {
					t.Fatalf("step %d: remove: %v", step, err)
				}
			} else if err := tl.Remove("missing"); errors.Cause(err) != ErrNotFound {
				t.Fatalf("step %d: expected ErrNotFound", step)
			}
		case 4:
			if rng.Intn(10) == 0 {
				tl.Clear()
			}
		}
		assertPacked(t, tl)
	}
}

func TestSlotModeOneTickCards(t *testing.T) {
	cat, err := catalog.New(
		catalog.Symbol{ID: "n", SubEvents: []catalog.SubEvent{{Beats: 1}}},
		catalog.Symbol{ID: "r", SubEvents: []catalog.SubEvent{{Beats: 1, Rest: true}}},
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	tl := New(cat, 4, 1)
	for i := 0; i < 4; i++ {
		if _, err := tl.Append("n"); err != nil {
			t.Fatalf("slot %d: %v", i, err)
		}
	}
	if _, err := tl.Append("r"); errors.Cause(err) != ErrCapacity {
		t.Fatalf("fifth slot should be rejected, got %v", err)
	}
}

func TestDefaultUUIDInstanceIDsAreUnique(t *testing.T) {
	tl := New(catalog.Default(), 0, 0)
	if tl.TotalTicks() != DefaultTotalTicks || tl.TicksPerBeat() != DefaultTicksPerBeat {
		t.Fatalf("defaults not applied")
	}
	seen := map[string]bool{}
	for i := 0; i < 16; i++ {
		p, err := tl.Append("s")
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if p.InstanceID == "" || seen[p.InstanceID] {
			t.Fatalf("instance id %q not unique", p.InstanceID)
		}
		seen[p.InstanceID] = true
	}
}
