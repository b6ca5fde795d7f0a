package sequencer

import (
	"testing"

	"github.com/cbegin/rhythmbar-go/internal/catalog"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
)

func BenchmarkExpandAndSchedule(b *testing.B) {
	tl := timeline.New(catalog.Default(), 16, 4)
	for _, id := range []string{"s2", "s2", "e2", "re", "s", "s", "q"} {
		if _, err := tl.Append(id); err != nil {
			b.Fatalf("append %s: %v", id, err)
		}
	}
	eng := &recordingEngine{}
	s := NewScheduler(eng, DefaultTiming(), Options{Logger: quietLogger()})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		eng.triggers = eng.triggers[:0]
		s.Schedule(Expand(tl, 4))
	}
}
