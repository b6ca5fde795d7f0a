package sequencer

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBPM       = 70
	DefaultLookahead = 0.06 // seconds between the schedule call and the first trigger

	restGateBeats = 0.25  // sixteenth
	noteGateBeats = 0.125 // thirty-second
)

// Timing fixes the tempo grid for one playback pass.
type Timing struct {
	BPM          float64
	TicksPerBeat int
	Lookahead    float64
}

func DefaultTiming() Timing {
	return Timing{BPM: DefaultBPM, TicksPerBeat: 4, Lookahead: DefaultLookahead}
}

// TickDuration returns the length of one tick in seconds.
func (t Timing) TickDuration() float64 {
	return (60.0 / t.BPM) / float64(t.TicksPerBeat)
}

// TickInterval is TickDuration as a time.Duration, for frame clocks.
func (t Timing) TickInterval() time.Duration {
	return time.Duration(t.TickDuration() * float64(time.Second))
}

// BeatsToSeconds converts a beat count at this tempo.
func (t Timing) BeatsToSeconds(beats float64) float64 {
	return beats * 60.0 / t.BPM
}

// ScheduledEvent is an EventSpec resolved to engine time.
type ScheduledEvent struct {
	TickOffset int
	At         float64
	Rest       bool
	SubBeats   float64
}

// Batch reports what one Schedule call did.
type Batch struct {
	StartAt   float64
	Events    []ScheduledEvent
	Submitted int
	Skipped   int
}

type Options struct {
	// DisableNoiseLayer drops the noise transient normally layered on notes.
	DisableNoiseLayer bool
	Logger            logrus.FieldLogger
}

// Scheduler resolves expanded events against the engine clock and submits
// the whole pass in one batch. It holds no per-pass state.
type Scheduler struct {
	engine     SoundEngine
	timing     Timing
	noiseLayer bool
	log        logrus.FieldLogger
}

func NewScheduler(engine SoundEngine, timing Timing, opts Options) *Scheduler {
	if timing.BPM <= 0 {
		timing.BPM = DefaultBPM
	}
	if timing.TicksPerBeat <= 0 {
		timing.TicksPerBeat = 4
	}
	if timing.Lookahead < 0 {
		timing.Lookahead = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Scheduler{
		engine:     engine,
		timing:     timing,
		noiseLayer: !opts.DisableNoiseLayer,
		log:        logger,
	}
}

func (s *Scheduler) Timing() Timing { return s.timing }

// Triggers maps one event to the sound requests it produces.
func (s *Scheduler) Triggers(ev ScheduledEvent) []Trigger {
	if ev.Rest {
		return []Trigger{{
			Voice:    VoiceRest,
			Key:      KeyC2,
			Duration: s.timing.BeatsToSeconds(restGateBeats),
			At:       ev.At,
		}}
	}
	gate := s.timing.BeatsToSeconds(noteGateBeats)
	out := []Trigger{{Voice: VoiceNote, Key: KeyC1, Duration: gate, At: ev.At}}
	if s.noiseLayer {
		out = append(out, Trigger{Voice: VoiceNoise, Duration: gate, At: ev.At})
	}
	return out
}

// Schedule anchors the pass at engine.Now()+Lookahead and submits every
// trigger. Triggers are skipped, not failed, when the engine is locked.
func (s *Scheduler) Schedule(events []EventSpec) Batch {
	startAt := s.engine.Now() + s.timing.Lookahead
	tick := s.timing.TickDuration()
	batch := Batch{
		StartAt: startAt,
		Events:  make([]ScheduledEvent, 0, len(events)),
	}
	ready := s.engine.Ready()
	for _, spec := range events {
		ev := ScheduledEvent{
			TickOffset: spec.TickOffset,
			At:         startAt + float64(spec.TickOffset)*tick,
			Rest:       spec.Rest,
			SubBeats:   spec.SubBeats,
		}
		batch.Events = append(batch.Events, ev)
		for _, tr := range s.Triggers(ev) {
			if !ready {
				batch.Skipped++
				continue
			}
			if err := s.engine.ScheduleTrigger(tr); err != nil {
				batch.Skipped++
				s.log.WithError(err).WithFields(logrus.Fields{
					"voice": tr.Voice.String(),
					"at":    tr.At,
				}).Debug("trigger skipped")
				continue
			}
			batch.Submitted++
		}
	}
	if !ready && batch.Skipped > 0 {
		s.log.WithField("skipped", batch.Skipped).Debug("sound engine locked; playing silently")
	}
	s.log.WithFields(logrus.Fields{
		"events":    len(batch.Events),
		"submitted": batch.Submitted,
		"start_at":  startAt,
	}).Debug("scheduled pass")
	return batch
}
