// Package transport coordinates start, stop and clear across the timeline,
// the audio scheduler and the playhead.
package transport

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbegin/rhythmbar-go/internal/playhead"
	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
)

type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// DefaultUnlockTimeout bounds how long Start waits for the sound engine.
const DefaultUnlockTimeout = 500 * time.Millisecond

// Snapshot is the playback session state observed by listeners.
type Snapshot struct {
	State      State
	Tick       int
	TotalTicks int
}

func (s Snapshot) Playing() bool { return s.State == Playing }

type Options struct {
	Timing            sequencer.Timing
	FallbackGrace     time.Duration
	UnlockTimeout     time.Duration
	DisableNoiseLayer bool
	Logger            logrus.FieldLogger
}

// Transport owns the playback session. All methods must be called from the
// goroutine that runs the frame loop.
type Transport struct {
	tl        *timeline.Timeline
	engine    sequencer.SoundEngine
	scheduler *sequencer.Scheduler
	reg       registry
	opts      Options
	log       logrus.FieldLogger

	state     State
	tick      int
	session   uint64
	head      *playhead.Playhead
	lastBatch sequencer.Batch
	listeners []func(Snapshot)
}

func New(tl *timeline.Timeline, engine sequencer.SoundEngine, loop Loop, opts Options) *Transport {
	if opts.Timing.TicksPerBeat <= 0 {
		opts.Timing.TicksPerBeat = tl.TicksPerBeat()
	}
	if opts.UnlockTimeout <= 0 {
		opts.UnlockTimeout = DefaultUnlockTimeout
	}
	if opts.FallbackGrace <= 0 {
		opts.FallbackGrace = playhead.DefaultFallbackGrace
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	sched := sequencer.NewScheduler(engine, opts.Timing, sequencer.Options{
		DisableNoiseLayer: opts.DisableNoiseLayer,
		Logger:            log,
	})
	opts.Timing = sched.Timing()
	return &Transport{
		tl:        tl,
		engine:    engine,
		scheduler: sched,
		reg:       registry{loop: loop},
		opts:      opts,
		log:       log,
	}
}

func (t *Transport) Timeline() *timeline.Timeline { return t.tl }
func (t *Transport) Timing() sequencer.Timing     { return t.opts.Timing }
func (t *Transport) State() State                 { return t.state }
func (t *Transport) Playing() bool                { return t.state == Playing }
func (t *Transport) Tick() int                    { return t.tick }

// LastBatch returns what the most recent Start submitted.
func (t *Transport) LastBatch() sequencer.Batch { return t.lastBatch }

// Outstanding returns the number of frame/timer handles the transport holds.
func (t *Transport) Outstanding() int { return t.reg.outstanding() }

func (t *Transport) Snapshot() Snapshot {
	return Snapshot{State: t.state, Tick: t.tick, TotalTicks: t.tl.TotalTicks()}
}

// OnChange registers fn to be called after every state or tick change.
func (t *Transport) OnChange(fn func(Snapshot)) {
	t.listeners = append(t.listeners, fn)
}

// Duration is the length of one pass at the current tempo.
func (t *Transport) Duration() time.Duration {
	return time.Duration(t.tl.TotalTicks()) * t.opts.Timing.TickInterval()
}

// Start tears down any previous pass, unlocks the sound engine, submits the
// whole bar to the engine in one batch and starts the playhead. A locked
// engine or an empty timeline still runs a full silent pass.
func (t *Transport) Start(ctx context.Context) sequencer.Batch {
	if n := t.teardown(); n > 0 {
		t.log.WithField("cancelled", n).Debug("cancelled leftover callbacks")
	}
	t.session++

	uctx, cancel := context.WithTimeout(ctx, t.opts.UnlockTimeout)
	err := t.engine.Unlock(uctx)
	cancel()
	if err != nil {
		t.log.WithError(err).Warn("sound engine unavailable; playing silently")
	}

	events := sequencer.Expand(t.tl, t.opts.Timing.TicksPerBeat)
	t.lastBatch = t.scheduler.Schedule(events)

	t.state = Playing
	t.tick = 0
	sess := t.session
	t.head = playhead.Start(&t.reg, playhead.Config{
		TotalTicks:    t.tl.TotalTicks(),
		TickDuration:  t.opts.Timing.TickInterval(),
		FallbackGrace: t.opts.FallbackGrace,
	}, playhead.Hooks{
		OnTick: func(tick int) {
			if sess != t.session {
				return
			}
			t.setTick(tick)
		},
		OnFinish: func() {
			if sess != t.session {
				return
			}
			t.naturalEnd()
		},
	})
	t.log.WithFields(logrus.Fields{
		"events":    len(events),
		"submitted": t.lastBatch.Submitted,
		"used":      t.tl.UsedTicks(),
	}).Info("playback started")
	t.notify()
	return t.lastBatch
}

// Stop halts the playhead and cancels its callbacks. Triggers already
// handed to the sound engine still play out.
func (t *Transport) Stop() {
	wasPlaying := t.state == Playing
	t.teardown()
	t.session++
	if wasPlaying {
		t.log.Info("playback stopped")
		t.notify()
	}
}

// Clear stops playback and empties the timeline.
func (t *Transport) Clear() {
	t.Stop()
	t.tl.Clear()
	t.log.Debug("timeline cleared")
	t.notify()
}

func (t *Transport) naturalEnd() {
	t.teardown()
	t.session++
	t.log.Info("playback finished")
	t.notify()
}

// teardown is the shared cleanup of stop, natural end and start.
func (t *Transport) teardown() int {
	n := t.reg.cancelAll()
	if t.head != nil {
		t.head.Halt()
		t.head = nil
	}
	t.state = Idle
	t.tick = 0
	return n
}

func (t *Transport) setTick(tick int) {
	if tick == t.tick {
		return
	}
	t.tick = tick
	t.notify()
}

func (t *Transport) notify() {
	snap := t.Snapshot()
	for _, fn := range t.listeners {
		fn(snap)
	}
}
