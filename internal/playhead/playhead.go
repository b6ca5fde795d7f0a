// Package playhead drives the visual tick cursor from the frame clock. It
// never consults the audio clock.
package playhead

import (
	"time"

	"github.com/cbegin/rhythmbar-go/internal/frameloop"
)

// DefaultFallbackGrace is how long past the end of the bar the fallback
// timer waits before forcing completion.
const DefaultFallbackGrace = 120 * time.Millisecond

// Scheduler hands out frame callbacks and timers. Whoever implements it
// owns the returned handles.
type Scheduler interface {
	Now() time.Duration
	RequestFrame(fn func(now time.Duration)) frameloop.Handle
	AfterFunc(d time.Duration, fn func()) frameloop.Handle
}

type Config struct {
	TotalTicks    int
	TickDuration  time.Duration
	FallbackGrace time.Duration
}

// Total is the length of one pass.
func (c Config) Total() time.Duration {
	return time.Duration(c.TotalTicks) * c.TickDuration
}

type Hooks struct {
	// OnTick is called whenever the published tick changes, including the
	// reset to 0 on finish.
	OnTick func(tick int)
	// OnFinish is called once when the pass ends, by frame or by fallback.
	OnFinish func()
}

// Playhead is a single pass of the cursor. Start a new one per pass.
type Playhead struct {
	sched     Scheduler
	cfg       Config
	hooks     Hooks
	startPerf time.Duration
	tick      int
	running   bool
}

// Start records the start time, publishes tick 0, and arms the first frame
// and the fallback timer.
func Start(sched Scheduler, cfg Config, hooks Hooks) *Playhead {
	if cfg.FallbackGrace <= 0 {
		cfg.FallbackGrace = DefaultFallbackGrace
	}
	p := &Playhead{
		sched:     sched,
		cfg:       cfg,
		hooks:     hooks,
		startPerf: sched.Now(),
		running:   true,
	}
	p.publish(0, true)
	sched.RequestFrame(p.frame)
	sched.AfterFunc(cfg.Total()+cfg.FallbackGrace, p.finish)
	return p
}

func (p *Playhead) Tick() int      { return p.tick }
func (p *Playhead) Running() bool  { return p.running }
func (p *Playhead) Config() Config { return p.cfg }

// TickAt returns the tick for a frame at now without publishing it.
func (p *Playhead) TickAt(now time.Duration) int {
	elapsed := now - p.startPerf
	if elapsed < 0 || p.cfg.TickDuration <= 0 {
		return 0
	}
	tick := int(elapsed / p.cfg.TickDuration)
	if tick > p.cfg.TotalTicks {
		tick = p.cfg.TotalTicks
	}
	return tick
}

// Halt stops the pass without calling OnFinish. Pending callbacks become
// no-ops; cancelling them is the scheduler owner's job.
func (p *Playhead) Halt() {
	p.running = false
	p.tick = 0
}

func (p *Playhead) frame(now time.Duration) {
	if !p.running {
		return
	}
	p.publish(p.TickAt(now), false)
	if now-p.startPerf < p.cfg.Total() {
		p.sched.RequestFrame(p.frame)
		return
	}
	p.finish()
}

func (p *Playhead) finish() {
	if !p.running {
		return
	}
	p.running = false
	p.publish(0, true)
	if p.hooks.OnFinish != nil {
		p.hooks.OnFinish()
	}
}

func (p *Playhead) publish(tick int, force bool) {
	changed := tick != p.tick
	p.tick = tick
	if p.hooks.OnTick != nil && (changed || force) {
		p.hooks.OnTick(tick)
	}
}
