package frameloop

import (
	"sort"
	"sync"
	"time"
)

// Clock is a monotonic time source measured from an arbitrary origin.
type Clock interface {
	Now() time.Duration
}

type systemClock struct{ origin time.Time }

// SystemClock returns a clock backed by the runtime's monotonic timer.
func SystemClock() Clock { return systemClock{origin: time.Now()} }

func (c systemClock) Now() time.Duration { return time.Since(c.origin) }

// ManualClock only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

func (c *ManualClock) Set(now time.Duration) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Handle identifies a pending frame callback or timer. The zero Handle is
// never issued.
type Handle uint64

type frameReq struct {
	id Handle
	fn func(now time.Duration)
}

type timer struct {
	id  Handle
	due time.Duration
	fn  func()
}

// Loop is a single-threaded cooperative scheduler in the style of a browser
// event loop: the host calls Frame once per display refresh, which runs due
// timers and then the frame callbacks that were requested before the frame
// began. Callbacks requested while a frame is running wait for the next one.
//
// Loop methods must be called from the goroutine that calls Frame.
type Loop struct {
	clock  Clock
	nextID Handle
	frames []frameReq
	timers []timer
	frame  uint64

	runningFrames []frameReq
	runningTimers []timer
}

func New(clock Clock) *Loop {
	if clock == nil {
		clock = SystemClock()
	}
	return &Loop{clock: clock}
}

func (l *Loop) Now() time.Duration { return l.clock.Now() }

// FrameCount returns how many frames have been run.
func (l *Loop) FrameCount() uint64 { return l.frame }

func (l *Loop) next() Handle {
	l.nextID++
	return l.nextID
}

// RequestFrame schedules fn for the next frame.
func (l *Loop) RequestFrame(fn func(now time.Duration)) Handle {
	id := l.next()
	l.frames = append(l.frames, frameReq{id: id, fn: fn})
	return id
}

// AfterFunc schedules fn to run on the first frame at or after now+d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	id := l.next()
	l.timers = append(l.timers, timer{id: id, due: l.clock.Now() + d, fn: fn})
	return id
}

// Cancel drops a pending frame callback or timer. Cancelling a handle that
// already ran, or was never issued, is a no-op.
func (l *Loop) Cancel(h Handle) bool {
	if h == 0 {
		return false
	}
	for i := range l.frames {
		if l.frames[i].id == h {
			l.frames = append(l.frames[:i], l.frames[i+1:]...)
			return true
		}
	}
	for i := range l.timers {
		if l.timers[i].id == h {
			l.timers = append(l.timers[:i], l.timers[i+1:]...)
			return true
		}
	}
	// Entries already pulled into the running frame.
	for i := range l.runningFrames {
		if l.runningFrames[i].id == h && l.runningFrames[i].fn != nil {
			l.runningFrames[i].fn = nil
			return true
		}
	}
	for i := range l.runningTimers {
		if l.runningTimers[i].id == h && l.runningTimers[i].fn != nil {
			l.runningTimers[i].fn = nil
			return true
		}
	}
	return false
}

// Pending returns the number of outstanding frame callbacks and timers.
func (l *Loop) Pending() int { return len(l.frames) + len(l.timers) }

// Frame runs one refresh: due timers in deadline order, then frame callbacks.
// A callback cancelled by an earlier callback in the same frame does not run.
func (l *Loop) Frame() {
	l.frame++
	now := l.clock.Now()

	var due []timer
	keep := l.timers[:0]
	for _, t := range l.timers {
		if t.due <= now {
			due = append(due, t)
		} else {
			keep = append(keep, t)
		}
	}
	l.timers = keep
	sort.SliceStable(due, func(i, j int) bool { return due[i].due < due[j].due })
	l.runningTimers = due
	for i := range l.runningTimers {
		if fn := l.runningTimers[i].fn; fn != nil {
			l.runningTimers[i].fn = nil
			fn()
		}
	}
	l.runningTimers = nil

	l.runningFrames = l.frames
	l.frames = nil
	for i := range l.runningFrames {
		if fn := l.runningFrames[i].fn; fn != nil {
			l.runningFrames[i].fn = nil
			fn(now)
		}
	}
	l.runningFrames = nil
}
