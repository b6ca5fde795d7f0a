package transport

import (
	"time"

	"github.com/cbegin/rhythmbar-go/internal/frameloop"
)

// Loop is the frame scheduler the transport drives playback on.
type Loop interface {
	Now() time.Duration
	RequestFrame(fn func(now time.Duration)) frameloop.Handle
	AfterFunc(d time.Duration, fn func()) frameloop.Handle
	Cancel(h frameloop.Handle) bool
}

// registry is the single owner of outstanding frame and timer handles. It
// implements playhead.Scheduler so every handle the playhead creates lands
// here.
type registry struct {
	loop   Loop
	frame  frameloop.Handle
	timers []frameloop.Handle
}

func (r *registry) Now() time.Duration { return r.loop.Now() }

// RequestFrame keeps only the latest frame handle; a frame callback requests
// its successor while running, so earlier handles have already fired.
func (r *registry) RequestFrame(fn func(now time.Duration)) frameloop.Handle {
	r.frame = r.loop.RequestFrame(fn)
	return r.frame
}

func (r *registry) AfterFunc(d time.Duration, fn func()) frameloop.Handle {
	h := r.loop.AfterFunc(d, fn)
	r.timers = append(r.timers, h)
	return h
}

// outstanding returns the number of handles held.
func (r *registry) outstanding() int {
	n := len(r.timers)
	if r.frame != 0 {
		n++
	}
	return n
}

// cancelAll cancels and forgets every handle. It returns how many were
// still pending in the loop.
func (r *registry) cancelAll() int {
	n := 0
	if r.frame != 0 && r.loop.Cancel(r.frame) {
		n++
	}
	r.frame = 0
	for _, h := range r.timers {
		if r.loop.Cancel(h) {
			n++
		}
	}
	r.timers = r.timers[:0]
	return n
}
