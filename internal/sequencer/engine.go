package sequencer

import (
	"context"
	"fmt"
)

// Voice selects which synthesized instrument a trigger plays.
type Voice int

const (
	// VoiceRest is the percussive drum that rests play.
	VoiceRest Voice = iota
	// VoiceNote is the pitched "bang" that notes play.
	VoiceNote
	// VoiceNoise is a short high-passed noise burst layered on notes.
	VoiceNoise
)

func (v Voice) String() string {
	switch v {
	case VoiceRest:
		return "rest"
	case VoiceNote:
		return "note"
	case VoiceNoise:
		return "noise"
	default:
		return fmt.Sprintf("voice(%d)", int(v))
	}
}

// MIDI keys used by the default trigger mapping.
const (
	KeyC1 = 24
	KeyC2 = 36
)

// Trigger is a timestamp-addressed, fire-and-forget sound request.
type Trigger struct {
	Voice    Voice
	Key      int     // MIDI note; ignored by VoiceNoise
	Duration float64 // gate length in seconds
	At       float64 // absolute engine time in seconds
}

// SoundEngine is the contract the scheduler needs from an audio backend.
type SoundEngine interface {
	// Unlock prepares the output device. It may block until the device is
	// ready or ctx is done.
	Unlock(ctx context.Context) error
	// Ready reports whether triggers will be heard.
	Ready() bool
	// Now returns the engine's monotonic clock in seconds.
	Now() float64
	// ScheduleTrigger queues t for playback at t.At. It never blocks on
	// the trigger itself.
	ScheduleTrigger(t Trigger) error
}
