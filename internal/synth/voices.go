package synth

import (
	"sync"

	"github.com/gopxl/beep"
	"github.com/pkg/errors"

	"github.com/cbegin/rhythmbar-go/internal/effects"
)

// Patch holds the sound design of the three voices.
type Patch struct {
	Rest       Membrane
	RestGainDB float64

	Note       Membrane
	NoteGainDB float64
	// note bus compressor
	CompThresholdDB float64
	CompRatio       float64

	Noise        Noise
	NoiseGainDB  float64
	NoiseHPFreq  float64
	NoiseHPQ     float64
	DisableNoise bool
}

// DefaultPatch is a soft low drum for rests and a short, bright, compressed
// bang with a high-passed noise click for notes.
func DefaultPatch() Patch {
	return Patch{
		Rest: Membrane{
			PitchDecay: 0.02,
			Octaves:    2,
			Env:        Envelope{Attack: 0.001, Decay: 0.15, Sustain: 0, Release: 0.05},
		},
		RestGainDB: -6,
		Note: Membrane{
			PitchDecay: 0.008,
			Octaves:    8,
			Env:        Envelope{Attack: 0.001, Decay: 0.06, Sustain: 0, Release: 0.05},
		},
		NoteGainDB:      0,
		CompThresholdDB: -18,
		CompRatio:       8,
		Noise: Noise{
			Env: Envelope{Attack: 0.001, Decay: 0.02, Sustain: 0, Release: 0.02},
		},
		NoiseGainDB: -6,
		NoiseHPFreq: 1800,
		NoiseHPQ:    1,
	}
}

// Voices is the bank of instruments a mixer plays triggers on.
type Voices struct {
	SampleRate int
	Rest       *Instrument
	Note       *Instrument
	Noise      *Instrument
}

// NewVoices builds a fresh bank. Offline renders use their own bank; live
// playback goes through Ensure.
func NewVoices(sampleRate int, p Patch) *Voices {
	v := &Voices{SampleRate: sampleRate}
	v.Rest = NewInstrument("rest", func(key int, gate float64) beep.Streamer {
		return p.Rest.Voice(sampleRate, key, gate)
	}, p.RestGainDB)
	v.Note = NewInstrument("note", func(key int, gate float64) beep.Streamer {
		return p.Note.Voice(sampleRate, key, gate)
	}, p.NoteGainDB, effects.NewCompressor(sampleRate, p.CompThresholdDB, p.CompRatio, 3, 250, 0))
	if !p.DisableNoise {
		var seed int64
		v.Noise = NewInstrument("noise", func(_ int, gate float64) beep.Streamer {
			seed++
			return p.Noise.Voice(sampleRate, gate, seed)
		}, p.NoiseGainDB, effects.NewHighPass(sampleRate, p.NoiseHPFreq, p.NoiseHPQ))
	}
	return v
}

// Instruments returns the non-nil instruments in bus order.
func (v *Voices) Instruments() []*Instrument {
	out := make([]*Instrument, 0, 3)
	for _, in := range []*Instrument{v.Rest, v.Note, v.Noise} {
		if in != nil {
			out = append(out, in)
		}
	}
	return out
}

var (
	sharedVoicesOnce sync.Once
	sharedVoices     *Voices
)

// Ensure returns the process-wide voice bank, building it on first use.
// Later calls with a different sample rate fail.
func Ensure(sampleRate int) (*Voices, error) {
	sharedVoicesOnce.Do(func() {
		sharedVoices = NewVoices(sampleRate, DefaultPatch())
	})
	if sharedVoices.SampleRate != sampleRate {
		return nil, errors.Errorf("voices already built at %d Hz, requested %d Hz", sharedVoices.SampleRate, sampleRate)
	}
	return sharedVoices, nil
}
