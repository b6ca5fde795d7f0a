package audio

import (
	"context"
	"sort"
	"sync"

	"github.com/gopxl/beep"
	"github.com/pkg/errors"
	"github.com/viterin/vek/vek32"

	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/synth"
)

// ErrUnknownVoice is returned for triggers on a voice the bank lacks.
var ErrUnknownVoice = errors.New("unknown voice")

type pendingTrigger struct {
	frame int64
	inst  *synth.Instrument
	key   int
	gate  float64
}

// Mixer renders a voice bank against its own sample clock. Its Now is the
// number of frames rendered so far divided by the sample rate, so a trigger
// scheduled at At starts on frame round(At*rate), or on the next rendered
// frame if that has already passed.
//
// Mixer is always ready; it is the sound engine for offline renders and the
// source behind the live Engine.
type Mixer struct {
	mu         sync.Mutex
	sampleRate int
	voices     *synth.Voices
	master     *beep.Mixer
	frame      int64
	pending    []pendingTrigger
	tmp        [][2]float64
	abs        []float32
	gain       float32
	peak       float32
}

func NewMixer(voices *synth.Voices) *Mixer {
	master := &beep.Mixer{}
	for _, in := range voices.Instruments() {
		master.Add(in)
	}
	return &Mixer{
		sampleRate: voices.SampleRate,
		voices:     voices,
		master:     master,
		gain:       1,
	}
}

func (m *Mixer) SampleRate() int { return m.sampleRate }

// SetGain sets the linear master gain.
func (m *Mixer) SetGain(g float64) {
	m.mu.Lock()
	m.gain = float32(g)
	m.mu.Unlock()
}

// Peak returns the absolute peak of the most recent Process call.
func (m *Mixer) Peak() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

// Frames returns the number of frames rendered.
func (m *Mixer) Frames() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// Pending returns the number of triggers not yet started.
func (m *Mixer) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

func (m *Mixer) Unlock(context.Context) error { return nil }

func (m *Mixer) Ready() bool { return true }

func (m *Mixer) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.frame) / float64(m.sampleRate)
}

func (m *Mixer) instrument(v sequencer.Voice) *synth.Instrument {
	switch v {
	case sequencer.VoiceRest:
		return m.voices.Rest
	case sequencer.VoiceNote:
		return m.voices.Note
	case sequencer.VoiceNoise:
		return m.voices.Noise
	}
	return nil
}

func (m *Mixer) ScheduleTrigger(t sequencer.Trigger) error {
	inst := m.instrument(t.Voice)
	if inst == nil {
		return errors.Wrapf(ErrUnknownVoice, "voice %s", t.Voice)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := int64(t.At*float64(m.sampleRate) + 0.5)
	if frame < m.frame {
		frame = m.frame
	}
	p := pendingTrigger{frame: frame, inst: inst, key: t.Key, gate: t.Duration}
	i := sort.Search(len(m.pending), func(i int) bool {
		return m.pending[i].frame > frame
	})
	m.pending = append(m.pending, pendingTrigger{})
	copy(m.pending[i+1:], m.pending[i:])
	m.pending[i] = p
	return nil
}

// Process renders len(dst)/2 stereo frames, starting queued voices on
// their exact frame.
func (m *Mixer) Process(dst []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frames := len(dst) / 2
	if cap(m.tmp) < frames {
		m.tmp = make([][2]float64, frames)
	}
	out := m.tmp[:frames]
	done := 0
	for done < frames {
		for len(m.pending) > 0 && m.pending[0].frame <= m.frame {
			p := m.pending[0]
			m.pending = m.pending[1:]
			p.inst.Trigger(p.key, p.gate)
		}
		seg := frames - done
		if len(m.pending) > 0 {
			if until := int(m.pending[0].frame - m.frame); until < seg {
				seg = until
			}
		}
		m.master.Stream(out[done : done+seg])
		done += seg
		m.frame += int64(seg)
	}
	for i, s := range out {
		dst[2*i] = float32(s[0])
		dst[2*i+1] = float32(s[1])
	}
	if m.gain != 1 {
		vek32.MulNumber_Inplace(dst[:frames*2], m.gain)
	}
	if cap(m.abs) < frames*2 {
		m.abs = make([]float32, frames*2)
	}
	if frames == 0 {
		m.peak = 0
		return
	}
	abs := m.abs[:frames*2]
	copy(abs, dst[:frames*2])
	vek32.Abs_Inplace(abs)
	m.peak = vek32.Max(abs)
}
