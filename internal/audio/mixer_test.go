package audio

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/gopxl/beep"
	"github.com/pkg/errors"

	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/synth"
)

const testRate = 1000

// impulse voices emit a single full-scale frame so start frames are exact.
func impulseVoices() *synth.Voices {
	impulse := func(int, float64) beep.Streamer {
		done := false
		return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
			if done {
				return 0, false
			}
			done = true
			samples[0] = [2]float64{1, 1}
			return 1, true
		})
	}
	return &synth.Voices{
		SampleRate: testRate,
		Rest:       synth.NewInstrument("rest", impulse, 0),
		Note:       synth.NewInstrument("note", impulse, 0),
	}
}

func TestMixerImplementsSoundEngine(t *testing.T) {
	var _ sequencer.SoundEngine = NewMixer(impulseVoices())
	var _ sequencer.SoundEngine = NewEngine(48000, 1, nil)
}

func TestMixerClockAdvancesWithRenderedFrames(t *testing.T) {
	m := NewMixer(impulseVoices())
	if m.Now() != 0 {
		t.Fatalf("fresh mixer clock = %v", m.Now())
	}
	m.Process(make([]float32, 2*250))
	if m.Now() != 0.25 || m.Frames() != 250 {
		t.Fatalf("now = %v frames = %d", m.Now(), m.Frames())
	}
	if err := m.Unlock(context.Background()); err != nil || !m.Ready() {
		t.Fatalf("mixer should always be ready")
	}
}

func TestMixerStartsTriggersOnExactFrame(t *testing.T) {
	m := NewMixer(impulseVoices())
	for _, at := range []float64{0.010, 0.003, 0.003} {
		if err := m.ScheduleTrigger(sequencer.Trigger{Voice: sequencer.VoiceNote, At: at}); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	if m.Pending() != 3 {
		t.Fatalf("pending = %d", m.Pending())
	}
	dst := make([]float32, 2*16)
	m.Process(dst)
	for i := 0; i < 16; i++ {
		want := float32(0)
		switch i {
		case 3:
			want = 2
		case 10:
			want = 1
		}
		if dst[2*i] != want || dst[2*i+1] != want {
			t.Fatalf("frame %d = %v, want %v", i, dst[2*i], want)
		}
	}
	if m.Peak() != 2 {
		t.Fatalf("peak = %v", m.Peak())
	}
}

func TestMixerLateTriggerStartsImmediately(t *testing.T) {
	m := NewMixer(impulseVoices())
	m.Process(make([]float32, 2*100))
	if err := m.ScheduleTrigger(sequencer.Trigger{Voice: sequencer.VoiceRest, At: 0.01}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	dst := make([]float32, 2*4)
	m.Process(dst)
	if dst[0] != 1 {
		t.Fatalf("late trigger should play on the next frame, got %v", dst)
	}
}

func TestMixerAppliesMasterGain(t *testing.T) {
	m := NewMixer(impulseVoices())
	m.SetGain(0.5)
	_ = m.ScheduleTrigger(sequencer.Trigger{Voice: sequencer.VoiceNote})
	dst := make([]float32, 2*2)
	m.Process(dst)
	if dst[0] != 0.5 || m.Peak() != 0.5 {
		t.Fatalf("gain not applied: %v peak %v", dst[0], m.Peak())
	}
}

func TestMixerRejectsMissingVoice(t *testing.T) {
	m := NewMixer(impulseVoices())
	err := m.ScheduleTrigger(sequencer.Trigger{Voice: sequencer.VoiceNoise})
	if errors.Cause(err) != ErrUnknownVoice {
		t.Fatalf("err = %v", err)
	}
}

func TestMixerRendersDefaultPatch(t *testing.T) {
	m := NewMixer(synth.NewVoices(48000, synth.DefaultPatch()))
	for _, v := range []sequencer.Voice{sequencer.VoiceRest, sequencer.VoiceNote, sequencer.VoiceNoise} {
		if err := m.ScheduleTrigger(sequencer.Trigger{Voice: v, Key: sequencer.KeyC1, Duration: 0.1}); err != nil {
			t.Fatalf("schedule %s: %v", v, err)
		}
	}
	dst := make([]float32, 2*4800)
	m.Process(dst)
	if m.Peak() <= 0.1 {
		t.Fatalf("expected audible output, peak %v", m.Peak())
	}
	for i, s := range dst {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatalf("sample %d not finite", i)
		}
	}
}

type constSource float32

func (c constSource) Process(dst []float32) {
	for i := range dst {
		dst[i] = float32(c)
	}
}

func TestStreamReaderEncodesFloat32LE(t *testing.T) {
	r := NewStreamReader(constSource(0.5))
	p := make([]byte, 8*3+5)
	n, err := r.Read(p)
	if err != nil || n != 24 {
		t.Fatalf("read = %d, %v", n, err)
	}
	for i := 0; i < 6; i++ {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:])); got != 0.5 {
			t.Fatalf("sample %d = %v", i, got)
		}
	}
	if n, _ := r.Read(make([]byte, 7)); n != 0 {
		t.Fatalf("short buffer read %d bytes", n)
	}
}

func TestEngineLockedBeforeUnlock(t *testing.T) {
	e := NewEngine(48000, 1, nil)
	if e.Ready() || e.Now() != 0 || e.Peak() != 0 {
		t.Fatalf("unopened engine should be locked and idle")
	}
	if err := e.ScheduleTrigger(sequencer.Trigger{}); err != ErrLocked {
		t.Fatalf("err = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
