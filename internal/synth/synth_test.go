package synth

import (
	"math"
	"testing"

	"github.com/gopxl/beep"
)

const testRate = 48000

func drain(t *testing.T, s beep.Streamer, limit int) (frames int, peak float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	for frames < limit {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		frames += n
		if !ok {
			return frames, peak
		}
	}
	t.Fatalf("voice still sounding after %d frames", limit)
	return frames, peak
}

func TestMembraneVoiceDecaysAndEnds(t *testing.T) {
	p := DefaultPatch()
	frames, peak := drain(t, p.Rest.Voice(testRate, 36, 0.2), testRate)
	if peak < 0.5 || peak > 1.0001 {
		t.Fatalf("peak = %v", peak)
	}
	if frames > testRate/2 {
		t.Fatalf("rest voice rang for %d frames", frames)
	}
	frames, _ = drain(t, p.Note.Voice(testRate, 24, 0.1), testRate)
	if frames > testRate/5 {
		t.Fatalf("note voice rang for %d frames", frames)
	}
}

func TestMembraneGlideLandsOnKey(t *testing.T) {
	m := Membrane{PitchDecay: 0.01, Octaves: 8, Env: Envelope{Attack: 0.001, Decay: 1}}
	v := m.Voice(testRate, 24, 1).(*membraneVoice)
	if math.Abs(v.freq-8*midiToFreq(24)) > 1e-9 {
		t.Fatalf("start freq = %v", v.freq)
	}
	buf := make([][2]float64, int(0.01*testRate))
	v.Stream(buf)
	if v.freq != midiToFreq(24) {
		t.Fatalf("freq after glide = %v, want %v", v.freq, midiToFreq(24))
	}
}

func TestMidiToFreq(t *testing.T) {
	if math.Abs(midiToFreq(69)-440) > 1e-9 {
		t.Fatalf("A4 = %v", midiToFreq(69))
	}
	if math.Abs(midiToFreq(24)-32.7032) > 1e-3 {
		t.Fatalf("C1 = %v", midiToFreq(24))
	}
}

func TestEnvelopeReleasesAtGate(t *testing.T) {
	e := newEnvelope(Envelope{Decay: 10, Sustain: 0.5, Release: 0.005}, 1000, 0.02)
	for i := 0; i < 19; i++ {
		e.next()
	}
	if e.stage == envRelease || e.stage == envOff {
		t.Fatalf("released before gate")
	}
	for i := 0; i < 20 && !e.done(); i++ {
		e.next()
	}
	if !e.done() {
		t.Fatalf("envelope did not finish after release, level %v", e.level)
	}
}

func TestNoiseVoiceIsSeeded(t *testing.T) {
	n := DefaultPatch().Noise
	a := make([][2]float64, 64)
	b := make([][2]float64, 64)
	n.Voice(testRate, 0.05, 7).Stream(a)
	n.Voice(testRate, 0.05, 7).Stream(b)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for equal seeds", i)
		}
		if math.Abs(a[i][0]) > 1 {
			t.Fatalf("sample %d out of range: %v", i, a[i][0])
		}
	}
}

func constant(frames int, v float64) beep.Streamer {
	return beep.Take(frames, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{v, v}
		}
		return len(samples), true
	}))
}

func TestInstrumentSumsOverlappingVoices(t *testing.T) {
	in := NewInstrument("test", func(int, float64) beep.Streamer { return constant(4, 0.25) }, 0)
	in.Trigger(0, 0)
	in.Trigger(0, 0)
	if in.Active() != 2 {
		t.Fatalf("active = %d", in.Active())
	}
	buf := make([][2]float64, 4)
	n, ok := in.Stream(buf)
	if n != 4 || !ok {
		t.Fatalf("stream = %d, %v", n, ok)
	}
	for i, s := range buf {
		if math.Abs(s[0]-0.5) > 1e-12 {
			t.Fatalf("sample %d = %v, want 0.5", i, s[0])
		}
	}
	in.Stream(buf)
	if in.Active() != 0 {
		t.Fatalf("drained voices not released, active = %d", in.Active())
	}
	n, ok = in.Stream(buf)
	if n != 4 || !ok || buf[0][0] != 0 {
		t.Fatalf("idle bus should stream silence, got %d %v %v", n, ok, buf[0])
	}
}

func TestInstrumentAppliesGain(t *testing.T) {
	in := NewInstrument("quiet", func(int, float64) beep.Streamer { return constant(2, 1) }, -6)
	in.Trigger(0, 0)
	buf := make([][2]float64, 2)
	in.Stream(buf)
	if math.Abs(buf[0][0]-math.Pow(10, -6.0/20)) > 1e-9 {
		t.Fatalf("gain not applied: %v", buf[0][0])
	}
}

func TestNewVoicesWithoutNoise(t *testing.T) {
	p := DefaultPatch()
	p.DisableNoise = true
	v := NewVoices(testRate, p)
	if v.Noise != nil || len(v.Instruments()) != 2 {
		t.Fatalf("noise instrument should be absent")
	}
}

func TestEnsureBuildsOnce(t *testing.T) {
	a, err := Ensure(testRate)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	b, err := Ensure(testRate)
	if err != nil || a != b {
		t.Fatalf("second ensure returned a different bank: %v", err)
	}
	if _, err := Ensure(44100); err == nil {
		t.Fatalf("expected sample rate mismatch error")
	}
}
