package synth

import (
	"math/rand"

	"github.com/gopxl/beep"
)

// Noise is a white-noise burst shaped by an envelope.
type Noise struct {
	Env Envelope
}

type noiseVoice struct {
	env envelope
	rng *rand.Rand
}

// Voice returns a one-shot noise streamer held for gate seconds. seed makes
// renders reproducible.
func (n Noise) Voice(sampleRate int, gate float64, seed int64) beep.Streamer {
	return &noiseVoice{
		env: newEnvelope(n.Env, float64(sampleRate), gate),
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (v *noiseVoice) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if v.env.done() {
			return i, i > 0
		}
		s := v.env.next() * (v.rng.Float64()*2 - 1)
		samples[i][0] = s
		samples[i][1] = s
	}
	return len(samples), true
}

func (v *noiseVoice) Err() error { return nil }
