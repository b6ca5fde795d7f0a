package synth

import (
	"math"

	"github.com/gopxl/beep"
)

const twoPi = math.Pi * 2

// Membrane is a kick-drum style voice: a sine whose pitch starts Octaves
// times above the played note and glides down to it over PitchDecay.
type Membrane struct {
	PitchDecay float64 // seconds
	Octaves    float64
	Env        Envelope
}

type membraneVoice struct {
	env      envelope
	sr       float64
	freq     float64
	target   float64
	glideK   float64
	glideLen int
	phase    float64
}

// Voice returns a one-shot streamer for key held for gate seconds.
func (m Membrane) Voice(sampleRate int, key int, gate float64) beep.Streamer {
	sr := float64(sampleRate)
	target := midiToFreq(key)
	start := target * math.Max(m.Octaves, 1)
	glideLen := int(m.PitchDecay * sr)
	v := &membraneVoice{
		env:      newEnvelope(m.Env, sr, gate),
		sr:       sr,
		freq:     start,
		target:   target,
		glideLen: glideLen,
	}
	if glideLen > 0 {
		v.glideK = math.Pow(target/start, 1/float64(glideLen))
	} else {
		v.freq = target
	}
	return v
}

func (v *membraneVoice) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if v.env.done() {
			return i, i > 0
		}
		amp := v.env.next()
		s := amp * math.Sin(v.phase)
		samples[i][0] = s
		samples[i][1] = s
		if v.glideLen > 0 {
			v.freq *= v.glideK
			v.glideLen--
			if v.glideLen == 0 {
				v.freq = v.target
			}
		}
		v.phase += twoPi * v.freq / v.sr
		if v.phase > twoPi {
			v.phase -= twoPi
		}
	}
	return len(samples), true
}

func (v *membraneVoice) Err() error { return nil }

func midiToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}
