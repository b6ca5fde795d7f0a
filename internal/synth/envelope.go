package synth

import "math"

type envStage int

const (
	envAttack envStage = iota
	envDecay
	envSustain
	envRelease
	envOff
)

// floor below which a decaying envelope is considered silent (-80 dB)
const silence = 1e-4

// Envelope is an attack/decay/sustain/release amplitude contour. Attack is
// linear; decay and release are exponential, like most drum synths.
type Envelope struct {
	Attack  float64 // seconds
	Decay   float64 // seconds
	Sustain float64 // level 0..1
	Release float64 // seconds
}

type envelope struct {
	Envelope
	sr       float64
	stage    envStage
	level    float64
	gateLeft int // frames until release; <0 means already released
	decayK   float64
	releaseK float64
}

// timeConstantK returns the per-sample multiplier that brings a level to
// roughly -60 dB over seconds.
func timeConstantK(seconds, sr float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(math.Log(0.001) / (seconds * sr))
}

func newEnvelope(e Envelope, sr float64, gateSeconds float64) envelope {
	gate := int(gateSeconds * sr)
	if gate < 1 {
		gate = 1
	}
	return envelope{
		Envelope: e,
		sr:       sr,
		stage:    envAttack,
		gateLeft: gate,
		decayK:   timeConstantK(e.Decay, sr),
		releaseK: timeConstantK(e.Release, sr),
	}
}

// next advances by one frame and returns the amplitude.
func (e *envelope) next() float64 {
	if e.gateLeft > 0 {
		e.gateLeft--
		if e.gateLeft == 0 && e.stage != envOff {
			e.stage = envRelease
		}
	}
	switch e.stage {
	case envAttack:
		step := 1.0
		if e.Attack > 0 {
			step = 1.0 / (e.Attack * e.sr)
		}
		e.level += step
		if e.level >= 1 {
			e.level = 1
			e.stage = envDecay
		}
	case envDecay:
		e.level = e.Sustain + (e.level-e.Sustain)*e.decayK
		if e.level-e.Sustain < silence {
			e.level = e.Sustain
			e.stage = envSustain
		}
	case envSustain:
		e.level = e.Sustain
	case envRelease:
		e.level *= e.releaseK
	case envOff:
		return 0
	}
	if e.stage != envAttack && e.level < silence && (e.Sustain <= 0 || e.stage == envRelease) {
		e.level = 0
		e.stage = envOff
	}
	return e.level
}

func (e *envelope) done() bool { return e.stage == envOff }
