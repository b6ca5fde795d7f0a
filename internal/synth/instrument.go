package synth

import (
	"math"

	"github.com/gopxl/beep"
	beepfx "github.com/gopxl/beep/effects"

	"github.com/cbegin/rhythmbar-go/internal/effects"
)

// VoiceFunc builds a one-shot streamer for a key held for gate seconds.
type VoiceFunc func(key int, gate float64) beep.Streamer

// Instrument is a persistent bus: triggered voices are summed, run through
// an effect chain and scaled by a fixed output gain. Its stream never ends.
type Instrument struct {
	Name  string
	bus   *beep.Mixer
	chain *effects.Chain
	out   beep.Streamer
	voice VoiceFunc
}

// NewInstrument wires voice -> bus -> chain -> volume(gainDB).
func NewInstrument(name string, voice VoiceFunc, gainDB float64, chain ...effects.Effector) *Instrument {
	bus := &beep.Mixer{}
	in := &Instrument{
		Name:  name,
		bus:   bus,
		chain: effects.NewChain(chain...),
		voice: voice,
	}
	var src beep.Streamer = bus
	if in.chain.Len() > 0 {
		src = &effects.Stream{Source: bus, FX: in.chain}
	}
	in.out = &beepfx.Volume{
		Streamer: src,
		Base:     2,
		Volume:   math.Log2(effects.DBToGain(gainDB)),
	}
	return in
}

// Trigger starts a new voice immediately; overlapping voices are summed.
func (in *Instrument) Trigger(key int, gate float64) {
	in.bus.Add(in.voice(key, gate))
}

// Active returns the number of voices still sounding.
func (in *Instrument) Active() int { return in.bus.Len() }

// Stream renders the bus output. It always fills samples.
func (in *Instrument) Stream(samples [][2]float64) (n int, ok bool) {
	return in.out.Stream(samples)
}

func (in *Instrument) Err() error { return nil }
