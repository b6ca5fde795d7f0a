package effects

import "github.com/gopxl/beep"

// Effector processes stereo audio one frame at a time.
type Effector interface {
	Process(l, r float64) (float64, float64)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float64) (float64, float64) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// Stream runs a beep streamer through an effector. Whatever the source
// produces is processed in place; the source's ok/err are passed through.
type Stream struct {
	Source beep.Streamer
	FX     Effector
}

func (s *Stream) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = s.Source.Stream(samples)
	if s.FX == nil {
		return n, ok
	}
	for i := 0; i < n; i++ {
		samples[i][0], samples[i][1] = s.FX.Process(samples[i][0], samples[i][1])
	}
	return n, ok
}

func (s *Stream) Err() error { return s.Source.Err() }
