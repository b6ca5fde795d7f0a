package effects

import "math"

// HighPass is a two-pole (12 dB/oct) high-pass biquad.
type HighPass struct {
	b0, b1, b2 float64
	a1, a2     float64
	// direct form I history per channel
	x1L, x2L, y1L, y2L float64
	x1R, x2R, y1R, y2R float64
}

// NewHighPass creates a high-pass filter at cutoffHz with resonance q.
// q <= 0 uses a Butterworth response.
func NewHighPass(sampleRate int, cutoffHz, q float64) *HighPass {
	if q <= 0 {
		q = math.Sqrt2 / 2
	}
	nyquist := float64(sampleRate) / 2
	if cutoffHz >= nyquist {
		cutoffHz = nyquist * 0.99
	}
	if cutoffHz < 1 {
		cutoffHz = 1
	}
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosW := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	return &HighPass{
		b0: ((1 + cosW) / 2) / a0,
		b1: -(1 + cosW) / a0,
		b2: ((1 + cosW) / 2) / a0,
		a1: (-2 * cosW) / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *HighPass) Process(l, r float64) (float64, float64) {
	outL := f.b0*l + f.b1*f.x1L + f.b2*f.x2L - f.a1*f.y1L - f.a2*f.y2L
	f.x2L, f.x1L = f.x1L, l
	f.y2L, f.y1L = f.y1L, outL

	outR := f.b0*r + f.b1*f.x1R + f.b2*f.x2R - f.a1*f.y1R - f.a2*f.y2R
	f.x2R, f.x1R = f.x1R, r
	f.y2R, f.y1R = f.y1R, outR
	return outL, outR
}

func (f *HighPass) Reset() {
	f.x1L, f.x2L, f.y1L, f.y2L = 0, 0, 0, 0
	f.x1R, f.x2R, f.y1R, f.y2R = 0, 0, 0, 0
}
