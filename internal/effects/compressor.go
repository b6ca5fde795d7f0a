package effects

import "math"

// Compressor implements basic dynamic range compression.
type Compressor struct {
	threshold float64
	ratio     float64
	attack    float64 // coefficient
	release   float64 // coefficient
	makeup    float64
	envL      float64
	envR      float64
}

// NewCompressor creates a compressor effect.
// thresholdDB: threshold in dB (e.g., -18)
// ratio: compression ratio (e.g., 8 for 8:1)
// attackMs: attack time in ms
// releaseMs: release time in ms
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float64) *Compressor {
	sr := float64(sampleRate)
	if ratio < 1 {
		ratio = 1
	}
	return &Compressor{
		threshold: DBToGain(thresholdDB),
		ratio:     ratio,
		attack:    1.0 - math.Exp(-1.0/(attackMs*sr/1000.0)),
		release:   1.0 - math.Exp(-1.0/(releaseMs*sr/1000.0)),
		makeup:    DBToGain(makeupDB),
	}
}

func (c *Compressor) Process(l, r float64) (float64, float64) {
	absL := math.Abs(l)
	absR := math.Abs(r)
	// Envelope follower
	if absL > c.envL {
		c.envL += c.attack * (absL - c.envL)
	} else {
		c.envL += c.release * (absL - c.envL)
	}
	if absR > c.envR {
		c.envR += c.attack * (absR - c.envR)
	} else {
		c.envR += c.release * (absR - c.envR)
	}
	return l * c.computeGain(c.envL) * c.makeup, r * c.computeGain(c.envR) * c.makeup
}

func (c *Compressor) computeGain(env float64) float64 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return math.Pow(over, 1.0/c.ratio-1)
}

func (c *Compressor) Reset() {
	c.envL = 0
	c.envR = 0
}

// DBToGain converts decibels to a linear amplitude factor.
func DBToGain(db float64) float64 {
	return math.Pow(10, db/20)
}
