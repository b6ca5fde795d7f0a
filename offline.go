package rhythmbar

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/rhythmbar-go/internal/audio"
	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/synth"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
)

// renderTail lets the last voices ring out past the end of the bar.
const renderTail = 0.4

const renderBlock = 1024

// RenderSamples renders one pass of tl as interleaved stereo float32 using
// a private voice bank and the mixer's sample clock. There is no look-ahead
// offline: the bar starts on frame 0.
func RenderSamples(tl *timeline.Timeline, cfg Config, log logrus.FieldLogger) []float32 {
	patch := synth.DefaultPatch()
	patch.DisableNoise = !cfg.NoiseLayer
	mixer := audio.NewMixer(synth.NewVoices(cfg.SampleRate, patch))
	mixer.SetGain(cfg.Volume)

	timing := timingFor(cfg)
	timing.Lookahead = 0
	sched := sequencer.NewScheduler(mixer, timing, sequencer.Options{
		DisableNoiseLayer: !cfg.NoiseLayer,
		Logger:            log,
	})
	sched.Schedule(sequencer.Expand(tl, cfg.TicksPerBeat))

	frames := int(float64(cfg.SampleRate) * (cfg.TotalSeconds() + renderTail))
	out := make([]float32, frames*2)
	for off := 0; off < len(out); off += renderBlock * 2 {
		end := off + renderBlock*2
		if end > len(out) {
			end = len(out)
		}
		mixer.Process(out[off:end])
	}
	return out
}

// RenderSamples renders the session's current bar.
func (s *Session) RenderSamples() []float32 {
	return RenderSamples(s.timeline, s.cfg, s.log)
}

// RenderWAV writes the session's current bar as a float32 WAV file.
func (s *Session) RenderWAV(w io.Writer) error {
	wav := EncodeWAVFloat32LE(s.RenderSamples(), s.cfg.SampleRate, 2)
	if _, err := w.Write(wav); err != nil {
		return errors.Wrap(err, "write wav")
	}
	return nil
}

func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3) // IEEE float
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
