package audio

import (
	"context"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/synth"
)

// ErrLocked is returned by ScheduleTrigger before the device is unlocked.
var ErrLocked = errors.New("audio output locked")

const readyPoll = 5 * time.Millisecond

// Engine is the live sound engine: the shared voice bank rendered by a
// Mixer into an ebiten audio player. Until Unlock succeeds it reports not
// ready and its clock reads zero.
type Engine struct {
	mu         sync.Mutex
	sampleRate int
	gain       float64
	log        logrus.FieldLogger
	ctx        *ebitaudio.Context
	mixer      *Mixer
	player     *Player
}

func NewEngine(sampleRate int, gain float64, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{sampleRate: sampleRate, gain: gain, log: log}
}

// Unlock opens the output on first use and waits for the device to report
// ready. It is safe to call repeatedly.
func (e *Engine) Unlock(ctx context.Context) error {
	if err := e.open(); err != nil {
		return err
	}
	t := time.NewTicker(readyPoll)
	defer t.Stop()
	for !e.ctx.IsReady() {
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "audio device not ready")
		case <-t.C:
		}
	}
	return nil
}

func (e *Engine) open() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player != nil {
		return nil
	}
	actx, err := sharedAudioContext(e.sampleRate)
	if err != nil {
		return err
	}
	voices, err := synth.Ensure(e.sampleRate)
	if err != nil {
		return err
	}
	mixer := NewMixer(voices)
	mixer.SetGain(e.gain)
	player, err := NewPlayer(e.sampleRate, mixer)
	if err != nil {
		return err
	}
	player.Play()
	e.ctx, e.mixer, e.player = actx, mixer, player
	e.log.WithField("sample_rate", e.sampleRate).Debug("audio output opened")
	return nil
}

func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player != nil && e.ctx.IsReady()
}

func (e *Engine) Now() float64 {
	e.mu.Lock()
	m := e.mixer
	e.mu.Unlock()
	if m == nil {
		return 0
	}
	return m.Now()
}

func (e *Engine) ScheduleTrigger(t sequencer.Trigger) error {
	e.mu.Lock()
	m := e.mixer
	e.mu.Unlock()
	if m == nil {
		return ErrLocked
	}
	return m.ScheduleTrigger(t)
}

// Peak reports the last rendered buffer's peak, for meters.
func (e *Engine) Peak() float32 {
	e.mu.Lock()
	m := e.mixer
	e.mu.Unlock()
	if m == nil {
		return 0
	}
	return m.Peak()
}

// Close stops the output. The shared context and voices stay alive for the
// rest of the process.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.player == nil {
		return nil
	}
	err := e.player.Stop()
	e.player, e.mixer = nil, nil
	return err
}
