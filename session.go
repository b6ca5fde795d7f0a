// Package rhythmbar is a one-bar rhythm sequencer: pick rhythm cards, pack
// them into a bar, and play the bar back with a moving playhead.
package rhythmbar

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cbegin/rhythmbar-go/internal/audio"
	"github.com/cbegin/rhythmbar-go/internal/catalog"
	"github.com/cbegin/rhythmbar-go/internal/config"
	"github.com/cbegin/rhythmbar-go/internal/frameloop"
	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
	"github.com/cbegin/rhythmbar-go/internal/transport"
)

type (
	Config    = config.Config
	Catalog   = catalog.Catalog
	Symbol    = catalog.Symbol
	Placement = timeline.Placement
	Snapshot  = transport.Snapshot
	Batch     = sequencer.Batch
)

var (
	ErrCapacity      = timeline.ErrCapacity
	ErrNotFound      = timeline.ErrNotFound
	ErrUnknownSymbol = timeline.ErrUnknownSymbol
)

// DefaultConfig returns the stock tunables: 16 ticks, 4 ticks per beat,
// 70 bpm and a 60 ms look-ahead.
func DefaultConfig() Config { return config.Default() }

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	cfg     Config
	log     logrus.FieldLogger
	clock   frameloop.Clock
	engine  sequencer.SoundEngine
	catalog *catalog.Catalog
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{cfg: config.Default()}
}

func WithConfig(cfg Config) SessionOption {
	return func(sc *sessionConfig) {
		sc.cfg = cfg
	}
}

func WithLogger(log logrus.FieldLogger) SessionOption {
	return func(sc *sessionConfig) {
		sc.log = log
	}
}

// WithClock replaces the frame clock, typically with a frameloop.ManualClock
// in tests.
func WithClock(clock frameloop.Clock) SessionOption {
	return func(sc *sessionConfig) {
		sc.clock = clock
	}
}

// WithEngine replaces the live audio output.
func WithEngine(engine sequencer.SoundEngine) SessionOption {
	return func(sc *sessionConfig) {
		sc.engine = engine
	}
}

// WithCatalog replaces the symbol catalog named by the config.
func WithCatalog(cat *Catalog) SessionOption {
	return func(sc *sessionConfig) {
		sc.catalog = cat
	}
}

// Session wires a catalog, a timeline, a sound engine and a transport
// around one frame loop. Except for Play, its methods must be called from
// the goroutine that calls Frame.
type Session struct {
	cfg       Config
	log       logrus.FieldLogger
	catalog   *catalog.Catalog
	timeline  *timeline.Timeline
	loop      *frameloop.Loop
	engine    sequencer.SoundEngine
	live      *audio.Engine
	transport *transport.Transport
}

func NewSession(opts ...SessionOption) (*Session, error) {
	sc := defaultSessionConfig()
	for _, opt := range opts {
		opt(&sc)
	}
	cfg := sc.cfg
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	log := sc.log
	if log == nil {
		log = logrus.StandardLogger()
	}
	cat := sc.catalog
	if cat == nil && cfg.Catalog != "" {
		loaded, err := catalog.LoadFile(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	if cat == nil {
		cat = catalog.Default()
	}
	s := &Session{
		cfg:      cfg,
		log:      log,
		catalog:  cat,
		timeline: timeline.New(cat, cfg.TotalTicks, cfg.TicksPerBeat),
		loop:     frameloop.New(sc.clock),
		engine:   sc.engine,
	}
	if s.engine == nil {
		s.live = audio.NewEngine(cfg.SampleRate, cfg.Volume, log)
		s.engine = s.live
	}
	s.transport = transport.New(s.timeline, s.engine, s.loop, transport.Options{
		Timing:            timingFor(cfg),
		FallbackGrace:     cfg.FallbackGrace,
		UnlockTimeout:     cfg.UnlockTimeout,
		DisableNoiseLayer: !cfg.NoiseLayer,
		Logger:            log,
	})
	return s, nil
}

func timingFor(cfg Config) sequencer.Timing {
	return sequencer.Timing{BPM: cfg.BPM, TicksPerBeat: cfg.TicksPerBeat, Lookahead: cfg.Lookahead}
}

func (s *Session) Config() Config                  { return s.cfg }
func (s *Session) Catalog() *Catalog               { return s.catalog }
func (s *Session) Timeline() *timeline.Timeline    { return s.timeline }
func (s *Session) Transport() *transport.Transport { return s.transport }
func (s *Session) Engine() sequencer.SoundEngine   { return s.engine }
func (s *Session) Snapshot() Snapshot              { return s.transport.Snapshot() }
func (s *Session) Playing() bool                   { return s.transport.Playing() }
func (s *Session) Tick() int                       { return s.transport.Tick() }
func (s *Session) OnChange(fn func(Snapshot))      { s.transport.OnChange(fn) }
func (s *Session) Placements() []Placement         { return s.timeline.Placements() }
func (s *Session) CanAppend(symbolID string) bool  { return s.timeline.CanAppend(symbolID) }
func (s *Session) Duration() time.Duration         { return s.transport.Duration() }

// Append places a symbol after the last placement. It fails with
// ErrCapacity when the bar has no room and leaves the bar unchanged.
func (s *Session) Append(symbolID string) (Placement, error) {
	return s.timeline.Append(symbolID)
}

// Remove deletes a placement and packs the rest toward tick 0. A stale id
// fails with ErrNotFound.
func (s *Session) Remove(instanceID string) error {
	return s.timeline.Remove(instanceID)
}

// Start plays the current bar once. See transport.Transport.Start.
func (s *Session) Start(ctx context.Context) Batch { return s.transport.Start(ctx) }

func (s *Session) Stop()  { s.transport.Stop() }
func (s *Session) Clear() { s.transport.Clear() }

// Frame advances the frame loop by one refresh.
func (s *Session) Frame() { s.loop.Frame() }

// Peak returns the live output's last buffer peak, or 0 without one.
func (s *Session) Peak() float32 {
	if s.live == nil {
		return 0
	}
	return s.live.Peak()
}

// framePeriod paces Play when no display drives the loop.
const framePeriod = time.Second / 60

// Play starts a pass and drives the frame loop from a ticker until the pass
// ends or ctx is done, in which case playback is stopped. Play owns the
// loop goroutine for its duration.
func (s *Session) Play(ctx context.Context) error {
	s.Start(ctx)
	t := time.NewTicker(framePeriod)
	defer t.Stop()
	for s.Playing() {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-t.C:
			s.Frame()
		}
	}
	return nil
}

// Close stops playback and releases the live audio output.
func (s *Session) Close() error {
	s.transport.Stop()
	if s.live != nil {
		return s.live.Close()
	}
	return nil
}
