package rhythmbar

import (
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/rhythmbar-go/internal/sequencer"
	"github.com/cbegin/rhythmbar-go/internal/timeline"
)

const (
	midiResolution = 960 // ticks per quarter note
	midiDrumCh     = 9
	midiVelocity   = 100
	// closed hi-hat stands in for the noise layer
	midiNoiseKey = 42
)

type midiEvent struct {
	at  uint32
	off bool
	msg midi.Message
}

// ExportMIDI writes one pass of tl as a type-1 standard MIDI file on the
// General MIDI drum channel, using the same trigger mapping as playback.
func ExportMIDI(w io.Writer, tl *timeline.Timeline, cfg Config) error {
	timing := timingFor(cfg)
	timing.Lookahead = 0
	capture := &sequencer.Capture{}
	sequencer.NewScheduler(capture, timing, sequencer.Options{
		DisableNoiseLayer: !cfg.NoiseLayer,
	}).Schedule(sequencer.Expand(tl, cfg.TicksPerBeat))

	toTicks := func(sec float64) uint32 {
		return uint32(math.Round(sec * cfg.BPM / 60 * midiResolution))
	}
	var events []midiEvent
	for _, tr := range capture.Triggers {
		key := uint8(tr.Key)
		if tr.Voice == sequencer.VoiceNoise {
			key = midiNoiseKey
		}
		on := toTicks(tr.At)
		off := on + toTicks(tr.Duration)
		if off == on {
			off++
		}
		events = append(events,
			midiEvent{at: on, msg: midi.NoteOn(midiDrumCh, key, midiVelocity)},
			midiEvent{at: off, off: true, msg: midi.NoteOff(midiDrumCh, key)},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return events[i].off && !events[j].off
	})

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(midiResolution)

	var meta smf.Track
	meta.Add(0, smf.MetaMeter(uint8(beatsPerBar(cfg)), 4))
	meta.Add(0, smf.MetaTempo(cfg.BPM))
	meta.Close(0)
	if err := sm.Add(meta); err != nil {
		return errors.Wrap(err, "add tempo track")
	}

	var track smf.Track
	var last uint32
	for _, ev := range events {
		track.Add(ev.at-last, ev.msg)
		last = ev.at
	}
	barEnd := uint32(tl.TotalTicks() * midiResolution / cfg.TicksPerBeat)
	var rest uint32
	if barEnd > last {
		rest = barEnd - last
	}
	track.Close(rest)
	if err := sm.Add(track); err != nil {
		return errors.Wrap(err, "add drum track")
	}
	if _, err := sm.WriteTo(w); err != nil {
		return errors.Wrap(err, "write midi")
	}
	return nil
}

// beatsPerBar is the meter numerator, at least 1.
func beatsPerBar(cfg Config) int {
	n := cfg.TotalTicks / cfg.TicksPerBeat
	if n < 1 {
		n = 1
	}
	return n
}

// ExportMIDI writes the session's current bar.
func (s *Session) ExportMIDI(w io.Writer) error {
	return ExportMIDI(w, s.timeline, s.cfg)
}
