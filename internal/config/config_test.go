package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default invalid: %v", err)
	}
	if cfg.TotalTicks != 16 || cfg.TicksPerBeat != 4 || cfg.BPM != 70 || cfg.Lookahead != 0.06 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if math.Abs(cfg.TotalSeconds()-16*(60.0/70)/4) > 1e-12 {
		t.Fatalf("total seconds = %v", cfg.TotalSeconds())
	}
}

func TestDecodeOverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader("bpm: 90\nfallback_grace: 250ms\nnoise_layer: false\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.BPM != 90 || cfg.FallbackGrace != 250*time.Millisecond || cfg.NoiseLayer {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.TotalTicks != 16 || cfg.SampleRate != 48000 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestDecodeEmptyIsDefault(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil || cfg != Default() {
		t.Fatalf("empty config = %+v, %v", cfg, err)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "tempo: 90\n",
		"zero bpm":       "bpm: 0\n",
		"negative ticks": "total_ticks: -1\n",
		"loud volume":    "volume: 1.5\n",
		"bad lookahead":  "lookahead: -0.1\n",
		"zero tpb":       "ticks_per_beat: 0\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rhythm.yaml")
	if err := os.WriteFile(path, []byte("total_ticks: 4\nticks_per_beat: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TotalTicks != 4 || cfg.TicksPerBeat != 1 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
