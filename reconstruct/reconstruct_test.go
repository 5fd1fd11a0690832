package reconstruct

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-geoacoustics/energyfield"
)

func filledField(t *testing.T) *energyfield.Field {
	f := energyfield.New(1, 0.2)
	for ch := 0; ch < f.Channels(); ch++ {
		for b := 0; b < energyfield.NumBands; b++ {
			for bin := 0; bin < f.Bins(); bin++ {
				f.Set(ch, b, bin, 1.0/float64(bin+1))
			}
		}
	}
	return f
}

func TestReconstructProducesFiniteSamples(t *testing.T) {
	f := filledField(t)
	cfg := DefaultConfig()
	cfg.SampleRate = 16000
	cfg.Duration = 0.2

	ir, err := Reconstruct(f, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if ir.Channels != f.Channels() {
		t.Fatalf("expected %d channels, got %d", f.Channels(), ir.Channels)
	}
	for ch := 0; ch < ir.Channels; ch++ {
		for _, v := range ir.Channel(ch) {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				t.Fatalf("non-finite sample in channel %d", ch)
			}
		}
	}
}

func TestReconstructDeterministicForSameSeed(t *testing.T) {
	f := filledField(t)
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.Duration = 0.1
	cfg.Seed = 42

	ir1, err := Reconstruct(f, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	ir2, err := Reconstruct(f, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for ch := 0; ch < ir1.Channels; ch++ {
		c1, c2 := ir1.Channel(ch), ir2.Channel(ch)
		for i := range c1 {
			if c1[i] != c2[i] {
				t.Fatalf("expected deterministic reconstruction, channel %d sample %d differs: %v vs %v", ch, i, c1[i], c2[i])
			}
		}
	}
}

func TestReconstructZeroFieldYieldsNearSilence(t *testing.T) {
	f := energyfield.New(0, 0.1)
	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.Duration = 0.1

	ir, err := Reconstruct(f, cfg)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for _, v := range ir.Channel(0) {
		if v != 0 {
			t.Fatalf("expected exact silence for an all-zero energy field, got %v", v)
		}
	}
}

func TestValidateRejectsBadCrossovers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CrossoverLow = 5000
	cfg.CrossoverHigh = 1000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error when low crossover exceeds high crossover")
	}
}
