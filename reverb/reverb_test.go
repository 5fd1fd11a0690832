package reverb

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-geoacoustics/energyfield"
)

func exponentialField(tau float64) *energyfield.Field {
	// 3 s is long enough that truncating the decay barely bends the
	// backward-integrated EDC inside the fitted [-2.5,-0.5] log10 window.
	f := energyfield.New(0, 3.0)
	for bin := 0; bin < f.Bins(); bin++ {
		t := float64(bin) * energyfield.BinDuration
		v := math.Exp(-t / tau)
		for b := 0; b < energyfield.NumBands; b++ {
			f.Set(0, b, bin, v)
		}
	}
	return f
}

func TestEstimateRT60MatchesKnownDecay(t *testing.T) {
	// For E(t) = exp(-t/tau), RT60 = 6*ln(10)*tau (time to drop 60dB).
	tau := 0.3
	want := 6 * math.Log(10) * tau
	f := exponentialField(tau)

	r, _ := Estimate(f, 0, 1)
	for b, got := range r.RT60 {
		if math.Abs(got-want)/want > 0.15 {
			t.Fatalf("band %d: RT60 got %v, want ~%v", b, got, want)
		}
	}
}

func TestEstimateRT60NeverBelowFloor(t *testing.T) {
	f := energyfield.New(0, 0.05)
	f.Set(0, 0, 0, 1)
	r, _ := Estimate(f, 0, 0)
	for b, got := range r.RT60 {
		if got < MinRT60 {
			t.Fatalf("band %d RT60 %v below floor %v", b, got, MinRT60)
		}
	}
}

func TestEstimateMetricsSplitEarlyLate(t *testing.T) {
	f := energyfield.New(0, 1.0)
	f.Set(0, 1, 0, 1) // well before the split
	f.Set(0, 1, 50, 1) // well after the split
	_, m := Estimate(f, 0, 1)
	if m.EarlyEnergy <= 0 || m.LateEnergy <= 0 {
		t.Fatalf("expected both early and late energy to be nonzero, got early=%v late=%v", m.EarlyEnergy, m.LateEnergy)
	}
}

func TestScalePreservesTotalEnergy(t *testing.T) {
	band := []float64{0.1, 0.5, 1.0, 0.6, 0.3, 0.1, 0.05}
	var before float64
	for _, v := range band {
		before += v
	}
	Scale(band, 2.0)
	var after float64
	for _, v := range band {
		after += v
	}
	if math.Abs(before-after) > 1e-9 {
		t.Fatalf("expected total energy preserved by Scale, before=%v after=%v", before, after)
	}
}

func TestScaleRatioAboveOneSlowsDecayShapeAfterPeak(t *testing.T) {
	band := []float64{0.1, 1.0, 0.5, 0.25, 0.125}
	orig := append([]float64(nil), band...)
	Scale(band, 4.0)
	// Values after the peak should move toward the peak (slower decay)
	// relative to their un-rescaled proportion, before renormalization
	// shrinks everything back down.
	if band[2] <= 0 || band[3] <= 0 {
		t.Fatalf("expected post-peak bins to remain positive: %v (orig %v)", band, orig)
	}
}

func TestDecayGainDecreasesWithDelay(t *testing.T) {
	g1 := DecayGain(0.01, 0.5)
	g2 := DecayGain(0.1, 0.5)
	if g2 >= g1 {
		t.Fatalf("expected gain to decrease with larger delay, got g1=%v g2=%v", g1, g2)
	}
	if g2 < 1e-8 {
		t.Fatalf("expected gain clamped at 1e-8 floor, got %v", g2)
	}
}
