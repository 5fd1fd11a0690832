package panning

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/ambisonics"
)

func TestDecodeOmniSpreadsEquallyAcrossSpeakers(t *testing.T) {
	p := New(ambisonics.QuadLayout(), 1)
	gains := p.Decode([]float64{1, 0, 0, 0})
	if len(gains) != 4 {
		t.Fatalf("expected 4 speaker gains, got %d", len(gains))
	}
	for i := 1; i < len(gains); i++ {
		if gains[i] != gains[0] {
			t.Fatalf("expected an omni signal to decode equally to every speaker, got %v", gains)
		}
	}
}

func TestProcessSampleScalesByGain(t *testing.T) {
	p := New(ambisonics.StereoLayout(), 1)
	gains := []float64{0.5, 1.5}
	out := p.ProcessSample(2, gains)
	if out[0] != 1 || out[1] != 3 {
		t.Fatalf("expected [1, 3], got %v", out)
	}
}
