package binaural

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

func sampleSet() *HRIRSet {
	return &HRIRSet{
		SampleRate: 48000,
		Directions: []geom.Vector3{
			{X: 1, Y: 0, Z: 0},
			{X: -1, Y: 0, Z: 0},
			{X: 0, Y: 0, Z: 1},
			{X: 0, Y: 0, Z: -1},
		},
		Left:  [][]float64{{1, 0.5}, {0.1, 0.05}, {0.3, 0.1}, {0.3, 0.1}},
		Right: [][]float64{{0.1, 0.05}, {1, 0.5}, {0.3, 0.1}, {0.3, 0.1}},
	}
}

func TestSelectNearestPicksClosestDirection(t *testing.T) {
	set := sampleSet()
	left, right := Select(set, geom.Vector3{X: 1, Y: 0, Z: 0}, Nearest)
	if left[0] != 1 || right[0] != 0.1 {
		t.Fatalf("expected the +X HRIR pair, got left=%v right=%v", left, right)
	}
}

func TestSelectBilinearBlendsNeighbors(t *testing.T) {
	set := sampleSet()
	left, _ := Select(set, geom.Vector3{X: 1, Y: 0, Z: 0}, Bilinear)
	if left[0] <= 0.1 || left[0] >= 1 {
		t.Fatalf("expected a blended value strictly between the extremes, got %v", left[0])
	}
}

func TestProcessBlockProducesStereoOutput(t *testing.T) {
	set := sampleSet()
	e := New(set, Nearest, 1, 64)
	if err := e.SetDirection(geom.Vector3{X: 1, Y: 0, Z: 0}); err != nil {
		t.Fatalf("SetDirection returned error: %v", err)
	}
	e.SetSpatialBlend(1)
	input := make([]float32, 128)
	input[0] = 1
	left, right := e.ProcessBlock(input)
	if len(left) != len(input) || len(right) != len(input) {
		t.Fatalf("expected stereo output matching input length")
	}
}
