package sh

import (
	"math"
	"testing"
)

func TestEvaluateOrder0IsConstant(t *testing.T) {
	b := Evaluate(0, 0.6, 0.8, 0)
	if len(b) != 1 || b[0] != 1 {
		t.Fatalf("expected single unit channel, got %v", b)
	}
}

func TestNumChannels(t *testing.T) {
	for order, want := range map[int]int{0: 1, 1: 4, 2: 9, 3: 16} {
		if got := NumChannels(order); got != want {
			t.Fatalf("order %d: got %d channels, want %d", order, got, want)
		}
	}
}

func identity3() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func TestRotationIdentityIsApproxNoOp(t *testing.T) {
	r := NewRotation(2)
	coeffs := []float64{1, 0.2, -0.3, 0.5, 0.1, -0.1, 0.4, -0.2, 0.05}
	out := r.Apply(coeffs, identity3())
	for i := range coeffs {
		if math.Abs(out[i]-coeffs[i]) > 1e-2 {
			t.Fatalf("channel %d: got %v want %v", i, out[i], coeffs[i])
		}
	}
}

func TestRotationPreservesOmniChannel(t *testing.T) {
	r := NewRotation(1)
	coeffs := []float64{1, 0, 0, 0}
	// 90 degree rotation about Y.
	rot := [3][3]float64{{0, 0, 1}, {0, 1, 0}, {-1, 0, 0}}
	out := r.Apply(coeffs, rot)
	if math.Abs(out[0]-1) > 1e-2 {
		t.Fatalf("omni channel should be rotation-invariant, got %v", out[0])
	}
}
