package arraymath

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"
)

func TestMultiplyIsAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		a := complex(rng.Float64()*2-1, rng.Float64()*2-1)
		b := complex(rng.Float64()*2-1, rng.Float64()*2-1)
		c := complex(rng.Float64()*2-1, rng.Float64()*2-1)
		lhs := Multiply(Multiply(a, b), c)
		rhs := Multiply(a, Multiply(b, c))
		if cmplx.Abs(lhs-rhs) > 1e-5*cmplx.Abs(lhs) && cmplx.Abs(lhs-rhs) > 1e-9 {
			t.Fatalf("associativity violated: (a*b)*c=%v a*(b*c)=%v", lhs, rhs)
		}
	}
}

func TestFFTRoundTrip(t *testing.T) {
	for _, n := range []int{64, 256, 1024} {
		x := make([]float64, n)
		rng := rand.New(rand.NewSource(int64(n)))
		for i := range x {
			x[i] = rng.Float64()*2 - 1
		}
		spec, err := FFT(x)
		if err != nil {
			t.Fatalf("FFT(%d): %v", n, err)
		}
		back, err := IFFT(spec, n)
		if err != nil {
			t.Fatalf("IFFT(%d): %v", n, err)
		}
		for i := range x {
			if math.Abs(back[i]-x[i]) > 1e-5 {
				t.Fatalf("round trip mismatch at %d: got %v want %v", i, back[i], x[i])
			}
		}
	}
}
