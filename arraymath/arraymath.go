// Package arraymath provides the complex-arithmetic and FFT primitives the
// spec (§2 component 1, §8 testable properties) requires of the shared
// math layer: associative complex multiplication and a round-trippable
// real FFT. FFT plans are cached per transform length using the same
// sync.Map + mutex-guarded plan pattern the teacher's analysis package
// uses around the same algo-fft dependency.
package arraymath

import (
	"errors"
	"sync"

	algofft "github.com/cwbudde/algo-fft"
)

// Multiply multiplies two complex numbers. Exists as a named operation
// (rather than inlining `a*b`) so the associativity property in spec §8
// has a stable call site to test against.
func Multiply(a, b complex128) complex128 { return a * b }

type realFFTPlan struct {
	mu   sync.Mutex
	n    int
	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]
}

var planCache sync.Map // map[int]*realFFTPlan

func getPlan(n int) (*realFFTPlan, error) {
	if v, ok := planCache.Load(n); ok {
		return v.(*realFFTPlan), nil
	}
	p := &realFFTPlan{n: n}
	fast, err := algofft.NewFastPlanReal64(n)
	if err == nil {
		p.fast = fast
	} else if !errors.Is(err, algofft.ErrNotImplemented) {
		// Ignore fast-plan setup failure; fall back to the safe plan below.
	}
	safe, err := algofft.NewPlanReal64(n)
	if err != nil {
		if p.fast == nil {
			return nil, err
		}
	} else {
		p.safe = safe
	}
	actual, _ := planCache.LoadOrStore(n, p)
	return actual.(*realFFTPlan), nil
}

// FFT computes the forward real-to-complex transform of x (length n),
// returning n/2+1 complex bins.
func FFT(x []float64) ([]complex128, error) {
	p, err := getPlan(len(x))
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]complex128, len(x)/2+1)
	if p.fast != nil {
		p.fast.Forward(out, x)
		return out, nil
	}
	if p.safe != nil {
		if err := p.safe.Forward(out, x); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, errors.New("arraymath: no forward plan available")
}

// IFFT computes the inverse complex-to-real transform, producing n
// real samples from n/2+1 complex bins.
func IFFT(spec []complex128, n int) ([]float64, error) {
	p, err := getPlan(n)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, n)
	if p.fast != nil {
		p.fast.Inverse(out, spec)
		return out, nil
	}
	if p.safe != nil {
		if err := p.safe.Inverse(out, spec); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, errors.New("arraymath: no inverse plan available")
}

// MultiplySpectra multiplies two spectra element-wise in place into dst.
func MultiplySpectra(dst, a, b []complex128) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dst[i] = Multiply(a[i], b[i])
	}
}
