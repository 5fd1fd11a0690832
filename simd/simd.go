// Package simd is a portable 4-wide/8-wide float vector shim (spec §2
// component 1). It carries no platform intrinsics — Go has no portable
// SIMD intrinsic surface in the standard library — but keeps the lane
// width explicit. No other package of this module imports it.
package simd

// Float4 holds four independent lanes, one per frequency-band-adjacent
// quantity (the engine uses 3 bands; the 4th lane is typically unused or
// carries a scalar passenger value such as a distance).
type Float4 [4]float32

func SplatFloat4(v float32) Float4 { return Float4{v, v, v, v} }

func (a Float4) Add(b Float4) Float4 {
	return Float4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func (a Float4) Sub(b Float4) Float4 {
	return Float4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func (a Float4) Mul(b Float4) Float4 {
	return Float4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func (a Float4) MulScalar(s float32) Float4 {
	return Float4{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

func (a Float4) Sum() float32 { return a[0] + a[1] + a[2] + a[3] }

// Float8 is the optional 8-wide variant (spec §9 open question); nothing
// in this module uses it. Exact numerical match with the 4-wide path is
// not guaranteed and is tolerated at 1e-6 relative error, per spec.
type Float8 [8]float32

func SplatFloat8(v float32) Float8 {
	var f Float8
	for i := range f {
		f[i] = v
	}
	return f
}

func (a Float8) Add(b Float8) Float8 {
	var out Float8
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return out
}

func (a Float8) Mul(b Float8) Float8 {
	var out Float8
	for i := range out {
		out[i] = a[i] * b[i]
	}
	return out
}

func (a Float8) Sum() float32 {
	var s float32
	for _, v := range a {
		s += v
	}
	return s
}

// Level names a SIMD width (spec §9 "SIMD level negotiation"
// supplemental feature); acoustics.Context keeps its own SIMDLevel type
// and does not use this one.
type Level int

const (
	LevelAuto Level = iota
	Level4
	Level8
)
