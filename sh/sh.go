// Package sh implements real spherical-harmonic projection, evaluation,
// and rotation up to a configured maximum order (spec §1/§4.13, glossary
// "SH"). Coefficients use ACN channel ordering and N3D normalization
// internally (spec §4.16); conversion to SN3D/FuMa lives in package
// ambisonics.
//
// Per spec §9's design note, rotation is computed in double precision and
// only cast to float32 at the point coefficients leave this package.
package sh

import "math"

// MaxOrder is the highest Ambisonic order this engine supports (spec §1
// Non-goals: "spatialized sources above third-order Ambisonics").
const MaxOrder = 3

// NumChannels returns (order+1)^2, the Ambisonic channel count for order.
func NumChannels(order int) int { return (order + 1) * (order + 1) }

// Evaluate returns the N3D-normalized real SH basis values at the unit
// direction (x,y,z) for ACN channels 0..NumChannels(order)-1, in double
// precision.
func Evaluate(order int, x, y, z float64) []float64 {
	n := NumChannels(order)
	out := make([]float64, n)
	out[0] = 1
	if order >= 1 {
		out[1] = math.Sqrt(3) * y
		out[2] = math.Sqrt(3) * z
		out[3] = math.Sqrt(3) * x
	}
	if order >= 2 {
		out[4] = math.Sqrt(15) * x * y
		out[5] = math.Sqrt(15) * y * z
		out[6] = math.Sqrt(5) / 2 * (3*z*z - 1)
		out[7] = math.Sqrt(15) * x * z
		out[8] = math.Sqrt(15) / 2 * (x*x - y*y)
	}
	if order >= 3 {
		out[9] = math.Sqrt(70) / 4 * y * (3*x*x - y*y)
		out[10] = math.Sqrt(105) * x * y * z
		out[11] = math.Sqrt(42) / 4 * y * (5*z*z - 1)
		out[12] = math.Sqrt(7) / 2 * z * (5*z*z - 3)
		out[13] = math.Sqrt(42) / 4 * x * (5*z*z - 1)
		out[14] = math.Sqrt(105) / 2 * z * (x*x - y*y)
		out[15] = math.Sqrt(70) / 4 * x * (x*x - 3*y*y)
	}
	return out
}

// EvaluateFloat32 is Evaluate with float32 direction/output, convenient for
// DSP call sites that otherwise stay in single precision.
func EvaluateFloat32(order int, x, y, z float32) []float32 {
	d := Evaluate(order, float64(x), float64(y), float64(z))
	out := make([]float32, len(d))
	for i, v := range d {
		out[i] = float32(v)
	}
	return out
}

// Project deposits weight*basis(direction) into coefficients dst (which
// must have length >= NumChannels(order)); used by the path simulator and
// the binaural effect to accumulate directional contributions.
func Project(dst []float64, order int, x, y, z, weight float64) {
	basis := Evaluate(order, x, y, z)
	for i, b := range basis {
		dst[i] += weight * b
	}
}
