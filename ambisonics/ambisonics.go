// Package ambisonics implements Ambisonic rotation crossfading, canonical
// loudspeaker decode matrices, and the N3D/SN3D/FuMa channel-gain
// conventions (spec §4.13, §4.14, §4.16). Channel ordering is always ACN;
// these three encodings differ only by a per-channel scale factor.
package ambisonics

import (
	"math"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/sh"
)

// Encoding selects one of the three channel-gain conventions (spec §4.16).
type Encoding int

const (
	N3D Encoding = iota
	SN3D
	FuMa
)

func identity3() [3][3]float64 {
	return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func matrixFromSpace(space geom.CoordinateSpace3) [3][3]float64 {
	return [3][3]float64{
		{float64(space.Right.X), float64(space.Up.X), float64(space.Ahead.X)},
		{float64(space.Right.Y), float64(space.Up.Y), float64(space.Ahead.Y)},
		{float64(space.Right.Z), float64(space.Up.Z), float64(space.Ahead.Z)},
	}
}

// Rotation maintains the current and previous target orientation (spec
// §4.13 "Maintains two SHRotation objects (current, previous)") and
// crossfades between their rotated outputs across a frame.
type Rotation struct {
	engine   *sh.Rotation
	current  [3][3]float64
	previous [3][3]float64
}

// NewRotation builds a Rotation for the given Ambisonic order, starting
// at the identity orientation.
func NewRotation(order int) *Rotation {
	return &Rotation{engine: sh.NewRotation(order), current: identity3(), previous: identity3()}
}

// SetTarget retires the current orientation to previous and adopts space
// as the new current target (spec §4.13 "Rotation is computed from a
// target CoordinateSpace3").
func (r *Rotation) SetTarget(space geom.CoordinateSpace3) {
	r.previous = r.current
	r.current = matrixFromSpace(space)
}

// Apply rotates coeffs under both the previous and current orientation
// and linearly crossfades the two across frameSize samples, returning one
// coefficient vector per sample (spec §4.13: "both are evaluated
// per-sample and the outputs are linearly crossfaded... across the
// frame").
func (r *Rotation) Apply(coeffs []float64, frameSize int) [][]float64 {
	if frameSize < 1 {
		frameSize = 1
	}
	prevOut := r.engine.Apply(coeffs, r.previous)
	curOut := r.engine.Apply(coeffs, r.current)
	out := make([][]float64, frameSize)
	for i := 0; i < frameSize; i++ {
		t := 1.0
		if frameSize > 1 {
			t = float64(i) / float64(frameSize-1)
		}
		row := make([]float64, len(coeffs))
		for c := range row {
			row[c] = prevOut[c]*(1-t) + curOut[c]*t
		}
		out[i] = row
	}
	return out
}

// Layout is a canonical virtual-loudspeaker direction set (spec §4.14
// "virtual loudspeakers at canonical layout directions").
type Layout struct {
	Directions []geom.Vector3
}

func StereoLayout() Layout {
	return Layout{Directions: []geom.Vector3{
		geom.Vector3{X: -1, Y: 0, Z: 1}.Normalized(),
		geom.Vector3{X: 1, Y: 0, Z: 1}.Normalized(),
	}}
}

func QuadLayout() Layout {
	return Layout{Directions: []geom.Vector3{
		geom.Vector3{X: -1, Y: 0, Z: 1}.Normalized(),
		geom.Vector3{X: 1, Y: 0, Z: 1}.Normalized(),
		geom.Vector3{X: -1, Y: 0, Z: -1}.Normalized(),
		geom.Vector3{X: 1, Y: 0, Z: -1}.Normalized(),
	}}
}

func Layout5_1() Layout {
	deg := func(d float64) (float64, float64) {
		r := d * math.Pi / 180
		return math.Sin(r), math.Cos(r)
	}
	dirs := make([]geom.Vector3, 0, 5)
	for _, angle := range []float64{0, 30, -30, 110, -110} {
		x, z := deg(angle)
		dirs = append(dirs, geom.Vector3{X: float32(x), Y: 0, Z: float32(z)})
	}
	return Layout{Directions: dirs}
}

// DecodeMatrix builds a len(layout.Directions) x NumChannels(order)
// matrix mapping SH coefficients to per-speaker gains by evaluating the
// SH basis at each speaker direction, normalized by speaker count (spec
// §4.14 "decoded via SH").
func DecodeMatrix(layout Layout, order int) [][]float64 {
	n := sh.NumChannels(order)
	norm := 1.0
	if len(layout.Directions) > 0 {
		norm = 1.0 / float64(len(layout.Directions))
	}
	out := make([][]float64, len(layout.Directions))
	for i, d := range layout.Directions {
		basis := sh.Evaluate(order, float64(d.X), float64(d.Y), float64(d.Z))
		row := make([]float64, n)
		for c := 0; c < n && c < len(basis); c++ {
			row[c] = basis[c] * norm
		}
		out[i] = row
	}
	return out
}

// DecodeToSpeakers applies a DecodeMatrix to a coefficient vector,
// returning one gain per speaker.
func DecodeToSpeakers(matrix [][]float64, coeffs []float64) []float64 {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		var v float64
		for c := 0; c < len(row) && c < len(coeffs); c++ {
			v += row[c] * coeffs[c]
		}
		out[i] = v
	}
	return out
}

// degreeOf returns the SH degree l for ACN channel index acn (l^2 <= acn
// < (l+1)^2).
func degreeOf(acn int) int {
	l := int(math.Sqrt(float64(acn)))
	for (l+1)*(l+1) <= acn {
		l++
	}
	for l > 0 && l*l > acn {
		l--
	}
	return l
}

// encodingFactor returns the multiplier such that encodingValue =
// n3dValue * encodingFactor(acn, enc). N3D's own factor is 1 by
// definition; SN3D divides by sqrt(2l+1); FuMa additionally halves the
// zeroth-degree (omni/W) channel's power, per the legacy MaxN convention
// (spec §4.16 "conversion is channel-wise scaling").
func encodingFactor(acn int, enc Encoding) float64 {
	l := degreeOf(acn)
	switch enc {
	case N3D:
		return 1
	case SN3D:
		return 1 / math.Sqrt(float64(2*l+1))
	case FuMa:
		f := 1 / math.Sqrt(float64(2*l+1))
		if l == 0 {
			f /= math.Sqrt(2)
		}
		return f
	default:
		return 1
	}
}

// Convert rescales coeffs channel-wise from one encoding to another.
// Round-tripping through any pair of encodings is exact up to floating
// point precision (spec §4.16).
func Convert(coeffs []float64, from, to Encoding) []float64 {
	out := make([]float64, len(coeffs))
	for acn, v := range coeffs {
		n3d := v / encodingFactor(acn, from)
		out[acn] = n3d * encodingFactor(acn, to)
	}
	return out
}
