// Package geom implements the affine primitives and scene geometry types
// that the rest of the engine builds on: vectors, matrices, coordinate
// spaces, materials, triangles, meshes, and ray hits.
package geom

import "math"

// Vector3 is a 3-component single-precision vector.
type Vector3 struct {
	X, Y, Z float32
}

func NewVector3(x, y, z float32) Vector3 { return Vector3{x, y, z} }

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(s float32) Vector3 { return Vector3{v.X * s, v.Y * s, v.Z * s} }
func (v Vector3) Neg() Vector3 { return Vector3{-v.X, -v.Y, -v.Z} }

func (v Vector3) Dot(o Vector3) float32 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) LengthSq() float32 { return v.Dot(v) }

func (v Vector3) Length() float32 { return float32(math.Sqrt(float64(v.LengthSq()))) }

// Normalized returns v scaled to unit length. A zero vector returns itself.
func (v Vector3) Normalized() Vector3 {
	l := v.Length()
	if l < 1e-9 {
		return v
	}
	return v.Scale(1 / l)
}

func (v Vector3) Lerp(o Vector3, t float32) Vector3 {
	return Vector3{
		v.X + (o.X-v.X)*t,
		v.Y + (o.Y-v.Y)*t,
		v.Z + (o.Z-v.Z)*t,
	}
}

func (v Vector3) Distance(o Vector3) float32 { return v.Sub(o).Length() }

func (v Vector3) Min(o Vector3) Vector3 {
	return Vector3{minf(v.X, o.X), minf(v.Y, o.Y), minf(v.Z, o.Z)}
}

func (v Vector3) Max(o Vector3) Vector3 {
	return Vector3{maxf(v.X, o.X), maxf(v.Y, o.Y), maxf(v.Z, o.Z)}
}

// Component returns the i-th component (0=X, 1=Y, 2=Z).
func (v Vector3) Component(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Vector4 is a 4-wide vector; used for SIMD-aligned vertex storage (spec §3).
type Vector4 struct {
	X, Y, Z, W float32
}

func NewVector4FromVector3(v Vector3, w float32) Vector4 { return Vector4{v.X, v.Y, v.Z, w} }

func (v Vector4) Vector3() Vector3 { return Vector3{v.X, v.Y, v.Z} }

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
