// Package probe implements the probe system's static data model (spec §3,
// §4.6): spherical probes, the array/batch containers that own them, the
// baked-data identifier key, and the per-batch spatial tree used for
// O(log n) containment queries.
package probe

import "github.com/cwbudde/algo-geoacoustics/geom"

// Sphere is a probe's volume of influence.
type Sphere struct {
	Center geom.Vector3
	Radius float32
}

// Contains reports whether p lies within the sphere (spec §8: "for all
// query points inside a probe's sphere, getInfluencingProbes returns that
// probe").
func (s Sphere) Contains(p geom.Vector3) bool {
	return s.Center.Distance(p) <= s.Radius
}

// Box returns the sphere's bounding AABB, used by the ProbeTree build.
func (s Sphere) Box() geom.Box {
	r := geom.Vector3{X: s.Radius, Y: s.Radius, Z: s.Radius}
	return geom.Box{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// Probe is a sphere of influence, the atomic unit of the probe system
// (spec §3).
type Probe struct {
	Influence Sphere
}

func NewProbe(center geom.Vector3, radius float32) Probe {
	return Probe{Influence: Sphere{Center: center, Radius: radius}}
}

func (p Probe) Center() geom.Vector3 { return p.Influence.Center }
func (p Probe) Radius() float32      { return p.Influence.Radius }

// Array owns a flat set of probes (spec §3 "ProbeArray owns probes").
type Array struct {
	Probes []Probe
}

func NewArray() *Array { return &Array{} }

// Add appends a probe and returns its index.
func (a *Array) Add(p Probe) int {
	a.Probes = append(a.Probes, p)
	return len(a.Probes) - 1
}

func (a *Array) Len() int { return len(a.Probes) }

// DataType distinguishes what kind of payload a baked-data layer carries
// (spec §3 BakedDataIdentifier).
type DataType uint8

const (
	Reflections DataType = iota
	Pathing
)

// Variation distinguishes why a layer was baked (spec §3).
type Variation uint8

const (
	ReverbVariation Variation = iota
	StaticSource
	StaticListener
	Dynamic
)

// Identifier is the composite key a ProbeBatch uses to store baked
// payloads (spec §3). Ordering is the total order spec §3 defines:
// (variation, type, center.x, center.y, center.z, radius).
type Identifier struct {
	Type      DataType
	Variation Variation
	Influence Sphere
}

// Less implements the spec §3 total order.
func (a Identifier) Less(b Identifier) bool {
	if a.Variation != b.Variation {
		return a.Variation < b.Variation
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	ac, bc := a.Influence.Center, b.Influence.Center
	if ac.X != bc.X {
		return ac.X < bc.X
	}
	if ac.Y != bc.Y {
		return ac.Y < bc.Y
	}
	if ac.Z != bc.Z {
		return ac.Z < bc.Z
	}
	return a.Influence.Radius < b.Influence.Radius
}
