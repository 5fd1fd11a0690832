// Package visibility builds and prunes the probe visibility graph (spec
// §4.6): for each pair of nearby probes, stratified rays between their
// spheres decide whether an edge should exist.
package visibility

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/scene"
)

// Edge is one directed entry of the visibility graph; the unpruned graph
// is symmetric (spec §3 "ProbeVisibilityGraph").
type Edge struct {
	Neighbor int
	Cost     float32
}

// Graph holds, for every probe, its list of visible-neighbor edges.
type Graph struct {
	Edges [][]Edge
}

func newGraph(n int) *Graph { return &Graph{Edges: make([][]Edge, n)} }

func (g *Graph) addEdge(i, j int, cost float32) {
	for _, e := range g.Edges[i] {
		if e.Neighbor == j {
			return
		}
	}
	g.Edges[i] = append(g.Edges[i], Edge{Neighbor: j, Cost: cost})
}

// BuildConfig controls the visibility build pass (spec §4.6, plus the
// SPEC_FULL.md asymmetric down-biased sampling supplemental feature).
type BuildConfig struct {
	Range       float32 // probes further apart than this are never linked
	RaysPerPair int     // S in spec §4.6
	Threshold   float64 // fraction of unobstructed rays required to link
	SphereRadius float32 // radius of the sample spheres rays are cast between
	Asymmetric  bool
	DownWeight  float64 // fraction of rays biased toward Down when Asymmetric
	Down        geom.Vector3
	Seed        int64
}

func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Range:        20,
		RaysPerPair:  16,
		Threshold:    0.5,
		SphereRadius: 0.1,
		DownWeight:   0,
		Down:         geom.Vector3{X: 0, Y: -1, Z: 0},
		Seed:         1,
	}
}

// Build constructs the visibility graph over probes against scene sc
// (spec §4.6). For each probe pair within cfg.Range, cfg.RaysPerPair
// stratified rays are cast between points sampled on each probe's
// cfg.SphereRadius sample sphere; if at least cfg.Threshold fraction are
// unobstructed, a symmetric edge is added with cost equal to the
// center-to-center distance.
func Build(probes []probe.Probe, sc *scene.Scene, cfg BuildConfig) *Graph {
	g := newGraph(len(probes))
	rng := rand.New(rand.NewSource(cfg.Seed))

	for i := 0; i < len(probes); i++ {
		for j := i + 1; j < len(probes); j++ {
			ci, cj := probes[i].Center(), probes[j].Center()
			dist := ci.Distance(cj)
			if dist > cfg.Range {
				continue
			}
			if visible(sc, ci, cj, cfg, rng) {
				g.addEdge(i, j, dist)
				g.addEdge(j, i, dist)
			}
		}
	}
	return g
}

// visible casts cfg.RaysPerPair rays between random points on the two
// sample spheres (uniform stratified, plus a down-biased fraction when
// cfg.Asymmetric is set per the SPEC_FULL.md supplemental feature) and
// reports whether the unobstructed fraction meets cfg.Threshold.
func visible(sc *scene.Scene, a, b geom.Vector3, cfg BuildConfig, rng *rand.Rand) bool {
	n := cfg.RaysPerPair
	if n < 1 {
		n = 1
	}
	downRays := 0
	if cfg.Asymmetric {
		downRays = int(cfg.DownWeight * float64(n))
	}
	uniformRays := n - downRays

	unobstructed := 0
	for i := 0; i < uniformRays; i++ {
		pa := samplePointOnSphere(rng, a, cfg.SphereRadius)
		pb := samplePointOnSphere(rng, b, cfg.SphereRadius)
		if !sc.IsOccluded(pa, pb) {
			unobstructed++
		}
	}
	for i := 0; i < downRays; i++ {
		pa := sampleCosineBiased(rng, a, cfg.SphereRadius, cfg.Down)
		pb := sampleCosineBiased(rng, b, cfg.SphereRadius, cfg.Down)
		if !sc.IsOccluded(pa, pb) {
			unobstructed++
		}
	}
	return float64(unobstructed) >= cfg.Threshold*float64(n)
}

func samplePointOnSphere(rng *rand.Rand, center geom.Vector3, radius float32) geom.Vector3 {
	u1, u2 := rng.Float64(), rng.Float64()
	z := 1 - 2*u1
	r := math.Sqrt(math.Max(0, 1-z*z))
	theta := 2 * math.Pi * u2
	dir := geom.Vector3{X: float32(r * math.Cos(theta)), Y: float32(r * math.Sin(theta)), Z: float32(z)}
	return center.Add(dir.Scale(radius))
}

// sampleCosineBiased samples a point in a cone around bias (e.g. Down,
// i.e. world-down for the "below listener" asymmetric mode) on the sample
// sphere, cosine-weighted toward the bias direction.
func sampleCosineBiased(rng *rand.Rand, center geom.Vector3, radius float32, bias geom.Vector3) geom.Vector3 {
	bias = bias.Normalized()
	u1, u2 := rng.Float64(), rng.Float64()
	r := math.Sqrt(u1)
	theta := 2 * math.Pi * u2
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	z := math.Sqrt(math.Max(0, 1-u1))

	t := geom.Vector3{X: 0, Y: 1, Z: 0}
	if math.Abs(float64(bias.Y)) > 0.99 {
		t = geom.Vector3{X: 1, Y: 0, Z: 0}
	}
	tangent := bias.Cross(t).Normalized()
	bitangent := bias.Cross(tangent)
	dir := tangent.Scale(float32(x)).Add(bitangent.Scale(float32(y))).Add(bias.Scale(float32(z)))
	return center.Add(dir.Normalized().Scale(radius))
}

// Prune re-tests every existing edge at a tighter range/threshold and
// drops those that no longer pass, shrinking the runtime graph after
// baking (spec §4.6 "Pruning").
func Prune(g *Graph, probes []probe.Probe, sc *scene.Scene, cfg BuildConfig) *Graph {
	out := newGraph(len(g.Edges))
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i, edges := range g.Edges {
		for _, e := range edges {
			if i >= e.Neighbor {
				continue // symmetric; process each unordered pair once
			}
			ci, cj := probes[i].Center(), probes[e.Neighbor].Center()
			if ci.Distance(cj) > cfg.Range {
				continue
			}
			if visible(sc, ci, cj, cfg, rng) {
				out.addEdge(i, e.Neighbor, e.Cost)
				out.addEdge(e.Neighbor, i, e.Cost)
			}
		}
	}
	return out
}

// Symmetric reports whether every edge has a matching reverse edge with
// equal cost (spec §8 invariant).
func Symmetric(g *Graph) bool {
	for i, edges := range g.Edges {
		for _, e := range edges {
			found := false
			for _, back := range g.Edges[e.Neighbor] {
				if back.Neighbor == i && back.Cost == e.Cost {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
