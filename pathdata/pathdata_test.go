package pathdata

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

// chainProbes builds the 4-node chain 0-1-2-3 from spec §8 scenario 5.
func chainProbes() ([]probe.Probe, *visibility.Graph) {
	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0}, 0.1),
		probe.NewProbe(geom.Vector3{X: 1}, 0.1),
		probe.NewProbe(geom.Vector3{X: 2}, 0.1),
		probe.NewProbe(geom.Vector3{X: 3}, 0.1),
	}
	g := &visibility.Graph{Edges: make([][]visibility.Edge, 4)}
	link := func(a, b int, cost float32) {
		g.Edges[a] = append(g.Edges[a], visibility.Edge{Neighbor: b, Cost: cost})
		g.Edges[b] = append(g.Edges[b], visibility.Edge{Neighbor: a, Cost: cost})
	}
	link(0, 1, 1)
	link(1, 2, 1)
	link(2, 3, 1)
	return probes, g
}

func TestBakeChainGraphSymmetry(t *testing.T) {
	probes, g := chainProbes()
	baked := Bake(probes, g, 100)

	p03 := baked.LookupShortestPath(0, 3)
	if p03.FirstProbe != 0 || p03.LastProbe != 3 || p03.ProbeAfterFirst != 1 || p03.ProbeBeforeLast != 2 {
		t.Fatalf("lookupShortestPath(0,3) unexpected: %+v", p03)
	}

	p30 := baked.LookupShortestPath(3, 0)
	if p30.FirstProbe != 3 || p30.LastProbe != 0 || p30.ProbeAfterFirst != 2 || p30.ProbeBeforeLast != 1 {
		t.Fatalf("lookupShortestPath(3,0) unexpected: %+v", p30)
	}
	if p03.DistanceInternal != p30.DistanceInternal {
		t.Fatalf("expected distance to be direction-independent")
	}
}

func TestBakeDedupesIdenticalPaths(t *testing.T) {
	probes, g := chainProbes()
	baked := Bake(probes, g, 1.5)
	// The chain has 4*(4+1)/2 = 10 (i,j) cells with j<=i. With a path range
	// of 1.5 only the 4 self-paths and the 3 single hops are reachable; the
	// 3 out-of-range cells all hold the same invalid path, so the unique
	// list (7 valid + 1 invalid) must be smaller than 10.
	if len(baked.UniqueSoundPaths) >= 10 {
		t.Fatalf("expected deduplication to shrink the unique path list, got %d entries", len(baked.UniqueSoundPaths))
	}
}

func TestLookupOutOfRangeInvalid(t *testing.T) {
	probes, g := chainProbes()
	baked := Bake(probes, g, 100)
	sp := baked.LookupShortestPath(0, 99)
	if sp.FirstProbe != -1 {
		t.Fatalf("expected an out-of-range lookup to report an invalid path")
	}
}
