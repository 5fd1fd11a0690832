package pathfind

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

// chainGraph builds the 4-node chain 0-1-2-3 from spec §8 scenario 5.
func chainGraph() *visibility.Graph {
	g := &visibility.Graph{Edges: make([][]visibility.Edge, 4)}
	link := func(a, b int, cost float32) {
		g.Edges[a] = append(g.Edges[a], visibility.Edge{Neighbor: b, Cost: cost})
		g.Edges[b] = append(g.Edges[b], visibility.Edge{Neighbor: a, Cost: cost})
	}
	link(0, 1, 1)
	link(1, 2, 1)
	link(2, 3, 1)
	return g
}

func TestDijkstraChainGraphSymmetry(t *testing.T) {
	g := chainGraph()

	fromZero := FindAllShortestPaths(g, 0, 100)
	p03 := fromZero[3]
	if !p03.Valid || len(p03.Nodes) != 2 || p03.Nodes[0] != 1 || p03.Nodes[1] != 2 {
		t.Fatalf("lookupShortestPath(0,3) expected nodes {1,2}, got %+v", p03)
	}

	fromThree := FindAllShortestPaths(g, 3, 100)
	p30 := fromThree[0]
	if !p30.Valid || len(p30.Nodes) != 2 || p30.Nodes[0] != 2 || p30.Nodes[1] != 1 {
		t.Fatalf("lookupShortestPath(3,0) expected nodes {2,1}, got %+v", p30)
	}
}

func TestDijkstraBoundedByRange(t *testing.T) {
	g := chainGraph()
	paths := FindAllShortestPaths(g, 0, 1.5)
	if paths[1].Valid == false {
		t.Fatalf("expected node 1 (cost 1) reachable within range 1.5")
	}
	if paths[3].Valid {
		t.Fatalf("expected node 3 (cost 3) unreachable within range 1.5")
	}
}

func TestPathLessOrdersInvalidFirst(t *testing.T) {
	valid := Path{Valid: true, Start: 0, End: 1}
	if !Less(Invalid(), valid) {
		t.Fatalf("expected an invalid path to sort before a valid one")
	}
	if Less(valid, Invalid()) {
		t.Fatalf("expected a valid path to not sort before an invalid one")
	}
}

func TestPathLessLexicographic(t *testing.T) {
	a := Path{Valid: true, Start: 0, End: 2, Nodes: []int{1}}
	b := Path{Valid: true, Start: 0, End: 3, Nodes: []int{1, 2}}
	if !Less(a, b) {
		t.Fatalf("expected shorter-sequence-with-smaller-prefix path to sort first")
	}
}

func TestAStarMatchesDijkstraOnChain(t *testing.T) {
	g := chainGraph()
	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0}, 0.1),
		probe.NewProbe(geom.Vector3{X: 1}, 0.1),
		probe.NewProbe(geom.Vector3{X: 2}, 0.1),
		probe.NewProbe(geom.Vector3{X: 3}, 0.1),
	}
	p := FindShortestPath(g, probes, nil, 0, 3, RuntimeConfig{})
	if !p.Valid || len(p.Nodes) != 2 || p.Nodes[0] != 1 || p.Nodes[1] != 2 {
		t.Fatalf("A* expected nodes {1,2}, got %+v", p)
	}
}

func TestSimplifyLeavesEndpointsUntouched(t *testing.T) {
	p := Path{Valid: true, Start: 0, End: 3, Nodes: []int{1, 2}}
	simplified := Simplify(p, nil, nil)
	if simplified.Start != 0 || simplified.End != 3 {
		t.Fatalf("expected Simplify to leave endpoints untouched when sc is nil")
	}
}
