// Package pathfind implements shortest-path search over a probe
// visibility graph (spec §4.7): Dijkstra for bulk baking and A* for
// runtime queries, plus the path-simplification pass and the
// lexicographic path ordering the baker uses to deduplicate storage.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

// Path is the result of a shortest-path search between two probes (spec
// §3 "ProbePath"). Nodes holds only the intermediate probes, in order
// from Start to End; an invalid path sets Start = End = -1.
type Path struct {
	Valid bool
	Start int
	End   int
	Nodes []int
	Cost  float32
}

// Invalid returns the canonical no-path result.
func Invalid() Path { return Path{Start: -1, End: -1} }

// Sequence returns the full node sequence, Start through End inclusive.
func (p Path) Sequence() []int {
	if !p.Valid {
		return nil
	}
	out := make([]int, 0, len(p.Nodes)+2)
	out = append(out, p.Start)
	out = append(out, p.Nodes...)
	out = append(out, p.End)
	return out
}

// Less implements the spec §4.7 "Equality order": paths are compared
// lexicographically by node sequence; invalid paths sort before valid
// ones.
func Less(a, b Path) bool {
	if a.Valid != b.Valid {
		return !a.Valid
	}
	sa, sb := a.Sequence(), b.Sequence()
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if sa[i] != sb[i] {
			return sa[i] < sb[i]
		}
	}
	return len(sa) < len(sb)
}

// Equal reports whether two paths have the same node sequence (used by
// the baker's dedup pass, spec §4.8).
func Equal(a, b Path) bool {
	if a.Valid != b.Valid {
		return false
	}
	if !a.Valid {
		return true
	}
	sa, sb := a.Sequence(), b.Sequence()
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// --- Dijkstra bake ---------------------------------------------------

type dijkstraItem struct {
	node int
	dist float32
}

type dijkstraQueue []dijkstraItem

func (q dijkstraQueue) Len() int            { return len(q) }
func (q dijkstraQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q dijkstraQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *dijkstraQueue) Push(x interface{}) { *q = append(*q, x.(dijkstraItem)) }
func (q *dijkstraQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// FindAllShortestPaths runs Dijkstra from source bounded by pathRange,
// returning one Path per node in the graph (spec §4.7 "bake-time").
// Nodes beyond pathRange, or unreachable, come back invalid.
func FindAllShortestPaths(g *visibility.Graph, source int, pathRange float32) []Path {
	n := len(g.Edges)
	dist := make([]float32, n)
	prev := make([]int, n)
	visited := make([]bool, n)
	for i := range dist {
		dist[i] = float32(math.Inf(1))
		prev[i] = -1
	}
	dist[source] = 0

	pq := &dijkstraQueue{{node: source, dist: 0}}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(dijkstraItem)
		if visited[it.node] {
			continue
		}
		visited[it.node] = true
		for _, e := range g.Edges[it.node] {
			nd := dist[it.node] + e.Cost
			if nd > pathRange {
				continue
			}
			if nd < dist[e.Neighbor] {
				dist[e.Neighbor] = nd
				prev[e.Neighbor] = it.node
				heap.Push(pq, dijkstraItem{node: e.Neighbor, dist: nd})
			}
		}
	}

	out := make([]Path, n)
	for dst := 0; dst < n; dst++ {
		if dst == source {
			out[dst] = Path{Valid: true, Start: source, End: source}
			continue
		}
		if math.IsInf(float64(dist[dst]), 1) {
			out[dst] = Invalid()
			continue
		}
		out[dst] = Path{Valid: true, Start: source, End: dst, Nodes: reconstructNodes(prev, source, dst), Cost: dist[dst]}
	}
	return out
}

func reconstructNodes(prev []int, source, dst int) []int {
	var rev []int
	for n := prev[dst]; n != -1 && n != source; n = prev[n] {
		rev = append(rev, n)
	}
	nodes := make([]int, len(rev))
	for i, v := range rev {
		nodes[len(rev)-1-i] = v
	}
	return nodes
}

// --- A* runtime -------------------------------------------------------

// RuntimeConfig controls a runtime A* query (spec §4.7 "run-time").
type RuntimeConfig struct {
	// RealTimeVis, if set, retests each candidate edge against the live
	// scene, the spec's workaround for dynamic occluders.
	RealTimeVis bool
	Simplify    bool
}

type aStarItem struct {
	node  int
	gCost float32
	fCost float32
}

type aStarQueue []aStarItem

func (q aStarQueue) Len() int            { return len(q) }
func (q aStarQueue) Less(i, j int) bool  { return q[i].fCost < q[j].fCost }
func (q aStarQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *aStarQueue) Push(x interface{}) { *q = append(*q, x.(aStarItem)) }
func (q *aStarQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// FindShortestPath runs A* from start to end with a Euclidean heuristic
// (spec §4.7). When cfg.RealTimeVis is set, sc must be non-nil and every
// candidate edge is re-tested against it before being relaxed. When
// cfg.Simplify is set, the result is passed through Simplify.
func FindShortestPath(g *visibility.Graph, probes []probe.Probe, sc *scene.Scene, start, end int, cfg RuntimeConfig) Path {
	n := len(g.Edges)
	if start < 0 || end < 0 || start >= n || end >= n {
		return Invalid()
	}
	heuristic := func(node int) float32 {
		return probes[node].Center().Distance(probes[end].Center())
	}

	gCost := make([]float32, n)
	prev := make([]int, n)
	visited := make([]bool, n)
	for i := range gCost {
		gCost[i] = float32(math.Inf(1))
		prev[i] = -1
	}
	gCost[start] = 0

	pq := &aStarQueue{{node: start, gCost: 0, fCost: heuristic(start)}}
	for pq.Len() > 0 {
		it := heap.Pop(pq).(aStarItem)
		if visited[it.node] {
			continue
		}
		visited[it.node] = true
		if it.node == end {
			break
		}
		for _, e := range g.Edges[it.node] {
			if cfg.RealTimeVis && sc != nil {
				if sc.IsOccluded(probes[it.node].Center(), probes[e.Neighbor].Center()) {
					continue
				}
			}
			nd := gCost[it.node] + e.Cost
			if nd < gCost[e.Neighbor] {
				gCost[e.Neighbor] = nd
				prev[e.Neighbor] = it.node
				heap.Push(pq, aStarItem{node: e.Neighbor, gCost: nd, fCost: nd + heuristic(e.Neighbor)})
			}
		}
	}

	if math.IsInf(float64(gCost[end]), 1) {
		return Invalid()
	}
	path := Path{Valid: true, Start: start, End: end, Nodes: reconstructNodes(prev, start, end), Cost: gCost[end]}
	if cfg.Simplify {
		path = Simplify(path, probes, sc)
	}
	return path
}

// Simplify greedily elides a middle node whenever its neighbors see each
// other directly, shortening the path without changing its validity.
// Start and End are untouched; any intermediate node, including the one
// next to Start or End, is dropped when the last kept node sees the node
// after it. With a nil scene the path is returned unchanged.
func Simplify(p Path, probes []probe.Probe, sc *scene.Scene) Path {
	if !p.Valid || sc == nil || len(p.Nodes) == 0 {
		return p
	}
	seq := p.Sequence()
	out := []int{seq[0]}
	i := 0
	for i < len(seq)-1 {
		j := i + 1
		for j+1 < len(seq) && !sc.IsOccluded(probes[seq[i]].Center(), probes[seq[j+1]].Center()) {
			j++
		}
		out = append(out, seq[j])
		i = j
	}
	nodes := out[1 : len(out)-1]
	return Path{Valid: true, Start: p.Start, End: p.End, Nodes: append([]int(nil), nodes...), Cost: p.Cost}
}
