package probe

import (
	"sort"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

// maxStackDepth mirrors bvh's explicit-stack bound; a probe tree never
// grows anywhere near this deep in practice.
const maxStackDepth = 128

// Tree is a bounding-volume tree over a set of probe spheres, answering
// containment queries in O(log n) (spec §3 "ProbeTree").
type Tree struct {
	probes []Probe
	nodes  []treeNode
	root   int32
}

type treeNode struct {
	box         geom.Box
	left, right int32 // -1 for a leaf
	probeIndex  int32 // valid only at a leaf
}

func (n treeNode) isLeaf() bool { return n.left < 0 && n.right < 0 }

// Build constructs a median-split tree over probes. An empty probe set
// yields a tree that answers every query with no matches.
func Build(probes []Probe) *Tree {
	t := &Tree{probes: probes}
	if len(probes) == 0 {
		return t
	}
	idx := make([]int32, len(probes))
	for i := range idx {
		idx[i] = int32(i)
	}
	t.root = t.build(idx)
	return t
}

func (t *Tree) build(idx []int32) int32 {
	box := geom.EmptyBox()
	for _, i := range idx {
		box = box.Union(t.probes[i].Influence.Box())
	}

	if len(idx) == 1 {
		n := treeNode{box: box, left: -1, right: -1, probeIndex: idx[0]}
		t.nodes = append(t.nodes, n)
		return int32(len(t.nodes) - 1)
	}

	axis := box.LongestAxis()
	sort.Slice(idx, func(a, b int) bool {
		ca := t.probes[idx[a]].Center()
		cb := t.probes[idx[b]].Center()
		return ca.Component(axis) < cb.Component(axis)
	})
	mid := len(idx) / 2

	myIdx := int32(len(t.nodes))
	t.nodes = append(t.nodes, treeNode{box: box})

	left := t.build(append([]int32(nil), idx[:mid]...))
	right := t.build(append([]int32(nil), idx[mid:]...))
	t.nodes[myIdx].left = left
	t.nodes[myIdx].right = right
	t.nodes[myIdx].probeIndex = -1
	return myIdx
}

// Query returns the indices of every probe whose sphere contains p.
func (t *Tree) Query(p geom.Vector3) []int {
	var out []int
	if len(t.nodes) == 0 {
		return out
	}
	var stack [maxStackDepth]int32
	sp := 0
	stack[sp] = t.root
	sp++
	for sp > 0 {
		sp--
		n := t.nodes[stack[sp]]
		if !n.box.ContainsPoint(p) {
			continue
		}
		if n.isLeaf() {
			probe := t.probes[n.probeIndex]
			if probe.Influence.Contains(p) {
				out = append(out, int(n.probeIndex))
			}
			continue
		}
		if sp < maxStackDepth {
			stack[sp] = n.left
			sp++
		}
		if sp < maxStackDepth {
			stack[sp] = n.right
			sp++
		}
	}
	return out
}
