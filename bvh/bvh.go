// Package bvh implements the bounding-volume hierarchy used for ray/
// occlusion queries against a single mesh (spec §4.1).
package bvh

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

// maxStackDepth bounds the iterative traversal/build stack (spec §4.1:
// "Recursion is iterative via an explicit stack of capacity 128; deeper
// trees are a fatal error").
const maxStackDepth = 128

// node packs an AABB plus a 32-bit word whose low two bits distinguish the
// node kind and whose high 30 bits hold either a primitive index (leaf) or
// the signed offset to the left child (internal). This mirrors spec §3's
// BVHNode bit-packing even though Go doesn't need the 32-byte layout for
// cache reasons the way the original C++ did; the packing is kept for
// fidelity to the spec's invariants and to make left/right-child
// arithmetic explicit.
type node struct {
	box  geom.Box
	meta uint32
}

const kindLeaf = 3

func leafNode(box geom.Box, primIndex int32) node {
	return node{box: box, meta: uint32(primIndex)<<2 | kindLeaf}
}

func internalNode(box geom.Box, axis int, leftOffset int32) node {
	return node{box: box, meta: uint32(leftOffset)<<2 | uint32(axis)}
}

func (n node) isLeaf() bool  { return n.meta&3 == kindLeaf }
func (n node) axis() int     { return int(n.meta & 3) }
func (n node) primIndex() int32 { return int32(n.meta >> 2) }
func (n node) leftOffset() int32 { return int32(n.meta >> 2) }

// BVH is the built tree over one mesh's triangles.
type BVH struct {
	mesh  *geom.Mesh
	nodes []node
	// prims[i] is the original triangle index stored at leaf i, after SAH
	// reordering.
	prims []int32
}

type buildPrim struct {
	triIndex int32
	box      geom.Box
	centroid geom.Vector3
}

// Build constructs a BVH over mesh using a top-down SAH build with an
// object-median fallback for degenerate geometry (spec §4.1).
func Build(mesh *geom.Mesh) *BVH {
	n := mesh.NumTriangles()
	if n == 0 {
		return &BVH{mesh: mesh, nodes: []node{leafNode(geom.EmptyBox(), -1)}}
	}

	prims := make([]buildPrim, n)
	for i := 0; i < n; i++ {
		box := mesh.TriangleBox(i)
		prims[i] = buildPrim{triIndex: int32(i), box: box, centroid: box.Centroid()}
	}

	b := &BVH{mesh: mesh, nodes: make([]node, 1, 2*n-1), prims: make([]int32, 0, n)}
	b.buildRange(prims, 0, 0)
	return b
}

// buildRange builds the subtree over prims[lo:hi] (here prims is mutated
// in place per recursive call; Build passes the full slice and indices are
// tracked via Go slicing) into the already-allocated node slot myIdx,
// appending both child slots of an internal node side by side before
// recursing into them.
func (b *BVH) buildRange(prims []buildPrim, depth int, myIdx int32) {
	if depth > maxStackDepth {
		panic("bvh: build exceeded max stack depth")
	}

	box := geom.EmptyBox()
	for _, p := range prims {
		box = box.Union(p.box)
	}

	if len(prims) == 1 {
		b.nodes[myIdx] = leafNode(box, int32(len(b.prims)))
		b.prims = append(b.prims, prims[0].triIndex)
		return
	}

	axis, split, ok := bestSAHSplit(prims, box)
	if !ok {
		axis = box.LongestAxis()
		split = len(prims) / 2
		sort.Slice(prims, func(i, j int) bool {
			return prims[i].centroid.Component(axis) < prims[j].centroid.Component(axis)
		})
	}

	left := prims[:split]
	right := prims[split:]
	if len(left) == 0 || len(right) == 0 {
		// Degenerate split (all centroids identical on this axis): force a
		// median split instead of infinite recursion.
		split = len(prims) / 2
		left, right = prims[:split], prims[split:]
	}

	leftIdx := int32(len(b.nodes))
	leftOffset := leftIdx - myIdx
	b.nodes = append(b.nodes, node{}, node{}) // left and right child slots
	b.buildRange(left, depth+1, leftIdx)
	b.buildRange(right, depth+1, leftIdx+1) // right child is always left+1 in node-array order

	b.nodes[myIdx] = internalNode(box, axis, leftOffset)
}

// bestSAHSplit scans all three axes and returns the split offset (index
// into a centroid-sorted prims slice) with lowest surface-area-heuristic
// cost, mutating prims into sorted-by-chosen-axis order as a side effect.
// Returns ok=false if no split beats +Inf (degenerate geometry).
func bestSAHSplit(prims []buildPrim, parentBox geom.Box) (axis int, split int, ok bool) {
	n := len(prims)
	bestCost := math.Inf(1)
	bestAxis := -1
	bestSplit := -1
	parentArea := parentBox.SurfaceArea()
	if parentArea <= 0 {
		parentArea = 1e-9
	}

	type byAxis struct {
		axis  int
		order []buildPrim
	}
	candidates := make([]byAxis, 3)
	for a := 0; a < 3; a++ {
		ordered := append([]buildPrim(nil), prims...)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].centroid.Component(a) < ordered[j].centroid.Component(a)
		})
		candidates[a] = byAxis{axis: a, order: ordered}
	}

	leftArea := make([]float32, n+1)
	rightArea := make([]float32, n+1)

	for _, c := range candidates {
		box := geom.EmptyBox()
		for i := 0; i < n; i++ {
			box = box.Union(c.order[i].box)
			leftArea[i+1] = box.SurfaceArea()
		}
		box = geom.EmptyBox()
		for i := n - 1; i >= 0; i-- {
			box = box.Union(c.order[i].box)
			rightArea[i] = box.SurfaceArea()
		}
		for split := 1; split < n; split++ {
			nl, nr := split, n-split
			cost := (float64(leftArea[split])*float64(nl) + float64(rightArea[split])*float64(nr)) / float64(parentArea)
			imbalance := math.Abs(float64(nl) - float64(n)/2)
			if cost < bestCost-1e-9 || (math.Abs(cost-bestCost) <= 1e-9 && bestAxis >= 0 && imbalance < math.Abs(float64(bestSplit)-float64(n)/2)) {
				bestCost = cost
				bestAxis = c.axis
				bestSplit = split
			}
		}
	}

	if bestAxis < 0 || math.IsInf(bestCost, 1) {
		return 0, 0, false
	}
	copy(prims, candidates[bestAxis].order)
	return bestAxis, bestSplit, true
}

// NumNodes returns the node count (2T-1 for T leaves, per spec §3 invariant).
func (b *BVH) NumNodes() int { return len(b.nodes) }

// NodeBox exposes a node's box, used by tests validating the
// parent-contains-children invariant (spec §8).
func (b *BVH) NodeBox(i int) geom.Box { return b.nodes[i].box }

// IsLeaf reports whether node i is a leaf.
func (b *BVH) IsLeaf(i int) bool { return b.nodes[i].isLeaf() }

// Children returns the left/right child node indices of internal node i.
func (b *BVH) Children(i int) (left, right int) {
	left = i + int(b.nodes[i].leftOffset())
	right = left + 1
	return
}
