package bvh

import "github.com/cwbudde/algo-geoacoustics/geom"

// BoxIntersectsMesh tests whether box overlaps any triangle of the mesh,
// used only by the probe generator (spec §4.1). It walks the BVH, pruning
// subtrees whose box doesn't overlap, and runs a full separating-axis test
// (three face-normal axes plus nine edge-cross-axis projections) against
// candidate triangles.
func (b *BVH) BoxIntersectsMesh(box geom.Box) bool {
	if len(b.nodes) == 0 {
		return false
	}
	var stack [maxStackDepth]int
	sp := 0
	stack[sp] = 0
	sp++
	for sp > 0 {
		sp--
		idx := stack[sp]
		n := b.nodes[idx]
		if !boxesOverlap(n.box, box) {
			continue
		}
		if n.isLeaf() {
			if n.primIndex() < 0 {
				continue
			}
			tri := int(b.prims[n.primIndex()])
			a, bb, c := b.mesh.TriangleVertices(tri)
			if triangleBoxSAT(a, bb, c, box) {
				return true
			}
			continue
		}
		left, right := b.Children(idx)
		if sp < maxStackDepth {
			stack[sp] = left
			sp++
		}
		if sp < maxStackDepth {
			stack[sp] = right
			sp++
		}
	}
	return false
}

func boxesOverlap(a, b geom.Box) bool {
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// triangleBoxSAT implements the Akenine-Moller triangle/AABB separating
// axis test: three box-face-normal axes, one triangle-normal axis, and
// nine edge-cross-axis projections (spec §4.1 "Box-mesh overlap").
func triangleBoxSAT(a, bv, c geom.Vector3, box geom.Box) bool {
	center := box.Centroid()
	half := box.Extent().Scale(0.5)

	v0 := a.Sub(center)
	v1 := bv.Sub(center)
	v2 := c.Sub(center)

	// Box-face-normal axes: AABB/triangle overlap reduces to per-axis min/max.
	for axis := 0; axis < 3; axis++ {
		min := minf3(v0.Component(axis), v1.Component(axis), v2.Component(axis))
		max := maxf3(v0.Component(axis), v1.Component(axis), v2.Component(axis))
		if min > half.Component(axis) || max < -half.Component(axis) {
			return false
		}
	}

	// Triangle-normal axis.
	e0 := v1.Sub(v0)
	e1 := v2.Sub(v1)
	normal := e0.Cross(e1)
	if !planeBoxOverlap(normal, v0, half) {
		return false
	}

	// Nine edge-cross-axis tests.
	edges := [3]geom.Vector3{e0, e1, v0.Sub(v2)}
	axes := [3]geom.Vector3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	verts := [3]geom.Vector3{v0, v1, v2}
	for _, e := range edges {
		for _, axUnit := range axes {
			axisVec := axUnit.Cross(e)
			if axisVec.LengthSq() < 1e-12 {
				continue
			}
			p0 := axisVec.Dot(verts[0])
			p1 := axisVec.Dot(verts[1])
			p2 := axisVec.Dot(verts[2])
			r := half.X*absf(axisVec.X) + half.Y*absf(axisVec.Y) + half.Z*absf(axisVec.Z)
			mn := minf3(p0, p1, p2)
			mx := maxf3(p0, p1, p2)
			if mn > r || mx < -r {
				return false
			}
		}
	}
	return true
}

func planeBoxOverlap(normal, vert, half geom.Vector3) bool {
	var vmin, vmax geom.Vector3
	vmin.X, vmax.X = signedExtent(normal.X, half.X)
	vmin.Y, vmax.Y = signedExtent(normal.Y, half.Y)
	vmin.Z, vmax.Z = signedExtent(normal.Z, half.Z)
	vmin = vmin.Sub(vert)
	vmax = vmax.Sub(vert)
	if normal.Dot(vmin) > 0 {
		return false
	}
	if normal.Dot(vmax) >= 0 {
		return true
	}
	return false
}

func signedExtent(n, h float32) (min, max float32) {
	if n > 0 {
		return -h, h
	}
	return h, -h
}

func minf3(a, b, c float32) float32 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxf3(a, b, c float32) float32 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
