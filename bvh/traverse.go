package bvh

import (
	"math"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

// precomputedRay caches reciprocal direction and sign, per spec §4.1.
type precomputedRay struct {
	origin   geom.Vector3
	invDir   [3]float32
	sign     [3]int // 0 = positive direction, 1 = negative
}

func precomputeRay(r geom.Ray) precomputedRay {
	var pr precomputedRay
	pr.origin = r.Origin
	d := [3]float32{r.Direction.X, r.Direction.Y, r.Direction.Z}
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			// Degenerate zero-direction component: +Inf reciprocal yields an
			// empty slab interval, not a NaN (spec §4.1 Failure note).
			pr.invDir[i] = float32(math.Inf(1))
		} else {
			pr.invDir[i] = 1 / d[i]
		}
		if pr.invDir[i] < 0 {
			pr.sign[i] = 1
		}
	}
	return pr
}

func boxSlab(box geom.Box, pr precomputedRay, tMin, tMax float32) (float32, float32, bool) {
	bounds := [2]geom.Vector3{box.Min, box.Max}
	origin := [3]float32{pr.origin.X, pr.origin.Y, pr.origin.Z}

	for i := 0; i < 3; i++ {
		near := componentOf(bounds[pr.sign[i]], i)
		far := componentOf(bounds[1-pr.sign[i]], i)
		t0 := (near - origin[i]) * pr.invDir[i]
		t1 := (far - origin[i]) * pr.invDir[i]
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}

func componentOf(v geom.Vector3, i int) float32 { return v.Component(i) }

type stackEntry struct {
	node int
	tMin float32
	tMax float32
}

// ClosestHit finds the nearest intersection along ray, or Miss() if none.
func (b *BVH) ClosestHit(ray geom.Ray) geom.Hit {
	if len(b.nodes) == 0 {
		return geom.Miss()
	}
	pr := precomputeRay(ray)
	best := geom.Miss()
	bestT := ray.MaxT

	var stack [maxStackDepth]stackEntry
	sp := 0
	stack[sp] = stackEntry{node: 0, tMin: ray.MinT, tMax: bestT}
	sp++

	for sp > 0 {
		sp--
		cur := stack[sp]
		if cur.tMin > bestT {
			continue
		}
		n := b.nodes[cur.node]
		tMin, tMax, ok := boxSlab(n.box, pr, cur.tMin, minf(cur.tMax, bestT))
		if !ok {
			continue
		}
		_ = tMin
		if n.isLeaf() {
			if n.primIndex() < 0 {
				continue
			}
			tri := int(b.prims[n.primIndex()])
			if t, normal, hit := rayTriangle(ray, b.mesh, tri, ray.MinT, bestT); hit {
				if t < bestT {
					bestT = t
					best = geom.Hit{
						Distance:      t,
						TriangleIndex: int32(tri),
						ObjectIndex:   0,
						MaterialIndex: materialIndexOf(b.mesh, tri),
						Normal:        normal,
					}
				}
			}
			continue
		}

		left, right := b.Children(cur.node)
		// Visit the near child first; push the far child with the clipped
		// interval (spec §4.1 traversal order).
		nearFirst := n.axis() < 3 && pr.sign[n.axis()] == 0
		firstChild, secondChild := left, right
		if !nearFirst {
			firstChild, secondChild = right, left
		}
		if sp < maxStackDepth {
			stack[sp] = stackEntry{node: secondChild, tMin: tMin, tMax: tMax}
			sp++
		}
		if sp < maxStackDepth {
			stack[sp] = stackEntry{node: firstChild, tMin: tMin, tMax: tMax}
			sp++
		}
	}

	if best.TriangleIndex < 0 {
		return geom.Miss()
	}
	return best
}

// AnyHit returns true as soon as any intersection inside [MinT,MaxT] is found.
func (b *BVH) AnyHit(ray geom.Ray) bool {
	if len(b.nodes) == 0 {
		return false
	}
	pr := precomputeRay(ray)

	var stack [maxStackDepth]int
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		idx := stack[sp]
		n := b.nodes[idx]
		_, _, ok := boxSlab(n.box, pr, ray.MinT, ray.MaxT)
		if !ok {
			continue
		}
		if n.isLeaf() {
			if n.primIndex() < 0 {
				continue
			}
			tri := int(b.prims[n.primIndex()])
			if _, _, hit := rayTriangle(ray, b.mesh, tri, ray.MinT, ray.MaxT); hit {
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

// IsOccluded tests whether the segment [start,end] is blocked by geometry.
func (b *BVH) IsOccluded(start, end geom.Vector3) bool {
	d := end.Sub(start)
	dist := d.Length()
	if dist < 1e-8 {
		return false
	}
	ray := geom.Ray{Origin: start, Direction: d.Scale(1 / dist), MinT: 1e-4, MaxT: dist - 1e-4}
	return b.AnyHit(ray)
}

func materialIndexOf(mesh *geom.Mesh, tri int) int32 {
	if tri < 0 || tri >= len(mesh.MaterialOf) {
		return 0
	}
	return mesh.MaterialOf[tri]
}

// rayTriangle implements Möller-Trumbore with an early reject on a
// near-zero determinant (spec §4.1).
func rayTriangle(ray geom.Ray, mesh *geom.Mesh, tri int, tMin, tMax float32) (float32, geom.Vector3, bool) {
	a, bv, c := mesh.TriangleVertices(tri)
	e1 := bv.Sub(a)
	e2 := c.Sub(a)
	pvec := ray.Direction.Cross(e2)
	det := e1.Dot(pvec)
	if det > -1e-9 && det < 1e-9 {
		return 0, geom.Vector3{}, false
	}
	invDet := 1 / det
	tvec := ray.Origin.Sub(a)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return 0, geom.Vector3{}, false
	}
	qvec := tvec.Cross(e1)
	v := ray.Direction.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return 0, geom.Vector3{}, false
	}
	t := e2.Dot(qvec) * invDet
	if t < tMin || t > tMax {
		return 0, geom.Vector3{}, false
	}
	n := mesh.Normal(tri)
	if n.Dot(ray.Direction) > 0 {
		n = n.Neg()
	}
	return t, n, true
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
