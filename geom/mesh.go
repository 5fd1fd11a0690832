package geom

// Mesh holds a triangle soup plus per-face material indices and cached
// geometric normals (spec §3). Vertices are stored 4-wide for SIMD
// alignment, matching spec §3's vertex-storage requirement.
type Mesh struct {
	Vertices   []Vector4
	Triangles  []Triangle
	MaterialOf []int32 // per-triangle index into the owning scene's material table
	normals    []Vector3
}

// NewMesh builds a mesh and computes its cached normals.
func NewMesh(vertices []Vector4, triangles []Triangle, materialOf []int32) *Mesh {
	m := &Mesh{Vertices: vertices, Triangles: triangles, MaterialOf: materialOf}
	m.RecomputeNormals()
	return m
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int { return len(m.Triangles) }

// Vertex returns vertex i as a Vector3.
func (m *Mesh) Vertex(i int32) Vector3 { return m.Vertices[i].Vector3() }

// TriangleVertices returns the three corner positions of triangle t.
func (m *Mesh) TriangleVertices(t int) (Vector3, Vector3, Vector3) {
	tri := m.Triangles[t]
	return m.Vertex(tri.A), m.Vertex(tri.B), m.Vertex(tri.C)
}

// Normal returns the cached geometric normal of triangle t.
func (m *Mesh) Normal(t int) Vector3 {
	if t < 0 || t >= len(m.normals) {
		return Vector3{0, 1, 0}
	}
	return m.normals[t]
}

// RecomputeNormals rebuilds cached per-triangle normals; must be called
// whenever vertices or indices are rewritten (spec §3 invariant).
func (m *Mesh) RecomputeNormals() {
	m.normals = make([]Vector3, len(m.Triangles))
	for i, tri := range m.Triangles {
		a, b, c := m.Vertex(tri.A), m.Vertex(tri.B), m.Vertex(tri.C)
		n := b.Sub(a).Cross(c.Sub(a))
		m.normals[i] = n.Normalized()
	}
}

// SetVertices replaces the vertex array and recomputes normals.
func (m *Mesh) SetVertices(vertices []Vector4) {
	m.Vertices = vertices
	m.RecomputeNormals()
}

// SetTriangles replaces the triangle array and recomputes normals.
func (m *Mesh) SetTriangles(triangles []Triangle, materialOf []int32) {
	m.Triangles = triangles
	m.MaterialOf = materialOf
	m.RecomputeNormals()
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max Vector3
}

// EmptyBox returns a box primed for expansion via Extend.
func EmptyBox() Box {
	inf := float32InfPositive()
	return Box{Min: Vector3{inf, inf, inf}, Max: Vector3{-inf, -inf, -inf}}
}

func (b Box) Extend(p Vector3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

func (b Box) Union(o Box) Box {
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

func (b Box) Contains(o Box) bool {
	return b.Min.X <= o.Min.X && b.Min.Y <= o.Min.Y && b.Min.Z <= o.Min.Z &&
		b.Max.X >= o.Max.X && b.Max.Y >= o.Max.Y && b.Max.Z >= o.Max.Z
}

func (b Box) ContainsPoint(p Vector3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Box) Centroid() Vector3 { return b.Min.Add(b.Max).Scale(0.5) }

func (b Box) Extent() Vector3 { return b.Max.Sub(b.Min) }

// SurfaceArea returns the AABB's surface area, used by the BVH's SAH cost.
func (b Box) SurfaceArea() float32 {
	e := b.Extent()
	if e.X < 0 || e.Y < 0 || e.Z < 0 {
		return 0
	}
	return 2 * (e.X*e.Y + e.Y*e.Z + e.Z*e.X)
}

// LongestAxis returns 0/1/2 for the box's largest extent, used by the
// median-split fallback (spec §4.1).
func (b Box) LongestAxis() int {
	e := b.Extent()
	if e.X >= e.Y && e.X >= e.Z {
		return 0
	}
	if e.Y >= e.Z {
		return 1
	}
	return 2
}

// TriangleBox returns the AABB of triangle t.
func (m *Mesh) TriangleBox(t int) Box {
	a, b, c := m.TriangleVertices(t)
	box := EmptyBox()
	box = box.Extend(a)
	box = box.Extend(b)
	box = box.Extend(c)
	return box
}
