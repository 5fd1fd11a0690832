// Package scene implements the scene graph (spec §4.2): a collection of
// static and instanced meshes with a committed BVH per mesh, a materials
// table, and the closest/any-hit queries the rest of the engine relies on.
package scene

import (
	"sync"

	"github.com/cwbudde/algo-geoacoustics/bvh"
	"github.com/cwbudde/algo-geoacoustics/geom"
)

// StaticMeshHandle and InstancedMeshHandle identify meshes within a scene.
type StaticMeshHandle int32
type InstancedMeshHandle int32

type staticEntry struct {
	mesh      *geom.Mesh
	materials []geom.Material
	tree      *bvh.BVH
	removed   bool
}

type instancedEntry struct {
	sub       *Scene
	transform geom.Matrix4x4
	inverse   geom.Matrix4x4
	removed   bool
}

// Scene is an unordered collection of static/instanced meshes plus a
// monotonically increasing commit version (spec §3).
type Scene struct {
	mu        sync.RWMutex
	statics   []staticEntry
	instanced []instancedEntry
	version   uint64
	committed bool
}

func New() *Scene { return &Scene{} }

// CreateStaticMesh registers a mesh + its material table and returns a
// handle. Takes effect on the next Commit.
func (s *Scene) CreateStaticMesh(mesh *geom.Mesh, materials []geom.Material) StaticMeshHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statics = append(s.statics, staticEntry{mesh: mesh, materials: materials})
	s.committed = false
	return StaticMeshHandle(len(s.statics) - 1)
}

// RemoveStaticMesh marks a mesh for removal; takes effect on the next Commit.
func (s *Scene) RemoveStaticMesh(h StaticMeshHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h) < 0 || int(h) >= len(s.statics) {
		return
	}
	s.statics[h].removed = true
	s.committed = false
}

// CreateInstancedMesh wraps a sub-scene with a 4x4 transform (spec §3).
func (s *Scene) CreateInstancedMesh(sub *Scene, transform geom.Matrix4x4) InstancedMeshHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instanced = append(s.instanced, instancedEntry{sub: sub, transform: transform, inverse: transform.Inverse()})
	s.committed = false
	return InstancedMeshHandle(len(s.instanced) - 1)
}

// RemoveInstancedMesh marks an instance for removal.
func (s *Scene) RemoveInstancedMesh(h InstancedMeshHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(h) < 0 || int(h) >= len(s.instanced) {
		return
	}
	s.instanced[h].removed = true
	s.committed = false
}

// Commit finalizes pending edits: rebuilds BVHs for any static mesh
// without one, compacts removed entries, and advances the version counter
// (spec §4.2).
func (s *Scene) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	live := s.statics[:0]
	for _, e := range s.statics {
		if e.removed {
			continue
		}
		if e.tree == nil {
			e.tree = bvh.Build(e.mesh)
		}
		live = append(live, e)
	}
	s.statics = live

	liveInst := s.instanced[:0]
	for _, e := range s.instanced {
		if e.removed {
			continue
		}
		liveInst = append(liveInst, e)
	}
	s.instanced = liveInst

	s.version++
	s.committed = true
}

// Version returns the current commit version.
func (s *Scene) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// ClosestHit queries the nearest intersection across every static and
// instanced mesh. An uncommitted scene always reports a miss (spec §4.2).
func (s *Scene) ClosestHit(ray geom.Ray) geom.Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.committed {
		return geom.Miss()
	}

	best := geom.Miss()
	bestT := ray.MaxT

	for objIdx, e := range s.statics {
		if e.tree == nil {
			continue
		}
		localRay := ray
		localRay.MaxT = bestT
		hit := e.tree.ClosestHit(localRay)
		if hit.Distance < bestT {
			bestT = hit.Distance
			hit.ObjectIndex = int32(objIdx)
			if int(hit.MaterialIndex) < len(e.materials) {
				m := e.materials[hit.MaterialIndex]
				hit.Material = &m
			}
			best = hit
		}
	}

	for _, e := range s.instanced {
		localRay := geom.Ray{
			Origin:    e.inverse.TransformPoint(ray.Origin),
			Direction: e.inverse.TransformDirection(ray.Direction),
			MinT:      ray.MinT,
			MaxT:      bestT,
		}
		hit := e.sub.ClosestHit(localRay)
		if hit.Distance < bestT {
			worldNormal := e.transform.TransformDirection(hit.Normal).Normalized()
			hit.Normal = worldNormal
			bestT = hit.Distance
			best = hit
		}
	}

	return best
}

// AnyHit reports whether any geometry occludes ray within its interval.
func (s *Scene) AnyHit(ray geom.Ray) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.committed {
		return false
	}
	for _, e := range s.statics {
		if e.tree != nil && e.tree.AnyHit(ray) {
			return true
		}
	}
	for _, e := range s.instanced {
		localRay := geom.Ray{
			Origin:    e.inverse.TransformPoint(ray.Origin),
			Direction: e.inverse.TransformDirection(ray.Direction),
			MinT:      ray.MinT,
			MaxT:      ray.MaxT,
		}
		if e.sub.AnyHit(localRay) {
			return true
		}
	}
	return false
}

// IsOccluded tests the segment [start,end] against every mesh in the scene.
func (s *Scene) IsOccluded(start, end geom.Vector3) bool {
	d := end.Sub(start)
	dist := d.Length()
	if dist < 1e-8 {
		return false
	}
	ray := geom.Ray{Origin: start, Direction: d.Scale(1 / dist), MinT: 1e-4, MaxT: dist - 1e-4}
	return s.AnyHit(ray)
}

// BoxIntersectsMesh tests box against every committed static mesh (used by
// the probe generator, spec §4.1).
func (s *Scene) BoxIntersectsMesh(box geom.Box) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.statics {
		if e.tree != nil && e.tree.BoxIntersectsMesh(box) {
			return true
		}
	}
	return false
}
