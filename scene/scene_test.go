package scene

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

func quadMesh() *geom.Mesh {
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.Vector3{X: -5, Y: 0, Z: -5}, 0),
		geom.NewVector4FromVector3(geom.Vector3{X: 5, Y: 0, Z: -5}, 0),
		geom.NewVector4FromVector3(geom.Vector3{X: 5, Y: 0, Z: 5}, 0),
		geom.NewVector4FromVector3(geom.Vector3{X: -5, Y: 0, Z: 5}, 0),
	}
	tris := []geom.Triangle{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}}
	return geom.NewMesh(verts, tris, []int32{0, 0})
}

func TestUncommittedSceneMisses(t *testing.T) {
	s := New()
	s.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	ray := geom.NewRay(geom.Vector3{X: 0, Y: 5, Z: 0}, geom.Vector3{X: 0, Y: -1, Z: 0}, 100)
	hit := s.ClosestHit(ray)
	if hit.TriangleIndex >= 0 {
		t.Fatalf("expected miss on an uncommitted scene, got %v", hit)
	}
}

func TestStaticMeshHitAfterCommit(t *testing.T) {
	s := New()
	s.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	s.Commit()
	if s.Version() != 1 {
		t.Fatalf("expected version 1 after first commit, got %d", s.Version())
	}
	ray := geom.NewRay(geom.Vector3{X: 0, Y: 5, Z: 0}, geom.Vector3{X: 0, Y: -1, Z: 0}, 100)
	hit := s.ClosestHit(ray)
	if hit.TriangleIndex < 0 {
		t.Fatalf("expected a hit on the ground plane")
	}
	if math.Abs(float64(hit.Distance-5)) > 1e-3 {
		t.Fatalf("expected hit distance ~5, got %v", hit.Distance)
	}
	if hit.Material == nil {
		t.Fatalf("expected a resolved material on the hit")
	}
}

func TestInstancedMeshTransformsHit(t *testing.T) {
	sub := New()
	sub.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	sub.Commit()

	parent := New()
	// Translate the sub-scene's ground plane up by 10 units.
	xf := geom.Identity4x4()
	xf = xf.Translated(geom.Vector3{X: 0, Y: 10, Z: 0})
	parent.CreateInstancedMesh(sub, xf)
	parent.Commit()

	ray := geom.NewRay(geom.Vector3{X: 0, Y: 20, Z: 0}, geom.Vector3{X: 0, Y: -1, Z: 0}, 100)
	hit := parent.ClosestHit(ray)
	if hit.TriangleIndex < 0 {
		t.Fatalf("expected hit against the translated instanced mesh")
	}
	if math.Abs(float64(hit.Distance-10)) > 1e-2 {
		t.Fatalf("expected hit distance ~10 after translation, got %v", hit.Distance)
	}
}

func TestRemoveStaticMeshTakesEffectOnCommit(t *testing.T) {
	s := New()
	h := s.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	s.Commit()
	s.RemoveStaticMesh(h)
	s.Commit()

	ray := geom.NewRay(geom.Vector3{X: 0, Y: 5, Z: 0}, geom.Vector3{X: 0, Y: -1, Z: 0}, 100)
	if hit := s.ClosestHit(ray); hit.TriangleIndex >= 0 {
		t.Fatalf("expected no hit after removing the only mesh, got %v", hit)
	}
}

func TestIsOccludedAgreesWithAnyHit(t *testing.T) {
	s := New()
	s.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	s.Commit()

	if !s.IsOccluded(geom.Vector3{X: 0, Y: 5, Z: 0}, geom.Vector3{X: 0, Y: -5, Z: 0}) {
		t.Fatalf("expected segment crossing the plane to be occluded")
	}
	if s.IsOccluded(geom.Vector3{X: 0, Y: 5, Z: 0}, geom.Vector3{X: 0, Y: 1, Z: 0}) {
		t.Fatalf("expected segment above the plane to be unoccluded")
	}
}

func TestBoxIntersectsMeshOnScene(t *testing.T) {
	s := New()
	s.CreateStaticMesh(quadMesh(), []geom.Material{geom.DefaultMaterial()})
	s.Commit()

	straddling := geom.Box{Min: geom.Vector3{X: -1, Y: -0.1, Z: -1}, Max: geom.Vector3{X: 1, Y: 0.1, Z: 1}}
	if !s.BoxIntersectsMesh(straddling) {
		t.Fatalf("expected box straddling the ground plane to overlap")
	}
	away := geom.Box{Min: geom.Vector3{X: 100, Y: 100, Z: 100}, Max: geom.Vector3{X: 101, Y: 101, Z: 101}}
	if s.BoxIntersectsMesh(away) {
		t.Fatalf("expected distant box not to overlap")
	}
}
