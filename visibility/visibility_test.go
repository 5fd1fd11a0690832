package visibility

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/scene"
)

func emptyScene(t *testing.T) *scene.Scene {
	t.Helper()
	sc := scene.New()
	sc.Commit()
	return sc
}

func TestBuildEmptySceneFullyConnected(t *testing.T) {
	sc := emptyScene(t)
	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0, Y: 0, Z: 0}, 0.5),
		probe.NewProbe(geom.Vector3{X: 1, Y: 0, Z: 0}, 0.5),
		probe.NewProbe(geom.Vector3{X: 2, Y: 0, Z: 0}, 0.5),
	}
	cfg := DefaultBuildConfig()
	cfg.Range = 10
	g := Build(probes, sc, cfg)

	for i := range probes {
		if len(g.Edges[i]) != len(probes)-1 {
			t.Fatalf("probe %d: expected %d edges in an unoccluded scene, got %d", i, len(probes)-1, len(g.Edges[i]))
		}
	}
	if !Symmetric(g) {
		t.Fatalf("expected a symmetric graph")
	}
}

func TestBuildRespectsRange(t *testing.T) {
	sc := emptyScene(t)
	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0, Y: 0, Z: 0}, 0.5),
		probe.NewProbe(geom.Vector3{X: 100, Y: 0, Z: 0}, 0.5),
	}
	cfg := DefaultBuildConfig()
	cfg.Range = 5
	g := Build(probes, sc, cfg)
	if len(g.Edges[0]) != 0 || len(g.Edges[1]) != 0 {
		t.Fatalf("expected no edges beyond Range, got %v / %v", g.Edges[0], g.Edges[1])
	}
}

func TestBuildOccludedByWall(t *testing.T) {
	sc := scene.New()
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.Vector3{X: -5, Y: -5, Z: 0.5}, 1),
		geom.NewVector4FromVector3(geom.Vector3{X: 5, Y: -5, Z: 0.5}, 1),
		geom.NewVector4FromVector3(geom.Vector3{X: 5, Y: 5, Z: 0.5}, 1),
		geom.NewVector4FromVector3(geom.Vector3{X: -5, Y: 5, Z: 0.5}, 1),
	}
	tris := []geom.Triangle{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}}
	mesh := geom.NewMesh(verts, tris, []int32{0, 0})
	sc.CreateStaticMesh(mesh, []geom.Material{geom.DefaultMaterial()})
	sc.Commit()

	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0, Y: 0, Z: 0}, 0.05),
		probe.NewProbe(geom.Vector3{X: 0, Y: 0, Z: 1}, 0.05),
	}
	cfg := DefaultBuildConfig()
	cfg.Range = 10
	cfg.SphereRadius = 0.01
	g := Build(probes, sc, cfg)
	if len(g.Edges[0]) != 0 {
		t.Fatalf("expected the wall to occlude probe visibility, got edges %v", g.Edges[0])
	}
}

func TestPruneShrinksGraph(t *testing.T) {
	sc := emptyScene(t)
	probes := []probe.Probe{
		probe.NewProbe(geom.Vector3{X: 0, Y: 0, Z: 0}, 0.5),
		probe.NewProbe(geom.Vector3{X: 1, Y: 0, Z: 0}, 0.5),
		probe.NewProbe(geom.Vector3{X: 50, Y: 0, Z: 0}, 0.5),
	}
	cfg := DefaultBuildConfig()
	cfg.Range = 100
	g := Build(probes, sc, cfg)

	tight := cfg
	tight.Range = 10
	pruned := Prune(g, probes, sc, tight)
	if len(pruned.Edges[0]) >= len(g.Edges[0]) {
		t.Fatalf("expected pruning at a tighter range to remove edges")
	}
}
