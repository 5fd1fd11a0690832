package simulator

import (
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/scene"
)

func boxScene(t *testing.T) *scene.Scene {
	t.Helper()
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.NewVector3(-10, -1, -10), 1),
		geom.NewVector4FromVector3(geom.NewVector3(10, -1, -10), 1),
		geom.NewVector4FromVector3(geom.NewVector3(10, -1, 10), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-10, -1, 10), 1),
	}
	tris := []geom.Triangle{{A: 0, B: 1, C: 2}, {A: 0, B: 2, C: 3}}
	mesh := geom.NewMesh(verts, tris, []int32{0, 0})
	sc := scene.New()
	sc.CreateStaticMesh(mesh, []geom.Material{geom.DefaultMaterial()})
	sc.Commit()
	return sc
}

func TestAddRemoveSourceReusesHandles(t *testing.T) {
	sim := New(boxScene(t))

	h1 := sim.AddSource(SourceInputs{})
	h2 := sim.AddSource(SourceInputs{})
	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %d and %d", h1, h2)
	}

	sim.RemoveSource(h1)
	if _, ok := sim.GetSource(h1); ok {
		t.Fatalf("removed source %d still reachable", h1)
	}

	h3 := sim.AddSource(SourceInputs{})
	if h3 != h1 {
		t.Fatalf("expected free-listed handle %d to be reused, got %d", h1, h3)
	}
}

func TestSetGetSourceInputs(t *testing.T) {
	sim := New(boxScene(t))
	h := sim.AddSource(SourceInputs{Seed: 1})

	in := SourceInputs{Seed: 42, ReflectionsEnabled: true}
	if !sim.SetSourceInputs(h, in) {
		t.Fatalf("SetSourceInputs failed for valid handle")
	}
	src, ok := sim.GetSource(h)
	if !ok {
		t.Fatalf("GetSource failed for valid handle")
	}
	if src.Inputs().Seed != 42 {
		t.Fatalf("Seed = %d, want 42", src.Inputs().Seed)
	}

	if sim.SetSourceInputs(999, in) {
		t.Fatalf("SetSourceInputs should fail for unknown handle")
	}
}

func TestOutputsNeverBlockBeforePublish(t *testing.T) {
	sim := New(boxScene(t))
	h := sim.AddSource(SourceInputs{})
	out, ok := sim.GetOutputs(h)
	if !ok {
		t.Fatalf("GetOutputs failed for valid handle")
	}
	if out == nil {
		t.Fatalf("expected a zero-value Outputs, got nil")
	}
}

func TestRunReflectionsPublishesOutputs(t *testing.T) {
	sim := New(boxScene(t))
	sim.SetSharedInputs(SharedInputs{
		Rays: 64, MaxBounces: 4, Duration: 0.25,
		AmbisonicOrder: 1, SampleRate: 48000,
		ReverbScale: [3]float64{1, 1, 1},
	})
	h := sim.AddSource(SourceInputs{
		Transform:          geom.NewCoordinateSpaceFromAhead(geom.NewVector3(0, 0, 0), geom.NewVector3(0, 0, 1)),
		ReflectionsEnabled: true,
		Seed:               7,
	})

	sim.RunReflections(2)

	out, ok := sim.GetOutputs(h)
	if !ok {
		t.Fatalf("GetOutputs failed")
	}
	if out.EnergyField == nil {
		t.Fatalf("expected EnergyField to be populated after RunReflections")
	}
	if out.ImpulseResponse == nil {
		t.Fatalf("expected ImpulseResponse to be populated after RunReflections")
	}
}

func TestRunDirectAppliesOcclusionMode(t *testing.T) {
	sim := New(boxScene(t))
	sim.SetSharedInputs(SharedInputs{
		ListenerTransform: geom.NewCoordinateSpaceFromAhead(geom.NewVector3(0, 5, 0), geom.NewVector3(0, 0, 1)),
	})
	h := sim.AddSource(SourceInputs{
		Transform:       geom.NewCoordinateSpaceFromAhead(geom.NewVector3(0, 5, 2), geom.NewVector3(0, 0, -1)),
		OcclusionMode:   OcclusionManual,
		ManualOcclusion: 0.5,
	})

	in, ok := sim.RunDirect(h)
	if !ok {
		t.Fatalf("RunDirect failed for valid handle")
	}
	if !in.Flags.Occlusion {
		t.Fatalf("expected Occlusion flag set")
	}
	if in.OcclusionFraction != 0.5 {
		t.Fatalf("OcclusionFraction = %v, want 0.5", in.OcclusionFraction)
	}
}

func TestCancelStopsReflections(t *testing.T) {
	sim := New(boxScene(t))
	sim.SetSharedInputs(SharedInputs{
		Rays: 4096, MaxBounces: 16, Duration: 1.0,
		AmbisonicOrder: 1, SampleRate: 48000,
	})
	h := sim.AddSource(SourceInputs{ReflectionsEnabled: true, Seed: 1})
	sim.Cancel()
	sim.RunReflections(1)

	// A cancelled pass must not publish a stale nil-EnergyField Outputs as
	// if it had succeeded; GetOutputs should still report the zero value.
	out, _ := sim.GetOutputs(h)
	if out.EnergyField != nil {
		t.Fatalf("cancelled reflection pass should not publish an EnergyField")
	}
}
