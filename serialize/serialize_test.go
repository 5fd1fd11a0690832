package serialize

import (
	"bytes"
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/pathdata"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

func sampleMesh() *geom.Mesh {
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.NewVector3(0, 0, 0), 1),
		geom.NewVector4FromVector3(geom.NewVector3(1, 0, 0), 1),
		geom.NewVector4FromVector3(geom.NewVector3(0, 1, 0), 1),
	}
	tris := []geom.Triangle{{A: 0, B: 1, C: 2}}
	return geom.NewMesh(verts, tris, []int32{0})
}

func TestMeshRoundTrip(t *testing.T) {
	m := sampleMesh()
	var buf bytes.Buffer
	if err := WriteMesh(&buf, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	got, err := ReadMesh(&buf)
	if err != nil {
		t.Fatalf("ReadMesh: %v", err)
	}
	if got.NumTriangles() != m.NumTriangles() {
		t.Fatalf("triangle count mismatch: got %d want %d", got.NumTriangles(), m.NumTriangles())
	}
	for i := range m.Vertices {
		if got.Vertices[i] != m.Vertices[i] {
			t.Errorf("vertex %d mismatch: got %v want %v", i, got.Vertices[i], m.Vertices[i])
		}
	}
	for i := range m.Triangles {
		if got.Triangles[i] != m.Triangles[i] {
			t.Errorf("triangle %d mismatch: got %v want %v", i, got.Triangles[i], m.Triangles[i])
		}
	}
}

func TestMeshRejectsNewerVersion(t *testing.T) {
	m := sampleMesh()
	var buf bytes.Buffer
	if err := WriteMesh(&buf, m); err != nil {
		t.Fatalf("WriteMesh: %v", err)
	}
	raw := buf.Bytes()
	// Bump the embedded version word past what this reader supports.
	raw[0] = byte(SchemaVersion + 1)
	if _, err := ReadMesh(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected rejection of a newer schema version")
	}
}

func TestProbeBatchRoundTripWithoutLayers(t *testing.T) {
	probes := []probe.Probe{
		probe.NewProbe(geom.NewVector3(0, 0, 0), 1),
		probe.NewProbe(geom.NewVector3(5, 0, 0), 1),
	}
	batch := probe.NewBatch(probes)

	var buf bytes.Buffer
	if err := WriteProbeBatch(&buf, batch); err != nil {
		t.Fatalf("WriteProbeBatch: %v", err)
	}
	got, err := ReadProbeBatch(&buf)
	if err != nil {
		t.Fatalf("ReadProbeBatch: %v", err)
	}
	if got.NumProbes() != batch.NumProbes() {
		t.Fatalf("probe count mismatch: got %d want %d", got.NumProbes(), batch.NumProbes())
	}
}

func TestProbeBatchRoundTripWithPathingLayer(t *testing.T) {
	probes := []probe.Probe{
		probe.NewProbe(geom.NewVector3(0, 0, 0), 1),
		probe.NewProbe(geom.NewVector3(2, 0, 0), 1),
		probe.NewProbe(geom.NewVector3(4, 0, 0), 1),
	}
	g := &visibility.Graph{Edges: [][]visibility.Edge{
		{{Neighbor: 1, Cost: 2}},
		{{Neighbor: 0, Cost: 2}, {Neighbor: 2, Cost: 2}},
		{{Neighbor: 1, Cost: 2}},
	}}
	bpd := pathdata.Bake(probes, g, 100)

	batch := probe.NewBatch(probes)
	id := probe.Identifier{
		Type:      probe.Pathing,
		Variation: probe.Dynamic,
		Influence: probe.Sphere{Center: geom.NewVector3(0, 0, 0), Radius: 1000},
	}
	batch.SetData(id, bpd)

	var buf bytes.Buffer
	if err := WriteProbeBatch(&buf, batch); err != nil {
		t.Fatalf("WriteProbeBatch: %v", err)
	}
	got, err := ReadProbeBatch(&buf)
	if err != nil {
		t.Fatalf("ReadProbeBatch: %v", err)
	}

	data, ok := got.Data(id)
	if !ok {
		t.Fatalf("pathing layer missing after round trip")
	}
	gotBPD := data.(*pathdata.BakedPathData)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := bpd.LookupShortestPath(i, j)
			gotSP := gotBPD.LookupShortestPath(i, j)
			if gotSP != want {
				t.Errorf("LookupShortestPath(%d,%d) = %+v, want %+v", i, j, gotSP, want)
			}
		}
	}
}
