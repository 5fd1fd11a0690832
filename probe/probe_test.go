package probe

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

func TestIdentifierOrder(t *testing.T) {
	a := Identifier{Type: Reflections, Variation: ReverbVariation, Influence: Sphere{Center: geom.Vector3{X: 0}, Radius: 1}}
	b := Identifier{Type: Pathing, Variation: ReverbVariation, Influence: Sphere{Center: geom.Vector3{X: 0}, Radius: 1}}
	if !a.Less(b) {
		t.Fatalf("expected Reflections < Pathing within same variation")
	}
	c := Identifier{Type: Reflections, Variation: Dynamic, Influence: Sphere{}}
	if !a.Less(c) {
		t.Fatalf("expected ReverbVariation < Dynamic")
	}
}

// TestProbeTreeContainment is spec §8's concrete scenario 4: five
// infinite-radius probes all contain the origin and their weights sum to
// 1.0.
func TestProbeTreeContainment(t *testing.T) {
	inf := float32(math.Inf(1))
	centers := []geom.Vector3{
		{X: 1, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0}, {X: 0, Y: -1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	probes := make([]Probe, len(centers))
	for i, c := range centers {
		probes[i] = NewProbe(c, inf)
	}
	batch := NewBatch(probes)

	indices, weights := batch.GetInfluencingProbes(geom.Vector3{})
	if len(indices) != 5 {
		t.Fatalf("expected all 5 probes to influence origin, got %d", len(indices))
	}
	var sum float32
	for _, w := range weights {
		sum += w
	}
	if math.Abs(float64(sum-1.0)) > 1e-5 {
		t.Fatalf("expected weights to sum to 1.0, got %v", sum)
	}
}

func TestProbeTreeEmptyBatch(t *testing.T) {
	batch := NewBatch(nil)
	indices, weights := batch.GetInfluencingProbes(geom.Vector3{})
	if indices != nil || weights != nil {
		t.Fatalf("expected no influencing probes for an empty batch")
	}
}

func TestBatchDataRoundTrip(t *testing.T) {
	batch := NewBatch([]Probe{NewProbe(geom.Vector3{}, 1)})
	id := Identifier{Type: Pathing, Variation: Dynamic}
	batch.SetData(id, "payload")
	v, ok := batch.Data(id)
	if !ok || v.(string) != "payload" {
		t.Fatalf("expected to read back registered payload")
	}
	if _, ok := batch.Data(Identifier{Type: Reflections, Variation: ReverbVariation}); ok {
		t.Fatalf("expected missing identifier to report not-found")
	}
}

func TestIdentifiersSorted(t *testing.T) {
	batch := NewBatch(nil)
	batch.SetData(Identifier{Type: Pathing, Variation: Dynamic}, 1)
	batch.SetData(Identifier{Type: Reflections, Variation: ReverbVariation}, 2)
	ids := batch.Identifiers()
	if len(ids) != 2 || !ids[0].Less(ids[1]) {
		t.Fatalf("expected identifiers sorted by the spec total order, got %+v", ids)
	}
}

func TestNeighborhoodCapsPerBatch(t *testing.T) {
	var n Neighborhood
	for i := 0; i < MaxPerBatch+5; i++ {
		n.Add(0, i, 1)
	}
	if n.Len() != MaxPerBatch {
		t.Fatalf("expected neighborhood capped at %d entries per batch, got %d", MaxPerBatch, n.Len())
	}
}
