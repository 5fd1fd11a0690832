package probe

import (
	"sort"

	"github.com/cwbudde/algo-geoacoustics/geom"
)

// Batch owns a set of probes plus the baked-data payloads registered
// against them, keyed by Identifier (spec §3 "ProbeBatch"). The spatial
// tree is built lazily on first query and invalidated whenever the probe
// set changes.
type Batch struct {
	probes []Probe
	layers map[Identifier]any
	tree   *Tree
}

func NewBatch(probes []Probe) *Batch {
	return &Batch{probes: append([]Probe(nil), probes...), layers: make(map[Identifier]any)}
}

func (b *Batch) Probes() []Probe { return b.probes }
func (b *Batch) NumProbes() int  { return len(b.probes) }

// AddProbe appends a probe and invalidates the cached tree.
func (b *Batch) AddProbe(p Probe) int {
	b.probes = append(b.probes, p)
	b.tree = nil
	return len(b.probes) - 1
}

// SetData registers a baked payload under id, replacing any prior value.
func (b *Batch) SetData(id Identifier, data any) {
	if b.layers == nil {
		b.layers = make(map[Identifier]any)
	}
	b.layers[id] = data
}

// Data retrieves a baked payload, reporting whether it is present.
func (b *Batch) Data(id Identifier) (any, bool) {
	v, ok := b.layers[id]
	return v, ok
}

// Identifiers returns every registered identifier in the spec §3 total
// order, the order the serializer also uses for deterministic output.
func (b *Batch) Identifiers() []Identifier {
	out := make([]Identifier, 0, len(b.layers))
	for id := range b.layers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Tree lazily builds and caches the spatial tree over this batch's probes.
func (b *Batch) Tree() *Tree {
	if b.tree == nil {
		b.tree = Build(b.probes)
	}
	return b.tree
}

// InvalidateTree forces the next Tree() call to rebuild, used after
// mutating probes directly (e.g. via the game-thread commit step).
func (b *Batch) InvalidateTree() { b.tree = nil }

// GetInfluencingProbes finds every probe in the batch whose sphere
// contains p and returns normalized inverse-distance weights summing to
// 1.0 (spec §8 "getInfluencingProbes" property; spec §4.9 per-probe
// weighting for path-effect combination).
func (b *Batch) GetInfluencingProbes(p geom.Vector3) (indices []int, weights []float32) {
	indices = b.Tree().Query(p)
	if len(indices) == 0 {
		return nil, nil
	}
	weights = make([]float32, len(indices))
	var sum float32
	for i, idx := range indices {
		d := b.probes[idx].Center().Distance(p)
		w := 1 / (d + 1e-4)
		weights[i] = w
		sum += w
	}
	if sum > 0 {
		for i := range weights {
			weights[i] /= sum
		}
	}
	return indices, weights
}
