package probe

import "github.com/cwbudde/algo-geoacoustics/geom"

// MaxPerBatch bounds how many probes a single batch contributes to a
// Neighborhood (spec §3: "Fixed-capacity (<= 8 per batch...)").
const MaxPerBatch = 8

// Neighborhood holds the probes influencing a query point across one or
// more batches, their weights, per-probe occlusion flags, and a scratch
// ray buffer the occlusion check reuses across calls to avoid per-frame
// allocation (spec §3 "ProbeNeighborhood").
type Neighborhood struct {
	BatchIndex []int
	ProbeIndex []int
	Weight     []float32
	Occluded   []bool

	scratchRays []geom.Ray
}

// Reset clears the neighborhood for reuse without reallocating backing
// arrays.
func (n *Neighborhood) Reset() {
	n.BatchIndex = n.BatchIndex[:0]
	n.ProbeIndex = n.ProbeIndex[:0]
	n.Weight = n.Weight[:0]
	n.Occluded = n.Occluded[:0]
}

// Add appends one influencing probe, capped at MaxPerBatch contributions
// per distinct batch index.
func (n *Neighborhood) Add(batchIdx, probeIdx int, weight float32) {
	count := 0
	for _, b := range n.BatchIndex {
		if b == batchIdx {
			count++
		}
	}
	if count >= MaxPerBatch {
		return
	}
	n.BatchIndex = append(n.BatchIndex, batchIdx)
	n.ProbeIndex = append(n.ProbeIndex, probeIdx)
	n.Weight = append(n.Weight, weight)
	n.Occluded = append(n.Occluded, false)
}

func (n *Neighborhood) Len() int { return len(n.ProbeIndex) }

// Normalize rescales Weight so it sums to 1.0.
func (n *Neighborhood) Normalize() {
	var sum float32
	for _, w := range n.Weight {
		sum += w
	}
	if sum <= 0 {
		return
	}
	for i := range n.Weight {
		n.Weight[i] /= sum
	}
}

// ScratchRay returns (allocating if necessary) the i-th scratch ray slot
// used by occlusion checks against this neighborhood's probes.
func (n *Neighborhood) ScratchRay(i int) *geom.Ray {
	for len(n.scratchRays) <= i {
		n.scratchRays = append(n.scratchRays, geom.Ray{})
	}
	return &n.scratchRays[i]
}

// CheckOcclusion marks each probe's Occluded flag by casting a ray from
// listener to the probe center through occluded (spec §4.9 step 3 uses
// this to test a baked SoundPath's endpoints against the live scene).
func (n *Neighborhood) CheckOcclusion(listener geom.Vector3, centers []geom.Vector3, occluded func(a, b geom.Vector3) bool) {
	for i, probeIdx := range n.ProbeIndex {
		if probeIdx < 0 || probeIdx >= len(centers) {
			continue
		}
		ray := n.ScratchRay(i)
		d := centers[probeIdx].Sub(listener)
		*ray = geom.Ray{Origin: listener, Direction: d.Normalized(), MinT: 1e-4, MaxT: d.Length()}
		n.Occluded[i] = occluded(listener, centers[probeIdx])
	}
}
