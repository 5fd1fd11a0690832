// Package pathdata implements the baked path data layer (spec §3, §4.8):
// the compact SoundPath a ProbePath reduces to after baking, and the
// triangular N×N reference table BakedPathData stores to avoid storing
// the same shortest path twice for (i,j) and (j,i).
package pathdata

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/pathfind"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/visibility"
)

// SoundPath is the compact summary of a shortest acoustic path between
// two probes (spec §3). Direct paths (start == end, i.e. no intermediate
// hop at all) set Direct=true; the probe fields then carry the
// straight-line endpoints.
type SoundPath struct {
	Direct            bool
	FirstProbe        int
	LastProbe         int
	ProbeAfterFirst   int
	ProbeBeforeLast   int
	DistanceInternal  float32
	DeviationInternal float32
}

// Reversed swaps a SoundPath's direction, used to answer lookups for
// (j,i) from the (i,j) entry actually stored (spec §4.8 invariant).
func (s SoundPath) Reversed() SoundPath {
	return SoundPath{
		Direct:            s.Direct,
		FirstProbe:        s.LastProbe,
		LastProbe:         s.FirstProbe,
		ProbeAfterFirst:   s.ProbeBeforeLast,
		ProbeBeforeLast:   s.ProbeAfterFirst,
		DistanceInternal:  s.DistanceInternal,
		DeviationInternal: s.DeviationInternal,
	}
}

func invalidSoundPath() SoundPath {
	return SoundPath{FirstProbe: -1, LastProbe: -1, ProbeAfterFirst: -1, ProbeBeforeLast: -1}
}

// refEntry points into BakedPathData.UniqueSoundPaths.
type refEntry struct {
	Index int
}

// BakedPathData holds the visibility graph a baker ran against plus the
// deduplicated set of unique shortest paths between every probe pair
// (spec §3/§4.8). Only the j<=i half of Refs is ever written; (j>i)
// lookups swap and reverse endpoints.
type BakedPathData struct {
	VisGraph         *visibility.Graph
	UniqueSoundPaths []SoundPath
	refs             [][]refEntry // triangular: refs[i] has length i+1
	numProbes        int
}

// Bake runs Dijkstra from every probe, converts each resulting ProbePath
// to a SoundPath, deduplicates identical paths, and builds the triangular
// reference table (spec §4.8 "Implementation").
func Bake(probes []probe.Probe, g *visibility.Graph, pathRange float32) *BakedPathData {
	n := len(probes)
	centers := make([]geom.Vector3, n)
	for i, p := range probes {
		centers[i] = p.Center()
	}

	cellPath := make([][]pathfind.Path, n)
	for i := 0; i < n; i++ {
		cellPath[i] = make([]pathfind.Path, i+1)
		paths := pathfind.FindAllShortestPaths(g, i, pathRange)
		for j := 0; j <= i; j++ {
			cellPath[i][j] = paths[j]
		}
	}

	var uniq []pathfind.Path
	refs := make([][]refEntry, n)
	for i := 0; i < n; i++ {
		refs[i] = make([]refEntry, i+1)
		for j := 0; j <= i; j++ {
			p := cellPath[i][j]
			idx := -1
			for k, u := range uniq {
				if pathfind.Equal(u, p) {
					idx = k
					break
				}
			}
			if idx < 0 {
				uniq = append(uniq, p)
				idx = len(uniq) - 1
			}
			refs[i][j] = refEntry{Index: idx}
		}
	}

	order := make([]int, len(uniq))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pathfind.Less(uniq[order[a]], uniq[order[b]]) })
	inv := make([]int, len(uniq))
	sortedUniq := make([]pathfind.Path, len(uniq))
	for newIdx, oldIdx := range order {
		inv[oldIdx] = newIdx
		sortedUniq[newIdx] = uniq[oldIdx]
	}
	for i := range refs {
		for j := range refs[i] {
			refs[i][j].Index = inv[refs[i][j].Index]
		}
	}

	soundPaths := make([]SoundPath, len(sortedUniq))
	for i, p := range sortedUniq {
		soundPaths[i] = toSoundPath(p, centers)
	}

	return &BakedPathData{VisGraph: g, UniqueSoundPaths: soundPaths, refs: refs, numProbes: n}
}

// FromRefs reconstructs a BakedPathData from a deserialized unique-path
// table plus its flattened triangular reference rows (spec §6
// "BakedPathingData"'s sparse i->ref mapping), used by the serialize
// package's ReadProbeBatch.
func FromRefs(unique []SoundPath, triangularRefs [][]int, g *visibility.Graph) *BakedPathData {
	refs := make([][]refEntry, len(triangularRefs))
	for i, row := range triangularRefs {
		refs[i] = make([]refEntry, len(row))
		for j, idx := range row {
			refs[i][j] = refEntry{Index: idx}
		}
	}
	return &BakedPathData{VisGraph: g, UniqueSoundPaths: unique, refs: refs, numProbes: len(triangularRefs)}
}

func toSoundPath(p pathfind.Path, centers []geom.Vector3) SoundPath {
	if !p.Valid {
		return invalidSoundPath()
	}
	seq := p.Sequence()
	sp := SoundPath{
		FirstProbe:       p.Start,
		LastProbe:        p.End,
		DistanceInternal: p.Cost,
		Direct:           p.Start == p.End,
	}
	if len(seq) >= 2 {
		sp.ProbeAfterFirst = seq[1]
		sp.ProbeBeforeLast = seq[len(seq)-2]
	} else {
		sp.ProbeAfterFirst = p.Start
		sp.ProbeBeforeLast = p.End
	}
	sp.DeviationInternal = totalDeviation(seq, centers)
	return sp
}

// totalDeviation sums the turning angle (radians) between consecutive
// hop directions along seq, used by the path simulator's per-band
// deviation-dependent EQ gain (spec §4.9, §9 DeviationModel).
func totalDeviation(seq []int, centers []geom.Vector3) float32 {
	if len(seq) < 3 {
		return 0
	}
	var total float32
	prevDir := centers[seq[1]].Sub(centers[seq[0]]).Normalized()
	for i := 1; i < len(seq)-1; i++ {
		dir := centers[seq[i+1]].Sub(centers[seq[i]]).Normalized()
		cos := prevDir.Dot(dir)
		if cos > 1 {
			cos = 1
		}
		if cos < -1 {
			cos = -1
		}
		total += float32(math.Acos(float64(cos)))
		prevDir = dir
	}
	return total
}

// LookupShortestPath returns the baked SoundPath between probes i and j
// (spec §4.8). For j>i the (j,i) entry is looked up and reversed, so the
// result is identical up to endpoint swap/reverse regardless of query
// order (spec §8 invariant).
func (b *BakedPathData) LookupShortestPath(i, j int) SoundPath {
	if i < 0 || j < 0 || i >= b.numProbes || j >= b.numProbes {
		return invalidSoundPath()
	}
	if j > i {
		return b.LookupShortestPath(j, i).Reversed()
	}
	return b.UniqueSoundPaths[b.refs[i][j].Index]
}

// NumProbes returns the probe count this data was baked over.
func (b *BakedPathData) NumProbes() int { return b.numProbes }
