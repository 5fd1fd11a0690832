// Package pathsim implements the per-frame path simulator (spec §4.9):
// combining a direct line-of-sight test with baked probe-to-probe
// SoundPaths into Ambisonic SH coefficients, per-band EQ gains, and an
// average direction/distance ratio for downstream DSP effects.
package pathsim

import (
	"math"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/pathdata"
	"github.com/cwbudde/algo-geoacoustics/pathfind"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/algo-geoacoustics/sh"
)

// Config controls one per-frame path simulation pass (spec §4.9).
type Config struct {
	AmbisonicOrder int

	// NearestSourceProbeOnly restricts enumeration to the single closest
	// source-influencing probe rather than every one (spec §4.9 step 2:
	// "by default, use only the nearest source probe").
	NearestSourceProbeOnly bool

	// FindAlternatePaths re-plans with A* when a baked path is occluded
	// under the current scene (spec §4.9 step 3).
	FindAlternatePaths bool

	// ForceOcclusion disables the direct line-of-sight shortcut even when
	// it would otherwise be unoccluded.
	ForceOcclusion bool
}

func DefaultConfig() Config {
	return Config{AmbisonicOrder: 1, NearestSourceProbeOnly: true, FindAlternatePaths: true}
}

// Result bundles the per-frame path-effect inputs (spec §4.9 step 4).
type Result struct {
	Direct           bool
	SHCoefficients   []float64 // length sh.NumChannels(order)
	EQGains          [3]float32
	AverageDirection geom.Vector3
	DistanceRatio    float32 // pathed distance / direct distance
}

// deviationModel resolves spec §9's open question: a simple monotonically
// non-increasing function of deviation angle with f(0)=1, reaching 0 at
// angle=pi and staying 0 for larger cumulative angles.
func deviationModel(angleRadians float32) float32 {
	if angleRadians > math.Pi {
		angleRadians = math.Pi
	}
	v := float32(math.Cos(float64(angleRadians)/2)) * float32(math.Cos(float64(angleRadians)/2))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

type pathContribution struct {
	weight    float32
	length    float32
	direction geom.Vector3
	deviation float32
}

// Simulate runs one path-simulation frame from source to listener (spec
// §4.9). sourceBatch/listenerBatch supply the probes influencing each
// endpoint; baked holds the precomputed SoundPath table over their shared
// probe graph.
func Simulate(source, listener geom.Vector3, sc *scene.Scene, sourceBatch, listenerBatch *probe.Batch, probes []probe.Probe, baked *pathdata.BakedPathData, cfg Config) Result {
	directDist := source.Distance(listener)

	if !cfg.ForceOcclusion && (sc == nil || !sc.IsOccluded(source, listener)) {
		return Result{
			Direct:           true,
			SHCoefficients:   directSH(cfg.AmbisonicOrder, source, listener),
			EQGains:          [3]float32{1, 1, 1},
			AverageDirection: listener.Sub(source).Normalized(),
			DistanceRatio:    1,
		}
	}

	if sourceBatch == nil || listenerBatch == nil || baked == nil {
		return Result{SHCoefficients: make([]float64, sh.NumChannels(cfg.AmbisonicOrder))}
	}

	srcIdx, srcW := sourceBatch.GetInfluencingProbes(source)
	dstIdx, dstW := listenerBatch.GetInfluencingProbes(listener)
	if cfg.NearestSourceProbeOnly && len(srcIdx) > 1 {
		best := 0
		for i := 1; i < len(srcW); i++ {
			if srcW[i] > srcW[best] {
				best = i
			}
		}
		srcIdx, srcW = srcIdx[best:best+1], srcW[best:best+1]
	}

	var contributions []pathContribution
	for si, sp := range srcIdx {
		for di, dp := range dstIdx {
			sound := baked.LookupShortestPath(sp, dp)
			if sound.FirstProbe < 0 {
				continue
			}
			if cfg.FindAlternatePaths && sc != nil && pathOccluded(sc, probes, sound) {
				replanned := pathfind.FindShortestPath(baked.VisGraph, probes, sc, sp, dp, pathfind.RuntimeConfig{RealTimeVis: true, Simplify: true})
				if !replanned.Valid {
					continue
				}
				sound = rebuildSoundPath(replanned, probes)
			}
			length := source.Distance(probes[sp].Center()) + sound.DistanceInternal + probes[dp].Center().Distance(listener)
			lastHopFrom := probes[sound.ProbeBeforeLast].Center()
			dir := listener.Sub(lastHopFrom).Normalized()
			contributions = append(contributions, pathContribution{
				weight:    srcW[si] * dstW[di],
				length:    length,
				direction: dir,
				deviation: sound.DeviationInternal,
			})
		}
	}

	return combine(cfg.AmbisonicOrder, contributions, directDist)
}

func pathOccluded(sc *scene.Scene, probes []probe.Probe, sp pathdata.SoundPath) bool {
	if sp.ProbeAfterFirst < 0 || sp.ProbeBeforeLast < 0 {
		return false
	}
	return sc.IsOccluded(probes[sp.FirstProbe].Center(), probes[sp.ProbeAfterFirst].Center()) ||
		sc.IsOccluded(probes[sp.ProbeBeforeLast].Center(), probes[sp.LastProbe].Center())
}

func rebuildSoundPath(p pathfind.Path, probes []probe.Probe) pathdata.SoundPath {
	seq := p.Sequence()
	sp := pathdata.SoundPath{FirstProbe: p.Start, LastProbe: p.End, DistanceInternal: p.Cost}
	if len(seq) >= 2 {
		sp.ProbeAfterFirst = seq[1]
		sp.ProbeBeforeLast = seq[len(seq)-2]
	} else {
		sp.ProbeAfterFirst = p.Start
		sp.ProbeBeforeLast = p.End
	}
	return sp
}

func directSH(order int, source, listener geom.Vector3) []float64 {
	dir := listener.Sub(source)
	d := float64(dir.Length())
	if d < 1e-6 {
		d = 1e-6
	}
	n := dir.Normalized()
	dst := make([]float64, sh.NumChannels(order))
	sh.Project(dst, order, float64(n.X), float64(n.Y), float64(n.Z), 1)
	return dst
}

// combine merges every path's contribution into SH coefficients
// (spec §4.9: "each path becomes a virtual source ... SH-projected and
// scaled by distance attenuation"), per-band EQ gains derived from
// cumulative deviation (shelving model, normalized to peak 1), and the
// weighted average direction/distance ratio.
func combine(order int, contributions []pathContribution, directDist float32) Result {
	dst := make([]float64, sh.NumChannels(order))
	var avgDir geom.Vector3
	var weightedLength, totalWeight float32
	var lowSum, midSum, highSum float32

	for _, c := range contributions {
		atten := 1 / (1 + c.length)
		sh.Project(dst, order, float64(c.direction.X), float64(c.direction.Y), float64(c.direction.Z), float64(c.weight*atten))
		avgDir = avgDir.Add(c.direction.Scale(c.weight))
		weightedLength += c.weight * c.length
		totalWeight += c.weight

		decay := deviationModel(c.deviation)
		lowSum += c.weight * 1
		midSum += c.weight * (0.5 + 0.5*decay)
		highSum += c.weight * decay
	}

	result := Result{SHCoefficients: dst}
	if totalWeight > 0 {
		result.AverageDirection = avgDir.Scale(1 / totalWeight).Normalized()
		result.DistanceRatio = (weightedLength / totalWeight) / maxf(directDist, 1e-4)
		gains := [3]float32{lowSum / totalWeight, midSum / totalWeight, highSum / totalWeight}
		peak := gains[0]
		for _, g := range gains {
			if g > peak {
				peak = g
			}
		}
		if peak > 0 {
			for i := range gains {
				gains[i] /= peak
			}
		}
		result.EQGains = gains
	} else {
		result.EQGains = [3]float32{0, 0, 0}
	}
	return result
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
