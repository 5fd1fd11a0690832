// Command material-fit searches for a uniform per-band absorption plus a
// scattering coefficient that drives a shoebox room's simulated RT60
// toward a target triple, using the teacher's Mayfly-optimizer usage
// pattern from cmd/piano-fit: a closure-based ObjectiveFunc that tracks
// the best candidate seen outside the optimizer's own Result.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/reflection"
	"github.com/cwbudde/algo-geoacoustics/reverb"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/mayfly"
)

func main() {
	targetLow := flag.Float64("target-low", 0.6, "Target low-band RT60 (s)")
	targetMid := flag.Float64("target-mid", 0.5, "Target mid-band RT60 (s)")
	targetHigh := flag.Float64("target-high", 0.4, "Target high-band RT60 (s)")
	roomSize := flag.Float64("room-size", 10, "Half-extent of the shoebox room")
	rays := flag.Int("rays", 2048, "Rays per objective evaluation (keep low: this runs many times)")
	maxBounces := flag.Int("max-bounces", 24, "Maximum bounces per ray")
	duration := flag.Float64("duration", 2.0, "Simulation duration in seconds")
	seed := flag.Int64("seed", 1, "Random seed")
	maxEvals := flag.Int("max-evals", 400, "Maximum objective evaluations")
	pop := flag.Int("pop", 10, "Mayfly male/female population size")
	workers := flag.Int("workers", 4, "Parallel ray-tracing workers per evaluation")
	flag.Parse()

	target := [3]float64{*targetLow, *targetMid, *targetHigh}

	var evals int64
	var mu sync.Mutex
	bestScore := math.Inf(1)
	var bestParams [4]float64

	cfg := mayfly.NewDESMAConfig()
	cfg.ProblemSize = 4
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = maxInt(1, *maxEvals/(2*(*pop)))
	cfg.NPop = *pop
	cfg.NPopF = *pop
	cfg.NC = 2 * *pop
	cfg.NM = maxInt(1, int(math.Round(0.05*float64(*pop))))
	cfg.Rand = rand.New(rand.NewSource(*seed))
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if atomic.AddInt64(&evals, 1) > int64(*maxEvals) {
			mu.Lock()
			s := bestScore
			mu.Unlock()
			return s + 1.0
		}
		score := objective(pos, target, *roomSize, *rays, *maxBounces, *duration, *seed, *workers)
		mu.Lock()
		if score < bestScore {
			bestScore = score
			copy(bestParams[:], pos)
		}
		mu.Unlock()
		return score
	}

	if _, err := mayfly.Optimize(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "material-fit: optimize error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Evaluations: %d\n", evals)
	fmt.Printf("Best score (sum squared log-RT60 error): %.6f\n", bestScore)
	fmt.Printf("AbsorptionLow=%.4f AbsorptionMid=%.4f AbsorptionHigh=%.4f Scattering=%.4f\n",
		bestParams[0], bestParams[1], bestParams[2], bestParams[3])
}

// objective builds a shoebox room with the candidate material, runs one
// reflection simulation, estimates RT60 per band, and returns the sum of
// squared log-ratio errors against target (0 is a perfect match).
func objective(pos []float64, target [3]float64, roomSize float64, rays, maxBounces int, duration float64, seed int64, workers int) float64 {
	mat := geom.Material{
		AbsorptionLow:  float32(pos[0]),
		AbsorptionMid:  float32(pos[1]),
		AbsorptionHigh: float32(pos[2]),
		Scattering:     float32(pos[3]),
	}
	sc := shoeboxRoom(float32(roomSize), mat)

	cfg := reflection.DefaultConfig()
	cfg.Rays = rays
	cfg.MaxBounces = maxBounces
	cfg.Duration = duration
	cfg.Seed = seed
	cfg.Workers = maxInt(1, workers)
	if err := cfg.Validate(); err != nil {
		return math.Inf(1)
	}

	var cancel atomic.Bool
	field := reflection.Simulate(sc, geom.NewVector3(0, 0, 0), nil, cfg, &cancel)
	if field == nil {
		return math.Inf(1)
	}

	rv, _ := reverb.Estimate(field, 0, 1)

	var sum float64
	for b := 0; b < 3; b++ {
		ratio := rv.RT60[b] / target[b]
		logErr := math.Log(ratio)
		sum += logErr * logErr
	}
	return sum
}

func shoeboxRoom(halfExtent float32, mat geom.Material) *scene.Scene {
	h := halfExtent
	verts := []geom.Vector4{
		geom.NewVector4FromVector3(geom.NewVector3(-h, -h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, -h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, -h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, -h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, h, -h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(h, h, h), 1),
		geom.NewVector4FromVector3(geom.NewVector3(-h, h, h), 1),
	}
	quad := func(a, b, c, d int32) []geom.Triangle {
		return []geom.Triangle{{A: a, B: b, C: c}, {A: a, B: c, C: d}}
	}
	var tris []geom.Triangle
	tris = append(tris, quad(0, 1, 2, 3)...)
	tris = append(tris, quad(7, 6, 5, 4)...)
	tris = append(tris, quad(0, 4, 5, 1)...)
	tris = append(tris, quad(3, 2, 6, 7)...)
	tris = append(tris, quad(0, 3, 7, 4)...)
	tris = append(tris, quad(1, 5, 6, 2)...)

	mesh := geom.NewMesh(verts, tris, make([]int32, len(tris)))
	sc := scene.New()
	sc.CreateStaticMesh(mesh, []geom.Material{mat})
	sc.Commit()
	return sc
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
