// Package reflection implements the stochastic reflection simulator (spec
// §4.3): stratified ray tracing from a source into a scene, depositing
// directionally-projected, band-weighted energy into one EnergyField per
// source. No listener position is involved: the energy of every surface
// hit goes into the source's field.
package reflection

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-geoacoustics/energyfield"
	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/algo-geoacoustics/sh"
)

// SpeedOfSound in meters/second, used to convert traveled length to
// time-of-flight.
const SpeedOfSound = 343.0

// Directivity shapes the per-ray outgoing energy with a cardioid pattern:
// (1-DipoleWeight) + DipoleWeight*dot(d,ahead)^DipolePower (spec §4.3 step 1).
type Directivity struct {
	DipoleWeight float64
	DipolePower  float64
	Ahead        geom.Vector3
}

func (d Directivity) weight(direction geom.Vector3) float64 {
	if d.DipoleWeight == 0 {
		return 1
	}
	cos := float64(direction.Dot(d.Ahead))
	if cos < 0 {
		cos = 0
	}
	return (1 - d.DipoleWeight) + d.DipoleWeight*math.Pow(cos, d.DipolePower)
}

// Config controls one reflection simulation pass.
type Config struct {
	Rays          int
	MaxBounces    int
	AmbisonicOrder int
	Duration      float64 // seconds, matches the target EnergyField's duration
	RayBatchSize  int
	Seed          int64
	Directivity   Directivity
	Workers       int
}

func DefaultConfig() Config {
	return Config{
		Rays:           4096,
		MaxBounces:     16,
		AmbisonicOrder: 1,
		Duration:       1.0,
		RayBatchSize:   256,
		Seed:           1,
		Workers:        1,
	}
}

func (c *Config) Validate() error {
	if c.Rays < 1 {
		return fmt.Errorf("rays must be >= 1")
	}
	if c.MaxBounces < 0 {
		return fmt.Errorf("max bounces must be >= 0")
	}
	if c.AmbisonicOrder < 0 || c.AmbisonicOrder > sh.MaxOrder {
		return fmt.Errorf("ambisonic order out of range [0,%d]: %d", sh.MaxOrder, c.AmbisonicOrder)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.RayBatchSize < 1 {
		return fmt.Errorf("ray batch size must be >= 1")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	return nil
}

// Simulate traces cfg.Rays rays from source into sc and returns the
// resulting per-source EnergyField. cancel, if non-nil, is polled between
// ray batches (spec §4.3 Cancellation); on cancellation the partial result
// is discarded and Simulate returns nil.
func Simulate(sc *scene.Scene, source geom.Vector3, materials func(triangleIndex int32) geom.Material, cfg Config, cancel *atomic.Bool) *energyfield.Field {
	field := energyfield.New(cfg.AmbisonicOrder, cfg.Duration)

	numBatches := (cfg.Rays + cfg.RayBatchSize - 1) / cfg.RayBatchSize
	results := make([]*energyfield.Field, cfg.Workers)
	var wg sync.WaitGroup

	raysPerWorker := cfg.Rays / cfg.Workers
	extra := cfg.Rays % cfg.Workers

	rayIdx := 0
	for w := 0; w < cfg.Workers; w++ {
		n := raysPerWorker
		if w < extra {
			n++
		}
		start := rayIdx
		rayIdx += n
		wg.Add(1)
		go func(worker, start, count int) {
			defer wg.Done()
			local := energyfield.New(cfg.AmbisonicOrder, cfg.Duration)
			rng := rand.New(rand.NewSource(cfg.Seed + int64(worker)*9973))
			traceWorker(sc, source, materials, cfg, local, rng, start, count, numBatches, cancel)
			results[worker] = local
		}(w, start, n)
	}
	wg.Wait()

	if cancel != nil && cancel.Load() {
		return nil
	}

	for _, r := range results {
		field.Merge(r)
	}
	return field
}

func traceWorker(sc *scene.Scene, source geom.Vector3, materials func(int32) geom.Material, cfg Config, field *energyfield.Field, rng *rand.Rand, start, count, numBatches int, cancel *atomic.Bool) {
	for i := 0; i < count; i++ {
		if i%cfg.RayBatchSize == 0 && cancel != nil && cancel.Load() {
			return
		}
		dir := stratifiedDirection(rng, start+i, cfg.Rays)
		weight := cfg.Directivity.weight(dir)
		traceRay(sc, source, dir, weight, materials, cfg, field)
	}
}

// stratifiedDirection draws a sample from index i of N on a Fibonacci
// sphere, jittered within its stratum (spec §4.3 "stratified sphere-cap
// sampling").
func stratifiedDirection(rng *rand.Rand, i, n int) geom.Vector3 {
	if n < 1 {
		n = 1
	}
	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	jitter := (rng.Float64() - 0.5) / float64(n)
	frac := (float64(i)+0.5)/float64(n) + jitter
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	z := 1 - 2*frac
	r := math.Sqrt(math.Max(0, 1-z*z))
	theta := goldenAngle * float64(i)
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	return geom.Vector3{X: float32(x), Y: float32(y), Z: float32(z)}.Normalized()
}

func traceRay(sc *scene.Scene, origin geom.Vector3, direction geom.Vector3, initWeight float64, materials func(int32) geom.Material, cfg Config, field *energyfield.Field) {
	energy := [geom.NumBands]float64{initWeight, initWeight, initWeight}
	pos := origin
	dir := direction
	t := 0.0
	rng := rand.New(rand.NewSource(int64(math.Float32bits(origin.X)) ^ int64(math.Float32bits(direction.Z))))

	for bounce := 0; bounce <= cfg.MaxBounces; bounce++ {
		ray := geom.NewRay(pos, dir, 1e6)
		hit := sc.ClosestHit(ray)
		if hit.TriangleIndex < 0 {
			return
		}
		t += float64(hit.Distance) / SpeedOfSound
		bin := int(t / energyfield.BinDuration)
		if bin >= energyfield.NumBins(cfg.Duration) {
			return
		}

		var mat geom.Material
		if hit.Material != nil {
			mat = *hit.Material
		} else if materials != nil {
			mat = materials(hit.TriangleIndex)
		} else {
			mat = geom.DefaultMaterial()
		}

		hitPos := pos.Add(dir.Scale(hit.Distance))
		basis := sh.Evaluate(cfg.AmbisonicOrder, float64(dir.X), float64(dir.Y), float64(dir.Z))

		for b := 0; b < geom.NumBands; b++ {
			absorption := float64(mat.Absorption(b))
			deposit := energy[b] * absorption * (1 - float64(mat.Scattering))
			for ch, basisVal := range basis {
				field.Add(ch, b, bin, deposit*basisVal)
			}
			energy[b] *= (1 - absorption)
		}

		pos = hitPos
		dir = reflectDirection(rng, dir, hit.Normal, mat.Scattering)

		total := energy[0] + energy[1] + energy[2]
		if total < 1e-9 {
			return
		}
	}
}

// reflectDirection blends a specular and a cosine-weighted diffuse
// reflection in proportion (1-scattering, scattering) (spec §4.3 step 2).
func reflectDirection(rng *rand.Rand, incoming, normal geom.Vector3, scattering float32) geom.Vector3 {
	specular := incoming.Sub(normal.Scale(2 * incoming.Dot(normal)))
	if rng.Float64() >= float64(scattering) {
		return specular.Normalized()
	}
	return cosineWeightedHemisphere(rng, normal)
}

func cosineWeightedHemisphere(rng *rand.Rand, normal geom.Vector3) geom.Vector3 {
	u1 := rng.Float64()
	u2 := rng.Float64()
	r := math.Sqrt(u1)
	theta := 2 * math.Pi * u2
	x := r * math.Cos(theta)
	y := r * math.Sin(theta)
	z := math.Sqrt(math.Max(0, 1-u1))

	t := geom.Vector3{X: 0, Y: 1, Z: 0}
	if math.Abs(float64(normal.Y)) > 0.99 {
		t = geom.Vector3{X: 1, Y: 0, Z: 0}
	}
	tangent := normal.Cross(t).Normalized()
	bitangent := normal.Cross(tangent)

	local := tangent.Scale(float32(x)).Add(bitangent.Scale(float32(y))).Add(normal.Scale(float32(z)))
	return local.Normalized()
}
