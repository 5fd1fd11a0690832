// Command ir-bake runs a single source/listener pair through the
// reflection simulator, estimates its reverb characteristics, reconstructs
// an ambisonic impulse response, decodes it to stereo, and writes the
// result to a WAV file. It adapts the teacher's cmd/ir-synth flag/report
// conventions and cmd/piano-render's WAV-encoding helper to this module's
// scene-driven pipeline instead of a closed-form synth.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sync/atomic"

	"github.com/cwbudde/algo-geoacoustics/ambisonics"
	"github.com/cwbudde/algo-geoacoustics/effects/panning"
	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/reconstruct"
	"github.com/cwbudde/algo-geoacoustics/reflection"
	"github.com/cwbudde/algo-geoacoustics/reverb"
	"github.com/cwbudde/algo-geoacoustics/scene"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func main() {
	output := flag.String("output", "ir_bake.wav", "Output WAV path")
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate")
	duration := flag.Float64("duration", 1.5, "Impulse response length in seconds")
	rays := flag.Int("rays", 8192, "Number of rays to trace")
	maxBounces := flag.Int("max-bounces", 32, "Maximum bounces per ray")
	order := flag.Int("order", 1, "Ambisonic order")
	seed := flag.Int64("seed", 1, "Random seed")
	workers := flag.Int("workers", 4, "Worker goroutines")
	roomSize := flag.Float64("room-size", 10, "Half-extent of the generated shoebox room")
	absorption := flag.Float64("absorption", 0.2, "Uniform per-band wall absorption [0,1]")
	sourceX, sourceY, sourceZ := flag.Float64("source-x", -2, "Source X"), flag.Float64("source-y", 1.5, "Source Y"), flag.Float64("source-z", 0, "Source Z")
	listenerX, listenerY, listenerZ := flag.Float64("listener-x", 2, "Listener X"), flag.Float64("listener-y", 1.5, "Listener Y"), flag.Float64("listener-z", 0, "Listener Z")
	flag.Parse()

	sc := shoeboxRoom(float32(*roomSize), float32(*absorption))
	source := geom.NewVector3(float32(*sourceX), float32(*sourceY), float32(*sourceZ))
	listener := geom.NewVector3(float32(*listenerX), float32(*listenerY), float32(*listenerZ))

	cfg := reflection.DefaultConfig()
	cfg.Rays = *rays
	cfg.MaxBounces = *maxBounces
	cfg.AmbisonicOrder = *order
	cfg.Duration = *duration
	cfg.Seed = *seed
	cfg.Workers = *workers
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "ir-bake: invalid reflection config: %v\n", err)
		os.Exit(1)
	}

	var cancel atomic.Bool
	field := reflection.Simulate(sc, source, nil, cfg, &cancel)
	if field == nil {
		fmt.Fprintln(os.Stderr, "ir-bake: simulation returned no field")
		os.Exit(1)
	}

	rv, metrics := reverb.Estimate(field, source.Distance(listener)/reflection.SpeedOfSound, 1)

	rcfg := reconstruct.DefaultConfig()
	rcfg.SampleRate = *sampleRate
	rcfg.Duration = *duration
	rcfg.Seed = *seed
	ir, err := reconstruct.Reconstruct(field, rcfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ir-bake: reconstruct error: %v\n", err)
		os.Exit(1)
	}

	left, right := decodeStereo(ir, *order)

	if err := writeStereoWAV(*output, left, right, *sampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "ir-bake: wav write error: %v\n", err)
		os.Exit(1)
	}

	peak, rms := stats(left, right)
	fmt.Printf("Wrote %s\n", *output)
	fmt.Printf("SampleRate: %d Hz, Duration: %.3f s, Samples: %d\n", *sampleRate, *duration, ir.SampleCount())
	fmt.Printf("RT60 (low/mid/high): %.3f / %.3f / %.3f s\n", rv.RT60[0], rv.RT60[1], rv.RT60[2])
	fmt.Printf("FirstArrival: %.4f s, EarlyEnergy: %.4g, LateEnergy: %.4g, Diffusion: %.3f, Density: %.3f\n",
		metrics.FirstArrivalSec, metrics.EarlyEnergy, metrics.LateEnergy, metrics.Diffusion, metrics.Density)
	fmt.Printf("Peak: %.6f, RMS: %.6f\n", peak, rms)
}

// shoeboxRoom builds a closed six-wall box of side 2*halfExtent centered
// on the origin, every wall sharing one uniform-absorption material
// (spec §4.1/§4.2 scene setup the cmd/ir-synth pipeline never needed).
func shoeboxRoom(halfExtent float32, absorption float32) *scene.Scene {
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
	tris = append(tris, quad(0, 1, 2, 3)...) // floor
	tris = append(tris, quad(7, 6, 5, 4)...) // ceiling
	tris = append(tris, quad(0, 4, 5, 1)...) // south wall
	tris = append(tris, quad(3, 2, 6, 7)...) // north wall
	tris = append(tris, quad(0, 3, 7, 4)...) // west wall
	tris = append(tris, quad(1, 5, 6, 2)...) // east wall

	materialOf := make([]int32, len(tris))
	mesh := geom.NewMesh(verts, tris, materialOf)

	mat := geom.Material{
		AbsorptionLow:  absorption,
		AbsorptionMid:  absorption,
		AbsorptionHigh: absorption,
	}

	sc := scene.New()
	sc.CreateStaticMesh(mesh, []geom.Material{mat})
	sc.Commit()
	return sc
}

// decodeStereo projects every sample's ambisonic channel vector through
// a stereo decode matrix (spec §4.14 panningEffect), producing two
// planar float32 slices.
func decodeStereo(ir *reconstruct.ImpulseResponse, order int) ([]float32, []float32) {
	panner := panning.New(ambisonics.StereoLayout(), order)
	n := ir.SampleCount()
	left := make([]float32, n)
	right := make([]float32, n)
	coeffs := make([]float64, ir.Channels)
	for t := 0; t < n; t++ {
		for ch := 0; ch < ir.Channels; ch++ {
			coeffs[ch] = float64(ir.Channel(ch)[t])
		}
		gains := panner.Decode(coeffs)
		left[t] = float32(gains[0])
		if len(gains) > 1 {
			right[t] = float32(gains[1])
		} else {
			right[t] = left[t]
		}
	}
	return left, right
}

func writeStereoWAV(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 2, 1)
	defer enc.Close()

	data := make([]float32, len(left)*2)
	for i := 0; i < len(left); i++ {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	buf := &audio.Float32Buffer{
		Format:         &audio.Format{SampleRate: sampleRate, NumChannels: 2},
		Data:           data,
		SourceBitDepth: 16,
	}
	return enc.Write(buf)
}

func stats(left, right []float32) (peak, rms float64) {
	if len(left) == 0 || len(right) == 0 {
		return 0, 0
	}
	var sum float64
	n := len(left) * 2
	for i := range left {
		lv, rv := float64(left[i]), float64(right[i])
		a := math.Abs(lv)
		if b := math.Abs(rv); b > a {
			a = b
		}
		if a > peak {
			peak = a
		}
		sum += lv*lv + rv*rv
	}
	return peak, math.Sqrt(sum / float64(n))
}
