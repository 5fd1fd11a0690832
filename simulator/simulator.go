// Package simulator implements spec §2 component 8 and spec §3/§5's
// Source/Simulator state: the façade that aggregates per-source
// reflection/pathing/direct-path inputs, orchestrates them across a
// jobgraph worker pool, and publishes results to the audio thread
// through acoustics.DoubleBuffer. It generalizes the teacher's
// piano.Piano orchestration shape (NewX constructor, AddSource-style
// lifecycle, Set*/Get* accessors operating on a small owned struct) from
// a single instrument to many concurrently-simulated sources.
package simulator

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-geoacoustics/acoustics"
	"github.com/cwbudde/algo-geoacoustics/effects/direct"
	"github.com/cwbudde/algo-geoacoustics/energyfield"
	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/jobgraph"
	"github.com/cwbudde/algo-geoacoustics/pathdata"
	"github.com/cwbudde/algo-geoacoustics/pathsim"
	"github.com/cwbudde/algo-geoacoustics/probe"
	"github.com/cwbudde/algo-geoacoustics/reconstruct"
	"github.com/cwbudde/algo-geoacoustics/reflection"
	"github.com/cwbudde/algo-geoacoustics/reverb"
	"github.com/cwbudde/algo-geoacoustics/scene"
)

// OcclusionMode selects how a source's direct-path occlusion fraction is
// derived (spec §3 "occlusion mode").
type OcclusionMode int

const (
	OcclusionNone OcclusionMode = iota
	OcclusionRaycast
	OcclusionManual
)

// SharedInputs are the listener/global parameters every source's
// simulation pass reads (spec §3 "Shared inputs").
type SharedInputs struct {
	ListenerTransform geom.CoordinateSpace3
	Rays              int
	MaxBounces        int
	Duration          float64
	AmbisonicOrder    int
	SampleRate        int
	ReverbScale       [3]float64 // per-band RT60 scaling ratio; 1 = no scaling (spec §4.4)
	ReflectionsDelay  float64
	MidBand           int
}

// DefaultSharedInputs returns a reasonable default shared configuration.
func DefaultSharedInputs() SharedInputs {
	return SharedInputs{
		Rays:           4096,
		MaxBounces:     16,
		Duration:       1.0,
		AmbisonicOrder: 1,
		SampleRate:     48000,
		ReverbScale:    [3]float64{1, 1, 1},
		MidBand:        1,
	}
}

// SourceInputs are the per-source parameters spec §3 describes.
type SourceInputs struct {
	Transform geom.CoordinateSpace3

	// DistanceAttenuation/AirAbsorption model the source's chosen curves;
	// nil defaults to unity gain / no absorption.
	DistanceAttenuation func(distance float32) float32
	AirAbsorption       func(distance float32) [3]float32
	Directivity         reflection.Directivity

	OcclusionMode   OcclusionMode
	ManualOcclusion float32

	ReflectionsEnabled bool
	PathingEnabled     bool

	HybridTransitionSeconds float64
	HybridOverlapFraction   float64

	// Materials resolves a triangle's material when the scene's own
	// per-triangle table doesn't carry one (spec §4.3 traceRay fallback).
	Materials func(triangleIndex int32) geom.Material

	// Seed drives the reflection/reconstruction RNGs (spec §8 scenario 6
	// reproducibility).
	Seed int64
}

// Outputs bundles everything a frame of DSP needs from the most recent
// simulation pass (spec §3 "Outputs").
type Outputs struct {
	EnergyField     *energyfield.Field
	Reverb          reverb.Reverb
	Metrics         reverb.Metrics
	ImpulseResponse *reconstruct.ImpulseResponse
	DirectInputs    direct.Inputs
	PathResult      pathsim.Result
}

// Source holds one source's double-buffered inputs/outputs (spec §3/§5).
type Source struct {
	handle int

	mu     sync.RWMutex
	inputs SourceInputs

	outputs acoustics.DoubleBuffer[Outputs]
}

// Handle returns the source's stable integer handle.
func (s *Source) Handle() int { return s.handle }

// Inputs returns a copy of the source's current inputs.
func (s *Source) Inputs() SourceInputs {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inputs
}

// SetInputs overwrites the source's inputs (control-thread write).
func (s *Source) SetInputs(in SourceInputs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = in
}

// Outputs returns the most recently published outputs (audio-thread
// read, never blocks — spec §5 DoubleBuffer contract).
func (s *Source) Outputs() *Outputs { return s.outputs.Acquire() }

// Simulator is the orchestration façade: owns a scene, an optional probe
// batch/baked path data, a free-list of source handles, and runs
// reflection/pathing jobs across a jobgraph pool (spec §2 component 8).
type Simulator struct {
	sc *scene.Scene

	sourceBatch   *probe.Batch
	listenerBatch *probe.Batch
	probes        []probe.Probe
	baked         *pathdata.BakedPathData

	sharedMu sync.RWMutex
	shared   SharedInputs

	// lifecycleMu serializes AddSource/RemoveSource (spec §5: "concurrent
	// addSource/removeSource are serialized by a small mutex").
	lifecycleMu sync.Mutex
	freeList    []int
	nextHandle  int

	// sourcesMu guards the handle->Source map separately so GetSource
	// lookups never block behind an in-flight addSource/removeSource
	// (spec §5: "per-source getSource(handle) uses a separate mutex").
	sourcesMu sync.RWMutex
	sources   map[int]*Source

	cancel atomic.Bool
}

// New builds a Simulator over a committed scene.
func New(sc *scene.Scene) *Simulator {
	return &Simulator{
		sc:      sc,
		sources: make(map[int]*Source),
		shared:  DefaultSharedInputs(),
	}
}

// SetSharedInputs publishes new listener/global parameters (spec §6
// "set-shared-inputs").
func (s *Simulator) SetSharedInputs(in SharedInputs) {
	s.sharedMu.Lock()
	defer s.sharedMu.Unlock()
	s.shared = in
}

// SharedInputs returns a copy of the current shared inputs.
func (s *Simulator) SharedInputs() SharedInputs {
	s.sharedMu.RLock()
	defer s.sharedMu.RUnlock()
	return s.shared
}

// SetProbeData installs the probe set, source/listener influence
// batches, and baked path data the pathing pass consumes (spec §4.9).
func (s *Simulator) SetProbeData(probes []probe.Probe, sourceBatch, listenerBatch *probe.Batch, baked *pathdata.BakedPathData) {
	s.probes = probes
	s.sourceBatch = sourceBatch
	s.listenerBatch = listenerBatch
	s.baked = baked
}

// AddSource allocates a handle from the free list and registers a new
// Source (spec §6 "per-source add").
func (s *Simulator) AddSource(in SourceInputs) int {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	var handle int
	if n := len(s.freeList); n > 0 {
		handle = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else {
		handle = s.nextHandle
		s.nextHandle++
	}

	src := &Source{handle: handle, inputs: in}
	s.sourcesMu.Lock()
	s.sources[handle] = src
	s.sourcesMu.Unlock()
	return handle
}

// RemoveSource releases a handle back to the free list (spec §6
// "per-source remove").
func (s *Simulator) RemoveSource(handle int) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	s.sourcesMu.Lock()
	_, existed := s.sources[handle]
	delete(s.sources, handle)
	s.sourcesMu.Unlock()

	if existed {
		s.freeList = append(s.freeList, handle)
	}
}

// GetSource looks up a source by handle without contending with
// AddSource/RemoveSource (spec §5).
func (s *Simulator) GetSource(handle int) (*Source, bool) {
	s.sourcesMu.RLock()
	defer s.sourcesMu.RUnlock()
	src, ok := s.sources[handle]
	return src, ok
}

// SetSourceInputs is a convenience wrapper over GetSource+SetInputs
// (spec §6 "set-inputs").
func (s *Simulator) SetSourceInputs(handle int, in SourceInputs) bool {
	src, ok := s.GetSource(handle)
	if !ok {
		return false
	}
	src.SetInputs(in)
	return true
}

// GetOutputs is a convenience wrapper over GetSource+Outputs (spec §6
// "get-outputs").
func (s *Simulator) GetOutputs(handle int) (*Outputs, bool) {
	src, ok := s.GetSource(handle)
	if !ok {
		return nil, false
	}
	return src.Outputs(), true
}

// Cancel raises the cooperative cancellation flag every in-flight
// reflection/pathing job polls (spec §5 "Cancellation"). The flag is
// latched: a cancelled Simulator refuses to start further work until
// ResetCancel is called, the same way a single cancel token guards one
// logical run in the teacher's render pipeline.
func (s *Simulator) Cancel() { s.cancel.Store(true) }

// Cancelled reports whether Cancel has been called since the last
// ResetCancel.
func (s *Simulator) Cancelled() bool { return s.cancel.Load() }

// ResetCancel clears the cancellation flag so RunReflections/RunPathing
// can run again.
func (s *Simulator) ResetCancel() { s.cancel.Store(false) }

func (s *Simulator) allSources() []*Source {
	s.sourcesMu.RLock()
	defer s.sourcesMu.RUnlock()
	out := make([]*Source, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src)
	}
	return out
}

// RunReflections runs the reflection simulator for every source with
// ReflectionsEnabled set, across a jobgraph pool of the given worker
// count, and publishes each source's Outputs on completion (spec §6
// "run-reflections"). A cancelled pass leaves each source's previously
// published outputs untouched (spec §5).
func (s *Simulator) RunReflections(workers int) {
	shared := s.SharedInputs()

	g := jobgraph.NewWithCancel(&s.cancel)
	for _, src := range s.allSources() {
		src := src
		in := src.Inputs()
		if !in.ReflectionsEnabled {
			continue
		}
		g.Add(&jobgraph.Job{
			Name: "reflect-" + strconv.Itoa(src.handle),
			Fn: func(cancel *atomic.Bool) {
				runReflectionPass(s.sc, shared, in, src, cancel)
			},
		})
	}
	g.Run(workers)
}

// RunPathing runs the path simulator for every source with PathingEnabled
// set (spec §6 "run-pathing").
func (s *Simulator) RunPathing(workers int) {
	shared := s.SharedInputs()

	g := jobgraph.NewWithCancel(&s.cancel)
	for _, src := range s.allSources() {
		src := src
		in := src.Inputs()
		if !in.PathingEnabled {
			continue
		}
		g.Add(&jobgraph.Job{
			Name: "path-" + strconv.Itoa(src.handle),
			Fn: func(cancel *atomic.Bool) {
				runPathingPass(s.sc, s.probes, s.sourceBatch, s.listenerBatch, s.baked, shared, in, src)
			},
		})
	}
	g.Run(workers)
}

// RunDirect updates the direct-path DSP inputs synchronously (spec §6
// "run-direct"): unlike reflections/pathing this is cheap enough to run
// every frame on whichever thread calls it, not through the job pool.
func (s *Simulator) RunDirect(handle int) (direct.Inputs, bool) {
	src, ok := s.GetSource(handle)
	if !ok {
		return direct.Inputs{}, false
	}
	shared := s.SharedInputs()
	in := src.Inputs()
	return computeDirectInputs(s.sc, shared, in), true
}

func runReflectionPass(sc *scene.Scene, shared SharedInputs, in SourceInputs, src *Source, cancel *atomic.Bool) {
	sourcePos := in.Transform.Origin

	cfg := reflection.DefaultConfig()
	cfg.Rays = shared.Rays
	cfg.MaxBounces = shared.MaxBounces
	cfg.AmbisonicOrder = shared.AmbisonicOrder
	cfg.Duration = shared.Duration
	cfg.Seed = in.Seed
	cfg.Directivity = in.Directivity
	if err := cfg.Validate(); err != nil {
		return
	}

	field := reflection.Simulate(sc, sourcePos, in.Materials, cfg, cancel)
	if field == nil {
		return // cancelled: spec §5 "the back buffer is left untouched"
	}

	// Scale mutates the field's bands in place before RT60 estimation, so
	// Outputs.Reverb reflects the post-scaling decay (spec §4.4).
	for b := 0; b < geom.NumBands; b++ {
		if shared.ReverbScale[b] != 1 {
			reverb.Scale(field.Band(0, b), shared.ReverbScale[b])
		}
	}
	rv, metrics := reverb.Estimate(field, shared.ReflectionsDelay, shared.MidBand)

	rcfg := reconstruct.DefaultConfig()
	rcfg.SampleRate = shared.SampleRate
	rcfg.Duration = shared.Duration
	rcfg.Seed = in.Seed
	if in.DistanceAttenuation != nil {
		dist := sourcePos.Distance(shared.ListenerTransform.Origin)
		rcfg.DistanceAttenuation = float64(in.DistanceAttenuation(dist))
	}
	ir, err := reconstruct.Reconstruct(field, rcfg)
	if err != nil {
		return
	}

	out := &Outputs{EnergyField: field, Reverb: rv, Metrics: metrics, ImpulseResponse: ir}
	mergeOutputs(src, out)
}

func runPathingPass(sc *scene.Scene, probes []probe.Probe, sourceBatch, listenerBatch *probe.Batch, baked *pathdata.BakedPathData, shared SharedInputs, in SourceInputs, src *Source) {
	pcfg := pathsim.DefaultConfig()
	pcfg.AmbisonicOrder = shared.AmbisonicOrder
	result := pathsim.Simulate(in.Transform.Origin, shared.ListenerTransform.Origin, sc, sourceBatch, listenerBatch, probes, baked, pcfg)
	mergeOutputs(src, &Outputs{PathResult: result})
}

// mergeOutputs publishes a partial Outputs update, preserving whichever
// fields the other pass (reflections vs. pathing) already populated, the
// same way spec §5 keeps direct/reflected/pathed contributions summed
// independently into a fixed order.
func mergeOutputs(src *Source, partial *Outputs) {
	prev := src.outputs.Acquire()
	merged := *prev
	if partial.EnergyField != nil {
		merged.EnergyField = partial.EnergyField
		merged.Reverb = partial.Reverb
		merged.Metrics = partial.Metrics
		merged.ImpulseResponse = partial.ImpulseResponse
	}
	if partial.PathResult.SHCoefficients != nil {
		merged.PathResult = partial.PathResult
	}
	src.outputs.Publish(&merged)
}

func computeDirectInputs(sc *scene.Scene, shared SharedInputs, in SourceInputs) direct.Inputs {
	listener := shared.ListenerTransform.Origin
	source := in.Transform.Origin
	dist := source.Distance(listener)

	out := direct.Inputs{
		Flags: direct.Flags{
			DistanceAttenuation: in.DistanceAttenuation != nil,
			AirAbsorption:       in.AirAbsorption != nil,
			Directivity:         in.Directivity.DipoleWeight != 0,
			Occlusion:           in.OcclusionMode != OcclusionNone,
		},
		DistanceAttenuation: 1,
		Directivity:         1,
	}
	if in.DistanceAttenuation != nil {
		out.DistanceAttenuation = in.DistanceAttenuation(dist)
	}
	if in.AirAbsorption != nil {
		out.AirAbsorptionBands = in.AirAbsorption(dist)
	}
	if in.Directivity.DipoleWeight != 0 {
		dir := listener.Sub(source).Normalized()
		cos := float64(dir.Dot(in.Directivity.Ahead))
		if cos < 0 {
			cos = 0
		}
		out.Directivity = float32((1 - in.Directivity.DipoleWeight) + in.Directivity.DipoleWeight*math.Pow(cos, in.Directivity.DipolePower))
	}

	switch in.OcclusionMode {
	case OcclusionRaycast:
		if sc != nil && sc.IsOccluded(source, listener) {
			out.OcclusionFraction = 1
		}
	case OcclusionManual:
		out.OcclusionFraction = in.ManualOcclusion
	}
	return out
}
