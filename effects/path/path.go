// Package path implements the path effect (spec §4.15): SH coefficients
// and per-band EQ gains from the path simulator, decoded through a
// loudspeaker layout and either panoramized or binauralized toward the
// path's average direction.
package path

import (
	"github.com/cwbudde/algo-geoacoustics/ambisonics"
	"github.com/cwbudde/algo-geoacoustics/effects/binaural"
	"github.com/cwbudde/algo-geoacoustics/effects/eq"
	"github.com/cwbudde/algo-geoacoustics/effects/panning"
	"github.com/cwbudde/algo-geoacoustics/geom"
)

// Config selects the target loudspeaker layout and whether to binauralize
// (spec §4.15 "target speaker layout + optional binaural + HRTF").
type Config struct {
	SampleRate     float32
	AmbisonicOrder int
	Layout         ambisonics.Layout
	Binaural       bool
	HRIRs          *binaural.HRIRSet
	Interpolation  binaural.InterpolationMode
	PartitionSize  int
}

func DefaultConfig(sampleRate float32) Config {
	return Config{SampleRate: sampleRate, AmbisonicOrder: 1, Layout: ambisonics.StereoLayout(), PartitionSize: 128}
}

// Effect processes one source's path contribution per frame.
type Effect struct {
	cfg      Config
	cascade  *eq.Cascade
	panner   *panning.Panner
	binaural *binaural.Effect
}

func New(cfg Config) *Effect {
	e := &Effect{cfg: cfg, cascade: eq.New(cfg.SampleRate), panner: panning.New(cfg.Layout, cfg.AmbisonicOrder)}
	if cfg.Binaural && cfg.HRIRs != nil {
		e.binaural = binaural.New(cfg.HRIRs, cfg.Interpolation, cfg.AmbisonicOrder, cfg.PartitionSize)
	}
	return e
}

// SetFrame updates the EQ targets and, when binauralizing, the HRTF
// direction for the upcoming block (spec §4.15 "projects the SH
// coefficients... applies the EQ").
func (e *Effect) SetFrame(eqGains [3]float32, averageDirection geom.Vector3) {
	e.cascade.SetGains(e.cfg.SampleRate, eqGains)
	if e.binaural != nil {
		_ = e.binaural.SetDirection(averageDirection)
	}
}

// ProcessBlock runs one block of mono path-effect input through the EQ
// and then either the panner or the binaural path (spec §4.15 "either
// panoramizes the sum or binauralizes in the direction of the path's
// average").
func (e *Effect) ProcessBlock(input []float32, coeffs []float64) [][]float32 {
	filtered := make([]float32, len(input))
	for i, x := range input {
		filtered[i] = e.cascade.Process(x)
	}

	if e.binaural != nil {
		e.binaural.SetSpatialBlend(1)
		left, right := e.binaural.ProcessBlock(filtered)
		return [][]float32{left, right}
	}

	gains := e.panner.Decode(coeffs)
	out := make([][]float32, e.panner.NumSpeakers())
	for s := range out {
		out[s] = make([]float32, len(filtered))
	}
	for i, x := range filtered {
		speakerSamples := e.panner.ProcessSample(x, gains)
		for s, v := range speakerSamples {
			out[s][i] = v
		}
	}
	return out
}
