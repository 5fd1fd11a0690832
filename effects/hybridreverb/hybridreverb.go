// Package hybridreverb implements the hybrid reverb effect (spec §4.12):
// overlap-add convolution of the early impulse response, crossfaded
// across a ramp into a parametric late tail (effects/reverbfdn), with an
// estimator that energy-matches the two at the transition.
package hybridreverb

import (
	"math"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"

	"github.com/cwbudde/algo-geoacoustics/effects/eq"
	"github.com/cwbudde/algo-geoacoustics/effects/reverbfdn"
	"github.com/cwbudde/algo-geoacoustics/energyfield"
)

// Config controls the early/late transition (spec §4.12).
type Config struct {
	SampleRate      float32
	TransitionTime  float64 // seconds
	OverlapFraction float64 // fraction of TransitionTime spent crossfading
	PartitionSize   int     // overlap-add block size for the convolver
}

func DefaultConfig(sampleRate float32) Config {
	return Config{SampleRate: sampleRate, TransitionTime: 0.1, OverlapFraction: 0.3, PartitionSize: 128}
}

// Hybrid is one source's hybrid early/late reverb processor.
type Hybrid struct {
	cfg Config

	conv           *dspconv.OverlapAdd
	correctionEQ   *eq.Cascade
	correctionGain float32

	late *reverbfdn.FDN

	pureEarlySamples int
	overlapSamples   int
	sampleIndex      int
	tail             []float64
	irLen            int
}

// New builds a Hybrid from a mono early impulse response and a late-tail
// RT60 per band. The IR is convolved as given; the energy match from
// EstimateTransitionGains is applied separately via SetTransitionCorrection.
func New(cfg Config, earlyIR []float64, rt60 [3]float64) (*Hybrid, error) {
	if cfg.PartitionSize < 1 {
		cfg.PartitionSize = 128
	}
	conv, err := dspconv.NewOverlapAdd(earlyIR, cfg.PartitionSize)
	if err != nil {
		return nil, err
	}
	pureEarly := int(cfg.TransitionTime * (1 - cfg.OverlapFraction) * float64(cfg.SampleRate))
	overlap := int(cfg.TransitionTime * cfg.OverlapFraction * float64(cfg.SampleRate))
	irLen := len(earlyIR)
	if irLen < 1 {
		irLen = 1
	}
	return &Hybrid{
		cfg:              cfg,
		conv:             conv,
		correctionEQ:     eq.New(cfg.SampleRate),
		correctionGain:   1,
		late:             reverbfdn.New(reverbfdn.Config{SampleRate: cfg.SampleRate, Seed: 1}, rt60),
		pureEarlySamples: pureEarly,
		overlapSamples:   overlap,
		tail:             make([]float64, irLen-1),
		irLen:            irLen,
	}, nil
}

// SetTransitionCorrection applies the per-band gain correction derived by
// EstimateTransitionGains to the convolved early path, so the two halves
// of the hybrid response are energy-continuous at the crossover.
func (h *Hybrid) SetTransitionCorrection(bandGains [3]float32) {
	h.correctionEQ.SetGains(h.cfg.SampleRate, bandGains)
}

// ProcessBlock runs one block of mono input through the hybrid effect,
// returning mono output: pure early convolution, then a crossfade ramp
// into the parametric late tail, then pure late tail thereafter.
func (h *Hybrid) ProcessBlock(input []float32) []float32 {
	out := make([]float32, len(input))
	if len(input) == 0 {
		return out
	}

	in64 := make([]float64, len(input))
	for i, v := range input {
		in64[i] = float64(v)
	}
	convOut, err := h.conv.Process(in64)
	if err != nil {
		convOut = make([]float64, len(input))
	}
	earlyBlock, newTail := overlapAdd(convOut, h.tail, len(input))
	h.tail = newTail

	for i := range input {
		early := float32(earlyBlock[i]) * h.correctionGain
		early = h.correctionEQ.Process(early)
		late := h.late.Process(input[i])

		blend := h.crossfadeWeight()
		out[i] = early*(1-blend) + late*blend
		h.sampleIndex++
	}
	return out
}

// crossfadeWeight returns the late-tail mix weight for the current
// sample index: 0 during the pure-early segment, ramping to 1 across the
// overlap region, 1 thereafter.
func (h *Hybrid) crossfadeWeight() float32 {
	if h.sampleIndex < h.pureEarlySamples {
		return 0
	}
	if h.overlapSamples <= 0 {
		return 1
	}
	progress := h.sampleIndex - h.pureEarlySamples
	if progress >= h.overlapSamples {
		return 1
	}
	return float32(progress) / float32(h.overlapSamples)
}

// overlapAdd folds the convolver's raw output (which may exceed blockLen
// by the IR tail) against the carried tail from the previous block,
// returning this block's output and the new tail (mirrors the teacher's
// partitioned-convolution overlap-add bookkeeping).
func overlapAdd(convOut []float64, tail []float64, blockLen int) ([]float64, []float64) {
	if len(convOut) < blockLen {
		out := make([]float64, blockLen)
		copy(out, convOut)
		return out, tail
	}
	full := make([]float64, len(convOut))
	copy(full, convOut)
	n := len(tail)
	if n > len(full) {
		n = len(full)
	}
	for i := 0; i < n; i++ {
		full[i] += tail[i]
	}
	out := make([]float64, blockLen)
	copy(out, full[:blockLen])
	newTail := make([]float64, len(full)-blockLen)
	copy(newTail, full[blockLen:])
	return out, newTail
}

// Reset clears the convolver, late tail, and crossfade position.
func (h *Hybrid) Reset() {
	h.conv.Reset()
	h.late.Reset()
	h.correctionEQ.Reset()
	h.tail = make([]float64, h.irLen-1)
	h.sampleIndex = 0
}

// EstimateTransitionGains derives per-band correction gains from the
// mid-band energy in field at the transition bin, so the convolved early
// IR and the FDN late tail meet at roughly the same per-band energy
// level (spec §4.12 "Hybrid estimator"). targetEnergy is the expected
// per-band energy the late tail would produce at the same instant,
// typically reverb.DecayGain^2 integrated over a bin.
func EstimateTransitionGains(field *energyfield.Field, transitionSeconds float64, targetEnergy [3]float64) [3]float32 {
	bin := int(transitionSeconds / energyfield.BinDuration)
	bins := field.Bins()
	if bin >= bins {
		bin = bins - 1
	}
	if bin < 0 {
		bin = 0
	}
	var gains [3]float32
	for b := 0; b < 3; b++ {
		measured := field.At(0, b, bin)
		if measured <= 0 || targetEnergy[b] <= 0 {
			gains[b] = 1
			continue
		}
		ratio := targetEnergy[b] / measured
		if ratio < 0 {
			ratio = 0
		}
		gains[b] = float32(math.Sqrt(ratio))
	}
	return gains
}
