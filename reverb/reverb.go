// Package reverb estimates reverberation parameters from a mid-band energy
// histogram and applies user reverb-time scaling (spec §4.4).
package reverb

import (
	"math"

	"github.com/cwbudde/algo-approx"
	"github.com/cwbudde/algo-geoacoustics/energyfield"
)

// MinRT60 is the floor every output reverb time is clamped to (spec §4.4).
const MinRT60 = 0.1

// Reverb holds one RT60 per frequency band, in seconds.
type Reverb struct {
	RT60 [3]float64
}

// Metrics bundles the scalar descriptors the estimator derives alongside
// RT60 (spec §4.4).
type Metrics struct {
	TotalEnergy     float64
	FirstArrivalSec float64
	EarlyEnergy     float64
	LateEnergy      float64
	Diffusion       float64 // fraction of non-zero bins above threshold
	Density         float64 // comparison of band energies
}

// EarlySplitOffset is the extra delay past the reflections delay used to
// split early/late energy (spec §4.4: "reflectionsDelay + 80ms").
const EarlySplitOffset = 0.080

// Estimate computes RT60 per band plus the diagnostic Metrics from a
// mid-band histogram, treating field's channel 0 (omni) as the source of
// the EDC fit, and the band index midBand as the "mid" reference band for
// first-arrival/diffusion metrics.
func Estimate(field *energyfield.Field, reflectionsDelay float64, midBand int) (Reverb, Metrics) {
	var out Reverb
	var metrics Metrics

	for b := 0; b < energyfield.NumBands; b++ {
		band := field.Band(0, b)
		edc := backwardEDC(band)
		rt := fitRT60(edc)
		if rt < MinRT60 {
			rt = MinRT60
		}
		out.RT60[b] = rt
	}

	midBandValues := field.Band(0, midBand)
	metrics.TotalEnergy = field.TotalEnergy(midBand)
	metrics.FirstArrivalSec = firstArrival(midBandValues)

	splitBin := int((reflectionsDelay + EarlySplitOffset) / energyfield.BinDuration)
	for bin, v := range midBandValues {
		if bin < splitBin {
			metrics.EarlyEnergy += v
		} else {
			metrics.LateEnergy += v
		}
	}

	metrics.Diffusion = diffusionMetric(midBandValues)
	metrics.Density = densityMetric(field)

	return out, metrics
}

// backwardEDC returns the Schroeder backward-integrated energy decay curve
// from a linear energy histogram.
func backwardEDC(band []float64) []float64 {
	n := len(band)
	edc := make([]float64, n)
	var sum float64
	for i := n - 1; i >= 0; i-- {
		sum += band[i]
		edc[i] = sum
	}
	return edc
}

// fitRT60 fits a least-squares line to the log10(EDC/EDC[0]) curve
// restricted to the [-2.5,-0.5] decade range, and extrapolates the time to
// reach -60 dB (spec §4.4).
func fitRT60(edc []float64) float64 {
	if len(edc) == 0 || edc[0] <= 0 {
		return MinRT60
	}
	ref := edc[0]

	var sx, sy, sxx, sxy float64
	var count int
	for i, v := range edc {
		if v <= 0 {
			continue
		}
		logE := math.Log10(v / ref)
		if logE > -0.5 || logE < -2.5 {
			continue
		}
		t := float64(i) * energyfield.BinDuration
		sx += t
		sy += logE
		sxx += t * t
		sxy += t * logE
		count++
	}
	if count < 2 {
		return MinRT60
	}
	n := float64(count)
	denom := n*sxx - sx*sx
	if denom == 0 {
		return MinRT60
	}
	slope := (n*sxy - sx*sy) / denom
	if slope >= 0 {
		return MinRT60
	}
	// slope is decades-per-second of log10 energy; RT60 is where the line
	// crosses -6 decades (-60 dB in energy, i.e. log10(E/ref) == -6).
	return -6.0 / slope
}

func firstArrival(band []float64) float64 {
	for i, v := range band {
		if v > 0 {
			return float64(i) * energyfield.BinDuration
		}
	}
	return 0
}

func diffusionMetric(band []float64) float64 {
	if len(band) == 0 {
		return 0
	}
	peak := 0.0
	for _, v := range band {
		if v > peak {
			peak = v
		}
	}
	if peak <= 0 {
		return 0
	}
	threshold := peak * 0.01
	count := 0
	for _, v := range band {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(band))
}

func densityMetric(field *energyfield.Field) float64 {
	totals := make([]float64, energyfield.NumBands)
	var sum float64
	for b := 0; b < energyfield.NumBands; b++ {
		totals[b] = field.TotalEnergy(b)
		sum += totals[b]
	}
	if sum <= 0 {
		return 0
	}
	// A simple spread metric: 1 - max-band-fraction, so a perfectly even
	// spread across bands scores near 1 and energy piled in one band
	// scores near 0.
	maxBand := 0.0
	for _, v := range totals {
		if v > maxBand {
			maxBand = v
		}
	}
	return 1 - maxBand/sum
}

// Scale rescales the post-peak portion of band using the classic
// peak*(E/peak)^(1/ratio) curve and renormalizes total energy back to its
// pre-scaling value (spec §4.4 "Reverb-time scaling").
func Scale(band []float64, ratio float64) {
	if ratio <= 0 || len(band) == 0 {
		return
	}
	peakIdx := 0
	peak := band[0]
	for i, v := range band {
		if v > peak {
			peak = v
			peakIdx = i
		}
	}
	if peak <= 0 {
		return
	}

	var before float64
	for _, v := range band {
		before += v
	}

	invRatio := 1 / ratio
	for i := peakIdx; i < len(band); i++ {
		e := band[i]
		if e <= 0 {
			continue
		}
		band[i] = peak * math.Pow(e/peak, invRatio)
	}

	var after float64
	for _, v := range band {
		after += v
	}
	if after <= 0 {
		return
	}
	renorm := before / after
	for i := range band {
		band[i] *= renorm
	}
}

// DecayGain evaluates exp(-6.91*delaySeconds/rt60) via the teacher's fast
// exponential approximation, the per-tap absorptive-filter gain formula
// the parametric reverb (package effects/reverbfdn) recomputes whenever a
// band's RT60 changes (spec §4.11), clamped to stay stable as an IIR gain.
func DecayGain(delaySeconds, rt60 float64) float32 {
	if rt60 <= 0 {
		rt60 = MinRT60
	}
	exponent := float32(-6.91 * delaySeconds / rt60)
	g := approx.FastExp(exponent)
	if g < 1e-8 {
		g = 1e-8
	}
	return g
}
