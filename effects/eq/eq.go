// Package eq implements the 3-band shelving/peaking biquad cascade shared
// by the direct, FDN, and path effects (spec §4.10/§4.11): a low shelf, a
// mid peak, and a high shelf, one gain per band, crossed over at fixed
// 300 Hz and 3 kHz edges.
package eq

import "github.com/cwbudde/algo-geoacoustics/dsp"

const (
	lowCrossover  = 300
	highCrossover = 3000
)

// Cascade is a 3-band shelving/peaking biquad chain with one linear gain
// per band (spec §4.10's "3-band shelving/peaking biquad cascade").
type Cascade struct {
	low  *dsp.Biquad
	mid  *dsp.Biquad
	high *dsp.Biquad
}

// New builds a cascade for the given sample rate with unity gains.
func New(sampleRate float32) *Cascade {
	return &Cascade{
		low:  dsp.NewLowShelf(lowCrossover, sampleRate, 1),
		mid:  dsp.NewPeaking((lowCrossover+highCrossover)/2, sampleRate, 0.707, 1),
		high: dsp.NewHighShelf(highCrossover, sampleRate, 1),
	}
}

// SetGains rebuilds the cascade's coefficients for new per-band linear
// gains, carrying over filter state so parameter changes do not click
// (spec §4.11 "biquad states are copied across parameter changes").
func (c *Cascade) SetGains(sampleRate float32, gains [3]float32) {
	c.low = swap(c.low, dsp.NewLowShelf(lowCrossover, sampleRate, clampGain(gains[0])))
	c.mid = swap(c.mid, dsp.NewPeaking((lowCrossover+highCrossover)/2, sampleRate, 0.707, clampGain(gains[1])))
	c.high = swap(c.high, dsp.NewHighShelf(highCrossover, sampleRate, clampGain(gains[2])))
}

func clampGain(g float32) float32 {
	if g < 1e-8 {
		return 1e-8
	}
	return g
}

// swap carries prev's running state into next so a coefficient update
// doesn't discontinue the filter's output.
func swap(prev, next *dsp.Biquad) *dsp.Biquad {
	next.CopyStateFrom(prev)
	return next
}

// Process runs one sample through low, mid, and high in series.
func (c *Cascade) Process(x float32) float32 {
	return c.high.Process(c.mid.Process(c.low.Process(x)))
}

// Reset clears all three filters' state.
func (c *Cascade) Reset() {
	c.low.Reset()
	c.mid.Reset()
	c.high.Reset()
}
