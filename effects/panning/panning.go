// Package panning implements the virtual-loudspeaker ambisonic decode
// path of spec §4.14 ("panningEffect"): SH coefficients projected onto a
// canonical loudspeaker layout.
package panning

import "github.com/cwbudde/algo-geoacoustics/ambisonics"

// Panner decodes Ambisonic SH coefficients to a fixed loudspeaker layout.
type Panner struct {
	layout ambisonics.Layout
	matrix [][]float64
}

// New precomputes the SH decode matrix for layout at the given order.
func New(layout ambisonics.Layout, order int) *Panner {
	return &Panner{layout: layout, matrix: ambisonics.DecodeMatrix(layout, order)}
}

// NumSpeakers returns the loudspeaker count.
func (p *Panner) NumSpeakers() int { return len(p.matrix) }

// Decode projects coeffs onto the loudspeaker layout, returning one gain
// per speaker.
func (p *Panner) Decode(coeffs []float64) []float64 {
	return ambisonics.DecodeToSpeakers(p.matrix, coeffs)
}

// ProcessSample scales a single mono sample by each speaker's decoded
// gain, returning one output sample per speaker.
func (p *Panner) ProcessSample(x float32, gains []float64) []float32 {
	out := make([]float32, len(gains))
	for i, g := range gains {
		out[i] = x * float32(g)
	}
	return out
}
