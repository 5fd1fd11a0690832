package dsp

import "math"

// Biquad is a second-order IIR section, Direct Form I, used throughout the
// effects package for shelving/peaking EQ and band splits. Process never
// allocates, so it's safe on the audio thread.
type Biquad struct {
	b0, b1, b2 float32 // feedforward coefficients
	a1, a2     float32 // feedback coefficients

	x1, x2 float32 // input history
	y1, y2 float32 // output history
}

// NewBiquad wraps a precomputed coefficient set.
func NewBiquad(b0, b1, b2, a1, a2 float32) *Biquad {
	return &Biquad{
		b0: b0,
		b1: b1,
		b2: b2,
		a1: a1,
		a2: a2,
	}
}

func (b *Biquad) Process(input float32) float32 {
	output := b.b0*input + b.b1*b.x1 + b.b2*b.x2 - b.a1*b.y1 - b.a2*b.y2

	b.x2 = b.x1
	b.x1 = input
	b.y2 = b.y1
	b.y1 = output

	return output
}

// Reset zeroes the filter's running history without touching coefficients.
func (b *Biquad) Reset() {
	b.x1, b.x2 = 0, 0
	b.y1, b.y2 = 0, 0
}

// CopyStateFrom carries another filter's running history into b, leaving
// b's own coefficients untouched. Used when a parameter change swaps in a
// freshly-coefficiented Biquad but must not discontinue its output (spec
// §4.11: "biquad states are copied across parameter changes to prevent
// clicks").
func (b *Biquad) CopyStateFrom(prev *Biquad) {
	b.x1, b.x2 = prev.x1, prev.x2
	b.y1, b.y2 = prev.y1, prev.y2
}

// NewLowpass builds an RBJ-cookbook lowpass biquad.
func NewLowpass(cutoff, sampleRate, q float32) *Biquad {
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 - cosw0) / 2.0
	b1 := 1.0 - cosw0
	b2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// NewHighpass creates a simple highpass biquad filter
func NewHighpass(cutoff, sampleRate, q float32) *Biquad {
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := (1.0 + cosw0) / 2.0
	b1 := -(1.0 + cosw0)
	b2 := (1.0 + cosw0) / 2.0
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(
		float32(b0/a0),
		float32(b1/a0),
		float32(b2/a0),
		float32(a1/a0),
		float32(a2/a0),
	)
}

// NewLowShelf creates a low-shelving biquad with gain in linear units
// (1.0 = unity), per the RBJ cookbook formulas. Used by the direct effect
// and reverb tone-correction stages for per-band gain shaping.
func NewLowShelf(cutoff, sampleRate, gain float32) *Biquad {
	a := math.Sqrt(float64(gain))
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	s := 1.0 // shelf slope
	alpha := sinw0 / 2.0 * math.Sqrt((a+1.0/a)*(1.0/s-1.0)+2.0)
	twoSqrtAAlpha := 2.0 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) - (a-1)*cosw0 + twoSqrtAAlpha)
	b1 := 2 * a * ((a - 1) - (a+1)*cosw0)
	b2 := a * ((a + 1) - (a-1)*cosw0 - twoSqrtAAlpha)
	a0 := (a + 1) + (a-1)*cosw0 + twoSqrtAAlpha
	a1 := -2 * ((a - 1) + (a+1)*cosw0)
	a2 := (a + 1) + (a-1)*cosw0 - twoSqrtAAlpha

	return NewBiquad(float32(b0/a0), float32(b1/a0), float32(b2/a0), float32(a1/a0), float32(a2/a0))
}

// NewHighShelf mirrors NewLowShelf for the high-frequency shelf.
func NewHighShelf(cutoff, sampleRate, gain float32) *Biquad {
	a := math.Sqrt(float64(gain))
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	s := 1.0
	alpha := sinw0 / 2.0 * math.Sqrt((a+1.0/a)*(1.0/s-1.0)+2.0)
	twoSqrtAAlpha := 2.0 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosw0 + twoSqrtAAlpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosw0)
	b2 := a * ((a + 1) + (a-1)*cosw0 - twoSqrtAAlpha)
	a0 := (a + 1) - (a-1)*cosw0 + twoSqrtAAlpha
	a1 := 2 * ((a - 1) - (a+1)*cosw0)
	a2 := (a + 1) - (a-1)*cosw0 - twoSqrtAAlpha

	return NewBiquad(float32(b0/a0), float32(b1/a0), float32(b2/a0), float32(a1/a0), float32(a2/a0))
}

// NewPeaking creates a peaking EQ biquad centered on cutoff with bandwidth q.
func NewPeaking(cutoff, sampleRate, q, gain float32) *Biquad {
	a := math.Sqrt(float64(gain))
	w0 := 2.0 * math.Pi * float64(cutoff) / float64(sampleRate)
	alpha := math.Sin(w0) / (2.0 * float64(q))
	cosw0 := math.Cos(w0)

	b0 := 1 + alpha*a
	b1 := -2 * cosw0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosw0
	a2 := 1 - alpha/a

	return NewBiquad(float32(b0/a0), float32(b1/a0), float32(b2/a0), float32(a1/a0), float32(a2/a0))
}

// GainRamp linearly interpolates from a previous gain to a target gain
// over K frames, then stays flat, to avoid zipper noise on parameter
// changes (spec §4.10: "endGain = prev + (target-prev)/K ... interpolated
// sample-by-sample").
type GainRamp struct {
	current float32
	target  float32
	step    float32
	steps   int
}

// SetTarget begins a ramp from the current value toward target over k
// frames (k=1 snaps immediately).
func (g *GainRamp) SetTarget(target float32, k int) {
	if k < 1 {
		k = 1
	}
	g.target = target
	g.step = (target - g.current) / float32(k)
	g.steps = k
}

// Next advances the ramp by one sample and returns the new gain.
func (g *GainRamp) Next() float32 {
	if g.steps <= 0 {
		g.current = g.target
		return g.current
	}
	g.current += g.step
	g.steps--
	if g.steps == 0 {
		g.current = g.target
	}
	return g.current
}

// Value returns the current gain without advancing the ramp.
func (g *GainRamp) Value() float32 { return g.current }

// Reset snaps the ramp to value with no pending interpolation.
func (g *GainRamp) Reset(value float32) {
	g.current = value
	g.target = value
	g.steps = 0
}

// DelayLine is a circular sample buffer backing the FDN taps and the
// direct/hybrid effects' transmission delay.
type DelayLine struct {
	buffer   []float32
	writePos int
	size     int
}

func NewDelayLine(size int) *DelayLine {
	return &DelayLine{
		buffer: make([]float32, size),
		size:   size,
	}
}

func (d *DelayLine) Write(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos = (d.writePos + 1) % d.size
}

// Read returns the sample written delay steps ago.
func (d *DelayLine) Read(delay int) float32 {
	readPos := (d.writePos - delay + d.size) % d.size
	return d.buffer[readPos]
}

// ReadFractional linearly interpolates between the two integer taps
// bracketing a non-integer delay, for modulated/smoothly-varying lengths.
func (d *DelayLine) ReadFractional(delay float32) float32 {
	intDelay := int(delay)
	frac := delay - float32(intDelay)

	sample1 := d.Read(intDelay)
	sample2 := d.Read(intDelay + 1)

	return sample1 + frac*(sample2-sample1)
}

func (d *DelayLine) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}

// LagrangeInterpolator is a higher-order alternative to DelayLine's linear
// ReadFractional for callers that need a smoother fractional tap; no
// package in this module calls it.
type LagrangeInterpolator struct {
	order int // 1 = linear, 3 = cubic
}

func NewLagrangeInterpolator(order int) *LagrangeInterpolator {
	return &LagrangeInterpolator{
		order: order,
	}
}

// Interpolate evaluates the interpolant at frac in [0,1) given the samples
// surrounding that point.
func (l *LagrangeInterpolator) Interpolate(samples []float32, frac float32) float32 {
	if l.order == 1 {
		return samples[0] + frac*(samples[1]-samples[0])
	}

	if l.order == 3 {
		// Four-point cubic Lagrange, interpolating between samples[1] and
		// samples[2].
		d := frac
		c0 := samples[1]
		c1 := samples[2] - samples[0]/3.0 - samples[1]/2.0 - samples[3]/6.0
		c2 := samples[0]/2.0 - samples[1] + samples[2]/2.0
		c3 := samples[1]/2.0 - samples[2]/2.0 + (samples[3]-samples[0])/6.0

		return c0 + d*(c1+d*(c2+d*c3))
	}

	return samples[0] + frac*(samples[1]-samples[0])
}

// FlushDenormals zeroes values too small to matter, avoiding the CPU
// penalty some FPUs take processing denormals in feedback loops like the
// FDN's allpasses.
func FlushDenormals(x float32) float32 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
