// Package binaural implements per-channel HRTF convolution with nearest
// or bilinear interpolation and a spatialBlend crossfade against a panned
// signal (spec §4.14 "binauralEffect").
package binaural

import (
	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"

	"github.com/cwbudde/algo-geoacoustics/ambisonics"
	"github.com/cwbudde/algo-geoacoustics/effects/panning"
	"github.com/cwbudde/algo-geoacoustics/geom"
	"github.com/cwbudde/algo-geoacoustics/sh"
)

// HRIRSet holds a measured HRIR per direction, sampled at SampleRate.
type HRIRSet struct {
	SampleRate int
	Directions []geom.Vector3
	Left       [][]float64
	Right      [][]float64
}

// ResampleTo returns a copy of the set resampled to dstRate, the way
// SoundboardConvolver.resampleIfNeeded adapts IRs loaded at a different
// rate than the engine's output rate.
func (h *HRIRSet) ResampleTo(dstRate int) (*HRIRSet, error) {
	if h.SampleRate == dstRate {
		return h, nil
	}
	r, err := dspresample.NewForRates(float64(h.SampleRate), float64(dstRate), dspresample.WithQuality(dspresample.QualityBest))
	if err != nil {
		return nil, err
	}
	out := &HRIRSet{SampleRate: dstRate, Directions: h.Directions}
	out.Left = make([][]float64, len(h.Left))
	out.Right = make([][]float64, len(h.Right))
	for i := range h.Left {
		out.Left[i] = r.Process(h.Left[i])
		out.Right[i] = r.Process(h.Right[i])
	}
	return out, nil
}

// InterpolationMode selects how a query direction resolves to an HRIR.
type InterpolationMode int

const (
	Nearest InterpolationMode = iota
	Bilinear
)

// Select returns the left/right HRIR for direction, either the single
// nearest-measured direction or a blend of all measured directions
// weighted by ((1+cos θ)/2)², θ being the angle to each one (spec §4.14 "optional nearest or bilinear HRTF
// interpolation").
func Select(set *HRIRSet, direction geom.Vector3, mode InterpolationMode) (left, right []float64) {
	if len(set.Directions) == 0 {
		return nil, nil
	}
	d := direction.Normalized()
	if mode == Nearest {
		best := 0
		bestDot := float32(-2)
		for i, dir := range set.Directions {
			if dot := dir.Dot(d); dot > bestDot {
				bestDot, best = dot, i
			}
		}
		return set.Left[best], set.Right[best]
	}

	weights := make([]float32, len(set.Directions))
	var sum float32
	for i, dir := range set.Directions {
		dot := dir.Dot(d)
		if dot < -1 {
			dot = -1
		}
		if dot > 1 {
			dot = 1
		}
		w := (dot + 1) / 2
		w = w * w
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return Select(set, direction, Nearest)
	}
	irLen := len(set.Left[0])
	left = make([]float64, irLen)
	right = make([]float64, irLen)
	for i, w := range weights {
		if w == 0 {
			continue
		}
		wn := float64(w / sum)
		for s := 0; s < irLen && s < len(set.Left[i]); s++ {
			left[s] += wn * set.Left[i][s]
		}
		for s := 0; s < irLen && s < len(set.Right[i]); s++ {
			right[s] += wn * set.Right[i][s]
		}
	}
	return left, right
}

// Effect binauralizes a mono signal in a given direction, convolving it
// against the interpolated HRIR pair, and crossfades the result with an
// SH-panned stereo signal by spatialBlend (spec §4.14: "a spatialBlend
// crossfade with the panned signal").
type Effect struct {
	set          *HRIRSet
	mode         InterpolationMode
	partSize     int
	order        int
	panner       *panning.Panner
	leftConv     *dspconv.OverlapAdd
	rightConv    *dspconv.OverlapAdd
	leftTail     []float64
	rightTail    []float64
	irLen        int
	spatialBlend float32
	lastDir      geom.Vector3
}

func New(set *HRIRSet, mode InterpolationMode, order int, partSize int) *Effect {
	return &Effect{
		set:          set,
		mode:         mode,
		partSize:     partSize,
		order:        order,
		panner:       panning.New(ambisonics.StereoLayout(), order),
		spatialBlend: 1,
	}
}

// SetDirection rebuilds the convolver's HRIR pair for a new source
// direction.
func (e *Effect) SetDirection(direction geom.Vector3) error {
	e.lastDir = direction
	left, right := Select(e.set, direction, e.mode)
	if len(left) == 0 {
		left, right = []float64{1}, []float64{1}
	}
	leftConv, err := dspconv.NewOverlapAdd(left, e.partSize)
	if err != nil {
		return err
	}
	rightConv, err := dspconv.NewOverlapAdd(right, e.partSize)
	if err != nil {
		return err
	}
	e.leftConv = leftConv
	e.rightConv = rightConv
	e.irLen = len(left)
	if len(right) > e.irLen {
		e.irLen = len(right)
	}
	e.leftTail = make([]float64, e.irLen-1)
	e.rightTail = make([]float64, e.irLen-1)
	return nil
}

// SetSpatialBlend sets the 0..1 crossfade weight between the panned
// signal (0) and the fully binauralized signal (1).
func (e *Effect) SetSpatialBlend(blend float32) {
	if blend < 0 {
		blend = 0
	}
	if blend > 1 {
		blend = 1
	}
	e.spatialBlend = blend
}

// ProcessBlock binauralizes input in the current direction and crossfades
// it with an SH pan of the same signal in that direction (the direction's
// SH projection decoded to the stereo panner's left/right gains).
func (e *Effect) ProcessBlock(input []float32) (left, right []float32) {
	n := len(input)
	left = make([]float32, n)
	right = make([]float32, n)
	if n == 0 || e.leftConv == nil {
		return
	}

	in64 := make([]float64, n)
	for i, v := range input {
		in64[i] = float64(v)
	}
	leftFull, errL := e.leftConv.Process(in64)
	rightFull, errR := e.rightConv.Process(in64)
	var leftBlock, rightBlock []float64
	if errL == nil && errR == nil {
		leftBlock, e.leftTail = overlapAdd(leftFull, e.leftTail, n)
		rightBlock, e.rightTail = overlapAdd(rightFull, e.rightTail, n)
	} else {
		leftBlock, rightBlock = in64, in64
	}

	d := e.lastDir
	coeffs := make([]float64, sh.NumChannels(e.order))
	sh.Project(coeffs, e.order, float64(d.X), float64(d.Y), float64(d.Z), 1)
	gains := e.panner.Decode(coeffs)

	for i := 0; i < n; i++ {
		bin := e.spatialBlend
		panL := input[i] * float32(gain(gains, 0))
		panR := input[i] * float32(gain(gains, 1))
		left[i] = panL*(1-bin) + float32(leftBlock[i])*bin
		right[i] = panR*(1-bin) + float32(rightBlock[i])*bin
	}
	return
}

func gain(gains []float64, i int) float64 {
	if i < len(gains) {
		return gains[i]
	}
	return 0
}

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

// Reset clears convolver state.
func (e *Effect) Reset() {
	if e.leftConv != nil {
		e.leftConv.Reset()
	}
	if e.rightConv != nil {
		e.rightConv.Reset()
	}
	e.leftTail = make([]float64, e.irLen-1)
	e.rightTail = make([]float64, e.irLen-1)
}
