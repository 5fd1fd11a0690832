// Package reverbfdn implements the parametric late-reverberation tail
// (spec §4.11): a 16-tap feedback delay network with prime-derived delay
// lengths, per-tap absorptive shelving/peaking filters, a 16x16 Hadamard
// mixing matrix, a four-stage diffusing allpass chain, and a final
// tone-correction EQ.
package reverbfdn

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-geoacoustics/dsp"
	"github.com/cwbudde/algo-geoacoustics/effects/eq"
	"github.com/cwbudde/algo-geoacoustics/reverb"
)

const NumTaps = 16

var smallPrimes = [NumTaps]int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53}

var allpassLengths = [4]int{225, 341, 441, 556}

const allpassCoeff = 0.5

// Config fixes the sample rate and dither seed used for delay-length
// randomization.
type Config struct {
	SampleRate float32
	Seed       int64
}

func DefaultConfig(sampleRate float32) Config {
	return Config{SampleRate: sampleRate, Seed: 1}
}

type allpassFilter struct {
	delay *dsp.DelayLine
	coeff float32
	pos   int
}

func newAllpass(length int, coeff float32) *allpassFilter {
	return &allpassFilter{delay: dsp.NewDelayLine(length + 1), coeff: coeff, pos: length}
}

func (a *allpassFilter) process(x float32) float32 {
	delayed := a.delay.Read(a.pos)
	y := -a.coeff*x + delayed
	a.delay.Write(x + a.coeff*y)
	return y
}

func (a *allpassFilter) reset() { a.delay.Reset() }

// FDN is one instance of the 16-tap feedback delay network.
type FDN struct {
	cfg Config

	delays       [NumTaps]*dsp.DelayLine
	delayLengths [NumTaps]int
	absorptive   [NumTaps]*eq.Cascade

	hadamard [NumTaps][NumTaps]float32
	allpass  [4]*allpassFilter
	tone     *eq.Cascade

	rt60 [3]float64
}

// New builds an FDN for rt60 (seconds per band), computing delay lengths
// and absorptive-filter gains per spec §4.11.
func New(cfg Config, rt60 [3]float64) *FDN {
	f := &FDN{cfg: cfg, hadamard: hadamard16()}
	rng := rand.New(rand.NewSource(cfg.Seed))
	for i := 0; i < NumTaps; i++ {
		f.delays[i] = dsp.NewDelayLine(maxDelayLength(rt60, cfg.SampleRate) + 256)
		f.absorptive[i] = eq.New(cfg.SampleRate)
	}
	for i := range f.allpass {
		f.allpass[i] = newAllpass(allpassLengths[i], allpassCoeff)
	}
	f.tone = eq.New(cfg.SampleRate)
	f.SetRT60(rt60, rng)
	return f
}

func maxDelayLength(rt60 [3]float64, sampleRate float32) int {
	maxRT60 := rt60[0]
	for _, r := range rt60 {
		if r > maxRT60 {
			maxRT60 = r
		}
	}
	base := 0.15 * maxRT60 * float64(sampleRate) / 16
	return int(base) + 200
}

// nextPowerOfPrime returns the smallest prime^k >= base.
func nextPowerOfPrime(prime int, base float64) int {
	v := float64(prime)
	for v < base {
		v *= float64(prime)
	}
	return int(v)
}

// SetRT60 recomputes delay lengths and per-tap absorptive-filter gains
// whenever a band's RT60 changes (spec §4.11); the FDN's eq.Cascade
// carries state across the change so no click results.
func (f *FDN) SetRT60(rt60 [3]float64, rng *rand.Rand) {
	if rng == nil {
		rng = rand.New(rand.NewSource(f.cfg.Seed))
	}
	f.rt60 = rt60
	maxRT60 := rt60[0]
	for _, r := range rt60 {
		if r > maxRT60 {
			maxRT60 = r
		}
	}
	base := 0.15 * maxRT60 * float64(f.cfg.SampleRate) / 16
	for i := 0; i < NumTaps; i++ {
		length := nextPowerOfPrime(smallPrimes[i], base)
		length += rng.Intn(201) - 100
		if length < 8 {
			length = 8
		}
		if f.delays[i] == nil || length > f.delayLengths[i] {
			f.delays[i] = dsp.NewDelayLine(length + 1)
		}
		f.delayLengths[i] = length

		delaySeconds := float64(length) / float64(f.cfg.SampleRate)
		var gains [3]float32
		for b := 0; b < 3; b++ {
			gains[b] = reverb.DecayGain(delaySeconds, rt60[b])
		}
		f.absorptive[i].SetGains(f.cfg.SampleRate, gains)
	}
	f.updateToneCorrection()
}

func (f *FDN) updateToneCorrection() {
	var gains [3]float32
	peak := float32(0)
	for b := 0; b < 3; b++ {
		rt := f.rt60[b]
		if rt < reverb.MinRT60 {
			rt = reverb.MinRT60
		}
		g := float32(math.Sqrt(1 / rt))
		gains[b] = g
		if g > peak {
			peak = g
		}
	}
	if peak > 0 {
		for b := range gains {
			gains[b] /= peak
		}
	}
	f.tone.SetGains(f.cfg.SampleRate, gains)
}

// TailFrames returns the tail length in frames of size frameSize (spec
// §4.11: "ceil(2*maxRT60*fs/frameSize)").
func (f *FDN) TailFrames(frameSize int) int {
	maxRT60 := f.rt60[0]
	for _, r := range f.rt60 {
		if r > maxRT60 {
			maxRT60 = r
		}
	}
	return int(math.Ceil(2 * maxRT60 * float64(f.cfg.SampleRate) / float64(frameSize)))
}

// Process runs one sample of input (injected equally into every tap)
// through the network and returns the mixed, diffused, tone-corrected
// output.
func (f *FDN) Process(input float32) float32 {
	var tapOut [NumTaps]float32
	for i := 0; i < NumTaps; i++ {
		raw := f.delays[i].Read(f.delayLengths[i])
		tapOut[i] = f.absorptive[i].Process(raw)
	}

	var mixed [NumTaps]float32
	for i := 0; i < NumTaps; i++ {
		var sum float32
		for j := 0; j < NumTaps; j++ {
			sum += f.hadamard[i][j] * tapOut[j]
		}
		mixed[i] = sum
	}

	for i := 0; i < NumTaps; i++ {
		f.delays[i].Write(input + mixed[i])
	}

	var out float32
	for i := 0; i < NumTaps; i++ {
		out += tapOut[i]
	}
	out /= NumTaps

	for _, ap := range f.allpass {
		out = ap.process(out)
	}
	return dsp.FlushDenormals(f.tone.Process(out))
}

// Reset clears every delay line, filter, and allpass state.
func (f *FDN) Reset() {
	for i := range f.delays {
		f.delays[i].Reset()
		f.absorptive[i].Reset()
	}
	for _, ap := range f.allpass {
		ap.reset()
	}
	f.tone.Reset()
}

// hadamard16 builds the 16x16 Hadamard matrix via Sylvester's recursive
// construction and scales it by 1/4 so the mix stays unitary up to that
// scalar (spec §4.11).
func hadamard16() [NumTaps][NumTaps]float32 {
	cur := [][]float32{{1}}
	size := 1
	for size < NumTaps {
		next := make([][]float32, size*2)
		for i := range next {
			next[i] = make([]float32, size*2)
		}
		for i := 0; i < size; i++ {
			for j := 0; j < size; j++ {
				v := cur[i][j]
				next[i][j] = v
				next[i][j+size] = v
				next[i+size][j] = v
				next[i+size][j+size] = -v
			}
		}
		cur = next
		size *= 2
	}
	var out [NumTaps][NumTaps]float32
	for i := 0; i < NumTaps; i++ {
		for j := 0; j < NumTaps; j++ {
			out[i][j] = cur[i][j] * 0.25
		}
	}
	return out
}
