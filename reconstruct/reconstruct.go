// Package reconstruct converts a per-source EnergyField into a
// multi-channel impulse response by modulating seeded white noise with
// the square root of each bin's band energy (spec §4.5).
package reconstruct

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-geoacoustics/dsp"
	"github.com/cwbudde/algo-geoacoustics/energyfield"
)

// Config controls one reconstruction pass.
type Config struct {
	SampleRate int
	Duration   float64
	Seed       int64

	// DistanceAttenuation optionally scales the whole envelope, applied
	// before noise modulation (spec §4.5 step 1).
	DistanceAttenuation float64

	// CrossoverLow/CrossoverHigh are the band-split frequencies (Hz)
	// feeding the 3-band split biquads.
	CrossoverLow  float32
	CrossoverHigh float32
}

func DefaultConfig() Config {
	return Config{
		SampleRate:          48000,
		Duration:            1.0,
		Seed:                1,
		DistanceAttenuation: 1.0,
		CrossoverLow:        300,
		CrossoverHigh:       3000,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.DistanceAttenuation < 0 {
		return fmt.Errorf("distance attenuation must be >= 0")
	}
	if c.CrossoverLow <= 0 || c.CrossoverHigh <= c.CrossoverLow {
		return fmt.Errorf("crossover frequencies must satisfy 0 < low < high")
	}
	return nil
}

// ImpulseResponse is a C x S float array, channel 0 the omni (spec §3).
type ImpulseResponse struct {
	Channels int
	Samples  []float32 // flat, Channels*sampleCount
	count    int
}

func (ir *ImpulseResponse) SampleCount() int { return ir.count }

// Channel returns a view of one channel's samples.
func (ir *ImpulseResponse) Channel(c int) []float32 {
	start := c * ir.count
	return ir.Samples[start : start+ir.count]
}

// bandSplit holds the four biquads (a lowpass, a highpass+lowpass
// band-pass pair, and a highpass) used to recompose a full-band noise
// signal from per-band energy envelopes.
type bandSplit struct {
	low     *dsp.Biquad
	midHigh *dsp.Biquad
	midLow  *dsp.Biquad
	high    *dsp.Biquad
}

func newBandSplit(cfg Config) bandSplit {
	return bandSplit{
		low:     dsp.NewLowpass(cfg.CrossoverLow, float32(cfg.SampleRate), 0.707),
		midHigh: dsp.NewHighpass(cfg.CrossoverLow, float32(cfg.SampleRate), 0.707),
		midLow:  dsp.NewLowpass(cfg.CrossoverHigh, float32(cfg.SampleRate), 0.707),
		high:    dsp.NewHighpass(cfg.CrossoverHigh, float32(cfg.SampleRate), 0.707),
	}
}

// mid runs the band-pass cascade (highpass then lowpass) over noise.
func (s bandSplit) mid(noise float32) float32 {
	return s.midLow.Process(s.midHigh.Process(noise))
}

// Reconstruct builds an ImpulseResponse from field (spec §4.5). Each
// channel is driven by its own seeded RNG derived from cfg.Seed and the
// channel index so the whole field reconstructs reproducibly.
func Reconstruct(field *energyfield.Field, cfg Config) (*ImpulseResponse, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sampleCount := int(math.Round(cfg.Duration * float64(cfg.SampleRate)))
	if sampleCount < 1 {
		sampleCount = 1
	}

	ir := &ImpulseResponse{Channels: field.Channels(), count: sampleCount}
	ir.Samples = make([]float32, ir.Channels*sampleCount)

	samplesPerBin := float64(cfg.SampleRate) * energyfield.BinDuration

	for ch := 0; ch < field.Channels(); ch++ {
		out := ir.Channel(ch)
		rng := rand.New(rand.NewSource(cfg.Seed + int64(ch)*7919))
		split := newBandSplit(cfg)

		var envLow, envMid, envHigh []float64
		envLow = envelope(field.Band(ch, 0), sampleCount, samplesPerBin)
		envMid = envelope(field.Band(ch, 1), sampleCount, samplesPerBin)
		envHigh = envelope(field.Band(ch, 2), sampleCount, samplesPerBin)

		for i := 0; i < sampleCount; i++ {
			noise := rng.NormFloat64()
			l := split.low.Process(float32(noise)) * float32(math.Sqrt(envLow[i]))
			m := split.mid(float32(noise)) * float32(math.Sqrt(envMid[i]))
			h := split.high.Process(float32(noise)) * float32(math.Sqrt(envHigh[i]))
			out[i] = float32(cfg.DistanceAttenuation) * (l + m + h)
		}

		highpassDC(out, 0.995)
	}

	return ir, nil
}

// envelope interpolates the bin-resolution band energy up to sample
// resolution by linear interpolation between bin centers (spec §4.5 step
// 3: "modulate each band by sqrt(E[bin]) interpolated sample-by-sample").
func envelope(bins []float64, sampleCount int, samplesPerBin float64) []float64 {
	out := make([]float64, sampleCount)
	if len(bins) == 0 {
		return out
	}
	for i := 0; i < sampleCount; i++ {
		pos := float64(i)/samplesPerBin - 0.5
		b0 := int(math.Floor(pos))
		frac := pos - float64(b0)
		v0 := binAt(bins, b0)
		v1 := binAt(bins, b0+1)
		out[i] = v0 + (v1-v0)*frac
	}
	return out
}

func binAt(bins []float64, i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= len(bins) {
		i = len(bins) - 1
	}
	return bins[i]
}

func highpassDC(x []float32, r float32) {
	if len(x) == 0 {
		return
	}
	var prevIn, prevOut float32
	for i := range x {
		y := x[i] - prevIn + r*prevOut
		prevIn = x[i]
		prevOut = y
		x[i] = y
	}
}
