// Package direct implements the direct-path effect (spec §4.10): a
// gain-ramp plus 3-band shelving/peaking EQ cascade driven by distance
// attenuation, air absorption, directivity, and occlusion, with an
// optional parallel delayed transmission path through a separate EQ.
package direct

import (
	"github.com/cwbudde/algo-geoacoustics/dsp"
	"github.com/cwbudde/algo-geoacoustics/effects/eq"
)

// Config fixes the effect's sample rate and gain-ramp length.
type Config struct {
	SampleRate float32
	RampFrames int // K in spec §4.10's endGain formula
}

func DefaultConfig(sampleRate float32) Config {
	return Config{SampleRate: sampleRate, RampFrames: 64}
}

// Flags select which per-frame contributions apply (spec §4.10 "flags
// selecting which to apply").
type Flags struct {
	DistanceAttenuation bool
	AirAbsorption       bool
	Directivity         bool
	Occlusion           bool
	Transmission        bool
}

// Inputs are the per-frame parameters driving one Effect update (spec
// §4.10).
type Inputs struct {
	Flags Flags

	DistanceAttenuation float32
	AirAbsorptionBands  [3]float32
	Directivity         float32
	OcclusionFraction   float32 // 0..1, 1 = fully occluded

	// FrequencyDependentTransmission selects between a single scalar gain
	// and a per-band gain for the transmitted parallel path.
	FrequencyDependentTransmission bool
	TransmissionGain               float32
	TransmissionBandGains          [3]float32
	TransmissionDelaySeconds       float32
}

// Effect is one source's direct-path processor.
type Effect struct {
	cfg     Config
	ramp    *dsp.GainRamp
	cascade *eq.Cascade

	transmissionDelay *dsp.DelayLine
	transmissionEQ    *eq.Cascade
	transmissionGain  *dsp.GainRamp
	transmissionOn    bool
	delaySamples      float32
}

const maxTransmissionDelaySeconds = 0.05

func New(cfg Config) *Effect {
	if cfg.RampFrames < 1 {
		cfg.RampFrames = 1
	}
	return &Effect{
		cfg:               cfg,
		ramp:              &dsp.GainRamp{},
		cascade:           eq.New(cfg.SampleRate),
		transmissionDelay: dsp.NewDelayLine(int(maxTransmissionDelaySeconds*cfg.SampleRate) + 4),
		transmissionEQ:    eq.New(cfg.SampleRate),
		transmissionGain:  &dsp.GainRamp{},
	}
}

// occlusionCurve maps an occlusion fraction to a linear gain multiplier.
// A fully-occluded source (fraction 1) is heavily attenuated but not
// fully silenced, matching the low-pass-plus-attenuation feel of
// occluded audio in the reference implementation.
func occlusionCurve(fraction float32) float32 {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return 1 - 0.9*fraction
}

// SetTargets recomputes the gain-ramp and EQ targets for the next frame
// from in (spec §4.10).
func (e *Effect) SetTargets(in Inputs) {
	gain := float32(1)
	if in.Flags.DistanceAttenuation {
		gain *= in.DistanceAttenuation
	}
	if in.Flags.Directivity {
		gain *= in.Directivity
	}
	if in.Flags.Occlusion {
		gain *= occlusionCurve(in.OcclusionFraction)
	}
	e.ramp.SetTarget(gain, e.cfg.RampFrames)

	bandGains := [3]float32{1, 1, 1}
	if in.Flags.AirAbsorption {
		bandGains = in.AirAbsorptionBands
	}
	e.cascade.SetGains(e.cfg.SampleRate, bandGains)

	e.transmissionOn = in.Flags.Transmission
	if e.transmissionOn {
		e.delaySamples = in.TransmissionDelaySeconds * e.cfg.SampleRate
		tGains := [3]float32{in.TransmissionGain, in.TransmissionGain, in.TransmissionGain}
		if in.FrequencyDependentTransmission {
			tGains = in.TransmissionBandGains
		}
		e.transmissionEQ.SetGains(e.cfg.SampleRate, tGains)
		e.transmissionGain.SetTarget(1, e.cfg.RampFrames)
	}
}

// ProcessSample runs one input sample through the direct path, adding the
// parallel transmission path when enabled.
func (e *Effect) ProcessSample(x float32) float32 {
	g := e.ramp.Next()
	out := e.cascade.Process(x) * g

	if e.transmissionOn {
		delayed := e.transmissionDelay.ReadFractional(e.delaySamples)
		e.transmissionDelay.Write(x)
		tg := e.transmissionGain.Next()
		out += e.transmissionEQ.Process(delayed) * tg
	} else {
		e.transmissionDelay.Write(x)
	}
	return dsp.FlushDenormals(out)
}

// Reset clears all internal filter/delay state.
func (e *Effect) Reset() {
	e.cascade.Reset()
	e.transmissionEQ.Reset()
	e.transmissionDelay.Reset()
	e.ramp.Reset(0)
	e.transmissionGain.Reset(0)
}
