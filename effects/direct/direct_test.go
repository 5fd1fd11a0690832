package direct

import "testing"

func TestFullOcclusionAttenuatesHeavily(t *testing.T) {
	e := New(DefaultConfig(48000))
	e.SetTargets(Inputs{
		Flags:               Flags{Occlusion: true},
		DistanceAttenuation: 1,
		OcclusionFraction:   1,
	})
	var out float32
	for i := 0; i < 200; i++ {
		out = e.ProcessSample(1)
	}
	if out > 0.2 {
		t.Fatalf("expected heavy attenuation under full occlusion, got %v", out)
	}
}

func TestUnoccludedPassesNearUnity(t *testing.T) {
	e := New(DefaultConfig(48000))
	e.SetTargets(Inputs{
		Flags:               Flags{DistanceAttenuation: true, Occlusion: true},
		DistanceAttenuation: 1,
		OcclusionFraction:   0,
	})
	var out float32
	for i := 0; i < 200; i++ {
		out = e.ProcessSample(1)
	}
	if out < 0.9 || out > 1.1 {
		t.Fatalf("expected near-unity output when unoccluded, got %v", out)
	}
}

func TestTransmissionAddsParallelPath(t *testing.T) {
	e := New(DefaultConfig(48000))
	e.SetTargets(Inputs{
		Flags:                    Flags{Occlusion: true, Transmission: true},
		OcclusionFraction:        1,
		TransmissionGain:         1,
		TransmissionDelaySeconds: 0.001,
	})
	var out float32
	for i := 0; i < 500; i++ {
		out = e.ProcessSample(1)
	}
	if out <= 0 {
		t.Fatalf("expected the transmission path to contribute nonzero energy, got %v", out)
	}
}
