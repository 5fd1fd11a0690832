package audiobuffer

import "testing"

func TestNewValidatesArgs(t *testing.T) {
	if _, err := New(0, 10, 48000); err == nil {
		t.Fatal("expected error for zero channels")
	}
	if _, err := New(2, -1, 48000); err == nil {
		t.Fatal("expected error for negative frame count")
	}
	b, err := New(2, 100, 48000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.NumChannels() != 2 || b.NumFrames() != 100 {
		t.Fatalf("got %d channels, %d frames", b.NumChannels(), b.NumFrames())
	}
}

func TestInterleaveDeinterleaveRoundTrip(t *testing.T) {
	b, _ := New(3, 5, 48000)
	for c := range b.Channels {
		for i := range b.Channels[c] {
			b.Channels[c][i] = float32(c*100 + i)
		}
	}
	flat := b.Interleave()

	b2, _ := New(3, 0, 48000)
	if err := b2.Deinterleave(flat); err != nil {
		t.Fatalf("Deinterleave: %v", err)
	}
	for c := range b.Channels {
		for i := range b.Channels[c] {
			if b2.Channels[c][i] != b.Channels[c][i] {
				t.Fatalf("round trip mismatch ch=%d i=%d: got %v want %v", c, i, b2.Channels[c][i], b.Channels[c][i])
			}
		}
	}
}

func TestDeinterleaveRejectsBadLength(t *testing.T) {
	b, _ := New(2, 0, 48000)
	if err := b.Deinterleave([]float32{1, 2, 3}); err == nil {
		t.Fatal("expected error for non-multiple length")
	}
}

func TestDownmixIsArithmeticMean(t *testing.T) {
	b, _ := New(2, 4, 48000)
	copy(b.Channels[0], []float32{1, 2, 3, 4})
	copy(b.Channels[1], []float32{3, 4, 5, 6})

	mono := Downmix(b)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
}

func TestMixSumsScaled(t *testing.T) {
	dst, _ := New(1, 3, 48000)
	copy(dst.Channels[0], []float32{1, 1, 1})
	src, _ := New(1, 3, 48000)
	copy(src.Channels[0], []float32{2, 2, 2})

	if err := Mix(dst, src, 0.5); err != nil {
		t.Fatalf("Mix: %v", err)
	}
	for i, v := range dst.Channels[0] {
		if v != 2 {
			t.Errorf("dst[0][%d] = %v, want 2", i, v)
		}
	}
}

func TestMixRejectsMismatchedShapes(t *testing.T) {
	dst, _ := New(1, 3, 48000)
	src, _ := New(2, 3, 48000)
	if err := Mix(dst, src, 1); err == nil {
		t.Fatal("expected channel mismatch error")
	}
	src2, _ := New(1, 4, 48000)
	if err := Mix(dst, src2, 1); err == nil {
		t.Fatal("expected frame count mismatch error")
	}
}

func TestFloat32BufferRoundTrip(t *testing.T) {
	b, _ := New(2, 4, 44100)
	copy(b.Channels[0], []float32{0.1, 0.2, 0.3, 0.4})
	copy(b.Channels[1], []float32{-0.1, -0.2, -0.3, -0.4})

	fb := b.ToFloat32Buffer()
	back, err := FromFloat32Buffer(fb)
	if err != nil {
		t.Fatalf("FromFloat32Buffer: %v", err)
	}
	if back.SampleRate != 44100 || back.NumChannels() != 2 || back.NumFrames() != 4 {
		t.Fatalf("shape mismatch: %+v", back)
	}
	for c := range b.Channels {
		for i := range b.Channels[c] {
			if back.Channels[c][i] != b.Channels[c][i] {
				t.Fatalf("sample mismatch ch=%d i=%d", c, i)
			}
		}
	}
}
