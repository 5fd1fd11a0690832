// Package audiobuffer implements the plumbing spec §6 describes for
// hosts: allocation, interleave/deinterleave, downmix, mix, and the
// Ambisonic-format conversion surface effects reach for at the API
// boundary. Internally every effect package works on plain []float32
// slices the way the teacher's DSP code does; this package only exists
// at the I/O seam, mirroring how the teacher imports go-audio/audio
// solely in its cmd/ WAV-writing boundary and never in library code.
package audiobuffer

import (
	"fmt"

	goaudio "github.com/go-audio/audio"
)

// Buffer is a planar multi-channel audio buffer: one []float32 per
// channel, all the same length. This is the internal working shape used
// by every effect in this module (spec §6 "AudioBuffer").
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// New allocates a Buffer with numChannels channels of numFrames frames,
// all samples zeroed.
func New(numChannels, numFrames, sampleRate int) (*Buffer, error) {
	if numChannels <= 0 {
		return nil, fmt.Errorf("audiobuffer: numChannels must be > 0, got %d", numChannels)
	}
	if numFrames < 0 {
		return nil, fmt.Errorf("audiobuffer: numFrames must be >= 0, got %d", numFrames)
	}
	b := &Buffer{
		SampleRate: sampleRate,
		Channels:   make([][]float32, numChannels),
	}
	for c := range b.Channels {
		b.Channels[c] = make([]float32, numFrames)
	}
	return b, nil
}

// NumChannels reports the channel count.
func (b *Buffer) NumChannels() int { return len(b.Channels) }

// NumFrames reports the per-channel sample count, or 0 for an empty buffer.
func (b *Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Clear zeroes every channel in place.
func (b *Buffer) Clear() {
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = 0
		}
	}
}

// Interleave packs the buffer's planar channels into a single
// interleaved slice (frame-major: c0f0,c1f0,...,c0f1,c1f1,...).
func (b *Buffer) Interleave() []float32 {
	n := b.NumChannels()
	frames := b.NumFrames()
	out := make([]float32, n*frames)
	for c, ch := range b.Channels {
		for f, v := range ch {
			out[f*n+c] = v
		}
	}
	return out
}

// Deinterleave fills b's planar channels from an interleaved slice. It
// is the exact inverse of Interleave: Deinterleave(Interleave()) is a
// lossless round trip (spec §8 "AudioBuffer.read/write").
func (b *Buffer) Deinterleave(interleaved []float32) error {
	n := b.NumChannels()
	if n == 0 {
		return nil
	}
	if len(interleaved)%n != 0 {
		return fmt.Errorf("audiobuffer: interleaved length %d not a multiple of %d channels", len(interleaved), n)
	}
	frames := len(interleaved) / n
	for c := range b.Channels {
		if len(b.Channels[c]) != frames {
			b.Channels[c] = make([]float32, frames)
		}
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < n; c++ {
			b.Channels[c][f] = interleaved[f*n+c]
		}
	}
	return nil
}

// Downmix averages every channel sample-by-sample into a single mono
// channel (spec §8: "downmix(stereo) -> mono produces the arithmetic
// mean of the two input channels", generalized to N channels).
func Downmix(b *Buffer) []float32 {
	n := b.NumChannels()
	frames := b.NumFrames()
	out := make([]float32, frames)
	if n == 0 {
		return out
	}
	inv := 1.0 / float32(n)
	for _, ch := range b.Channels {
		for i, v := range ch {
			out[i] += v * inv
		}
	}
	return out
}

// Mix sums src into dst in place, scaled by gain. Both buffers must have
// the same channel count and frame count.
func Mix(dst, src *Buffer, gain float32) error {
	if dst.NumChannels() != src.NumChannels() {
		return fmt.Errorf("audiobuffer: channel count mismatch %d != %d", dst.NumChannels(), src.NumChannels())
	}
	if dst.NumFrames() != src.NumFrames() {
		return fmt.Errorf("audiobuffer: frame count mismatch %d != %d", dst.NumFrames(), src.NumFrames())
	}
	for c := range dst.Channels {
		d, s := dst.Channels[c], src.Channels[c]
		for i := range d {
			d[i] += s[i] * gain
		}
	}
	return nil
}

// ToFloat32Buffer converts b into a go-audio interleaved Float32Buffer,
// the shape the WAV encoder (cmd/ir-bake) and test fixtures consume.
func (b *Buffer) ToFloat32Buffer() *goaudio.Float32Buffer {
	return &goaudio.Float32Buffer{
		Format: &goaudio.Format{
			SampleRate:  b.SampleRate,
			NumChannels: b.NumChannels(),
		},
		Data:           b.Interleave(),
		SourceBitDepth: 24,
	}
}

// FromFloat32Buffer builds a planar Buffer from a go-audio interleaved
// Float32Buffer.
func FromFloat32Buffer(src *goaudio.Float32Buffer) (*Buffer, error) {
	if src == nil || src.Format == nil {
		return nil, fmt.Errorf("audiobuffer: nil source buffer/format")
	}
	n := src.Format.NumChannels
	b, err := New(n, 0, src.Format.SampleRate)
	if err != nil {
		return nil, err
	}
	if err := b.Deinterleave(src.Data); err != nil {
		return nil, err
	}
	return b, nil
}
