// Package audio decodes uploaded WAV files into mono float32 clips and plays
// clip ranges through the system speaker.
package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/wav"
)

var ErrNotWav = errors.New("not a valid wav file")

// Clip is decoded mono audio, samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
}

func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// FrameForTime converts a playhead time to a sample index, clamped to the
// clip bounds.
func (c *Clip) FrameForTime(t time.Duration) int {
	if t < 0 || c.SampleRate <= 0 {
		return 0
	}
	frame := int(int64(t) * int64(c.SampleRate) / int64(time.Second))
	if frame > len(c.Samples) {
		frame = len(c.Samples)
	}
	return frame
}

// DecodeWAV decodes a PCM WAV file into a mono clip. Multi-channel audio is
// downmixed by averaging; sample values are scaled by the source bit depth.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrNotWav
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, ErrNotWav
	}

	channels := buf.Format.NumChannels
	scale := float32(1 << 15)
	if buf.SourceBitDepth > 0 {
		scale = float32(int64(1) << (buf.SourceBitDepth - 1))
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		samples[i] = sum / float32(channels)
	}

	return &Clip{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
	}, nil
}
