// Package audio implements the PCM operations behind the final mix: gain,
// overlay, tiling, slicing, and the background-preserving smart mix.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	maxSample = 32767
	minSample = -32768
)

// Track is mono 16-bit PCM held in memory. Multi-channel sources are
// downmixed on load.
type Track struct {
	Data       []int
	SampleRate int
}

// Silence returns a track of zero samples.
func Silence(seconds float64, sampleRate int) *Track {
	frames := int(seconds * float64(sampleRate))
	if frames < 0 {
		frames = 0
	}
	return &Track{Data: make([]int, frames), SampleRate: sampleRate}
}

// Load decodes a WAV file into a mono track.
func Load(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("decode wav %s: missing format", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 1 {
		return &Track{Data: buf.Data, SampleRate: buf.Format.SampleRate}, nil
	}

	frames := len(buf.Data) / channels
	mono := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += buf.Data[i*channels+ch]
		}
		mono[i] = sum / channels
	}
	return &Track{Data: mono, SampleRate: buf.Format.SampleRate}, nil
}

// Save encodes the track as 16-bit mono WAV.
func (t *Track) Save(path string) error {
	if t.SampleRate <= 0 {
		return errors.New("track has no sample rate")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for wav: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, t.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: t.SampleRate},
		Data:           t.Data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// Frames returns the sample count.
func (t *Track) Frames() int {
	if t == nil {
		return 0
	}
	return len(t.Data)
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return float64(len(t.Data)) / float64(t.SampleRate)
}

// Clone returns an independent copy.
func (t *Track) Clone() *Track {
	return &Track{Data: append([]int(nil), t.Data...), SampleRate: t.SampleRate}
}

// Gain returns a copy scaled by db decibels. Negative values attenuate.
func (t *Track) Gain(db float64) *Track {
	factor := math.Pow(10, db/20)
	out := make([]int, len(t.Data))
	for i, sample := range t.Data {
		out[i] = clampSample(int(math.Round(float64(sample) * factor)))
	}
	return &Track{Data: out, SampleRate: t.SampleRate}
}

// Slice returns the samples between startSec and endSec, clamped to the
// track bounds.
func (t *Track) Slice(startSec, endSec float64) *Track {
	start := int(startSec * float64(t.SampleRate))
	end := int(endSec * float64(t.SampleRate))
	if start < 0 {
		start = 0
	}
	if end > len(t.Data) {
		end = len(t.Data)
	}
	if start >= end {
		return &Track{SampleRate: t.SampleRate}
	}
	return &Track{Data: append([]int(nil), t.Data[start:end]...), SampleRate: t.SampleRate}
}

// TileTo loops or truncates the track to exactly frames samples. An empty
// track tiles to silence.
func (t *Track) TileTo(frames int) *Track {
	if frames <= 0 {
		return &Track{SampleRate: t.SampleRate}
	}
	out := make([]int, frames)
	if len(t.Data) > 0 {
		for i := range out {
			out[i] = t.Data[i%len(t.Data)]
		}
	}
	return &Track{Data: out, SampleRate: t.SampleRate}
}

// PadTo appends silence until the track holds at least frames samples.
func (t *Track) PadTo(frames int) *Track {
	if len(t.Data) >= frames {
		return t.Clone()
	}
	out := make([]int, frames)
	copy(out, t.Data)
	return &Track{Data: out, SampleRate: t.SampleRate}
}

// Overlay sums the two tracks sample-wise with clipping. Lengths and sample
// rates must already match.
func (t *Track) Overlay(other *Track) (*Track, error) {
	if t.SampleRate != other.SampleRate {
		return nil, fmt.Errorf("sample rate mismatch: %d vs %d", t.SampleRate, other.SampleRate)
	}
	if len(t.Data) != len(other.Data) {
		return nil, fmt.Errorf("length mismatch: %d vs %d frames", len(t.Data), len(other.Data))
	}
	out := make([]int, len(t.Data))
	for i := range out {
		out[i] = clampSample(t.Data[i] + other.Data[i])
	}
	return &Track{Data: out, SampleRate: t.SampleRate}, nil
}

// AppendCrossfade concatenates other after t. When both sides are longer
// than the crossfade window the seam gets complementary linear ramps; the
// total length is always the sum of both inputs. A zero or oversized window
// degrades to a hard concatenation.
func (t *Track) AppendCrossfade(other *Track, crossfadeMS int) (*Track, error) {
	if t.Frames() == 0 {
		return other.Clone(), nil
	}
	if other.Frames() == 0 {
		return t.Clone(), nil
	}
	if t.SampleRate != other.SampleRate {
		return nil, fmt.Errorf("sample rate mismatch: %d vs %d", t.SampleRate, other.SampleRate)
	}

	fade := crossfadeMS * t.SampleRate / 1000
	out := make([]int, 0, len(t.Data)+len(other.Data))
	out = append(out, t.Data...)
	out = append(out, other.Data...)

	if fade > 0 && len(t.Data) > fade && len(other.Data) > fade {
		seam := len(t.Data)
		for i := 0; i < fade; i++ {
			ratio := float64(i+1) / float64(fade+1)
			out[seam-fade+i] = int(float64(out[seam-fade+i]) * (1 - ratio))
			out[seam+i] = int(float64(out[seam+i]) * ratio)
		}
	}
	return &Track{Data: out, SampleRate: t.SampleRate}, nil
}

func clampSample(v int) int {
	if v > maxSample {
		return maxSample
	}
	if v < minSample {
		return minSample
	}
	return v
}
