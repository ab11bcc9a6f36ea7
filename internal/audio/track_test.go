package audio_test

import (
	"math"
	"path/filepath"
	"testing"

	"revoice/internal/audio"
	"revoice/internal/testsupport"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "tone.wav")
	testsupport.WriteWAV(t, source, 1.0, 16000)

	track, err := audio.Load(source)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if track.SampleRate != 16000 {
		t.Fatalf("sample rate = %d", track.SampleRate)
	}
	if track.Frames() != 16000 {
		t.Fatalf("frames = %d", track.Frames())
	}

	out := filepath.Join(dir, "copy.wav")
	if err := track.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := audio.Load(out)
	if err != nil {
		t.Fatalf("Load copy: %v", err)
	}
	if again.Frames() != track.Frames() {
		t.Fatalf("copy frames = %d, want %d", again.Frames(), track.Frames())
	}
}

func TestGainAttenuates(t *testing.T) {
	track := &audio.Track{Data: []int{1000, -1000}, SampleRate: 16000}
	quieter := track.Gain(-12)

	// -12 dB is slightly above a quarter of the amplitude.
	want := 1000 * math.Pow(10, -12.0/20)
	if math.Abs(float64(quieter.Data[0])-want) > 1 {
		t.Fatalf("attenuated sample = %d, want ~%f", quieter.Data[0], want)
	}
	if quieter.Data[1] != -quieter.Data[0] {
		t.Fatalf("asymmetric attenuation: %v", quieter.Data)
	}
	// Source untouched.
	if track.Data[0] != 1000 {
		t.Fatal("gain mutated its receiver")
	}
}

func TestOverlayClips(t *testing.T) {
	a := &audio.Track{Data: []int{30000, -30000}, SampleRate: 16000}
	b := &audio.Track{Data: []int{10000, -10000}, SampleRate: 16000}
	sum, err := a.Overlay(b)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if sum.Data[0] != 32767 || sum.Data[1] != -32768 {
		t.Fatalf("clipped overlay = %v", sum.Data)
	}

	if _, err := a.Overlay(&audio.Track{Data: []int{1}, SampleRate: 16000}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := a.Overlay(&audio.Track{Data: []int{1, 2}, SampleRate: 8000}); err == nil {
		t.Fatal("expected sample rate mismatch error")
	}
}

func TestTileToLoopsAndTruncates(t *testing.T) {
	track := &audio.Track{Data: []int{1, 2, 3}, SampleRate: 16000}

	looped := track.TileTo(7)
	wantLooped := []int{1, 2, 3, 1, 2, 3, 1}
	for i, v := range wantLooped {
		if looped.Data[i] != v {
			t.Fatalf("looped = %v", looped.Data)
		}
	}

	truncated := track.TileTo(2)
	if len(truncated.Data) != 2 || truncated.Data[1] != 2 {
		t.Fatalf("truncated = %v", truncated.Data)
	}

	if empty := (&audio.Track{SampleRate: 16000}).TileTo(4); empty.Frames() != 4 {
		t.Fatalf("empty tile frames = %d", empty.Frames())
	}
}

func TestSliceClampsBounds(t *testing.T) {
	track := audio.Silence(2.0, 1000)
	if got := track.Slice(-1, 0.5).Frames(); got != 500 {
		t.Fatalf("clamped start frames = %d", got)
	}
	if got := track.Slice(1.5, 99).Frames(); got != 500 {
		t.Fatalf("clamped end frames = %d", got)
	}
	if got := track.Slice(1.0, 0.5).Frames(); got != 0 {
		t.Fatalf("inverted slice frames = %d", got)
	}
}

func TestAppendCrossfadePreservesLength(t *testing.T) {
	a := audio.Silence(1.0, 1000)
	b := audio.Silence(2.0, 1000)

	joined, err := a.AppendCrossfade(b, 100)
	if err != nil {
		t.Fatalf("AppendCrossfade: %v", err)
	}
	if joined.Frames() != a.Frames()+b.Frames() {
		t.Fatalf("joined frames = %d, want %d", joined.Frames(), a.Frames()+b.Frames())
	}

	// Empty side degrades to the other track unchanged.
	solo, err := (&audio.Track{SampleRate: 1000}).AppendCrossfade(b, 100)
	if err != nil {
		t.Fatalf("AppendCrossfade empty: %v", err)
	}
	if solo.Frames() != b.Frames() {
		t.Fatalf("solo frames = %d", solo.Frames())
	}
}

func TestAppendCrossfadeRampsSeam(t *testing.T) {
	a := &audio.Track{Data: make([]int, 1000), SampleRate: 1000}
	for i := range a.Data {
		a.Data[i] = 10000
	}
	b := a.Clone()

	joined, err := a.AppendCrossfade(b, 100)
	if err != nil {
		t.Fatalf("AppendCrossfade: %v", err)
	}
	seam := a.Frames()
	if joined.Data[seam-1] >= 10000 {
		t.Fatalf("fade-out missing: %d", joined.Data[seam-1])
	}
	if joined.Data[seam] >= 10000 {
		t.Fatalf("fade-in missing: %d", joined.Data[seam])
	}
	if joined.Data[0] != 10000 || joined.Data[joined.Frames()-1] != 10000 {
		t.Fatal("ramp touched samples outside the window")
	}
}
