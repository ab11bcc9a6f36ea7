package audio

import (
	"fmt"
	"sort"

	"revoice/internal/transcript"
)

// SmartMix blends synthesized speech with the original background track
// while preserving the intro and outro at full volume.
//
// The first and last transcript timestamps define where clean background
// music ends and begins again. The middle section is attenuated, looped or
// truncated to the synthesized speech's length, and overlaid with the
// speech; the three sections are then joined with short seam crossfades.
// Intro and outro lengths are never altered.
func SmartMix(tts, background *Track, segments []transcript.Segment, attenuationDB float64, crossfadeMS int) (*Track, error) {
	if tts == nil {
		return nil, fmt.Errorf("synthesized track is required")
	}
	if background == nil || background.Frames() == 0 {
		return tts.Clone(), nil
	}
	if len(segments) == 0 {
		return Mix(tts, background, attenuationDB)
	}
	if tts.SampleRate != background.SampleRate {
		return nil, fmt.Errorf("sample rate mismatch: speech %d vs background %d", tts.SampleRate, background.SampleRate)
	}

	firstSpeech := segments[0].StartTime
	lastSpeech := segments[len(segments)-1].EndTime
	total := background.Duration()
	if firstSpeech < 0 {
		firstSpeech = 0
	}
	if firstSpeech > total {
		firstSpeech = total
	}
	if lastSpeech < firstSpeech {
		lastSpeech = firstSpeech
	}
	if lastSpeech > total {
		lastSpeech = total
	}

	intro := background.Slice(0, firstSpeech)
	middle := background.Slice(firstSpeech, lastSpeech)
	outro := background.Slice(lastSpeech, total)

	var mixed *Track
	seamMS := crossfadeMS
	if middle.Frames() == 0 {
		// No background under the speech window; the speech stands alone
		// and is hard-appended so no seam ramp eats into it.
		mixed = tts.Clone()
		seamMS = 0
	} else {
		bed := middle.Gain(attenuationDB)
		if bed.Frames() < tts.Frames() {
			bed = bed.TileTo(tts.Frames())
		} else if bed.Frames() > tts.Frames() {
			bed = &Track{Data: bed.Data[:tts.Frames()], SampleRate: bed.SampleRate}
		}
		speech := tts.PadTo(bed.Frames())
		var err error
		mixed, err = speech.Overlay(bed)
		if err != nil {
			return nil, err
		}
	}

	out, err := intro.AppendCrossfade(mixed, seamMS)
	if err != nil {
		return nil, err
	}
	return out.AppendCrossfade(outro, seamMS)
}

// Mix is the degraded variant used when speech boundary timestamps are
// unavailable: attenuate the whole background, loop it under the speech, no
// intro or outro preservation.
func Mix(tts, background *Track, attenuationDB float64) (*Track, error) {
	if tts == nil {
		return nil, fmt.Errorf("synthesized track is required")
	}
	if background == nil || background.Frames() == 0 {
		return tts.Clone(), nil
	}
	if tts.SampleRate != background.SampleRate {
		return nil, fmt.Errorf("sample rate mismatch: speech %d vs background %d", tts.SampleRate, background.SampleRate)
	}
	bed := background.Gain(attenuationDB).TileTo(tts.Frames())
	return tts.Overlay(bed)
}

// Stitch joins per-segment synthesis clips into one continuous speech track
// with a short seam crossfade between clips.
func Stitch(clips []*Track, crossfadeMS int) (*Track, error) {
	var out *Track
	for _, clip := range clips {
		if clip == nil || clip.Frames() == 0 {
			continue
		}
		if out == nil {
			out = clip.Clone()
			continue
		}
		var err error
		out, err = out.AppendCrossfade(clip, crossfadeMS)
		if err != nil {
			return nil, err
		}
	}
	if out == nil {
		return nil, fmt.Errorf("no clips to stitch")
	}
	return out, nil
}

// Clone sample length bounds, in seconds. Providers want enough audio to
// capture vocal identity but reject very long samples.
const (
	MinSampleSeconds = 30
	MaxSampleSeconds = 60
)

// BestSpeakerSamples extracts one cloning sample per speaker from the vocals
// track: the speaker's longest utterances concatenated until the minimum
// length is reached, capped at the maximum.
func BestSpeakerSamples(vocals *Track, segments []transcript.Segment) map[string]*Track {
	bySpeaker := make(map[string][]transcript.Segment)
	for _, seg := range segments {
		if seg.Speaker == "" || seg.Duration() <= 0 {
			continue
		}
		bySpeaker[seg.Speaker] = append(bySpeaker[seg.Speaker], seg)
	}

	samples := make(map[string]*Track, len(bySpeaker))
	for speaker, segs := range bySpeaker {
		sort.SliceStable(segs, func(i, j int) bool {
			return segs[i].Duration() > segs[j].Duration()
		})

		sample := &Track{SampleRate: vocals.SampleRate}
		for _, seg := range segs {
			if sample.Duration() >= MinSampleSeconds {
				break
			}
			clip := vocals.Slice(seg.StartTime, seg.EndTime)
			sample.Data = append(sample.Data, clip.Data...)
		}
		if sample.Duration() > MaxSampleSeconds {
			sample.Data = sample.Data[:MaxSampleSeconds*sample.SampleRate]
		}
		if sample.Frames() > 0 {
			samples[speaker] = sample
		}
	}
	return samples
}
