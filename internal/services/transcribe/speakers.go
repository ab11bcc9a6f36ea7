package transcribe

import (
	"fmt"
	"sort"

	"revoice/internal/providers"
	"revoice/internal/transcript"
)

// gapSpeakerToggle is the silence length that suggests a speaker change when
// no diarization is available.
const defaultSpeakerGap = 2.0

// AssignSpeakers labels each segment with the diarization turn that overlaps
// it the most. Raw diarization speaker IDs are renamed to "Speaker N" in
// sorted first-ID order so labels stay stable across runs.
func AssignSpeakers(segments []transcript.Segment, turns []providers.SpeakerTurn) []transcript.Segment {
	if len(turns) == 0 {
		return AssignSpeakersByGaps(segments, defaultSpeakerGap)
	}

	uniqueIDs := make(map[string]struct{})
	for _, turn := range turns {
		uniqueIDs[turn.Speaker] = struct{}{}
	}
	sorted := make([]string, 0, len(uniqueIDs))
	for id := range uniqueIDs {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	names := make(map[string]string, len(sorted))
	for i, id := range sorted {
		names[id] = fmt.Sprintf("Speaker %d", i+1)
	}

	out := make([]transcript.Segment, len(segments))
	for i, seg := range segments {
		best := ""
		bestOverlap := 0.0
		for _, turn := range turns {
			start := seg.StartTime
			if turn.Start > start {
				start = turn.Start
			}
			end := seg.EndTime
			if turn.End < end {
				end = turn.End
			}
			if overlap := end - start; overlap > bestOverlap {
				bestOverlap = overlap
				best = turn.Speaker
			}
		}
		label := "Speaker 1"
		if best != "" {
			label = names[best]
		}
		seg.Speaker = label
		out[i] = seg
	}
	return out
}

// AssignSpeakersByGaps is the degraded labeling used when diarization is
// unavailable: a pause longer than gapSeconds toggles between two speakers.
func AssignSpeakersByGaps(segments []transcript.Segment, gapSeconds float64) []transcript.Segment {
	if gapSeconds <= 0 {
		gapSeconds = defaultSpeakerGap
	}
	out := make([]transcript.Segment, len(segments))
	current := 1
	prevEnd := 0.0
	for i, seg := range segments {
		if prevEnd > 0 && seg.StartTime-prevEnd > gapSeconds {
			current = current%2 + 1
		}
		seg.Speaker = fmt.Sprintf("Speaker %d", current)
		out[i] = seg
		prevEnd = seg.EndTime
	}
	return out
}
