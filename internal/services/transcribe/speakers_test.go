package transcribe_test

import (
	"testing"

	"revoice/internal/providers"
	"revoice/internal/services/transcribe"
	"revoice/internal/transcript"
)

func TestAssignSpeakersMaxOverlap(t *testing.T) {
	segments := []transcript.Segment{
		{Text: "hello", StartTime: 0, EndTime: 4},
		{Text: "hi there", StartTime: 4, EndTime: 8},
	}
	turns := []providers.SpeakerTurn{
		{Speaker: "SPEAKER_01", Start: 0, End: 3.5},
		{Speaker: "SPEAKER_00", Start: 3.5, End: 8},
	}

	labeled := transcribe.AssignSpeakers(segments, turns)
	// Sorted unique IDs: SPEAKER_00 -> Speaker 1, SPEAKER_01 -> Speaker 2.
	if labeled[0].Speaker != "Speaker 2" {
		t.Fatalf("first speaker = %q", labeled[0].Speaker)
	}
	if labeled[1].Speaker != "Speaker 1" {
		t.Fatalf("second speaker = %q", labeled[1].Speaker)
	}
}

func TestAssignSpeakersNoOverlapDefaults(t *testing.T) {
	segments := []transcript.Segment{{Text: "late", StartTime: 100, EndTime: 102}}
	turns := []providers.SpeakerTurn{{Speaker: "SPEAKER_00", Start: 0, End: 5}}

	labeled := transcribe.AssignSpeakers(segments, turns)
	if labeled[0].Speaker != "Speaker 1" {
		t.Fatalf("speaker = %q", labeled[0].Speaker)
	}
}

func TestAssignSpeakersEmptyTurnsFallsBackToGaps(t *testing.T) {
	segments := []transcript.Segment{
		{Text: "a", StartTime: 0, EndTime: 1},
		{Text: "b", StartTime: 5, EndTime: 6},
		{Text: "c", StartTime: 6.2, EndTime: 7},
	}
	labeled := transcribe.AssignSpeakers(segments, nil)
	if labeled[0].Speaker != "Speaker 1" || labeled[1].Speaker != "Speaker 2" || labeled[2].Speaker != "Speaker 2" {
		t.Fatalf("labels = %q %q %q", labeled[0].Speaker, labeled[1].Speaker, labeled[2].Speaker)
	}
}

func TestAssignSpeakersByGapsToggles(t *testing.T) {
	segments := []transcript.Segment{
		{Text: "a", StartTime: 0, EndTime: 2},
		// Small gap keeps the speaker; gaps over two seconds toggle.
		{Text: "b", StartTime: 2.5, EndTime: 4},
		{Text: "c", StartTime: 7, EndTime: 9},
		{Text: "d", StartTime: 12.5, EndTime: 13},
	}
	labeled := transcribe.AssignSpeakersByGaps(segments, 2.0)
	want := []string{"Speaker 1", "Speaker 1", "Speaker 2", "Speaker 1"}
	for i, label := range want {
		if labeled[i].Speaker != label {
			t.Fatalf("segment %d speaker = %q, want %q", i, labeled[i].Speaker, label)
		}
	}
}
