package pipeline_test

import (
	"strings"
	"testing"

	"revoice/internal/jobs"
	"revoice/internal/pipeline"
	"revoice/internal/transcript"
)

func encodeSegments(t *testing.T, segments []transcript.Segment) string {
	t.Helper()
	encoded, err := transcript.Encode(segments)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return encoded
}

func TestBuildReportUntranslatedRate(t *testing.T) {
	german := &transcript.DetectedLanguage{Code: "de", Name: "German", Confidence: 0.97}
	source := []transcript.Segment{
		{Speaker: "Speaker 1", Text: "hallo", StartTime: 1, EndTime: 4, DetectedLanguage: german},
		{Speaker: "Speaker 1", Text: "danke", StartTime: 5, EndTime: 9, DetectedLanguage: german},
	}

	fullyTranslated := []transcript.Segment{
		{Speaker: "Speaker 1", Text: "hallo", TranslatedText: "hello"},
		{Speaker: "Speaker 1", Text: "danke", TranslatedText: "thanks"},
	}
	halfTranslated := []transcript.Segment{
		{Speaker: "Speaker 1", Text: "hallo", TranslatedText: "hello"},
		{Speaker: "Speaker 1", Text: "danke", TranslatedText: "danke"},
	}

	cases := []struct {
		name             string
		edited           []transcript.Segment
		wantUntranslated int
		wantPercent      float64
	}{
		{"all translated", fullyTranslated, 0, 100},
		{"half translated", halfTranslated, 1, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &jobs.Job{
				TargetLanguage: "en",
				TranscriptJSON: encodeSegments(t, source),
				EditedJSON:     encodeSegments(t, tc.edited),
				VoiceMapJSON:   `{"Speaker 1":"voice-1"}`,
			}
			report, err := pipeline.BuildReport(job)
			if err != nil {
				t.Fatalf("BuildReport: %v", err)
			}
			if report.UntranslatedSegments != tc.wantUntranslated {
				t.Errorf("untranslated = %d, want %d", report.UntranslatedSegments, tc.wantUntranslated)
			}
			if report.TranslatedPercent != tc.wantPercent {
				t.Errorf("translated percent = %v, want %v", report.TranslatedPercent, tc.wantPercent)
			}
			if report.DurationSeconds != 9 {
				t.Errorf("duration = %v, want 9", report.DurationSeconds)
			}
			if len(report.Languages) != 1 || report.Languages[0].Code != "de" {
				t.Errorf("languages = %+v", report.Languages)
			}
			if len(report.ClonedSpeakers) != 1 || report.ClonedSpeakers[0] != "Speaker 1" {
				t.Errorf("cloned speakers = %v", report.ClonedSpeakers)
			}
		})
	}
}

func TestReportRender(t *testing.T) {
	report := pipeline.Report{
		TargetLanguage:     "en",
		DurationSeconds:    120.5,
		SpeechSeconds:      90,
		SegmentCount:       10,
		TranslatedSegments: 9,
		TranslatedPercent:  90,
		Languages:          []transcript.LanguageCount{{Code: "de", Name: "German", Count: 10, Percentage: 100}},
		ClonedSpeakers:     []string{"Speaker 1", "Speaker 2"},
		SeparationDegraded: true,
		OutputFile:         "/tmp/out.wav",
	}
	rendered := report.Render()
	for _, want := range []string{
		"- Target language: English",
		"120.5 seconds",
		"90.0% translated",
		"German 100.0%",
		"Speaker 1, Speaker 2",
		"degraded",
		"/tmp/out.wav",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("render missing %q:\n%s", want, rendered)
		}
	}
}
