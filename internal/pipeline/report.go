package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"revoice/internal/jobs"
	"revoice/internal/transcript"
)

// Report is the deterministic summary generated after every run. It is a pure
// reduction over persisted job artifacts.
type Report struct {
	TargetLanguage       string                     `json:"target_language"`
	DurationSeconds      float64                    `json:"duration_seconds"`
	SpeechSeconds        float64                    `json:"speech_seconds"`
	SegmentCount         int                        `json:"segment_count"`
	TranslatedSegments   int                        `json:"translated_segments"`
	UntranslatedSegments int                        `json:"untranslated_segments"`
	TranslatedPercent    float64                    `json:"translated_percent"`
	Languages            []transcript.LanguageCount `json:"languages,omitempty"`
	ClonedSpeakers       []string                   `json:"cloned_speakers,omitempty"`
	SeparationDegraded   bool                       `json:"separation_degraded"`
	OutputFile           string                     `json:"output_file,omitempty"`
}

// BuildReport reduces a job's final artifacts into a report. A segment counts
// as untranslated when its translated text exactly equals the non-empty
// source text.
func BuildReport(job *jobs.Job) (Report, error) {
	report := Report{
		TargetLanguage:     job.TargetLanguage,
		SeparationDegraded: job.SeparationDegraded,
		OutputFile:         job.OutputFile,
	}

	segments, err := transcript.Decode(job.TranscriptJSON)
	if err != nil {
		return Report{}, err
	}
	for _, seg := range segments {
		if seg.EndTime > report.DurationSeconds {
			report.DurationSeconds = seg.EndTime
		}
	}
	report.SpeechSeconds = transcript.TotalSpeech(segments)

	finalRaw := job.EditedJSON
	if finalRaw == "" {
		finalRaw = job.TranslatedJSON
	}
	finalSegments, err := transcript.Decode(finalRaw)
	if err != nil {
		return Report{}, err
	}
	report.SegmentCount = len(finalSegments)
	for _, seg := range finalSegments {
		if seg.Text != "" && seg.Text == seg.TranslatedText {
			report.UntranslatedSegments++
			continue
		}
		report.TranslatedSegments++
	}
	if report.SegmentCount > 0 {
		report.TranslatedPercent = round1(float64(report.TranslatedSegments) / float64(report.SegmentCount) * 100)
	}

	report.Languages, err = transcript.DecodeLanguageCounts(job.DetectedLanguagesJSON)
	if err != nil {
		return Report{}, err
	}
	if report.Languages == nil {
		report.Languages = transcript.SummarizeLanguages(segments)
	}

	voiceMap, err := decodeVoiceMap(job.VoiceMapJSON)
	if err != nil {
		return Report{}, err
	}
	for speaker := range voiceMap {
		report.ClonedSpeakers = append(report.ClonedSpeakers, speaker)
	}
	sort.Strings(report.ClonedSpeakers)

	return report, nil
}

// Render formats the report as markdown bullet lines for the status CLI.
func (r Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Target language: %s\n", transcript.LanguageName(r.TargetLanguage))
	fmt.Fprintf(&b, "- Duration: %.1f seconds (%.1f seconds of speech)\n", r.DurationSeconds, r.SpeechSeconds)
	fmt.Fprintf(&b, "- Segments: %d (%.1f%% translated, %d untranslated)\n",
		r.SegmentCount, r.TranslatedPercent, r.UntranslatedSegments)
	if len(r.Languages) > 0 {
		parts := make([]string, 0, len(r.Languages))
		for _, lang := range r.Languages {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", lang.Name, lang.Percentage))
		}
		fmt.Fprintf(&b, "- Detected languages: %s\n", strings.Join(parts, ", "))
	}
	if len(r.ClonedSpeakers) > 0 {
		fmt.Fprintf(&b, "- Cloned speakers: %s\n", strings.Join(r.ClonedSpeakers, ", "))
	}
	if r.SeparationDegraded {
		b.WriteString("- Source separation: degraded (original audio reused for both stems)\n")
	} else {
		b.WriteString("- Source separation: usable stems produced\n")
	}
	if r.OutputFile != "" {
		fmt.Fprintf(&b, "- Output: %s\n", r.OutputFile)
	}
	return b.String()
}

func (r *Runner) generateReport(ctx context.Context, job *jobs.Job) error {
	report, err := BuildReport(job)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	job.ReportJSON = string(encoded)
	return r.logProgress(ctx, job, "report generated")
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
