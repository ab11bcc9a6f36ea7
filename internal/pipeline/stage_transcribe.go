package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/services/transcribe"
	"revoice/internal/transcript"
)

func (r *Runner) transcribeDone(job *jobs.Job) bool {
	segments, err := transcript.Decode(job.TranscriptJSON)
	return err == nil && len(segments) > 0
}

// runTranscribe performs three logged sub-steps: speaker diarization,
// transcription with speaker assignment, and per-segment language detection.
func (r *Runner) runTranscribe(ctx context.Context, job *jobs.Job) error {
	audioFile := job.VocalsFile
	if !fileExists(audioFile) {
		audioFile = sourceAudio(job)
	}

	job.StageLabel = "Detecting Speakers"
	if err := r.logProgress(ctx, job, "diarizing speakers"); err != nil {
		return err
	}
	turns, err := r.providers.Diarize.Diarize(ctx, audioFile)
	if err != nil {
		if !errors.Is(err, services.ErrUnavailable) {
			return err
		}
		logging.WithContext(ctx, r.logger).Info("diarization unavailable, falling back to gap-based speaker detection")
		turns = nil
	}

	job.StageLabel = "Transcribing"
	if err := r.logProgress(ctx, job, "transcribing speech"); err != nil {
		return err
	}
	segments, err := r.providers.Transcribe.Transcribe(ctx, audioFile, job.SourceLanguage)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "transcribe", "", "no speech detected in audio", nil)
	}
	if len(turns) > 0 {
		segments = transcribe.AssignSpeakers(segments, turns)
	} else {
		gap := r.cfg.Transcription.SpeakerGapSeconds
		segments = transcribe.AssignSpeakersByGaps(segments, gap)
	}

	job.StageLabel = "Detecting Languages"
	if err := r.logProgress(ctx, job, "detecting segment languages"); err != nil {
		return err
	}
	for i := range segments {
		if strings.TrimSpace(segments[i].Text) == "" {
			continue
		}
		detected, err := r.providers.Translate.Detect(ctx, segments[i].Text)
		if err != nil {
			return err
		}
		segments[i].DetectedLanguage = &detected
	}

	encoded, err := transcript.Encode(segments)
	if err != nil {
		return err
	}
	job.TranscriptJSON = encoded

	summary := transcript.SummarizeLanguages(segments)
	if len(summary) > 0 {
		encodedSummary, err := transcript.EncodeLanguageCounts(summary)
		if err != nil {
			return err
		}
		job.DetectedLanguagesJSON = encodedSummary
	}

	return r.logProgress(ctx, job, fmt.Sprintf("transcribed %d segments from %d speakers",
		len(segments), len(transcript.Speakers(segments))))
}
