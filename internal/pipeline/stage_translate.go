package pipeline

import (
	"context"
	"fmt"
	"strings"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

func (r *Runner) translateDone(job *jobs.Job) bool {
	segments, err := transcript.Decode(job.TranslatedJSON)
	return err == nil && len(segments) > 0
}

// runTranslate performs a raw machine-translation pass followed by an LLM
// polish pass. Polish failures degrade per segment to the raw translation
// rather than failing the stage.
func (r *Runner) runTranslate(ctx context.Context, job *jobs.Job) error {
	segments, err := transcript.Decode(job.TranscriptJSON)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "translate", "", "transcript missing", nil)
	}

	target := transcript.NormalizeLanguageCode(job.TargetLanguage)
	if _, ok := transcript.LookupLanguage(target); !ok {
		return services.Wrap(services.ErrValidation, "translate", "",
			fmt.Sprintf("unsupported target language %q", job.TargetLanguage), nil)
	}
	targetName := transcript.LanguageName(target)

	job.StageLabel = "Translating"
	if err := r.logProgress(ctx, job, "translating segments"); err != nil {
		return err
	}
	for i := range segments {
		if strings.TrimSpace(segments[i].Text) == "" {
			segments[i].TranslatedText = segments[i].Text
			continue
		}
		translated, err := r.providers.Translate.Translate(ctx, segments[i].Text, segmentSource(job, segments[i]), target)
		if err != nil {
			return err
		}
		segments[i].TranslatedText = translated
	}

	job.StageLabel = "Polishing Translation"
	if err := r.logProgress(ctx, job, "polishing translation"); err != nil {
		return err
	}
	degraded := 0
	logger := logging.WithContext(ctx, r.logger)
	for i := range segments {
		if strings.TrimSpace(segments[i].TranslatedText) == "" {
			continue
		}
		polished, err := r.providers.Polish.Polish(ctx,
			segments[i].Text, segments[i].TranslatedText, segmentSourceName(job, segments[i]), targetName)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			degraded++
			logger.Warn("polish failed for segment, keeping raw translation",
				logging.Int("segment", i), logging.Error(err))
			continue
		}
		segments[i].TranslatedText = polished
	}
	if degraded > 0 {
		if err := job.AppendStageLog(fmt.Sprintf("polish degraded for %d of %d segments", degraded, len(segments))); err != nil {
			return err
		}
	}

	encoded, err := transcript.Encode(segments)
	if err != nil {
		return err
	}
	job.TranslatedJSON = encoded
	return nil
}

// segmentSource picks the translation source code for one segment: the user's
// explicit choice, the per-segment detection, or auto.
func segmentSource(job *jobs.Job, seg transcript.Segment) string {
	if job.SourceLanguage != "" && job.SourceLanguage != jobs.AutoDetect {
		return job.SourceLanguage
	}
	if seg.DetectedLanguage != nil && seg.DetectedLanguage.Code != "" && seg.DetectedLanguage.Code != "unknown" {
		return seg.DetectedLanguage.Code
	}
	return jobs.AutoDetect
}

func segmentSourceName(job *jobs.Job, seg transcript.Segment) string {
	source := segmentSource(job, seg)
	if source == jobs.AutoDetect {
		return "the source language"
	}
	return transcript.LanguageName(source)
}
