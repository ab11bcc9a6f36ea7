package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/audio"
	"revoice/internal/jobs"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

// runMix synthesizes every edited segment in its speaker's cloned voice,
// stitches the clips, and blends them with the background stem. This stage
// always re-runs on entry because it is the resume point after human edits.
func (r *Runner) runMix(ctx context.Context, job *jobs.Job) error {
	editedRaw := job.EditedJSON
	if editedRaw == "" {
		editedRaw = job.TranslatedJSON
	}
	edited, err := transcript.Decode(editedRaw)
	if err != nil {
		return err
	}
	if len(edited) == 0 {
		return services.Wrap(services.ErrValidation, "mix", "", "translated segments missing", nil)
	}
	voiceMap, err := decodeVoiceMap(job.VoiceMapJSON)
	if err != nil {
		return err
	}
	if len(voiceMap) == 0 {
		return services.Wrap(services.ErrValidation, "mix", "", "voice map missing", nil)
	}

	voiceCode := job.TargetLanguage
	if lang, ok := transcript.LookupLanguage(job.TargetLanguage); ok {
		voiceCode = lang.VoiceCode
	}

	job.StageLabel = "Synthesizing Speech"
	if err := r.logProgress(ctx, job, fmt.Sprintf("synthesizing %d segments", len(edited))); err != nil {
		return err
	}
	clipDir := filepath.Join(r.cfg.JobDir(job.ID), "tts")
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return fmt.Errorf("create tts directory: %w", err)
	}

	clips := make([]*audio.Track, 0, len(edited))
	for i, seg := range edited {
		text := seg.TranslatedText
		if strings.TrimSpace(text) == "" {
			text = seg.Text
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		voiceID, ok := voiceMap[seg.Speaker]
		if !ok {
			return services.Wrap(services.ErrValidation, "mix", "",
				fmt.Sprintf("no cloned voice for %s", seg.Speaker), nil)
		}
		clipPath := filepath.Join(clipDir, fmt.Sprintf("segment_%03d.wav", i))
		if err := r.providers.Synthesis.Synthesize(ctx, voiceID, text, voiceCode, clipPath); err != nil {
			return err
		}
		clip, err := audio.Load(clipPath)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "mix", "load synthesized clip", clipPath, err)
		}
		clips = append(clips, clip)
	}

	speech, err := audio.Stitch(clips, r.cfg.Mix.StitchCrossfadeMillis)
	if err != nil {
		return services.Wrap(services.ErrValidation, "mix", "stitch segments", "", err)
	}

	job.StageLabel = "Mixing"
	if err := r.logProgress(ctx, job, "mixing with background"); err != nil {
		return err
	}
	var background *audio.Track
	if fileExists(job.BackgroundFile) {
		background, err = audio.Load(job.BackgroundFile)
		if err != nil {
			return services.Wrap(services.ErrValidation, "mix", "load background", job.BackgroundFile, err)
		}
	}

	// Boundary timestamps come from the original transcript so the intro and
	// outro keep their source-audio extent.
	boundaries, err := transcript.Decode(job.TranscriptJSON)
	if err != nil {
		return err
	}
	final, err := audio.SmartMix(speech, background, boundaries, r.cfg.Mix.BackgroundAttenuationDB, r.cfg.Mix.CrossfadeMillis)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "mix", "smart mix", "", err)
	}

	outputFile := filepath.Join(r.cfg.JobDir(job.ID), outputFileName(job))
	if err := final.Save(outputFile); err != nil {
		return err
	}
	job.OutputFile = outputFile
	return nil
}

func outputFileName(job *jobs.Job) string {
	base := strings.TrimSuffix(job.OriginalFilename, filepath.Ext(job.OriginalFilename))
	if base == "" {
		base = job.ID
	}
	return fmt.Sprintf("%s_%s.wav", base, transcript.NormalizeLanguageCode(job.TargetLanguage))
}
