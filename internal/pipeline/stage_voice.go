package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"revoice/internal/audio"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

func (r *Runner) synthesizeDone(job *jobs.Job) bool {
	voiceMap, err := decodeVoiceMap(job.VoiceMapJSON)
	return err == nil && len(voiceMap) > 0
}

// runSynthesize builds the speaker→voice map: extract the best cloning sample
// per speaker, consult the fingerprint cache, and clone only on a miss.
func (r *Runner) runSynthesize(ctx context.Context, job *jobs.Job) error {
	segments, err := transcript.Decode(job.TranscriptJSON)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrValidation, "synthesize", "", "transcript missing", nil)
	}

	vocalsPath := job.VocalsFile
	if !fileExists(vocalsPath) {
		vocalsPath = sourceAudio(job)
	}
	vocals, err := audio.Load(vocalsPath)
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "load vocals", vocalsPath, err)
	}

	samples := audio.BestSpeakerSamples(vocals, segments)
	logger := logging.WithContext(ctx, r.logger)
	voiceMap := make(map[string]string)

	for _, speaker := range transcript.Speakers(segments) {
		sample, ok := samples[speaker]
		if !ok || sample.Frames() == 0 {
			return services.Wrap(services.ErrValidation, "synthesize", "",
				fmt.Sprintf("no speech sample available for %s", speaker), nil)
		}
		samplePath := filepath.Join(r.cfg.JobDir(job.ID), sampleFileName(speaker))
		if err := sample.Save(samplePath); err != nil {
			return err
		}

		embedding, err := r.voices.ComputeEmbedding(ctx, samplePath)
		if err != nil {
			if !errors.Is(err, services.ErrUnavailable) {
				return err
			}
			logger.Info("embedding service unavailable, cloning without fingerprint cache",
				logging.String("speaker", speaker))
			embedding = nil
		}

		if embedding != nil {
			profile, err := r.voices.FindMatchingProfile(ctx, embedding)
			if err != nil {
				return err
			}
			if profile != nil {
				voiceMap[speaker] = profile.VoiceID
				if err := r.logProgress(ctx, job, fmt.Sprintf("reusing cloned voice %s for %s", profile.Name, speaker)); err != nil {
					return err
				}
				continue
			}
		}

		name := profileName(job, speaker)
		voiceID, err := r.providers.Voices.CloneVoice(ctx, name, samplePath)
		if err != nil {
			return err
		}
		voiceMap[speaker] = voiceID
		if embedding != nil {
			if _, err := r.voices.CreateProfile(ctx, name, embedding, voiceID, samplePath); err != nil {
				return err
			}
		}
		if err := r.logProgress(ctx, job, fmt.Sprintf("cloned new voice for %s", speaker)); err != nil {
			return err
		}
	}

	encoded, err := json.Marshal(voiceMap)
	if err != nil {
		return fmt.Errorf("encode voice map: %w", err)
	}
	job.VoiceMapJSON = string(encoded)
	return nil
}

func decodeVoiceMap(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var voiceMap map[string]string
	if err := json.Unmarshal([]byte(raw), &voiceMap); err != nil {
		return nil, fmt.Errorf("decode voice map: %w", err)
	}
	return voiceMap, nil
}

func sampleFileName(speaker string) string {
	slug := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(speaker), " ", "_"))
	return "sample_" + slug + ".wav"
}

func profileName(job *jobs.Job, speaker string) string {
	base := strings.TrimSuffix(job.OriginalFilename, filepath.Ext(job.OriginalFilename))
	if base == "" {
		return speaker
	}
	return base + " - " + speaker
}
