package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"revoice/internal/jobs"
	"revoice/internal/transcript"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var target string
	var source string
	var skipCleanup bool
	var skipSeparation bool

	cmd := &cobra.Command{
		Use:   "submit <audio-file>",
		Short: "Queue an audio file for translation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}

			targetCode := transcript.NormalizeLanguageCode(target)
			if _, ok := transcript.LookupLanguage(targetCode); !ok {
				return fmt.Errorf("unsupported target language %q (see 'revoice languages')", target)
			}
			sourceCode := strings.TrimSpace(source)
			if sourceCode != "" && sourceCode != jobs.AutoDetect {
				sourceCode = transcript.NormalizeLanguageCode(sourceCode)
				if _, ok := transcript.LookupLanguage(sourceCode); !ok {
					return fmt.Errorf("unsupported source language %q", source)
				}
			}

			uploaded, err := copyToUploads(args[0], cfg.Paths.UploadDir)
			if err != nil {
				return err
			}

			job, err := store.Create(cmd.Context(), jobs.NewJobParams{
				OriginalFile:   uploaded,
				SourceLanguage: sourceCode,
				TargetLanguage: targetCode,
				EnabledStages:  enabledStages(skipCleanup, skipSeparation),
			})
			if err != nil {
				return fmt.Errorf("create job: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued job %s\n", job.ID)
			fmt.Fprintf(out, "  %s -> %s (%s)\n", job.OriginalFilename,
				transcript.LanguageName(job.TargetLanguage), sourceLabel(job.SourceLanguage))
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language code (required)")
	cmd.Flags().StringVarP(&source, "source", "s", jobs.AutoDetect, "Source language code, or auto")
	cmd.Flags().BoolVar(&skipCleanup, "skip-cleanup", false, "Skip the audio cleanup stage")
	cmd.Flags().BoolVar(&skipSeparation, "skip-separation", false, "Skip the source separation stage")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// enabledStages returns nil when every stage runs, otherwise the explicit set
// the user opted into.
func enabledStages(skipCleanup, skipSeparation bool) []int {
	if !skipCleanup && !skipSeparation {
		return nil
	}
	stages := make([]int, 0, jobs.StageCount)
	for stage := jobs.StageCleanup; stage <= jobs.StageCount; stage++ {
		if stage == jobs.StageCleanup && skipCleanup {
			continue
		}
		if stage == jobs.StageSeparate && skipSeparation {
			continue
		}
		stages = append(stages, stage)
	}
	return stages
}

func sourceLabel(code string) string {
	if code == "" || code == jobs.AutoDetect {
		return "auto-detect"
	}
	return transcript.LanguageName(code)
}

// copyToUploads puts the submitted file under the daemon-owned upload
// directory so later stages do not depend on the caller's path surviving.
func copyToUploads(path, uploadDir string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}
	// Prefix with a fresh ID so resubmitting the same filename never
	// clobbers an earlier job's input.
	target := filepath.Join(uploadDir, uuid.NewString()[:8]+"_"+filepath.Base(path))
	dst, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload copy: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy audio file: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return "", fmt.Errorf("flush upload copy: %w", err)
	}
	return target, nil
}
