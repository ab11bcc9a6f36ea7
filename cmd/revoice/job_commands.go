package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"revoice/internal/jobs"
	"revoice/internal/transcript"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Re-queue a failed job at its last recorded stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if job.Status != jobs.StatusFailed && job.Status != jobs.StatusAwaitingReview {
				return fmt.Errorf("job is %s; only failed or awaiting_review jobs can be retried", job.Status)
			}

			job.Status = jobs.StatusPending
			job.ErrorMessage = ""
			job.StartStage = job.CurrentStage
			if job.StartStage < jobs.StageCleanup {
				job.StartStage = jobs.StageCleanup
			}
			if err := store.Update(cmd.Context(), job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued for retry from stage %d (%s)\n",
				job.ID, job.StartStage, jobs.StageName(job.StartStage))
			return nil
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-id>",
		Short: "Re-queue a job at the synthesis stage after editing its segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if job.Status == jobs.StatusProcessing {
				return fmt.Errorf("job is still processing")
			}
			if job.VoiceMapJSON == "" {
				return fmt.Errorf("job has not reached the synthesis stage yet; use retry instead")
			}

			job.Status = jobs.StatusPending
			job.ErrorMessage = ""
			job.StartStage = jobs.StageMix
			if err := store.Update(cmd.Context(), job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s queued for re-synthesis\n", job.ID)
			return nil
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <job-id> <segments.json>",
		Short: "Replace a job's translated segments with an edited file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			job, err := store.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if job == nil {
				return fmt.Errorf("no job with id %s", args[0])
			}
			if job.Status == jobs.StatusProcessing {
				return fmt.Errorf("job is still processing")
			}

			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read segments file: %w", err)
			}
			segments, err := transcript.Decode(string(raw))
			if err != nil {
				return fmt.Errorf("parse segments file: %w", err)
			}
			if len(segments) == 0 {
				return fmt.Errorf("segments file contains no segments")
			}
			encoded, err := transcript.Encode(segments)
			if err != nil {
				return err
			}

			job.EditedJSON = encoded
			if err := store.Update(cmd.Context(), job); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d edited segments for job %s; run 'revoice resume %s' to re-synthesize\n",
				len(segments), job.ID, job.ID)
			return nil
		},
	}
}
