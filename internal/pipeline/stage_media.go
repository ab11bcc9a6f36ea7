package pipeline

import (
	"context"
	"sync"

	"revoice/internal/jobs"
	"revoice/internal/logging"
)

func (r *Runner) cleanupDone(job *jobs.Job) bool {
	return fileExists(job.CleanedFile)
}

func (r *Runner) separateDone(job *jobs.Job) bool {
	return fileExists(job.VocalsFile)
}

func (r *Runner) runCleanup(ctx context.Context, job *jobs.Job) error {
	cleaned, reference, err := r.providers.Cleanup.Clean(ctx, job.OriginalFile, r.cfg.JobDir(job.ID))
	if err != nil {
		return err
	}
	job.CleanedFile = cleaned
	job.CleanupReference = reference
	return nil
}

// runSeparate is the longest-running stage. A concurrent heartbeat keeps the
// liveness timestamp and progress log moving while the provider works; it is
// joined before the stage result is persisted.
func (r *Runner) runSeparate(ctx context.Context, job *jobs.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go r.heartbeatLoop(hbCtx, &hbWG, job, "source separation in progress")

	stems, err := r.providers.Separation.Separate(ctx, sourceAudio(job), r.cfg.JobDir(job.ID))
	hbCancel()
	hbWG.Wait()
	if err != nil {
		return err
	}

	job.VocalsFile = stems.VocalsFile
	job.BackgroundFile = stems.BackgroundFile
	job.SeparationDegraded = stems.Degraded
	if stems.Degraded {
		logging.WithContext(ctx, r.logger).Info("separation unavailable, using original audio for both stems")
		if err := job.AppendStageLog("separation unavailable - using original audio for both stems"); err != nil {
			return err
		}
	}
	return nil
}
