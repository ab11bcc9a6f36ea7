// Package pipeline sequences the six translation stages for a job: cleanup,
// separation, transcription, translation, voice cloning, and synthesis/mix.
// The runner owns skip/resume semantics, the stage progress log, the run time
// budget, and failure classification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"revoice/internal/config"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/providers"
	"revoice/internal/services"
	"revoice/internal/speakers"
)

// Runner executes pipeline runs against the job store.
type Runner struct {
	cfg       *config.Config
	store     *jobs.Store
	providers *providers.Registry
	voices    *speakers.Cache
	logger    *slog.Logger

	heartbeatInterval time.Duration
	budget            time.Duration
}

// New builds a runner. The speaker fingerprint cache is constructed here so
// every run shares one profile view.
func New(cfg *config.Config, store *jobs.Store, registry *providers.Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	heartbeat := time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	budget := time.Duration(cfg.Workflow.StageBudgetMinutes) * time.Minute
	if budget <= 0 {
		budget = 20 * time.Minute
	}
	return &Runner{
		cfg:               cfg,
		store:             store,
		providers:         registry,
		voices:            speakers.NewCache(store, registry.Embeddings, cfg.Voice.SimilarityThreshold, logger),
		logger:            logging.NewComponentLogger(logger, "pipeline"),
		heartbeatInterval: heartbeat,
		budget:            budget,
	}
}

type stageDef struct {
	number int
	label  string
	// done reports whether the stage's output artifact already exists, in
	// which case the stage body is skipped on re-entry.
	done func(*jobs.Job) bool
	run  func(context.Context, *jobs.Job) error
}

func (r *Runner) stages() []stageDef {
	return []stageDef{
		{jobs.StageCleanup, "Cleaning Audio", r.cleanupDone, r.runCleanup},
		{jobs.StageSeparate, "Separating Sources", r.separateDone, r.runSeparate},
		{jobs.StageTranscribe, "Transcribing", r.transcribeDone, r.runTranscribe},
		{jobs.StageTranslate, "Translating", r.translateDone, r.runTranslate},
		{jobs.StageSynthesize, "Cloning Voices", r.synthesizeDone, r.runSynthesize},
		{jobs.StageMix, "Synthesizing & Mixing", nil, r.runMix},
	}
}

// Run executes stages startFrom through 6 and regenerates the report. Any
// stage error marks the job failed with the error text preserved for the
// operator; exceeding the run budget is reported with an explicit retry hint.
func (r *Runner) Run(ctx context.Context, jobID string, startFrom int) error {
	job, err := r.store.BeginRun(ctx, jobID, startFrom)
	if err != nil {
		return err
	}

	ctx = services.WithJobID(ctx, job.ID)
	runCtx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	logger := logging.WithContext(ctx, r.logger)
	logger.Info("run started",
		logging.Int("start_stage", startFrom),
		logging.String("target_language", job.TargetLanguage))

	if err := r.runStages(runCtx, job, startFrom); err != nil {
		return r.failRun(ctx, job, err, logger)
	}

	job.Status = jobs.StatusCompleted
	job.StageLabel = "Completed"
	job.LastHeartbeat = nil
	if err := r.store.Update(ctx, job); err != nil {
		return err
	}
	logger.Info("run completed", logging.String("output_file", job.OutputFile))
	return nil
}

// Resume re-enters at stage 6, the seam after the human-edit checkpoint.
func (r *Runner) Resume(ctx context.Context, jobID string) error {
	return r.Run(ctx, jobID, jobs.StageMix)
}

func (r *Runner) runStages(ctx context.Context, job *jobs.Job, startFrom int) error {
	for _, stage := range r.stages() {
		if stage.number < startFrom {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStage(ctx, job, stage); err != nil {
			return err
		}
		// Seed the editable segments once translation output exists so a
		// human review pass can replace them before the resume at stage 6.
		if stage.number == jobs.StageTranslate && job.EditedJSON == "" {
			job.EditedJSON = job.TranslatedJSON
			if err := r.store.Update(ctx, job); err != nil {
				return err
			}
		}
	}
	return r.generateReport(ctx, job)
}

func (r *Runner) runStage(ctx context.Context, job *jobs.Job, stage stageDef) error {
	name := jobs.StageName(stage.number)

	if stage.number <= jobs.StageSeparate && !job.StageEnabled(stage.number) {
		if err := r.applyPlaceholder(job, stage.number); err != nil {
			return err
		}
		return r.logProgress(ctx, job, fmt.Sprintf("stage %d (%s) skipped - disabled", stage.number, name))
	}
	if stage.done != nil && stage.done(job) {
		return r.logProgress(ctx, job, fmt.Sprintf("stage %d (%s) skipped - already exists", stage.number, name))
	}

	job.CurrentStage = stage.number
	job.StageLabel = stage.label
	if err := r.logProgress(ctx, job, fmt.Sprintf("stage %d (%s) starting", stage.number, name)); err != nil {
		return err
	}
	if err := stage.run(ctx, job); err != nil {
		return err
	}
	return r.logProgress(ctx, job, fmt.Sprintf("stage %d (%s) complete", stage.number, name))
}

// applyPlaceholder satisfies downstream artifact dependencies for a stage the
// user disabled.
func (r *Runner) applyPlaceholder(job *jobs.Job, stage int) error {
	switch stage {
	case jobs.StageCleanup:
		job.CleanedFile = job.OriginalFile
	case jobs.StageSeparate:
		job.VocalsFile = sourceAudio(job)
		job.BackgroundFile = ""
	default:
		return services.Wrap(services.ErrValidation, jobs.StageName(stage), "", "stage cannot be disabled", nil)
	}
	return nil
}

func (r *Runner) failRun(ctx context.Context, job *jobs.Job, runErr error, logger *slog.Logger) error {
	// A shutdown cancellation leaves the job in processing; the daemon's
	// stop hook records the retryable stop message for all in-flight jobs.
	if errors.Is(runErr, context.Canceled) {
		logger.Debug("run interrupted by shutdown")
		return runErr
	}
	if errors.Is(runErr, context.DeadlineExceeded) {
		runErr = services.Wrap(services.ErrTimeout, jobs.StageName(job.CurrentStage), "", "run budget exhausted", runErr)
	}

	job.Status = services.FailureStatus(runErr)
	job.ErrorMessage = services.FailureMessage(runErr)
	job.LastHeartbeat = nil
	if err := job.AppendStageLog("run failed: " + job.ErrorMessage); err != nil {
		logger.Warn("failed to append failure log entry", logging.Error(err))
	}
	if err := r.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist run failure", logging.Error(err))
		return err
	}
	logger.Error("run failed",
		logging.Int("stage", job.CurrentStage),
		logging.String("status", string(job.Status)),
		logging.Error(runErr))
	return runErr
}

// logProgress appends a stage-log entry and persists the job.
func (r *Runner) logProgress(ctx context.Context, job *jobs.Job, message string) error {
	if err := job.AppendStageLog(message); err != nil {
		return err
	}
	if err := r.store.Update(ctx, job); err != nil {
		return err
	}
	logging.WithContext(ctx, r.logger).Info(message, logging.Int("stage", job.CurrentStage))
	return nil
}

// heartbeatLoop refreshes liveness and appends observability entries while a
// long-running stage is in flight. The caller cancels hbCtx and waits on wg
// before touching the job again, so the loop is the only writer meanwhile.
func (r *Runner) heartbeatLoop(hbCtx context.Context, wg *sync.WaitGroup, job *jobs.Job, message string) {
	defer wg.Done()
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	logger := logging.WithContext(hbCtx, r.logger)
	for {
		select {
		case <-hbCtx.Done():
			return
		case <-ticker.C:
			if err := r.store.UpdateHeartbeat(hbCtx, job.ID); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Warn("heartbeat update failed", logging.Error(err))
				}
				continue
			}
			if err := job.AppendStageLog(message); err != nil {
				continue
			}
			if err := r.store.Update(hbCtx, job); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("heartbeat log update failed", logging.Error(err))
			}
		}
	}
}

// sourceAudio resolves the best available speech input for a stage: cleaned
// audio when cleanup ran, otherwise the original upload.
func sourceAudio(job *jobs.Job) string {
	if job.CleanedFile != "" {
		return job.CleanedFile
	}
	return job.OriginalFile
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
