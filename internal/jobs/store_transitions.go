package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BeginRun transitions a job into processing and resets per-run state. The
// start stage records where this run will re-enter the pipeline; the progress
// log starts fresh each run.
func (s *Store) BeginRun(ctx context.Context, id string, startStage int) (*Job, error) {
	if startStage < StageCleanup || startStage > StageCount {
		return nil, fmt.Errorf("start stage %d out of range", startStage)
	}
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", id)
	}

	now := time.Now().UTC()
	job.Status = StatusProcessing
	job.CurrentStage = 0
	job.StageLabel = ""
	job.ErrorMessage = ""
	job.StageLogJSON = ""
	job.StartStage = startStage
	job.LastHeartbeat = &now
	if err := s.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now,
		now,
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// FailInFlight marks every processing job failed with the given message.
// Called on daemon startup (orphan recovery) and shutdown so the processing
// status never survives a restart.
func (s *Store) FailInFlight(ctx context.Context, message string) (int64, error) {
	if message == "" {
		return 0, errors.New("message is required")
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusFailed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail in-flight jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed or review jobs back to pending for reprocessing.
// With no IDs every failed job is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`,
			StatusPending,
			now,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+4)
	args = append(args, StatusPending, now)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusFailed, StatusAwaitingReview)
	query := `UPDATE jobs SET status = ?, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status IN (?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
