package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// NewJobParams captures user input for job creation.
type NewJobParams struct {
	OriginalFile   string
	SourceLanguage string
	TargetLanguage string
	EnabledStages  []int
}

// Create inserts a new pending job for an uploaded audio file.
func (s *Store) Create(ctx context.Context, params NewJobParams) (*Job, error) {
	if params.OriginalFile == "" {
		return nil, errors.New("original file is required")
	}
	if params.TargetLanguage == "" {
		return nil, errors.New("target language is required")
	}
	source := params.SourceLanguage
	if source == "" {
		source = AutoDetect
	}

	job := &Job{
		ID:               uuid.NewString(),
		Status:           StatusPending,
		SourceLanguage:   source,
		TargetLanguage:   params.TargetLanguage,
		OriginalFile:     params.OriginalFile,
		OriginalFilename: filepath.Base(params.OriginalFile),
		StartStage:       StageCleanup,
	}
	if err := job.SetEnabledStages(params.EnabledStages); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, status, current_stage, source_language, target_language,
            original_file, original_filename, enabled_stages_json, start_stage,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Status,
		0,
		job.SourceLanguage,
		job.TargetLanguage,
		job.OriginalFile,
		job.OriginalFilename,
		nullableString(job.EnabledStagesJSON),
		job.StartStage,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, job.ID)
}

// GetByID fetches a job by identifier. Returns nil when no job matches.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = ?, stage_label = ?, source_language = ?,
             target_language = ?, original_file = ?, original_filename = ?,
             cleaned_file = ?, cleanup_reference = ?, vocals_file = ?,
             background_file = ?, separation_degraded = ?, transcript_json = ?,
             detected_languages_json = ?,
             translated_json = ?, edited_json = ?, voice_map_json = ?,
             output_file = ?, report_json = ?, error_message = ?,
             stage_log_json = ?, enabled_stages_json = ?, start_stage = ?,
             updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.Status,
		job.CurrentStage,
		nullableString(job.StageLabel),
		nullableString(job.SourceLanguage),
		job.TargetLanguage,
		nullableString(job.OriginalFile),
		nullableString(job.OriginalFilename),
		nullableString(job.CleanedFile),
		nullableString(job.CleanupReference),
		nullableString(job.VocalsFile),
		nullableString(job.BackgroundFile),
		job.SeparationDegraded,
		nullableString(job.TranscriptJSON),
		nullableString(job.DetectedLanguagesJSON),
		nullableString(job.TranslatedJSON),
		nullableString(job.EditedJSON),
		nullableString(job.VoiceMapJSON),
		nullableString(job.OutputFile),
		nullableString(job.ReportJSON),
		nullableString(job.ErrorMessage),
		nullableString(job.StageLogJSON),
		nullableString(job.EnabledStagesJSON),
		job.StartStage,
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// NextPending returns the oldest pending job, or nil when the queue is empty.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all jobs from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
