package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, status, current_stage, stage_label, source_language, target_language, original_file, original_filename, cleaned_file, cleanup_reference, vocals_file, background_file, separation_degraded, transcript_json, detected_languages_json, translated_json, edited_json, voice_map_json, output_file, report_json, error_message, stage_log_json, enabled_stages_json, start_stage, created_at, updated_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id                string
		statusStr         string
		currentStage      sql.NullInt64
		stageLabel        sql.NullString
		sourceLanguage    sql.NullString
		targetLanguage    sql.NullString
		originalFile      sql.NullString
		originalFilename  sql.NullString
		cleanedFile       sql.NullString
		cleanupReference  sql.NullString
		vocalsFile        sql.NullString
		backgroundFile    sql.NullString
		degraded          sql.NullInt64
		transcript        sql.NullString
		detectedLanguages sql.NullString
		translated        sql.NullString
		edited            sql.NullString
		voiceMap          sql.NullString
		outputFile        sql.NullString
		report            sql.NullString
		errorMessage      sql.NullString
		stageLog          sql.NullString
		enabledStages     sql.NullString
		startStage        sql.NullInt64
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
		lastHeartbeatRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&currentStage,
		&stageLabel,
		&sourceLanguage,
		&targetLanguage,
		&originalFile,
		&originalFilename,
		&cleanedFile,
		&cleanupReference,
		&vocalsFile,
		&backgroundFile,
		&degraded,
		&transcript,
		&detectedLanguages,
		&translated,
		&edited,
		&voiceMap,
		&outputFile,
		&report,
		&errorMessage,
		&stageLog,
		&enabledStages,
		&startStage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                    id,
		Status:                Status(statusStr),
		CurrentStage:          int(currentStage.Int64),
		StageLabel:            stageLabel.String,
		SourceLanguage:        sourceLanguage.String,
		TargetLanguage:        targetLanguage.String,
		OriginalFile:          originalFile.String,
		OriginalFilename:      originalFilename.String,
		CleanedFile:           cleanedFile.String,
		CleanupReference:      cleanupReference.String,
		VocalsFile:            vocalsFile.String,
		BackgroundFile:        backgroundFile.String,
		SeparationDegraded:    degraded.Int64 != 0,
		TranscriptJSON:        transcript.String,
		DetectedLanguagesJSON: detectedLanguages.String,
		TranslatedJSON:        translated.String,
		EditedJSON:            edited.String,
		VoiceMapJSON:          voiceMap.String,
		OutputFile:            outputFile.String,
		ReportJSON:            report.String,
		ErrorMessage:          errorMessage.String,
		StageLogJSON:          stageLog.String,
		EnabledStagesJSON:     enabledStages.String,
		StartStage:            int(startStage.Int64),
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
