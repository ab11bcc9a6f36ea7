package jobs

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status represents the lifecycle of a translation job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusAwaitingReview Status = "awaiting_review"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
)

// DaemonStopMessage is the error message set on in-flight jobs when the
// daemon shuts down before they finish.
const DaemonStopMessage = "daemon stopped while job was processing - please retry"

// OrphanRecoveryMessage is set on jobs found mid-processing at daemon start;
// the previous worker died without completing them.
const OrphanRecoveryMessage = "worker terminated unexpectedly - please retry"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusAwaitingReview,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether a job in this status will never run again
// without operator action.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAwaitingReview
}

// Pipeline stage numbering. Stage zero means the job has not started.
const (
	StageCleanup    = 1
	StageSeparate   = 2
	StageTranscribe = 3
	StageTranslate  = 4
	StageSynthesize = 5
	StageMix        = 6

	StageCount = 6
)

var stageNames = map[int]string{
	StageCleanup:    "cleanup",
	StageSeparate:   "separate",
	StageTranscribe: "transcribe",
	StageTranslate:  "translate",
	StageSynthesize: "synthesize",
	StageMix:        "mix",
}

// StageName returns the canonical label for a stage number, or "" when the
// number is out of range.
func StageName(stage int) string {
	return stageNames[stage]
}

// AutoDetect is the source-language sentinel meaning the pipeline should
// detect the language from the transcript.
const AutoDetect = "auto"

// Job represents a translation job persisted in SQLite.
type Job struct {
	ID                    string
	Status                Status
	CurrentStage          int
	StageLabel            string
	SourceLanguage        string
	TargetLanguage        string
	OriginalFile          string
	OriginalFilename      string
	CleanedFile           string
	CleanupReference      string
	VocalsFile            string
	BackgroundFile        string
	SeparationDegraded    bool
	TranscriptJSON        string
	DetectedLanguagesJSON string
	TranslatedJSON        string
	EditedJSON            string
	VoiceMapJSON          string
	OutputFile            string
	ReportJSON            string
	ErrorMessage          string
	StageLogJSON          string
	EnabledStagesJSON     string
	StartStage            int
	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastHeartbeat         *time.Time
}

// StageLogEntry is one append-only progress record kept on the job.
type StageLogEntry struct {
	Timestamp time.Time `json:"ts"`
	Message   string    `json:"msg"`
}

// StageLog decodes the job's progress log. An empty column yields nil.
func (j *Job) StageLog() ([]StageLogEntry, error) {
	if j.StageLogJSON == "" {
		return nil, nil
	}
	var entries []StageLogEntry
	if err := json.Unmarshal([]byte(j.StageLogJSON), &entries); err != nil {
		return nil, fmt.Errorf("decode stage log: %w", err)
	}
	return entries, nil
}

// AppendStageLog adds a timestamped entry to the progress log.
func (j *Job) AppendStageLog(message string) error {
	entries, err := j.StageLog()
	if err != nil {
		return err
	}
	entries = append(entries, StageLogEntry{Timestamp: time.Now().UTC(), Message: message})
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode stage log: %w", err)
	}
	j.StageLogJSON = string(encoded)
	return nil
}

// EnabledStages decodes the user-selected stage set. An empty column means
// every stage runs.
func (j *Job) EnabledStages() ([]int, error) {
	if j.EnabledStagesJSON == "" {
		return nil, nil
	}
	var stages []int
	if err := json.Unmarshal([]byte(j.EnabledStagesJSON), &stages); err != nil {
		return nil, fmt.Errorf("decode enabled stages: %w", err)
	}
	return stages, nil
}

// SetEnabledStages records which optional stages the user opted into.
func (j *Job) SetEnabledStages(stages []int) error {
	if len(stages) == 0 {
		j.EnabledStagesJSON = ""
		return nil
	}
	encoded, err := json.Marshal(stages)
	if err != nil {
		return fmt.Errorf("encode enabled stages: %w", err)
	}
	j.EnabledStagesJSON = string(encoded)
	return nil
}

// StageEnabled reports whether the given stage should run for this job.
// Translation, synthesis, and mixing are mandatory; the preprocessing stages
// can be skipped by the user.
func (j *Job) StageEnabled(stage int) bool {
	if stage >= StageTranslate {
		return true
	}
	if j.EnabledStagesJSON == "" {
		return true
	}
	stages, err := j.EnabledStages()
	if err != nil {
		return true
	}
	for _, enabled := range stages {
		if enabled == stage {
			return true
		}
	}
	return false
}
