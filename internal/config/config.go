package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Cleanup contains configuration for the audio cleanup provider (Auphonic API).
type Cleanup struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	LoudnessTarget  int    `toml:"loudness_target"`
	PollInterval    int    `toml:"poll_interval"`
	PollMaxAttempts int    `toml:"poll_max_attempts"`
}

// Separation contains configuration for the source separation provider.
type Separation struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Transcription contains configuration for the transcription and diarization providers.
type Transcription struct {
	WhisperURL     string `toml:"whisper_url"`
	WhisperModel   string `toml:"whisper_model"`
	DiarizeURL     string `toml:"diarize_url"`
	HFToken        string `toml:"hf_token"`
	RequestTimeout int    `toml:"request_timeout"`
	// SpeakerGapSeconds is the silence gap that triggers a speaker toggle when
	// diarization is unavailable.
	SpeakerGapSeconds float64 `toml:"speaker_gap_seconds"`
}

// Translation contains configuration for the raw translation provider.
type Translation struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Polish contains configuration for the LLM translation polish pass.
type Polish struct {
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	FallbackAPIKey string `toml:"fallback_api_key"`
	FallbackURL    string `toml:"fallback_url"`
	FallbackModel  string `toml:"fallback_model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Voice contains configuration for voice cloning, speech synthesis, and the
// speaker fingerprint cache.
type Voice struct {
	APIKey              string  `toml:"api_key"`
	BaseURL             string  `toml:"base_url"`
	TTSModel            string  `toml:"tts_model"`
	EmbeddingURL        string  `toml:"embedding_url"`
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	RequestTimeout      int     `toml:"request_timeout"`
}

// Mix contains configuration for the final audio mix.
type Mix struct {
	BackgroundAttenuationDB float64 `toml:"background_attenuation_db"`
	CrossfadeMillis         int     `toml:"crossfade_millis"`
	StitchCrossfadeMillis   int     `toml:"stitch_crossfade_millis"`
}

// Workflow contains configuration for daemon timing and run budgets.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	StageBudgetMinutes int `toml:"stage_budget_minutes"`
	MaxConcurrentJobs  int `toml:"max_concurrent_jobs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for revoice.
//
// Configuration sections by subsystem:
//   - Paths: upload/output/log directories
//   - Cleanup: audio cleanup provider connection
//   - Separation: source separation provider connection
//   - Transcription: whisper + diarization provider connections
//   - Translation: raw machine translation provider
//   - Polish: LLM polish pass (primary + fallback provider)
//   - Voice: cloning, synthesis, and fingerprint matching
//   - Mix: background attenuation and crossfade policy
//   - Workflow: daemon polling intervals and run budgets
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Cleanup       Cleanup       `toml:"cleanup"`
	Separation    Separation    `toml:"separation"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Polish        Polish        `toml:"polish"`
	Voice         Voice         `toml:"voice"`
	Mix           Mix           `toml:"mix"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/revoice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/revoice/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("revoice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobDir returns the private artifact directory for a job.
func (c *Config) JobDir(jobID string) string {
	return filepath.Join(c.Paths.OutputDir, jobID)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
