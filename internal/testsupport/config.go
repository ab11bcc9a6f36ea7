package testsupport

import (
	"path/filepath"
	"testing"

	"revoice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithSimilarityThreshold overrides the speaker-match threshold.
func WithSimilarityThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Voice.SimilarityThreshold = threshold
	}
}

// WithMaxConcurrentJobs overrides the daemon's worker cap.
func WithMaxConcurrentJobs(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxConcurrentJobs = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
