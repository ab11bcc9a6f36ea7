package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"revoice/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Voice.SimilarityThreshold != 0.85 {
		t.Fatalf("unexpected similarity threshold: %v", cfg.Voice.SimilarityThreshold)
	}
	if cfg.Mix.BackgroundAttenuationDB != -12.0 {
		t.Fatalf("unexpected attenuation default: %v", cfg.Mix.BackgroundAttenuationDB)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved == "" {
		t.Fatal("expected resolved path to be returned")
	}
	if cfg.Workflow.StageBudgetMinutes != 20 {
		t.Fatalf("unexpected stage budget: %d", cfg.Workflow.StageBudgetMinutes)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
upload_dir = "` + filepath.Join(dir, "up") + `"
output_dir = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[voice]
similarity_threshold = 0.9

[workflow]
stage_budget_minutes = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Voice.SimilarityThreshold != 0.9 {
		t.Fatalf("override not applied: %v", cfg.Voice.SimilarityThreshold)
	}
	if cfg.Workflow.StageBudgetMinutes != 5 {
		t.Fatalf("override not applied: %d", cfg.Workflow.StageBudgetMinutes)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"positive attenuation", func(c *config.Config) { c.Mix.BackgroundAttenuationDB = 3 }},
		{"threshold above one", func(c *config.Config) { c.Voice.SimilarityThreshold = 1.5 }},
		{"zero poll interval", func(c *config.Config) { c.Workflow.QueuePollInterval = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("sample config is empty")
	}
}
