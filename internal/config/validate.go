package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateMix(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
		"workflow.stage_budget_minutes": c.Workflow.StageBudgetMinutes,
		"workflow.max_concurrent_jobs":  c.Workflow.MaxConcurrentJobs,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateVoice() error {
	if c.Voice.SimilarityThreshold < 0 || c.Voice.SimilarityThreshold > 1 {
		return errors.New("voice.similarity_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateMix() error {
	if c.Mix.BackgroundAttenuationDB > 0 {
		return errors.New("mix.background_attenuation_db must be zero or negative")
	}
	if c.Mix.CrossfadeMillis < 0 {
		return errors.New("mix.crossfade_millis must not be negative")
	}
	if c.Mix.StitchCrossfadeMillis < 0 {
		return errors.New("mix.stitch_crossfade_millis must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
