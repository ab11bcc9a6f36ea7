package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCleanup()
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizePolish()
	c.normalizeVoice()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCleanup() {
	c.Cleanup.APIKey = strings.TrimSpace(c.Cleanup.APIKey)
	if c.Cleanup.APIKey == "" {
		if value, ok := os.LookupEnv("AUPHONIC_API_KEY"); ok {
			c.Cleanup.APIKey = strings.TrimSpace(value)
		}
	}
	c.Cleanup.BaseURL = strings.TrimRight(strings.TrimSpace(c.Cleanup.BaseURL), "/")
	if c.Cleanup.BaseURL == "" {
		c.Cleanup.BaseURL = defaultCleanupURL
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.WhisperURL = strings.TrimRight(strings.TrimSpace(c.Transcription.WhisperURL), "/")
	c.Transcription.DiarizeURL = strings.TrimRight(strings.TrimSpace(c.Transcription.DiarizeURL), "/")
	c.Transcription.HFToken = strings.TrimSpace(c.Transcription.HFToken)
	if c.Transcription.HFToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.HFToken = strings.TrimSpace(value)
		}
	}
	if c.Transcription.SpeakerGapSeconds <= 0 {
		c.Transcription.SpeakerGapSeconds = defaultSpeakerGapSeconds
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	if c.Translation.APIKey == "" {
		if value, ok := os.LookupEnv("TRANSLATE_API_KEY"); ok {
			c.Translation.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizePolish() {
	c.Polish.OpenAIAPIKey = strings.TrimSpace(c.Polish.OpenAIAPIKey)
	if c.Polish.OpenAIAPIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Polish.OpenAIAPIKey = strings.TrimSpace(value)
		}
	}
	c.Polish.FallbackAPIKey = strings.TrimSpace(c.Polish.FallbackAPIKey)
	if c.Polish.FallbackAPIKey == "" {
		if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
			c.Polish.FallbackAPIKey = strings.TrimSpace(value)
		}
	}
	if c.Polish.OpenAIModel == "" {
		c.Polish.OpenAIModel = defaultPolishModel
	}
	if c.Polish.TimeoutSeconds <= 0 {
		c.Polish.TimeoutSeconds = defaultPolishTimeout
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.APIKey = strings.TrimSpace(c.Voice.APIKey)
	if c.Voice.APIKey == "" {
		if value, ok := os.LookupEnv("ELEVENLABS_API_KEY"); ok {
			c.Voice.APIKey = strings.TrimSpace(value)
		}
	}
	c.Voice.BaseURL = strings.TrimRight(strings.TrimSpace(c.Voice.BaseURL), "/")
	if c.Voice.BaseURL == "" {
		c.Voice.BaseURL = defaultVoiceURL
	}
	c.Voice.EmbeddingURL = strings.TrimRight(strings.TrimSpace(c.Voice.EmbeddingURL), "/")
	if c.Voice.TTSModel == "" {
		c.Voice.TTSModel = defaultTTSModel
	}
	if c.Voice.SimilarityThreshold == 0 {
		c.Voice.SimilarityThreshold = defaultSimilarityThresh
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
