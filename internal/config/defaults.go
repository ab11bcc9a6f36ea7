package config

const (
	defaultUploadDir  = "~/.local/share/revoice/uploads"
	defaultOutputDir  = "~/.local/share/revoice/outputs"
	defaultLogDir     = "~/.local/share/revoice/logs"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
	defaultCleanupURL = "https://auphonic.com/api"
	defaultVoiceURL   = "https://api.elevenlabs.io/v1"
	defaultTTSModel   = "eleven_multilingual_v2"

	defaultLoudnessTarget         = -16
	defaultCleanupPollInterval    = 10
	defaultCleanupPollMaxAttempts = 180

	defaultWhisperModel       = "large-v3"
	defaultSpeakerGapSeconds  = 2.0
	defaultProviderTimeout    = 120
	defaultPolishModel        = "gpt-4o"
	defaultPolishTimeout      = 60
	defaultSimilarityThresh   = 0.85
	defaultBackgroundAttenDB  = -12.0
	defaultMixCrossfadeMillis = 500
	defaultStitchCrossfadeMS  = 100

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 30
	defaultStageBudgetMinutes = 20
	defaultMaxConcurrentJobs  = 2
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Cleanup: Cleanup{
			BaseURL:         defaultCleanupURL,
			LoudnessTarget:  defaultLoudnessTarget,
			PollInterval:    defaultCleanupPollInterval,
			PollMaxAttempts: defaultCleanupPollMaxAttempts,
		},
		Separation: Separation{
			RequestTimeout: defaultProviderTimeout,
		},
		Transcription: Transcription{
			WhisperModel:      defaultWhisperModel,
			RequestTimeout:    defaultProviderTimeout,
			SpeakerGapSeconds: defaultSpeakerGapSeconds,
		},
		Translation: Translation{
			RequestTimeout: defaultProviderTimeout,
		},
		Polish: Polish{
			OpenAIModel:    defaultPolishModel,
			TimeoutSeconds: defaultPolishTimeout,
		},
		Voice: Voice{
			BaseURL:             defaultVoiceURL,
			TTSModel:            defaultTTSModel,
			SimilarityThreshold: defaultSimilarityThresh,
			RequestTimeout:      defaultProviderTimeout,
		},
		Mix: Mix{
			BackgroundAttenuationDB: defaultBackgroundAttenDB,
			CrossfadeMillis:         defaultMixCrossfadeMillis,
			StitchCrossfadeMillis:   defaultStitchCrossfadeMS,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			StageBudgetMinutes: defaultStageBudgetMinutes,
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
