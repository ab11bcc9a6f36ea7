// Package providers defines the capability contracts the pipeline consumes.
// Each stage depends on one or two of the narrow interfaces below rather
// than on a concrete service client, which keeps stage bodies testable with
// in-memory fakes.
package providers

import (
	"context"

	"revoice/internal/transcript"
)

// AudioCleanup removes noise and normalizes loudness. Reference identifies
// the remote production for the job record.
type AudioCleanup interface {
	Clean(ctx context.Context, inputFile, outputDir string) (cleanedFile, reference string, err error)
}

// Stems is the output of source separation.
type Stems struct {
	VocalsFile     string
	BackgroundFile string
	// Degraded is set when separation was unavailable and both stems are
	// the unmodified input.
	Degraded bool
}

// SourceSeparation splits an audio file into vocal and background stems.
type SourceSeparation interface {
	Separate(ctx context.Context, inputFile, outputDir string) (Stems, error)
}

// Transcription produces timestamped text from speech audio.
type Transcription interface {
	Transcribe(ctx context.Context, audioFile, languageHint string) ([]transcript.Segment, error)
}

// SpeakerTurn is one diarization interval.
type SpeakerTurn struct {
	Speaker string
	Start   float64
	End     float64
}

// Diarization labels who speaks when.
type Diarization interface {
	Diarize(ctx context.Context, audioFile string) ([]SpeakerTurn, error)
}

// Translation converts text between languages and detects the source
// language when asked.
type Translation interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	Detect(ctx context.Context, text string) (transcript.DetectedLanguage, error)
}

// Polish rewrites a raw machine translation into natural spoken language,
// using the original text for context. Language arguments are display names.
type Polish interface {
	Polish(ctx context.Context, original, machineTranslation, sourceLangName, targetLangName string) (string, error)
}

// VoiceCloning creates a reusable synthetic voice from a speech sample.
type VoiceCloning interface {
	CloneVoice(ctx context.Context, name, sampleFile string) (voiceID string, err error)
}

// SpeechSynthesis renders text in a cloned voice.
type SpeechSynthesis interface {
	Synthesize(ctx context.Context, voiceID, text, languageCode, outputFile string) error
}

// Embedding computes a voice fingerprint vector from an audio sample.
// Implementations return services.ErrUnavailable when the model cannot be
// reached.
type Embedding interface {
	ComputeEmbedding(ctx context.Context, samplePath string) ([]float64, error)
}

// Registry bundles every provider the pipeline needs. Constructed once at
// daemon startup.
type Registry struct {
	Cleanup    AudioCleanup
	Separation SourceSeparation
	Transcribe Transcription
	Diarize    Diarization
	Translate  Translation
	Polish     Polish
	Voices     VoiceCloning
	Synthesis  SpeechSynthesis
	Embeddings Embedding
}
