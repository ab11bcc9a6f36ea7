package main

import (
	"log/slog"

	"revoice/internal/config"
	"revoice/internal/providers"
	"revoice/internal/services/auphonic"
	"revoice/internal/services/diarize"
	"revoice/internal/services/elevenlabs"
	"revoice/internal/services/polish"
	"revoice/internal/services/separation"
	"revoice/internal/services/transcribe"
	"revoice/internal/services/translate"
)

// newRegistry wires the concrete service clients into the provider set the
// pipeline consumes. This is the only place the daemon binds interfaces to
// implementations.
func newRegistry(cfg *config.Config, logger *slog.Logger) *providers.Registry {
	voice := elevenlabs.New(cfg, logger)
	return &providers.Registry{
		Cleanup:    auphonic.New(cfg, logger),
		Separation: separation.New(cfg, logger),
		Transcribe: transcribe.New(cfg, logger),
		Diarize:    diarize.New(cfg, logger),
		Translate:  translate.New(cfg, logger),
		Polish:     polish.New(cfg, logger),
		Voices:     voice,
		Synthesis:  voice,
		Embeddings: elevenlabs.NewEmbeddingClient(cfg, logger),
	}
}
