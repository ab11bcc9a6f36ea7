// Package speakers matches diarized voices against cached voice fingerprints
// so recurring speakers reuse their previously cloned voice.
package speakers

import (
	"context"
	"log/slog"

	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/services"
)

// DefaultThreshold is the minimum cosine similarity treated as the same
// speaker.
const DefaultThreshold = 0.85

// ProfileStore is the persistence surface the cache needs. *jobs.Store
// satisfies it.
type ProfileStore interface {
	ListSpeakerProfiles(ctx context.Context) ([]*jobs.SpeakerProfile, error)
	CreateSpeakerProfile(ctx context.Context, profile *jobs.SpeakerProfile) (*jobs.SpeakerProfile, error)
	TouchSpeakerProfile(ctx context.Context, id string) error
}

// Embedder computes a voice fingerprint from an audio sample. Implementations
// return services.ErrUnavailable when the embedding model cannot be reached;
// callers must treat that as "cache cannot be consulted", never as "no match".
type Embedder interface {
	ComputeEmbedding(ctx context.Context, samplePath string) ([]float64, error)
}

// Cache wraps the profile store with similarity matching.
type Cache struct {
	store     ProfileStore
	embedder  Embedder
	threshold float64
	logger    *slog.Logger
}

// NewCache builds a cache. A threshold <= 0 falls back to DefaultThreshold.
func NewCache(store ProfileStore, embedder Embedder, threshold float64, logger *slog.Logger) *Cache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Cache{
		store:     store,
		embedder:  embedder,
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "speakers"),
	}
}

// ComputeEmbedding delegates to the embedding provider.
func (c *Cache) ComputeEmbedding(ctx context.Context, samplePath string) ([]float64, error) {
	embedding, err := c.embedder.ComputeEmbedding(ctx, samplePath)
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// FindMatchingProfile returns the stored profile with the highest cosine
// similarity at or above the cache threshold, or nil when nothing matches.
// A hit bumps the profile's last_used_at.
func (c *Cache) FindMatchingProfile(ctx context.Context, embedding []float64) (*jobs.SpeakerProfile, error) {
	profiles, err := c.store.ListSpeakerProfiles(ctx)
	if err != nil {
		return nil, err
	}

	var (
		best      *jobs.SpeakerProfile
		bestScore float64
	)
	for _, profile := range profiles {
		score := CosineSimilarity(embedding, profile.Embedding)
		if score >= c.threshold && score > bestScore {
			best = profile
			bestScore = score
		}
	}
	if best == nil {
		return nil, nil
	}

	if err := c.store.TouchSpeakerProfile(ctx, best.ID); err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "speaker cache hit",
		logging.String("profile", best.Name),
		logging.Float64("score", bestScore))
	return best, nil
}

// CreateProfile persists a new fingerprint. No dedup beyond what the caller
// already did via FindMatchingProfile; two jobs racing on the same new
// speaker may create duplicate profiles, which is tolerated.
func (c *Cache) CreateProfile(ctx context.Context, name string, embedding []float64, voiceID, sampleFile string) (*jobs.SpeakerProfile, error) {
	if len(embedding) == 0 {
		return nil, services.Wrap(services.ErrValidation, "", "create profile", "embedding is required", nil)
	}
	profile, err := c.store.CreateSpeakerProfile(ctx, &jobs.SpeakerProfile{
		Name:       name,
		Embedding:  embedding,
		VoiceID:    voiceID,
		SampleFile: sampleFile,
	})
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "speaker profile created", logging.String("profile", profile.Name))
	return profile, nil
}
