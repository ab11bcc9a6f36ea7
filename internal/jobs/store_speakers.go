package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpeakerProfile is a cached voice fingerprint. Embedding holds the raw
// vector; VoiceID references the cloned voice at the synthesis provider.
type SpeakerProfile struct {
	ID         string
	Name       string
	Embedding  []float64
	VoiceID    string
	SampleFile string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

const speakerColumns = "id, name, embedding_json, voice_id, sample_file, created_at, last_used_at"

func scanSpeaker(scanner interface{ Scan(dest ...any) error }) (*SpeakerProfile, error) {
	var (
		id         string
		name       string
		embedding  string
		voiceID    sql.NullString
		sampleFile sql.NullString
		createdRaw sql.NullString
		usedRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &name, &embedding, &voiceID, &sampleFile, &createdRaw, &usedRaw); err != nil {
		return nil, err
	}

	profile := &SpeakerProfile{
		ID:         id,
		Name:       name,
		VoiceID:    voiceID.String,
		SampleFile: sampleFile.String,
	}
	if err := json.Unmarshal([]byte(embedding), &profile.Embedding); err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", id, err)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		profile.CreatedAt = created
	}
	if used, err := parseTimeString(usedRaw.String); err == nil {
		profile.LastUsedAt = used
	}
	return profile, nil
}

// CreateSpeakerProfile stores a new voice fingerprint.
func (s *Store) CreateSpeakerProfile(ctx context.Context, profile *SpeakerProfile) (*SpeakerProfile, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if len(profile.Embedding) == 0 {
		return nil, errors.New("embedding is required")
	}
	if profile.Name == "" {
		return nil, errors.New("name is required")
	}

	embedding, err := json.Marshal(profile.Embedding)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}

	id := profile.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO speaker_profiles (id, name, embedding_json, voice_id, sample_file, created_at, last_used_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		profile.Name,
		string(embedding),
		nullableString(profile.VoiceID),
		nullableString(profile.SampleFile),
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert speaker profile: %w", err)
	}

	return s.GetSpeakerProfile(ctx, id)
}

// GetSpeakerProfile fetches one profile by identifier, or nil when missing.
func (s *Store) GetSpeakerProfile(ctx context.Context, id string) (*SpeakerProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+speakerColumns+` FROM speaker_profiles WHERE id = ?`, id)
	profile, err := scanSpeaker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get speaker profile: %w", err)
	}
	return profile, nil
}

// ListSpeakerProfiles returns every cached profile, most recently used first.
func (s *Store) ListSpeakerProfiles(ctx context.Context) ([]*SpeakerProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+speakerColumns+` FROM speaker_profiles ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list speaker profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*SpeakerProfile
	for rows.Next() {
		profile, err := scanSpeaker(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// TouchSpeakerProfile bumps last_used_at after a cache hit.
func (s *Store) TouchSpeakerProfile(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE speaker_profiles SET last_used_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("touch speaker profile: %w", err)
	}
	return nil
}

// RemoveSpeakerProfile deletes a cached profile.
func (s *Store) RemoveSpeakerProfile(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM speaker_profiles WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete speaker profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
