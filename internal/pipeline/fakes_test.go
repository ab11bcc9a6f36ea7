package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"revoice/internal/audio"
	"revoice/internal/providers"
	"revoice/internal/services"
	"revoice/internal/transcript"
)

// counts holds provider invocation totals so tests can assert the
// idempotent-skip behavior.
type counts struct {
	cleanup    int
	separate   int
	transcribe int
	translate  int
	polish     int
	clone      int
	synthesize int
	embed      int
}

// callCounts guards counts for concurrent provider calls.
type callCounts struct {
	mu sync.Mutex
	counts
}

func (c *callCounts) bump(field *int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*field++
}

func (c *callCounts) snapshot() counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

const fakeSampleRate = 8000

var (
	errTranslateBoom = errors.New("translate exploded")
	errPolishBoom    = errors.New("polish exploded")
)

// fakeSet bundles configurable fake providers behind a registry.
type fakeSet struct {
	counts *callCounts

	separateDelay    time.Duration
	degradeStems     bool
	diarizeTurns     []providers.SpeakerTurn
	translateErr     error
	polishErr        error
	embedErr         error
	embeddingVectors map[string][]float64
	segments         []transcript.Segment
}

func newFakeSet() *fakeSet {
	return &fakeSet{
		counts:   &callCounts{},
		embedErr: services.Wrap(services.ErrUnavailable, "synthesize", "compute embedding", "not configured", nil),
		segments: []transcript.Segment{
			{Text: "hallo welt", StartTime: 2, EndTime: 5},
			{Text: "wie geht es dir", StartTime: 5.5, EndTime: 8},
		},
	}
}

func (f *fakeSet) registry() *providers.Registry {
	return &providers.Registry{
		Cleanup:    fakeCleanup{f},
		Separation: fakeSeparation{f},
		Transcribe: fakeTranscription{f},
		Diarize:    fakeDiarization{f},
		Translate:  fakeTranslation{f},
		Polish:     fakePolish{f},
		Voices:     fakeVoices{f},
		Synthesis:  fakeSynthesis{f},
		Embeddings: fakeEmbedding{f},
	}
}

func writeTone(path string, seconds float64) error {
	track := audio.Silence(seconds, fakeSampleRate)
	for i := range track.Data {
		track.Data[i] = 4000
	}
	return track.Save(path)
}

type fakeCleanup struct{ set *fakeSet }

func (f fakeCleanup) Clean(_ context.Context, _, outputDir string) (string, string, error) {
	f.set.counts.bump(&f.set.counts.cleanup)
	cleaned := filepath.Join(outputDir, "cleaned.wav")
	if err := writeTone(cleaned, 10); err != nil {
		return "", "", err
	}
	return cleaned, "production-1", nil
}

type fakeSeparation struct{ set *fakeSet }

func (f fakeSeparation) Separate(ctx context.Context, inputFile, outputDir string) (providers.Stems, error) {
	f.set.counts.bump(&f.set.counts.separate)
	if f.set.separateDelay > 0 {
		select {
		case <-ctx.Done():
			return providers.Stems{}, ctx.Err()
		case <-time.After(f.set.separateDelay):
		}
	}
	if f.set.degradeStems {
		return providers.Stems{VocalsFile: inputFile, BackgroundFile: inputFile, Degraded: true}, nil
	}
	vocals := filepath.Join(outputDir, "vocals.wav")
	background := filepath.Join(outputDir, "background.wav")
	if err := writeTone(vocals, 10); err != nil {
		return providers.Stems{}, err
	}
	if err := writeTone(background, 10); err != nil {
		return providers.Stems{}, err
	}
	return providers.Stems{VocalsFile: vocals, BackgroundFile: background}, nil
}

type fakeTranscription struct{ set *fakeSet }

func (f fakeTranscription) Transcribe(context.Context, string, string) ([]transcript.Segment, error) {
	f.set.counts.bump(&f.set.counts.transcribe)
	segments := make([]transcript.Segment, len(f.set.segments))
	copy(segments, f.set.segments)
	return segments, nil
}

type fakeDiarization struct{ set *fakeSet }

func (f fakeDiarization) Diarize(context.Context, string) ([]providers.SpeakerTurn, error) {
	if len(f.set.diarizeTurns) == 0 {
		return nil, services.Wrap(services.ErrUnavailable, "transcribe", "diarize", "model not loadable", nil)
	}
	return f.set.diarizeTurns, nil
}

type fakeTranslation struct{ set *fakeSet }

func (f fakeTranslation) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.set.counts.bump(&f.set.counts.translate)
	if f.set.translateErr != nil {
		return "", f.set.translateErr
	}
	return "tr:" + text, nil
}

func (f fakeTranslation) Detect(context.Context, string) (transcript.DetectedLanguage, error) {
	return transcript.DetectedLanguage{Code: "de", Name: "German", Confidence: 0.98}, nil
}

type fakePolish struct{ set *fakeSet }

func (f fakePolish) Polish(_ context.Context, _, machineTranslation, _, _ string) (string, error) {
	f.set.counts.bump(&f.set.counts.polish)
	if f.set.polishErr != nil {
		return "", f.set.polishErr
	}
	return "polished:" + machineTranslation, nil
}

type fakeVoices struct{ set *fakeSet }

func (f fakeVoices) CloneVoice(context.Context, string, string) (string, error) {
	f.set.counts.bump(&f.set.counts.clone)
	return "voice-1", nil
}

type fakeSynthesis struct{ set *fakeSet }

func (f fakeSynthesis) Synthesize(_ context.Context, _, _, _, outputFile string) error {
	f.set.counts.bump(&f.set.counts.synthesize)
	return writeTone(outputFile, 1)
}

type fakeEmbedding struct{ set *fakeSet }

func (f fakeEmbedding) ComputeEmbedding(_ context.Context, samplePath string) ([]float64, error) {
	f.set.counts.bump(&f.set.counts.embed)
	if f.set.embeddingVectors != nil {
		if vector, ok := f.set.embeddingVectors[filepath.Base(samplePath)]; ok {
			return vector, nil
		}
	}
	if f.set.embedErr != nil {
		return nil, f.set.embedErr
	}
	return nil, errors.New("no embedding configured")
}
