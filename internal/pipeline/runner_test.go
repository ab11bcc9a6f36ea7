package pipeline_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"revoice/internal/audio"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
	"revoice/internal/testsupport"
)

func newTestRun(t *testing.T, fakes *fakeSet, opts ...testsupport.ConfigOption) (*pipeline.Runner, *jobs.Store, *jobs.Job) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	original := filepath.Join(cfg.Paths.UploadDir, "episode.wav")
	testsupport.WriteWAV(t, original, 10, fakeSampleRate)
	job := testsupport.NewJob(t, store, original, "en")
	runner := pipeline.New(cfg, store, fakes.registry(), logging.NewNop())
	return runner, store, job
}

func mustGet(t *testing.T, store *jobs.Store, id string) *jobs.Job {
	t.Helper()
	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s vanished", id)
	}
	return job
}

func TestRunCompletesJob(t *testing.T) {
	fakes := newFakeSet()
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", got.Status, got.ErrorMessage)
	}
	if got.CurrentStage != jobs.StageMix {
		t.Fatalf("current stage = %d, want %d", got.CurrentStage, jobs.StageMix)
	}
	for name, value := range map[string]string{
		"cleaned file": got.CleanedFile,
		"vocals file":  got.VocalsFile,
		"transcript":   got.TranscriptJSON,
		"translated":   got.TranslatedJSON,
		"edited":       got.EditedJSON,
		"voice map":    got.VoiceMapJSON,
		"output file":  got.OutputFile,
		"report":       got.ReportJSON,
	} {
		if value == "" {
			t.Errorf("%s not recorded", name)
		}
	}
	if got.LastHeartbeat != nil {
		t.Error("heartbeat should be cleared after completion")
	}
	if !strings.Contains(got.TranslatedJSON, "polished:tr:") {
		t.Errorf("polish pass not applied: %s", got.TranslatedJSON)
	}

	output, err := audio.Load(got.OutputFile)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	// Intro (2s) + stitched speech (2s) + outro (10-8=2s).
	if want := 6 * fakeSampleRate; output.Frames() != want {
		t.Errorf("output frames = %d, want %d", output.Frames(), want)
	}
}

func TestRunIsIdempotentExceptMix(t *testing.T) {
	fakes := newFakeSet()
	runner, _, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := fakes.counts.snapshot()
	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := fakes.counts.snapshot()

	if second.cleanup != first.cleanup || second.separate != first.separate ||
		second.transcribe != first.transcribe || second.translate != first.translate ||
		second.clone != first.clone {
		t.Errorf("stage 1-5 providers re-invoked: first %+v second %+v", first, second)
	}
	if second.synthesize != 2*first.synthesize {
		t.Errorf("synthesis calls = %d, want %d (stage 6 always re-runs)", second.synthesize, 2*first.synthesize)
	}
}

func TestRunFailureRecordsError(t *testing.T) {
	fakes := newFakeSet()
	fakes.translateErr = errTranslateBoom
	runner, store, job := newTestRun(t, fakes)
	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err == nil {
		t.Fatal("expected run error")
	}

	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "translate exploded") {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	entries, err := got.StageLog()
	if err != nil {
		t.Fatalf("StageLog: %v", err)
	}
	var failureLogged bool
	for _, entry := range entries {
		if strings.HasPrefix(entry.Message, "run failed:") {
			failureLogged = true
		}
	}
	if !failureLogged {
		t.Error("failure not appended to stage log")
	}
}

func TestValidationFailureSetsFailedStatus(t *testing.T) {
	fakes := newFakeSet()
	fakes.segments = nil
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err == nil {
		t.Fatal("expected run error for empty transcript")
	}

	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "no speech detected") {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
}

func TestRetryReentersAtFailedStage(t *testing.T) {
	fakes := newFakeSet()
	fakes.translateErr = errTranslateBoom
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err == nil {
		t.Fatal("expected failure")
	}
	failed := mustGet(t, store, job.ID)
	if failed.CurrentStage != jobs.StageTranslate {
		t.Fatalf("failed at stage %d, want %d", failed.CurrentStage, jobs.StageTranslate)
	}

	fakes.translateErr = nil
	before := fakes.counts.snapshot()
	if err := runner.Run(context.Background(), job.ID, failed.CurrentStage); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	after := fakes.counts.snapshot()
	if after.cleanup != before.cleanup || after.transcribe != before.transcribe {
		t.Error("retry re-ran completed upstream stages")
	}
	if mustGet(t, store, job.ID).Status != jobs.StatusCompleted {
		t.Error("retry did not complete the job")
	}
}

func TestResumeReentersAtMix(t *testing.T) {
	fakes := newFakeSet()
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Simulate a human edit replacing the translation text.
	edited := mustGet(t, store, job.ID)
	edited.EditedJSON = strings.ReplaceAll(edited.EditedJSON, "polished:tr:hallo welt", "manually edited line")
	if err := store.Update(context.Background(), edited); err != nil {
		t.Fatalf("Update: %v", err)
	}

	before := fakes.counts.snapshot()
	if err := runner.Resume(context.Background(), job.ID); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	after := fakes.counts.snapshot()

	if after.translate != before.translate || after.clone != before.clone {
		t.Error("resume re-ran pre-edit stages")
	}
	if after.synthesize <= before.synthesize {
		t.Error("resume did not re-run synthesis")
	}
	got := mustGet(t, store, job.ID)
	if !strings.Contains(got.EditedJSON, "manually edited line") {
		t.Error("resume clobbered the human edit")
	}
}

func TestDisabledStagesUsePlaceholders(t *testing.T) {
	fakes := newFakeSet()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	original := filepath.Join(cfg.Paths.UploadDir, "episode.wav")
	testsupport.WriteWAV(t, original, 10, fakeSampleRate)

	job, err := store.Create(context.Background(), jobs.NewJobParams{
		OriginalFile:   original,
		TargetLanguage: "en",
		EnabledStages:  []int{jobs.StageTranscribe},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	runner := pipeline.New(cfg, store, fakes.registry(), logging.NewNop())
	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := mustGet(t, store, job.ID)
	if fakes.counts.snapshot().cleanup != 0 || fakes.counts.snapshot().separate != 0 {
		t.Error("disabled stage providers were invoked")
	}
	if got.CleanedFile != got.OriginalFile {
		t.Errorf("cleaned placeholder = %q, want original %q", got.CleanedFile, got.OriginalFile)
	}
	if got.VocalsFile != got.OriginalFile {
		t.Errorf("vocals placeholder = %q, want original %q", got.VocalsFile, got.OriginalFile)
	}
	if got.BackgroundFile != "" {
		t.Errorf("background placeholder = %q, want empty", got.BackgroundFile)
	}

	// No background means the mixer passes the stitched speech through.
	output, err := audio.Load(got.OutputFile)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if want := 2 * fakeSampleRate; output.Frames() != want {
		t.Errorf("output frames = %d, want speech-only %d", output.Frames(), want)
	}
}

func TestPolishDegradesPerSegment(t *testing.T) {
	fakes := newFakeSet()
	fakes.polishErr = errPolishBoom
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed despite polish failures", got.Status)
	}
	if !strings.Contains(got.TranslatedJSON, "tr:hallo welt") || strings.Contains(got.TranslatedJSON, "polished:") {
		t.Errorf("raw translation not preserved: %s", got.TranslatedJSON)
	}
	if !strings.Contains(got.StageLogJSON, "polish degraded") {
		t.Error("degradation not recorded in stage log")
	}
}

func TestSeparationDegradedKeepsRunAlive(t *testing.T) {
	fakes := newFakeSet()
	fakes.degradeStems = true
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if !got.SeparationDegraded {
		t.Error("degraded separation not recorded")
	}
	if got.VocalsFile != got.CleanedFile || got.BackgroundFile != got.CleanedFile {
		t.Error("degraded stems should reuse the cleaned audio")
	}
}

func TestSeparationHeartbeatAppendsEntries(t *testing.T) {
	fakes := newFakeSet()
	fakes.separateDelay = 1500 * time.Millisecond
	runner, store, job := newTestRun(t, fakes)

	if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := mustGet(t, store, job.ID)
	entries, err := got.StageLog()
	if err != nil {
		t.Fatalf("StageLog: %v", err)
	}
	var heartbeats int
	for _, entry := range entries {
		if entry.Message == "source separation in progress" {
			heartbeats++
		}
	}
	if heartbeats == 0 {
		t.Error("no heartbeat entries recorded during separation")
	}
}

func TestRecoverOrphansFailsProcessingJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	original := filepath.Join(cfg.Paths.UploadDir, "episode.wav")
	testsupport.WriteWAV(t, original, 2, fakeSampleRate)
	job := testsupport.NewJob(t, store, original, "en")

	if _, err := store.BeginRun(context.Background(), job.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	recovered, err := pipeline.RecoverOrphans(context.Background(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("RecoverOrphans: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	got := mustGet(t, store, job.ID)
	if got.Status != jobs.StatusFailed {
		t.Fatalf("status = %s, want failed", got.Status)
	}
	if got.ErrorMessage != jobs.OrphanRecoveryMessage {
		t.Errorf("error message = %q", got.ErrorMessage)
	}
	if got.LastHeartbeat != nil {
		t.Error("heartbeat not cleared by recovery")
	}
}

func TestSpeakerProfilesReusedAcrossJobs(t *testing.T) {
	fakes := newFakeSet()
	fakes.embeddingVectors = map[string][]float64{
		"sample_speaker_1.wav": {1, 0, 0},
	}
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	runner := pipeline.New(cfg, store, fakes.registry(), logging.NewNop())

	for i, name := range []string{"first.wav", "second.wav"} {
		original := filepath.Join(cfg.Paths.UploadDir, name)
		testsupport.WriteWAV(t, original, 10, fakeSampleRate)
		job := testsupport.NewJob(t, store, original, "en")
		if err := runner.Run(context.Background(), job.ID, jobs.StageCleanup); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if cloned := fakes.counts.snapshot().clone; cloned != 1 {
		t.Errorf("clone calls = %d, want 1 (second job should hit the fingerprint cache)", cloned)
	}
	profiles, err := store.ListSpeakerProfiles(context.Background())
	if err != nil {
		t.Fatalf("ListSpeakerProfiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("profiles = %d, want 1", len(profiles))
	}
}
