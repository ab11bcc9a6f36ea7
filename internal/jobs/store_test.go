package jobs_test

import (
	"context"
	"testing"

	"revoice/internal/jobs"
	"revoice/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.Create(ctx, jobs.NewJobParams{
		OriginalFile:   "/uploads/episode.wav",
		TargetLanguage: "de",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job ID")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.SourceLanguage != jobs.AutoDetect {
		t.Fatalf("source language = %q, want auto", job.SourceLanguage)
	}
	if job.OriginalFilename != "episode.wav" {
		t.Fatalf("original filename = %q", job.OriginalFilename)
	}
	if job.StartStage != jobs.StageCleanup {
		t.Fatalf("start stage = %d", job.StartStage)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil || fetched.ID != job.ID {
		t.Fatalf("fetched = %+v", fetched)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if _, err := store.Create(ctx, jobs.NewJobParams{TargetLanguage: "de"}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := store.Create(ctx, jobs.NewJobParams{OriginalFile: "/a.wav"}); err == nil {
		t.Fatal("expected error for missing target language")
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.GetByID(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil, got %+v", job)
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/uploads/a.wav", "fr")

	job.Status = jobs.StatusProcessing
	job.CurrentStage = jobs.StageTranscribe
	job.StageLabel = "transcribe"
	job.CleanedFile = "/out/a_cleaned.wav"
	job.TranscriptJSON = `[{"speaker":"SPEAKER_00","text":"hi","start_time":0,"end_time":1}]`
	if err := job.AppendStageLog("transcription complete"); err != nil {
		t.Fatalf("AppendStageLog: %v", err)
	}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.CurrentStage != jobs.StageTranscribe || fetched.CleanedFile != "/out/a_cleaned.wav" {
		t.Fatalf("fetched = %+v", fetched)
	}
	entries, err := fetched.StageLog()
	if err != nil {
		t.Fatalf("StageLog: %v", err)
	}
	if len(entries) != 1 || entries[0].Message != "transcription complete" {
		t.Fatalf("stage log = %+v", entries)
	}
}

func TestNextPendingOrdersByCreation(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "/uploads/first.wav", "es")
	testsupport.NewJob(t, store, "/uploads/second.wav", "es")

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("next = %+v, want %s", next, first.ID)
	}
}

func TestBeginRunResetsState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/uploads/a.wav", "ja")

	job.Status = jobs.StatusFailed
	job.ErrorMessage = "previous failure"
	if err := job.AppendStageLog("stale entry"); err != nil {
		t.Fatalf("AppendStageLog: %v", err)
	}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	started, err := store.BeginRun(ctx, job.ID, jobs.StageTranslate)
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	if started.Status != jobs.StatusProcessing {
		t.Fatalf("status = %s", started.Status)
	}
	if started.ErrorMessage != "" || started.StageLogJSON != "" {
		t.Fatalf("run state not reset: %+v", started)
	}
	if started.StartStage != jobs.StageTranslate {
		t.Fatalf("start stage = %d", started.StartStage)
	}
	if started.LastHeartbeat == nil {
		t.Fatal("expected heartbeat set")
	}

	if _, err := store.BeginRun(ctx, job.ID, 0); err == nil {
		t.Fatal("expected error for out-of-range stage")
	}
}

func TestFailInFlight(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	processing := testsupport.NewJob(t, store, "/uploads/a.wav", "de")
	if _, err := store.BeginRun(ctx, processing.ID, jobs.StageCleanup); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	pending := testsupport.NewJob(t, store, "/uploads/b.wav", "de")

	count, err := store.FailInFlight(ctx, jobs.OrphanRecoveryMessage)
	if err != nil {
		t.Fatalf("FailInFlight: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	failed, err := store.GetByID(ctx, processing.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if failed.Status != jobs.StatusFailed || failed.ErrorMessage != jobs.OrphanRecoveryMessage {
		t.Fatalf("failed = %+v", failed)
	}
	if failed.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared")
	}

	untouched, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != jobs.StatusPending {
		t.Fatalf("pending job touched: %+v", untouched)
	}
}

func TestRetryFailed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/uploads/a.wav", "it")
	job.Status = jobs.StatusFailed
	job.ErrorMessage = "boom"
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	count, err := store.RetryFailed(ctx, job.ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}
	retried, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if retried.Status != jobs.StatusPending || retried.ErrorMessage != "" {
		t.Fatalf("retried = %+v", retried)
	}
}

func TestListAndStats(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "/uploads/a.wav", "de")
	done := testsupport.NewJob(t, store, "/uploads/b.wav", "de")
	done.Status = jobs.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d", len(all))
	}

	completed, err := store.List(ctx, jobs.StatusCompleted)
	if err != nil {
		t.Fatalf("List completed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != done.ID {
		t.Fatalf("completed = %+v", completed)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StatusPending] != 1 || stats[jobs.StatusCompleted] != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestStageEnabled(t *testing.T) {
	job := &jobs.Job{}
	if !job.StageEnabled(jobs.StageCleanup) {
		t.Fatal("empty set should enable everything")
	}

	if err := job.SetEnabledStages([]int{jobs.StageTranscribe}); err != nil {
		t.Fatalf("SetEnabledStages: %v", err)
	}
	if job.StageEnabled(jobs.StageCleanup) {
		t.Fatal("cleanup should be disabled")
	}
	if !job.StageEnabled(jobs.StageTranscribe) {
		t.Fatal("transcribe should be enabled")
	}
	// Translate through mix cannot be disabled.
	for stage := jobs.StageTranslate; stage <= jobs.StageMix; stage++ {
		if !job.StageEnabled(stage) {
			t.Fatalf("stage %d should be mandatory", stage)
		}
	}
}
