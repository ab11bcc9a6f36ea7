package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"revoice/internal/logging"
	"revoice/internal/services"
)

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := logging.New(logging.Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestComponentLoggerPrefix(t *testing.T) {
	logger, buf := newConsoleLogger(t)
	component := logging.NewComponentLogger(logger, "pipeline")
	component.Info("stage started", logging.Args(logging.String("stage", "transcribe"))...)

	line := buf.String()
	if !strings.Contains(line, "[pipeline]") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "stage=transcribe") {
		t.Fatalf("expected stage attribute in %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	logger, buf := newConsoleLogger(t)
	logger.Info("submitted", logging.Args(logging.String("file", "episode one.wav"))...)
	if !strings.Contains(buf.String(), `file="episode one.wav"`) {
		t.Fatalf("expected quoted value in %q", buf.String())
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	logger, buf := newConsoleLogger(t)
	logger.Info("mix done", slog.Group("mix", slog.Int("segments", 4)))
	if !strings.Contains(buf.String(), "mix.segments=4") {
		t.Fatalf("expected flattened group key in %q", buf.String())
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	logger, buf := newConsoleLogger(t)
	ctx := services.WithJobID(context.Background(), "job-42")
	ctx = services.WithStage(ctx, "synthesize")

	logging.WithContext(ctx, logger).Info("working")

	line := buf.String()
	if !strings.Contains(line, "job_id=job-42") || !strings.Contains(line, "stage=synthesize") {
		t.Fatalf("expected context fields in %q", line)
	}
}

func newConsoleLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logger := slog.New(logging.NewConsoleHandler(buf, slog.LevelDebug))
	return logger, buf
}
