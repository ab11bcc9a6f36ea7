package services_test

import (
	"errors"
	"strings"
	"testing"

	"revoice/internal/jobs"
	"revoice/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "request failed", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "transcribe: whisper: request failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want jobs.Status
	}{
		{"validation", services.Wrap(services.ErrValidation, "cleanup", "", "missing file", nil), jobs.StatusFailed},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "", "no api key", nil), jobs.StatusFailed},
		{"not found", services.Wrap(services.ErrNotFound, "", "", "", nil), jobs.StatusFailed},
		{"timeout", services.Wrap(services.ErrTimeout, "", "", "", nil), jobs.StatusFailed},
		{"transient", errors.New("boom"), jobs.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.FailureStatus(tc.err); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestFailureMessageTimeoutHint(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "synthesize", "", "stage budget exhausted", nil)
	msg := services.FailureMessage(err)
	if !strings.Contains(msg, "please retry") {
		t.Fatalf("expected retry hint, got %q", msg)
	}
	if services.FailureMessage(nil) != "" {
		t.Fatal("expected empty message for nil error")
	}
}
