package main

import (
	"testing"

	"revoice/internal/logging"
	"revoice/internal/testsupport"
)

func TestNewRegistryBindsEveryProvider(t *testing.T) {
	t.Parallel()

	registry := newRegistry(testsupport.NewConfig(t), logging.NewNop())

	if registry.Cleanup == nil {
		t.Error("Cleanup provider not bound")
	}
	if registry.Separation == nil {
		t.Error("Separation provider not bound")
	}
	if registry.Transcribe == nil {
		t.Error("Transcribe provider not bound")
	}
	if registry.Diarize == nil {
		t.Error("Diarize provider not bound")
	}
	if registry.Translate == nil {
		t.Error("Translate provider not bound")
	}
	if registry.Polish == nil {
		t.Error("Polish provider not bound")
	}
	if registry.Voices == nil {
		t.Error("Voices provider not bound")
	}
	if registry.Synthesis == nil {
		t.Error("Synthesis provider not bound")
	}
	if registry.Embeddings == nil {
		t.Error("Embeddings provider not bound")
	}
}
