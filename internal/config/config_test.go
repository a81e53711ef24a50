package config

import (
	"errors"
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("CHAT_MODEL", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.ChatModel == "" || cfg.SpeechModel == "" || cfg.TranscribeModel == "" {
		t.Fatalf("expected default model ids, got %+v", cfg)
	}
	if cfg.CacheDir == "" {
		t.Fatalf("expected a default cache dir")
	}
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := Load(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
