package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("MAX_TRANSMISSION_SIZE_MB", "")
	t.Setenv("RESULT_TTL", "")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "")
	t.Setenv("AZURE_STORAGE_KEY", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GeminiModel != defaultGeminiModel {
		t.Errorf("Expected default model %s, got %s", defaultGeminiModel, cfg.GeminiModel)
	}
	if cfg.GeminiAPIKey != "" {
		t.Errorf("Expected empty API key, got %q", cfg.GeminiAPIKey)
	}
	if cfg.MaxTransmissionSizeMB != 10 {
		t.Errorf("Expected 10MB transmission ceiling, got %d", cfg.MaxTransmissionSizeMB)
	}
	if cfg.ResultTTL != 30*time.Minute {
		t.Errorf("Expected 30m result TTL, got %s", cfg.ResultTTL)
	}
	if cfg.AzureEnabled() {
		t.Error("Expected Azure to be disabled without credentials")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "9090")
	t.Setenv("GEMINI_API_KEY", "  secret  ")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-pro")
	t.Setenv("ANALYSIS_TIMEOUT", "5s")
	t.Setenv("MAX_TRANSMISSION_SIZE_MB", "4")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "key")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.ServerAddress() != "127.0.0.1:9090" {
		t.Errorf("Expected 127.0.0.1:9090, got %s", cfg.ServerAddress())
	}
	if cfg.GeminiAPIKey != "secret" {
		t.Errorf("Expected trimmed API key, got %q", cfg.GeminiAPIKey)
	}
	if cfg.GeminiModel != "gemini-1.5-pro" {
		t.Errorf("Expected model override, got %s", cfg.GeminiModel)
	}
	if cfg.AnalysisTimeout != 5*time.Second {
		t.Errorf("Expected 5s analysis timeout, got %s", cfg.AnalysisTimeout)
	}
	if cfg.MaxTransmissionSizeMB != 4 {
		t.Errorf("Expected 4MB, got %d", cfg.MaxTransmissionSizeMB)
	}
	if !cfg.AzureEnabled() {
		t.Error("Expected Azure to be enabled")
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric port", "PORT", "http"},
		{"port out of range", "PORT", "70000"},
		{"negative body size", "MAX_REQUEST_BODY_SIZE", "-1"},
		{"transmission ceiling too large", "MAX_TRANSMISSION_SIZE_MB", "80"},
		{"zero cache size", "RESULT_CACHE_SIZE", "0"},
		{"zero burst", "RATE_LIMIT_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestParseDurationOrDefault_IgnoresGarbage(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "soon")
	if got := parseDurationOrDefault("SOME_TIMEOUT", time.Second); got != time.Second {
		t.Errorf("Expected fallback 1s, got %s", got)
	}
	t.Setenv("SOME_TIMEOUT", "-5s")
	if got := parseDurationOrDefault("SOME_TIMEOUT", time.Second); got != time.Second {
		t.Errorf("Expected fallback for negative duration, got %s", got)
	}
}
