package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "pgx" || cfg.NotifyMode != NotifyLog || cfg.ForwardMode != ForwardNone {
		t.Fatalf("unexpected modes: db=%q notify=%q forward=%q", cfg.DBDriver, cfg.NotifyMode, cfg.ForwardMode)
	}
	if cfg.StorageBackend != StorageLocalFS {
		t.Fatalf("expected localfs storage, got %q", cfg.StorageBackend)
	}
	if cfg.LLMRetryMaxAttempts != 1 {
		t.Fatalf("expected no LLM retries by default, got %d", cfg.LLMRetryMaxAttempts)
	}
	if cfg.WorkerDocumentTimeout != 5*time.Minute {
		t.Fatalf("expected 5m worker timeout, got %s", cfg.WorkerDocumentTimeout)
	}
	if cfg.NeedsNATS() {
		t.Fatalf("default config must not require NATS")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("NOTIFY_MODE", "smtp")
	t.Setenv("NOTIFY_FROM", "noreply@clinic.test")
	t.Setenv("NOTIFY_TO", "ops@clinic.test, , secretariat@clinic.test")
	t.Setenv("FORWARD_MODE", "nats")
	t.Setenv("GEMINI_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDriver != "mysql" {
		t.Fatalf("expected mysql driver, got %q", cfg.DBDriver)
	}
	if len(cfg.NotifyTo) != 2 || cfg.NotifyTo[1] != "secretariat@clinic.test" {
		t.Fatalf("unexpected recipients %v", cfg.NotifyTo)
	}
	if cfg.GeminiTimeout != 45*time.Second {
		t.Fatalf("expected 45s timeout, got %s", cfg.GeminiTimeout)
	}
	if !cfg.NeedsNATS() {
		t.Fatalf("nats forwarding must require NATS")
	}
}

func TestLoadRejectsInvalidModes(t *testing.T) {
	t.Setenv("NOTIFY_MODE", "pigeon")
	t.Setenv("STORAGE_BACKEND", "s3")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"NOTIFY_MODE", "S3_BUCKET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestValidateRequiresEndpointForHTTPForwarding(t *testing.T) {
	t.Setenv("FORWARD_MODE", "http")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "EXTERNAL_API_URL") {
		t.Fatalf("expected EXTERNAL_API_URL error, got %v", err)
	}
}
