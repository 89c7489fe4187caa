package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("BILLING_API_URL", "https://billing.example/rest/2.0")
	t.Setenv("BILLING_SESSION_ID", "sess-1")
	t.Setenv("HPP_URL", "https://payments.example")
	t.Setenv("HPP_ENV_ID", "env-1")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BACKEND_ADDR", "")
	t.Setenv("HPP_SCRIPT_URL", "")
	t.Setenv("WIZARD_SESSION_TTL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerAddress != ":18080" {
		t.Fatalf("unexpected default address: %s", cfg.ServerAddress)
	}
	if cfg.HPPScriptURL == "" {
		t.Fatal("expected default script url")
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected default ttl: %s", cfg.SessionTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BACKEND_ADDR", ":9090")
	t.Setenv("WIZARD_SESSION_TTL", "45m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ServerAddress != ":9090" {
		t.Fatalf("unexpected address: %s", cfg.ServerAddress)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("unexpected ttl: %s", cfg.SessionTTL)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BILLING_API_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when billing api url is missing")
	}
}

func TestLoadInvalidTTL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WIZARD_SESSION_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid ttl")
	}
}
