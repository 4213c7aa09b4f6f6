package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.Backend.BaseURL != "https://api.example.com/api/v1" {
		t.Fatalf("unexpected backend url %q", cfg.Backend.BaseURL)
	}
	if got := cfg.Backend.Timeout; got != 10*time.Second {
		t.Fatalf("expected default backend timeout 10s, got %v", got)
	}
	if got := cfg.Notifications.PollInterval; got != 30*time.Second {
		t.Fatalf("expected default poll interval 30s, got %v", got)
	}
	if got := cfg.Wizard.OTPTTL; got != 2*time.Minute {
		t.Fatalf("expected default otp ttl 2m, got %v", got)
	}
	if cfg.Session.CookieName != "sf_sid" {
		t.Fatalf("unexpected cookie name %q", cfg.Session.CookieName)
	}
	if cfg.JWT.Verifies() {
		t.Fatalf("jwt verification should be off without a secret")
	}
}

func TestLoad_OverridesDurationsAndOrigins(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPollEvery, "5s")
	t.Setenv(EnvWizardOTP, "90s")
	t.Setenv(EnvCORSOrigins, "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Notifications.PollInterval != 5*time.Second {
		t.Fatalf("unexpected poll interval %v", cfg.Notifications.PollInterval)
	}
	if cfg.Wizard.OTPTTL != 90*time.Second {
		t.Fatalf("unexpected otp ttl %v", cfg.Wizard.OTPTTL)
	}
	if len(cfg.App.CORSOrigins) != 2 {
		t.Fatalf("expected two origins, got %v", cfg.App.CORSOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsNonHTTPBackend(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendURL, "ftp://api.example.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http backend url to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvBackendURL, "https://api.example.com/api/v1")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
