package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/loancrm")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("SERVICING_API_URL", "https://servicing.example.com/api/")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
}

func TestLoadAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ServicingAPIURL != "https://servicing.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.ServicingAPIURL)
	}
	if cfg.ServicingAPITimeout != time.Minute {
		t.Fatalf("expected default servicing timeout of 1m, got %s", cfg.ServicingAPITimeout)
	}
	if cfg.AsynqQueueName != "default" {
		t.Fatalf("expected default queue, got %q", cfg.AsynqQueueName)
	}
	if cfg.EmailEnabled {
		t.Fatal("expected email disabled without SMTP_HOST")
	}
	if cfg.DefaultPhoneRegion != "US" {
		t.Fatalf("expected US phone region, got %q", cfg.DefaultPhoneRegion)
	}
}

func TestLoadRequiresServicingURL(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVICING_API_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SERVICING_API_URL is empty")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected CORS wildcard with credentials to be rejected")
	}
}
