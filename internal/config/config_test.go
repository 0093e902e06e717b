// internal/config/config_test.go
// Package config provides unit tests for environment-based configuration.
package config

import (
	"testing"
	"time"
)

// setRequired sets the two required variables so Load can succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SARA_ADMIN_PASSWORD", "hunter2")
	t.Setenv("SARA_JWT_SECRET", "signing-secret")
}

// TestLoadDefaults verifies unset optional variables fall back to their
// documented defaults.
func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.CatalogPath != "movie_list.json" {
		t.Errorf("CatalogPath = %q, want movie_list.json", cfg.CatalogPath)
	}
	if cfg.MatchThreshold != 70 {
		t.Errorf("MatchThreshold = %d, want 70", cfg.MatchThreshold)
	}
	if cfg.MatchMinOverlap != 5 {
		t.Errorf("MatchMinOverlap = %d, want 5", cfg.MatchMinOverlap)
	}
	if cfg.MirrorTimeout != 5*time.Second {
		t.Errorf("MirrorTimeout = %v, want 5s", cfg.MirrorTimeout)
	}
	if cfg.MirrorConfigured() {
		t.Error("mirror must not be configured by default")
	}
}

// TestLoadRequiresSecrets verifies Load fails fast when the admin password
// or signing secret is missing.
func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("SARA_ADMIN_PASSWORD", "")
	t.Setenv("SARA_JWT_SECRET", "signing-secret")
	if _, err := Load(); err == nil {
		t.Error("expected error for missing SARA_ADMIN_PASSWORD")
	}

	t.Setenv("SARA_ADMIN_PASSWORD", "hunter2")
	t.Setenv("SARA_JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for missing SARA_JWT_SECRET")
	}
}

// TestLoadOverrides verifies environment overrides take effect, including
// the seconds-based mirror timeout.
func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SARA_PORT", "9090")
	t.Setenv("SARA_MATCH_THRESHOLD", "85")
	t.Setenv("SARA_MIRROR_TIMEOUT_SECONDS", "12")
	t.Setenv("SARA_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("SARA_S3_BUCKET", "catalog")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.MatchThreshold != 85 {
		t.Errorf("MatchThreshold = %d, want 85", cfg.MatchThreshold)
	}
	if cfg.MirrorTimeout != 12*time.Second {
		t.Errorf("MirrorTimeout = %v, want 12s", cfg.MirrorTimeout)
	}
	if !cfg.MirrorConfigured() {
		t.Error("expected mirror configured with endpoint and bucket set")
	}
}

// TestLoadIgnoresInvalidTuning verifies out-of-range tuning values are
// ignored in favor of the defaults rather than failing startup.
func TestLoadIgnoresInvalidTuning(t *testing.T) {
	setRequired(t)
	t.Setenv("SARA_MATCH_THRESHOLD", "250")
	t.Setenv("SARA_MATCH_MIN_OVERLAP", "-1")
	t.Setenv("SARA_MIRROR_TIMEOUT_SECONDS", "zero")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MatchThreshold != 70 {
		t.Errorf("MatchThreshold = %d, want default 70", cfg.MatchThreshold)
	}
	if cfg.MatchMinOverlap != 5 {
		t.Errorf("MatchMinOverlap = %d, want default 5", cfg.MatchMinOverlap)
	}
	if cfg.MirrorTimeout != 5*time.Second {
		t.Errorf("MirrorTimeout = %v, want default 5s", cfg.MirrorTimeout)
	}
}
