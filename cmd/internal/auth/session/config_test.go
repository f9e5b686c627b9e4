package session

import (
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

func TestLoadConfigFromEnv_MissingSecretKeyLeavesItEmpty(t *testing.T) {
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", "")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HasKey() {
		t.Fatalf("expected no key")
	}
	if _, err := NewPasetoV4PublicManager(cfg); err != ErrConfig {
		t.Fatalf("expected ErrConfig without key, got %v", err)
	}
	if _, err := NewPasetoV4PublicManager(cfg.WithGeneratedKey()); err != nil {
		t.Fatalf("generated key: %v", err)
	}
}

func TestLoadConfigFromEnv_MalformedSecretKey(t *testing.T) {
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", "abcd")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for malformed key, got %v", err)
	}
}

func TestLoadConfigFromEnv_InvalidDurations(t *testing.T) {
	secret := paseto.NewV4AsymmetricSecretKey()
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", secret.ExportHex())
	t.Setenv("BSSO_AUTH_ACCESS_TTL", "-5m")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for negative duration, got %v", err)
	}
}

func TestLoadConfigFromEnv_SkewNotBelowTTL(t *testing.T) {
	t.Setenv("BSSO_AUTH_ACCESS_TTL", "1m")
	t.Setenv("BSSO_AUTH_CLOCK_SKEW", "2m")
	if _, err := LoadConfigFromEnv(); err != ErrConfig {
		t.Fatalf("expected ErrConfig for skew >= ttl, got %v", err)
	}
}

func TestLoadConfigFromEnv_Valid(t *testing.T) {
	secret := paseto.NewV4AsymmetricSecretKey()
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", secret.ExportHex())
	t.Setenv("BSSO_AUTH_ISSUER", "bsso-test")
	t.Setenv("BSSO_AUTH_ACCESS_TTL", "10m")
	t.Setenv("BSSO_AUTH_CLOCK_SKEW", "20s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Issuer != "bsso-test" {
		t.Fatalf("issuer mismatch: %q", cfg.Issuer)
	}
	if cfg.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("access ttl mismatch: %v", cfg.AccessTokenTTL)
	}
	if cfg.ClockSkew != 20*time.Second {
		t.Fatalf("clock skew mismatch: %v", cfg.ClockSkew)
	}
	if !cfg.HasKey() {
		t.Fatalf("expected key")
	}
}
