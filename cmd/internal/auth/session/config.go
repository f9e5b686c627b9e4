package session

import (
	"os"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

// Config defines runtime configuration for access tokens.
type Config struct {
	// Issuer is the value set in the "iss" claim of access tokens.
	Issuer string

	// AccessTokenTTL defines the lifetime of PASETO access tokens.
	AccessTokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// PasetoV4SecretKeyHex is the hex-encoded Ed25519 secret key
	// used to sign PASETO v4.public access tokens.
	PasetoV4SecretKeyHex string
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Issuer:         "bsso",
		AccessTokenTTL: 15 * time.Minute,
		ClockSkew:      30 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - BSSO_PASETO_V4_SECRET_KEY_HEX (empty means the caller must supply a key)
//   - BSSO_AUTH_ISSUER
//   - BSSO_AUTH_ACCESS_TTL
//   - BSSO_AUTH_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("BSSO_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("BSSO_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("BSSO_AUTH_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 || d >= cfg.AccessTokenTTL {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	cfg.PasetoV4SecretKeyHex = strings.TrimSpace(os.Getenv("BSSO_PASETO_V4_SECRET_KEY_HEX"))
	if cfg.PasetoV4SecretKeyHex != "" {
		if _, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex); err != nil {
			return Config{}, ErrConfig
		}
	}

	return cfg, nil
}

// HasKey reports whether a signing key is configured.
func (c Config) HasKey() bool { return c.PasetoV4SecretKeyHex != "" }

// WithGeneratedKey returns a copy of c carrying a fresh ephemeral signing key.
// Tokens signed with it stop verifying after a restart.
func (c Config) WithGeneratedKey() Config {
	c.PasetoV4SecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()
	return c
}
