package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls SSO API behavior and security defaults.
type Config struct {
	// RequireProof enforces the shared-secret DID proof on login and link.
	RequireProof bool
	TrustProxy   bool
	MaxBodyBytes int64

	// Failed link attempts per client IP within LinkIPWindow.
	LinkIPMax    int
	LinkIPWindow time.Duration

	// Progressive lockout per username after failed link attempts.
	LockoutShortThreshold  int
	LockoutShortDuration   time.Duration
	LockoutLongThreshold   int
	LockoutLongDuration    time.Duration
	LockoutSevereThreshold int
	LockoutSevereDuration  time.Duration
}

// LoadConfigFromEnv loads SSO API config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		RequireProof:           envBool("BSSO_AUTH_REQUIRE_PROOF", true),
		TrustProxy:             envBool("BSSO_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:           envInt64("BSSO_AUTH_MAX_BODY_BYTES", 64<<10), // 64 KiB
		LinkIPMax:              envInt("BSSO_AUTH_LINK_IP_MAX", 10),
		LinkIPWindow:           envDuration("BSSO_AUTH_LINK_IP_WINDOW", 15*time.Minute),
		LockoutShortThreshold:  envInt("BSSO_AUTH_LINK_LOCKOUT_SHORT_THRESHOLD", 5),
		LockoutShortDuration:   envDuration("BSSO_AUTH_LINK_LOCKOUT_SHORT_DURATION", 5*time.Minute),
		LockoutLongThreshold:   envInt("BSSO_AUTH_LINK_LOCKOUT_LONG_THRESHOLD", 10),
		LockoutLongDuration:    envDuration("BSSO_AUTH_LINK_LOCKOUT_LONG_DURATION", 30*time.Minute),
		LockoutSevereThreshold: envInt("BSSO_AUTH_LINK_LOCKOUT_SEVERE_THRESHOLD", 20),
		LockoutSevereDuration:  envDuration("BSSO_AUTH_LINK_LOCKOUT_SEVERE_DURATION", 2*time.Hour),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.LinkIPMax <= 0 {
		cfg.LinkIPMax = 10
	}

	return cfg
}

// DefaultConfig is LoadConfigFromEnv with an empty environment.
func DefaultConfig() Config {
	return Config{
		RequireProof:           true,
		MaxBodyBytes:           64 << 10,
		LinkIPMax:              10,
		LinkIPWindow:           15 * time.Minute,
		LockoutShortThreshold:  5,
		LockoutShortDuration:   5 * time.Minute,
		LockoutLongThreshold:   10,
		LockoutLongDuration:    30 * time.Minute,
		LockoutSevereThreshold: 20,
		LockoutSevereDuration:  2 * time.Hour,
	}
}

func (c Config) lockoutTiers() []lockoutTier {
	return []lockoutTier{
		{Threshold: c.LockoutSevereThreshold, Duration: c.LockoutSevereDuration},
		{Threshold: c.LockoutLongThreshold, Duration: c.LockoutLongDuration},
		{Threshold: c.LockoutShortThreshold, Duration: c.LockoutShortDuration},
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
