package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Policy bounds the passwords accepted by Hash.
type Policy struct {
	MinLength int
	MaxLength int
	// RejectVeryWeak enables a minimal trivial-pattern check.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams
	Policy Policy
}

// EnvPrefix namespaces the variables read by FromEnv.
const EnvPrefix = "BSSO_"

// DefaultConfig returns the interactive-login baseline.
func DefaultConfig() Config {
	// Parallelism follows the CPU count, clamped to [1..4] for containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024, // 64 MiB
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 8,
			MaxLength: 256,
		},
	}
}

// FromEnv loads config from the process environment.
//
// Env surface (all optional):
//   - BSSO_PASSWORD_MIN_LEN, BSSO_PASSWORD_MAX_LEN
//   - BSSO_PASSWORD_REJECT_VERY_WEAK (true/false)
//   - BSSO_ARGON2_MEMORY_KIB, BSSO_ARGON2_ITERATIONS, BSSO_ARGON2_PARALLELISM
//   - BSSO_ARGON2_SALT_LEN, BSSO_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup is FromEnv over an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	ints := []struct {
		name     string
		min, max int
		dst      *int
	}{
		{"PASSWORD_MIN_LEN", 1, 1024, &cfg.Policy.MinLength},
		{"PASSWORD_MAX_LEN", 1, 4096, &cfg.Policy.MaxLength},
	}
	for _, f := range ints {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok {
			continue
		}
		n, err := atoiRange(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
		}
		*f.dst = n
	}

	u32s := []struct {
		name     string
		min, max uint32
		dst      *uint32
	}{
		{"ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB}, // 8 MiB .. 1 GiB
		{"ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, f := range u32s {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok {
			continue
		}
		u, err := atou32(v, f.min, f.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s%s: %w", EnvPrefix, f.name, err)
		}
		*f.dst = u
	}

	if v, ok := lookup(EnvPrefix + "ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, 64)
		if err == nil {
			cfg.Params.Parallelism, err = u32ToU8(u)
		}
		if err != nil {
			return Config{}, fmt.Errorf("%sARGON2_PARALLELISM: %w", EnvPrefix, err)
		}
	}

	if v, ok := lookup(EnvPrefix + "PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%sPASSWORD_REJECT_VERY_WEAK: %w", EnvPrefix, err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiRange(s string, minVal, maxVal int) (int, error) {
	i64, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}

func u32ToU8(u uint32) (uint8, error) {
	if u > math.MaxUint8 {
		return 0, fmt.Errorf("out of range [0..%d]", math.MaxUint8)
	}
	return uint8(u), nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
