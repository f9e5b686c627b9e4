package app

import (
	"strings"
	"time"
)

// Store kinds accepted by BSSO_STORE.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // json | pretty
	LogColor  bool

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	Store string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32
	DBSchema    string
	DBMigrate   bool

	SQLitePath string

	AccountsFile string

	// If true, /readyz returns 503 unless a persistent store is configured and reachable.
	ReadinessRequireDB bool

	// If true, startup fails without BSSO_PASETO_V4_SECRET_KEY_HEX instead of
	// generating an ephemeral key.
	RequireSessionKey bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	cfg := Config{
		HTTPAddr:  EnvString("BSSO_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("BSSO_LOG_LEVEL", "info"),
		LogFormat: EnvOneOf("BSSO_LOG_FORMAT", "json", "json", "pretty"),
		LogColor:  EnvBool("BSSO_LOG_COLOR", false),

		ReadHeaderTimeout: EnvDuration("BSSO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("BSSO_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("BSSO_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("BSSO_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("BSSO_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MaxHeaderBytes: EnvInt("BSSO_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("BSSO_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("BSSO_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("BSSO_DB_MIN_CONNS", 0),
		DBSchema:    EnvString("BSSO_DB_SCHEMA", "bsso"),
		DBMigrate:   EnvBool("BSSO_DB_MIGRATE", true),

		SQLitePath: EnvString("BSSO_SQLITE_PATH", "bsso.db"),

		AccountsFile: EnvString("BSSO_ACCOUNTS_FILE", ""),

		ReadinessRequireDB: EnvBool("BSSO_READINESS_REQUIRE_DB", false),
		RequireSessionKey:  EnvBool("BSSO_REQUIRE_SESSION_KEY", false),
	}

	cfg.Store = resolveStoreKind(EnvString("BSSO_STORE", ""), cfg.DatabaseURL)
	return cfg
}

// resolveStoreKind picks postgres when a database URL is configured and the
// in-memory store otherwise, unless a kind is set explicitly. An unknown
// explicit kind is passed through so openStore rejects it.
func resolveStoreKind(explicit, databaseURL string) string {
	if k := strings.ToLower(strings.TrimSpace(explicit)); k != "" {
		return k
	}
	if strings.TrimSpace(databaseURL) != "" {
		return StorePostgres
	}
	return StoreMemory
}
