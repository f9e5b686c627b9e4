package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"bsso/cmd/security/password"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveStoreKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		explicit string
		url      string
		want     string
	}{
		{explicit: "", url: "", want: StoreMemory},
		{explicit: "", url: "postgres://localhost/bsso", want: StorePostgres},
		{explicit: "SQLite", url: "postgres://localhost/bsso", want: StoreSQLite},
		{explicit: "memory", url: "postgres://localhost/bsso", want: StoreMemory},
		{explicit: " Sqlit ", url: "", want: "sqlit"},
	}

	for _, tc := range cases {
		if got := resolveStoreKind(tc.explicit, tc.url); got != tc.want {
			t.Fatalf("resolveStoreKind(%q, %q)=%q want=%q", tc.explicit, tc.url, got, tc.want)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"BSSO_HTTP_ADDR", "BSSO_STORE", "BSSO_DATABASE_URL", "BSSO_DB_SCHEMA", "BSSO_LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.Store != StoreMemory {
		t.Fatalf("Store=%q want memory", cfg.Store)
	}
	if cfg.DBSchema != "bsso" || !cfg.DBMigrate {
		t.Fatalf("unexpected db defaults: %+v", cfg)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("LogFormat=%q", cfg.LogFormat)
	}
}

func TestLoadConfig_RejectsUnknownLogFormat(t *testing.T) {
	t.Setenv("BSSO_LOG_FORMAT", "xml")
	if got := LoadConfig().LogFormat; got != "json" {
		t.Fatalf("LogFormat=%q want json", got)
	}
}

func TestSessionConfig_GeneratesKeyUnlessRequired(t *testing.T) {
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", "")

	sc, err := sessionConfig(Config{}, discardLogger())
	if err != nil {
		t.Fatalf("sessionConfig: %v", err)
	}
	if !sc.HasKey() {
		t.Fatalf("expected a generated key")
	}

	if _, err := sessionConfig(Config{RequireSessionKey: true}, discardLogger()); err == nil {
		t.Fatalf("expected error when a key is required")
	}
}

func TestOpenStore_SQLiteMigrates(t *testing.T) {
	cfg := Config{
		Store:      StoreSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "bsso.db"),
		DBMigrate:  true,
	}

	h, err := openStore(context.Background(), cfg, discardLogger())
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer h.Close()

	if !h.persistent() {
		t.Fatalf("sqlite store must be persistent")
	}
	if _, _, err := h.store.GetOrCreateSalt(context.Background()); err != nil {
		t.Fatalf("GetOrCreateSalt: %v", err)
	}
}

func TestOpenStore_PostgresNeedsURL(t *testing.T) {
	if _, err := openStore(context.Background(), Config{Store: StorePostgres}, discardLogger()); err == nil {
		t.Fatalf("expected error without BSSO_DATABASE_URL")
	}
}

func TestOpenStore_UnknownKind(t *testing.T) {
	cfg := Config{Store: resolveStoreKind("sqlit", "postgres://localhost/bsso")}
	_, err := openStore(context.Background(), cfg, discardLogger())
	if err == nil || !strings.Contains(err.Error(), `"sqlit"`) {
		t.Fatalf("expected unknown store error, got %v", err)
	}
}

func TestNew_ServesRoutes(t *testing.T) {
	t.Setenv("BSSO_PASETO_V4_SECRET_KEY_HEX", "")

	a, err := New(context.Background(), Config{Store: StoreMemory}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.store.Close()

	cases := []struct {
		path   string
		status int
		body   string
	}{
		{path: "/healthz", status: http.StatusOK, body: "ok"},
		{path: "/readyz", status: http.StatusOK, body: "ready"},
		{path: "/sso/manifest", status: http.StatusOK, body: `"start_url"`},
		{path: "/sso/config", status: http.StatusOK, body: "manifest_url"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rr.Code != tc.status {
			t.Fatalf("%s: status=%d want=%d", tc.path, rr.Code, tc.status)
		}
		if !strings.Contains(rr.Body.String(), tc.body) {
			t.Fatalf("%s: body %q does not contain %q", tc.path, rr.Body.String(), tc.body)
		}
		if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Fatalf("%s: missing security headers", tc.path)
		}
	}

	rr := httptest.NewRecorder()
	a.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	for _, name := range []string{"bsso_http_request_duration_seconds", `route="/sso/manifest"`} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Fatalf("/metrics missing %s", name)
		}
	}
}

func TestReadyz_RequireDB(t *testing.T) {
	r := newRouter(discardLogger(), Config{ReadinessRequireDB: true}, nil, nil, nil, false, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
}

func TestHashPassword(t *testing.T) {
	t.Setenv("BSSO_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("BSSO_ARGON2_ITERATIONS", "1")
	t.Setenv("BSSO_ARGON2_PARALLELISM", "1")

	var out bytes.Buffer
	if err := hashPassword(strings.NewReader("correct horse battery\n"), &out); err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	hash := strings.TrimSpace(out.String())

	pw, err := password.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	ok, err := pw.Verify(hash, "correct horse battery")
	if err != nil || !ok {
		t.Fatalf("Verify ok=%v err=%v", ok, err)
	}

	if err := hashPassword(strings.NewReader("short\n"), io.Discard); err == nil {
		t.Fatalf("expected policy error for a short password")
	}
}
