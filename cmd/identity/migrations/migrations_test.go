package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestUp_SQLite_CreatesTablesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	v1, err := Up(ctx, db, SQLite)
	if err != nil {
		t.Fatalf("first up: %v", err)
	}
	if v1 < 1 {
		t.Fatalf("expected version >= 1, got %d", v1)
	}
	v2, err := Up(ctx, db, SQLite)
	if err != nil {
		t.Fatalf("second up: %v", err)
	}
	if v2 != v1 {
		t.Fatalf("expected stable version %d, got %d", v1, v2)
	}

	for _, table := range []string{"shared_secret", "links", "goose_db_version"} {
		var n int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&n); err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestUp_UnknownDialect(t *testing.T) {
	if _, err := Up(context.Background(), nil, Dialect("mysql")); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}
}
