// Package migrations embeds the goose migrations for every supported store dialect.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

// Dialect names a migration directory and its goose dialect.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

func (d Dialect) goose() (string, error) {
	switch d {
	case Postgres:
		return "postgres", nil
	case SQLite:
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("migrations: unknown dialect %q", string(d))
	}
}

// Up applies all pending migrations for dialect and returns the resulting schema version.
func Up(ctx context.Context, db *sql.DB, d Dialect) (int64, error) {
	name, err := d.goose()
	if err != nil {
		return 0, err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(name); err != nil {
		return 0, err
	}
	if err := goose.UpContext(ctx, db, string(d)); err != nil {
		return 0, fmt.Errorf("migrations: up %s: %w", d, err)
	}
	return goose.GetDBVersionContext(ctx, db)
}
