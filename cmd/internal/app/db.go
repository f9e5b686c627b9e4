package app

import (
	"context"
	"fmt"
	"time"

	"bsso/cmd/identity"
	"bsso/cmd/identity/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// NewDBPool builds a pgxpool with sane defaults and validates connectivity.
// Connections use cfg.DBSchema as their search_path so migrations and the
// store address the same tables.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if !identity.PgIdentIsValid(cfg.DBSchema) {
		return nil, fmt.Errorf("app: invalid BSSO_DB_SCHEMA %q", cfg.DBSchema)
	}

	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}
	pcfg.ConnConfig.RuntimeParams["search_path"] = cfg.DBSchema

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, 3*time.Second); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}

// MigratePostgres creates the schema if needed and applies pending migrations.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, schema string) (int64, error) {
	if _, err := pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{schema}.Sanitize()); err != nil {
		return 0, fmt.Errorf("app: create schema: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	return migrations.Up(ctx, db, migrations.Postgres)
}
