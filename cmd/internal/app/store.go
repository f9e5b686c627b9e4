package app

import (
	"context"
	"fmt"

	"bsso/cmd/identity"
	"bsso/cmd/identity/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
)

// storeHandle is an opened identity store plus the resources the app owns for it.
type storeHandle struct {
	kind  string
	store identity.Store
	pool  *pgxpool.Pool // postgres only
}

// persistent reports whether the store survives a restart.
func (h storeHandle) persistent() bool { return h.kind != StoreMemory }

func (h storeHandle) Close() {
	if h.store != nil {
		_ = h.store.Close()
	}
	if h.pool != nil {
		h.pool.Close()
	}
}

// openStore opens the store selected by cfg.Store and migrates it when enabled.
func openStore(ctx context.Context, cfg Config, log Logger) (storeHandle, error) {
	switch cfg.Store {
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return storeHandle{}, fmt.Errorf("app: BSSO_STORE=postgres requires BSSO_DATABASE_URL")
		}
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return storeHandle{}, err
		}
		if cfg.DBMigrate {
			v, err := MigratePostgres(ctx, pool, cfg.DBSchema)
			if err != nil {
				pool.Close()
				return storeHandle{}, err
			}
			log.Info("db.migrate.ok", "dialect", "postgres", "version", v)
		}
		// The pool is owned here; PostgresStore.Close is a no-op.
		st, err := identity.NewPostgresStore(pool, identity.WithSchema(cfg.DBSchema))
		if err != nil {
			pool.Close()
			return storeHandle{}, err
		}
		log.Info("db.enabled.postgres_store", "schema", cfg.DBSchema)
		return storeHandle{kind: StorePostgres, store: st, pool: pool}, nil

	case StoreSQLite:
		db, err := identity.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return storeHandle{}, err
		}
		if cfg.DBMigrate {
			v, err := migrations.Up(ctx, db, migrations.SQLite)
			if err != nil {
				_ = db.Close()
				return storeHandle{}, err
			}
			log.Info("db.migrate.ok", "dialect", "sqlite", "version", v)
		}
		st, err := identity.NewSQLiteStore(db)
		if err != nil {
			_ = db.Close()
			return storeHandle{}, err
		}
		log.Info("db.enabled.sqlite_store", "path", cfg.SQLitePath)
		return storeHandle{kind: StoreSQLite, store: st}, nil

	case StoreMemory, "":
		log.Warn("db.disabled.inmemory_store")
		return storeHandle{kind: StoreMemory, store: identity.NewInMemoryStore()}, nil

	default:
		return storeHandle{}, fmt.Errorf("app: unknown BSSO_STORE %q", cfg.Store)
	}
}
