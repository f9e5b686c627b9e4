package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteStore implements SecretStore and LinkRegistry over SQLite (modernc, no cgo).
// It is meant for single-node deployments; the same single-statement write
// discipline as PostgresStore applies.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a SQLite database at path. ":memory:" is pinned
// to one connection because every connection would otherwise get its own database.
func OpenSQLite(path string) (*sql.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("identity: empty sqlite path")
	}

	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewSQLiteStore wraps an open database handle. The handle is owned by the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil sqlite db")
	}
	return &SQLiteStore{db: db}, nil
}

// Ping checks the database handle.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("identity.Ping", err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// GetOrCreateSalt returns the singleton salt, creating the row on first use.
func (s *SQLiteStore) GetOrCreateSalt(ctx context.Context) (string, bool, error) {
	const op = "identity.GetOrCreateSalt"

	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	salt, err := NewSaltHex()
	if err != nil {
		return "", false, err
	}
	now := sqliteTime(time.Now())

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO shared_secret (name, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, SharedSecretName, SharedSecret{Salt: salt}.encode(), now, now); err != nil {
		return "", false, unavailable(op, err)
	}

	var value string
	if err := s.db.QueryRowContext(ctx,
		`SELECT value FROM shared_secret WHERE name = ?`, SharedSecretName,
	).Scan(&value); err != nil {
		return "", false, unavailable(op, err)
	}

	ss := decodeSharedSecret(value)
	return ss.Salt, ss.IsSet(), nil
}

// SetSecretOnce appends the secret to the salt row if no secret is stored yet.
func (s *SQLiteStore) SetSecretOnce(ctx context.Context, secret string) error {
	const op = "identity.SetSecretOnce"

	if err := ValidateSecret(secret); err != nil {
		return err
	}
	if _, _, err := s.GetOrCreateSalt(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE shared_secret
		   SET value = value || ?,
		       updated_at = ?
		 WHERE name = ?
		   AND substr(value, -1) = ':'
	`, secret, sqliteTime(time.Now()), SharedSecretName)
	if err != nil {
		return unavailable(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if n != 1 {
		return alreadySet(op)
	}
	return nil
}

// SharedSecret returns the stored pair, or ErrNotFound when no salt row exists yet.
func (s *SQLiteStore) SharedSecret(ctx context.Context) (SharedSecret, error) {
	const op = "identity.SharedSecret"

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM shared_secret WHERE name = ?`, SharedSecretName,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SharedSecret{}, OpError{Op: op, Kind: ErrNotFound, Msg: "no salt row"}
		}
		return SharedSecret{}, unavailable(op, err)
	}
	return decodeSharedSecret(value), nil
}

const sqliteLinkColumns = `id, did, account_id, display_name, did_secret, created_at, updated_at`

// FindByDID looks a link up by exact DID.
func (s *SQLiteStore) FindByDID(ctx context.Context, did string) (Link, error) {
	const op = "identity.FindByDID"

	did, err := NormalizeDID(did)
	if err != nil {
		return Link{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteLinkColumns+` FROM links WHERE did = ?`, did)
	return scanSQLiteLink(op, row)
}

// FindByAccountID looks a link up by account id.
func (s *SQLiteStore) FindByAccountID(ctx context.Context, id AccountID) (Link, error) {
	const op = "identity.FindByAccountID"

	if !id.IsSet() {
		return Link{}, invalid(op, "account id must be positive")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteLinkColumns+` FROM links WHERE account_id = ?`, int64(id))
	return scanSQLiteLink(op, row)
}

// UpsertLink inserts or updates the link for in.DID atomically.
func (s *SQLiteStore) UpsertLink(ctx context.Context, in UpsertLinkInput) (Link, error) {
	const op = "identity.UpsertLink"

	in, err := validateUpsert(op, in)
	if err != nil {
		return Link{}, err
	}
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}

	id, err := NewULID(in.Now)
	if err != nil {
		return Link{}, err
	}
	now := sqliteTime(in.Now)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO links (id, did, account_id, display_name, did_secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(did) DO UPDATE
		   SET account_id   = excluded.account_id,
		       display_name = excluded.display_name,
		       did_secret   = excluded.did_secret,
		       updated_at   = excluded.updated_at
		RETURNING `+sqliteLinkColumns,
		id, in.DID, accountParam(in.AccountID), in.DisplayName, in.DIDSecret, now, now,
	)

	link, err := scanSQLiteLink(op, row)
	if err != nil {
		if field, ok := sqliteClassifyUniqueViolation(err); ok {
			return Link{}, ConflictError{Op: op, Field: field}
		}
		return Link{}, err
	}
	return link, nil
}

// ---- helpers ----

func scanSQLiteLink(op string, row *sql.Row) (Link, error) {
	var (
		out                  Link
		accountID            sql.NullInt64
		displayName, didSec  sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&out.ID, &out.DID, &accountID, &displayName, &didSec, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Link{}, OpError{Op: op, Kind: ErrNotFound}
		}
		if _, ok := sqliteClassifyUniqueViolation(err); ok {
			return Link{}, err
		}
		return Link{}, unavailable(op, err)
	}

	if accountID.Valid {
		out.AccountID = AccountID(accountID.Int64)
	}
	if displayName.Valid {
		v := displayName.String
		out.DisplayName = &v
	}
	if didSec.Valid {
		v := didSec.String
		out.DIDSecret = &v
	}
	if out.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return Link{}, unavailable(op, err)
	}
	if out.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return Link{}, unavailable(op, err)
	}
	return out, nil
}

// Timestamps are stored as RFC 3339 text in UTC.
func sqliteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func sqliteClassifyUniqueViolation(err error) (field string, ok bool) {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return "", false
	}
	// Primary code covers handles opened without extended result codes.
	if c := sqErr.Code(); c != sqlite3.SQLITE_CONSTRAINT_UNIQUE && c&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}

	msg := strings.ToLower(sqErr.Error())
	switch {
	case strings.Contains(msg, "links.account_id"):
		return "account_id", true
	case strings.Contains(msg, "links.did"):
		return "did", true
	default:
		return "unique", true
	}
}
