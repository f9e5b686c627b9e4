package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements SecretStore and LinkRegistry over PostgreSQL.
//
//   - The pgx pool is owned by the caller; Close does not close it.
//   - Schema/table identifiers are quoted via pgx.Identifier.
//   - Every write is a single statement: INSERT .. ON CONFLICT DO NOTHING for the
//     salt row, a guarded UPDATE for the secret, INSERT .. ON CONFLICT DO UPDATE for links.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultSchema is the schema used when none is configured.
const DefaultSchema = "bsso"

// WithSchema sets the Postgres schema used by the store (default "bsso").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !PgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// Ping checks that a connection can be acquired.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable("identity.Ping", err)
	}
	return nil
}

// Close is a no-op: the pool belongs to the caller.
func (s *PostgresStore) Close() error { return nil }

// GetOrCreateSalt returns the singleton salt, creating the row on first use.
func (s *PostgresStore) GetOrCreateSalt(ctx context.Context) (string, bool, error) {
	const op = "identity.GetOrCreateSalt"

	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	table := pgIdent(s.schema, "shared_secret")

	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM `+table+` WHERE name = $1`,
		SharedSecretName,
	).Scan(&value)
	if err == nil {
		ss := decodeSharedSecret(value)
		return ss.Salt, ss.IsSet(), nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, unavailable(op, err)
	}

	salt, err := NewSaltHex()
	if err != nil {
		return "", false, err
	}
	now := time.Now().UTC()

	// A losing racer inserts nothing and re-reads the winner's row.
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO `+table+` (name, value, created_at, updated_at)
		 VALUES ($1, $2, $3, $3)
		 ON CONFLICT (name) DO NOTHING`,
		SharedSecretName, SharedSecret{Salt: salt}.encode(), now,
	); err != nil {
		return "", false, unavailable(op, err)
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT value FROM `+table+` WHERE name = $1`,
		SharedSecretName,
	).Scan(&value); err != nil {
		return "", false, unavailable(op, err)
	}

	ss := decodeSharedSecret(value)
	return ss.Salt, ss.IsSet(), nil
}

// SetSecretOnce appends the secret to the salt row if no secret is stored yet.
func (s *PostgresStore) SetSecretOnce(ctx context.Context, secret string) error {
	const op = "identity.SetSecretOnce"

	if err := ValidateSecret(secret); err != nil {
		return err
	}
	if _, _, err := s.GetOrCreateSalt(ctx); err != nil {
		return err
	}

	table := pgIdent(s.schema, "shared_secret")

	// The row holds "<salt>:" until a secret is stored; the guard makes the
	// check and the write one statement.
	ct, err := s.pool.Exec(ctx,
		`UPDATE `+table+`
		    SET value = value || $1,
		        updated_at = $2
		  WHERE name = $3
		    AND right(value, 1) = ':'`,
		secret, time.Now().UTC(), SharedSecretName,
	)
	if err != nil {
		return unavailable(op, err)
	}
	if ct.RowsAffected() != 1 {
		return alreadySet(op)
	}
	return nil
}

// SharedSecret returns the stored pair, or ErrNotFound when no salt row exists yet.
func (s *PostgresStore) SharedSecret(ctx context.Context) (SharedSecret, error) {
	const op = "identity.SharedSecret"

	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM `+pgIdent(s.schema, "shared_secret")+` WHERE name = $1`,
		SharedSecretName,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SharedSecret{}, OpError{Op: op, Kind: ErrNotFound, Msg: "no salt row"}
		}
		return SharedSecret{}, unavailable(op, err)
	}
	return decodeSharedSecret(value), nil
}

const pgLinkColumns = `id, did, account_id, display_name, did_secret, created_at, updated_at`

// FindByDID looks a link up by exact DID.
func (s *PostgresStore) FindByDID(ctx context.Context, did string) (Link, error) {
	const op = "identity.FindByDID"

	did, err := NormalizeDID(did)
	if err != nil {
		return Link{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLinkColumns+` FROM `+pgIdent(s.schema, "links")+` WHERE did = $1`,
		did,
	)
	return scanPgLink(op, row)
}

// FindByAccountID looks a link up by account id.
func (s *PostgresStore) FindByAccountID(ctx context.Context, id AccountID) (Link, error) {
	const op = "identity.FindByAccountID"

	if !id.IsSet() {
		return Link{}, invalid(op, "account id must be positive")
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLinkColumns+` FROM `+pgIdent(s.schema, "links")+` WHERE account_id = $1`,
		int64(id),
	)
	return scanPgLink(op, row)
}

// UpsertLink inserts or updates the link for in.DID atomically.
func (s *PostgresStore) UpsertLink(ctx context.Context, in UpsertLinkInput) (Link, error) {
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

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+pgIdent(s.schema, "links")+` (
		     id, did, account_id, display_name, did_secret, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (did) DO UPDATE
		    SET account_id   = EXCLUDED.account_id,
		        display_name = EXCLUDED.display_name,
		        did_secret   = EXCLUDED.did_secret,
		        updated_at   = EXCLUDED.updated_at
		 RETURNING `+pgLinkColumns,
		id, in.DID, accountParam(in.AccountID), in.DisplayName, in.DIDSecret, in.Now,
	)

	link, err := scanPgLink(op, row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Link{}, ConflictError{Op: op, Field: field}
		}
		return Link{}, err
	}
	return link, nil
}

// ---- helpers ----

func scanPgLink(op string, row pgx.Row) (Link, error) {
	var (
		out       Link
		accountID *int64
	)
	err := row.Scan(
		&out.ID,
		&out.DID,
		&accountID,
		&out.DisplayName,
		&out.DIDSecret,
		&out.CreatedAt,
		&out.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, OpError{Op: op, Kind: ErrNotFound}
		}
		if _, ok := pgClassifyUniqueViolation(err); ok {
			return Link{}, err
		}
		return Link{}, unavailable(op, err)
	}
	if accountID != nil {
		out.AccountID = AccountID(*accountID)
	}
	return out, nil
}

func accountParam(id AccountID) any {
	if !id.IsSet() {
		return nil
	}
	return int64(id)
}

// PgIdentIsValid checks if a string is a safe Postgres identifier.
func PgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_links_account_id", strings.Contains(c, "account"):
		return "account_id", true
	case c == "uq_links_did", strings.Contains(c, "did"):
		return "did", true
	default:
		return "unique", true
	}
}
