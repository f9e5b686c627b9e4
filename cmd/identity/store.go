package identity

import (
	"context"
	"strings"
	"time"
)

// AccountID is an opaque reference to an account owned by the host application.
// The zero value means "unset": the link exists but no account is attached yet.
type AccountID int64

// IsSet reports whether the id refers to an account.
func (id AccountID) IsSet() bool { return id > 0 }

// SharedSecretName is the well-known key of the singleton shared secret row.
const SharedSecretName = "default"

// SharedSecret is the singleton salt/secret pair. Secret is empty until the
// first successful SetSecretOnce and immutable afterwards.
type SharedSecret struct {
	Salt   string
	Secret string
}

// IsSet reports whether the secret half has been stored.
func (s SharedSecret) IsSet() bool { return s.Secret != "" }

// encode renders the stored "<salt>:<secret>" form.
func (s SharedSecret) encode() string { return s.Salt + ":" + s.Secret }

// decodeSharedSecret splits the stored form at the first ':'.
func decodeSharedSecret(v string) SharedSecret {
	salt, secret, _ := strings.Cut(v, ":")
	return SharedSecret{Salt: salt, Secret: secret}
}

// Link is the persisted association between a DID and a host account.
// DIDSecret is optional per-DID secret material kept as an extension point;
// nothing in this module interprets it.
type Link struct {
	ID          string
	DID         string
	AccountID   AccountID
	DisplayName *string
	DIDSecret   *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLinked reports whether the link points at an account.
func (l Link) IsLinked() bool { return l.AccountID.IsSet() }

// UpsertLinkInput carries the mutable fields of a link keyed by DID.
type UpsertLinkInput struct {
	DID         string
	AccountID   AccountID
	DisplayName *string
	DIDSecret   *string
	Now         time.Time
}

// SecretStore persists the singleton shared secret.
type SecretStore interface {
	// GetOrCreateSalt returns the current salt and whether a secret is stored.
	// The first caller creates the row; concurrent first callers all observe the same salt.
	GetOrCreateSalt(ctx context.Context) (salt string, secretPresent bool, err error)

	// SetSecretOnce stores the secret if none is stored yet, otherwise returns ErrAlreadySet
	// and leaves the stored value untouched.
	SetSecretOnce(ctx context.Context, secret string) error

	// SharedSecret returns the full pair for server-side proof checks. It never creates the row.
	SharedSecret(ctx context.Context) (SharedSecret, error)
}

// LinkRegistry persists DID -> account links.
type LinkRegistry interface {
	// FindByDID returns ErrNotFound when no row matches.
	FindByDID(ctx context.Context, did string) (Link, error)

	// FindByAccountID returns ErrNotFound when the account is not linked.
	FindByAccountID(ctx context.Context, id AccountID) (Link, error)

	// UpsertLink inserts or updates the row for in.DID in one atomic statement.
	// Returns ConflictError{Field: "account_id"} when the account is linked to another DID.
	UpsertLink(ctx context.Context, in UpsertLinkInput) (Link, error)
}

// Store is the full persistence boundary used by the HTTP layer.
type Store interface {
	SecretStore
	LinkRegistry

	Ping(ctx context.Context) error
	Close() error
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}

func validateUpsert(op string, in UpsertLinkInput) (UpsertLinkInput, error) {
	did, err := NormalizeDID(in.DID)
	if err != nil {
		return UpsertLinkInput{}, err
	}
	if in.AccountID < 0 {
		return UpsertLinkInput{}, invalid(op, "negative account id")
	}
	in.DID = did
	in.DisplayName = trimPtr(in.DisplayName)
	in.DIDSecret = trimPtr(in.DIDSecret)
	if in.Now.IsZero() {
		in.Now = time.Now().UTC()
	}
	return in, nil
}
