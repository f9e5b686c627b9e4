package identity

import (
	"context"
	"sync"
)

// InMemoryStore is a dev-only fallback when no database is configured.
// A single mutex stands in for the database's row-level atomicity; state is
// lost on restart and not shared between processes.
type InMemoryStore struct {
	mu sync.Mutex

	secret    *SharedSecret
	byDID     map[string]Link
	byAccount map[AccountID]string // account id -> did
}

// NewInMemoryStore constructs an empty in-memory Store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byDID:     make(map[string]Link),
		byAccount: make(map[AccountID]string),
	}
}

// Ping always succeeds.
func (s *InMemoryStore) Ping(_ context.Context) error { return nil }

// Close closes the store (noop for in-memory).
func (s *InMemoryStore) Close() error { return nil }

// GetOrCreateSalt returns the singleton salt, creating it on first use.
func (s *InMemoryStore) GetOrCreateSalt(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret == nil {
		salt, err := NewSaltHex()
		if err != nil {
			return "", false, err
		}
		s.secret = &SharedSecret{Salt: salt}
	}
	return s.secret.Salt, s.secret.IsSet(), nil
}

// SetSecretOnce stores the secret if none is stored yet.
func (s *InMemoryStore) SetSecretOnce(ctx context.Context, secret string) error {
	const op = "identity.SetSecretOnce"

	if err := ValidateSecret(secret); err != nil {
		return err
	}
	if _, _, err := s.GetOrCreateSalt(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret.IsSet() {
		return alreadySet(op)
	}
	s.secret.Secret = secret
	return nil
}

// SharedSecret returns the stored pair, or ErrNotFound before the first salt read.
func (s *InMemoryStore) SharedSecret(_ context.Context) (SharedSecret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.secret == nil {
		return SharedSecret{}, OpError{Op: "identity.SharedSecret", Kind: ErrNotFound, Msg: "no salt row"}
	}
	return *s.secret, nil
}

// FindByDID looks a link up by exact DID.
func (s *InMemoryStore) FindByDID(ctx context.Context, did string) (Link, error) {
	did, err := NormalizeDID(did)
	if err != nil {
		return Link{}, err
	}
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byDID[did]
	if !ok {
		return Link{}, OpError{Op: "identity.FindByDID", Kind: ErrNotFound}
	}
	return cloneLink(l), nil
}

// FindByAccountID looks a link up by account id.
func (s *InMemoryStore) FindByAccountID(ctx context.Context, id AccountID) (Link, error) {
	const op = "identity.FindByAccountID"

	if !id.IsSet() {
		return Link{}, invalid(op, "account id must be positive")
	}
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	did, ok := s.byAccount[id]
	if !ok {
		return Link{}, OpError{Op: op, Kind: ErrNotFound}
	}
	return cloneLink(s.byDID[did]), nil
}

// UpsertLink inserts or updates the link for in.DID.
func (s *InMemoryStore) UpsertLink(ctx context.Context, in UpsertLinkInput) (Link, error) {
	const op = "identity.UpsertLink"

	in, err := validateUpsert(op, in)
	if err != nil {
		return Link{}, err
	}
	if err := ctx.Err(); err != nil {
		return Link{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.AccountID.IsSet() {
		if owner, ok := s.byAccount[in.AccountID]; ok && owner != in.DID {
			return Link{}, ConflictError{Op: op, Field: "account_id"}
		}
	}

	l, exists := s.byDID[in.DID]
	if !exists {
		id, err := NewULID(in.Now)
		if err != nil {
			return Link{}, err
		}
		l = Link{ID: id, DID: in.DID, CreatedAt: in.Now}
	}
	if l.AccountID.IsSet() && l.AccountID != in.AccountID {
		delete(s.byAccount, l.AccountID)
	}

	l.AccountID = in.AccountID
	l.DisplayName = in.DisplayName
	l.DIDSecret = in.DIDSecret
	l.UpdatedAt = in.Now

	s.byDID[in.DID] = l
	if l.AccountID.IsSet() {
		s.byAccount[l.AccountID] = in.DID
	}
	return cloneLink(l), nil
}

func cloneLink(l Link) Link {
	if l.DisplayName != nil {
		v := *l.DisplayName
		l.DisplayName = &v
	}
	if l.DIDSecret != nil {
		v := *l.DIDSecret
		l.DIDSecret = &v
	}
	return l
}
