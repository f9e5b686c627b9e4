package accounts

import (
	"context"
	"errors"

	"bsso/cmd/identity"
)

// Public, stable errors for callers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
)

// Account is the subset of a host account visible to the SSO layer.
type Account struct {
	ID          identity.AccountID
	Username    string
	DisplayName string
	Disabled    bool
}

// Directory authenticates host accounts.
type Directory interface {
	// Authenticate returns ErrInvalidCredentials for an unknown username or a
	// wrong password, and ErrAccountDisabled for a disabled account with the
	// right password.
	Authenticate(ctx context.Context, username, password string) (Account, error)

	// Exists reports whether id names an enabled account.
	Exists(ctx context.Context, id identity.AccountID) (bool, error)
}
