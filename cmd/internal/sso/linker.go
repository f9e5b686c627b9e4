package sso

import (
	"context"
	"strings"
	"time"

	"bsso/cmd/identity"
	"bsso/cmd/internal/accounts"
)

// LinkRequest is the manual link postback after credential login.
type LinkRequest struct {
	DID         string
	Username    string
	Password    string
	DisplayName string
}

// LinkResult is a completed link.
type LinkResult struct {
	Link    identity.Link
	Account accounts.Account
}

// Linker performs the explicit link step: authenticate the host account, then
// bind the DID to it. This is the only place links are created.
type Linker struct {
	links    identity.LinkRegistry
	accounts accounts.Directory
	metrics  *Metrics
	now      func() time.Time
}

// NewLinker constructs a Linker. metrics may be nil.
func NewLinker(links identity.LinkRegistry, dir accounts.Directory, metrics *Metrics) *Linker {
	return &Linker{
		links:    links,
		accounts: dir,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Link returns identity.ErrInvalidInput for a malformed DID,
// accounts.ErrInvalidCredentials / ErrAccountDisabled from the directory and
// ErrAccountAlreadyLinked when the account already holds another DID and
// ErrDIDAlreadyLinked when the DID belongs to another account.
// Re-linking the same DID to the same account refreshes the display name.
func (k *Linker) Link(ctx context.Context, req LinkRequest) (LinkResult, error) {
	did, err := identity.NormalizeDID(req.DID)
	if err != nil {
		k.metrics.Link("invalid")
		return LinkResult{}, err
	}

	acct, err := k.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		k.metrics.Link("invalid_credentials")
		return LinkResult{}, err
	}

	// A DID bound to an account never moves; only an unbound row may be claimed.
	var didSecret *string
	if existing, err := k.links.FindByDID(ctx, did); err == nil {
		if existing.AccountID.IsSet() && existing.AccountID != acct.ID {
			k.metrics.Link("did_already_linked")
			return LinkResult{}, ErrDIDAlreadyLinked
		}
		didSecret = existing.DIDSecret
	} else if !identity.IsNotFound(err) {
		k.metrics.Link("error")
		return LinkResult{}, err
	}

	current, err := LinkForAccount(ctx, k.links, acct.ID)
	if err != nil {
		k.metrics.Link("error")
		return LinkResult{}, err
	}
	if current.DID != "" && current.DID != did {
		k.metrics.Link("account_already_linked")
		return LinkResult{}, ErrAccountAlreadyLinked
	}

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = acct.DisplayName
	}

	l, err := k.links.UpsertLink(ctx, identity.UpsertLinkInput{
		DID:         did,
		AccountID:   acct.ID,
		DisplayName: &name,
		DIDSecret:   didSecret,
		Now:         k.now(),
	})
	if err != nil {
		if identity.IsConflict(err) {
			// Lost a race against a concurrent link of the same account.
			k.metrics.Link("account_already_linked")
			return LinkResult{}, ErrAccountAlreadyLinked
		}
		k.metrics.Link("error")
		return LinkResult{}, err
	}

	k.metrics.Link("linked")
	return LinkResult{Link: l, Account: acct}, nil
}
