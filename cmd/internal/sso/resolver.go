package sso

import (
	"context"

	"bsso/cmd/identity"
)

// OutcomeKind is the terminal state of one resolution.
type OutcomeKind int

const (
	// NeedsManualLink: no linked account; the caller falls back to credentials + link.
	NeedsManualLink OutcomeKind = iota
	// Linked: the DID belongs to Outcome.AccountID.
	Linked
)

func (k OutcomeKind) String() string {
	if k == Linked {
		return "linked"
	}
	return "needs_link"
}

// Outcome is the result of Resolve.
type Outcome struct {
	Kind      OutcomeKind
	DID       string // normalized
	AccountID identity.AccountID
}

// Resolver is the authentication gate: DID in, account (or not) out.
type Resolver struct {
	links   identity.LinkRegistry
	metrics *Metrics
}

// NewResolver constructs a Resolver. metrics may be nil.
func NewResolver(links identity.LinkRegistry, metrics *Metrics) *Resolver {
	return &Resolver{links: links, metrics: metrics}
}

// Resolve looks did up. A malformed DID fails with identity.ErrInvalidInput
// before the store is touched; a lookup miss (or a row without an account) is
// NeedsManualLink, not an error.
func (r *Resolver) Resolve(ctx context.Context, did string) (Outcome, error) {
	norm, err := identity.NormalizeDID(did)
	if err != nil {
		r.metrics.Resolve("invalid")
		return Outcome{}, err
	}

	l, err := r.links.FindByDID(ctx, norm)
	switch {
	case identity.IsNotFound(err):
		r.metrics.Resolve(NeedsManualLink.String())
		return Outcome{Kind: NeedsManualLink, DID: norm}, nil
	case err != nil:
		r.metrics.Resolve("error")
		return Outcome{}, err
	case !l.IsLinked():
		r.metrics.Resolve(NeedsManualLink.String())
		return Outcome{Kind: NeedsManualLink, DID: norm}, nil
	}

	r.metrics.Resolve(Linked.String())
	return Outcome{Kind: Linked, DID: norm, AccountID: l.AccountID}, nil
}

// LinkForAccount returns the link holding id, or a blank link carrying only
// the account id when the account is not linked yet.
func LinkForAccount(ctx context.Context, links identity.LinkRegistry, id identity.AccountID) (identity.Link, error) {
	l, err := links.FindByAccountID(ctx, id)
	if identity.IsNotFound(err) {
		return identity.Link{AccountID: id}, nil
	}
	if err != nil {
		return identity.Link{}, err
	}
	return l, nil
}
