package sso

import "errors"

// Public, stable errors for callers.
var (
	ErrSecretNotSet         = errors.New("shared secret not set")
	ErrInvalidProof         = errors.New("invalid proof")
	ErrAccountAlreadyLinked = errors.New("account already linked to another did")
	ErrDIDAlreadyLinked     = errors.New("did already linked to another account")
)
