package token

import "errors"

// Public, stable errors for callers.
var (
	ErrProofKeyMissing = errors.New("proof key missing")
	ErrProofMalformed  = errors.New("proof malformed")
	ErrProofMismatch   = errors.New("proof mismatch")
)
