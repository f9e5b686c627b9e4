package sso

import (
	"context"
	"errors"

	"bsso/cmd/identity"
	"bsso/cmd/security/token"
)

// ProofVerifier checks that a DID was presented by a client holding the shared secret.
type ProofVerifier struct {
	secrets identity.SecretStore
	require bool
}

// NewProofVerifier constructs a verifier. With require=false every proof is accepted.
func NewProofVerifier(secrets identity.SecretStore, require bool) *ProofVerifier {
	return &ProofVerifier{secrets: secrets, require: require}
}

// Required reports whether proofs are enforced.
func (v *ProofVerifier) Required() bool { return v.require }

// Verify returns ErrSecretNotSet before the secret is bootstrapped and
// ErrInvalidProof for a missing or wrong proof. did must already be normalized.
func (v *ProofVerifier) Verify(ctx context.Context, did, proof string) error {
	if !v.require {
		return nil
	}

	ss, err := v.secrets.SharedSecret(ctx)
	if identity.IsNotFound(err) {
		return ErrSecretNotSet
	}
	if err != nil {
		return err
	}
	if !ss.IsSet() {
		return ErrSecretNotSet
	}

	if err := token.VerifyDIDProof(ss.Secret, did, proof); err != nil {
		if errors.Is(err, token.ErrProofKeyMissing) {
			return ErrSecretNotSet
		}
		return ErrInvalidProof
	}
	return nil
}
