package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// ProofHexLen is the length of a hex-encoded DID proof.
const ProofHexLen = 2 * sha256.Size

// fingerprintLen is the number of hex chars kept by Fingerprint.
const fingerprintLen = 16

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// Fingerprint returns a short, stable, non-reversible tag for s (for logs).
func Fingerprint(s string) string {
	if s == "" {
		return ""
	}
	return HashSHA256Hex(s)[:fingerprintLen]
}

// DIDProof computes the proof a paired client presents for did.
func DIDProof(secret, did string) (string, error) {
	if secret == "" {
		return "", ErrProofKeyMissing
	}
	return HashHMACSHA256Hex(did, []byte(secret)), nil
}

// VerifyDIDProof checks proof against the expected value for did.
// Hex case is ignored.
func VerifyDIDProof(secret, did, proof string) error {
	want, err := DIDProof(secret, did)
	if err != nil {
		return err
	}

	proof = strings.ToLower(strings.TrimSpace(proof))
	if len(proof) != ProofHexLen {
		return ErrProofMalformed
	}
	if _, err := hex.DecodeString(proof); err != nil {
		return ErrProofMalformed
	}
	if !Equal(want, proof) {
		return ErrProofMismatch
	}
	return nil
}

// Equal compares two strings in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
