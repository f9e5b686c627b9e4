package identity

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxDIDLength    = 256
	maxSecretLength = 256
)

var (
	didMethodRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	didIDRe     = regexp.MustCompile(`^[A-Za-z0-9._:%-]+$`)
)

// NormalizeDID trims surrounding whitespace and validates DID syntax
// (did:<method>:<method-specific-id>). The method-specific id is case sensitive
// and kept as presented.
func NormalizeDID(raw string) (string, error) {
	const op = "identity.NormalizeDID"

	did := strings.TrimSpace(raw)
	if did == "" {
		return "", invalid(op, "empty did")
	}
	if len(did) > maxDIDLength {
		return "", invalid(op, fmt.Sprintf("did longer than %d bytes", maxDIDLength))
	}

	parts := strings.SplitN(did, ":", 3)
	if len(parts) != 3 || parts[0] != "did" {
		return "", invalid(op, "did must look like did:<method>:<id>")
	}
	if !didMethodRe.MatchString(parts[1]) {
		return "", invalid(op, "invalid did method")
	}
	id := parts[2]
	if id == "" || strings.HasSuffix(id, ":") || !didIDRe.MatchString(id) {
		return "", invalid(op, "invalid did method-specific id")
	}
	return did, nil
}

// ValidateSecret checks a client-supplied shared secret before it reaches a store.
// The stored form is "<salt>:<secret>", so ':' is rejected along with whitespace
// and non-printable bytes.
func ValidateSecret(secret string) error {
	const op = "identity.ValidateSecret"

	if secret == "" {
		return invalid(op, "empty secret")
	}
	if len(secret) > maxSecretLength {
		return invalid(op, fmt.Sprintf("secret longer than %d bytes", maxSecretLength))
	}
	for i := 0; i < len(secret); i++ {
		c := secret[i]
		if c <= ' ' || c > '~' || c == ':' {
			return invalid(op, "secret contains a forbidden character")
		}
	}
	return nil
}
