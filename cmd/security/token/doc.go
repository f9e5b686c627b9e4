// Package token provides the keyed digests used by the SSO endpoints.
//
//   - DID proofs: hex HMAC-SHA256(did) keyed with the shared secret. The
//     Blockstack-side module computes the same value once the secret is stored,
//     which lets the login and link endpoints check that a DID was presented by
//     the paired client.
//   - Fingerprints: short SHA-256 digests so logs can correlate a DID without
//     carrying it verbatim.
//
// All comparisons are constant time.
package token
