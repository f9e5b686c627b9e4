// Package session issues the access tokens handed out after a DID resolves to
// a host account.
//
// Tokens are PASETO v4.public, short-lived and stateless: the host verifies
// them with PublicKeyHex and never calls back. Each token carries the account
// id, the DID it was resolved from and a ULID token id for audit correlation.
package session
