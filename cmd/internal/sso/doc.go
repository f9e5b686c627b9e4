// Package sso implements the Blockstack sign-in linkage: the wallet-facing
// manifest and validation page, DID resolution, proof checks and the manual
// link step.
//
// Nothing here touches HTTP routing or account storage directly. Handlers in
// authapi call into it with explicit SiteConfig values and store interfaces.
package sso
