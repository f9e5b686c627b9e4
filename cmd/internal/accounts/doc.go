// Package accounts is the host account directory the manual link form
// authenticates against.
//
// The SSO layer only needs two things from the host: check a username and
// password, and tell whether an account id still exists. FileDirectory serves
// both from a YAML file of Argon2id hashes:
//
//	accounts:
//	  - id: 1
//	    username: alice
//	    display_name: Alice
//	    password_hash: $argon2id$v=19$m=65536,t=3,p=2$...$...
//
// Hashes are produced with `bsso hash-password`.
package accounts
