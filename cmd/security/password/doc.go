// Package password hashes and verifies the host account passwords that the
// manual link form accepts.
//
// Hashes use Argon2id in the PHC string format
// ($argon2id$v=19$m=..,t=..,p=..$salt$key). Encoded hashes are untrusted input:
// Verify refuses parameters far above the configured cost so a tampered
// accounts file cannot pin the CPU. VerifyDummy burns one verification against
// a fixed hash so unknown usernames cost the same as wrong passwords.
package password
