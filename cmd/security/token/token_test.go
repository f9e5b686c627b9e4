package token

import (
	"errors"
	"strings"
	"testing"
)

func TestHashHMACSHA256Hex_KnownVector(t *testing.T) {
	// RFC 4231 test case 2.
	got := HashHMACSHA256Hex("what do ya want for nothing?", []byte("Jefe"))
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Fatalf("hmac mismatch: got %s want %s", got, want)
	}
}

func TestDIDProof_RoundTrip(t *testing.T) {
	did := "did:btc-addr:1PgDBPxWJ9uYWRWpyr4ESHkmqEfcEKVKcV"

	proof, err := DIDProof("s3cret", did)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if len(proof) != ProofHexLen {
		t.Fatalf("expected proof len=%d got=%d", ProofHexLen, len(proof))
	}
	if err := VerifyDIDProof("s3cret", did, proof); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyDIDProof("s3cret", did, strings.ToUpper(proof)); err != nil {
		t.Fatalf("verify upper-case: %v", err)
	}
}

func TestVerifyDIDProof_Failures(t *testing.T) {
	did := "did:btc-addr:1A"
	proof, _ := DIDProof("s3cret", did)

	cases := []struct {
		name   string
		secret string
		did    string
		proof  string
		want   error
	}{
		{"no secret", "", did, proof, ErrProofKeyMissing},
		{"empty proof", "s3cret", did, "", ErrProofMalformed},
		{"not hex", "s3cret", did, strings.Repeat("z", ProofHexLen), ErrProofMalformed},
		{"other did", "s3cret", "did:btc-addr:1B", proof, ErrProofMismatch},
		{"other secret", "other", did, proof, ErrProofMismatch},
	}
	for _, tc := range cases {
		if err := VerifyDIDProof(tc.secret, tc.did, tc.proof); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("") != "" {
		t.Fatalf("expected empty fingerprint for empty input")
	}
	a := Fingerprint("did:btc-addr:1A")
	if len(a) != fingerprintLen {
		t.Fatalf("expected len=%d got=%d", fingerprintLen, len(a))
	}
	if a != Fingerprint("did:btc-addr:1A") {
		t.Fatalf("fingerprint not stable")
	}
	if a == Fingerprint("did:btc-addr:1B") {
		t.Fatalf("fingerprints collide")
	}
}

func TestEqual(t *testing.T) {
	if !Equal("abc", "abc") || Equal("abc", "abd") || Equal("abc", "ab") {
		t.Fatalf("unexpected Equal result")
	}
}
