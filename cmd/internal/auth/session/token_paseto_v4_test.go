package session

import (
	"testing"
	"time"

	paseto "aidanwoods.dev/go-paseto"
)

func newTestManager(t *testing.T) AccessTokenManager {
	t.Helper()
	cfg := DefaultConfig()
	cfg.PasetoV4SecretKeyHex = paseto.NewV4AsymmetricSecretKey().ExportHex()

	mgr, err := NewPasetoV4PublicManager(cfg)
	if err != nil {
		t.Fatalf("NewPasetoV4PublicManager: %v", err)
	}
	return mgr
}

func TestPasetoV4_IssueAndVerify(t *testing.T) {
	mgr := newTestManager(t)

	now := time.Now().UTC()
	tok, exp, err := mgr.Issue(42, "did:btc-addr:1A", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !exp.After(now) {
		t.Fatalf("expected exp after now")
	}

	claims, err := mgr.Verify(tok, now.Add(1*time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.AccountID != 42 || claims.DID != "did:btc-addr:1A" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenID == "" || claims.Issuer != "bsso" {
		t.Fatalf("missing claims: %+v", claims)
	}
}

func TestPasetoV4_Verify_Expired(t *testing.T) {
	mgr := newTestManager(t)

	now := time.Now().UTC()
	tok, _, err := mgr.Issue(1, "did:btc-addr:1A", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Verify(tok, now.Add(time.Hour)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestPasetoV4_Verify_UsesGivenClock(t *testing.T) {
	mgr := newTestManager(t)

	past := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	tok, exp, err := mgr.Issue(7, "did:btc-addr:1A", past)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := mgr.Verify(tok, past.Add(time.Second)); err != nil {
		t.Fatalf("Verify at issue-time clock: %v", err)
	}
	if _, err := mgr.Verify(tok, exp.Add(time.Minute)); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken after exp, got %v", err)
	}
}

func TestPasetoV4_Verify_OtherKey(t *testing.T) {
	a := newTestManager(t)
	b := newTestManager(t)

	now := time.Now().UTC()
	tok, _, err := a.Issue(1, "did:btc-addr:1A", now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Verify(tok, now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := a.Verify("v4.public.garbage", now); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestPasetoV4_Issue_RequiresAccountAndDID(t *testing.T) {
	mgr := newTestManager(t)
	now := time.Now().UTC()

	if _, _, err := mgr.Issue(0, "did:btc-addr:1A", now); err == nil {
		t.Fatalf("expected error for unset account")
	}
	if _, _, err := mgr.Issue(1, " ", now); err == nil {
		t.Fatalf("expected error for empty did")
	}
}
