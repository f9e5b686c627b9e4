//go:build ignore

// Package main provides a CI-friendly HTTP smoke test for a running bsso server.
//
// It validates:
//   - health and readiness
//   - manifest and validation page
//   - shared secret bootstrap (or an already set one)
//   - login postback, falling back to the manual link step
//   - bearer token round trip and the DID check endpoint
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"bsso/cmd/security/token"
)

const maxReadBytes = 1 << 20 // 1MiB

type loginResponse struct {
	Status      string `json:"status"`
	AccountID   int64  `json:"account_id"`
	AccessToken string `json:"access_token"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type smoke struct {
	base    string
	client  *http.Client
	verbose bool
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		secret  = flag.String("secret", "smoke-secret", "Shared secret to bootstrap (or the one already stored)")
		did     = flag.String("did", "did:btc-addr:1PgDBPxWJ9uYWRWpyr4ESHkmqEfcEKVKcV", "DID to sign in with")
		user    = flag.String("user", "", "Account username for the manual link step")
		pass    = flag.String("pass", "", "Account password for the manual link step")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	s := &smoke{
		base:    strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{Timeout: *timeout},
		verbose: *verbose,
	}
	ctx := context.Background()

	s.mustStatus(ctx, http.MethodGet, "/healthz", nil, http.StatusOK)
	s.mustStatus(ctx, http.MethodGet, "/readyz", nil, http.StatusOK)

	body := s.mustStatus(ctx, http.MethodGet, "/sso/manifest", nil, http.StatusOK)
	var manifest map[string]any
	if err := json.Unmarshal(body, &manifest); err != nil || manifest["start_url"] == nil {
		fatalf("manifest: unexpected body %q", body)
	}

	body = s.mustStatus(ctx, http.MethodGet, "/sso/validate", nil, http.StatusOK)
	if !bytes.Contains(body, []byte("Blockstack validation page")) {
		fatalf("validate: unexpected page")
	}

	status, body := s.do(ctx, http.MethodPost, "/sso/secret", map[string]string{"secret": *secret})
	switch status {
	case http.StatusNoContent:
		s.logf("secret: created")
	case http.StatusConflict:
		s.logf("secret: already set (%s)", errCode(body))
	default:
		fatalf("secret: status=%d body=%q", status, body)
	}

	proof, err := token.DIDProof(*secret, *did)
	if err != nil {
		fatalf("proof: %v", err)
	}

	lr := s.mustLogin(ctx, "/sso/login", map[string]string{"did": *did, "proof": proof})
	if lr.Status == "needs_link" {
		if *user == "" {
			fatalf("login: DID is not linked; pass -user/-pass to link it")
		}
		lr = s.mustLogin(ctx, "/sso/link", map[string]string{
			"did":      *did,
			"proof":    proof,
			"username": *user,
			"password": *pass,
		})
	}
	if lr.Status != "authenticated" || lr.AccessToken == "" {
		fatalf("login: unexpected response %+v", lr)
	}

	body = s.mustStatusAuth(ctx, "/sso/me", lr.AccessToken, http.StatusOK)
	var me struct {
		AccountID int64 `json:"account_id"`
	}
	if err := json.Unmarshal(body, &me); err != nil || me.AccountID != lr.AccountID {
		fatalf("me: unexpected body %q (want account_id=%d)", body, lr.AccountID)
	}

	body = s.mustStatus(ctx, http.MethodGet, "/sso/check?did="+url.QueryEscape(*did), nil, http.StatusOK)
	var check struct {
		ID *int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &check); err != nil || check.ID == nil || *check.ID != lr.AccountID {
		fatalf("check: unexpected body %q", body)
	}

	fmt.Printf("OK: did=%s account_id=%d\n", *did, lr.AccountID)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func (s *smoke) mustLogin(ctx context.Context, path string, req any) loginResponse {
	body := s.mustStatus(ctx, http.MethodPost, path, req, http.StatusOK)
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		fatalf("%s: decode: %v", path, err)
	}
	s.logf("%s: status=%s account_id=%d", path, lr.Status, lr.AccountID)
	return lr
}

func (s *smoke) mustStatus(ctx context.Context, method, path string, req any, want int) []byte {
	status, body := s.do(ctx, method, path, req)
	if status != want {
		fatalf("%s %s: status=%d want=%d body=%q", method, path, status, want, body)
	}
	return body
}

func (s *smoke) mustStatusAuth(ctx context.Context, path, bearer string, want int) []byte {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+path, nil)
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	r.Header.Set("Authorization", "Bearer "+bearer)
	status, body := s.send(r)
	if status != want {
		fatalf("GET %s: status=%d want=%d body=%q", path, status, want, body)
	}
	return body
}

func (s *smoke) do(ctx context.Context, method, path string, req any) (int, []byte) {
	var rdr io.Reader
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			fatalf("%s: marshal: %v", path, err)
		}
		rdr = bytes.NewReader(b)
	}
	r, err := http.NewRequestWithContext(ctx, method, s.base+path, rdr)
	if err != nil {
		fatalf("%s: %v", path, err)
	}
	if req != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	return s.send(r)
}

func (s *smoke) send(r *http.Request) (int, []byte) {
	resp, err := s.client.Do(r)
	if err != nil {
		fatalf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadBytes))
	if err != nil {
		fatalf("%s %s: read: %v", r.Method, r.URL.Path, err)
	}
	s.logf("%s %s -> %d", r.Method, r.URL.Path, resp.StatusCode)
	return resp.StatusCode, body
}

func (s *smoke) logf(format string, args ...any) {
	if s.verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func errCode(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Code
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
