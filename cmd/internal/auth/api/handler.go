package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bsso/cmd/identity"
	"bsso/cmd/internal/accounts"
	"bsso/cmd/internal/auth/session"
	"bsso/cmd/internal/sso"

	"github.com/go-chi/chi/v5"
)

// Handler wires the SSO HTTP endpoints to the identity store, the account
// directory and the access token manager.
type Handler struct {
	log *slog.Logger
	cfg Config

	site     sso.SiteConfig
	store    identity.Store
	accounts accounts.Directory
	tokens   session.AccessTokenManager
	metrics  *sso.Metrics
	button   sso.LoginButton

	resolver *sso.Resolver
	linker   *sso.Linker
	proofs   *sso.ProofVerifier
	throttle *linkThrottle

	now func() time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithMetrics records SSO outcomes on m.
func WithMetrics(m *sso.Metrics) HandlerOption {
	return func(h *Handler) {
		if h == nil || m == nil {
			return
		}
		h.metrics = m
	}
}

// WithLoginButton overrides the default sign-in button styling.
func WithLoginButton(b sso.LoginButton) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.button = b
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an SSO Handler.
func NewHandler(
	log *slog.Logger,
	cfg Config,
	site sso.SiteConfig,
	store identity.Store,
	dir accounts.Directory,
	tokens session.AccessTokenManager,
	opts ...HandlerOption,
) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if store == nil {
		return nil, errors.New("authapi: nil store")
	}
	if dir == nil {
		return nil, errors.New("authapi: nil account directory")
	}
	if tokens == nil {
		return nil, errors.New("authapi: nil token manager")
	}
	site, err := site.Normalize()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		site:     site,
		store:    store,
		accounts: dir,
		tokens:   tokens,
		button:   sso.DefaultLoginButton(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	h.resolver = sso.NewResolver(store, h.metrics)
	h.linker = sso.NewLinker(store, dir, h.metrics)
	h.proofs = sso.NewProofVerifier(store, cfg.RequireProof)
	h.throttle = newLinkThrottle(cfg)
	return h, nil
}

// Register wires SSO routes onto r.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}

	// Fetched cross-origin by the Blockstack browser.
	r.Group(func(r chi.Router) {
		r.Use(allowAnyOrigin)
		r.Get("/", h.handleAction)
		r.Get("/sso/manifest", h.handleManifest)
		r.Get("/sso/validate", h.handleValidate)
	})

	r.Get("/sso/check", h.handleCheck)
	r.Get("/sso/form", h.handleForm)
	r.Get("/sso/config", h.handleConfig)
	r.Get("/sso/me", h.handleMe)
	r.Post("/sso/secret", h.handleSecret)
	r.Post("/sso/login", h.handleLogin)
	r.Post("/sso/link", h.handleLink)
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// handleAction serves the query-string entry points (?action=...).
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "blockstack-manifest":
		h.handleManifest(w, r)
	case "blockstack-validate":
		h.handleValidate(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "not found")
	}
}

func (h *Handler) handleManifest(w http.ResponseWriter, _ *http.Request) {
	resp, err := sso.ManifestResponse(sso.BuildManifest(h.site))
	if err != nil {
		h.log.Error("sso.manifest.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "server error")
		return
	}
	if err := resp.Write(w); err != nil {
		h.log.Debug("sso.manifest.write.fail", "err", err)
	}
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	c, err := sso.BuildChallenge(r.Context(), h.store, h.site)
	if err != nil {
		h.writeDomainError(w, "sso.validate", err)
		return
	}
	resp, err := sso.RenderChallenge(c, h.site.AssetsPath)
	if err != nil {
		h.log.Error("sso.validate.render.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "server error")
		return
	}
	if err := resp.Write(w); err != nil {
		h.log.Debug("sso.validate.write.fail", "err", err)
	}
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	out, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("did"))
	if err != nil {
		h.writeDomainError(w, "sso.check", err)
		return
	}

	var resp checkResponse
	if out.Kind == sso.Linked {
		id := int64(out.AccountID)
		resp.ID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	did := strings.TrimSpace(r.URL.Query().Get("did"))
	if did != "" {
		norm, err := identity.NormalizeDID(did)
		if err != nil {
			h.writeDomainError(w, "sso.form", err)
			return
		}
		did = norm
	}
	writeJSON(w, http.StatusOK, h.form(did))
}

func (h *Handler) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{ManifestURL: h.site.ManifestURL()})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	tok := bearerToken(r)
	if tok == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	claims, err := h.tokens.Verify(tok, h.now())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		AccountID: int64(claims.AccountID),
		DID:       claims.DID,
		ExpiresAt: claims.ExpiresAt,
	})
}

func (h *Handler) handleSecret(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	var req secretRequest
	if err := decodeRequest(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	err := h.store.SetSecretOnce(ctx, req.Secret)
	switch {
	case err == nil:
		h.metrics.SecretSet("set")
		h.auditSecretSet(ctx, ip, ua)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
	case identity.IsAlreadySet(err):
		h.metrics.SecretSet("already_set")
		h.auditSecretAlreadySet(ctx, ip, ua)
		writeError(w, http.StatusConflict, "secret_already_set", "secret already set")
	case identity.IsInvalidInput(err):
		h.metrics.SecretSet("invalid")
		h.writeDomainError(w, "sso.secret", err)
	default:
		h.metrics.SecretSet("error")
		h.writeDomainError(w, "sso.secret", err)
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ua := r.UserAgent()

	var req loginRequest
	if err := decodeRequest(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	did, err := identity.NormalizeDID(req.DID)
	if err != nil {
		h.writeDomainError(w, "sso.login", err)
		return
	}
	if err := h.proofs.Verify(ctx, did, req.Proof); err != nil {
		h.auditProofFailed(ctx, did, ip, ua, proofReason(err))
		h.writeDomainError(w, "sso.login", err)
		return
	}

	out, err := h.resolver.Resolve(ctx, did)
	if err != nil {
		h.writeDomainError(w, "sso.login", err)
		return
	}

	if out.Kind == sso.Linked {
		ok, err := h.accounts.Exists(ctx, out.AccountID)
		if err != nil {
			h.writeDomainError(w, "sso.login", err)
			return
		}
		if ok {
			h.auditLoginSuccess(ctx, out.AccountID, did, ip, ua)
			h.writeAuthenticated(w, out.AccountID, did)
			return
		}
		h.log.Warn("sso.login.account_missing", "account_id", int64(out.AccountID))
	}

	h.auditLoginNeedsLink(ctx, did, ip, ua)
	form := h.form(did)
	writeJSON(w, http.StatusOK, loginResponse{
		Status: statusNeedsLink,
		DID:    did,
		Form:   &form,
	})
}

func (h *Handler) handleLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ip := clientIP(r, h.cfg.TrustProxy)
	ipKey := ipString(ip)
	ua := r.UserAgent()
	now := h.now()

	var req linkRequest
	if err := decodeRequest(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if blocked, retry := h.throttle.check(ipKey, req.Username, now); blocked {
		h.auditLinkRateLimited(ctx, req.Username, ip, ua, retry)
		writeRateLimited(w, retry)
		return
	}

	did, err := identity.NormalizeDID(req.DID)
	if err != nil {
		h.writeDomainError(w, "sso.link", err)
		return
	}
	if err := h.proofs.Verify(ctx, did, req.Proof); err != nil {
		if errors.Is(err, sso.ErrInvalidProof) {
			h.throttle.fail(ipKey, "", now)
		}
		h.auditProofFailed(ctx, did, ip, ua, proofReason(err))
		h.writeDomainError(w, "sso.link", err)
		return
	}

	res, err := h.linker.Link(ctx, sso.LinkRequest{
		DID:         did,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrInvalidCredentials):
			h.throttle.fail(ipKey, req.Username, now)
			h.auditLinkFailed(ctx, req.Username, did, ip, ua, "invalid_credentials")
		case errors.Is(err, accounts.ErrAccountDisabled):
			h.throttle.fail(ipKey, req.Username, now)
			h.auditLinkFailed(ctx, req.Username, did, ip, ua, "account_disabled")
		case errors.Is(err, sso.ErrAccountAlreadyLinked):
			h.auditLinkFailed(ctx, req.Username, did, ip, ua, "account_already_linked")
		case errors.Is(err, sso.ErrDIDAlreadyLinked):
			h.auditLinkFailed(ctx, req.Username, did, ip, ua, "did_already_linked")
		}
		h.writeDomainError(w, "sso.link", err)
		return
	}

	h.throttle.succeed(req.Username)
	h.auditLinkSuccess(ctx, res.Account.ID, did, ip, ua)
	h.writeAuthenticated(w, res.Account.ID, did)
}

func (h *Handler) writeAuthenticated(w http.ResponseWriter, id identity.AccountID, did string) {
	tok, exp, err := h.tokens.Issue(id, did, h.now())
	if err != nil {
		h.log.Error("sso.token.issue.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "server error")
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Status:      statusAuthenticated,
		AccountID:   int64(id),
		AccessToken: tok,
		ExpiresAt:   &exp,
	})
}

func (h *Handler) form(did string) formResponse {
	return formResponse{
		Fields: sso.LinkFormFields(did),
		Button: h.button,
	}
}

// writeDomainError maps identity, sso and account errors onto API errors.
func (h *Handler) writeDomainError(w http.ResponseWriter, event string, err error) {
	switch {
	case identity.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "invalid_request", invalidMessage(err))
	case identity.IsAlreadySet(err):
		writeError(w, http.StatusConflict, "secret_already_set", "secret already set")
	case errors.Is(err, sso.ErrSecretNotSet):
		writeError(w, http.StatusConflict, "secret_not_set", "shared secret not set")
	case errors.Is(err, sso.ErrInvalidProof):
		writeError(w, http.StatusUnauthorized, "invalid_proof", "invalid proof")
	case errors.Is(err, accounts.ErrInvalidCredentials), errors.Is(err, accounts.ErrAccountDisabled):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, sso.ErrAccountAlreadyLinked):
		writeError(w, http.StatusConflict, "account_already_linked", "account is already linked to another Blockstack ID")
	case errors.Is(err, sso.ErrDIDAlreadyLinked):
		writeError(w, http.StatusConflict, "did_already_linked", "Blockstack ID is already linked to another account")
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", "conflict")
	case identity.IsStoreUnavailable(err):
		h.log.Error(event+".store.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "store unavailable")
	default:
		h.log.Error(event+".fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "server error")
	}
}

func invalidMessage(err error) string {
	var op identity.OpError
	if errors.As(err, &op) && op.Msg != "" {
		return op.Msg
	}
	return "invalid request"
}

func proofReason(err error) string {
	switch {
	case errors.Is(err, sso.ErrSecretNotSet):
		return "secret_not_set"
	case errors.Is(err, sso.ErrInvalidProof):
		return "invalid_proof"
	default:
		return "error"
	}
}
