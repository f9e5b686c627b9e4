package authapi

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"time"

	"bsso/cmd/identity"
	"bsso/cmd/security/token"
)

// Audit events go to the structured log. DIDs are fingerprinted, usernames
// are kept (they are what an operator searches by), secrets never appear.

func (h *Handler) auditLoginSuccess(ctx context.Context, id identity.AccountID, did string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "sso.login.success", ip, ua,
		slog.Int64("account_id", int64(id)),
		slog.String("did_fp", token.Fingerprint(did)),
	)
}

func (h *Handler) auditLoginNeedsLink(ctx context.Context, did string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "sso.login.needs_link", ip, ua,
		slog.String("did_fp", token.Fingerprint(did)),
	)
}

func (h *Handler) auditProofFailed(ctx context.Context, did string, ip net.IP, ua string, reason string) {
	h.audit(ctx, slog.LevelWarn, "sso.proof.failed", ip, ua,
		slog.String("did_fp", token.Fingerprint(did)),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLinkSuccess(ctx context.Context, id identity.AccountID, did string, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "sso.link.success", ip, ua,
		slog.Int64("account_id", int64(id)),
		slog.String("did_fp", token.Fingerprint(did)),
	)
}

func (h *Handler) auditLinkFailed(ctx context.Context, username, did string, ip net.IP, ua string, reason string) {
	h.audit(ctx, slog.LevelWarn, "sso.link.failed", ip, ua,
		slog.String("username", strings.TrimSpace(username)),
		slog.String("did_fp", token.Fingerprint(did)),
		slog.String("reason", reason),
	)
}

func (h *Handler) auditLinkRateLimited(ctx context.Context, username string, ip net.IP, ua string, retryAfter time.Duration) {
	h.audit(ctx, slog.LevelWarn, "sso.link.rate_limited", ip, ua,
		slog.String("username", strings.TrimSpace(username)),
		slog.Int64("retry_after_s", int64(retryAfter.Seconds())),
	)
}

func (h *Handler) auditSecretSet(ctx context.Context, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelInfo, "sso.secret.set", ip, ua)
}

func (h *Handler) auditSecretAlreadySet(ctx context.Context, ip net.IP, ua string) {
	h.audit(ctx, slog.LevelWarn, "sso.secret.set.already", ip, ua)
}

func (h *Handler) audit(ctx context.Context, level slog.Level, action string, ip net.IP, ua string, attrs ...slog.Attr) {
	if h == nil || h.log == nil {
		return
	}
	base := []slog.Attr{slog.String("audit", "1")}
	if ip != nil {
		base = append(base, slog.String("ip", ip.String()))
	}
	if ua = strings.TrimSpace(ua); ua != "" {
		base = append(base, slog.String("user_agent", ua))
	}
	h.log.LogAttrs(ctx, level, action, append(base, attrs...)...)
}
