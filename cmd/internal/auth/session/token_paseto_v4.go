package session

import (
	"strconv"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"bsso/cmd/identity"
	"bsso/cmd/identity/ids"
)

// AccessClaims is the identity envelope carried by an access token.
type AccessClaims struct {
	TokenID   string
	AccountID identity.AccountID
	DID       string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// AccessTokenManager issues and verifies short-lived access tokens.
type AccessTokenManager interface {
	Issue(accountID identity.AccountID, did string, now time.Time) (token string, exp time.Time, err error)
	Verify(token string, now time.Time) (AccessClaims, error)
	PublicKeyHex() string
}

type pasetoV4PublicManager struct {
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration

	secret paseto.V4AsymmetricSecretKey
	public paseto.V4AsymmetricPublicKey
}

// NewPasetoV4PublicManager builds an AccessTokenManager based on PASETO v4.public.
//
// It uses an Ed25519 asymmetric keypair and enforces issuer and expiration rules.
// Clock skew is applied during verification via ValidAt.
func NewPasetoV4PublicManager(cfg Config) (AccessTokenManager, error) {
	if !cfg.HasKey() || cfg.AccessTokenTTL <= 0 {
		return nil, ErrConfig
	}
	secret, err := paseto.NewV4AsymmetricSecretKeyFromHex(cfg.PasetoV4SecretKeyHex)
	if err != nil {
		return nil, ErrConfig
	}

	return &pasetoV4PublicManager{
		issuer:    cfg.Issuer,
		ttl:       cfg.AccessTokenTTL,
		clockSkew: cfg.ClockSkew,
		secret:    secret,
		public:    secret.Public(),
	}, nil
}

func (m *pasetoV4PublicManager) PublicKeyHex() string {
	return m.public.ExportHex()
}

func (m *pasetoV4PublicManager) Issue(accountID identity.AccountID, did string, now time.Time) (string, time.Time, error) {
	if !accountID.IsSet() || strings.TrimSpace(did) == "" {
		return "", time.Time{}, ErrInvalidToken
	}
	jti, err := ids.NewULID(now)
	if err != nil {
		return "", time.Time{}, err
	}

	exp := now.Add(m.ttl)

	tok := paseto.NewToken()
	tok.SetIssuer(m.issuer)
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(exp)
	tok.SetJti(jti)
	tok.SetSubject(strconv.FormatInt(int64(accountID), 10))
	_ = tok.Set("did", did)

	return tok.V4Sign(m.secret, nil), exp, nil
}

func (m *pasetoV4PublicManager) Verify(token string, now time.Time) (AccessClaims, error) {
	// Validating slightly in the future tolerates "nbf" on skewed clocks.
	// ValidAt also checks "exp", against now rather than the wall clock.
	validNow := now.Add(m.clockSkew)

	// Fresh parser per call so rules do not accumulate.
	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(m.issuer))
	p.AddRule(paseto.ValidAt(validNow))

	parsed, err := p.ParseV4Public(m.public, token, nil)
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}

	iss, _ := parsed.GetIssuer()
	exp, _ := parsed.GetExpiration()
	iat, _ := parsed.GetIssuedAt()

	sub, err := parsed.GetSubject()
	if err != nil {
		return AccessClaims{}, ErrInvalidToken
	}
	aid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || !identity.AccountID(aid).IsSet() {
		return AccessClaims{}, ErrInvalidToken
	}
	did, err := parsed.GetString("did")
	if err != nil || did == "" {
		return AccessClaims{}, ErrInvalidToken
	}
	jti, err := parsed.GetJti()
	if err != nil || !ids.Valid(jti) {
		return AccessClaims{}, ErrInvalidToken
	}

	return AccessClaims{
		TokenID:   jti,
		AccountID: identity.AccountID(aid),
		DID:       did,
		ExpiresAt: exp,
		IssuedAt:  iat,
		Issuer:    iss,
	}, nil
}
