package app

import (
	"errors"

	"bsso/cmd/internal/auth/session"
)

// sessionConfig loads the access token config. Without a configured signing
// key it either fails (RequireSessionKey) or generates an ephemeral one.
func sessionConfig(cfg Config, log Logger) (session.Config, error) {
	sc, err := session.LoadConfigFromEnv()
	if err != nil {
		return session.Config{}, err
	}
	if sc.HasKey() {
		return sc, nil
	}
	if cfg.RequireSessionKey {
		return session.Config{}, errors.New("security policy: BSSO_REQUIRE_SESSION_KEY=true but BSSO_PASETO_V4_SECRET_KEY_HEX is missing")
	}
	log.Warn("session.key.ephemeral", "hint", "set BSSO_PASETO_V4_SECRET_KEY_HEX; issued tokens stop verifying after restart")
	return sc.WithGeneratedKey(), nil
}
