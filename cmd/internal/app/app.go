// Package app wires the bsso server runtime: config, logging, store selection,
// migrations, HTTP routes and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bsso/cmd/internal/accounts"
	authapi "bsso/cmd/internal/auth/api"
	"bsso/cmd/internal/auth/session"
	"bsso/cmd/internal/sso"
	"bsso/cmd/security/password"
)

// App is the bsso server runtime: it owns the store and the HTTP server wiring.
type App struct {
	cfg Config
	log Logger

	store   storeHandle
	handler http.Handler
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}

	sessCfg, err := sessionConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	tokens, err := session.NewPasetoV4PublicManager(sessCfg)
	if err != nil {
		return nil, err
	}

	dir, err := loadAccounts(cfg, log)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	reg := newRegistry()
	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), LoadSiteConfig(), st.store, dir, tokens,
		authapi.WithMetrics(sso.NewMetrics(reg)),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		log:     log,
		store:   st,
		handler: newRouter(log, cfg, reg, newHTTPMetrics(reg), st.store, st.persistent(), auth),
	}, nil
}

// LoadSiteConfig reads the site identity served in the manifest and the validation page.
func LoadSiteConfig() sso.SiteConfig {
	def := sso.DefaultSiteConfig()
	return sso.SiteConfig{
		Name:        EnvString("BSSO_SITE_NAME", def.Name),
		URL:         EnvString("BSSO_SITE_URL", def.URL),
		Description: EnvString("BSSO_SITE_DESCRIPTION", def.Description),
		LogoURL:     EnvString("BSSO_SITE_LOGO", def.LogoURL),
		AssetsPath:  EnvString("BSSO_ASSETS_PATH", def.AssetsPath),
		LoginPath:   EnvString("BSSO_LOGIN_PATH", def.LoginPath),
	}
}

func loadAccounts(cfg Config, log Logger) (accounts.Directory, error) {
	pw, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.AccountsFile == "" {
		log.Warn("accounts.file.missing", "hint", "set BSSO_ACCOUNTS_FILE; manual linking is impossible without accounts")
		dir, err := accounts.Parse([]byte("accounts: []\n"), pw)
		if err != nil {
			return nil, err
		}
		return dir, nil
	}
	dir, err := accounts.LoadFile(cfg.AccountsFile, pw)
	if err != nil {
		return nil, err
	}
	log.Info("accounts.file.loaded", "path", cfg.AccountsFile, "accounts", dir.Len())
	return dir, nil
}

// Handler exposes the root HTTP handler (tests, embedding).
func (a *App) Handler() http.Handler { return a.handler }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "store", a.store.kind)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return fmt.Errorf("listen: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
