// ABOUTME: Wires configuration, local store, session manager, and API clients
// ABOUTME: Shared by every command that talks to the portal

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/config"
	"github.com/markalston/fntc-portal/internal/logger"
	"github.com/markalston/fntc-portal/internal/session"
	"github.com/markalston/fntc-portal/internal/store"
)

var errNotSignedIn = errors.New("not signed in, run `fntc login` first")

// app holds the long-lived collaborators of one command invocation
type app struct {
	cfg     *config.Config
	store   store.Store
	prefs   *store.Prefs
	vault   *store.Vault
	session *session.Manager

	// auth talks to the portal without the session decorator; the session
	// manager itself uses it for refresh and logout
	auth *client.Client
	// api attaches the access token and refreshes once on 401
	api *client.Client
}

type appOptions struct {
	// logTo receives log output; nil means stderr
	logTo io.Writer
}

func buildApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if opts.logTo == nil {
		opts.logTo = os.Stderr
	}
	logger.Init(opts.logTo, cfg.Log.Level, cfg.Log.Format)

	s, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	a := &app{
		cfg:   cfg,
		store: s,
		prefs: store.NewPrefs(s),
		vault: store.NewVault(s, cfg.Dir),
		auth:  client.New(cfg.APIURL, client.WithTimeout(cfg.RequestTimeout)),
	}
	a.session = session.NewManager(s, a.auth, session.Options{
		Prober:           client.NewTCPProbe(cfg.APIURL, 3*time.Second),
		BootstrapTimeout: cfg.BootstrapTimeout,
		RefreshTimeout:   cfg.RequestTimeout,
		OnExpired: func() {
			slog.Warn("Session expired, local credentials cleared")
		},
	})
	a.api = client.New(cfg.APIURL,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithTransport(a.session.RoundTripper(http.DefaultTransport)),
	)

	slog.Debug("App initialized", "api_url", cfg.APIURL, "store", cfg.Store.Driver)
	return a, nil
}

// Close releases the local store
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close local store", "error", err)
	}
}

// requireSession fails fast when no access token is stored
func (a *app) requireSession(ctx context.Context) error {
	if a.session.AccessToken(ctx) == "" {
		return errNotSignedIn
	}
	return nil
}

// withApp builds the app, runs fn, and closes it
func withApp(ctx context.Context, w io.Writer, fn func(a *app) int) int {
	a, err := buildApp(ctx, appOptions{})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()
	return fn(a)
}

// withSession is withApp for commands that need a signed-in user
func withSession(ctx context.Context, w io.Writer, fn func(a *app) int) int {
	return withApp(ctx, w, func(a *app) int {
		if err := a.requireSession(ctx); err != nil {
			return reportError(w, err)
		}
		return fn(a)
	})
}
