// ABOUTME: Startup sequence restoring the session or falling back to the cached profile
// ABOUTME: Runs under a fixed deadline so the loading state always resolves

package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/store"
)

// State is the outcome of Bootstrap
type State int

const (
	// StateSignedOut means no refresh token was stored
	StateSignedOut State = iota
	// StateAuthenticated means the session was refreshed and the profile loaded
	StateAuthenticated
	// StateOfflineCached means the network is down and the cached profile is shown
	StateOfflineCached
	// StateOfflineNoData means the network is down and nothing is cached
	StateOfflineNoData
	// StateSessionExpired means the refresh failed and the session was cleared
	StateSessionExpired
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "signed-out"
	case StateAuthenticated:
		return "authenticated"
	case StateOfflineCached:
		return "offline-cached"
	case StateOfflineNoData:
		return "offline-no-data"
	case StateSessionExpired:
		return "session-expired"
	default:
		return "unknown"
	}
}

// Offline reports whether the state came from the offline path
func (s State) Offline() bool {
	return s == StateOfflineCached || s == StateOfflineNoData
}

// BootstrapResult is what the UI shows once loading ends
type BootstrapResult struct {
	State State
	User  *client.User
}

// Bootstrap restores the session at startup. onCached, if set, receives the
// cached profile before any network activity so the UI can show it at once.
// When the probe reports no connectivity no network call is made.
func (m *Manager) Bootstrap(ctx context.Context, onCached func(*client.User)) (BootstrapResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.BootstrapTimeout)
	defer cancel()

	cached := m.cachedUser(ctx)
	if cached != nil {
		m.mu.Lock()
		m.user = cached
		m.mu.Unlock()
		if onCached != nil {
			onCached(cached)
		}
	}

	if m.opts.Prober != nil && !m.opts.Prober.Reachable(ctx) {
		if cached != nil {
			slog.Info("Offline at startup, using cached profile", "user", cached.Email)
			return BootstrapResult{State: StateOfflineCached, User: cached}, nil
		}
		slog.Info("Offline at startup with no cached profile")
		return BootstrapResult{State: StateOfflineNoData}, nil
	}

	refreshToken, err := m.store.Get(ctx, store.KeyRefreshToken)
	if errors.Is(err, store.ErrNotFound) || (err == nil && refreshToken == "") {
		if err := m.clearLocal(ctx); err != nil {
			return BootstrapResult{State: StateSignedOut}, err
		}
		return BootstrapResult{State: StateSignedOut}, nil
	}
	if err != nil {
		return BootstrapResult{State: StateSignedOut}, err
	}

	pair, err := m.auth.Refresh(ctx, refreshToken)
	if err == nil && pair.AccessToken == "" {
		err = errors.New("refresh response has no access token")
	}
	if err != nil {
		m.expire(ctx, err)
		return BootstrapResult{State: StateSessionExpired}, nil
	}
	m.storeTokens(ctx, pair)

	user, err := m.auth.CurrentUser(ctx, pair.AccessToken)
	if err != nil {
		slog.Warn("Failed to load profile after refresh", "error", err)
		return BootstrapResult{State: StateAuthenticated, User: cached}, err
	}
	if err := m.SetUser(ctx, user); err != nil {
		slog.Warn("Failed to cache profile", "error", err)
	}
	return BootstrapResult{State: StateAuthenticated, User: m.CurrentUser()}, nil
}
