// ABOUTME: Session manager owning the access/refresh token pair and cached profile
// ABOUTME: Persists tokens through the local store and coalesces concurrent refreshes

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/store"
)

var (
	// ErrSessionExpired means the session was cleared and the user must sign in again
	ErrSessionExpired = client.ErrSessionExpired
	// ErrNoRefreshToken means no refresh token is persisted
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// AuthAPI is the subset of the portal API the manager calls itself. These
// calls must not go through the manager's own RoundTripper.
type AuthAPI interface {
	Refresh(ctx context.Context, refreshToken string) (*client.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*client.User, error)
}

// Options tunes a Manager
type Options struct {
	// Prober checks connectivity during Bootstrap. Nil assumes online.
	Prober client.Prober
	// BootstrapTimeout bounds the whole Bootstrap sequence. Defaults to 10s.
	BootstrapTimeout time.Duration
	// RefreshTimeout bounds one token refresh. It runs apart from the
	// context of the request that triggered it. Defaults to 30s.
	RefreshTimeout time.Duration
	// OnExpired is called after a failed refresh cleared the session
	OnExpired func()
}

// Manager holds the authenticated state of this device
type Manager struct {
	store store.Store
	auth  AuthAPI
	opts  Options

	mu          sync.RWMutex
	accessToken string
	user        *client.User

	refreshes singleflight.Group
}

// NewManager creates a Manager backed by s
func NewManager(s store.Store, auth AuthAPI, opts Options) *Manager {
	if opts.BootstrapTimeout <= 0 {
		opts.BootstrapTimeout = 10 * time.Second
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = 30 * time.Second
	}
	return &Manager{store: s, auth: auth, opts: opts}
}

// SignIn persists the tokens and profile from a login, OTP verification or
// OAuth callback
func (m *Manager) SignIn(ctx context.Context, resp *client.AuthResponse) error {
	if resp == nil || resp.AccessToken == "" {
		return fmt.Errorf("sign-in response has no access token")
	}

	m.mu.Lock()
	m.accessToken = resp.AccessToken
	m.user = resp.User
	m.mu.Unlock()

	if err := m.store.Set(ctx, store.KeyAccessToken, resp.AccessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if resp.RefreshToken != "" {
		if err := m.store.Set(ctx, store.KeyRefreshToken, resp.RefreshToken); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	if resp.User != nil {
		if err := m.SetUser(ctx, resp.User); err != nil {
			return err
		}
	}
	slog.Info("Signed in", "user", userEmail(resp.User))
	return nil
}

// SignOut clears tokens and the cached profile. With callRemote, the refresh
// token is revoked server-side first; that call's failure is only logged.
func (m *Manager) SignOut(ctx context.Context, callRemote bool) error {
	if callRemote {
		refreshToken, err := m.store.Get(ctx, store.KeyRefreshToken)
		if err == nil && refreshToken != "" {
			if err := m.auth.Logout(ctx, refreshToken); err != nil {
				slog.Warn("Remote logout failed, clearing local session anyway", "error", err)
			}
		}
	}
	return m.clearLocal(ctx)
}

func (m *Manager) clearLocal(ctx context.Context) error {
	m.mu.Lock()
	m.accessToken = ""
	m.user = nil
	m.mu.Unlock()

	if err := m.store.Delete(ctx, store.KeyAccessToken, store.KeyRefreshToken, store.KeyCachedUser); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}
	slog.Debug("Local session cleared")
	return nil
}

// expire clears the session after an unrecoverable refresh failure
func (m *Manager) expire(ctx context.Context, cause error) error {
	slog.Warn("Session expired", "error", cause)
	if err := m.clearLocal(context.WithoutCancel(ctx)); err != nil {
		slog.Error("Failed to clear expired session", "error", err)
	}
	if m.opts.OnExpired != nil {
		m.opts.OnExpired()
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

// AccessToken returns the current access token, loading the persisted one
// when nothing is held in memory. Empty means unauthenticated.
func (m *Manager) AccessToken(ctx context.Context) string {
	m.mu.RLock()
	token := m.accessToken
	m.mu.RUnlock()
	if token != "" {
		return token
	}

	token, err := m.store.Get(ctx, store.KeyAccessToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Failed to read access token", "error", err)
		}
		return ""
	}

	m.mu.Lock()
	if m.accessToken == "" {
		m.accessToken = token
	}
	token = m.accessToken
	m.mu.Unlock()
	return token
}

// TokenExpiry reads the exp claim of the access token without verifying it
func (m *Manager) TokenExpiry(ctx context.Context) (time.Time, bool) {
	token := m.AccessToken(ctx)
	if token == "" {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// CurrentUser returns the profile held in memory, or nil
func (m *Manager) CurrentUser() *client.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// SetUser replaces the in-memory profile and the cached copy
func (m *Manager) SetUser(ctx context.Context, u *client.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	m.mu.Lock()
	cp := *u
	m.user = &cp
	m.mu.Unlock()

	if err := m.store.Set(ctx, store.KeyCachedUser, string(data)); err != nil {
		return fmt.Errorf("failed to cache user: %w", err)
	}
	return nil
}

// cachedUser reads the persisted profile, or nil
func (m *Manager) cachedUser(ctx context.Context) *client.User {
	raw, err := m.store.Get(ctx, store.KeyCachedUser)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("Failed to read cached user", "error", err)
		}
		return nil
	}
	var u client.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		slog.Warn("Ignoring unreadable cached user", "error", err)
		return nil
	}
	return &u
}

// refresh replaces the rejected access token. Callers rejected with the same
// token share one refresh call; a caller arriving after it finished picks up
// the new token. Any failure of the refresh itself expires the session.
//
// The shared call runs on a detached context under RefreshTimeout. A caller
// whose own context ends stops waiting and gets ctx.Err(); the refresh keeps
// going for the others and the session is left alone.
func (m *Manager) refresh(ctx context.Context, rejected string) (string, error) {
	ch := m.refreshes.DoChan(rejected, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.RefreshTimeout)
		defer cancel()

		m.mu.RLock()
		current := m.accessToken
		m.mu.RUnlock()
		if current != "" && current != rejected {
			return current, nil
		}

		refreshToken, err := m.store.Get(rctx, store.KeyRefreshToken)
		if err != nil || refreshToken == "" {
			if err == nil || errors.Is(err, store.ErrNotFound) {
				err = ErrNoRefreshToken
			}
			return "", m.expire(rctx, err)
		}

		pair, err := m.auth.Refresh(rctx, refreshToken)
		if err == nil && pair.AccessToken == "" {
			err = errors.New("refresh response has no access token")
		}
		if err != nil {
			return "", m.expire(rctx, err)
		}
		m.storeTokens(rctx, pair)
		return pair.AccessToken, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		slog.Debug("Caller gave up waiting for token refresh", "error", ctx.Err())
		return "", ctx.Err()
	}
}

// storeTokens keeps a refreshed pair in memory and persists it. A persist
// failure is logged; the in-memory token stays usable for this process.
func (m *Manager) storeTokens(ctx context.Context, pair *client.TokenPair) {
	m.mu.Lock()
	m.accessToken = pair.AccessToken
	m.mu.Unlock()

	if err := m.store.Set(ctx, store.KeyAccessToken, pair.AccessToken); err != nil {
		slog.Warn("Failed to persist refreshed access token", "error", err)
	}
	if pair.RefreshToken != "" {
		if err := m.store.Set(ctx, store.KeyRefreshToken, pair.RefreshToken); err != nil {
			slog.Warn("Failed to persist rotated refresh token", "error", err)
		}
	}
	slog.Debug("Access token refreshed")
}

func userEmail(u *client.User) string {
	if u == nil {
		return ""
	}
	return u.Email
}
