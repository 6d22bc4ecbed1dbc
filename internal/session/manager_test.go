// ABOUTME: Tests for sign-in persistence, sign-out and token inspection
// ABOUTME: Uses a file-backed store in a temp dir

package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/store"
)

func TestSignIn_Persists(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, &fakeAuth{}, Options{})
	ctx := context.Background()

	err := m.SignIn(ctx, &client.AuthResponse{AccessToken: "a1", RefreshToken: "r1", User: demoUser})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if mustGet(t, s, store.KeyAccessToken) != "a1" || mustGet(t, s, store.KeyRefreshToken) != "r1" {
		t.Error("expected tokens persisted")
	}
	if m.CurrentUser() == nil || m.CurrentUser().Email != demoUser.Email {
		t.Errorf("unexpected current user %+v", m.CurrentUser())
	}
	if m.cachedUser(ctx) == nil {
		t.Error("expected cached user persisted")
	}
}

func TestSignIn_RequiresAccessToken(t *testing.T) {
	m := NewManager(newTestStore(t), &fakeAuth{}, Options{})
	if err := m.SignIn(context.Background(), &client.AuthResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestSignOut(t *testing.T) {
	tests := []struct {
		name        string
		callRemote  bool
		logoutErr   error
		wantLogouts int
	}{
		{name: "local only", callRemote: false, wantLogouts: 0},
		{name: "remote", callRemote: true, wantLogouts: 1},
		{name: "remote failure is swallowed", callRemote: true, logoutErr: client.ErrNetwork, wantLogouts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			auth := &fakeAuth{logoutErr: tt.logoutErr}
			m := NewManager(s, auth, Options{})
			ctx := context.Background()
			m.SignIn(ctx, &client.AuthResponse{AccessToken: "a1", RefreshToken: "r1", User: demoUser})

			if err := m.SignOut(ctx, tt.callRemote); err != nil {
				t.Fatalf("SignOut: %v", err)
			}
			if _, logouts, _ := auth.calls(); logouts != tt.wantLogouts {
				t.Errorf("expected %d logout calls, got %d", tt.wantLogouts, logouts)
			}
			assertMissing(t, s, store.KeyAccessToken, store.KeyRefreshToken, store.KeyCachedUser)
			if m.AccessToken(ctx) != "" || m.CurrentUser() != nil {
				t.Error("expected in-memory state cleared")
			}
		})
	}
}

func TestSignOut_RemoteWithoutRefreshToken(t *testing.T) {
	auth := &fakeAuth{}
	m := NewManager(newTestStore(t), auth, Options{})
	m.SignIn(context.Background(), &client.AuthResponse{AccessToken: "a1"})

	if err := m.SignOut(context.Background(), true); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, logouts, _ := auth.calls(); logouts != 0 {
		t.Error("expected no logout call without a refresh token")
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("any-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := NewManager(newTestStore(t), &fakeAuth{}, Options{})
	ctx := context.Background()
	if _, ok := m.TokenExpiry(ctx); ok {
		t.Error("expected no expiry without a token")
	}

	m.SignIn(ctx, &client.AuthResponse{AccessToken: token})
	got, ok := m.TokenExpiry(ctx)
	if !ok || !got.Equal(exp) {
		t.Errorf("TokenExpiry = %v, %v; want %v", got, ok, exp)
	}

	m.SignIn(ctx, &client.AuthResponse{AccessToken: "opaque"})
	if _, ok := m.TokenExpiry(ctx); ok {
		t.Error("expected opaque token to have no expiry")
	}
}

func TestSetUser_UpdatesCache(t *testing.T) {
	s := newTestStore(t)
	m := NewManager(s, &fakeAuth{}, Options{})
	ctx := context.Background()

	updated := *demoUser
	updated.DisplayName = "Changed"
	if err := m.SetUser(ctx, &updated); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if got := m.cachedUser(ctx); got == nil || got.DisplayName != "Changed" {
		t.Errorf("unexpected cached user %+v", got)
	}
}

func TestErrNoRefreshTokenIsDistinct(t *testing.T) {
	if errors.Is(ErrNoRefreshToken, ErrSessionExpired) {
		t.Error("sentinels should be distinct")
	}
}
