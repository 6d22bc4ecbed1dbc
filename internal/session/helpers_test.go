// ABOUTME: Shared fakes for session tests
// ABOUTME: Provides an in-process auth API and a temp-dir backed store

package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/store"
)

type fakeAuth struct {
	mu               sync.Mutex
	refreshCalls     int
	logoutCalls      int
	currentUserCalls int
	refreshFn        func(refreshToken string) (*client.TokenPair, error)
	// refreshCtxFn takes precedence and sees the refresh context
	refreshCtxFn     func(ctx context.Context, refreshToken string) (*client.TokenPair, error)
	logoutErr        error
	user             *client.User
}

func (f *fakeAuth) Refresh(ctx context.Context, refreshToken string) (*client.TokenPair, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn, ctxFn := f.refreshFn, f.refreshCtxFn
	f.mu.Unlock()
	if ctxFn != nil {
		return ctxFn(ctx, refreshToken)
	}
	if fn == nil {
		return nil, errors.New("refresh not configured")
	}
	return fn(refreshToken)
}

func (f *fakeAuth) Logout(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAuth) CurrentUser(context.Context, string) (*client.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentUserCalls++
	if f.user == nil {
		return nil, errors.New("no user")
	}
	u := *f.user
	return &u, nil
}

func (f *fakeAuth) calls() (refresh, logout, currentUser int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls, f.logoutCalls, f.currentUserCalls
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustGet(t *testing.T, s store.Store, key string) string {
	t.Helper()
	v, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get(%s): %v", key, err)
	}
	return v
}

func assertMissing(t *testing.T, s store.Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if _, err := s.Get(context.Background(), key); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected %s to be cleared, got err=%v", key, err)
		}
	}
}

var demoUser = &client.User{ID: "u1", Email: "demo@fntc.net", DisplayName: "Demo"}
