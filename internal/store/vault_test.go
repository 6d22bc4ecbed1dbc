// ABOUTME: Tests for sealed remember-me credentials
// ABOUTME: Verifies round-trip, ciphertext opacity, and tamper detection

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVault_RememberRecall(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)
	v := NewVault(s, dir)
	ctx := context.Background()

	creds := Credentials{Email: "ana@example.net", Password: "hunter22"}
	if err := v.Remember(ctx, creds); err != nil {
		t.Fatalf("Remember: %v", err)
	}

	raw, _ := s.Get(ctx, KeyRememberMe)
	if strings.Contains(raw, "hunter22") || strings.Contains(raw, "ana@example.net") {
		t.Error("expected stored value to be sealed, found plaintext")
	}

	got, err := v.Recall(ctx)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if *got != creds {
		t.Errorf("Recall = %+v, want %+v", *got, creds)
	}

	info, err := os.Stat(filepath.Join(dir, "vault.key"))
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("vault.key mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestVault_RecallNothingStored(t *testing.T) {
	v := NewVault(newTestStore(t), t.TempDir())
	_, err := v.Recall(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVault_TamperedValue(t *testing.T) {
	s := newTestStore(t)
	v := NewVault(s, t.TempDir())
	ctx := context.Background()

	v.Remember(ctx, Credentials{Email: "a@b.c", Password: "p"})
	s.Set(ctx, KeyRememberMe, "AAAA"+strings.Repeat("B", 80))

	if _, err := v.Recall(ctx); !errors.Is(err, ErrVaultCorrupt) {
		t.Errorf("expected ErrVaultCorrupt, got %v", err)
	}
}

func TestVault_KeyLost(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t)
	v := NewVault(s, dir)
	ctx := context.Background()

	v.Remember(ctx, Credentials{Email: "a@b.c", Password: "p"})
	os.Remove(filepath.Join(dir, "vault.key"))

	if _, err := v.Recall(ctx); !errors.Is(err, ErrVaultCorrupt) {
		t.Errorf("expected ErrVaultCorrupt after key loss, got %v", err)
	}
}

func TestVault_Forget(t *testing.T) {
	v := NewVault(newTestStore(t), t.TempDir())
	ctx := context.Background()

	v.Remember(ctx, Credentials{Email: "a@b.c", Password: "p"})
	if err := v.Forget(ctx); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if _, err := v.Recall(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after Forget, got %v", err)
	}
}
