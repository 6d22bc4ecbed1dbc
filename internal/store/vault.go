// ABOUTME: Sealed storage for "remember me" login credentials
// ABOUTME: Encrypts with nacl/secretbox using a per-device key file

package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// ErrVaultCorrupt is returned when a sealed value cannot be opened
var ErrVaultCorrupt = errors.New("store: remembered credentials are unreadable")

// Credentials are the login details kept when "remember me" is selected
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Vault seals Credentials before writing them to a Store
type Vault struct {
	s       Store
	keyPath string
}

// NewVault creates a vault whose key lives at dir/vault.key
func NewVault(s Store, dir string) *Vault {
	return &Vault{s: s, keyPath: filepath.Join(dir, "vault.key")}
}

// Remember seals and stores creds
func (v *Vault) Remember(ctx context.Context, creds Credentials) error {
	key, err := v.key(true)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], plain, &nonce, key)

	return v.s.Set(ctx, KeyRememberMe, base64.StdEncoding.EncodeToString(sealed))
}

// Recall returns the remembered credentials, or ErrNotFound
func (v *Vault) Recall(ctx context.Context) (*Credentials, error) {
	encoded, err := v.s.Get(ctx, KeyRememberMe)
	if err != nil {
		return nil, err
	}

	key, err := v.key(false)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrVaultCorrupt
	}
	if err != nil {
		return nil, err
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sealed) < nonceSize+secretbox.Overhead {
		return nil, ErrVaultCorrupt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrVaultCorrupt
	}

	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return nil, ErrVaultCorrupt
	}
	return &creds, nil
}

// Forget removes remembered credentials
func (v *Vault) Forget(ctx context.Context) error {
	return v.s.Delete(ctx, KeyRememberMe)
}

// key loads the device key, generating it when create is set
func (v *Vault) key(create bool) (*[keySize]byte, error) {
	raw, err := os.ReadFile(v.keyPath)
	if err == nil && len(raw) == keySize {
		var k [keySize]byte
		copy(k[:], raw)
		return &k, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}
	if !create {
		return nil, os.ErrNotExist
	}

	var k [keySize]byte
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.keyPath), 0700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(v.keyPath, k[:], 0600); err != nil {
		return nil, fmt.Errorf("failed to write vault key: %w", err)
	}
	return &k, nil
}
