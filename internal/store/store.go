// ABOUTME: Key-value persistence for device-local portal state
// ABOUTME: Defines the Store interface, well-known keys, and driver selection

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/markalston/fntc-portal/internal/config"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("store: key not found")

// Well-known keys
const (
	KeyAccessToken           = "access_token"
	KeyRefreshToken          = "refresh_token"
	KeyCachedUser            = "cached_user"
	KeyTheme                 = "theme"
	KeyRememberMe            = "remember_me"
	KeyDoNotDisturb          = "dnd"
	KeyInstructionsShown     = "instructions_shown"
	KeyLastNotificationCheck = "last_notification_check"
)

// Store persists string values by key. Each call is atomic on its own;
// there are no multi-key transactions (last write wins).
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases the underlying resources.
	Close() error
}

// Open creates the Store selected by cfg.Driver
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileStore(cfg.Path)
	case config.DriverSQLite:
		return NewSQLiteStore(ctx, cfg.Path)
	case config.DriverRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
