// ABOUTME: Tests for Store drivers
// ABOUTME: Runs one behaviour suite against file, SQLite, and (optionally) Redis

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/markalston/fntc-portal/internal/config"
)

func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := s.Set(ctx, KeyAccessToken, "tok-1"); err != nil {
			t.Fatalf("Set: %v", err)
		}
		got, err := s.Get(ctx, KeyAccessToken)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != "tok-1" {
			t.Errorf("Get = %q, want tok-1", got)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		s.Set(ctx, KeyAccessToken, "tok-1")
		s.Set(ctx, KeyAccessToken, "tok-2")
		got, _ := s.Get(ctx, KeyAccessToken)
		if got != "tok-2" {
			t.Errorf("Get = %q, want tok-2", got)
		}
	})

	t.Run("delete several keys", func(t *testing.T) {
		s.Set(ctx, KeyAccessToken, "a")
		s.Set(ctx, KeyRefreshToken, "r")
		s.Set(ctx, KeyTheme, "dark")

		if err := s.Delete(ctx, KeyAccessToken, KeyRefreshToken, "never-set"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		for _, k := range []string{KeyAccessToken, KeyRefreshToken} {
			if _, err := s.Get(ctx, k); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected %s deleted, got %v", k, err)
			}
		}
		if v, _ := s.Get(ctx, KeyTheme); v != "dark" {
			t.Errorf("expected theme untouched, got %q", v)
		}
	})
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	runStoreSuite(t, fs)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, _ := NewFileStore(path)
	if err := first.Set(ctx, KeyRefreshToken, "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	second, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	got, err := second.Get(ctx, KeyRefreshToken)
	if err != nil || got != "persisted" {
		t.Errorf("Get = %q, %v; want persisted", got, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("state file mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestFileStore_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	os.WriteFile(path, []byte("{not json"), 0600)

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	defer slog.SetDefault(prev)

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := fs.Get(context.Background(), KeyAccessToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected empty store, got %v", err)
	}
	if !strings.Contains(logs.String(), "State file is unreadable") || !strings.Contains(logs.String(), path) {
		t.Errorf("expected a warning naming the file, got %q", logs.String())
	}
}

func TestFileStore_StaleInstanceKeepsOtherWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	tui, _ := NewFileStore(path)
	if err := tui.Set(ctx, KeyRefreshToken, "r1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cli, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := cli.Set(ctx, KeyRefreshToken, "r2-rotated"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tui.Set(ctx, KeyLastNotificationCheck, "2026-01-01T00:00:00Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	fresh, _ := NewFileStore(path)
	if got, _ := fresh.Get(ctx, KeyRefreshToken); got != "r2-rotated" {
		t.Errorf("refresh token on disk = %q, want r2-rotated", got)
	}
	if got, _ := tui.Get(ctx, KeyRefreshToken); got != "r2-rotated" {
		t.Errorf("first instance reads %q, want r2-rotated", got)
	}
	if got, _ := fresh.Get(ctx, KeyLastNotificationCheck); got == "" {
		t.Error("expected notification check to be saved")
	}

	if err := cli.Delete(ctx, KeyLastNotificationCheck); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := tui.Get(ctx, KeyLastNotificationCheck); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected delete from the other instance to be visible, got %v", err)
	}
}

func TestFileStore_ConcurrentInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fs, err := NewFileStore(path)
			if err != nil {
				t.Errorf("NewFileStore: %v", err)
				return
			}
			if err := fs.Set(ctx, fmt.Sprintf("key-%d", i), "v"); err != nil {
				t.Errorf("Set: %v", err)
			}
		}(i)
	}
	wg.Wait()

	fs, _ := NewFileStore(path)
	for i := 0; i < 8; i++ {
		if _, err := fs.Get(ctx, fmt.Sprintf("key-%d", i)); err != nil {
			t.Errorf("key-%d lost: %v", i, err)
		}
	}
}

func TestFileStore_RequiresPath(t *testing.T) {
	if _, err := NewFileStore(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	runStoreSuite(t, s)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("FNTC_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FNTC_TEST_REDIS_URL not set")
	}
	s, err := NewRedisStore(context.Background(), url)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	t.Cleanup(func() {
		s.Delete(context.Background(), KeyAccessToken, KeyRefreshToken, KeyTheme)
		s.Close()
	})
	runStoreSuite(t, s)
}

func TestOpen_SelectsDriver(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	fileStore, err := Open(ctx, config.StoreConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "s.json")})
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := fileStore.(*FileStore); !ok {
		t.Errorf("expected *FileStore, got %T", fileStore)
	}

	sqliteStore, err := Open(ctx, config.StoreConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "s.db")})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer sqliteStore.Close()
	if _, ok := sqliteStore.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", sqliteStore)
	}

	if _, err := Open(ctx, config.StoreConfig{Driver: "etcd"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}
