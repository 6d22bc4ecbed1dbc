// ABOUTME: JSON-file Store driver kept in the XDG config directory
// ABOUTME: Each write re-reads the file under a lock and replaces it via rename

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps all values in a single JSON object on disk. The TUI and
// CLI commands are separate processes sharing the file, so nothing is cached:
// reads go to disk and writes merge one key into the current contents while
// holding an advisory lock on a .lock sibling.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type fileData struct {
	Values map[string]string `json:"values"`
}

// NewFileStore opens (or lazily creates) the JSON file at path
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	fs := &FileStore{path: path}
	if _, err := fs.read(); err != nil {
		return nil, err
	}
	return fs, nil
}

// read returns the values on disk. A missing file is empty; a corrupt one is
// logged and treated as empty so the next write replaces it.
func (fs *FileStore) read() (map[string]string, error) {
	raw, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var decoded fileData
	if err := json.Unmarshal(raw, &decoded); err != nil || decoded.Values == nil {
		slog.Warn("State file is unreadable, starting fresh", "path", fs.path, "error", err)
		return map[string]string{}, nil
	}
	return decoded.Values, nil
}

// Get implements Store
func (fs *FileStore) Get(_ context.Context, key string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	values, err := fs.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Store
func (fs *FileStore) Set(_ context.Context, key, value string) error {
	return fs.update(func(values map[string]string) bool {
		if prev, ok := values[key]; ok && prev == value {
			return false
		}
		values[key] = value
		return true
	})
}

// Delete implements Store
func (fs *FileStore) Delete(_ context.Context, keys ...string) error {
	return fs.update(func(values map[string]string) bool {
		changed := false
		for _, k := range keys {
			if _, ok := values[k]; ok {
				delete(values, k)
				changed = true
			}
		}
		return changed
	})
}

// Close implements Store
func (fs *FileStore) Close() error {
	return nil
}

// update applies fn to the current file contents under the cross-process
// lock and writes the result when fn reports a change
func (fs *FileStore) update(fn func(values map[string]string) bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	lock, err := os.OpenFile(fs.path+".lock", os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("failed to open state lock: %w", err)
	}
	defer lock.Close()
	if err := lockFile(lock); err != nil {
		return fmt.Errorf("failed to lock state file: %w", err)
	}
	defer unlockFile(lock)

	values, err := fs.read()
	if err != nil {
		return err
	}
	if !fn(values) {
		return nil
	}
	return fs.write(values)
}

// write replaces the file atomically; caller holds the lock
func (fs *FileStore) write(values map[string]string) error {
	raw, err := json.MarshalIndent(fileData{Values: values}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}
