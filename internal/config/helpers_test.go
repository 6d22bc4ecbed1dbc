// ABOUTME: Test helpers for config tests
// ABOUTME: Isolates the config directory and clears FNTC_* variables

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// isolateEnv points XDG_CONFIG_HOME at a temp dir and unsets every FNTC_*
// and LOG_* variable for the duration of the test. Returns the app config dir.
func isolateEnv(t *testing.T) string {
	t.Helper()

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FNTC_") || strings.HasPrefix(key, "LOG_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	return filepath.Join(xdg, AppName)
}

// writeFile writes content to dir/name, creating dir
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
