// ABOUTME: Shared fixtures for command tests
// ABOUTME: Runs commands against an in-process stub portal with an isolated config directory

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/portalstub"
)

// newTestPortal starts a stub portal and points the CLI at it. Local state
// lives in a temporary config directory.
func newTestPortal(t *testing.T, opts portalstub.Options) *portalstub.Server {
	t.Helper()
	stub := portalstub.New(opts)
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("FNTC_STORE_DRIVER", "file")
	t.Setenv("FNTC_CHAT_POLL_INTERVAL", "100ms")
	t.Setenv("FNTC_CHAT_OPEN_TIMEOUT", "500ms")
	t.Setenv("LOG_LEVEL", "error")

	apiURL = server.URL + "/api"
	t.Cleanup(func() { apiURL = "" })
	return stub
}

// signInDemo logs the demo account in through the login command
func signInDemo(t *testing.T) {
	t.Helper()
	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, loginOptions{
		email:    portalstub.DemoEmail,
		password: portalstub.DemoPassword,
	})
	if code != exitOK {
		t.Fatalf("login failed with code %d: %s", code, buf.String())
	}
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func registerRequest(name, email, password string) client.RegisterRequest {
	return client.RegisterRequest{DisplayName: name, Email: email, Password: password}
}

func verifyRequest(email, code string) client.VerifyOTPRequest {
	return client.VerifyOTPRequest{Email: email, OTP: code}
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, data)
	}
	return v
}

// bearer is a transport that sends a fixed access token
type bearer string

func (b bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+string(b))
	return http.DefaultTransport.RoundTrip(req)
}
