// ABOUTME: RoundTripper decorator that attaches the bearer token to every request
// ABOUTME: On 401 it refreshes once and replays the request with the new token

package session

import (
	"io"
	"log/slog"
	"net/http"
)

// RoundTripper wraps base so every request carries the current access token.
// A request rejected with 401 triggers at most one refresh and one replay;
// the retry state lives in this call only, so requests are never mutated.
func (m *Manager) RoundTripper(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{manager: m, base: base}
}

type authTransport struct {
	manager *Manager
	base    http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	sent := t.manager.AccessToken(ctx)

	resp, err := t.base.RoundTrip(withBearer(req, sent))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	// Without a token the 401 is the server's answer, e.g. a bad password
	if sent == "" || !replayable(req) {
		return resp, nil
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	slog.Debug("Access token rejected, refreshing", "method", req.Method, "path", req.URL.Path)
	token, err := t.manager.refresh(ctx, sent)
	if err != nil {
		return nil, err
	}

	retry, err := replay(req, token)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(retry)
}

// withBearer returns a copy of req with the Authorization header set
func withBearer(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

// replay rebuilds req with a fresh body for the single retry
func replay(req *http.Request, token string) (*http.Request, error) {
	out := withBearer(req, token)
	if req.Body != nil && req.Body != http.NoBody {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	return out, nil
}
