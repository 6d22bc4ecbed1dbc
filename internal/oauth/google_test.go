// ABOUTME: Tests for the loopback Google flow against a fake authorization server
// ABOUTME: The fake browser follows the consent URL straight to the callback

package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func fakeProvider(t *testing.T, tokenBody map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		if r.Form.Get("code") != "auth-code" {
			t.Errorf("unexpected code %q", r.Form.Get("code"))
		}
		if r.Form.Get("code_verifier") == "" {
			t.Error("expected PKCE verifier in token request")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tokenBody)
	}))
	t.Cleanup(server.Close)
	return server
}

func testFlow(provider *httptest.Server) *GoogleFlow {
	return &GoogleFlow{Config: &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:  provider.URL + "/auth",
			TokenURL: provider.URL + "/token",
		},
		Scopes: []string{"openid", "email"},
	}}
}

// browser simulates the user approving consent, optionally tampering with the state
func browser(t *testing.T, mutate func(q url.Values)) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		params := u.Query()
		if params.Get("code_challenge") == "" {
			t.Error("expected PKCE challenge in consent URL")
		}
		q := url.Values{"code": {"auth-code"}, "state": {params.Get("state")}}
		if mutate != nil {
			mutate(q)
		}
		go func() {
			resp, err := http.Get(params.Get("redirect_uri") + "?" + q.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestAuthorize_ReturnsIDToken(t *testing.T) {
	provider := fakeProvider(t, map[string]interface{}{
		"access_token": "at", "token_type": "Bearer", "expires_in": 3600, "id_token": "idt",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := testFlow(provider).Authorize(ctx, browser(t, nil))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if req.IDToken != "idt" || req.AccessToken != "" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestAuthorize_FallsBackToAccessToken(t *testing.T) {
	provider := fakeProvider(t, map[string]interface{}{
		"access_token": "at", "token_type": "Bearer", "expires_in": 3600,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := testFlow(provider).Authorize(ctx, browser(t, nil))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if req.AccessToken != "at" || req.IDToken != "" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestAuthorize_RejectsBadState(t *testing.T) {
	provider := fakeProvider(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := testFlow(provider).Authorize(ctx, browser(t, func(q url.Values) { q.Set("state", "forged") }))
	if err == nil || !strings.Contains(err.Error(), "invalid state") {
		t.Errorf("expected invalid state error, got %v", err)
	}
}

func TestAuthorize_ConsentDenied(t *testing.T) {
	provider := fakeProvider(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := testFlow(provider).Authorize(ctx, browser(t, func(q url.Values) {
		q.Del("code")
		q.Set("error", "access_denied")
	}))
	if err == nil || !strings.Contains(err.Error(), "access_denied") {
		t.Errorf("expected access_denied error, got %v", err)
	}
}

func TestAuthorize_Cancelled(t *testing.T) {
	provider := fakeProvider(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := testFlow(provider).Authorize(ctx, func(string) error { return nil })
	if err != context.DeadlineExceeded {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
