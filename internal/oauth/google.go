// ABOUTME: Google sign-in through a loopback redirect and the system browser
// ABOUTME: Produces the token pair posted to the portal's /auth/google endpoint

package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/markalston/fntc-portal/internal/client"
)

const callbackPath = "/callback"

// GoogleFlow runs the authorization-code flow with PKCE
type GoogleFlow struct {
	Config *oauth2.Config
	// ListenAddr is the loopback address for the redirect. Defaults to 127.0.0.1:0.
	ListenAddr string
}

// NewGoogleFlow configures the flow for a desktop OAuth client
func NewGoogleFlow(clientID, clientSecret string) *GoogleFlow {
	return &GoogleFlow{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

type callbackResult struct {
	code string
	err  error
}

// Authorize opens the consent page with openURL and waits for the redirect.
// The returned request carries the ID token when Google issued one and the
// access token otherwise.
func (f *GoogleFlow) Authorize(ctx context.Context, openURL func(string) error) (*client.GoogleSignInRequest, error) {
	addr := f.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback listener: %w", err)
	}

	cfg := *f.Config
	cfg.RedirectURL = "http://" + listener.Addr().String() + callbackPath

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("google sign-in was not completed: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("google sign-in returned an invalid state")
		case q.Get("code") == "":
			res.err = errors.New("google sign-in returned no authorization code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><p>Signed in. You can close this window and return to the terminal.</p></body></html>")
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	slog.Debug("Opening Google consent page", "redirect", cfg.RedirectURL)
	if err := openURL(authURL); err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	req := &client.GoogleSignInRequest{}
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		req.IDToken = idToken
	} else {
		req.AccessToken = token.AccessToken
	}
	return req, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
