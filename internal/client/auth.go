// ABOUTME: Auth lifecycle endpoints: login, registration, OTP, refresh, logout
// ABOUTME: Refresh, Logout and CurrentUser take explicit tokens for the session manager

package client

import (
	"context"
	"net/http"
)

// Login calls POST /auth/login
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register calls POST /auth/register; the account is activated by VerifyOTP
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP calls POST /auth/verify-otp and returns a new session
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify-otp", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResendOTP calls POST /auth/resend-otp
func (c *Client) ResendOTP(ctx context.Context, email string) (*MessageResponse, error) {
	var resp MessageResponse
	body := map[string]string{"email": email}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/resend-otp", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleSignIn calls POST /auth/google with a token obtained from Google
func (c *Client) GoogleSignIn(ctx context.Context, req GoogleSignInRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/google", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh calls POST /auth/refresh. The returned pair may omit the refresh
// token when the server does not rotate it.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var resp TokenPair
	body := map[string]string{"refreshToken": refreshToken}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/refresh", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout calls POST /auth/logout to revoke refreshToken server-side
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, body, nil)
}

// CurrentUser calls GET /users/me with an explicit access token
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", bearer(accessToken), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
