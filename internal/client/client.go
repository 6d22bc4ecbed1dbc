// ABOUTME: HTTP client for the FNTC customer portal API
// ABOUTME: Shared request plumbing with error handling for CLI and TUI usage

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the API client for the portal backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no overall timeout so server-push connections can stay open
	streamClient *http.Client
}

// Option customizes a Client
type Option func(*Client)

// WithTransport sets the RoundTripper used for every request, e.g. the
// session manager's bearer-token decorator
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
		c.streamClient.Transport = rt
	}
}

// WithTimeout sets the per-request timeout for non-streaming calls
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		streamClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON sends in (if non-nil) as a JSON body and decodes a 2xx response into
// out (if non-nil). header may carry extra request headers.
func (c *Client) doJSON(ctx context.Context, method, path string, header http.Header, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// bearer returns a header carrying an explicit access token
func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
