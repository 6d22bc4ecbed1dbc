// ABOUTME: Error taxonomy for portal API calls
// ABOUTME: Separates network, timeout, auth, and validation failures

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrNetwork wraps transport failures: no connectivity, DNS, refused
	ErrNetwork = errors.New("cannot reach the portal")
	// ErrTimeout is returned when the request context deadline passes
	ErrTimeout = errors.New("request timed out")
	// ErrCanceled is returned when the request context is canceled
	ErrCanceled = errors.New("request canceled")
	// ErrSessionExpired means the access token was rejected and could not be
	// refreshed; the local session has been cleared
	ErrSessionExpired = errors.New("session expired, please sign in again")
)

// ErrorResponse represents an API error body
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// APIError is a non-2xx response from the backend
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend error: %s", e.Message)
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// UserMessage converts err to the single human-readable line shown to users
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrSessionExpired):
		return ErrSessionExpired.Error()
	case errors.As(err, &apiErr):
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fmt.Sprintf("The portal returned an error (status %d).", apiErr.Status)
	case errors.Is(err, ErrTimeout):
		return "The portal took too long to respond. Please try again."
	case errors.Is(err, ErrNetwork):
		return "You appear to be offline. Check your connection and try again."
	case errors.Is(err, ErrCanceled):
		return "Request canceled."
	}
	return err.Error()
}

// handleRequestError converts transport errors to the taxonomy above
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired
	}
	if ctx.Err() == context.Canceled {
		return ErrCanceled
	}
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%w at %s: %w", ErrNetwork, c.baseURL, err)
}

// handleErrorResponse parses API error responses
func (c *Client) handleErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}

	var errResp ErrorResponse
	if err := json.Unmarshal(raw, &errResp); err == nil {
		apiErr.Message = errResp.Message
		if apiErr.Message == "" {
			apiErr.Message = errResp.Error
		}
		apiErr.Details = errResp.Details
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		apiErr.Message = text
	}
	return apiErr
}
