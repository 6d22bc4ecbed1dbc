// ABOUTME: Parses payment-result callback links from the payment provider
// ABOUTME: Accepts the fntc:// app scheme and the same paths over http(s)

package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the app's custom URL scheme
const Scheme = "fntc"

// Outcome of a payment
type Outcome string

const (
	Success Outcome = "payment-success"
	Failure Outcome = "payment-failure"
)

// PaymentResult is a decoded payment-result link
type PaymentResult struct {
	Outcome   Outcome
	Reference string
	Reason    string
}

// OK reports whether the payment succeeded
func (r PaymentResult) OK() bool {
	return r.Outcome == Success
}

// Message is the line shown to the user
func (r PaymentResult) Message() string {
	if r.OK() {
		if r.Reference != "" {
			return "Payment received (reference " + r.Reference + ")."
		}
		return "Payment received."
	}
	if r.Reason != "" {
		return "Payment failed: " + strings.ReplaceAll(r.Reason, "_", " ") + "."
	}
	return "Payment failed."
}

// Parse decodes fntc://payment-success?ref=..., fntc://payment-failure?reason=...
// or an http(s) URL whose last path segment is one of those routes
func Parse(raw string) (PaymentResult, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("invalid link: %w", err)
	}

	var route string
	switch strings.ToLower(u.Scheme) {
	case Scheme:
		// fntc://payment-success puts the route in the host, fntc:///payment-success in the path
		route = u.Host
		if route == "" {
			route = strings.Trim(u.Path, "/")
		}
	case "http", "https":
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		route = parts[len(parts)-1]
	default:
		return PaymentResult{}, fmt.Errorf("unsupported link scheme %q", u.Scheme)
	}

	q := u.Query()
	switch Outcome(strings.ToLower(route)) {
	case Success:
		ref := q.Get("ref")
		if ref == "" {
			ref = q.Get("reference")
		}
		return PaymentResult{Outcome: Success, Reference: ref}, nil
	case Failure:
		return PaymentResult{Outcome: Failure, Reference: q.Get("ref"), Reason: q.Get("reason")}, nil
	default:
		return PaymentResult{}, fmt.Errorf("unknown payment route %q", route)
	}
}
