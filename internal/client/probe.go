// ABOUTME: Network reachability check used before API calls at startup
// ABOUTME: Dials the API host instead of issuing an HTTP request

package client

import (
	"context"
	"net"
	"net/url"
	"time"
)

// Prober reports whether the backend can be reached
type Prober interface {
	Reachable(ctx context.Context) bool
}

// TCPProbe dials Address with a short timeout
type TCPProbe struct {
	Address string
	Timeout time.Duration
}

// NewTCPProbe derives host:port from an API base URL
func NewTCPProbe(baseURL string, timeout time.Duration) *TCPProbe {
	addr := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		addr = u.Host
		if u.Port() == "" {
			port := "80"
			if u.Scheme == "https" {
				port = "443"
			}
			addr = net.JoinHostPort(u.Hostname(), port)
		}
	}
	return &TCPProbe{Address: addr, Timeout: timeout}
}

// Reachable implements Prober
func (p *TCPProbe) Reachable(ctx context.Context) bool {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProbeFunc adapts a function to Prober
type ProbeFunc func(ctx context.Context) bool

// Reachable implements Prober
func (f ProbeFunc) Reachable(ctx context.Context) bool {
	return f(ctx)
}
