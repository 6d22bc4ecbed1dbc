// ABOUTME: Fixed-window limit on sign-in attempts per client address
// ABOUTME: Rejected requests get 429 with Retry-After, like the production portal

package portalstub

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"sync"
	"time"
)

type window struct {
	count     int
	expiresAt time.Time
}

// attemptLimiter allows limit attempts per key in each window
type attemptLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	created int
}

func newAttemptLimiter(limit int, period time.Duration) *attemptLimiter {
	return &attemptLimiter{windows: make(map[string]*window), limit: limit, period: period}
}

// allow counts an attempt for key. When denied it returns the time until the
// window resets.
func (l *attemptLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		l.windows[key] = &window{count: 1, expiresAt: now.Add(l.period)}
		// Drop stale windows every 100 new ones
		if l.created++; l.created >= 100 {
			for k, w := range l.windows {
				if !now.Before(w.expiresAt) {
					delete(l.windows, k)
				}
			}
			l.created = 0
		}
		return true, 0
	}

	if w.count < l.limit {
		w.count++
		return true, 0
	}
	return false, w.expiresAt.Sub(now)
}

// clientAddr is the remote host without its port
func clientAddr(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// limitAttempts wraps a sign-in handler. A nil limiter disables the check.
func (s *Server) limitAttempts(next http.HandlerFunc) http.HandlerFunc {
	if s.attempts == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := s.attempts.allow(clientAddr(r))
		if ok {
			next(w, r)
			return
		}
		seconds := int(math.Ceil(retryAfter.Seconds()))
		slog.Warn("Stub rate limited sign-in", "addr", clientAddr(r), "path", r.URL.Path, "retry_after", seconds)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
		writeJSONError(w, fmt.Sprintf("Too many attempts. Try again in %d seconds.", seconds), http.StatusTooManyRequests)
	}
}
