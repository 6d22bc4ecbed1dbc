// ABOUTME: Request logging, recording and bearer-token middleware for the stub
// ABOUTME: JSON response helpers shared by every handler

package portalstub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const userIDKey contextKey = "userID"

// logRequest logs each request with status and latency
func logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Debug("Stub request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recordRequest keeps method, path and Authorization header for test hooks
func (s *Server) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, s.opts.BasePath)
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          path,
			Authorization: r.Header.Get("Authorization"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests without a current access token
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSONError(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		claims, err := s.tokens.verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			slog.Debug("Stub auth rejected", "path", r.URL.Path, "error", err)
			writeJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		next(w, r.WithContext(ctx))
	}
}

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// writeJSONError writes {"error": message, "code": code}
func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}{
		Error: message,
		Code:  code,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Stub failed to encode response", "error", err)
	}
}

// decode reads a JSON body, writing a 400 and returning false on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
