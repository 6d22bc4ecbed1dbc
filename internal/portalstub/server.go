// ABOUTME: In-memory stand-in for the FNTC portal REST API
// ABOUTME: Serves every customer endpoint plus hooks for driving auth and chat scenarios

package portalstub

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markalston/fntc-portal/internal/client"
)

// Demo account seeded into every stub
const (
	DemoEmail    = "demo@fntc.net"
	DemoPassword = "password123"
	DemoOTP      = "123456"
)

// Options configures a stub backend
type Options struct {
	// BasePath prefixes every route. Defaults to /api
	BasePath string
	// Secret signs access tokens. A random secret is used when empty
	Secret []byte
	// AccessTTL is the lifetime of minted access tokens. Defaults to 15 minutes
	AccessTTL time.Duration
	// PublicURL is used to build checkout links. Defaults to the request host
	PublicURL string
	// DisableStream makes the listen endpoint accept the connection but never
	// confirm it, so clients fall back to polling
	DisableStream bool
	// KeepAlive is the interval between stream comments. Defaults to 15 seconds
	KeepAlive time.Duration
	// AllowedOrigins enables CORS for browser clients; empty disables it
	AllowedOrigins []string
	// LoginAttempts caps sign-in and OTP attempts per client address each
	// minute. Zero disables the limit
	LoginAttempts int
}

// RecordedRequest is one request seen by the stub
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
}

// Server is the stub backend. It implements http.Handler.
type Server struct {
	opts     Options
	router   chi.Router
	tokens   *tokenIssuer
	attempts *attemptLimiter

	mu            sync.Mutex
	accounts      map[string]*account // by email
	refreshTokens map[string]string   // refresh token -> user id
	chats         map[string]*chatRoom
	invoices      map[string]*invoiceRecord // by reference or invoice id
	streamEnabled bool
	refreshCalls  int
	requests      []RecordedRequest
}

// New builds a stub with the demo account already verified and subscribed
func New(opts Options) *Server {
	if opts.BasePath == "" {
		opts.BasePath = "/api"
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 15 * time.Second
	}

	s := &Server{
		opts:          opts,
		tokens:        newTokenIssuer(opts.Secret, opts.AccessTTL),
		accounts:      make(map[string]*account),
		refreshTokens: make(map[string]string),
		chats:         make(map[string]*chatRoom),
		invoices:      make(map[string]*invoiceRecord),
		streamEnabled: !opts.DisableStream,
	}
	if opts.LoginAttempts > 0 {
		s.attempts = newAttemptLimiter(opts.LoginAttempts, time.Minute)
	}
	s.seed()
	s.router = s.routes()
	return s
}

// Route defines an endpoint relative to BasePath
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
	Public  bool
	// Limited routes count against LoginAttempts
	Limited bool
}

// Routes returns the endpoint table
func (s *Server) Routes() []Route {
	return []Route{
		// Auth
		{Method: http.MethodPost, Path: "/auth/login", Handler: s.login, Public: true, Limited: true},
		{Method: http.MethodPost, Path: "/auth/register", Handler: s.register, Public: true},
		{Method: http.MethodPost, Path: "/auth/verify-otp", Handler: s.verifyOTP, Public: true, Limited: true},
		{Method: http.MethodPost, Path: "/auth/resend-otp", Handler: s.resendOTP, Public: true},
		{Method: http.MethodPost, Path: "/auth/google", Handler: s.googleSignIn, Public: true},
		{Method: http.MethodPost, Path: "/auth/refresh", Handler: s.refresh, Public: true},
		{Method: http.MethodPost, Path: "/auth/logout", Handler: s.logout, Public: true},

		// Profile
		{Method: http.MethodGet, Path: "/users/me", Handler: s.getMe},
		{Method: http.MethodPut, Path: "/users/me", Handler: s.updateMe},

		// Subscription lifecycle
		{Method: http.MethodGet, Path: "/subscriptions/details", Handler: s.subscriptionDetails},
		{Method: http.MethodPost, Path: "/subscriptions/subscribe", Handler: s.subscribe},
		{Method: http.MethodPost, Path: "/subscriptions/change-plan", Handler: s.changePlan},
		{Method: http.MethodPost, Path: "/subscriptions/cancel", Handler: s.cancelSubscription},
		{Method: http.MethodPost, Path: "/subscriptions/reactivate", Handler: s.reactivate},
		{Method: http.MethodPost, Path: "/subscriptions/cancel-change", Handler: s.cancelChange},
		{Method: http.MethodPost, Path: "/subscriptions/cancel-scheduled-change", Handler: s.cancelScheduledChange},
		{Method: http.MethodDelete, Path: "/subscriptions/clear-inactive", Handler: s.clearInactive},

		// Billing
		{Method: http.MethodPost, Path: "/billing/initiate-payment", Handler: s.initiatePayment},
		{Method: http.MethodGet, Path: "/checkout/{ref}", Handler: s.checkout, Public: true},

		// Feedback and support
		{Method: http.MethodGet, Path: "/feedback", Handler: s.listFeedback},
		{Method: http.MethodPost, Path: "/feedback", Handler: s.createFeedback},
		{Method: http.MethodPut, Path: "/feedback/{id}", Handler: s.updateFeedback},
		{Method: http.MethodDelete, Path: "/feedback/{id}", Handler: s.deleteFeedback},
		{Method: http.MethodGet, Path: "/support/tickets", Handler: s.listTickets},
		{Method: http.MethodPost, Path: "/support/tickets", Handler: s.createTicket},

		// Live chat
		{Method: http.MethodPost, Path: "/support/live-chat", Handler: s.startChat},
		{Method: http.MethodGet, Path: "/support/live-chat/{id}", Handler: s.getChat},
		{Method: http.MethodGet, Path: "/support/live-chat/{id}/listen", Handler: s.listen},
		{Method: http.MethodPost, Path: "/support/live-chat/{id}/message", Handler: s.postMessage},
		{Method: http.MethodPost, Path: "/support/live-chat/{id}/typing", Handler: s.typing},
		{Method: http.MethodDelete, Path: "/support/live-chat/{id}/delete/{msgId}", Handler: s.deleteMessage},
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         60 * 15,
		}))
	}
	r.Use(s.recordRequest)
	r.Use(logRequest)

	r.Route(s.opts.BasePath, func(r chi.Router) {
		for _, route := range s.Routes() {
			h := route.Handler
			if !route.Public {
				h = s.requireAuth(h)
			}
			if route.Limited {
				h = s.limitAttempts(h)
			}
			r.MethodFunc(route.Method, route.Path, h)
		}
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, "route not found", http.StatusNotFound)
	})
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ExpireAccessTokens invalidates every access token minted so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.tokens.expireAll()
}

// SetStreamEnabled toggles whether listen confirms new streams
func (s *Server) SetStreamEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamEnabled = enabled
}

// RefreshCalls returns how many times /auth/refresh was called
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// Requests returns the recorded requests for a path relative to BasePath,
// or every request when path is empty
func (s *Server) Requests(path string) []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RecordedRequest
	for _, r := range s.requests {
		if path == "" || r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// User returns the account for email, if any
func (s *Server) User(email string) (client.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return client.User{}, false
	}
	return acct.user, true
}
