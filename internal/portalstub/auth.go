// ABOUTME: Stub handlers for registration, OTP verification, login and token refresh
// ABOUTME: Refresh tokens rotate on every use and are revoked on logout

package portalstub

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/markalston/fntc-portal/internal/client"
)

type account struct {
	user     client.User
	password string
	verified bool
	otp      string

	subscription    *client.Subscription
	pendingPlan     string
	scheduledChange *client.ScheduledChange
	invoices        []*invoiceRecord
	feedback        []client.Feedback
	tickets         []client.Ticket
}

func (s *Server) seed() {
	acct := &account{
		user: client.User{
			ID:          uuid.NewString(),
			Email:       DemoEmail,
			DisplayName: "Demo Customer",
			Phone:       "+1 555 0100",
			Address:     "1 Fiber Way",
			Role:        "customer",
		},
		password: DemoPassword,
		verified: true,
	}
	s.accounts[DemoEmail] = acct
	s.activate(acct, "fiber-100")
}

func (s *Server) accountByID(id string) *account {
	for _, acct := range s.accounts {
		if acct.user.ID == id {
			return acct
		}
	}
	return nil
}

// issue mints an access token and a new refresh token. Caller holds s.mu.
func (s *Server) issue(acct *account) (*client.AuthResponse, error) {
	access, err := s.tokens.mint(acct.user.ID, acct.user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	refresh := opaqueToken()
	s.refreshTokens[refresh] = acct.user.ID
	user := acct.user
	return &client.AuthResponse{AccessToken: access, RefreshToken: refresh, User: &user}, nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req client.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok || acct.password != req.Password {
		writeJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	if !acct.verified {
		writeJSONError(w, "Please verify your email before signing in", http.StatusForbidden)
		return
	}

	resp, err := s.issue(acct)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req client.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case strings.TrimSpace(req.DisplayName) == "":
		writeJSONError(w, "Name is required", http.StatusBadRequest)
		return
	case !validEmail(email):
		writeJSONError(w, "A valid email address is required", http.StatusBadRequest)
		return
	case len(req.Password) < 8:
		writeJSONError(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.accounts[email]; ok && existing.verified {
		writeJSONError(w, "An account with this email already exists", http.StatusConflict)
		return
	}
	s.accounts[email] = &account{
		user: client.User{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: strings.TrimSpace(req.DisplayName),
			Phone:       req.Phone,
			Role:        "customer",
		},
		password: req.Password,
		otp:      DemoOTP,
	}
	slog.Info("Stub registered account", "email", email)
	writeJSON(w, http.StatusCreated, client.MessageResponse{Message: "Verification code sent to " + email})
}

func (s *Server) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req client.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(req.Email))]
	if !ok {
		writeJSONError(w, "No pending registration for this email", http.StatusNotFound)
		return
	}
	if acct.verified {
		writeJSONError(w, "Email is already verified", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.OTP) != acct.otp {
		writeJSONError(w, "Invalid verification code", http.StatusBadRequest)
		return
	}
	acct.verified = true
	acct.otp = ""

	resp, err := s.issue(acct)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok || acct.verified {
		writeJSONError(w, "No pending registration for this email", http.StatusNotFound)
		return
	}
	acct.otp = DemoOTP
	writeJSON(w, http.StatusOK, client.MessageResponse{Message: "Verification code resent to " + email})
}

// googleSignIn trusts the token. An ID token's email claim names the account.
func (s *Server) googleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.GoogleSignInRequest
	if !decode(w, r, &req) {
		return
	}
	if req.IDToken == "" && req.AccessToken == "" {
		writeJSONError(w, "Google token is required", http.StatusBadRequest)
		return
	}

	email, name := "google-user@fntc.net", "Google User"
	if req.IDToken != "" {
		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(req.IDToken, claims); err == nil {
			if v, ok := claims["email"].(string); ok && v != "" {
				email = strings.ToLower(v)
			}
			if v, ok := claims["name"].(string); ok && v != "" {
				name = v
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[email]
	if !ok {
		acct = &account{
			user:     client.User{ID: uuid.NewString(), Email: email, DisplayName: name, Role: "customer"},
			verified: true,
		}
		s.accounts[email] = acct
	}
	acct.verified = true

	resp, err := s.issue(acct)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++

	userID, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		writeJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	acct := s.accountByID(userID)
	if acct == nil {
		writeJSONError(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	delete(s.refreshTokens, req.RefreshToken)

	resp, err := s.issue(acct)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp.Tokens())
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	delete(s.refreshTokens, req.RefreshToken)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, client.MessageResponse{Message: "Signed out"})
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
