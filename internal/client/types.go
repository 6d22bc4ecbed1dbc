// ABOUTME: Request and response models for the portal API
// ABOUTME: JSON field names follow the backend's camelCase contract

package client

import "time"

// User is the customer profile returned by /users/me
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	Role        string `json:"role,omitempty"`
}

// TokenPair is the credential pair minted by the auth endpoints
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// AuthResponse is returned by login, OTP verification, and Google sign-in
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// Tokens returns the credential pair of r
func (r *AuthResponse) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// GoogleSignInRequest carries the token obtained from Google
type GoogleSignInRequest struct {
	IDToken     string `json:"idToken,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileUpdate holds the editable profile fields; empty fields are left as-is
type ProfileUpdate struct {
	DisplayName string `json:"displayName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Plan is an internet service plan
type Plan struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	SpeedMbps int     `json:"speedMbps"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

// Subscription status values
const (
	StatusActive    = "active"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
	StatusSuspended = "suspended"
	StatusInactive  = "inactive"
)

type Subscription struct {
	ID                string     `json:"id"`
	Status            string     `json:"status"`
	PlanID            string     `json:"planId"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	RenewsAt          *time.Time `json:"renewsAt,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancelAtPeriodEnd"`
}

// ScheduledChange is a plan change that takes effect at the next cycle
type ScheduledChange struct {
	PlanID      string    `json:"planId"`
	EffectiveAt time.Time `json:"effectiveAt"`
}

type Invoice struct {
	ID       string    `json:"id"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
	Status   string    `json:"status"`
	DueDate  time.Time `json:"dueDate"`
}

// SubscriptionDetails is the response of /subscriptions/details
type SubscriptionDetails struct {
	Subscription    *Subscription    `json:"subscription"`
	Plan            *Plan            `json:"plan,omitempty"`
	PendingPlan     *Plan            `json:"pendingPlan,omitempty"`
	ScheduledChange *ScheduledChange `json:"scheduledChange,omitempty"`
	Invoices        []Invoice        `json:"invoices,omitempty"`
	AvailablePlans  []Plan           `json:"availablePlans,omitempty"`
}

// PaymentRequest starts a checkout for an invoice
type PaymentRequest struct {
	InvoiceID string `json:"invoiceId"`
}

// PaymentInitiation contains the redirect URL for the payment provider
type PaymentInitiation struct {
	CheckoutURL string `json:"checkoutUrl"`
	Reference   string `json:"reference"`
}

type Feedback struct {
	ID        string    `json:"id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type Ticket struct {
	ID          string    `json:"id,omitempty"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatMessage is one message in a live-chat conversation
type ChatMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// Pending marks a locally appended message awaiting server confirmation
	Pending bool `json:"-"`
}

// LiveChat is a support conversation
type LiveChat struct {
	ID       string        `json:"id"`
	Messages []ChatMessage `json:"messages"`
	IsTyping bool          `json:"isTyping"`
}

// ChatEvent is one server-push event of a live-chat stream
type ChatEvent struct {
	Messages []ChatMessage `json:"messages"`
	IsTyping bool          `json:"isTyping"`
}
