// ABOUTME: Stub handlers for profile, subscription lifecycle, billing and feedback
// ABOUTME: Plan changes that cost more wait for payment; cheaper ones apply at renewal

package portalstub

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markalston/fntc-portal/internal/client"
)

const billingPeriod = 30 * 24 * time.Hour

var plans = []client.Plan{
	{ID: "fiber-100", Name: "Fiber 100", SpeedMbps: 100, Price: 29.99, Currency: "USD"},
	{ID: "fiber-500", Name: "Fiber 500", SpeedMbps: 500, Price: 49.99, Currency: "USD"},
	{ID: "fiber-1000", Name: "Fiber Gigabit", SpeedMbps: 1000, Price: 79.99, Currency: "USD"},
}

func findPlan(id string) (client.Plan, bool) {
	for _, p := range plans {
		if p.ID == id {
			return p, true
		}
	}
	return client.Plan{}, false
}

type invoiceKind int

const (
	invoiceSubscription invoiceKind = iota
	invoicePlanChange
)

type invoiceRecord struct {
	invoice   client.Invoice
	owner     *account
	kind      invoiceKind
	planID    string
	reference string
}

// current returns the caller's account. Caller holds s.mu.
func (s *Server) current(w http.ResponseWriter, r *http.Request) *account {
	acct := s.accountByID(userIDFrom(r))
	if acct == nil {
		writeJSONError(w, "Account not found", http.StatusUnauthorized)
	}
	return acct
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.current(w, r); acct != nil {
		writeJSON(w, http.StatusOK, acct.user)
	}
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var req client.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	if req.DisplayName != "" {
		acct.user.DisplayName = strings.TrimSpace(req.DisplayName)
	}
	if req.Phone != "" {
		acct.user.Phone = req.Phone
	}
	if req.Address != "" {
		acct.user.Address = req.Address
	}
	if req.PhotoURL != "" {
		acct.user.PhotoURL = req.PhotoURL
	}
	writeJSON(w, http.StatusOK, acct.user)
}

// details builds the subscription view. Caller holds s.mu.
func (s *Server) details(acct *account) *client.SubscriptionDetails {
	d := &client.SubscriptionDetails{
		Subscription:    acct.subscription,
		ScheduledChange: acct.scheduledChange,
		AvailablePlans:  plans,
	}
	if acct.subscription != nil {
		if p, ok := findPlan(acct.subscription.PlanID); ok {
			d.Plan = &p
		}
	}
	if p, ok := findPlan(acct.pendingPlan); ok {
		d.PendingPlan = &p
	}
	for _, inv := range acct.invoices {
		d.Invoices = append(d.Invoices, inv.invoice)
	}
	return d
}

func (s *Server) subscriptionDetails(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.current(w, r); acct != nil {
		writeJSON(w, http.StatusOK, s.details(acct))
	}
}

func (s *Server) activate(acct *account, planID string) {
	now := time.Now().UTC()
	renews := now.Add(billingPeriod)
	acct.subscription = &client.Subscription{
		ID:        uuid.NewString(),
		Status:    client.StatusActive,
		PlanID:    planID,
		StartedAt: &now,
		RenewsAt:  &renews,
	}
}

// bill adds an unpaid invoice. Caller holds s.mu.
func (s *Server) bill(acct *account, kind invoiceKind, plan client.Plan, amount float64) {
	rec := &invoiceRecord{
		invoice: client.Invoice{
			ID:       "inv-" + uuid.NewString()[:8],
			Amount:   amount,
			Currency: plan.Currency,
			Status:   "unpaid",
			DueDate:  time.Now().UTC().Add(7 * 24 * time.Hour),
		},
		owner:  acct,
		kind:   kind,
		planID: plan.ID,
	}
	acct.invoices = append(acct.invoices, rec)
	s.invoices[rec.invoice.ID] = rec
}

type planRequest struct {
	PlanID string `json:"planId"`
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	plan, ok := findPlan(req.PlanID)
	if !ok {
		writeJSONError(w, "Unknown plan", http.StatusNotFound)
		return
	}
	if sub := acct.subscription; sub != nil && (sub.Status == client.StatusActive || sub.Status == client.StatusPending) {
		writeJSONError(w, "You already have a subscription", http.StatusConflict)
		return
	}

	acct.subscription = &client.Subscription{
		ID:     uuid.NewString(),
		Status: client.StatusPending,
		PlanID: plan.ID,
	}
	acct.pendingPlan = ""
	acct.scheduledChange = nil
	s.bill(acct, invoiceSubscription, plan, plan.Price)
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) changePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	sub := acct.subscription
	if sub == nil || sub.Status != client.StatusActive {
		writeJSONError(w, "An active subscription is required to change plans", http.StatusBadRequest)
		return
	}
	next, ok := findPlan(req.PlanID)
	if !ok {
		writeJSONError(w, "Unknown plan", http.StatusNotFound)
		return
	}
	if next.ID == sub.PlanID {
		writeJSONError(w, "You are already on this plan", http.StatusBadRequest)
		return
	}
	if acct.pendingPlan != "" || acct.scheduledChange != nil {
		writeJSONError(w, "A plan change is already in progress", http.StatusConflict)
		return
	}

	cur, _ := findPlan(sub.PlanID)
	if next.Price > cur.Price {
		acct.pendingPlan = next.ID
		s.bill(acct, invoicePlanChange, next, next.Price-cur.Price)
	} else {
		acct.scheduledChange = &client.ScheduledChange{PlanID: next.ID, EffectiveAt: *sub.RenewsAt}
	}
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	sub := acct.subscription
	switch {
	case sub == nil:
		writeJSONError(w, "No subscription to cancel", http.StatusBadRequest)
		return
	case sub.Status == client.StatusPending:
		sub.Status = client.StatusCancelled
		s.voidInvoices(acct, invoiceSubscription)
	case sub.Status == client.StatusActive:
		sub.CancelAtPeriodEnd = true
	default:
		writeJSONError(w, "Subscription is not active", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) reactivate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	sub := acct.subscription
	switch {
	case sub != nil && sub.Status == client.StatusActive && sub.CancelAtPeriodEnd:
		sub.CancelAtPeriodEnd = false
	case sub != nil && (sub.Status == client.StatusCancelled || sub.Status == client.StatusInactive):
		plan, _ := findPlan(sub.PlanID)
		sub.Status = client.StatusPending
		sub.CancelAtPeriodEnd = false
		s.bill(acct, invoiceSubscription, plan, plan.Price)
	default:
		writeJSONError(w, "Nothing to reactivate", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) cancelChange(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	if acct.pendingPlan == "" {
		writeJSONError(w, "No pending plan change", http.StatusBadRequest)
		return
	}
	acct.pendingPlan = ""
	s.voidInvoices(acct, invoicePlanChange)
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) cancelScheduledChange(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	if acct.scheduledChange == nil {
		writeJSONError(w, "No scheduled plan change", http.StatusBadRequest)
		return
	}
	acct.scheduledChange = nil
	writeJSON(w, http.StatusOK, s.details(acct))
}

func (s *Server) clearInactive(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	sub := acct.subscription
	if sub == nil || (sub.Status != client.StatusCancelled && sub.Status != client.StatusInactive) {
		writeJSONError(w, "Only cancelled or inactive subscriptions can be cleared", http.StatusBadRequest)
		return
	}
	acct.subscription = nil
	w.WriteHeader(http.StatusNoContent)
}

// voidInvoices drops unpaid invoices of a kind. Caller holds s.mu.
func (s *Server) voidInvoices(acct *account, kind invoiceKind) {
	kept := acct.invoices[:0]
	for _, inv := range acct.invoices {
		if inv.kind == kind && inv.invoice.Status == "unpaid" {
			delete(s.invoices, inv.invoice.ID)
			continue
		}
		kept = append(kept, inv)
	}
	acct.invoices = kept
}

func (s *Server) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req client.PaymentRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	rec, ok := s.invoices[req.InvoiceID]
	if !ok || rec.owner != acct {
		writeJSONError(w, "Invoice not found", http.StatusNotFound)
		return
	}
	if rec.invoice.Status != "unpaid" {
		writeJSONError(w, "Invoice is already paid", http.StatusBadRequest)
		return
	}

	if rec.reference == "" {
		rec.reference = "pay_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		s.invoices[rec.reference] = rec
	}
	writeJSON(w, http.StatusOK, client.PaymentInitiation{
		CheckoutURL: s.publicURL(r) + s.opts.BasePath + "/checkout/" + rec.reference,
		Reference:   rec.reference,
	})
}

// checkout simulates the payment provider: it settles the invoice and
// redirects to the app's payment-result deep link
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")

	s.mu.Lock()
	rec, ok := s.invoices[ref]
	if ok && rec.reference == ref && rec.invoice.Status == "unpaid" {
		s.settle(rec)
	}
	s.mu.Unlock()

	if !ok || rec.reference != ref {
		http.Redirect(w, r, "fntc://payment-failure?reason=unknown_reference", http.StatusFound)
		return
	}
	http.Redirect(w, r, "fntc://payment-success?ref="+ref, http.StatusFound)
}

// settle marks an invoice paid and applies its effect. Caller holds s.mu.
func (s *Server) settle(rec *invoiceRecord) {
	rec.invoice.Status = "paid"
	acct := rec.owner
	switch rec.kind {
	case invoiceSubscription:
		s.activate(acct, rec.planID)
	case invoicePlanChange:
		if acct.subscription != nil && acct.pendingPlan == rec.planID {
			acct.subscription.PlanID = rec.planID
			acct.pendingPlan = ""
		}
	}
}

func (s *Server) publicURL(r *http.Request) string {
	if s.opts.PublicURL != "" {
		return strings.TrimRight(s.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (s *Server) listFeedback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.current(w, r); acct != nil {
		items := acct.feedback
		if items == nil {
			items = []client.Feedback{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) createFeedback(w http.ResponseWriter, r *http.Request) {
	var req client.Feedback
	if !decode(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSONError(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	fb := client.Feedback{
		ID:        uuid.NewString(),
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: time.Now().UTC(),
	}
	acct.feedback = append(acct.feedback, fb)
	writeJSON(w, http.StatusCreated, fb)
}

func (s *Server) updateFeedback(w http.ResponseWriter, r *http.Request) {
	var req client.Feedback
	if !decode(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeJSONError(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	id := chi.URLParam(r, "id")
	for i := range acct.feedback {
		if acct.feedback[i].ID == id {
			acct.feedback[i].Rating = req.Rating
			acct.feedback[i].Comment = req.Comment
			writeJSON(w, http.StatusOK, acct.feedback[i])
			return
		}
	}
	writeJSONError(w, "Feedback not found", http.StatusNotFound)
}

func (s *Server) deleteFeedback(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	id := chi.URLParam(r, "id")
	for i := range acct.feedback {
		if acct.feedback[i].ID == id {
			acct.feedback = append(acct.feedback[:i], acct.feedback[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSONError(w, "Feedback not found", http.StatusNotFound)
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct := s.current(w, r); acct != nil {
		items := acct.tickets
		if items == nil {
			items = []client.Ticket{}
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) createTicket(w http.ResponseWriter, r *http.Request) {
	var req client.Ticket
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		writeJSONError(w, "Subject is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.current(w, r)
	if acct == nil {
		return
	}
	t := client.Ticket{
		ID:          "T-" + strings.ToUpper(uuid.NewString()[:6]),
		Subject:     strings.TrimSpace(req.Subject),
		Description: req.Description,
		Status:      "open",
		CreatedAt:   time.Now().UTC(),
	}
	acct.tickets = append(acct.tickets, t)
	writeJSON(w, http.StatusCreated, t)
}
