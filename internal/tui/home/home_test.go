// ABOUTME: Tests for the home screen
// ABOUTME: Verifies offline banner, plan panel states, and invoice selection

package home

import (
	"strings"
	"testing"
	"time"

	"github.com/markalston/fntc-portal/internal/client"
)

var demo = &client.User{ID: "u1", Email: "demo@fntc.net", DisplayName: "Demo Customer"}

func TestView_Offline(t *testing.T) {
	h := New(demo, true)
	h.SetWidth(100)
	out := h.View()

	if !strings.Contains(out, "Offline: showing your saved profile") {
		t.Error("expected the offline banner")
	}
	if !strings.Contains(out, "Unavailable offline") {
		t.Error("expected the plan panel to be unavailable offline")
	}
	if !strings.Contains(out, "Welcome, Demo Customer") {
		t.Error("expected the cached name")
	}
}

func TestView_Loading(t *testing.T) {
	h := New(demo, false)
	if !strings.Contains(h.View(), "Loading...") {
		t.Error("expected a loading plan panel before data arrives")
	}
}

func TestView_WithSubscription(t *testing.T) {
	renews := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	h := New(demo, false)
	h.SetWidth(120)
	h.SetData(nil, &client.SubscriptionDetails{
		Subscription: &client.Subscription{Status: client.StatusActive, PlanID: "fiber-100", RenewsAt: &renews},
		Plan:         &client.Plan{ID: "fiber-100", Name: "Fiber 100", SpeedMbps: 100, Price: 29.99},
		PendingPlan:  &client.Plan{ID: "fiber-500", Name: "Fiber 500"},
		Invoices:     []client.Invoice{{ID: "inv-1", Status: "unpaid"}},
	})
	out := h.View()

	for _, check := range []string{"Fiber 100 (100 Mbps)", "$29.99/month", "Upgrade to Fiber 500", "1 unpaid invoice"} {
		if !strings.Contains(out, check) {
			t.Errorf("expected view to contain %q", check)
		}
	}
	if h.User() != demo {
		t.Error("expected a nil user in SetData to keep the current profile")
	}
}

func TestView_NoPlan(t *testing.T) {
	h := New(demo, false)
	h.SetData(demo, &client.SubscriptionDetails{})
	if !strings.Contains(h.View(), "No active plan") {
		t.Error("expected the no-plan text")
	}
}

func TestSetErrorKeepsData(t *testing.T) {
	h := New(demo, false)
	h.SetData(demo, &client.SubscriptionDetails{Plan: &client.Plan{Name: "Fiber 100"}, Subscription: &client.Subscription{Status: client.StatusActive}})
	h.SetError("The portal took too long to respond.")

	out := h.View()
	if !strings.Contains(out, "Fiber 100") || !strings.Contains(out, "took too long") {
		t.Error("expected both the last data and the error")
	}
}

func TestNextInvoice(t *testing.T) {
	now := time.Now()
	h := New(demo, false)
	if h.NextInvoice() != nil {
		t.Error("expected nil before data loads")
	}
	h.SetData(demo, &client.SubscriptionDetails{Invoices: []client.Invoice{
		{ID: "paid", Status: "paid", DueDate: now},
		{ID: "late", Status: "unpaid", DueDate: now.Add(72 * time.Hour)},
		{ID: "soon", Status: "unpaid", DueDate: now.Add(24 * time.Hour)},
	}})
	if got := h.NextInvoice(); got == nil || got.ID != "soon" {
		t.Errorf("expected the earliest owed invoice, got %+v", got)
	}
}
