// ABOUTME: Home screen showing the profile and subscription panels
// ABOUTME: Renders an offline banner when working from the cached profile

package home

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/tui/styles"
)

// Home holds what the home screen displays
type Home struct {
	user    *client.User
	details *client.SubscriptionDetails
	offline bool
	loading bool
	err     string
	notice  string
	width   int
}

// New creates a home screen for user. offline marks the cached-profile path.
func New(user *client.User, offline bool) *Home {
	return &Home{user: user, offline: offline, loading: !offline}
}

// SetData replaces the profile and subscription after a load
func (h *Home) SetData(user *client.User, details *client.SubscriptionDetails) {
	h.loading = false
	h.err = ""
	if user != nil {
		h.user = user
	}
	h.details = details
}

// SetLoading marks a reload in progress
func (h *Home) SetLoading() {
	h.loading = true
	h.err = ""
}

// SetError shows a load failure; the last data stays visible
func (h *Home) SetError(message string) {
	h.loading = false
	h.err = message
}

// SetNotice shows a one-line message such as a payment result
func (h *Home) SetNotice(message string) {
	h.notice = message
}

// Offline reports whether the screen shows cached data only
func (h *Home) Offline() bool {
	return h.offline
}

// User returns the displayed profile
func (h *Home) User() *client.User {
	return h.user
}

// SetWidth sets the render width
func (h *Home) SetWidth(width int) {
	h.width = width
}

// View renders the screen
func (h *Home) View() string {
	var sb strings.Builder

	if h.offline {
		sb.WriteString(styles.OfflineBanner.Render("Offline: showing your saved profile. Press r to retry."))
		sb.WriteString("\n\n")
	}

	name := "there"
	if h.user != nil && h.user.DisplayName != "" {
		name = h.user.DisplayName
	}
	sb.WriteString(styles.Title.Render("Welcome, " + name))
	sb.WriteString("\n")

	panelWidth := h.width/2 - 4
	if panelWidth < 36 {
		panelWidth = 36
	}
	profile := styles.Panel.Width(panelWidth).Render(h.renderProfile())
	plan := styles.Panel.Width(panelWidth).Render(h.renderSubscription())
	if h.width >= 2*(panelWidth+4) {
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, profile, " ", plan))
	} else {
		sb.WriteString(lipgloss.JoinVertical(lipgloss.Left, profile, plan))
	}

	if h.notice != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.StatusOK.Render(h.notice))
	}
	if h.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.Error.Render(h.err))
	}
	return sb.String()
}

func (h *Home) renderProfile() string {
	var sb strings.Builder
	sb.WriteString(styles.Subtitle.Render("Profile"))
	sb.WriteString("\n")
	if h.user == nil {
		sb.WriteString("No profile loaded")
		return sb.String()
	}
	row := func(label, value string) {
		if value == "" {
			value = "-"
		}
		sb.WriteString(styles.Label.Render(label) + value + "\n")
	}
	row("Name", h.user.DisplayName)
	row("Email", h.user.Email)
	row("Phone", h.user.Phone)
	row("Address", h.user.Address)
	return strings.TrimRight(sb.String(), "\n")
}

func (h *Home) renderSubscription() string {
	var sb strings.Builder
	sb.WriteString(styles.Subtitle.Render("Internet plan"))
	sb.WriteString("\n")

	switch {
	case h.offline:
		sb.WriteString("Unavailable offline")
		return sb.String()
	case h.loading && h.details == nil:
		sb.WriteString("Loading...")
		return sb.String()
	case h.details == nil || h.details.Subscription == nil:
		sb.WriteString("No active plan")
		return sb.String()
	}

	sub := h.details.Subscription
	status := styles.SubscriptionStatus(sub.Status)
	if sub.CancelAtPeriodEnd {
		status += styles.Subtitle.Render(" (ends at period end)")
	}
	sb.WriteString(styles.Label.Render("Status") + status + "\n")
	if p := h.details.Plan; p != nil {
		sb.WriteString(styles.Label.Render("Plan") + fmt.Sprintf("%s (%d Mbps)", p.Name, p.SpeedMbps) + "\n")
		sb.WriteString(styles.Label.Render("Price") + fmt.Sprintf("$%.2f/month", p.Price) + "\n")
	}
	if sub.RenewsAt != nil {
		sb.WriteString(styles.Label.Render("Renews") + sub.RenewsAt.Local().Format("Jan 2, 2006") + "\n")
	}
	if p := h.details.PendingPlan; p != nil {
		sb.WriteString(styles.StatusWarning.Render("Upgrade to "+p.Name+" awaiting payment") + "\n")
	}
	if sc := h.details.ScheduledChange; sc != nil {
		sb.WriteString(styles.Subtitle.Render(fmt.Sprintf("Changes to %s on %s", sc.PlanID, sc.EffectiveAt.Local().Format("Jan 2"))) + "\n")
	}
	if n := unpaid(h.details.Invoices); n > 0 {
		sb.WriteString(styles.StatusWarning.Render(fmt.Sprintf("%d unpaid invoice(s)", n)) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// NextInvoice returns the earliest-due invoice still owed, or nil
func (h *Home) NextInvoice() *client.Invoice {
	if h.details == nil {
		return nil
	}
	var found *client.Invoice
	for i := range h.details.Invoices {
		inv := &h.details.Invoices[i]
		if !owed(*inv) {
			continue
		}
		if found == nil || inv.DueDate.Before(found.DueDate) {
			found = inv
		}
	}
	return found
}

func owed(inv client.Invoice) bool {
	return inv.Status != "paid" && inv.Status != "void"
}

func unpaid(invoices []client.Invoice) int {
	n := 0
	for _, inv := range invoices {
		if owed(inv) {
			n++
		}
	}
	return n
}
