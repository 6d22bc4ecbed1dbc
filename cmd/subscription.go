// ABOUTME: Subscription lifecycle commands
// ABOUTME: Every action prints the refreshed subscription details

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/client"
)

type subscriptionAction func(ctx context.Context, c *client.Client) (*client.SubscriptionDetails, error)

var subscriptionCmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "View and manage your internet plan",
}

func init() {
	rootCmd.AddCommand(subscriptionCmd)

	subscriptionCmd.AddCommand(
		actionCommand("details", "Show plan, pending changes and invoices", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				return c.SubscriptionDetails(ctx)
			}),
		actionCommand("subscribe <plan-id>", "Subscribe to a plan", 1,
			func(ctx context.Context, c *client.Client, args []string) (*client.SubscriptionDetails, error) {
				return c.Subscribe(ctx, args[0])
			}),
		actionCommand("change-plan <plan-id>", "Upgrade now or downgrade at the next cycle", 1,
			func(ctx context.Context, c *client.Client, args []string) (*client.SubscriptionDetails, error) {
				return c.ChangePlan(ctx, args[0])
			}),
		actionCommand("cancel", "Cancel at the end of the billing period", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				return c.CancelSubscription(ctx)
			}),
		actionCommand("reactivate", "Undo a pending cancellation", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				return c.Reactivate(ctx)
			}),
		actionCommand("cancel-change", "Drop an unpaid plan upgrade", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				return c.CancelChange(ctx)
			}),
		actionCommand("cancel-scheduled-change", "Drop a downgrade scheduled for the next cycle", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				return c.CancelScheduledChange(ctx)
			}),
		actionCommand("clear-inactive", "Remove a cancelled or inactive subscription", 0,
			func(ctx context.Context, c *client.Client, _ []string) (*client.SubscriptionDetails, error) {
				if err := c.ClearInactive(ctx); err != nil {
					return nil, err
				}
				return c.SubscriptionDetails(ctx)
			}),
	)
}

func actionCommand(use, short string, nargs int, fn func(ctx context.Context, c *client.Client, args []string) (*client.SubscriptionDetails, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		Run: func(cmd *cobra.Command, args []string) {
			run(func(ctx context.Context, w io.Writer) int {
				return runSubscription(ctx, w, func(ctx context.Context, c *client.Client) (*client.SubscriptionDetails, error) {
					return fn(ctx, c, args)
				})
			})
		},
	}
}

func runSubscription(ctx context.Context, w io.Writer, action subscriptionAction) int {
	return withSession(ctx, w, func(a *app) int {
		details, err := action(ctx, a.api)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(details))
		} else {
			fmt.Fprintln(w, strings.TrimRight(formatDetailsHuman(details), "\n"))
		}
		return exitOK
	})
}

// formatDetailsHuman formats subscription details for human readability
func formatDetailsHuman(d *client.SubscriptionDetails) string {
	var b strings.Builder
	b.WriteString("Subscription\n")
	b.WriteString("============\n")

	if d == nil || d.Subscription == nil {
		b.WriteString("  No subscription. Choose a plan with `fntc subscription subscribe <plan-id>`.\n")
		if d != nil {
			b.WriteString(formatPlans(d.AvailablePlans))
		}
		return b.String()
	}

	sub := d.Subscription
	status := sub.Status
	if sub.CancelAtPeriodEnd {
		status += " (cancels at period end)"
	}
	fmt.Fprintf(&b, "  Status:  %s\n", status)
	if p := d.Plan; p != nil {
		fmt.Fprintf(&b, "  Plan:    %s, %d Mbps, %s/month\n", p.Name, p.SpeedMbps, formatMoney(p.Price, p.Currency))
	} else {
		fmt.Fprintf(&b, "  Plan:    %s\n", sub.PlanID)
	}
	fmt.Fprintf(&b, "  Renews:  %s\n", formatDate(sub.RenewsAt))

	if p := d.PendingPlan; p != nil {
		fmt.Fprintf(&b, "  Pending upgrade to %s, pay the invoice to apply it.\n", p.Name)
	}
	if sc := d.ScheduledChange; sc != nil {
		fmt.Fprintf(&b, "  Scheduled change to %s on %s.\n", sc.PlanID, formatDate(&sc.EffectiveAt))
	}

	if len(d.Invoices) > 0 {
		b.WriteString("\nInvoices\n")
		for _, inv := range d.Invoices {
			fmt.Fprintf(&b, "  %-14s %10s  %-7s due %s\n",
				inv.ID, formatMoney(inv.Amount, inv.Currency), inv.Status, formatDate(&inv.DueDate))
		}
	}
	return b.String()
}

func formatPlans(plans []client.Plan) string {
	if len(plans) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nAvailable plans\n")
	for _, p := range plans {
		fmt.Fprintf(&b, "  %-12s %-16s %5d Mbps  %s/month\n", p.ID, p.Name, p.SpeedMbps, formatMoney(p.Price, p.Currency))
	}
	return b.String()
}
