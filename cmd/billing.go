// ABOUTME: Invoice payment commands
// ABOUTME: Starts a provider checkout and decodes the payment-result callback link

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/deeplink"
)

var (
	payInvoiceID string
	payOpen      bool
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay an invoice through the payment provider",
	Long: `Starts checkout for an invoice and prints the provider URL.

Without --invoice the oldest unpaid invoice is used. After paying, the provider
redirects to an fntc://payment-success or fntc://payment-failure link which
"fntc payment-result" can decode.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runPay(ctx, w, payInvoiceID, payOpen)
		})
	},
}

var paymentResultCmd = &cobra.Command{
	Use:   "payment-result <url>",
	Short: "Show the outcome of a payment-result link",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runPaymentResult(ctx, w, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(payCmd, paymentResultCmd)
	payCmd.Flags().StringVar(&payInvoiceID, "invoice", "", "Invoice ID to pay")
	payCmd.Flags().BoolVar(&payOpen, "open", false, "Open the checkout page in a browser")
}

var errNothingToPay = errors.New("no unpaid invoices")

func runPay(ctx context.Context, w io.Writer, invoiceID string, open bool) int {
	return withSession(ctx, w, func(a *app) int {
		if invoiceID == "" {
			details, err := a.api.SubscriptionDetails(ctx)
			if err != nil {
				return reportError(w, err)
			}
			inv := firstUnpaid(details.Invoices)
			if inv == nil {
				fmt.Fprintln(w, "Nothing to pay: "+errNothingToPay.Error()+".")
				return exitOK
			}
			invoiceID = inv.ID
		}

		checkout, err := a.api.InitiatePayment(ctx, client.PaymentRequest{InvoiceID: invoiceID})
		if err != nil {
			return reportError(w, err)
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(checkout))
		} else {
			fmt.Fprintf(w, "Complete payment for invoice %s at:\n  %s\n", invoiceID, checkout.CheckoutURL)
		}
		if open {
			if err := openBrowser(checkout.CheckoutURL); err != nil {
				fmt.Fprintf(w, "Could not open a browser: %v\n", err)
			}
		}
		return exitOK
	})
}

// firstUnpaid returns the earliest-due invoice that is not paid
func firstUnpaid(invoices []client.Invoice) *client.Invoice {
	var found *client.Invoice
	for i := range invoices {
		inv := &invoices[i]
		if inv.Status == "paid" || inv.Status == "void" {
			continue
		}
		if found == nil || inv.DueDate.Before(found.DueDate) {
			found = inv
		}
	}
	return found
}

// paymentResultJSON is the JSON shape of payment-result
type paymentResultJSON struct {
	OK        bool   `json:"ok"`
	Outcome   string `json:"outcome"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message"`
}

func runPaymentResult(_ context.Context, w io.Writer, raw string) int {
	res, err := deeplink.Parse(raw)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatJSON(paymentResultJSON{
			OK:        res.OK(),
			Outcome:   string(res.Outcome),
			Reference: res.Reference,
			Reason:    res.Reason,
			Message:   res.Message(),
		}))
	} else {
		fmt.Fprintln(w, res.Message())
	}

	if !res.OK() {
		return exitBackend
	}
	return exitOK
}
