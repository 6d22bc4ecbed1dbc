// ABOUTME: Billing endpoint for starting an invoice payment
// ABOUTME: Returns the provider checkout URL to open in a browser

package client

import (
	"context"
	"fmt"
	"net/http"
)

// InitiatePayment calls POST /billing/initiate-payment
func (c *Client) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentInitiation, error) {
	if req.InvoiceID == "" {
		return nil, fmt.Errorf("invoice id is required")
	}
	var resp PaymentInitiation
	if err := c.doJSON(ctx, http.MethodPost, "/billing/initiate-payment", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.CheckoutURL == "" {
		return nil, fmt.Errorf("invalid response from backend: missing checkout URL")
	}
	return &resp, nil
}
