// ABOUTME: Subscription lifecycle endpoints
// ABOUTME: Every mutation returns the refreshed subscription details

package client

import (
	"context"
	"net/http"
)

// SubscriptionDetails calls GET /subscriptions/details
func (c *Client) SubscriptionDetails(ctx context.Context) (*SubscriptionDetails, error) {
	var details SubscriptionDetails
	if err := c.doJSON(ctx, http.MethodGet, "/subscriptions/details", nil, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Subscribe calls POST /subscriptions/subscribe
func (c *Client) Subscribe(ctx context.Context, planID string) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/subscribe", map[string]string{"planId": planID})
}

// ChangePlan calls POST /subscriptions/change-plan
func (c *Client) ChangePlan(ctx context.Context, planID string) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/change-plan", map[string]string{"planId": planID})
}

// CancelSubscription calls POST /subscriptions/cancel
func (c *Client) CancelSubscription(ctx context.Context) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/cancel", nil)
}

// Reactivate calls POST /subscriptions/reactivate
func (c *Client) Reactivate(ctx context.Context) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/reactivate", nil)
}

// CancelChange calls POST /subscriptions/cancel-change to drop a pending plan change
func (c *Client) CancelChange(ctx context.Context) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/cancel-change", nil)
}

// CancelScheduledChange calls POST /subscriptions/cancel-scheduled-change
func (c *Client) CancelScheduledChange(ctx context.Context) (*SubscriptionDetails, error) {
	return c.subscriptionAction(ctx, "/subscriptions/cancel-scheduled-change", nil)
}

// ClearInactive calls DELETE /subscriptions/clear-inactive
func (c *Client) ClearInactive(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/subscriptions/clear-inactive", nil, nil, nil)
}

func (c *Client) subscriptionAction(ctx context.Context, path string, body interface{}) (*SubscriptionDetails, error) {
	if body == nil {
		body = struct{}{}
	}
	var details SubscriptionDetails
	if err := c.doJSON(ctx, http.MethodPost, path, nil, body, &details); err != nil {
		return nil, err
	}
	return &details, nil
}
