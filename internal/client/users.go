// ABOUTME: Profile endpoints for the signed-in customer
// ABOUTME: Rely on the session transport for the bearer header

package client

import (
	"context"
	"net/http"
)

// Me calls GET /users/me
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateMe calls PUT /users/me
func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPut, "/users/me", nil, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
