// ABOUTME: Feedback, support ticket, and live-chat endpoints
// ABOUTME: The server-push listener lives in sse.go

package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ListFeedback calls GET /feedback
func (c *Client) ListFeedback(ctx context.Context) ([]Feedback, error) {
	var items []Feedback
	if err := c.doJSON(ctx, http.MethodGet, "/feedback", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateFeedback calls POST /feedback
func (c *Client) CreateFeedback(ctx context.Context, fb Feedback) (*Feedback, error) {
	if err := validateFeedback(fb); err != nil {
		return nil, err
	}
	var created Feedback
	if err := c.doJSON(ctx, http.MethodPost, "/feedback", nil, fb, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateFeedback calls PUT /feedback/:id
func (c *Client) UpdateFeedback(ctx context.Context, fb Feedback) (*Feedback, error) {
	if fb.ID == "" {
		return nil, fmt.Errorf("feedback id is required")
	}
	if err := validateFeedback(fb); err != nil {
		return nil, err
	}
	var updated Feedback
	if err := c.doJSON(ctx, http.MethodPut, "/feedback/"+url.PathEscape(fb.ID), nil, fb, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteFeedback calls DELETE /feedback/:id
func (c *Client) DeleteFeedback(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/feedback/"+url.PathEscape(id), nil, nil, nil)
}

func validateFeedback(fb Feedback) error {
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", fb.Rating)
	}
	return nil
}

// ListTickets calls GET /support/tickets
func (c *Client) ListTickets(ctx context.Context) ([]Ticket, error) {
	var tickets []Ticket
	if err := c.doJSON(ctx, http.MethodGet, "/support/tickets", nil, nil, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// CreateTicket calls POST /support/tickets
func (c *Client) CreateTicket(ctx context.Context, t Ticket) (*Ticket, error) {
	if strings.TrimSpace(t.Subject) == "" {
		return nil, fmt.Errorf("ticket subject is required")
	}
	var created Ticket
	if err := c.doJSON(ctx, http.MethodPost, "/support/tickets", nil, t, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// StartLiveChat calls POST /support/live-chat, returning the caller's open
// conversation or creating one
func (c *Client) StartLiveChat(ctx context.Context) (*LiveChat, error) {
	var chat LiveChat
	if err := c.doJSON(ctx, http.MethodPost, "/support/live-chat", nil, struct{}{}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// LiveChat calls GET /support/live-chat/:id
func (c *Client) LiveChat(ctx context.Context, chatID string) (*LiveChat, error) {
	var chat LiveChat
	if err := c.doJSON(ctx, http.MethodGet, chatPath(chatID), nil, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage calls POST /support/live-chat/:id/message
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*ChatMessage, error) {
	var msg ChatMessage
	body := map[string]string{"text": text}
	if err := c.doJSON(ctx, http.MethodPost, chatPath(chatID)+"/message", nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Typing calls POST /support/live-chat/:id/typing
func (c *Client) Typing(ctx context.Context, chatID string) error {
	return c.doJSON(ctx, http.MethodPost, chatPath(chatID)+"/typing", nil, struct{}{}, nil)
}

// DeleteMessage calls DELETE /support/live-chat/:id/delete/:msgId
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID string) error {
	return c.doJSON(ctx, http.MethodDelete, chatPath(chatID)+"/delete/"+url.PathEscape(messageID), nil, nil, nil)
}

func chatPath(chatID string) string {
	return "/support/live-chat/" + url.PathEscape(chatID)
}
