// ABOUTME: Data source abstraction for the chat transport
// ABOUTME: Adapts the API client's stream and fetch calls

package chat

import (
	"context"

	"github.com/markalston/fntc-portal/internal/client"
)

// Stream is an open server-push connection
type Stream interface {
	Next() (*client.ChatEvent, error)
	Close() error
}

// Feed opens push connections and fetches full chat state
type Feed interface {
	// Listen returns once the server confirmed the stream open
	Listen(ctx context.Context, chatID string) (Stream, error)
	LiveChat(ctx context.Context, chatID string) (*client.LiveChat, error)
}

// ClientFeed serves a Feed from the portal API client
type ClientFeed struct {
	API *client.Client
}

// Listen implements Feed
func (f ClientFeed) Listen(ctx context.Context, chatID string) (Stream, error) {
	s, err := f.API.Listen(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LiveChat implements Feed
func (f ClientFeed) LiveChat(ctx context.Context, chatID string) (*client.LiveChat, error) {
	return f.API.LiveChat(ctx, chatID)
}
