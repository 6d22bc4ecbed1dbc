// ABOUTME: Local message list for one chat with optimistic sends
// ABOUTME: Server updates replace the list wholesale; unconfirmed sends stay at the end

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markalston/fntc-portal/internal/client"
)

var (
	// ErrEmptyMessage is returned when sending blank text
	ErrEmptyMessage = errors.New("message is empty")
	// ErrNotOwner is returned when deleting someone else's message
	ErrNotOwner = errors.New("you can only delete your own messages")
	// ErrMessageNotFound is returned when deleting an unknown message
	ErrMessageNotFound = errors.New("message not found")
)

// Sender performs the message requests
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) (*client.ChatMessage, error)
	DeleteMessage(ctx context.Context, chatID, messageID string) error
}

// Conversation holds the message list shown for one chat
type Conversation struct {
	sender Sender
	chatID string
	selfID string

	mu       sync.Mutex
	messages []client.ChatMessage
	pending  []client.ChatMessage
	isTyping bool
}

// NewConversation creates an empty conversation. selfID is the signed-in
// user's id, used for ownership of sent messages.
func NewConversation(sender Sender, chatID, selfID string) *Conversation {
	return &Conversation{sender: sender, chatID: chatID, selfID: selfID}
}

// ChatID returns the conversation's chat id
func (c *Conversation) ChatID() string {
	return c.chatID
}

// Replace swaps in the server's full list. A message of ours that is new in
// this list takes the place of the oldest pending send with the same text.
func (c *Conversation) Replace(messages []client.ChatMessage, isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 {
		seen := make(map[string]bool, len(c.messages))
		for _, m := range c.messages {
			seen[m.ID] = true
		}
		for _, m := range messages {
			if seen[m.ID] || m.SenderID != c.selfID {
				continue
			}
			for i, p := range c.pending {
				if p.Text == m.Text {
					c.pending = append(c.pending[:i], c.pending[i+1:]...)
					break
				}
			}
		}
	}

	c.messages = append([]client.ChatMessage(nil), messages...)
	c.isTyping = isTyping
}

// Apply replaces the list from a transport update
func (c *Conversation) Apply(u Update) {
	c.Replace(u.Messages, u.IsTyping)
}

// Messages returns server messages followed by unconfirmed local ones
func (c *Conversation) Messages() []client.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]client.ChatMessage, 0, len(c.messages)+len(c.pending))
	out = append(out, c.messages...)
	return append(out, c.pending...)
}

// AgentTyping reports the last typing flag from the server
func (c *Conversation) AgentTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isTyping
}

// Append adds a pending local message and returns its local id
func (c *Conversation) Append(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	msg := client.ChatMessage{
		ID:        "local-" + uuid.NewString(),
		SenderID:  c.selfID,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Pending:   true,
	}
	c.mu.Lock()
	c.pending = append(c.pending, msg)
	c.mu.Unlock()
	return msg.ID, nil
}

// Confirm swaps a pending message for the server's record
func (c *Conversation) Confirm(localID string, msg *client.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removePending(localID)
	if msg == nil {
		return
	}
	for _, m := range c.messages {
		if m.ID == msg.ID {
			return
		}
	}
	c.messages = append(c.messages, *msg)
}

// Rollback drops a pending message and returns its text for the input box
func (c *Conversation) Rollback(localID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removePending(localID).Text
}

func (c *Conversation) removePending(localID string) client.ChatMessage {
	for i, m := range c.pending {
		if m.ID == localID {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return m
		}
	}
	return client.ChatMessage{}
}

// SendOptimistic appends text at once and sends it. On failure the
// message is removed and the text to restore in the input is returned.
func (c *Conversation) SendOptimistic(ctx context.Context, text string) (string, error) {
	localID, err := c.Append(text)
	if err != nil {
		return text, err
	}

	msg, err := c.sender.SendMessage(ctx, c.chatID, strings.TrimSpace(text))
	if err != nil {
		c.Rollback(localID)
		return text, err
	}
	c.Confirm(localID, msg)
	return "", nil
}

// Delete removes one of the user's own confirmed messages
func (c *Conversation) Delete(ctx context.Context, messageID string) error {
	c.mu.Lock()
	var found *client.ChatMessage
	for i := range c.messages {
		if c.messages[i].ID == messageID {
			m := c.messages[i]
			found = &m
			break
		}
	}
	c.mu.Unlock()

	if found == nil {
		return ErrMessageNotFound
	}
	if found.SenderID != c.selfID {
		return ErrNotOwner
	}
	if err := c.sender.DeleteMessage(ctx, c.chatID, messageID); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.messages {
		if m.ID == messageID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			break
		}
	}
	return nil
}
