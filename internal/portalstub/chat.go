// ABOUTME: Stub live-chat endpoints including the server-push listen stream
// ABOUTME: Every change pushes the full message list to open listeners

package portalstub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/markalston/fntc-portal/internal/client"
)

// AgentID is the sender id used for support agent messages
const AgentID = "agent"

const agentGreeting = "Thanks for reaching out! An agent will be with you shortly."

type chatRoom struct {
	id          string
	ownerID     string
	messages    []client.ChatMessage
	agentTyping bool
	lastTyping  time.Time
	listeners   map[chan struct{}]struct{}
}

// snapshot copies the room state. Caller holds s.mu.
func (c *chatRoom) snapshot() client.LiveChat {
	msgs := make([]client.ChatMessage, len(c.messages))
	copy(msgs, c.messages)
	return client.LiveChat{ID: c.id, Messages: msgs, IsTyping: c.agentTyping}
}

// notify wakes every listener without blocking. Caller holds s.mu.
func (c *chatRoom) notify() {
	for ch := range c.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// room returns the caller's chat or writes an error. Caller holds s.mu.
func (s *Server) room(w http.ResponseWriter, r *http.Request) *chatRoom {
	room, ok := s.chats[chi.URLParam(r, "id")]
	if !ok || room.ownerID != userIDFrom(r) {
		writeJSONError(w, "Chat not found", http.StatusNotFound)
		return nil
	}
	return room
}

// startChat returns the caller's open chat, creating one if needed
func (s *Server) startChat(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.chats {
		if room.ownerID == userID {
			writeJSON(w, http.StatusOK, room.snapshot())
			return
		}
	}
	room := &chatRoom{
		id:        uuid.NewString(),
		ownerID:   userID,
		listeners: make(map[chan struct{}]struct{}),
	}
	s.chats[room.id] = room
	slog.Info("Stub chat started", "chat_id", room.id)
	writeJSON(w, http.StatusCreated, room.snapshot())
}

func (s *Server) getChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room := s.room(w, r); room != nil {
		writeJSON(w, http.StatusOK, room.snapshot())
	}
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSONError(w, "Message text is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.room(w, r)
	if room == nil {
		return
	}
	msg := client.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  room.ownerID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	first := len(room.messages) == 0
	room.messages = append(room.messages, msg)
	if first {
		room.messages = append(room.messages, client.ChatMessage{
			ID:        uuid.NewString(),
			SenderID:  AgentID,
			Text:      agentGreeting,
			Timestamp: time.Now().UTC(),
		})
	}
	room.notify()
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) typing(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room := s.room(w, r); room != nil {
		room.lastTyping = time.Now()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "msgId")

	s.mu.Lock()
	defer s.mu.Unlock()
	room := s.room(w, r)
	if room == nil {
		return
	}
	for i, m := range room.messages {
		if m.ID != msgID {
			continue
		}
		if m.SenderID != room.ownerID {
			writeJSONError(w, "You can only delete your own messages", http.StatusForbidden)
			return
		}
		room.messages = append(room.messages[:i], room.messages[i+1:]...)
		room.notify()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONError(w, "Message not found", http.StatusNotFound)
}

// listen streams the room as server-sent events. With streaming disabled it
// holds the connection open without ever answering.
func (s *Server) listen(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	room := s.room(w, r)
	if room == nil {
		s.mu.Unlock()
		return
	}
	if !s.streamEnabled {
		s.mu.Unlock()
		<-r.Context().Done()
		return
	}
	wake := make(chan struct{}, 1)
	room.listeners[wake] = struct{}{}
	first := room.snapshot()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(room.listeners, wake)
		s.mu.Unlock()
		slog.Debug("Stub stream closed", "chat_id", room.id)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, first); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(s.opts.KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case <-wake:
			s.mu.Lock()
			snap := room.snapshot()
			s.mu.Unlock()
			if err := writeEvent(w, snap); err != nil {
				slog.Warn("Stub failed to write stream event", "chat_id", room.id, "error", err)
				return
			}
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, chat client.LiveChat) error {
	data, err := json.Marshal(client.ChatEvent{Messages: chat.Messages, IsTyping: chat.IsTyping})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// AgentSay appends an agent message to a chat and pushes it to listeners
func (s *Server) AgentSay(chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s not found", chatID)
	}
	room.agentTyping = false
	room.messages = append(room.messages, client.ChatMessage{
		ID:        uuid.NewString(),
		SenderID:  AgentID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
	room.notify()
	return nil
}

// SetAgentTyping sets the typing flag pushed with the next event
func (s *Server) SetAgentTyping(chatID string, typing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.chats[chatID]
	if !ok {
		return fmt.Errorf("chat %s not found", chatID)
	}
	room.agentTyping = typing
	room.notify()
	return nil
}

// LastTyping reports when the customer last signalled typing in a chat
func (s *Server) LastTyping(chatID string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.chats[chatID]; ok {
		return room.lastTyping
	}
	return time.Time{}
}
