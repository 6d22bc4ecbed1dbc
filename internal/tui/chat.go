// ABOUTME: Support chat session wiring for the TUI
// ABOUTME: Owns the transport, conversation and typing debouncer while the chat screen is open

package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/markalston/fntc-portal/internal/chat"
	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/tui/chatview"
)

const typingTimeout = 5 * time.Second

// chatSession is the state of one visit to the chat screen. gen tags every
// message produced for it so that results arriving after the user left are
// ignored.
type chatSession struct {
	gen       uint64
	selfID    string
	view      *chatview.Chat
	conv      *chat.Conversation
	transport *chat.Transport
	typing    *chat.Debouncer

	// mode is the latest transport mode, written by its callbacks. The
	// status line reads it on every chat event so a dropped mode message
	// is repaired by the next one.
	mode atomic.Int32
}

// syncStatus shows the latest transport mode
func (cs *chatSession) syncStatus() {
	if m := chat.Mode(cs.mode.Load()); m != chat.ModeStopped {
		cs.view.SetStatus(modeLabel(m))
	}
}

// chatOpenedMsg is sent when the live chat has been fetched or created
type chatOpenedMsg struct {
	gen  uint64
	live *client.LiveChat
	err  error
}

// chatChangedMsg signals new conversation state from the transport
type chatChangedMsg struct {
	gen uint64
}

// chatModeMsg reports a transport mode change
type chatModeMsg struct {
	gen  uint64
	mode chat.Mode
}

// chatErrorMsg reports a failed transport fetch
type chatErrorMsg struct {
	gen uint64
	err error
}

// messageSentMsg is sent when an optimistic send completes
type messageSentMsg struct {
	gen     uint64
	localID string
	msg     *client.ChatMessage
	err     error
}

// messageDeletedMsg is sent when a delete completes
type messageDeletedMsg struct {
	gen uint64
	err error
}

// openChat switches to the chat screen and fetches the conversation
func (a *App) openChat() tea.Cmd {
	selfID := ""
	if u := a.home.User(); u != nil {
		selfID = u.ID
	}

	a.chatGen++
	a.chat = &chatSession{gen: a.chatGen, selfID: selfID, view: chatview.New(selfID)}
	a.chat.view.Update(tea.WindowSizeMsg{Width: a.width - 2, Height: a.contentHeight()})
	a.screen = ScreenChat

	return tea.Batch(a.chat.view.Init(), a.fetchChat(a.chat.gen))
}

// fetchChat starts or resumes the user's live chat
func (a *App) fetchChat(gen uint64) tea.Cmd {
	return func() tea.Msg {
		live, err := a.cfg.API.StartLiveChat(a.ctx)
		return chatOpenedMsg{gen: gen, live: live, err: err}
	}
}

// closeChat stops the transport before the screen changes. Stop returns only
// after the transport's goroutines exited, so nothing fetches afterwards.
func (a *App) closeChat() {
	cs := a.chat
	if cs == nil {
		return
	}
	a.chat = nil
	if cs.typing != nil {
		cs.typing.Stop()
	}
	if cs.transport != nil {
		cs.transport.Stop()
	}
	if a.screen == ScreenChat {
		a.screen = ScreenHome
	}
	slog.Debug("Chat closed", "gen", cs.gen)
}

// startTransport wires the transport callbacks to the events channel
func (a *App) startTransport(cs *chatSession, live *client.LiveChat) error {
	cs.conv = chat.NewConversation(a.cfg.API, live.ID, cs.selfID)
	cs.conv.Replace(live.Messages, live.IsTyping)
	cs.view.SetMessages(cs.conv.Messages(), cs.conv.AgentTyping())

	chatID := live.ID
	cs.typing = chat.NewDebouncer(a.cfg.Chat.TypingDebounce, func() {
		ctx, cancel := context.WithTimeout(a.ctx, typingTimeout)
		defer cancel()
		if err := a.cfg.API.Typing(ctx, chatID); err != nil {
			slog.Debug("Typing signal failed", "error", err)
		}
	})

	gen := cs.gen
	conv := cs.conv
	cs.transport = chat.NewTransport(chat.ClientFeed{API: a.cfg.API}, chatID, chat.Options{
		OpenTimeout:  a.cfg.Chat.OpenTimeout,
		PollInterval: a.cfg.Chat.PollInterval,
		OnUpdate: func(u chat.Update) {
			conv.Apply(u)
			a.post(chatChangedMsg{gen: gen})
		},
		OnModeChange: func(m chat.Mode) {
			cs.mode.Store(int32(m))
			a.post(chatModeMsg{gen: gen, mode: m})
		},
		OnError: func(err error) {
			a.post(chatErrorMsg{gen: gen, err: err})
		},
	})
	return cs.transport.Start(a.ctx)
}

// updateChat handles chat messages. ok is false for messages it does not own.
func (a *App) updateChat(msg tea.Msg) (model tea.Model, cmd tea.Cmd, ok bool) {
	cs := a.chat

	switch msg := msg.(type) {
	case chatOpenedMsg:
		if !a.chatAvailable(msg.gen) {
			return a, nil, true
		}
		if msg.err != nil {
			if errors.Is(msg.err, client.ErrSessionExpired) {
				m, c := a.showLogin(expiredNotice)
				return m, c, true
			}
			cs.view.SetError(client.UserMessage(msg.err))
			return a, nil, true
		}
		if err := a.startTransport(cs, msg.live); err != nil {
			cs.view.SetError(err.Error())
		}
		return a, nil, true

	case chatChangedMsg:
		if a.chatAvailable(msg.gen) && cs.conv != nil {
			cs.syncStatus()
			cs.view.SetError("")
			cs.view.SetMessages(cs.conv.Messages(), cs.conv.AgentTyping())
		}
		return a, nil, true

	case chatModeMsg:
		if a.chatAvailable(msg.gen) {
			cs.syncStatus()
		}
		return a, nil, true

	case chatErrorMsg:
		if !a.chatAvailable(msg.gen) {
			return a, nil, true
		}
		if errors.Is(msg.err, client.ErrSessionExpired) {
			m, c := a.showLogin(expiredNotice)
			return m, c, true
		}
		cs.syncStatus()
		cs.view.SetError(client.UserMessage(msg.err))
		return a, nil, true

	case chatview.SendMsg:
		if cs.conv == nil {
			cs.view.RestoreInput(msg.Text)
			return a, nil, true
		}
		localID, err := cs.conv.Append(msg.Text)
		if err != nil {
			cs.view.SetError(err.Error())
			return a, nil, true
		}
		cs.view.SetMessages(cs.conv.Messages(), cs.conv.AgentTyping())
		return a, a.sendMessage(cs, localID, msg.Text), true

	case messageSentMsg:
		if !a.chatAvailable(msg.gen) {
			return a, nil, true
		}
		if msg.err != nil {
			cs.view.RestoreInput(cs.conv.Rollback(msg.localID))
			cs.view.SetError(client.UserMessage(msg.err))
		} else {
			cs.conv.Confirm(msg.localID, msg.msg)
		}
		cs.view.SetMessages(cs.conv.Messages(), cs.conv.AgentTyping())
		return a, nil, true

	case chatview.DeleteLastMsg:
		if cs.conv == nil {
			return a, nil, true
		}
		id := lastOwnMessage(cs.conv.Messages(), cs.selfID)
		if id == "" {
			cs.view.SetError("You have no messages to delete.")
			return a, nil, true
		}
		gen, conv := cs.gen, cs.conv
		return a, func() tea.Msg {
			return messageDeletedMsg{gen: gen, err: conv.Delete(a.ctx, id)}
		}, true

	case messageDeletedMsg:
		if a.chatAvailable(msg.gen) {
			if msg.err != nil {
				cs.view.SetError(client.UserMessage(msg.err))
			}
			cs.view.SetMessages(cs.conv.Messages(), cs.conv.AgentTyping())
		}
		return a, nil, true

	case chatview.InputChangedMsg:
		if cs.typing != nil {
			cs.typing.Changed(msg.Text)
		}
		return a, nil, true

	case chatview.LeaveMsg:
		a.closeChat()
		return a, nil, true
	}
	return a, nil, false
}

func (a *App) sendMessage(cs *chatSession, localID, text string) tea.Cmd {
	gen, chatID := cs.gen, cs.conv.ChatID()
	return func() tea.Msg {
		m, err := a.cfg.API.SendMessage(a.ctx, chatID, strings.TrimSpace(text))
		return messageSentMsg{gen: gen, localID: localID, msg: m, err: err}
	}
}

func lastOwnMessage(messages []client.ChatMessage, selfID string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if m := messages[i]; m.SenderID == selfID && !m.Pending {
			return m.ID
		}
	}
	return ""
}

func modeLabel(m chat.Mode) string {
	switch m {
	case chat.ModeStreaming:
		return "live"
	case chat.ModePolling:
		return "polling"
	case chat.ModeConnecting:
		return "connecting"
	default:
		return "offline"
	}
}
