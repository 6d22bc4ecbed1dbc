// ABOUTME: Integration tests for the TUI app
// ABOUTME: Tests screen transitions and chat wiring against the stub portal

package tui

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/markalston/fntc-portal/internal/chat"
	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/config"
	"github.com/markalston/fntc-portal/internal/portalstub"
	"github.com/markalston/fntc-portal/internal/session"
	"github.com/markalston/fntc-portal/internal/store"
	"github.com/markalston/fntc-portal/internal/tui/chatview"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newLiveApp wires an App to a stub portal the way the tui command does
func newLiveApp(t *testing.T) (*App, *portalstub.Server) {
	t.Helper()
	stub := portalstub.New(portalstub.Options{})
	server := httptest.NewServer(stub)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	s, err := store.Open(context.Background(), config.StoreConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "state.json")})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	base := server.URL + "/api"
	auth := client.New(base)
	mgr := session.NewManager(s, auth, session.Options{})
	api := client.New(base, client.WithTransport(mgr.RoundTripper(http.DefaultTransport)))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := New(ctx, Config{
		Session: mgr,
		Auth:    auth,
		API:     api,
		Prefs:   store.NewPrefs(s),
		Vault:   store.NewVault(s, dir),
		Chat: config.ChatConfig{
			OpenTimeout:    time.Second,
			PollInterval:   100 * time.Millisecond,
			TypingDebounce: 50 * time.Millisecond,
		},
	})
	app.width, app.height = 100, 40
	t.Cleanup(app.closeChat)
	return app, stub
}

// nextEvent waits for a message posted by a transport callback
func nextEvent(t *testing.T, app *App, match func(tea.Msg) bool) tea.Msg {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-app.events:
			app.Update(msg)
			if match(msg) {
				return msg
			}
		case <-timeout:
			t.Fatal("timed out waiting for a chat event")
		}
	}
}

func findMessage(conv *chat.Conversation, text string) (client.ChatMessage, bool) {
	for _, m := range conv.Messages() {
		if m.Text == text {
			return m, true
		}
	}
	return client.ChatMessage{}, false
}

func TestAppInitialState(t *testing.T) {
	app := New(context.Background(), Config{})

	if app.screen != ScreenSplash {
		t.Errorf("expected initial screen to be ScreenSplash, got %d", app.screen)
	}
	if !strings.Contains(app.View(), "Restoring your session") {
		t.Error("expected the splash text in the view")
	}
}

func TestScreenConstants(t *testing.T) {
	if ScreenSplash != 0 || ScreenLogin != 1 || ScreenHome != 2 || ScreenChat != 3 {
		t.Error("unexpected screen constant values")
	}
}

func TestAppBootstrapStates(t *testing.T) {
	user := &client.User{ID: "u1", Email: "demo@fntc.net", DisplayName: "Demo"}
	tests := []struct {
		name      string
		result    session.BootstrapResult
		screen    Screen
		offline   bool
		retryable bool
	}{
		{"authenticated", session.BootstrapResult{State: session.StateAuthenticated, User: user}, ScreenHome, false, false},
		{"offline cached", session.BootstrapResult{State: session.StateOfflineCached, User: user}, ScreenHome, true, false},
		{"offline no data", session.BootstrapResult{State: session.StateOfflineNoData}, ScreenSplash, false, true},
		{"expired", session.BootstrapResult{State: session.StateSessionExpired}, ScreenLogin, false, false},
		{"signed out", session.BootstrapResult{State: session.StateSignedOut}, ScreenLogin, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := New(context.Background(), Config{})
			app.Update(bootstrapDoneMsg{result: tt.result})

			if app.screen != tt.screen {
				t.Errorf("expected screen %d, got %d", tt.screen, app.screen)
			}
			if tt.screen == ScreenHome && app.home.Offline() != tt.offline {
				t.Errorf("expected offline=%t", tt.offline)
			}
			if app.retryable != tt.retryable {
				t.Errorf("expected retryable=%t", tt.retryable)
			}
		})
	}
}

func TestAppExpiredShowsNotice(t *testing.T) {
	app := New(context.Background(), Config{})
	app.Update(bootstrapDoneMsg{result: session.BootstrapResult{State: session.StateSessionExpired}})

	if !strings.Contains(app.View(), expiredNotice) {
		t.Error("expected the expired notice on the login screen")
	}
}

func TestAppOfflineHomeBlocksChat(t *testing.T) {
	app := New(context.Background(), Config{})
	app.Update(bootstrapDoneMsg{result: session.BootstrapResult{
		State: session.StateOfflineCached,
		User:  &client.User{ID: "u1", DisplayName: "Demo"},
	}})

	_, cmd := app.Update(key("c"))
	if cmd != nil {
		t.Error("expected no command when opening chat offline")
	}
	if app.screen != ScreenHome || app.chat != nil {
		t.Error("expected to stay on the home screen")
	}
	if !strings.Contains(app.View(), "needs a connection") {
		t.Error("expected an offline error")
	}
}

func TestAppHomeLoadExpired(t *testing.T) {
	app := New(context.Background(), Config{})
	app.Update(bootstrapDoneMsg{result: session.BootstrapResult{State: session.StateAuthenticated, User: &client.User{ID: "u1"}}})

	app.Update(homeLoadedMsg{err: client.ErrSessionExpired})
	if app.screen != ScreenLogin {
		t.Errorf("expected login screen after expiry, got %d", app.screen)
	}
}

func TestAppSignInFailureKeepsLogin(t *testing.T) {
	app := New(context.Background(), Config{})
	app.Update(bootstrapDoneMsg{result: session.BootstrapResult{State: session.StateSignedOut}})

	app.Update(signedInMsg{err: &client.APIError{Status: 401, Message: "Invalid email or password"}})
	if app.screen != ScreenLogin {
		t.Errorf("expected to stay on login, got %d", app.screen)
	}
	if !strings.Contains(app.View(), "Invalid email or password") {
		t.Error("expected the server message on the login screen")
	}
}

func TestAppIgnoresStaleChatMessages(t *testing.T) {
	app := New(context.Background(), Config{})
	app.screen = ScreenChat
	app.chat = &chatSession{gen: 2, selfID: "u1", view: chatview.New("u1")}

	app.Update(chatErrorMsg{gen: 1, err: errors.New("from an older chat")})
	if strings.Contains(app.View(), "from an older chat") {
		t.Error("expected a stale chat error to be ignored")
	}

	app.Update(chatErrorMsg{gen: 2, err: errors.New("current chat failed")})
	if !strings.Contains(app.View(), "current chat failed") {
		t.Error("expected the current chat error to be shown")
	}
}

func TestAppChatStatusSurvivesDroppedModeEvent(t *testing.T) {
	app := New(context.Background(), Config{})
	app.screen = ScreenChat
	cs := &chatSession{gen: 1, selfID: "u1", view: chatview.New("u1"), conv: chat.NewConversation(nil, "c1", "u1")}
	app.chat = cs

	// The transport switched to polling but its mode event never arrived
	cs.mode.Store(int32(chat.ModePolling))
	app.Update(chatChangedMsg{gen: 1})
	if !strings.Contains(app.View(), "(polling)") {
		t.Errorf("expected the polling status after a later update, got:\n%s", app.View())
	}

	cs.mode.Store(int32(chat.ModeStreaming))
	app.Update(chatErrorMsg{gen: 1, err: errors.New("fetch failed")})
	if !strings.Contains(app.View(), "(live)") {
		t.Errorf("expected the live status after an error event, got:\n%s", app.View())
	}
}

func TestAppFailedSendRestoresInput(t *testing.T) {
	app := New(context.Background(), Config{})
	app.screen = ScreenChat
	conv := chat.NewConversation(nil, "c1", "u1")
	app.chat = &chatSession{gen: 1, selfID: "u1", view: chatview.New("u1"), conv: conv}

	localID, err := conv.Append("are you there?")
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	app.Update(messageSentMsg{gen: 1, localID: localID, err: errors.New("send failed")})

	if n := len(conv.Messages()); n != 0 {
		t.Errorf("expected the pending message to be rolled back, got %d messages", n)
	}
	view := app.View()
	if !strings.Contains(view, "are you there?") {
		t.Error("expected the text back in the input")
	}
	if !strings.Contains(view, "send failed") {
		t.Error("expected the send error")
	}
}

func TestAppLeaveChatReturnsHome(t *testing.T) {
	app := New(context.Background(), Config{})
	app.Update(bootstrapDoneMsg{result: session.BootstrapResult{State: session.StateOfflineCached, User: &client.User{ID: "u1"}}})
	app.screen = ScreenChat
	app.chat = &chatSession{gen: 1, view: chatview.New("u1")}

	app.Update(chatview.LeaveMsg{})
	if app.screen != ScreenHome || app.chat != nil {
		t.Error("expected leaving the chat to close it and return home")
	}
}

func TestAppSignInLoadHomeAndChat(t *testing.T) {
	app, stub := newLiveApp(t)

	app.Update(app.bootstrap()())
	if app.screen != ScreenLogin {
		t.Fatalf("expected login screen, got %d", app.screen)
	}

	_, cmd := app.Update(app.signIn(store.Credentials{Email: portalstub.DemoEmail, Password: portalstub.DemoPassword}, false)())
	if app.screen != ScreenHome {
		t.Fatalf("expected home screen, got %d", app.screen)
	}
	app.Update(cmd())
	if !strings.Contains(app.View(), "Fiber 100") {
		t.Errorf("expected the plan on the home screen, got:\n%s", app.View())
	}

	app.openChat()
	gen := app.chat.gen
	app.Update(app.fetchChat(gen)())
	if app.chat.transport == nil {
		t.Fatal("expected the transport to start")
	}
	nextEvent(t, app, func(msg tea.Msg) bool {
		m, ok := msg.(chatModeMsg)
		return ok && m.mode == chat.ModeStreaming
	})

	_, cmd = app.Update(chatview.SendMsg{Text: "Hello support"})
	app.Update(cmd())
	if m, ok := findMessage(app.chat.conv, "Hello support"); !ok || m.Pending {
		t.Fatalf("expected a confirmed message, got %+v", app.chat.conv.Messages())
	}

	if err := stub.AgentSay(app.chat.conv.ChatID(), "Hi, how can I help?"); err != nil {
		t.Fatalf("AgentSay: %v", err)
	}
	nextEvent(t, app, func(msg tea.Msg) bool {
		_, ok := msg.(chatChangedMsg)
		_, found := findMessage(app.chat.conv, "Hi, how can I help?")
		return ok && found
	})
	if !strings.Contains(app.View(), "Hi, how can I help?") {
		t.Error("expected the agent reply in the chat view")
	}

	_, cmd = app.Update(key("esc"))
	app.Update(cmd())
	if app.screen != ScreenHome || app.chat != nil {
		t.Error("expected to be back home with the chat closed")
	}
}
