// ABOUTME: Root bubbletea model for the portal TUI
// ABOUTME: Manages screen state, routes input to child screens, and runs backend calls as commands

package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/config"
	"github.com/markalston/fntc-portal/internal/session"
	"github.com/markalston/fntc-portal/internal/store"
	"github.com/markalston/fntc-portal/internal/tui/home"
	"github.com/markalston/fntc-portal/internal/tui/login"
	"github.com/markalston/fntc-portal/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenSplash Screen = iota
	ScreenLogin
	ScreenHome
	ScreenChat
)

// Layout constants
const (
	minTerminalWidth = 60
	eventBuffer      = 32
)

const expiredNotice = "Your session expired. Please sign in again."

// Config holds the collaborators the TUI drives
type Config struct {
	Session *session.Manager
	// Auth is the undecorated client used for sign-in
	Auth *client.Client
	// API attaches the session token to every request
	API   *client.Client
	Prefs *store.Prefs
	Vault *store.Vault
	Chat  config.ChatConfig
	// OpenURL opens a checkout page; nil only prints the link
	OpenURL func(string) error
}

// App is the root model for the TUI
type App struct {
	cfg    Config
	ctx    context.Context
	screen Screen
	width  int
	height int

	spinner    spinner.Model
	splashText string
	retryable  bool
	remembered *store.Credentials

	login   *login.Login
	home    *home.Home
	chat    *chatSession
	chatGen uint64

	// events carries messages posted from non-UI goroutines
	events chan tea.Msg
}

// New creates the TUI application. ctx bounds every backend call.
func New(ctx context.Context, cfg Config) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &App{
		cfg:        cfg,
		ctx:        ctx,
		screen:     ScreenSplash,
		spinner:    s,
		splashText: "Restoring your session...",
		events:     make(chan tea.Msg, eventBuffer),
	}
}

// eventMsg wraps a message that arrived through the events channel
type eventMsg struct {
	inner tea.Msg
}

// post delivers msg to the UI without blocking the caller. When the buffer
// is full the message is dropped. Chat handlers read the conversation and
// the transport mode from shared state, so any later chat event shows what
// a dropped one carried.
func (a *App) post(msg tea.Msg) {
	select {
	case a.events <- msg:
	default:
		slog.Debug("UI event buffer full, dropping event")
	}
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-a.events:
			return eventMsg{inner: msg}
		case <-a.ctx.Done():
			return nil
		}
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.bootstrap(), a.waitForEvent())
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		model, cmd := a.Update(msg.inner)
		return model, tea.Batch(cmd, a.waitForEvent())

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.home != nil {
			a.home.SetWidth(msg.Width)
		}
		if a.chat != nil {
			a.chat.view.Update(tea.WindowSizeMsg{Width: msg.Width - 2, Height: a.contentHeight()})
		}
		if a.login != nil {
			a.login.Update(msg)
		}
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.closeChat()
			return a, tea.Quit
		}
		return a.routeKey(msg)

	case spinner.TickMsg:
		if a.screen != ScreenSplash {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case cachedUserMsg:
		if a.screen == ScreenSplash && msg.user != nil {
			a.splashText = "Welcome back, " + displayName(msg.user) + ". Restoring your session..."
		}
		return a, nil

	case bootstrapDoneMsg:
		return a.handleBootstrap(msg)

	case login.SubmittedMsg:
		return a, a.signIn(msg.Credentials, msg.Remember)

	case login.CancelledMsg:
		return a, tea.Quit

	case signedInMsg:
		if msg.err != nil {
			return a, a.login.Failed(client.UserMessage(msg.err))
		}
		a.remembered = msg.remembered
		return a.showHome(msg.user, false)

	case homeLoadedMsg:
		return a.handleHomeLoaded(msg)

	case paymentStartedMsg:
		return a.handlePaymentStarted(msg)

	case signedOutMsg:
		return a.showLogin("Signed out.")
	}

	if a.chat != nil {
		if model, cmd, ok := a.updateChat(msg); ok {
			return model, cmd
		}
	}

	// Internal messages of the focused screen (cursor blink, form focus)
	switch a.screen {
	case ScreenLogin:
		if a.login != nil {
			_, cmd := a.login.Update(msg)
			return a, cmd
		}
	case ScreenChat:
		if a.chat != nil {
			_, cmd := a.chat.view.Update(msg)
			return a, cmd
		}
	}
	return a, nil
}

func (a *App) routeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.screen {
	case ScreenSplash:
		switch msg.String() {
		case "r":
			if a.retryable {
				return a.restart()
			}
		case "q", "esc":
			return a, tea.Quit
		}
		return a, nil

	case ScreenLogin:
		_, cmd := a.login.Update(msg)
		return a, cmd

	case ScreenHome:
		switch msg.String() {
		case "q":
			return a, tea.Quit
		case "r":
			if a.home.Offline() {
				return a.restart()
			}
			a.home.SetLoading()
			return a, a.loadHome()
		case "c":
			if a.home.Offline() {
				a.home.SetError("Support chat needs a connection.")
				return a, nil
			}
			return a, a.openChat()
		case "p":
			if a.home.Offline() {
				a.home.SetError("Payments need a connection.")
				return a, nil
			}
			inv := a.home.NextInvoice()
			if inv == nil {
				a.home.SetNotice("Nothing to pay.")
				return a, nil
			}
			return a, a.startPayment(inv.ID)
		case "l":
			return a, a.signOut()
		}
		return a, nil

	case ScreenChat:
		if a.chat != nil {
			_, cmd := a.chat.view.Update(msg)
			return a, cmd
		}
	}
	return a, nil
}

func (a *App) handleBootstrap(msg bootstrapDoneMsg) (tea.Model, tea.Cmd) {
	a.remembered = msg.remembered
	res := msg.result

	switch res.State {
	case session.StateAuthenticated:
		model, cmd := a.showHome(res.User, false)
		if msg.err != nil {
			a.home.SetError(client.UserMessage(msg.err))
		}
		return model, cmd
	case session.StateOfflineCached:
		return a.showHome(res.User, true)
	case session.StateOfflineNoData:
		a.splashText = "You appear to be offline and nothing is saved on this device."
		a.retryable = true
		return a, nil
	case session.StateSessionExpired:
		return a.showLogin(expiredNotice)
	default:
		if msg.err != nil {
			slog.Warn("Bootstrap failed", "error", msg.err)
		}
		return a.showLogin("")
	}
}

func (a *App) handleHomeLoaded(msg homeLoadedMsg) (tea.Model, tea.Cmd) {
	if a.home == nil || a.screen == ScreenLogin {
		return a, nil
	}
	if errors.Is(msg.err, client.ErrSessionExpired) {
		return a.showLogin(expiredNotice)
	}
	if msg.err != nil {
		a.home.SetError(client.UserMessage(msg.err))
		return a, nil
	}
	a.home.SetData(msg.user, msg.details)
	return a, nil
}

func (a *App) handlePaymentStarted(msg paymentStartedMsg) (tea.Model, tea.Cmd) {
	if a.home == nil {
		return a, nil
	}
	if errors.Is(msg.err, client.ErrSessionExpired) {
		return a.showLogin(expiredNotice)
	}
	if msg.err != nil {
		a.home.SetError(client.UserMessage(msg.err))
		return a, nil
	}
	url := msg.checkout.CheckoutURL
	if a.cfg.OpenURL != nil {
		if err := a.cfg.OpenURL(url); err == nil {
			a.home.SetNotice("Checkout opened in your browser.")
			return a, nil
		}
	}
	a.home.SetNotice("Complete payment at " + url)
	return a, nil
}

// restart goes back to the splash screen and bootstraps again
func (a *App) restart() (tea.Model, tea.Cmd) {
	a.closeChat()
	a.screen = ScreenSplash
	a.splashText = "Restoring your session..."
	a.retryable = false
	a.home = nil
	return a, tea.Batch(a.spinner.Tick, a.bootstrap())
}

func (a *App) showLogin(notice string) (tea.Model, tea.Cmd) {
	a.closeChat()
	a.home = nil
	a.login = login.New(a.remembered, notice)
	a.screen = ScreenLogin
	return a, a.login.Init()
}

func (a *App) showHome(user *client.User, offline bool) (tea.Model, tea.Cmd) {
	a.login = nil
	a.home = home.New(user, offline)
	a.home.SetWidth(a.width)
	a.screen = ScreenHome
	if offline {
		return a, nil
	}
	return a, a.loadHome()
}

func (a *App) contentHeight() int {
	// header and footer take one line each
	return max(5, a.height-2)
}

// View implements tea.Model
func (a *App) View() string {
	var content string
	switch a.screen {
	case ScreenSplash:
		content = a.renderSplash()
	case ScreenLogin:
		content = a.login.View()
	case ScreenHome:
		content = a.home.View()
	case ScreenChat:
		if a.chat != nil {
			content = a.chat.view.View()
		}
	}
	return a.wrapWithFrame(content)
}

func (a *App) renderSplash() string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render("FNTC Customer Portal"))
	sb.WriteString("\n")
	if a.retryable {
		sb.WriteString(styles.StatusWarning.Render(a.splashText))
	} else {
		sb.WriteString(a.spinner.View() + " " + a.splashText)
	}
	return sb.String()
}

func (a *App) renderHeader() string {
	width := max(a.width, minTerminalWidth)
	title := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render(" FNTC ")
	right := ""
	if a.home != nil && a.home.User() != nil {
		right = styles.Subtitle.Render(a.home.User().Email + " ")
	}
	fill := width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	return lipgloss.NewStyle().Foreground(styles.Muted).Render("─") + title +
		lipgloss.NewStyle().Foreground(styles.Muted).Render(strings.Repeat("─", max(0, fill))) + right
}

func (a *App) renderFooter() string {
	var shortcuts []string
	switch a.screen {
	case ScreenSplash:
		if a.retryable {
			shortcuts = []string{"r Retry", "q Quit"}
		} else {
			shortcuts = []string{"q Quit"}
		}
	case ScreenLogin:
		shortcuts = []string{"Tab Next", "Enter Submit", "Esc Quit"}
	case ScreenHome:
		if a.home != nil && a.home.Offline() {
			shortcuts = []string{"r Retry", "q Quit"}
		} else {
			shortcuts = []string{"c Chat", "p Pay", "r Refresh", "l Sign out", "q Quit"}
		}
	case ScreenChat:
		shortcuts = []string{"Enter Send", "Ctrl+x Delete last", "↑↓ Scroll", "Esc Back"}
	}

	styled := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		parts := strings.SplitN(s, " ", 2)
		styled = append(styled, styles.Key.Render(parts[0])+" "+styles.Subtitle.Render(parts[1]))
	}
	return " " + strings.Join(styled, "  ")
}

// wrapWithFrame wraps content with header and footer
func (a *App) wrapWithFrame(content string) string {
	body := lipgloss.NewStyle().Padding(0, 1).Height(a.contentHeight()).Render(content)
	return a.renderHeader() + "\n" + body + "\n" + a.renderFooter()
}

func displayName(u *client.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

// Run starts the TUI and blocks until it exits
func Run(ctx context.Context, cfg Config) error {
	app := New(ctx, cfg)
	defer app.closeChat()

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tea.ErrProgramPanic):
		slog.Error("TUI crashed", "error", err)
		return fmt.Errorf("the portal screen crashed, details are in debug.log: %w", err)
	case ctx.Err() != nil:
		// Interrupted by a signal
		return nil
	}
	return err
}

// chatAvailable reports whether gen belongs to the open chat
func (a *App) chatAvailable(gen uint64) bool {
	return a.chat != nil && a.chat.gen == gen
}
