// ABOUTME: Sign-in screen as a bubbletea model
// ABOUTME: Wraps a huh form and emits SubmittedMsg with the entered credentials

package login

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/markalston/fntc-portal/internal/store"
	"github.com/markalston/fntc-portal/internal/tui/styles"
)

// SubmittedMsg is sent when the user completes the form
type SubmittedMsg struct {
	Credentials store.Credentials
	Remember    bool
}

// CancelledMsg is sent when the user leaves the form with esc
type CancelledMsg struct{}

// Login is the sign-in form
type Login struct {
	form   *huh.Form
	notice string
	err    string
	busy   bool
	width  int

	email    string
	password string
	remember bool
}

// New creates the form. prefill, if set, comes from remembered credentials.
// notice is shown above the form, e.g. after a session expired.
func New(prefill *store.Credentials, notice string) *Login {
	l := &Login{notice: notice}
	if prefill != nil {
		l.email = prefill.Email
		l.password = prefill.Password
		l.remember = true
	}
	l.form = l.buildForm()
	return l
}

func createTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(styles.Primary)
	t.Focused.Title = lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	t.Focused.ErrorIndicator = lipgloss.NewStyle().Foreground(styles.Danger).SetString(" *")
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(styles.Danger)
	t.Blurred = t.Focused
	t.Blurred.Base = lipgloss.NewStyle().
		PaddingLeft(1).
		BorderStyle(lipgloss.HiddenBorder()).
		BorderLeft(true)
	t.Blurred.Title = lipgloss.NewStyle().Foreground(styles.Muted)
	return t
}

func (l *Login) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&l.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&l.password).
				Validate(validatePassword),
			huh.NewConfirm().
				Title("Remember me on this device?").
				Value(&l.remember),
		).Title("Sign in to FNTC"),
	).WithTheme(createTheme()).WithShowHelp(false)
}

var errInvalidEmail = errors.New("enter a valid email address")

func errRequired(field string) error {
	return fmt.Errorf("%s is required", field)
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errRequired("email")
	}
	if !strings.Contains(s, "@") {
		return errInvalidEmail
	}
	return nil
}

func validatePassword(s string) error {
	if s == "" {
		return errRequired("password")
	}
	return nil
}

// Failed reopens the form after a rejected sign-in, keeping the email
func (l *Login) Failed(message string) tea.Cmd {
	l.busy = false
	l.err = message
	l.password = ""
	l.form = l.buildForm()
	return l.form.Init()
}

// Busy reports whether a sign-in request is in flight
func (l *Login) Busy() bool {
	return l.busy
}

// Init implements tea.Model
func (l *Login) Init() tea.Cmd {
	return l.form.Init()
}

// Update implements tea.Model
func (l *Login) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if l.busy {
		return l, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		return l, func() tea.Msg { return CancelledMsg{} }
	}
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		l.width = size.Width
	}

	form, cmd := l.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		l.form = f
	}

	if l.form.State == huh.StateCompleted {
		l.busy = true
		l.err = ""
		submitted := SubmittedMsg{
			Credentials: store.Credentials{Email: strings.TrimSpace(l.email), Password: l.password},
			Remember:    l.remember,
		}
		return l, func() tea.Msg { return submitted }
	}
	return l, cmd
}

// View implements tea.Model
func (l *Login) View() string {
	var sb strings.Builder
	if l.notice != "" {
		sb.WriteString(styles.StatusWarning.Render(l.notice))
		sb.WriteString("\n\n")
	}
	if l.busy {
		sb.WriteString(styles.Subtitle.Render("Signing in..."))
		return sb.String()
	}
	sb.WriteString(l.form.View())
	if l.err != "" {
		sb.WriteString("\n")
		sb.WriteString(styles.Error.Render(l.err))
	}
	return sb.String()
}
