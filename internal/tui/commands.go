// ABOUTME: Backend calls run as bubbletea commands
// ABOUTME: Bootstrap, sign-in, sign-out, and the parallel home screen load

package tui

import (
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/session"
	"github.com/markalston/fntc-portal/internal/store"
)

// cachedUserMsg carries the saved profile shown while bootstrap runs
type cachedUserMsg struct {
	user *client.User
}

// bootstrapDoneMsg is sent when the startup sequence resolves
type bootstrapDoneMsg struct {
	result     session.BootstrapResult
	err        error
	remembered *store.Credentials
}

// signedInMsg is sent when a sign-in attempt completes
type signedInMsg struct {
	user       *client.User
	remembered *store.Credentials
	err        error
}

// homeLoadedMsg is sent when profile and subscription are loaded
type homeLoadedMsg struct {
	user    *client.User
	details *client.SubscriptionDetails
	err     error
}

// paymentStartedMsg is sent when a checkout was created
type paymentStartedMsg struct {
	checkout *client.PaymentInitiation
	err      error
}

// signedOutMsg is sent after the local session is cleared
type signedOutMsg struct{}

func (a *App) bootstrap() tea.Cmd {
	return func() tea.Msg {
		res, err := a.cfg.Session.Bootstrap(a.ctx, func(u *client.User) {
			a.post(cachedUserMsg{user: u})
		})

		msg := bootstrapDoneMsg{result: res, err: err}
		if res.State == session.StateSignedOut || res.State == session.StateSessionExpired {
			creds, err := a.cfg.Vault.Recall(a.ctx)
			switch {
			case err == nil:
				msg.remembered = creds
			case !errors.Is(err, store.ErrNotFound):
				slog.Warn("Ignoring remembered credentials", "error", err)
			}
		}
		return msg
	}
}

func (a *App) signIn(creds store.Credentials, remember bool) tea.Cmd {
	return func() tea.Msg {
		resp, err := a.cfg.Auth.Login(a.ctx, client.LoginRequest{Email: creds.Email, Password: creds.Password})
		if err != nil {
			return signedInMsg{err: err}
		}
		if err := a.cfg.Session.SignIn(a.ctx, resp); err != nil {
			return signedInMsg{err: err}
		}

		if remember {
			err = a.cfg.Vault.Remember(a.ctx, creds)
		} else {
			err = a.cfg.Vault.Forget(a.ctx)
		}
		if err != nil {
			slog.Warn("Failed to update remembered credentials", "error", err)
		}

		msg := signedInMsg{user: resp.User}
		if remember {
			msg.remembered = &creds
		}
		return msg
	}
}

// loadHome fetches the profile and subscription in parallel
func (a *App) loadHome() tea.Cmd {
	return func() tea.Msg {
		var msg homeLoadedMsg

		g, ctx := errgroup.WithContext(a.ctx)
		g.Go(func() error {
			u, err := a.cfg.API.Me(ctx)
			msg.user = u
			return err
		})
		g.Go(func() error {
			d, err := a.cfg.API.SubscriptionDetails(ctx)
			msg.details = d
			return err
		})
		if err := g.Wait(); err != nil {
			return homeLoadedMsg{err: err}
		}

		if err := a.cfg.Session.SetUser(a.ctx, msg.user); err != nil {
			slog.Warn("Failed to cache profile", "error", err)
		}
		if err := a.cfg.Prefs.SetLastNotificationCheck(a.ctx, time.Now()); err != nil {
			slog.Debug("Failed to record notification check", "error", err)
		}
		return msg
	}
}

func (a *App) startPayment(invoiceID string) tea.Cmd {
	return func() tea.Msg {
		checkout, err := a.cfg.API.InitiatePayment(a.ctx, client.PaymentRequest{InvoiceID: invoiceID})
		return paymentStartedMsg{checkout: checkout, err: err}
	}
}

func (a *App) signOut() tea.Cmd {
	a.closeChat()
	return func() tea.Msg {
		if err := a.cfg.Session.SignOut(a.ctx, true); err != nil {
			slog.Warn("Sign-out left local state behind", "error", err)
		}
		return signedOutMsg{}
	}
}
