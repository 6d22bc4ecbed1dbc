// ABOUTME: Account commands: whoami, status, and profile update
// ABOUTME: whoami runs the startup bootstrap; status loads profile and plan in parallel

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/session"
)

var profileIn client.ProfileUpdate

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Restore the session and show the signed-in user",
	Long: `Runs the same startup sequence as the TUI: checks connectivity, refreshes the
session, and loads the profile. Works offline from the cached profile.

Exit codes: 0 signed in (or offline with a cached profile), 2 offline with
nothing cached, 3 signed out or session expired.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(runWhoami)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your profile and subscription",
	Run: func(cmd *cobra.Command, args []string) {
		run(runStatus)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile",
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runProfileUpdate(ctx, w, profileIn)
		})
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd, statusCmd, profileCmd)
	profileCmd.AddCommand(profileUpdateCmd)

	profileUpdateCmd.Flags().StringVar(&profileIn.DisplayName, "name", "", "Display name")
	profileUpdateCmd.Flags().StringVar(&profileIn.Phone, "phone", "", "Phone number")
	profileUpdateCmd.Flags().StringVar(&profileIn.Address, "address", "", "Service address")
	profileUpdateCmd.Flags().StringVar(&profileIn.PhotoURL, "photo-url", "", "Profile photo URL")
}

// whoamiResult is the JSON shape of whoami
type whoamiResult struct {
	State       string       `json:"state"`
	User        *client.User `json:"user,omitempty"`
	TokenExpiry *time.Time   `json:"tokenExpiry,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

func runWhoami(ctx context.Context, w io.Writer) int {
	return withApp(ctx, w, func(a *app) int {
		res, err := a.session.Bootstrap(ctx, nil)

		out := whoamiResult{State: res.State.String(), User: res.User}
		if exp, ok := a.session.TokenExpiry(ctx); ok && res.State == session.StateAuthenticated {
			out.TokenExpiry = &exp
		}
		if err != nil {
			out.Warning = client.UserMessage(err)
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(out))
		} else {
			fmt.Fprintln(w, formatWhoamiHuman(out, res.State))
		}

		switch res.State {
		case session.StateAuthenticated, session.StateOfflineCached:
			return exitOK
		case session.StateOfflineNoData:
			return exitBackend
		default:
			return exitAuth
		}
	})
}

func formatWhoamiHuman(r whoamiResult, state session.State) string {
	var b strings.Builder
	switch state {
	case session.StateSignedOut:
		b.WriteString("Not signed in. Run `fntc login`.")
	case session.StateSessionExpired:
		b.WriteString("Your session expired. Run `fntc login` to sign in again.")
	case session.StateOfflineNoData:
		b.WriteString("You appear to be offline and no profile is saved on this device.")
	default:
		if state.Offline() {
			b.WriteString("Offline: showing your saved profile.\n")
		}
		if r.User != nil {
			fmt.Fprintf(&b, "%s <%s>", r.User.DisplayName, r.User.Email)
		} else {
			b.WriteString("Signed in.")
		}
		if r.TokenExpiry != nil {
			fmt.Fprintf(&b, "\nSession valid until %s", r.TokenExpiry.Local().Format(time.Kitchen))
		}
	}
	if r.Warning != "" {
		fmt.Fprintf(&b, "\nWarning: %s", r.Warning)
	}
	return b.String()
}

// statusResult is the JSON shape of status
type statusResult struct {
	User         *client.User                `json:"user"`
	Subscription *client.SubscriptionDetails `json:"subscription"`
}

func runStatus(ctx context.Context, w io.Writer) int {
	return withSession(ctx, w, func(a *app) int {
		var res statusResult

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			u, err := a.api.Me(gctx)
			res.User = u
			return err
		})
		g.Go(func() error {
			d, err := a.api.SubscriptionDetails(gctx)
			res.Subscription = d
			return err
		})
		if err := g.Wait(); err != nil {
			return reportError(w, err)
		}
		if err := a.session.SetUser(ctx, res.User); err != nil {
			return reportError(w, err)
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(res))
		} else {
			fmt.Fprintln(w, formatStatusHuman(res))
		}
		return exitOK
	})
}

func formatStatusHuman(r statusResult) string {
	var b strings.Builder
	b.WriteString("Account\n")
	b.WriteString("=======\n")
	if u := r.User; u != nil {
		fmt.Fprintf(&b, "  Name:    %s\n", u.DisplayName)
		fmt.Fprintf(&b, "  Email:   %s\n", u.Email)
		if u.Phone != "" {
			fmt.Fprintf(&b, "  Phone:   %s\n", u.Phone)
		}
		if u.Address != "" {
			fmt.Fprintf(&b, "  Address: %s\n", u.Address)
		}
	}
	b.WriteString("\n")
	b.WriteString(formatDetailsHuman(r.Subscription))
	return strings.TrimRight(b.String(), "\n")
}

func runProfileUpdate(ctx context.Context, w io.Writer, update client.ProfileUpdate) int {
	if update == (client.ProfileUpdate{}) {
		fmt.Fprintln(w, "Error: nothing to update, pass at least one of --name, --phone, --address, --photo-url")
		return exitError
	}
	return withSession(ctx, w, func(a *app) int {
		u, err := a.api.UpdateMe(ctx, update)
		if err != nil {
			return reportError(w, err)
		}
		if err := a.session.SetUser(ctx, u); err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(u))
		} else {
			fmt.Fprintf(w, "Profile updated: %s <%s>\n", u.DisplayName, u.Email)
		}
		return exitOK
	})
}
