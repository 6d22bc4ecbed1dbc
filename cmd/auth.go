// ABOUTME: Sign-in, registration, OTP verification, and sign-out commands
// ABOUTME: Prompts with huh forms when credentials are not passed as flags

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/oauth"
	"github.com/markalston/fntc-portal/internal/store"
)

type loginOptions struct {
	email    string
	password string
	remember bool
	google   bool
}

type logoutOptions struct {
	local  bool
	forget bool
}

var (
	loginOpts  loginOptions
	logoutOpts logoutOptions
	registerIn client.RegisterRequest
	otpIn      client.VerifyOTPRequest
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the portal",
	Long: `Sign in with email and password, or with --google through the browser.

Missing credentials are taken from "remember me" storage, then prompted for.`,
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runLogin(ctx, w, loginOpts)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a portal account",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runRegister(ctx, w, registerIn)
		})
	},
}

var verifyOTPCmd = &cobra.Command{
	Use:   "verify-otp",
	Short: "Confirm your email with the one-time code and sign in",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runVerifyOTP(ctx, w, otpIn)
		})
	},
}

var resendOTPCmd = &cobra.Command{
	Use:   "resend-otp",
	Short: "Send a new one-time code",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runResendOTP(ctx, w, otpIn.Email)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of this device",
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runLogout(ctx, w, logoutOpts)
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, verifyOTPCmd, resendOTPCmd, logoutCmd)

	loginCmd.Flags().StringVar(&loginOpts.email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginOpts.password, "password", "", "Account password")
	loginCmd.Flags().BoolVar(&loginOpts.remember, "remember", false, "Remember credentials on this device")
	loginCmd.Flags().BoolVar(&loginOpts.google, "google", false, "Sign in with Google")

	registerCmd.Flags().StringVar(&registerIn.DisplayName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&registerIn.Email, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerIn.Password, "password", "", "Account password")
	registerCmd.Flags().StringVar(&registerIn.Phone, "phone", "", "Phone number")

	verifyOTPCmd.Flags().StringVar(&otpIn.Email, "email", "", "Account email")
	verifyOTPCmd.Flags().StringVar(&otpIn.OTP, "code", "", "One-time code from the email")
	resendOTPCmd.Flags().StringVar(&otpIn.Email, "email", "", "Account email")

	logoutCmd.Flags().BoolVar(&logoutOpts.local, "local", false, "Only clear this device, do not revoke the session remotely")
	logoutCmd.Flags().BoolVar(&logoutOpts.forget, "forget", false, "Also forget remembered credentials")
}

func runLogin(ctx context.Context, w io.Writer, opts loginOptions) int {
	return withApp(ctx, w, func(a *app) int {
		var (
			resp *client.AuthResponse
			err  error
		)
		if opts.google {
			resp, err = a.googleLogin(ctx, w)
		} else {
			resp, err = a.passwordLogin(ctx, opts)
		}
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
				fmt.Fprintln(w, "Your email is not verified yet. Run `fntc verify-otp` with the code we sent you.")
			}
			return reportError(w, err)
		}

		if err := a.session.SignIn(ctx, resp); err != nil {
			return reportError(w, err)
		}

		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(resp.User))
		} else {
			fmt.Fprintln(w, formatSignedIn(resp.User))
		}
		return exitOK
	})
}

func (a *app) passwordLogin(ctx context.Context, opts loginOptions) (*client.AuthResponse, error) {
	creds := store.Credentials{Email: opts.email, Password: opts.password}
	recalled := false

	if creds.Email == "" || creds.Password == "" {
		saved, err := a.vault.Recall(ctx)
		switch {
		case err == nil && (creds.Email == "" || strings.EqualFold(creds.Email, saved.Email)):
			creds = *saved
			recalled = true
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	if creds.Email == "" || creds.Password == "" {
		if !interactive() {
			return nil, errors.New("email and password are required")
		}
		if err := promptCredentials(&creds); err != nil {
			return nil, err
		}
	}

	resp, err := a.auth.Login(ctx, client.LoginRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		if recalled && client.IsUnauthorized(err) {
			// The password changed since it was remembered
			_ = a.vault.Forget(ctx)
		}
		return nil, err
	}

	if opts.remember {
		if err := a.vault.Remember(ctx, creds); err != nil {
			return nil, fmt.Errorf("signed in, but failed to remember credentials: %w", err)
		}
	}
	return resp, nil
}

func (a *app) googleLogin(ctx context.Context, w io.Writer) (*client.AuthResponse, error) {
	if !a.cfg.Google.Enabled() {
		return nil, errors.New("google sign-in is not configured (set FNTC_GOOGLE_CLIENT_ID)")
	}
	flow := oauth.NewGoogleFlow(a.cfg.Google.ClientID, a.cfg.Google.ClientSecret)
	req, err := flow.Authorize(ctx, func(url string) error {
		fmt.Fprintf(w, "Opening your browser to sign in with Google:\n  %s\n", url)
		if err := openBrowser(url); err != nil {
			fmt.Fprintln(w, "Could not open a browser, open the link above manually.")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a.auth.GoogleSignIn(ctx, *req)
}

func runRegister(ctx context.Context, w io.Writer, req client.RegisterRequest) int {
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		fmt.Fprintln(w, "Error: --name, --email and --password are required")
		return exitError
	}
	return withApp(ctx, w, func(a *app) int {
		resp, err := a.auth.Register(ctx, req)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(resp))
			return exitOK
		}
		fmt.Fprintln(w, resp.Message)
		fmt.Fprintf(w, "Then run: fntc verify-otp --email %s --code <code>\n", req.Email)
		return exitOK
	})
}

func runVerifyOTP(ctx context.Context, w io.Writer, req client.VerifyOTPRequest) int {
	if req.Email == "" || req.OTP == "" {
		fmt.Fprintln(w, "Error: --email and --code are required")
		return exitError
	}
	return withApp(ctx, w, func(a *app) int {
		resp, err := a.auth.VerifyOTP(ctx, req)
		if err != nil {
			return reportError(w, err)
		}
		if err := a.session.SignIn(ctx, resp); err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(resp.User))
		} else {
			fmt.Fprintln(w, formatSignedIn(resp.User))
		}
		return exitOK
	})
}

func runResendOTP(ctx context.Context, w io.Writer, email string) int {
	if email == "" {
		fmt.Fprintln(w, "Error: --email is required")
		return exitError
	}
	return withApp(ctx, w, func(a *app) int {
		resp, err := a.auth.ResendOTP(ctx, email)
		if err != nil {
			return reportError(w, err)
		}
		fmt.Fprintln(w, resp.Message)
		return exitOK
	})
}

func runLogout(ctx context.Context, w io.Writer, opts logoutOptions) int {
	return withApp(ctx, w, func(a *app) int {
		if err := a.session.SignOut(ctx, !opts.local); err != nil {
			return reportError(w, err)
		}
		if opts.forget {
			if err := a.vault.Forget(ctx); err != nil {
				return reportError(w, err)
			}
		}
		fmt.Fprintln(w, "Signed out.")
		return exitOK
	})
}

func formatSignedIn(u *client.User) string {
	if u == nil {
		return "Signed in."
	}
	name := u.DisplayName
	if name == "" {
		name = u.Email
	}
	return fmt.Sprintf("Signed in as %s <%s>.", name, u.Email)
}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func promptCredentials(creds *store.Credentials) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&creds.Email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&creds.Password).
				Validate(required("password")),
		).Title("Sign in to FNTC"),
	).WithTheme(huh.ThemeBase())
	return form.Run()
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
