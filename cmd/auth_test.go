// ABOUTME: Tests for login, registration, and logout commands
// ABOUTME: Drives the commands against the stub portal and checks exit codes and stored state

package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/markalston/fntc-portal/internal/portalstub"
)

func TestLogin_WrongPassword(t *testing.T) {
	newTestPortal(t, portalstub.Options{})

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, loginOptions{email: portalstub.DemoEmail, password: "nope"})

	if code != exitAuth {
		t.Errorf("expected exit code %d, got %d", exitAuth, code)
	}
	if !strings.Contains(buf.String(), "Invalid email or password") {
		t.Errorf("expected the server message, got %q", buf.String())
	}
}

func TestLogin_MissingCredentialsNonInteractive(t *testing.T) {
	newTestPortal(t, portalstub.Options{})

	var buf bytes.Buffer
	code := runLogin(context.Background(), &buf, loginOptions{email: portalstub.DemoEmail})

	if code != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, code)
	}
	if !strings.Contains(buf.String(), "email and password are required") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogin_SignsInAndWhoami(t *testing.T) {
	newTestPortal(t, portalstub.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	if code := runLogin(ctx, &buf, loginOptions{email: portalstub.DemoEmail, password: portalstub.DemoPassword}); code != exitOK {
		t.Fatalf("login failed with %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Signed in as Demo Customer") {
		t.Errorf("unexpected login output %q", buf.String())
	}

	buf.Reset()
	if code := runWhoami(ctx, &buf); code != exitOK {
		t.Fatalf("whoami failed with %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), portalstub.DemoEmail) {
		t.Errorf("expected whoami to show the email, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "Session valid until") {
		t.Errorf("expected token expiry in output, got %q", buf.String())
	}
}

func TestLogin_RememberedCredentials(t *testing.T) {
	newTestPortal(t, portalstub.Options{})
	ctx := context.Background()

	var buf bytes.Buffer
	code := runLogin(ctx, &buf, loginOptions{email: portalstub.DemoEmail, password: portalstub.DemoPassword, remember: true})
	if code != exitOK {
		t.Fatalf("login failed with %d: %s", code, buf.String())
	}

	buf.Reset()
	if code := runLogout(ctx, &buf, logoutOptions{}); code != exitOK {
		t.Fatalf("logout failed with %d: %s", code, buf.String())
	}

	// No flags: the vault supplies both fields
	buf.Reset()
	if code := runLogin(ctx, &buf, loginOptions{}); code != exitOK {
		t.Fatalf("login from remembered credentials failed with %d: %s", code, buf.String())
	}

	buf.Reset()
	if code := runLogout(ctx, &buf, logoutOptions{forget: true}); code != exitOK {
		t.Fatalf("logout --forget failed with %d: %s", code, buf.String())
	}

	buf.Reset()
	if code := runLogin(ctx, &buf, loginOptions{}); code != exitError {
		t.Errorf("expected login without remembered credentials to fail with %d, got %d", exitError, code)
	}
}

func TestWhoami_SignedOut(t *testing.T) {
	newTestPortal(t, portalstub.Options{})

	var buf bytes.Buffer
	code := runWhoami(context.Background(), &buf)

	if code != exitAuth {
		t.Errorf("expected exit code %d, got %d", exitAuth, code)
	}
	if !strings.Contains(buf.String(), "Not signed in") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogout_RevokesRemotely(t *testing.T) {
	stub := newTestPortal(t, portalstub.Options{})
	signInDemo(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if code := runLogout(ctx, &buf, logoutOptions{}); code != exitOK {
		t.Fatalf("logout failed with %d: %s", code, buf.String())
	}
	if len(stub.Requests("/auth/logout")) != 1 {
		t.Error("expected one remote logout call")
	}

	buf.Reset()
	if code := runStatus(ctx, &buf); code != exitAuth {
		t.Errorf("expected status after logout to exit %d, got %d", exitAuth, code)
	}
}

func TestLogout_LocalOnly(t *testing.T) {
	stub := newTestPortal(t, portalstub.Options{})
	signInDemo(t)

	var buf bytes.Buffer
	if code := runLogout(context.Background(), &buf, logoutOptions{local: true}); code != exitOK {
		t.Fatalf("logout failed with %d: %s", code, buf.String())
	}
	if n := len(stub.Requests("/auth/logout")); n != 0 {
		t.Errorf("expected no remote logout call, got %d", n)
	}
}

func TestRegisterAndVerify(t *testing.T) {
	newTestPortal(t, portalstub.Options{})
	ctx := context.Background()
	email := "new@fntc.net"

	var buf bytes.Buffer
	code := runRegister(ctx, &buf, registerRequest("New Customer", email, "secret123"))
	if code != exitOK {
		t.Fatalf("register failed with %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "fntc verify-otp --email "+email) {
		t.Errorf("expected a verify hint, got %q", buf.String())
	}

	buf.Reset()
	code = runLogin(ctx, &buf, loginOptions{email: email, password: "secret123"})
	if code == exitOK {
		t.Fatal("expected login before verification to fail")
	}
	if !strings.Contains(buf.String(), "not verified") {
		t.Errorf("expected a verification hint, got %q", buf.String())
	}

	buf.Reset()
	code = runVerifyOTP(ctx, &buf, verifyRequest(email, "000000"))
	if code == exitOK {
		t.Error("expected a wrong code to be rejected")
	}

	buf.Reset()
	code = runVerifyOTP(ctx, &buf, verifyRequest(email, portalstub.DemoOTP))
	if code != exitOK {
		t.Fatalf("verify failed with %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Signed in as New Customer") {
		t.Errorf("unexpected verify output %q", buf.String())
	}
}

func TestRegister_RequiresFields(t *testing.T) {
	var buf bytes.Buffer
	code := runRegister(context.Background(), &buf, registerRequest("", "a@b.c", ""))
	if code != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, code)
	}
}

func TestFormatSignedIn(t *testing.T) {
	if got := formatSignedIn(nil); got != "Signed in." {
		t.Errorf("unexpected nil output %q", got)
	}
}
