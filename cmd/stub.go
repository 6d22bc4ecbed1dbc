// ABOUTME: Serves the in-memory portal backend for local development
// ABOUTME: Shuts down gracefully on SIGINT/SIGTERM

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/logger"
	"github.com/markalston/fntc-portal/internal/portalstub"
)

type stubOptions struct {
	addr      string
	publicURL string
	secret    string
	noStream  bool
	origins   []string
	attempts  int
}

var stubOpts stubOptions

var stubCmd = &cobra.Command{
	Use:   "stub",
	Short: "Run a local in-memory portal backend",
	Long: fmt.Sprintf(`Serves every portal endpoint from memory for development and demos.

Sign in with %s / %s. New accounts verify with code %s.`,
		portalstub.DemoEmail, portalstub.DemoPassword, portalstub.DemoOTP),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runStub(ctx, w, stubOpts)
		})
	},
}

func init() {
	rootCmd.AddCommand(stubCmd)
	stubCmd.Flags().StringVar(&stubOpts.addr, "addr", ":5000", "Listen address")
	stubCmd.Flags().StringVar(&stubOpts.publicURL, "public-url", "", "Base URL used in checkout links (default: request host)")
	stubCmd.Flags().StringVar(&stubOpts.secret, "secret", os.Getenv("FNTC_STUB_SECRET"), "Token signing secret (default: random)")
	stubCmd.Flags().BoolVar(&stubOpts.noStream, "no-stream", false, "Never confirm chat streams, forcing clients to poll")
	stubCmd.Flags().StringSliceVar(&stubOpts.origins, "cors-origin", nil, "Allow browser requests from this origin (repeatable, * for any)")
	stubCmd.Flags().IntVar(&stubOpts.attempts, "login-attempts", 10, "Sign-in attempts allowed per address each minute (0 disables)")
}

func runStub(ctx context.Context, w io.Writer, opts stubOptions) int {
	logger.Init(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}

	stub := portalstub.New(portalstub.Options{
		Secret:         []byte(opts.secret),
		PublicURL:      opts.publicURL,
		DisableStream:  opts.noStream,
		AllowedOrigins: opts.origins,
		LoginAttempts:  opts.attempts,
	})
	fmt.Fprintf(w, "Portal stub listening on http://%s/api (demo login %s / %s)\n",
		ln.Addr(), portalstub.DemoEmail, portalstub.DemoPassword)

	if err := serveStub(ctx, ln, stub); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// serveStub serves h on ln until ctx is done
func serveStub(ctx context.Context, ln net.Listener, h http.Handler) error {
	// Request contexts end when shutdown starts so open chat streams return
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	// Chat streams stay open, so there is no write timeout
	srv := &http.Server{
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Stub listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cancelRequests()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Stub forced to shutdown", "error", err)
		srv.Close()
		return err
	}
	slog.Info("Stub stopped")
	return nil
}
