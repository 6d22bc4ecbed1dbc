// ABOUTME: Root command for the fntc portal CLI
// ABOUTME: Handles global flags, configuration loading, and exit codes

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/client"
	"github.com/markalston/fntc-portal/internal/config"
)

var (
	apiURL     string
	configPath string
	jsonOutput bool
)

// Exit codes
const (
	exitOK      = 0
	exitError   = 1 // usage or local failure
	exitBackend = 2 // portal unreachable or returned an error
	exitAuth    = 3 // not signed in or session expired
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "fntc",
	Short: "FNTC customer portal",
	Long: `fntc is the command-line and terminal client for the FNTC customer portal.

Sign in, manage your internet subscription, pay invoices, and talk to support.

Environment Variables:
  FNTC_API_URL        Portal API URL (default: http://localhost:5000/api)
  FNTC_STORE_DRIVER   Local state driver: file, sqlite, redis (default: file)
  LOG_LEVEL           debug, info, warn, error (default: info)`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Portal API URL (overrides FNTC_API_URL)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// GetAPIURL returns the --api-url flag if set, otherwise the configured URL
func GetAPIURL(cfg *config.Config) string {
	if apiURL != "" {
		return config.EnsureScheme(strings.TrimRight(apiURL, "/"))
	}
	return cfg.APIURL
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads configuration and applies the global flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.APIURL = GetAPIURL(cfg)
	return cfg, nil
}

// run wraps a command body with signal handling and exits with its code
func run(fn func(ctx context.Context, w io.Writer) int) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exitCode := fn(ctx, os.Stdout)
	if exitCode != exitOK {
		cancel()
		os.Exit(exitCode)
	}
}

// reportError prints the user-facing message for err and maps it to an exit code
func reportError(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %s\n", client.UserMessage(err))

	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrSessionExpired), errors.Is(err, errNotSignedIn), client.IsUnauthorized(err):
		return exitAuth
	case errors.As(err, &apiErr), errors.Is(err, client.ErrNetwork), errors.Is(err, client.ErrTimeout):
		return exitBackend
	default:
		return exitError
	}
}
