// ABOUTME: Launches the full-screen terminal UI
// ABOUTME: Logs go to debug.log in the config directory while the screen is owned

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/logger"
	"github.com/markalston/fntc-portal/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive portal",
	Long: `Opens the full-screen portal: sign in, view your plan, pay, and chat with support.

Running fntc with no command in a terminal does the same.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		run(runTUI)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if !interactive() {
			_ = cmd.Help()
			return
		}
		run(runTUI)
	}
}

func runTUI(ctx context.Context, w io.Writer) int {
	a, err := buildApp(ctx, appOptions{logTo: io.Discard})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	defer a.Close()

	if err := logger.InitFile(a.cfg.Dir, a.cfg.Log.Level, a.cfg.Log.Format); err != nil {
		fmt.Fprintf(w, "Warning: debug log disabled: %v\n", err)
	}
	defer logger.Close()

	err = tui.Run(ctx, tui.Config{
		Session: a.session,
		Auth:    a.auth,
		API:     a.api,
		Prefs:   a.prefs,
		Vault:   a.vault,
		Chat:    a.cfg.Chat,
		OpenURL: openBrowser,
	})
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}
