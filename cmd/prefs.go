// ABOUTME: Device preference commands
// ABOUTME: Reads and writes theme and do-not-disturb in the local store

package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/markalston/fntc-portal/internal/store"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Device preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show preferences stored on this device",
	Run: func(cmd *cobra.Command, args []string) {
		run(runPrefsGet)
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <theme|dnd> <value>",
	Short: "Change a preference",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		run(func(ctx context.Context, w io.Writer) int {
			return runPrefsSet(ctx, w, args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
}

type prefsView struct {
	Theme                 store.Theme `json:"theme"`
	DoNotDisturb          bool        `json:"dnd"`
	InstructionsShown     bool        `json:"instructionsShown"`
	LastNotificationCheck *time.Time  `json:"lastNotificationCheck,omitempty"`
}

func loadPrefs(ctx context.Context, p *store.Prefs) (prefsView, error) {
	var v prefsView
	var err error
	if v.Theme, err = p.Theme(ctx); err != nil {
		return v, err
	}
	if v.DoNotDisturb, err = p.DoNotDisturb(ctx); err != nil {
		return v, err
	}
	if v.InstructionsShown, err = p.InstructionsShown(ctx); err != nil {
		return v, err
	}
	last, err := p.LastNotificationCheck(ctx)
	if err != nil {
		return v, err
	}
	if !last.IsZero() {
		v.LastNotificationCheck = &last
	}
	return v, nil
}

func runPrefsGet(ctx context.Context, w io.Writer) int {
	return withApp(ctx, w, func(a *app) int {
		v, err := loadPrefs(ctx, a.prefs)
		if err != nil {
			return reportError(w, err)
		}
		if IsJSONOutput() {
			fmt.Fprintln(w, formatJSON(v))
			return exitOK
		}
		fmt.Fprintf(w, "theme:               %s\n", v.Theme)
		fmt.Fprintf(w, "dnd:                 %t\n", v.DoNotDisturb)
		fmt.Fprintf(w, "instructions shown:  %t\n", v.InstructionsShown)
		fmt.Fprintf(w, "last notifications:  %s\n", formatDate(v.LastNotificationCheck))
		return exitOK
	})
}

func runPrefsSet(ctx context.Context, w io.Writer, name, value string) int {
	return withApp(ctx, w, func(a *app) int {
		var err error
		switch name {
		case "theme":
			var t store.Theme
			if t, err = store.ParseTheme(value); err == nil {
				err = a.prefs.SetTheme(ctx, t)
			}
		case "dnd":
			var on bool
			if on, err = strconv.ParseBool(value); err == nil {
				err = a.prefs.SetDoNotDisturb(ctx, on)
			}
		default:
			err = fmt.Errorf("unknown preference %q (want theme or dnd)", name)
		}
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(w, "%s set to %s\n", name, value)
		return exitOK
	})
}
