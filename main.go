// ABOUTME: Entry point for the fntc portal client
// ABOUTME: Command-line and terminal UI for the FNTC customer portal

package main

import (
	"fmt"
	"os"

	"github.com/markalston/fntc-portal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
