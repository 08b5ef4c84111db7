package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "focusd",
	Short: "FocusFlow backend daemon",
	Long: `focusd is the FocusFlow backend daemon.

It serves the timer, flow, history and stats API over HTTP and keeps
every user's state and session history in a local SQLite database.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
