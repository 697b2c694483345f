package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "davstore %s\n", versionInfo.Version)
		fmt.Fprintln(cmd.OutOrStdout(), styles.Subtle.Render(fmt.Sprintf("commit %s, built %s", versionInfo.Commit, versionInfo.Date)))
	},
}
