package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// verifyCmd checks the storage tree for consistency.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the storage tree",
	Long: `Verify walks the whole storage tree under a read lock and checks
that every item is readable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStorage()
		if err != nil {
			return err
		}

		if err := s.Verify(cmd.Context()); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), styles.Error.Render("✗ storage verification failed"))
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), styles.Success.Render("✓ storage tree is consistent"))
		return nil
	},
}
