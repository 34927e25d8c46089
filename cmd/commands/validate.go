package commands

import (
	"fmt"

	"token-holders/internal/features/holders"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <address>",
	Short: "Check an address and print its canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := holders.ValidateAddress(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}
