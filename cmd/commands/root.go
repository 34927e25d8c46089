package commands

// Root command for Cobra CLI
// Registers the snapshot and validate subcommands

import (
	"fmt"
	"os"

	"token-holders/internal/infra/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "token-holders",
	Short: "Token Holders - ERC-20 holder snapshot tool",
	Long: `Token Holders builds a snapshot of the current holders of an ERC-20 token
from its transfer history and writes it to CSV.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.LogError("Command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	log.Sync()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file (default ./config.yaml)")

	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(validateCmd)
}
