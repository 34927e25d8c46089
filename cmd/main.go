package main

// Main entry point of the application
// Executes the Cobra root command and exits 1 on failure

import (
	"os"

	"token-holders/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
