package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/manasmitra/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "manasmitra-configure",
		Short: "Configuration tool for the Manasmitra API",
		Long:  "CLI tool for managing CORS and rate limit settings and checking backends",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
