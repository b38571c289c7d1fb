package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title Fulfillment Engine API
// @version 1.0
// @description Checkout, inventory reservation and order lifecycle for the retail catalog.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	rootCmd := &cobra.Command{
		Use:          "fulfillment-engine",
		Short:        "Order fulfillment and inventory consistency service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")

	rootCmd.AddCommand(
		serveCommand(),
		seedCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var configDir string
