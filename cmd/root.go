package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Dairy billing service",
	Long:  `Delivery ledger, bill generation and WhatsApp dispatch for a dairy milk route`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
