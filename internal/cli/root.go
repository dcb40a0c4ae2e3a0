// Package cli implements the fundhive command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "fundhive",
	Short: "FundHive crowdfunding settlement engine",
	Long: `FundHive runs the crowdfunding settlement engine: campaign
lifecycle, donation ledger with platform fee, quadratic-funding
matching rounds, milestone governance, and refunds, exposed over an
HTTP API with SQLite persistence.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fundhive version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fundhive", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
