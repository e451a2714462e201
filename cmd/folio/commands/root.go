package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - single-user portfolio tracking service",
	Long: `folio tracks stock portfolios: positions with weighted-average cost,
live valuation against Finnhub quotes, value history, tags, and JSON
snapshot backups.

Usage:
  go run ./cmd/folio [command]

Examples:
  go run ./cmd/folio serve
  go run ./cmd/folio backup list
  go run ./cmd/folio export --portfolio Growth --out growth.csv`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
