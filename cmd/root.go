package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoicer/internal/config"
	"invoicer/internal/logger"
)

var version = "1.0.0"

// cfg is set by Execute before any command runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "invoicer",
	Short: "Invoicer - edit invoices, keep totals consistent, reuse templates",
	Long: `Invoicer is a command-line invoice editor.

Every edit recomputes line amounts, subtotal, VAT and total, and the invoice
is saved after each change. Invoice content can be saved as a reusable
template; applying a template creates a fresh invoice with a new number and
today's dates. Data can be backed up to and restored from a JSON file, and an
invoice can be exported as a one-page spreadsheet.

Configuration (environment or .env):
  INVOICER_DB_PATH              - SQLite database file
  INVOICER_NUMBER_PREFIX        - Invoice number prefix (default CORE)
  INVOICER_DEFAULT_VAT_RATE     - VAT rate for new invoices in percent (default 19)
  INVOICER_DEFAULT_CURRENCY     - Currency for new invoices (default EUR)
  INVOICER_SERVICE_PERIOD_DAYS  - Service period length (default 30)
  INVOICER_LOG_LEVEL            - Log level (default warn)`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the CLI with the loaded configuration.
func Execute(c *config.Config) {
	log := logger.WithComponent("cmd")

	if c != nil {
		cfg = c
	}

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides INVOICER_DB_PATH)")
	rootCmd.PersistentFlags().Bool("ephemeral", false, "Keep all data in memory for this run only")
}
