package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "riskos",
	Short: "Market Risk OS - risk state and behavior gate pipeline",
	Long: `Market Risk OS Unified CLI

Five-stage market risk evaluation:
features → pressures → interactions → risk state → behavior gate.

Usage:
  go run ./cmd/riskos [command]

Examples:
  go run ./cmd/riskos run --symbol SPX
  go run ./cmd/riskos detectors
  go run ./cmd/riskos gate show
  go run ./cmd/riskos serve
  go run ./cmd/riskos watch --symbols SPX,NDX`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose console output")
}
