package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rohan1090/market-risk-os/internal/pressures"
)

// detectorsCmd represents the detectors command
var detectorsCmd = &cobra.Command{
	Use:   "detectors",
	Short: "List the registered default detectors",
	Long: `Lists every detector in the default registry with its pressure type
and time horizon, in evaluation order.

Example:
  go run ./cmd/riskos detectors`,
	RunE: listDetectors,
}

func init() {
	rootCmd.AddCommand(detectorsCmd)
}

func listDetectors(cmd *cobra.Command, args []string) error {
	registry := pressures.NewRegistry()
	if err := registry.RegisterDefaults(); err != nil {
		return fmt.Errorf("register default detectors: %w", err)
	}

	detectors := registry.List()

	fmt.Printf("Registered detectors (%d):\n\n", len(detectors))
	for i, d := range detectors {
		fmt.Printf("  %d. %s\n", i+1, d.Name())
		fmt.Printf("     Type:    %s\n", d.Type())
		fmt.Printf("     Horizon: %s\n", d.Horizon())
	}

	return nil
}
