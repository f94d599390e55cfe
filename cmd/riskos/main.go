package main

import (
	"os"

	"github.com/rohan1090/market-risk-os/cmd/riskos/commands"
)

// main is the entry point for the riskos CLI
// ⭐ Unified CLI entry point: go run ./cmd/riskos [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
