package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/gate"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// gateCmd represents the gate command
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Behavior gate policy inspection",
	Long: `Inspects the behavior gate policy table.

The table maps (instability, ambiguity) to allowed and forbidden
behaviors; rows are evaluated first-match.

Example:
  go run ./cmd/riskos gate show
  go run ./cmd/riskos gate show --policy policy.yaml
  go run ./cmd/riskos gate eval --instability 0.9 --ambiguity 0.1`,
}

var (
	gateShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the active policy table",
		RunE:  runGateShow,
	}

	gateEvalCmd = &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the policy table at a point",
		Long: `Evaluates the policy table at one (instability, ambiguity) point
and prints the matching row's constraints.

Example:
  go run ./cmd/riskos gate eval --instability 0.9 --ambiguity 0.1`,
		RunE: runGateEval,
	}

	// Flags
	gatePolicyPath  string
	gateInstability float64
	gateAmbiguity   float64
)

func init() {
	rootCmd.AddCommand(gateCmd)
	gateCmd.AddCommand(gateShowCmd)
	gateCmd.AddCommand(gateEvalCmd)

	// shared flags
	gateCmd.PersistentFlags().StringVar(&gatePolicyPath, "policy", "", "YAML gate policy (default: built-in table)")

	// eval flags
	gateEvalCmd.Flags().Float64Var(&gateInstability, "instability", 0, "instability score in [0, 1]")
	gateEvalCmd.Flags().Float64Var(&gateAmbiguity, "ambiguity", 0, "ambiguity in [0, 1]")
}

// activePolicy resolves the policy table from the --policy flag,
// falling back to the built-in table
func activePolicy() (*gate.Policy, string, error) {
	if gatePolicyPath == "" {
		return gate.DefaultPolicy(), "built-in", nil
	}

	cfg, err := initConfig()
	if err != nil {
		return nil, "", err
	}

	policy, err := loadGatePolicy(gatePolicyPath, logger.New(cfg))
	if err != nil {
		return nil, "", err
	}

	return policy, gatePolicyPath, nil
}

func runGateShow(cmd *cobra.Command, args []string) error {
	policy, source, err := activePolicy()
	if err != nil {
		return err
	}

	fmt.Println("=== Behavior Gate Policy ===")
	fmt.Println()
	fmt.Printf("📋 Source:  %s\n", source)
	fmt.Printf("🔢 Version: %d\n", policy.Version)
	fmt.Printf("📊 Entries: %d (first match wins)\n", len(policy.Entries))

	if hash, err := gate.Hash(policy); err == nil {
		fmt.Printf("🔏 Hash:    %s\n", hash[:12])
	}

	for i, entry := range policy.Entries {
		fmt.Println()
		fmt.Printf("%d. score [%.2f, %.2f]  ambiguity [%.2f, %.2f]\n",
			i+1, entry.ScoreMin, entry.ScoreMax, entry.AmbiguityMin, entry.AmbiguityMax)
		fmt.Printf("   ✅ allowed:   %s\n", behaviorList(entry.Allowed))
		fmt.Printf("   🚫 forbidden: %s\n", behaviorList(entry.Forbidden))
	}

	return nil
}

func runGateEval(cmd *cobra.Command, args []string) error {
	if gateInstability < 0 || gateInstability > 1 {
		return fmt.Errorf("--instability must be in [0, 1]")
	}
	if gateAmbiguity < 0 || gateAmbiguity > 1 {
		return fmt.Errorf("--ambiguity must be in [0, 1]")
	}

	policy, source, err := activePolicy()
	if err != nil {
		return err
	}

	entry, err := policy.Match(gateInstability, gateAmbiguity)
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	fmt.Println("=== Gate Policy Evaluation ===")
	fmt.Println()
	fmt.Printf("📋 Source:      %s\n", source)
	fmt.Printf("🎯 Point:       instability %.2f, ambiguity %.2f\n", gateInstability, gateAmbiguity)
	fmt.Printf("📍 Matched row: score [%.2f, %.2f], ambiguity [%.2f, %.2f]\n",
		entry.ScoreMin, entry.ScoreMax, entry.AmbiguityMin, entry.AmbiguityMax)
	fmt.Println()
	fmt.Printf("✅ Allowed (%d):   %s\n", len(entry.Allowed), behaviorList(entry.Allowed))
	fmt.Printf("🚫 Forbidden (%d): %s\n", len(entry.Forbidden), behaviorList(entry.Forbidden))

	return nil
}

func behaviorList(behaviors []core.BehaviorType) string {
	if len(behaviors) == 0 {
		return "(none)"
	}

	parts := make([]string, len(behaviors))
	for i, b := range behaviors {
		parts[i] = string(b)
	}
	return strings.Join(parts, ", ")
}
