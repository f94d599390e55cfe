package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/pipeline"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the evaluation pipeline once",
	Long: `Runs the five-stage evaluation pipeline for one symbol.

Stages:
1. Feature retrieval
2. Pressure detection
3. Interaction evaluation
4. Risk state estimation
5. Behavior gate derivation

Example:
  go run ./cmd/riskos run --symbol SPX
  go run ./cmd/riskos run --symbol SPX --output json
  go run ./cmd/riskos run --symbol SPX --fixture testdata/bars.json
  go run ./cmd/riskos run --symbol SPX --policy policy.yaml`,
	RunE: runPipeline,
}

var (
	runSymbol  string
	runOutput  string
	runFixture string
	runPolicy  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runSymbol, "symbol", "", "symbol to evaluate (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "pretty", "output format: json, pretty")
	runCmd.Flags().StringVar(&runFixture, "fixture", "", "JSON bar fixture (overrides FIXTURE_PATH)")
	runCmd.Flags().StringVar(&runPolicy, "policy", "", "YAML gate policy (overrides POLICY_PATH)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	if runSymbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	if runOutput != "json" && runOutput != "pretty" {
		return fmt.Errorf("invalid output format: %s (use: json, pretty)", runOutput)
	}

	cfg, err := initConfig()
	if err != nil {
		return err
	}

	// Flag overrides
	if runFixture != "" {
		cfg.Pipeline.FixturePath = runFixture
	}
	if runPolicy != "" {
		cfg.Pipeline.PolicyPath = runPolicy
	}

	log := logger.New(cfg)

	orchestrator, err := buildOrchestrator(cfg, log, nil)
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(cmd.Context(), runSymbol)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	if runOutput == "json" {
		return printResultJSON(result)
	}

	printResultSummary(result.Summary())
	return nil
}

func printResultJSON(result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	fmt.Println(string(data))
	return nil
}

func printResultSummary(s pipeline.Summary) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("                EVALUATION RESULT")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Printf("\n📈 Symbol: %s\n", s.Symbol)
	fmt.Printf("⏰ Generated At: %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	fmt.Println("\n📊 Risk State")
	fmt.Printf("  Dominant State: %s %s\n", stateEmoji(s.DominantState), s.DominantState)
	fmt.Printf("  Instability:    %.2f\n", s.InstabilityScore)
	fmt.Printf("  Confidence:     %.2f\n", s.Confidence)
	fmt.Printf("  Ambiguity:      %.2f\n", s.Ambiguity)
	fmt.Printf("  Pressures:      %d\n", s.PressureCount)
	fmt.Printf("  Interactions:   %d\n", s.InteractionCount)

	fmt.Println("\n🚦 Behavior Gate")
	fmt.Printf("  Gate ID:        %s\n", s.GateID)
	fmt.Printf("  Aggressiveness: %.2f\n", s.AggressivenessLimit)
	fmt.Printf("  Enforced Until: %s\n", s.EnforcedUntil.Format("2006-01-02 15:04:05 MST"))

	if len(s.AllowedBehaviors) > 0 {
		fmt.Printf("\n✅ Allowed (%d)\n", len(s.AllowedBehaviors))
		for _, b := range s.AllowedBehaviors {
			fmt.Printf("   • %s\n", b)
		}
	}

	if len(s.ForbiddenBehaviors) > 0 {
		fmt.Printf("\n🚫 Forbidden (%d)\n", len(s.ForbiddenBehaviors))
		for _, b := range s.ForbiddenBehaviors {
			fmt.Printf("   • %s\n", b)
		}
	}

	if len(s.FailedDetectors) > 0 {
		fmt.Printf("\n⚠️  Failed Detectors (%d): %s\n",
			len(s.FailedDetectors), strings.Join(s.FailedDetectors, ", "))
	}
}

func stateEmoji(label core.StateLabel) string {
	switch label {
	case core.StateStable:
		return "🟢"
	case core.StateElevated:
		return "🟡"
	case core.StateUnstable:
		return "🟠"
	case core.StateCritical:
		return "🔴"
	case core.StateTransitioning:
		return "🔵"
	default:
		return "⚪"
	}
}
