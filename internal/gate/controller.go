package gate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// =============================================================================
// Behavior Gate Controller
// =============================================================================

// Controller derives behavior gates from risk states through the policy
// table. It holds no per-symbol state: everything a gate contains follows
// from the state it was derived from.
type Controller struct {
	policy *Policy
	logger *logger.Logger
}

// NewController creates a gate controller; a nil policy selects the
// built-in table
func NewController(policy *Policy, log *logger.Logger) *Controller {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Controller{
		policy: policy,
		logger: log.Component("gate"),
	}
}

// Derive maps one risk state to its behavior gate. The gate is anchored
// entirely on the state (ID, symbol, timestamps), so the same state always
// yields the same gate.
func (c *Controller) Derive(state core.RiskState) (core.BehaviorGate, error) {
	entry, err := c.policy.Match(state.InstabilityScore, state.Ambiguity)
	if err != nil {
		return core.BehaviorGate{}, err
	}

	confidence := math.Min(state.Confidence, 1.0-state.Ambiguity)

	built, err := core.NewBehaviorGate(core.BehaviorGate{
		GateID:              fmt.Sprintf("gate_%s", state.StateID),
		Symbol:              state.Symbol,
		RiskStateID:         state.StateID,
		AllowedBehaviors:    sortedBehaviors(entry.Allowed),
		ForbiddenBehaviors:  sortedBehaviors(entry.Forbidden),
		AggressivenessLimit: (1.0 - state.InstabilityScore) * state.Confidence,
		Confidence:          confidence,
		EnforcedUntil:       enforcedUntil(state.ValidHorizons, state.DetectedAt),
		DetectedAt:          state.DetectedAt,
		Explanation:         explainGate(state, confidence),
	})
	if err != nil {
		return core.BehaviorGate{}, fmt.Errorf("behavior gate construction: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":         built.Symbol,
		"gate":           built.GateID,
		"forbidden":      len(built.ForbiddenBehaviors),
		"aggressiveness": built.AggressivenessLimit,
	}).Debug("Derived behavior gate")

	return built, nil
}

// enforcedUntil picks the enforcement window from the tightest horizon
// present: intraday ends with the session (+6h on the hour), short_term
// holds a day, anything longer a week.
func enforcedUntil(horizons []core.TimeHorizon, from time.Time) time.Time {
	hasShortTerm := false
	for _, h := range horizons {
		switch h {
		case core.HorizonIntraday:
			return from.Add(6 * time.Hour).Truncate(time.Hour)
		case core.HorizonShortTerm:
			hasShortTerm = true
		}
	}

	if hasShortTerm {
		return from.Add(24 * time.Hour)
	}
	return from.Add(7 * 24 * time.Hour)
}

// sortedBehaviors returns a sorted copy, leaving the policy entry untouched
func sortedBehaviors(behaviors []core.BehaviorType) []core.BehaviorType {
	out := make([]core.BehaviorType, len(behaviors))
	copy(out, behaviors)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// explainGate renders the non-prescriptive gate explanation. It describes
// constraints, never instructions.
func explainGate(state core.RiskState, confidence float64) string {
	return fmt.Sprintf(
		"Behavior constraints for %s state: instability %.2f, ambiguity %.2f, confidence %.2f. Behaviors are constrained (not instructed).",
		state.DominantState, state.InstabilityScore, state.Ambiguity, confidence)
}
