package pipeline

import (
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// Result is the complete output bundle of one pipeline run: the feature
// snapshot the run saw, everything derived from it, and any detector
// failures that were isolated along the way.
type Result struct {
	Symbol       string                     `json:"symbol"`
	GeneratedAt  time.Time                  `json:"generated_at"`
	Features     map[string]float64         `json:"features"`
	Pressures    []core.Pressure            `json:"pressures"`
	Interactions []core.PressureInteraction `json:"interactions"`
	RiskState    core.RiskState             `json:"risk_state"`
	Gate         core.BehaviorGate          `json:"gate"`
	Failures     []*core.DetectorFailure    `json:"failures,omitempty"`
}

// Summary is the condensed view of a run consumed by the pretty renderer
type Summary struct {
	Symbol              string
	GeneratedAt         time.Time
	PressureCount       int
	InteractionCount    int
	DominantState       core.StateLabel
	InstabilityScore    float64
	Confidence          float64
	Ambiguity           float64
	GateID              string
	AllowedBehaviors    []core.BehaviorType
	ForbiddenBehaviors  []core.BehaviorType
	AggressivenessLimit float64
	EnforcedUntil       time.Time
	FailedDetectors     []string
}

// Summary condenses the result for human-readable output
func (r *Result) Summary() Summary {
	failed := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		failed = append(failed, f.Detector)
	}

	return Summary{
		Symbol:              r.Symbol,
		GeneratedAt:         r.GeneratedAt,
		PressureCount:       len(r.Pressures),
		InteractionCount:    len(r.Interactions),
		DominantState:       r.RiskState.DominantState,
		InstabilityScore:    r.RiskState.InstabilityScore,
		Confidence:          r.RiskState.Confidence,
		Ambiguity:           r.RiskState.Ambiguity,
		GateID:              r.Gate.GateID,
		AllowedBehaviors:    r.Gate.AllowedBehaviors,
		ForbiddenBehaviors:  r.Gate.ForbiddenBehaviors,
		AggressivenessLimit: r.Gate.AggressivenessLimit,
		EnforcedUntil:       r.Gate.EnforcedUntil,
		FailedDetectors:     failed,
	}
}
