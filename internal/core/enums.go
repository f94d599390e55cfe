package core

import "fmt"

// PressureType categorizes the market force a detector measures
// ⭐ SSOT: pressure categories are defined here and nowhere else
type PressureType string

const (
	PressureVolatility    PressureType = "volatility"
	PressureLiquidity     PressureType = "liquidity"
	PressureCorrelation   PressureType = "correlation"
	PressureConcentration PressureType = "concentration"
	PressureMomentum      PressureType = "momentum"
	PressureReversal      PressureType = "reversal"
	PressureConvexity     PressureType = "convexity"
)

// Valid reports whether the pressure type is a known label
func (p PressureType) Valid() bool {
	switch p {
	case PressureVolatility, PressureLiquidity, PressureCorrelation,
		PressureConcentration, PressureMomentum, PressureReversal, PressureConvexity:
		return true
	}
	return false
}

// TimeHorizon labels the window a pressure is expected to act over
type TimeHorizon string

const (
	HorizonIntraday   TimeHorizon = "intraday"
	HorizonShortTerm  TimeHorizon = "short_term"
	HorizonMediumTerm TimeHorizon = "medium_term"
	HorizonLongTerm   TimeHorizon = "long_term"
)

// Valid reports whether the horizon is a known label
func (h TimeHorizon) Valid() bool {
	switch h {
	case HorizonIntraday, HorizonShortTerm, HorizonMediumTerm, HorizonLongTerm:
		return true
	}
	return false
}

// Directionality is the sign of a pressure's effect
type Directionality string

const (
	DirectionPositive Directionality = "positive"
	DirectionNegative Directionality = "negative"
	DirectionNeutral  Directionality = "neutral"
	DirectionMixed    Directionality = "mixed"
)

// Valid reports whether the directionality is a known label
func (d Directionality) Valid() bool {
	switch d {
	case DirectionPositive, DirectionNegative, DirectionNeutral, DirectionMixed:
		return true
	}
	return false
}

// Opposes reports whether two directionalities point strictly against each other
func (d Directionality) Opposes(other Directionality) bool {
	return (d == DirectionPositive && other == DirectionNegative) ||
		(d == DirectionNegative && other == DirectionPositive)
}

// InteractionType describes how two pressures combine
type InteractionType string

const (
	InteractionAmplification InteractionType = "amplification"
	InteractionDampening     InteractionType = "dampening"
	InteractionReinforcement InteractionType = "reinforcement"
	InteractionCounteraction InteractionType = "counteraction"
	InteractionResonance     InteractionType = "resonance"
)

// Valid reports whether the interaction type is a known label
func (i InteractionType) Valid() bool {
	switch i {
	case InteractionAmplification, InteractionDampening, InteractionReinforcement,
		InteractionCounteraction, InteractionResonance:
		return true
	}
	return false
}

// Conflicting reports whether the interaction pulls against the aggregate signal
func (i InteractionType) Conflicting() bool {
	return i == InteractionCounteraction || i == InteractionDampening
}

// StateLabel is the dominant risk regime for a symbol
type StateLabel string

const (
	StateStable        StateLabel = "stable"
	StateElevated      StateLabel = "elevated"
	StateUnstable      StateLabel = "unstable"
	StateCritical      StateLabel = "critical"
	StateTransitioning StateLabel = "transitioning"
)

// Valid reports whether the state label is known
func (s StateLabel) Valid() bool {
	switch s {
	case StateStable, StateElevated, StateUnstable, StateCritical, StateTransitioning:
		return true
	}
	return false
}

// BehaviorType labels a downstream action class a gate can allow or forbid
// Outputs constrain behavior classes; they never instruct trades.
type BehaviorType string

const (
	BehaviorTrendFollowing      BehaviorType = "trend_following"
	BehaviorMeanReversion       BehaviorType = "mean_reversion"
	BehaviorVolatilityExpansion BehaviorType = "volatility_expansion"
	BehaviorConvexStructures    BehaviorType = "convex_structures"
	BehaviorLiquidityProviding  BehaviorType = "liquidity_providing"
	BehaviorCarry               BehaviorType = "carry"
	BehaviorHedgingOnly         BehaviorType = "hedging_only"
	BehaviorReduceExposure      BehaviorType = "reduce_exposure"
)

// Valid reports whether the behavior type is known
func (b BehaviorType) Valid() bool {
	switch b {
	case BehaviorTrendFollowing, BehaviorMeanReversion, BehaviorVolatilityExpansion,
		BehaviorConvexStructures, BehaviorLiquidityProviding, BehaviorCarry,
		BehaviorHedgingOnly, BehaviorReduceExposure:
		return true
	}
	return false
}

// AllBehaviors returns every behavior label in sorted order
func AllBehaviors() []BehaviorType {
	return []BehaviorType{
		BehaviorCarry,
		BehaviorConvexStructures,
		BehaviorHedgingOnly,
		BehaviorLiquidityProviding,
		BehaviorMeanReversion,
		BehaviorReduceExposure,
		BehaviorTrendFollowing,
		BehaviorVolatilityExpansion,
	}
}

// ParseBehavior converts a string label to a BehaviorType
func ParseBehavior(s string) (BehaviorType, error) {
	b := BehaviorType(s)
	if !b.Valid() {
		return "", fmt.Errorf("unknown behavior type: %q", s)
	}
	return b, nil
}
