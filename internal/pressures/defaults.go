package pressures

import (
	"fmt"
	"math"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/features"
)

// =============================================================================
// Built-in Detectors
// =============================================================================
// All defaults are pure template instances over the standard feature map.
// Quality defaults mirror the feature store: absent quality features read
// as perfect data (missing 0, staleness 0, stability 1).

const (
	// Fallback baseline used when only raw volatility is available:
	// z = (volatility - volBaseline) / volScale
	volBaseline = 0.15
	volScale    = 0.05

	// Momentum beyond one sigma counts as stretch; beyond three flips to
	// two-sided exhaustion risk
	momentumStretchZ    = 1.0
	momentumExhaustionZ = 3.0

	// Emission floor shared by the regime detector
	regimeMinMagnitude = 0.1

	// Stress-style detectors stay silent until clearly above neutral
	stressMinMagnitude = 0.55
)

func featureOr(featureMap map[string]float64, key string, fallback float64) float64 {
	if v, ok := featureMap[key]; ok {
		return v
	}
	return fallback
}

func quality(featureMap map[string]float64) (missing, staleness, stability float64) {
	missing = featureOr(featureMap, features.FeatureMissingRatio, 0.0)
	staleness = featureOr(featureMap, features.FeatureStalenessSeconds, 0.0)
	stability = featureOr(featureMap, features.FeatureStability, 1.0)
	return missing, staleness, stability
}

// NewVolatilityRegimeShift detects short-term realized volatility leaving
// its trailing regime. Positive directionality on expansion, negative on
// compression.
func NewVolatilityRegimeShift() *Template {
	meta := Meta{
		Name:    "volatility_regime_shift",
		Type:    core.PressureVolatility,
		Horizon: core.HorizonShortTerm,
	}

	compute := func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error) {
		z, ok := featureMap[features.FeatureVolatilityZ]
		if !ok {
			vol, volOK := featureMap[features.FeatureVolatility]
			if !volOK {
				return nil, nil
			}
			z = features.ZScore(vol, volBaseline, volScale)
		}

		direction := core.DirectionNeutral
		if z > 0 {
			direction = core.DirectionPositive
		} else if z < 0 {
			direction = core.DirectionNegative
		}

		missing, staleness, stability := quality(featureMap)
		return []RawObservation{{
			Value:            z,
			IsZScore:         true,
			Directionality:   direction,
			MissingRatio:     missing,
			StalenessSeconds: staleness,
			Stability:        stability,
		}}, nil
	}

	explain := func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error) {
		regime := "expanding"
		if obs.Value < 0 {
			regime = "compressing"
		}
		return fmt.Sprintf("volatility %s for %s: z=%.2f vs short-term regime, magnitude=%.2f",
			regime, symbol, obs.Value, magnitude), nil
	}

	return NewTemplate(meta, compute, WithExplain(explain), WithMinMagnitude(regimeMinMagnitude))
}

// NewLiquidityStress detects intraday liquidity shortfall from the volume
// or spread z-score. Always negative directionality: thin books weigh on
// the symbol.
func NewLiquidityStress() *Template {
	meta := Meta{
		Name:    "liquidity_stress",
		Type:    core.PressureLiquidity,
		Horizon: core.HorizonIntraday,
	}

	compute := func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error) {
		z, ok := featureMap[features.FeatureLiquidityZ]
		if !ok {
			z, ok = featureMap["spread_z"]
			if !ok {
				return nil, nil
			}
		}

		missing, staleness, stability := quality(featureMap)
		return []RawObservation{{
			Value:            z,
			IsZScore:         true,
			Directionality:   core.DirectionNegative,
			MissingRatio:     missing,
			StalenessSeconds: staleness,
			Stability:        stability,
		}}, nil
	}

	explain := func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error) {
		return fmt.Sprintf("liquidity shortfall for %s: z=%.2f, magnitude=%.2f, confidence=%.2f",
			symbol, obs.Value, magnitude, confidence), nil
	}

	return NewTemplate(meta, compute, WithExplain(explain), WithMinMagnitude(stressMinMagnitude))
}

// NewMomentumExhaustion detects stretched short-term momentum. One-sided
// stretch leans against the move (a crowded rally reads negative); past
// three sigmas the risk is two-sided and the directionality is mixed.
func NewMomentumExhaustion() *Template {
	meta := Meta{
		Name:    "momentum_exhaustion",
		Type:    core.PressureMomentum,
		Horizon: core.HorizonShortTerm,
	}

	compute := func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error) {
		z, ok := featureMap[features.FeatureMomentumZ]
		if !ok {
			return nil, nil
		}

		stretch := math.Abs(z)
		if stretch < momentumStretchZ {
			return nil, nil
		}

		direction := core.DirectionMixed
		if stretch < momentumExhaustionZ {
			if z > 0 {
				direction = core.DirectionNegative
			} else {
				direction = core.DirectionPositive
			}
		}

		missing, staleness, stability := quality(featureMap)
		return []RawObservation{{
			Value:            stretch - momentumStretchZ,
			IsZScore:         true,
			Directionality:   direction,
			MissingRatio:     missing,
			StalenessSeconds: staleness,
			Stability:        stability,
		}}, nil
	}

	explain := func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error) {
		return fmt.Sprintf("momentum stretch for %s: %.2f sigma beyond normal, magnitude=%.2f",
			symbol, obs.Value, magnitude), nil
	}

	return NewTemplate(meta, compute, WithExplain(explain))
}

// NewConvexityBuildup detects accumulating price curvature on the medium
// horizon. The convexity feature is already unit-scaled with 0.5 as the
// flat baseline, so only clearly built-up readings emit.
func NewConvexityBuildup() *Template {
	meta := Meta{
		Name:    "convexity_buildup",
		Type:    core.PressureConvexity,
		Horizon: core.HorizonMediumTerm,
	}

	compute := func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error) {
		c, ok := featureMap[features.FeatureConvexity]
		if !ok {
			return nil, nil
		}

		missing, staleness, stability := quality(featureMap)
		return []RawObservation{{
			Value:            c,
			IsZScore:         false,
			Directionality:   core.DirectionNeutral,
			MissingRatio:     missing,
			StalenessSeconds: staleness,
			Stability:        stability,
		}}, nil
	}

	explain := func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error) {
		return fmt.Sprintf("convexity buildup for %s: level=%.2f above flat baseline", symbol, magnitude), nil
	}

	return NewTemplate(meta, compute, WithExplain(explain), WithMinMagnitude(stressMinMagnitude))
}
