package state

import (
	"math"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/features"
	"github.com/rohan1090/market-risk-os/internal/interactions"
)

// =============================================================================
// Run Scoring
// =============================================================================
// Pure aggregation of one run's pressures and interactions into the three
// risk-state scores. Inputs are validated models, so every factor is a
// unit-interval value; the final Clamp only absorbs float rounding.

// ScoreInstability blends the interaction graph's noisy-OR with the
// confidence-weighted mean pressure magnitude. A run with no evidence at
// all scores zero.
func ScoreInstability(pressures []core.Pressure, ixs []core.PressureInteraction) float64 {
	if len(pressures) == 0 && len(ixs) == 0 {
		return 0.0
	}
	blend := 0.6*interactions.Instability(ixs) + 0.4*weightedMeanMagnitude(pressures)
	return features.Clamp(blend, 0.0, 1.0)
}

// ScoreAmbiguity blends the conflicting share of the interaction graph with
// the directional dispersion of the pressures themselves: signed pressures
// of comparable weight pulling against each other raise ambiguity even when
// no conflicting interaction was emitted. Independent of the instability
// value.
func ScoreAmbiguity(pressures []core.Pressure, ixs []core.PressureInteraction) float64 {
	blend := 0.6*interactions.Ambiguity(ixs) + 0.4*signDispersion(pressures)
	return features.Clamp(blend, 0.0, 1.0)
}

// ScoreConfidence is the 0.7/0.3 blend of mean pressure and mean
// interaction confidence. Without interactions the pressure mean stands
// alone (the weight renormalizes to 1); without pressures there is no
// evidence and confidence is zero.
func ScoreConfidence(pressures []core.Pressure, ixs []core.PressureInteraction) float64 {
	if len(pressures) == 0 {
		return 0.0
	}

	pressureMean := 0.0
	for _, p := range pressures {
		pressureMean += p.Confidence
	}
	pressureMean /= float64(len(pressures))

	if len(ixs) == 0 {
		return features.Clamp(pressureMean, 0.0, 1.0)
	}

	interactionMean := 0.0
	for _, ix := range ixs {
		interactionMean += ix.Confidence
	}
	interactionMean /= float64(len(ixs))

	return features.Clamp(0.7*pressureMean+0.3*interactionMean, 0.0, 1.0)
}

// weightedMeanMagnitude averages magnitudes weighted by confidence, falling
// back to the plain mean when every pressure carries zero confidence.
func weightedMeanMagnitude(pressures []core.Pressure) float64 {
	if len(pressures) == 0 {
		return 0.0
	}

	weightedSum := 0.0
	weightTotal := 0.0
	plainSum := 0.0
	for _, p := range pressures {
		weightedSum += p.Magnitude * p.Confidence
		weightTotal += p.Confidence
		plainSum += p.Magnitude
	}

	if weightTotal == 0.0 {
		return plainSum / float64(len(pressures))
	}
	return weightedSum / weightTotal
}

// signDispersion is the minority share of directional weight: 0 when every
// signed pressure agrees (or none is signed), 0.5 at a perfect split.
// Neutral and mixed pressures carry no directional weight.
func signDispersion(pressures []core.Pressure) float64 {
	up := 0.0
	down := 0.0
	for _, p := range pressures {
		w := p.Magnitude * p.Confidence
		switch p.Directionality {
		case core.DirectionPositive:
			up += w
		case core.DirectionNegative:
			down += w
		}
	}

	total := up + down
	if total == 0.0 || up == 0.0 || down == 0.0 {
		return 0.0
	}
	return math.Min(up, down) / total
}
