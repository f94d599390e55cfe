package interactions

import (
	"fmt"
	"math"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// MinInteractionMagnitude is the floor both pressures must clear before a
// pair is considered at all. Weak pressures do not interact.
const MinInteractionMagnitude = 0.55

// GenerateInteractions enumerates pressure pairs in input slice order
// (i < j) and applies the pair rules. The emission order is a pure
// function of the input order; no map iteration anywhere.
//
// A rule producing an out-of-range strength fails PressureInteraction
// construction and propagates as a hard error.
func GenerateInteractions(pressures []core.Pressure) ([]core.PressureInteraction, error) {
	if len(pressures) < 2 {
		return nil, nil
	}

	var interactions []core.PressureInteraction
	for i := 0; i < len(pressures); i++ {
		for j := i + 1; j < len(pressures); j++ {
			interaction, ok, err := evaluatePair(pressures[i], pressures[j])
			if err != nil {
				return nil, err
			}
			if ok {
				interactions = append(interactions, interaction)
			}
		}
	}
	return interactions, nil
}

// evaluatePair applies the strict pair rules:
//   - same time_horizon only
//   - both magnitudes >= MinInteractionMagnitude
//   - same directionality -> reinforcement; strictly opposed ->
//     counteraction; mixed (or neutral against a signed side) -> nothing
func evaluatePair(a, b core.Pressure) (core.PressureInteraction, bool, error) {
	if a.TimeHorizon != b.TimeHorizon {
		return core.PressureInteraction{}, false, nil
	}
	if a.Magnitude < MinInteractionMagnitude || b.Magnitude < MinInteractionMagnitude {
		return core.PressureInteraction{}, false, nil
	}

	interactionType, ok := classify(a.Directionality, b.Directionality)
	if !ok {
		return core.PressureInteraction{}, false, nil
	}

	// Geometric mean keeps the contribution on the magnitude scale
	contribution := math.Sqrt(a.Magnitude * b.Magnitude)
	confidence := (a.Confidence + b.Confidence) / 2.0

	first, second := a.PressureID, b.PressureID
	if second < first {
		first, second = second, first
	}

	interaction, err := core.NewPressureInteraction(core.PressureInteraction{
		InteractionID:           fmt.Sprintf("ix_%s_%s_%s", interactionType, first, second),
		PressuresInvolved:       []string{first, second},
		InteractionType:         interactionType,
		InstabilityContribution: contribution,
		Confidence:              confidence,
		Explanation: fmt.Sprintf("%s between %s and %s pressures on %s",
			interactionType, a.PressureType, b.PressureType, a.TimeHorizon),
	})
	if err != nil {
		return core.PressureInteraction{}, false, fmt.Errorf("pair %s/%s: %w", a.PressureID, b.PressureID, err)
	}
	return interaction, true, nil
}

func classify(d1, d2 core.Directionality) (core.InteractionType, bool) {
	if d1 == core.DirectionMixed || d2 == core.DirectionMixed {
		return "", false
	}
	if d1 == d2 {
		return core.InteractionReinforcement, true
	}
	if d1.Opposes(d2) {
		return core.InteractionCounteraction, true
	}
	// Neutral against a signed side carries no joint information
	return "", false
}
