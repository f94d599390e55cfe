package interactions

import (
	"github.com/rohan1090/market-risk-os/internal/core"
)

// =============================================================================
// Graph Aggregation
// =============================================================================
// Nodes are pressures, edges are interactions. Both aggregates below stay
// in [0, 1] because every factor is a validated unit-interval value.

// Weight is the edge weight of one interaction:
// instability contribution scaled by confidence.
func Weight(interaction core.PressureInteraction) float64 {
	return interaction.InstabilityContribution * interaction.Confidence
}

// Instability aggregates edge weights with noisy-OR: 1 - prod(1 - w).
// Independent instability sources accumulate with diminishing returns;
// each extra interaction raises the score, never linearly.
func Instability(interactions []core.PressureInteraction) float64 {
	if len(interactions) == 0 {
		return 0.0
	}

	product := 1.0
	for _, interaction := range interactions {
		product *= 1.0 - Weight(interaction)
	}
	return 1.0 - product
}

// Ambiguity is the conflicting share of total edge weight: how much of
// the interaction structure pulls against the aggregate signal.
func Ambiguity(interactions []core.PressureInteraction) float64 {
	if len(interactions) == 0 {
		return 0.0
	}

	total := 0.0
	conflicting := 0.0
	for _, interaction := range interactions {
		w := Weight(interaction)
		total += w
		if interaction.InteractionType.Conflicting() {
			conflicting += w
		}
	}

	if total == 0.0 {
		return 0.0
	}
	return conflicting / total
}
