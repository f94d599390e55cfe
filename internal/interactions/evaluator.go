package interactions

import (
	"fmt"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// Evaluator runs the pair rules over one run's pressure set and verifies
// referential integrity of the result
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates an interaction evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	return &Evaluator{
		logger: log.Component("interactions"),
	}
}

// Evaluate generates the interaction set for the given pressures.
// Every emitted interaction must reference only pressures from this run;
// a dangling reference means a rule defect and fails hard.
func (e *Evaluator) Evaluate(pressures []core.Pressure) ([]core.PressureInteraction, error) {
	known := make(map[string]bool, len(pressures))
	for _, p := range pressures {
		known[p.PressureID] = true
	}

	interactions, err := GenerateInteractions(pressures)
	if err != nil {
		return nil, err
	}

	for _, interaction := range interactions {
		for _, id := range interaction.PressuresInvolved {
			if !known[id] {
				return nil, fmt.Errorf("interaction %s references unknown pressure %s", interaction.InteractionID, id)
			}
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"pressures":    len(pressures),
		"interactions": len(interactions),
	}).Debug("Evaluated pressure interactions")

	return interactions, nil
}
