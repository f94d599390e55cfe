package pressures

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// NewSynthetic builds a detector that emits one deterministic, always-valid
// pressure derived from a symbol hash. Demo and test fallback only; it is
// never part of the default registry set.
func NewSynthetic() *Template {
	meta := Meta{
		Name:    "synthetic",
		Type:    core.PressureVolatility,
		Horizon: core.HorizonShortTerm,
	}

	compute := func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error) {
		h := fnv.New32a()
		h.Write([]byte(symbol))
		// Hash into [0.25, 0.75] so the magnitude is always mid-range valid
		magnitude := float64(h.Sum32()%1000)/1000.0*0.5 + 0.25

		return []RawObservation{{
			Value:          magnitude,
			IsZScore:       false,
			Directionality: core.DirectionNeutral,
			Stability:      0.8,
		}}, nil
	}

	explain := func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error) {
		return fmt.Sprintf("synthetic volatility pressure for %s: magnitude=%.2f", symbol, magnitude), nil
	}

	return NewTemplate(meta, compute, WithExplain(explain))
}
