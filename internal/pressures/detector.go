package pressures

import (
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// Detector is the contract every pressure detector implements
// ⭐ SSOT: detector behavior is defined by this interface only
//
// Detect must be a pure function of (symbol, features, now) plus the
// detector's own per-symbol previous-magnitude state. No I/O, no clocks,
// no randomness.
type Detector interface {
	// Name is the unique registry identity
	Name() string

	// Type is the pressure category this detector measures
	Type() core.PressureType

	// Horizon is the window the detected pressure acts over
	Horizon() core.TimeHorizon

	// Detect computes zero or more pressures for one symbol at one instant.
	// Errors mean this detector's whole contribution is invalid.
	Detect(symbol string, features map[string]float64, now time.Time) ([]core.Pressure, error)
}

// Meta identifies a detector built on the template
type Meta struct {
	Name    string
	Type    core.PressureType
	Horizon core.TimeHorizon
}
