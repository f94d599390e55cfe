package core

import "fmt"

// =============================================================================
// Error Taxonomy
// =============================================================================

// BoundsError reports a value outside its closed interval.
// Always a hard failure: values are rejected, never clamped.
type BoundsError struct {
	Field string
	Value float64
	Lo    float64
	Hi    float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s must be in [%g, %g], got %g", e.Field, e.Lo, e.Hi, e.Value)
}

// NumericError reports a NaN or infinite value
type NumericError struct {
	Field string
	Value float64
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("%s must be finite, got %g", e.Field, e.Value)
}

// DuplicateDetectorError reports a registry name collision
type DuplicateDetectorError struct {
	Name string
}

func (e *DuplicateDetectorError) Error() string {
	return fmt.Sprintf("detector %q is already registered", e.Name)
}

// ProviderError reports a feature or bar retrieval failure.
// A provider failure aborts the whole run; there is no meaningful
// pipeline output without features.
type ProviderError struct {
	Symbol string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider failed for %s: %v", e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DetectorFailure records a single detector's failed detect call.
// Isolated at the orchestrator boundary: recorded on the run result,
// never allowed to abort the run.
type DetectorFailure struct {
	Detector string `json:"detector"`
	Err      error  `json:"-"`
	Message  string `json:"error"`
}

func (e *DetectorFailure) Error() string {
	return fmt.Sprintf("detector %s failed: %v", e.Detector, e.Err)
}

func (e *DetectorFailure) Unwrap() error {
	return e.Err
}

// NewDetectorFailure wraps a detector error with its origin attached
func NewDetectorFailure(detector string, err error) *DetectorFailure {
	return &DetectorFailure{
		Detector: detector,
		Err:      err,
		Message:  err.Error(),
	}
}

// PolicyConfigurationError reports a gate policy table with no matching
// entry for a score/ambiguity pair. A configuration defect, never
// silently defaulted.
type PolicyConfigurationError struct {
	Score     float64
	Ambiguity float64
}

func (e *PolicyConfigurationError) Error() string {
	return fmt.Sprintf("no policy entry matches instability=%.4f ambiguity=%.4f", e.Score, e.Ambiguity)
}
