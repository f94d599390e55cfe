package core

import (
	"math"
	"time"
)

// =============================================================================
// Validation & Bounding Primitives
// =============================================================================
// ⭐ SSOT: interval and finiteness invariants are enforced here and nowhere else.
// These are gates, not normalizers: out-of-range values are rejected, never
// clamped. Producers must generate in-range values themselves.

// EnsureFinite rejects NaN and ±Inf
func EnsureFinite(field string, x float64) error {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return &NumericError{Field: field, Value: x}
	}
	return nil
}

// EnsureUnitInterval rejects values outside [0, 1] or non-finite
func EnsureUnitInterval(field string, x float64) error {
	if err := EnsureFinite(field, x); err != nil {
		return err
	}
	if x < 0.0 || x > 1.0 {
		return &BoundsError{Field: field, Value: x, Lo: 0.0, Hi: 1.0}
	}
	return nil
}

// EnsureSignedUnitInterval rejects values outside [-1, 1] or non-finite
func EnsureSignedUnitInterval(field string, x float64) error {
	if err := EnsureFinite(field, x); err != nil {
		return err
	}
	if x < -1.0 || x > 1.0 {
		return &BoundsError{Field: field, Value: x, Lo: -1.0, Hi: 1.0}
	}
	return nil
}

// EnsureUTC coerces a timestamp to UTC. A zero time becomes the current
// UTC instant, so constructed entities always carry an aware timestamp.
func EnsureUTC(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
