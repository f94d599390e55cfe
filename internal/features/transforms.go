package features

import "math"

// =============================================================================
// Deterministic Transforms
// =============================================================================
// ⭐ SSOT: all numeric shaping used by detectors lives here.
// These are shaping helpers for producers. Validation gates reject; these
// clamp. Never call them from a validator.

const (
	// DefaultStalenessHalfLife is the staleness decay half-life in seconds
	DefaultStalenessHalfLife = 300.0

	// DefaultMaxStep scales one-step magnitude change into acceleration
	DefaultMaxStep = 1.0

	zScoreLimit    = 10.0
	sigmoidArgMax  = 50.0
	varianceFloor  = 1e-12
)

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Clamp bounds x to [lo, hi]. A non-finite x falls back to the midpoint.
func Clamp(x, lo, hi float64) float64 {
	if !isFinite(x) {
		return (lo + hi) / 2.0
	}
	return math.Max(lo, math.Min(hi, x))
}

// RollingMean averages the last window elements.
// Returns 0 when there is no usable data.
func RollingMean(values []float64, window int) float64 {
	if len(values) == 0 || window <= 0 {
		return 0.0
	}

	n := window
	if len(values) < n {
		n = len(values)
	}

	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}

	result := sum / float64(n)
	if !isFinite(result) {
		return 0.0
	}
	return result
}

// RollingStd computes the population standard deviation of the last window
// elements. Fewer than two elements cannot carry dispersion, so a tiny
// floor is returned instead of zero to keep downstream ratios finite.
func RollingStd(values []float64, window int) float64 {
	if len(values) == 0 || window <= 0 {
		return varianceFloor
	}

	n := window
	if len(values) < n {
		n = len(values)
	}
	if n < 2 {
		return varianceFloor
	}

	subset := values[len(values)-n:]
	mean := 0.0
	for _, v := range subset {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range subset {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	result := math.Sqrt(math.Max(variance, varianceFloor))
	if !isFinite(result) {
		return varianceFloor
	}
	return result
}

// ZScore standardizes x against mean and std, clamped to ±10.
// A zero std yields 0: no dispersion means no signal, not an extreme one.
func ZScore(x, mean, std float64) float64 {
	if !isFinite(x) || !isFinite(mean) || !isFinite(std) {
		return 0.0
	}
	s := math.Abs(std)
	if s == 0 {
		return 0.0
	}
	return Clamp((x-mean)/s, -zScoreLimit, zScoreLimit)
}

// Sigmoid maps z to (0, 1) with steepness k.
// The argument is clamped to ±50 so exp never overflows.
func Sigmoid(z, k float64) float64 {
	if !isFinite(z) || !isFinite(k) {
		return 0.5
	}
	arg := Clamp(z*k, -sigmoidArgMax, sigmoidArgMax)
	result := 1.0 / (1.0 + math.Exp(-arg))
	if !isFinite(result) {
		return 0.5
	}
	return Clamp(result, 0.0, 1.0)
}

// Squash01FromZ maps a z-score into [0, 1] with the unit-steepness sigmoid
func Squash01FromZ(z float64) float64 {
	return Sigmoid(z, 1.0)
}

// EMA computes an exponential moving average over values with the given
// span (alpha = 2/(span+1)). Non-finite elements are skipped; span <= 1
// degenerates to the last value.
func EMA(values []float64, span int) float64 {
	if len(values) == 0 {
		return 0.0
	}
	if span <= 1 {
		return values[len(values)-1]
	}

	alpha := 2.0 / (float64(span) + 1.0)
	result := values[0]
	for _, v := range values[1:] {
		if !isFinite(v) {
			continue
		}
		result = alpha*v + (1.0-alpha)*result
	}

	if !isFinite(result) {
		return 0.0
	}
	return result
}

// AccelerationFromMagnitudes scales the change between two magnitudes into
// [-1, 1]. maxStep is the change treated as full-scale; non-positive or
// non-finite maxStep falls back to DefaultMaxStep.
func AccelerationFromMagnitudes(curr, prev, maxStep float64) float64 {
	if !isFinite(curr) || !isFinite(prev) {
		return 0.0
	}
	if !isFinite(maxStep) || maxStep <= 0 {
		maxStep = DefaultMaxStep
	}
	return Clamp((curr-prev)/maxStep, -1.0, 1.0)
}

// ConfidenceFromQuality combines data-quality signals into one [0, 1]
// confidence. Monotone down in missing ratio and staleness, up in
// stability. Measures measurement reliability, not prediction accuracy.
//
//	0.7 * (1-missing) * 2^(-staleness/halfLife) + 0.3 * stability
func ConfidenceFromQuality(missingRatio, stalenessSeconds, stability, halfLife float64) float64 {
	missingRatio = Clamp(missingRatio, 0.0, 1.0)
	stability = Clamp(stability, 0.0, 1.0)
	if !isFinite(stalenessSeconds) || stalenessSeconds < 0 {
		stalenessSeconds = 0.0
	}
	if !isFinite(halfLife) {
		halfLife = DefaultStalenessHalfLife
	}
	if halfLife < 1.0 {
		halfLife = 1.0
	}

	decay := math.Exp(-math.Ln2 * stalenessSeconds / halfLife)
	if !isFinite(decay) {
		decay = 0.0
	}

	base := (1.0 - missingRatio) * decay
	return Clamp(0.7*base+0.3*stability, 0.0, 1.0)
}
