package pressures

import (
	"fmt"
	"sync"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/features"
)

// RawObservation is what a concrete detector computes before the template
// applies squashing, quality-derived confidence, acceleration and bounding.
// Zero values are taken literally; a detector that wants the quality
// defaults sets them explicitly.
type RawObservation struct {
	// Value is the raw signal: a z-score when IsZScore, otherwise a
	// magnitude already in [0, 1]
	Value    float64
	IsZScore bool

	Directionality core.Directionality

	// Quality triple feeding confidence
	MissingRatio     float64
	StalenessSeconds float64
	Stability        float64

	// MaxStep scales magnitude change into acceleration; 0 means the
	// default full-scale step
	MaxStep float64

	// Acceleration, when set, overrides the state-derived value
	Acceleration *float64

	// Confidence, when set, overrides the quality-derived value
	Confidence *float64
}

// RawFunc computes the raw observations for one symbol at one instant
type RawFunc func(symbol string, featureMap map[string]float64, now time.Time) ([]RawObservation, error)

// ExplainFunc renders a human-readable rationale for one finished
// observation. A failure here degrades to an absent explanation.
type ExplainFunc func(symbol string, obs RawObservation, magnitude, acceleration, confidence float64) (string, error)

// Option configures a Template
type Option func(*Template)

// WithExplain attaches a rationale hook
func WithExplain(fn ExplainFunc) Option {
	return func(t *Template) { t.explain = fn }
}

// WithMinMagnitude drops observations whose squashed magnitude falls below
// min. The observation still participates in acceleration state.
func WithMinMagnitude(min float64) Option {
	return func(t *Template) { t.minMagnitude = min }
}

// WithStalenessHalfLife overrides the confidence staleness half-life
func WithStalenessHalfLife(seconds float64) Option {
	return func(t *Template) { t.halfLife = seconds }
}

// Template turns a RawFunc into a full Detector.
// It owns the only mutable detector state the pipeline permits: the
// per-symbol previous magnitudes used for acceleration.
type Template struct {
	meta         Meta
	compute      RawFunc
	explain      ExplainFunc
	minMagnitude float64
	halfLife     float64

	mu   sync.Mutex
	prev map[string][]float64 // symbol -> last magnitudes by observation index
}

// NewTemplate builds a Detector from metadata and a raw computation
func NewTemplate(meta Meta, compute RawFunc, opts ...Option) *Template {
	t := &Template{
		meta:     meta,
		compute:  compute,
		halfLife: features.DefaultStalenessHalfLife,
		prev:     make(map[string][]float64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the detector identity
func (t *Template) Name() string { return t.meta.Name }

// Type returns the pressure category
func (t *Template) Type() core.PressureType { return t.meta.Type }

// Horizon returns the acting window
func (t *Template) Horizon() core.TimeHorizon { return t.meta.Horizon }

// Detect runs the raw computation and applies the template guarantees:
// UTC stamping, squashing, quality-derived confidence, state-derived
// acceleration, and hard bounding of every field.
//
// The previous-magnitude state is replaced only after the whole call has
// succeeded; a failed or cancelled detection leaves it untouched.
func (t *Template) Detect(symbol string, featureMap map[string]float64, now time.Time) ([]core.Pressure, error) {
	nowUTC := core.EnsureUTC(now)

	raw, err := t.compute(symbol, featureMap, nowUTC)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.meta.Name, err)
	}
	if len(raw) == 0 {
		// Nothing observed: keep prior state for the next detection
		return nil, nil
	}

	t.mu.Lock()
	prevMags := make([]float64, len(t.prev[symbol]))
	copy(prevMags, t.prev[symbol])
	t.mu.Unlock()

	pressures := make([]core.Pressure, 0, len(raw))
	magnitudes := make([]float64, 0, len(raw))

	for i, obs := range raw {
		magnitude, err := t.squash(obs)
		if err != nil {
			return nil, fmt.Errorf("%s: observation %d: %w", t.meta.Name, i, err)
		}

		acceleration, err := t.accelerate(obs, magnitude, prevMags, i)
		if err != nil {
			return nil, fmt.Errorf("%s: observation %d: %w", t.meta.Name, i, err)
		}

		confidence, err := t.confide(obs)
		if err != nil {
			return nil, fmt.Errorf("%s: observation %d: %w", t.meta.Name, i, err)
		}

		explanation := ""
		if t.explain != nil {
			if text, err := t.explain(symbol, obs, magnitude, acceleration, confidence); err == nil {
				explanation = text
			}
		}

		pressure, err := core.NewPressure(core.Pressure{
			PressureID:     fmt.Sprintf("%s_%s_%d", t.meta.Type, symbol, i),
			Name:           t.meta.Name,
			PressureType:   t.meta.Type,
			TimeHorizon:    t.meta.Horizon,
			Symbol:         symbol,
			DetectedAt:     nowUTC,
			Magnitude:      magnitude,
			Acceleration:   acceleration,
			Confidence:     confidence,
			Directionality: obs.Directionality,
			Explanation:    explanation,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: observation %d: %w", t.meta.Name, i, err)
		}

		magnitudes = append(magnitudes, magnitude)
		if magnitude >= t.minMagnitude {
			pressures = append(pressures, pressure)
		}
	}

	// Full success: commit this call's magnitudes as the new prior
	t.mu.Lock()
	t.prev[symbol] = magnitudes
	t.mu.Unlock()

	return pressures, nil
}

// squash turns the raw value into a bounded magnitude
func (t *Template) squash(obs RawObservation) (float64, error) {
	if obs.IsZScore {
		return features.Squash01FromZ(obs.Value), nil
	}
	if err := core.EnsureUnitInterval("magnitude", obs.Value); err != nil {
		return 0, err
	}
	return obs.Value, nil
}

// accelerate derives acceleration from the previous magnitude at the same
// observation index, unless the observation carries an explicit override
func (t *Template) accelerate(obs RawObservation, magnitude float64, prevMags []float64, i int) (float64, error) {
	if obs.Acceleration != nil {
		if err := core.EnsureSignedUnitInterval("acceleration", *obs.Acceleration); err != nil {
			return 0, err
		}
		return *obs.Acceleration, nil
	}
	if i >= len(prevMags) {
		// First observation at this index: no rate of change yet
		return 0.0, nil
	}
	return features.AccelerationFromMagnitudes(magnitude, prevMags[i], obs.MaxStep), nil
}

// confide derives confidence from the quality triple, unless the
// observation carries an explicit override
func (t *Template) confide(obs RawObservation) (float64, error) {
	if obs.Confidence != nil {
		if err := core.EnsureUnitInterval("confidence", *obs.Confidence); err != nil {
			return 0, err
		}
		return *obs.Confidence, nil
	}
	return features.ConfidenceFromQuality(obs.MissingRatio, obs.StalenessSeconds, obs.Stability, t.halfLife), nil
}
