package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// Pressure - atomic detector output
// =============================================================================

// Pressure is a bounded, validated signal produced by one detector for one
// symbol at one instant. Immutable once constructed: all construction paths
// run through NewPressure, and JSON decoding re-runs the same validation.
type Pressure struct {
	PressureID     string         `json:"pressure_id"`
	Name           string         `json:"name"`
	PressureType   PressureType   `json:"pressure_type"`
	TimeHorizon    TimeHorizon    `json:"time_horizon"`
	Symbol         string         `json:"symbol"`
	DetectedAt     time.Time      `json:"detected_at"`
	Magnitude      float64        `json:"magnitude"`
	Acceleration   float64        `json:"acceleration"`
	Confidence     float64        `json:"confidence"`
	Directionality Directionality `json:"directionality"`
	Explanation    string         `json:"explanation,omitempty"`
}

// NewPressure validates and constructs a Pressure.
// Out-of-range or non-finite bounded fields fail construction; nothing is
// ever clamped here.
func NewPressure(p Pressure) (Pressure, error) {
	p.DetectedAt = EnsureUTC(p.DetectedAt)
	if err := p.Validate(); err != nil {
		return Pressure{}, err
	}
	return p, nil
}

// Validate checks every invariant the pressure model carries
func (p Pressure) Validate() error {
	if p.PressureID == "" {
		return fmt.Errorf("pressure_id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("pressure name is required")
	}
	if !p.PressureType.Valid() {
		return fmt.Errorf("unknown pressure_type: %q", p.PressureType)
	}
	if !p.TimeHorizon.Valid() {
		return fmt.Errorf("unknown time_horizon: %q", p.TimeHorizon)
	}
	if p.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if p.DetectedAt.IsZero() {
		return fmt.Errorf("detected_at is required")
	}
	if err := EnsureUnitInterval("magnitude", p.Magnitude); err != nil {
		return err
	}
	if err := EnsureSignedUnitInterval("acceleration", p.Acceleration); err != nil {
		return err
	}
	if err := EnsureUnitInterval("confidence", p.Confidence); err != nil {
		return err
	}
	if !p.Directionality.Valid() {
		return fmt.Errorf("unknown directionality: %q", p.Directionality)
	}
	return nil
}

// UnmarshalJSON re-runs construction validation so an out-of-range
// document fails decode instead of producing an invalid value
func (p *Pressure) UnmarshalJSON(data []byte) error {
	type alias Pressure
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	decoded := Pressure(a)
	decoded.DetectedAt = decoded.DetectedAt.UTC()
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid pressure document: %w", err)
	}
	*p = decoded
	return nil
}

// =============================================================================
// PressureInteraction - derived edge between pressures
// =============================================================================

// PressureInteraction describes how two or more pressures jointly affect
// risk. Participant IDs must reference pressures from the same run; the
// evaluator enforces that before construction.
type PressureInteraction struct {
	InteractionID           string          `json:"interaction_id"`
	PressuresInvolved       []string        `json:"pressures_involved"`
	InteractionType         InteractionType `json:"interaction_type"`
	InstabilityContribution float64         `json:"instability_contribution"`
	Confidence              float64         `json:"confidence"`
	Explanation             string          `json:"explanation,omitempty"`
}

// NewPressureInteraction validates and constructs a PressureInteraction
func NewPressureInteraction(ix PressureInteraction) (PressureInteraction, error) {
	if err := ix.Validate(); err != nil {
		return PressureInteraction{}, err
	}
	return ix, nil
}

// Validate checks the interaction invariants
func (ix PressureInteraction) Validate() error {
	if ix.InteractionID == "" {
		return fmt.Errorf("interaction_id is required")
	}
	if len(ix.PressuresInvolved) < 2 {
		return fmt.Errorf("interaction requires at least two pressures, got %d", len(ix.PressuresInvolved))
	}
	for i, id := range ix.PressuresInvolved {
		if id == "" {
			return fmt.Errorf("pressures_involved[%d] is empty", i)
		}
	}
	if !ix.InteractionType.Valid() {
		return fmt.Errorf("unknown interaction_type: %q", ix.InteractionType)
	}
	if err := EnsureUnitInterval("instability_contribution", ix.InstabilityContribution); err != nil {
		return err
	}
	if err := EnsureUnitInterval("confidence", ix.Confidence); err != nil {
		return err
	}
	return nil
}

// UnmarshalJSON re-runs construction validation on decode
func (ix *PressureInteraction) UnmarshalJSON(data []byte) error {
	type alias PressureInteraction
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	decoded := PressureInteraction(a)
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid interaction document: %w", err)
	}
	*ix = decoded
	return nil
}

// =============================================================================
// RiskState - aggregate result of one run
// =============================================================================

// RiskState is the aggregate risk estimate for one symbol at one instant.
// Ambiguity is independent of instability: a confident crisis (high
// instability, low ambiguity) and conflicting signals (high ambiguity) are
// distinguishable at any instability level.
type RiskState struct {
	StateID               string          `json:"state_id"`
	Symbol                string          `json:"symbol"`
	DominantState         StateLabel      `json:"dominant_state"`
	ContributingPressures []string        `json:"contributing_pressures"`
	Interactions          []string        `json:"interactions"`
	InstabilityScore      float64         `json:"instability_score"`
	DirectionalBias       *Directionality `json:"directional_bias,omitempty"`
	Confidence            float64         `json:"confidence"`
	Ambiguity             float64         `json:"ambiguity"`
	ValidHorizons         []TimeHorizon   `json:"valid_horizons"`
	DetectedAt            time.Time       `json:"detected_at"`
	Explanation           string          `json:"explanation,omitempty"`
}

// NewRiskState validates and constructs a RiskState.
// A bounds failure here means an upstream stage broke its contract, so the
// error propagates hard instead of being corrected.
func NewRiskState(s RiskState) (RiskState, error) {
	s.DetectedAt = EnsureUTC(s.DetectedAt)
	if err := s.Validate(); err != nil {
		return RiskState{}, err
	}
	return s, nil
}

// Validate checks the risk state invariants
func (s RiskState) Validate() error {
	if s.StateID == "" {
		return fmt.Errorf("state_id is required")
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !s.DominantState.Valid() {
		return fmt.Errorf("unknown dominant_state: %q", s.DominantState)
	}
	if err := EnsureUnitInterval("instability_score", s.InstabilityScore); err != nil {
		return err
	}
	if err := EnsureUnitInterval("confidence", s.Confidence); err != nil {
		return err
	}
	if err := EnsureUnitInterval("ambiguity", s.Ambiguity); err != nil {
		return err
	}
	if s.DirectionalBias != nil && !s.DirectionalBias.Valid() {
		return fmt.Errorf("unknown directional_bias: %q", *s.DirectionalBias)
	}
	for _, h := range s.ValidHorizons {
		if !h.Valid() {
			return fmt.Errorf("unknown horizon in valid_horizons: %q", h)
		}
	}
	if s.DetectedAt.IsZero() {
		return fmt.Errorf("detected_at is required")
	}
	return nil
}

// UnmarshalJSON re-runs construction validation on decode
func (s *RiskState) UnmarshalJSON(data []byte) error {
	type alias RiskState
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	decoded := RiskState(a)
	decoded.DetectedAt = decoded.DetectedAt.UTC()
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid risk state document: %w", err)
	}
	*s = decoded
	return nil
}

// =============================================================================
// BehaviorGate - terminal output
// =============================================================================

// BehaviorGate is the policy-derived restriction produced from exactly one
// risk state. Allowed and forbidden sets are disjoint and kept sorted so
// serialization is deterministic.
type BehaviorGate struct {
	GateID              string         `json:"gate_id"`
	Symbol              string         `json:"symbol"`
	RiskStateID         string         `json:"risk_state_id"`
	AllowedBehaviors    []BehaviorType `json:"allowed_behaviors"`
	ForbiddenBehaviors  []BehaviorType `json:"forbidden_behaviors"`
	AggressivenessLimit float64        `json:"aggressiveness_limit"`
	Confidence          float64        `json:"confidence"`
	EnforcedUntil       time.Time      `json:"enforced_until"`
	DetectedAt          time.Time      `json:"detected_at"`
	Explanation         string         `json:"explanation,omitempty"`
}

// NewBehaviorGate validates and constructs a BehaviorGate
func NewBehaviorGate(g BehaviorGate) (BehaviorGate, error) {
	g.DetectedAt = EnsureUTC(g.DetectedAt)
	g.EnforcedUntil = g.EnforcedUntil.UTC()
	if err := g.Validate(); err != nil {
		return BehaviorGate{}, err
	}
	return g, nil
}

// Validate checks the gate invariants, including allowed/forbidden disjointness
func (g BehaviorGate) Validate() error {
	if g.GateID == "" {
		return fmt.Errorf("gate_id is required")
	}
	if g.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if g.RiskStateID == "" {
		return fmt.Errorf("risk_state_id is required")
	}
	seen := make(map[BehaviorType]bool, len(g.AllowedBehaviors))
	for _, b := range g.AllowedBehaviors {
		if !b.Valid() {
			return fmt.Errorf("unknown behavior in allowed_behaviors: %q", b)
		}
		seen[b] = true
	}
	for _, b := range g.ForbiddenBehaviors {
		if !b.Valid() {
			return fmt.Errorf("unknown behavior in forbidden_behaviors: %q", b)
		}
		if seen[b] {
			return fmt.Errorf("behavior %q cannot be both allowed and forbidden", b)
		}
	}
	if err := EnsureUnitInterval("aggressiveness_limit", g.AggressivenessLimit); err != nil {
		return err
	}
	if err := EnsureUnitInterval("confidence", g.Confidence); err != nil {
		return err
	}
	if g.EnforcedUntil.IsZero() {
		return fmt.Errorf("enforced_until is required")
	}
	if g.DetectedAt.IsZero() {
		return fmt.Errorf("detected_at is required")
	}
	return nil
}

// UnmarshalJSON re-runs construction validation on decode
func (g *BehaviorGate) UnmarshalJSON(data []byte) error {
	type alias BehaviorGate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	decoded := BehaviorGate(a)
	decoded.DetectedAt = decoded.DetectedAt.UTC()
	decoded.EnforcedUntil = decoded.EnforcedUntil.UTC()
	if err := decoded.Validate(); err != nil {
		return fmt.Errorf("invalid behavior gate document: %w", err)
	}
	*g = decoded
	return nil
}
