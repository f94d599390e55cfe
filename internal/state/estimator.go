package state

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// =============================================================================
// Risk State Estimator
// =============================================================================

// Hysteresis thresholds. Each escalation bound sits above its matching
// de-escalation bound, so a score oscillating between the two never flips
// the label. Escalation to critical is reachable from any label.
const (
	stableToElevated   = 0.55
	elevatedToStable   = 0.45
	elevatedToUnstable = 0.80
	unstableToElevated = 0.70
	anyToCritical      = 0.92
	criticalToUnstable = 0.85
)

// Bias and transition gating
const (
	transitionAmbiguity = 0.35
	biasMaxAmbiguity    = 0.35
	biasMinConfidence   = 0.50
	biasScoreCut        = 0.25
)

// Estimator turns one run's pressures and interactions into a RiskState.
// The previous dominant label is kept per symbol so that repeated
// evaluations walk the hysteresis ladder instead of re-deciding from
// scratch; the stored label is always the underlying one, never
// `transitioning`.
type Estimator struct {
	logger *logger.Logger

	mu       sync.Mutex
	previous map[string]core.StateLabel
}

// NewEstimator creates a risk state estimator with an empty label store
func NewEstimator(log *logger.Logger) *Estimator {
	return &Estimator{
		logger:   log.Component("state"),
		previous: make(map[string]core.StateLabel),
	}
}

// Estimate scores the run and derives the dominant state for the symbol.
// A validation failure here means an upstream stage broke its bounds
// contract and propagates hard.
func (e *Estimator) Estimate(symbol string, pressures []core.Pressure, ixs []core.PressureInteraction, now time.Time) (core.RiskState, error) {
	nowUTC := core.EnsureUTC(now)

	instability := ScoreInstability(pressures, ixs)
	ambiguity := ScoreAmbiguity(pressures, ixs)
	confidence := ScoreConfidence(pressures, ixs)

	e.mu.Lock()
	prev, hadPrev := e.previous[symbol]
	if !hadPrev {
		prev = core.StateStable
	}
	underlying := nextLabel(prev, instability)
	e.previous[symbol] = underlying
	e.mu.Unlock()

	// The store always records the underlying label; transitioning is a
	// reported overlay that settles on the next evaluation.
	dominant := underlying
	if hadPrev && underlying != prev && ambiguity > transitionAmbiguity {
		dominant = core.StateTransitioning
	}

	contributing := topContributors(pressures, 3)

	interactionIDs := make([]string, 0, len(ixs))
	for _, ix := range ixs {
		interactionIDs = append(interactionIDs, ix.InteractionID)
	}
	sort.Strings(interactionIDs)

	built, err := core.NewRiskState(core.RiskState{
		StateID:               fmt.Sprintf("state_%s_%d", symbol, nowUTC.Unix()),
		Symbol:                symbol,
		DominantState:         dominant,
		ContributingPressures: contributing,
		Interactions:          interactionIDs,
		InstabilityScore:      instability,
		DirectionalBias:       directionalBias(pressures, ambiguity, confidence),
		Confidence:            confidence,
		Ambiguity:             ambiguity,
		ValidHorizons:         validHorizons(pressures, contributing),
		DetectedAt:            nowUTC,
		Explanation:           explain(dominant, instability, ambiguity, contributing, len(interactionIDs)),
	})
	if err != nil {
		return core.RiskState{}, fmt.Errorf("risk state construction: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"symbol":      symbol,
		"state":       string(built.DominantState),
		"instability": built.InstabilityScore,
		"ambiguity":   built.Ambiguity,
		"confidence":  built.Confidence,
	}).Debug("Estimated risk state")

	return built, nil
}

// Reset clears the per-symbol label store
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previous = make(map[string]core.StateLabel)
}

// nextLabel advances the hysteresis ladder by one evaluation.
// De-escalation always steps a single rung, so a collapse from critical to
// stable takes three quiet evaluations to settle.
func nextLabel(prev core.StateLabel, score float64) core.StateLabel {
	if score >= anyToCritical {
		return core.StateCritical
	}

	switch prev {
	case core.StateElevated:
		if score >= elevatedToUnstable {
			return core.StateUnstable
		}
		if score < elevatedToStable {
			return core.StateStable
		}
		return core.StateElevated
	case core.StateUnstable:
		if score < unstableToElevated {
			return core.StateElevated
		}
		return core.StateUnstable
	case core.StateCritical:
		if score < criticalToUnstable {
			return core.StateUnstable
		}
		return core.StateCritical
	default:
		// stable; the store never holds any other label
		if score >= stableToElevated {
			return core.StateElevated
		}
		return core.StateStable
	}
}

// directionalBias reports the dominant signed pull of the pressure set.
// Suppressed entirely when the state is ambiguous or weakly supported.
func directionalBias(pressures []core.Pressure, ambiguity, confidence float64) *core.Directionality {
	if ambiguity > biasMaxAmbiguity || confidence < biasMinConfidence {
		return nil
	}

	up := 0.0
	down := 0.0
	for _, p := range pressures {
		w := p.Magnitude * p.Confidence
		switch p.Directionality {
		case core.DirectionPositive:
			up += w
		case core.DirectionNegative:
			down += w
		}
	}

	total := up + down
	if total < 1e-9 {
		return nil
	}

	score := (up - down) / total
	switch {
	case score >= biasScoreCut:
		d := core.DirectionPositive
		return &d
	case score <= -biasScoreCut:
		d := core.DirectionNegative
		return &d
	}
	return nil
}

// topContributors selects the n highest-weighted pressure IDs, weight
// descending with ID ascending on ties for a deterministic order.
func topContributors(pressures []core.Pressure, n int) []string {
	type ranked struct {
		weight float64
		id     string
	}

	entries := make([]ranked, 0, len(pressures))
	for _, p := range pressures {
		entries = append(entries, ranked{weight: p.Magnitude * p.Confidence, id: p.PressureID})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].weight != entries[j].weight {
			return entries[i].weight > entries[j].weight
		}
		return entries[i].id < entries[j].id
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.id)
	}
	return ids
}

// validHorizons collects the distinct horizons of the contributing
// pressures, sorted; defaults to short_term when nothing contributed.
func validHorizons(pressures []core.Pressure, contributing []string) []core.TimeHorizon {
	selected := make(map[string]bool, len(contributing))
	for _, id := range contributing {
		selected[id] = true
	}

	seen := make(map[core.TimeHorizon]bool)
	horizons := make([]core.TimeHorizon, 0, len(contributing))
	for _, p := range pressures {
		if selected[p.PressureID] && !seen[p.TimeHorizon] {
			seen[p.TimeHorizon] = true
			horizons = append(horizons, p.TimeHorizon)
		}
	}

	if len(horizons) == 0 {
		return []core.TimeHorizon{core.HorizonShortTerm}
	}
	sort.Slice(horizons, func(i, j int) bool { return horizons[i] < horizons[j] })
	return horizons
}

// explain renders the component-referential explanation string. It names
// what the state rests on, never what to do about it.
func explain(label core.StateLabel, instability, ambiguity float64, contributing []string, interactionCount int) string {
	pressureRef := "No contributing pressures"
	if len(contributing) > 0 {
		pressureRef = "Contributing pressures: " + strings.Join(contributing, ", ")
	}

	interactionRef := "No interactions"
	if interactionCount > 0 {
		interactionRef = fmt.Sprintf("Interactions: %d", interactionCount)
	}

	return fmt.Sprintf("Risk state: %s (instability: %.2f, ambiguity: %.2f). %s. %s.",
		label, instability, ambiguity, pressureRef, interactionRef)
}
