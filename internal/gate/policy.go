package gate

import (
	"fmt"

	"github.com/rohan1090/market-risk-os/internal/core"
)

// =============================================================================
// Gate Policy Table
// =============================================================================
// The mapping from (instability, ambiguity) to behavior constraints is data,
// not logic: an ordered table evaluated first-match, every range inclusive
// at both ends. ⭐ SSOT: all built-in gate thresholds live in DefaultPolicy.

// Entry is one row of the policy table
type Entry struct {
	ScoreMin     float64             `yaml:"score_min" json:"score_min"`
	ScoreMax     float64             `yaml:"score_max" json:"score_max"`
	AmbiguityMin float64             `yaml:"ambiguity_min" json:"ambiguity_min"`
	AmbiguityMax float64             `yaml:"ambiguity_max" json:"ambiguity_max"`
	Allowed      []core.BehaviorType `yaml:"allowed" json:"allowed"`
	Forbidden    []core.BehaviorType `yaml:"forbidden" json:"forbidden"`
}

// Policy is the ordered constraint table
type Policy struct {
	Version int     `yaml:"version" json:"version"`
	Entries []Entry `yaml:"entries" json:"entries"`
}

// PolicyValidationError reports a structurally invalid policy table
type PolicyValidationError struct {
	Field   string
	Message string
}

func (e PolicyValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e Entry) matches(score, ambiguity float64) bool {
	return score >= e.ScoreMin && score <= e.ScoreMax &&
		ambiguity >= e.AmbiguityMin && ambiguity <= e.AmbiguityMax
}

// Match returns the first entry covering the score/ambiguity pair.
// A miss is a configuration defect, never silently defaulted.
func (p *Policy) Match(score, ambiguity float64) (Entry, error) {
	for _, entry := range p.Entries {
		if entry.matches(score, ambiguity) {
			return entry, nil
		}
	}
	return Entry{}, &core.PolicyConfigurationError{Score: score, Ambiguity: ambiguity}
}

// Validate checks the table's structural invariants: bounds inside [0, 1],
// ordered ranges, known behavior labels, disjoint allow/forbid sets.
func (p *Policy) Validate() error {
	if len(p.Entries) == 0 {
		return PolicyValidationError{"entries", "required"}
	}

	for i, entry := range p.Entries {
		if err := checkRange(fmt.Sprintf("entries[%d].score", i), entry.ScoreMin, entry.ScoreMax); err != nil {
			return err
		}
		if err := checkRange(fmt.Sprintf("entries[%d].ambiguity", i), entry.AmbiguityMin, entry.AmbiguityMax); err != nil {
			return err
		}

		seen := make(map[core.BehaviorType]bool, len(entry.Allowed))
		for _, b := range entry.Allowed {
			if !b.Valid() {
				return PolicyValidationError{
					Field:   fmt.Sprintf("entries[%d].allowed", i),
					Message: fmt.Sprintf("unknown behavior %q", b),
				}
			}
			seen[b] = true
		}
		for _, b := range entry.Forbidden {
			if !b.Valid() {
				return PolicyValidationError{
					Field:   fmt.Sprintf("entries[%d].forbidden", i),
					Message: fmt.Sprintf("unknown behavior %q", b),
				}
			}
			if seen[b] {
				return PolicyValidationError{
					Field:   fmt.Sprintf("entries[%d].forbidden", i),
					Message: fmt.Sprintf("behavior %q is also allowed", b),
				}
			}
		}
	}
	return nil
}

func checkRange(field string, lo, hi float64) error {
	if lo < 0 || lo > 1 || hi < 0 || hi > 1 {
		return PolicyValidationError{field, "bounds must be in [0, 1]"}
	}
	if lo > hi {
		return PolicyValidationError{field, "min must be <= max"}
	}
	return nil
}

// DefaultPolicy returns the built-in constraint table.
// Rows are ordered most severe first and together cover the whole
// [0,1]x[0,1] plane, so Match always lands somewhere.
func DefaultPolicy() *Policy {
	return &Policy{
		Version: 1,
		Entries: []Entry{
			// Crisis band: capital preservation only
			{
				ScoreMin: 0.92, ScoreMax: 1.0, AmbiguityMin: 0.0, AmbiguityMax: 1.0,
				Allowed:   []core.BehaviorType{core.BehaviorHedgingOnly, core.BehaviorReduceExposure},
				Forbidden: behaviorsExcept(core.BehaviorHedgingOnly, core.BehaviorReduceExposure),
			},
			// Unstable band: directional and inventory-heavy behaviors off
			{
				ScoreMin: 0.80, ScoreMax: 0.92, AmbiguityMin: 0.0, AmbiguityMax: 1.0,
				Allowed: behaviorsExcept(core.BehaviorCarry, core.BehaviorLiquidityProviding,
					core.BehaviorMeanReversion, core.BehaviorTrendFollowing),
				Forbidden: []core.BehaviorType{core.BehaviorCarry, core.BehaviorLiquidityProviding,
					core.BehaviorMeanReversion, core.BehaviorTrendFollowing},
			},
			// Elevated with a clear signal
			{
				ScoreMin: 0.55, ScoreMax: 0.80, AmbiguityMin: 0.0, AmbiguityMax: 0.35,
				Allowed:   behaviorsExcept(core.BehaviorCarry, core.BehaviorTrendFollowing),
				Forbidden: []core.BehaviorType{core.BehaviorCarry, core.BehaviorTrendFollowing},
			},
			// Elevated with a conflicted signal: volatility expansion joins the ban
			{
				ScoreMin: 0.55, ScoreMax: 0.80, AmbiguityMin: 0.35, AmbiguityMax: 1.0,
				Allowed: behaviorsExcept(core.BehaviorCarry, core.BehaviorTrendFollowing,
					core.BehaviorVolatilityExpansion),
				Forbidden: []core.BehaviorType{core.BehaviorCarry, core.BehaviorTrendFollowing,
					core.BehaviorVolatilityExpansion},
			},
			// Calm band: nothing constrained
			{
				ScoreMin: 0.0, ScoreMax: 0.55, AmbiguityMin: 0.0, AmbiguityMax: 1.0,
				Allowed:   core.AllBehaviors(),
				Forbidden: []core.BehaviorType{},
			},
		},
	}
}

// behaviorsExcept returns every behavior label except the given ones; the
// result keeps AllBehaviors' sorted order
func behaviorsExcept(excluded ...core.BehaviorType) []core.BehaviorType {
	skip := make(map[core.BehaviorType]bool, len(excluded))
	for _, b := range excluded {
		skip[b] = true
	}

	all := core.AllBehaviors()
	out := make([]core.BehaviorType, 0, len(all)-len(excluded))
	for _, b := range all {
		if !skip[b] {
			out = append(out, b)
		}
	}
	return out
}
