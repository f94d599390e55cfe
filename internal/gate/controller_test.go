package gate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

var testNow = time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC)

func testState(t *testing.T, instability, ambiguity, confidence float64, horizons []core.TimeHorizon) core.RiskState {
	t.Helper()
	state, err := core.NewRiskState(core.RiskState{
		StateID:               "state_SPX_1777991400",
		Symbol:                "SPX",
		DominantState:         core.StateElevated,
		ContributingPressures: []string{"volatility_SPX_0"},
		Interactions:          []string{},
		InstabilityScore:      instability,
		Confidence:            confidence,
		Ambiguity:             ambiguity,
		ValidHorizons:         horizons,
		DetectedAt:            testNow,
		Explanation:           "fixture state",
	})
	require.NoError(t, err)
	return state
}

func TestController_Derive(t *testing.T) {
	controller := NewController(nil, testLogger())
	state := testState(t, 0.10, 0.10, 0.90, []core.TimeHorizon{core.HorizonShortTerm})

	built, err := controller.Derive(state)
	require.NoError(t, err)

	assert.Equal(t, "gate_state_SPX_1777991400", built.GateID)
	assert.Equal(t, "SPX", built.Symbol)
	assert.Equal(t, "state_SPX_1777991400", built.RiskStateID)
	assert.Equal(t, core.AllBehaviors(), built.AllowedBehaviors)
	assert.Empty(t, built.ForbiddenBehaviors)
	assert.InDelta(t, 0.9*0.9, built.AggressivenessLimit, 1e-12)
	assert.InDelta(t, 0.9, built.Confidence, 1e-12)
	assert.Equal(t, testNow, built.DetectedAt)
	assert.Contains(t, built.Explanation, "constrained (not instructed)")
}

func TestController_Derive_ForbiddenGrowsWithInstability(t *testing.T) {
	controller := NewController(nil, testLogger())

	calm, err := controller.Derive(testState(t, 0.10, 0.10, 0.80, []core.TimeHorizon{core.HorizonShortTerm}))
	require.NoError(t, err)

	stressed, err := controller.Derive(testState(t, 0.90, 0.10, 0.80, []core.TimeHorizon{core.HorizonShortTerm}))
	require.NoError(t, err)

	assert.NotEmpty(t, stressed.ForbiddenBehaviors)
	assert.Greater(t, len(stressed.ForbiddenBehaviors), len(calm.ForbiddenBehaviors))
}

func TestController_Derive_CrisisKeepsOnlyDefensive(t *testing.T) {
	controller := NewController(nil, testLogger())
	state := testState(t, 0.95, 0.20, 0.80, []core.TimeHorizon{core.HorizonShortTerm})

	built, err := controller.Derive(state)
	require.NoError(t, err)

	assert.Equal(t, []core.BehaviorType{core.BehaviorHedgingOnly, core.BehaviorReduceExposure}, built.AllowedBehaviors)
	assert.Len(t, built.ForbiddenBehaviors, 6)
	assert.InDelta(t, 0.05*0.80, built.AggressivenessLimit, 1e-12)
	assert.InDelta(t, 0.80, built.Confidence, 1e-12)
}

func TestController_Derive_ConfidenceCappedByAmbiguity(t *testing.T) {
	controller := NewController(nil, testLogger())
	state := testState(t, 0.60, 0.40, 0.90, []core.TimeHorizon{core.HorizonShortTerm})

	built, err := controller.Derive(state)
	require.NoError(t, err)
	assert.InDelta(t, 0.60, built.Confidence, 1e-12)
}

func TestController_EnforcedUntil(t *testing.T) {
	controller := NewController(nil, testLogger())

	tests := []struct {
		name     string
		horizons []core.TimeHorizon
		want     time.Time
	}{
		{
			name:     "intraday truncates to the hour",
			horizons: []core.TimeHorizon{core.HorizonIntraday, core.HorizonShortTerm},
			want:     time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
		},
		{
			name:     "short term holds one day",
			horizons: []core.TimeHorizon{core.HorizonShortTerm},
			want:     testNow.Add(24 * time.Hour),
		},
		{
			name:     "longer horizons hold a week",
			horizons: []core.TimeHorizon{core.HorizonMediumTerm},
			want:     testNow.Add(7 * 24 * time.Hour),
		},
		{
			name:     "no horizon defaults to a week",
			horizons: nil,
			want:     testNow.Add(7 * 24 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built, err := controller.Derive(testState(t, 0.10, 0.10, 0.90, tt.horizons))
			require.NoError(t, err)
			assert.True(t, built.EnforcedUntil.Equal(tt.want),
				"enforced_until %v, want %v", built.EnforcedUntil, tt.want)
		})
	}
}

func TestController_PolicyGapFailsHard(t *testing.T) {
	// Custom table with a hole: nothing covers scores above 0.5
	policy := &Policy{
		Version: 1,
		Entries: []Entry{
			{ScoreMin: 0.0, ScoreMax: 0.5, AmbiguityMin: 0.0, AmbiguityMax: 1.0,
				Allowed: core.AllBehaviors()},
		},
	}
	controller := NewController(policy, testLogger())

	_, err := controller.Derive(testState(t, 0.70, 0.10, 0.80, []core.TimeHorizon{core.HorizonShortTerm}))
	require.Error(t, err)

	var cfgErr *core.PolicyConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestController_SortsWithoutMutatingPolicy(t *testing.T) {
	unsorted := []core.BehaviorType{core.BehaviorTrendFollowing, core.BehaviorCarry}
	policy := &Policy{
		Version: 1,
		Entries: []Entry{
			{ScoreMin: 0.0, ScoreMax: 1.0, AmbiguityMin: 0.0, AmbiguityMax: 1.0,
				Allowed: unsorted},
		},
	}
	controller := NewController(policy, testLogger())

	built, err := controller.Derive(testState(t, 0.30, 0.10, 0.80, []core.TimeHorizon{core.HorizonShortTerm}))
	require.NoError(t, err)

	assert.Equal(t, []core.BehaviorType{core.BehaviorCarry, core.BehaviorTrendFollowing}, built.AllowedBehaviors)
	assert.Equal(t, []core.BehaviorType{core.BehaviorTrendFollowing, core.BehaviorCarry}, policy.Entries[0].Allowed)
}
