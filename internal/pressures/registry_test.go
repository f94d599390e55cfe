package pressures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/internal/core"
)

func TestRegistry_RegisterAndList(t *testing.T) {
	registry := NewRegistry()

	first := NewVolatilityRegimeShift()
	second := NewLiquidityStress()
	require.NoError(t, registry.Register(first))
	require.NoError(t, registry.Register(second))

	listed := registry.List()
	require.Len(t, listed, 2)
	assert.Equal(t, "volatility_regime_shift", listed[0].Name(), "insertion order must be stable")
	assert.Equal(t, "liquidity_stress", listed[1].Name())
}

func TestRegistry_DuplicateName(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewVolatilityRegimeShift()))

	err := registry.Register(NewVolatilityRegimeShift())
	require.Error(t, err)

	var dup *core.DuplicateDetectorError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "volatility_regime_shift", dup.Name)

	// The failed registration must not have changed the registry
	assert.Len(t, registry.List(), 1)
}

func TestRegistry_ListIsACopy(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewVolatilityRegimeShift()))

	listed := registry.List()
	listed[0] = NewSynthetic()

	assert.Equal(t, "volatility_regime_shift", registry.List()[0].Name())
}

func TestRegistry_RegisterDefaults(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterDefaults())

	names := make([]string, 0)
	for _, d := range registry.List() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{
		"volatility_regime_shift",
		"liquidity_stress",
		"momentum_exhaustion",
		"convexity_buildup",
	}, names)
}

func TestRegistry_RegisterDefaultsIdempotent(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterDefaults())
	require.NoError(t, registry.RegisterDefaults(), "second call must not fail on duplicates")

	assert.Len(t, registry.List(), 4, "second call must not add duplicates")
}

func TestRegistry_DefaultsRespectExistingRegistrations(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(NewSynthetic()))
	require.NoError(t, registry.RegisterDefaults())

	listed := registry.List()
	require.Len(t, listed, 5)
	assert.Equal(t, "synthetic", listed[0].Name(), "prior registrations keep their position")
}

func TestRegistry_Reset(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterDefaults())
	registry.Reset()

	assert.Empty(t, registry.List())

	// Names are free again after reset
	require.NoError(t, registry.Register(NewVolatilityRegimeShift()))
}
