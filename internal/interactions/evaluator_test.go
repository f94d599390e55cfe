package interactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	pressures := []core.Pressure{
		testPressure(t, "press_a", core.HorizonShortTerm, core.DirectionNegative, 0.8, 0.9),
		testPressure(t, "press_b", core.HorizonShortTerm, core.DirectionNegative, 0.7, 0.7),
		testPressure(t, "press_c", core.HorizonIntraday, core.DirectionNegative, 0.9, 0.8),
	}

	interactions, err := evaluator.Evaluate(pressures)
	require.NoError(t, err)
	require.Len(t, interactions, 1, "only the short_term pair interacts")

	// Every referenced pressure must come from this run's set
	known := map[string]bool{"press_a": true, "press_b": true, "press_c": true}
	for _, ix := range interactions {
		for _, id := range ix.PressuresInvolved {
			assert.True(t, known[id])
		}
	}
}

func TestEvaluator_EmptyInput(t *testing.T) {
	evaluator := NewEvaluator(testLogger())

	interactions, err := evaluator.Evaluate(nil)
	require.NoError(t, err)
	assert.Empty(t, interactions)
}
