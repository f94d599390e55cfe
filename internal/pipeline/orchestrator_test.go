package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/pressures"
	"github.com/rohan1090/market-risk-os/internal/providers"
	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

var testNow = time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC)

// stubFeatures implements providers.FeatureProvider and records the call
type stubFeatures struct {
	features map[string]float64
	err      error

	gotSymbol string
	gotAt     time.Time
	onCall    func()
}

func (s *stubFeatures) GetFeatures(ctx context.Context, symbol string, at time.Time) (map[string]float64, error) {
	s.gotSymbol = symbol
	s.gotAt = at
	if s.onCall != nil {
		s.onCall()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.features, nil
}

// stubDetector implements pressures.Detector with a fixed payload
type stubDetector struct {
	name  string
	out   []core.Pressure
	err   error
	gotAt time.Time
}

func (d *stubDetector) Name() string { return d.name }

func (d *stubDetector) Type() core.PressureType { return core.PressureVolatility }

func (d *stubDetector) Horizon() core.TimeHorizon { return core.HorizonShortTerm }

func (d *stubDetector) Detect(symbol string, featureMap map[string]float64, now time.Time) ([]core.Pressure, error) {
	d.gotAt = now
	if d.err != nil {
		return nil, d.err
	}
	return d.out, nil
}

// stubRecorder implements Recorder and captures every write
type stubRecorder struct {
	states []core.RiskState
	gates  []core.BehaviorGate

	stateErr error
	gateErr  error
}

func (r *stubRecorder) SaveRiskState(ctx context.Context, s core.RiskState) error {
	r.states = append(r.states, s)
	return r.stateErr
}

func (r *stubRecorder) SaveGateEvent(ctx context.Context, g core.BehaviorGate) error {
	r.gates = append(r.gates, g)
	return r.gateErr
}

func stubPressure(t *testing.T, id string, magnitude float64) core.Pressure {
	t.Helper()
	p, err := core.NewPressure(core.Pressure{
		PressureID:     id,
		Name:           "stub_detector",
		PressureType:   core.PressureVolatility,
		TimeHorizon:    core.HorizonShortTerm,
		Symbol:         "SPX",
		DetectedAt:     testNow,
		Magnitude:      magnitude,
		Acceleration:   0,
		Confidence:     1.0,
		Directionality: core.DirectionNeutral,
	})
	require.NoError(t, err)
	return p
}

func registryWith(t *testing.T, detectors ...pressures.Detector) *pressures.Registry {
	t.Helper()
	registry := pressures.NewRegistry()
	for _, d := range detectors {
		require.NoError(t, registry.Register(d))
	}
	return registry
}

func newTestOrchestrator(t *testing.T, provider providers.FeatureProvider) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(provider, testLogger())
	require.NoError(t, err)
	o.clock = func() time.Time { return testNow }
	return o
}

func TestOrchestrator_RunHappyPath(t *testing.T) {
	provider := &stubFeatures{features: map[string]float64{"volatility_z": 1.2}}
	detector := &stubDetector{
		name: "stub_detector",
		out:  []core.Pressure{stubPressure(t, "press_stub_1", 0.5)},
	}

	o := newTestOrchestrator(t, provider).WithRegistry(registryWith(t, detector))

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "SPX", result.Symbol)
	assert.Equal(t, testNow, result.GeneratedAt)
	assert.Equal(t, provider.features, result.Features)
	require.Len(t, result.Pressures, 1)
	assert.Equal(t, "press_stub_1", result.Pressures[0].PressureID)
	assert.Empty(t, result.Interactions)
	assert.Empty(t, result.Failures)

	// One timestamp per run, seen identically by every stage
	assert.Equal(t, testNow, provider.gotAt)
	assert.Equal(t, testNow, detector.gotAt)
	assert.Equal(t, "SPX", provider.gotSymbol)

	wantStateID := fmt.Sprintf("state_SPX_%d", testNow.Unix())
	assert.Equal(t, wantStateID, result.RiskState.StateID)
	assert.Equal(t, testNow, result.RiskState.DetectedAt)
	assert.Equal(t, wantStateID, result.Gate.RiskStateID)
	assert.Equal(t, "gate_"+wantStateID, result.Gate.GateID)
}

func TestOrchestrator_ProviderErrorAborts(t *testing.T) {
	provider := &stubFeatures{
		err: &core.ProviderError{Symbol: "SPX", Err: errors.New("feed down")},
	}

	o := newTestOrchestrator(t, provider)

	result, err := o.Run(context.Background(), "SPX")
	require.Error(t, err)
	assert.Nil(t, result)

	var perr *core.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "SPX", perr.Symbol)
	assert.Contains(t, err.Error(), "feature retrieval")
}

func TestOrchestrator_DetectorFailureIsolated(t *testing.T) {
	broken := errors.New("feature window too short")
	failing := &stubDetector{name: "failing_detector", err: broken}
	working := &stubDetector{
		name: "working_detector",
		out:  []core.Pressure{stubPressure(t, "press_ok", 0.4)},
	}

	provider := &stubFeatures{features: map[string]float64{}}
	o := newTestOrchestrator(t, provider).WithRegistry(registryWith(t, failing, working))

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)
	require.NotNil(t, result)

	// The broken detector is recorded, the surviving one still contributes
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "failing_detector", result.Failures[0].Detector)
	assert.True(t, errors.Is(result.Failures[0], broken))

	require.Len(t, result.Pressures, 1)
	assert.Equal(t, "press_ok", result.Pressures[0].PressureID)
	assert.NotEmpty(t, result.Gate.GateID)
}

func TestOrchestrator_AllDetectorsFailStillCompletes(t *testing.T) {
	registry := registryWith(t,
		&stubDetector{name: "detector_a", err: errors.New("boom a")},
		&stubDetector{name: "detector_b", err: errors.New("boom b")},
	)

	provider := &stubFeatures{features: map[string]float64{}}
	o := newTestOrchestrator(t, provider).WithRegistry(registry)

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)

	assert.Len(t, result.Failures, 2)
	assert.Empty(t, result.Pressures)
	assert.Equal(t, core.StateStable, result.RiskState.DominantState)
	assert.Equal(t, 0.0, result.RiskState.InstabilityScore)
}

func TestOrchestrator_ContextCancelledAfterRetrieval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	provider := &stubFeatures{
		features: map[string]float64{},
		onCall:   cancel,
	}

	o := newTestOrchestrator(t, provider)

	result, err := o.Run(ctx, "SPX")
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOrchestrator_RecorderReceivesRun(t *testing.T) {
	recorder := &stubRecorder{}
	provider := &stubFeatures{features: map[string]float64{}}

	o := newTestOrchestrator(t, provider).
		WithRegistry(registryWith(t, &stubDetector{name: "stub_detector"})).
		WithRecorder(recorder)

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)

	require.Len(t, recorder.states, 1)
	require.Len(t, recorder.gates, 1)
	assert.Equal(t, result.RiskState.StateID, recorder.states[0].StateID)
	assert.Equal(t, result.Gate.GateID, recorder.gates[0].GateID)
}

func TestOrchestrator_RecorderFailureDoesNotAbort(t *testing.T) {
	recorder := &stubRecorder{
		stateErr: errors.New("db unreachable"),
		gateErr:  errors.New("db unreachable"),
	}
	provider := &stubFeatures{features: map[string]float64{}}

	o := newTestOrchestrator(t, provider).
		WithRegistry(registryWith(t, &stubDetector{name: "stub_detector"})).
		WithRecorder(recorder)

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)
	require.NotNil(t, result)

	// Both writes were attempted despite the first failing
	assert.Len(t, recorder.states, 1)
	assert.Len(t, recorder.gates, 1)
}

func TestOrchestrator_DefaultDetectorSet(t *testing.T) {
	provider := &stubFeatures{features: map[string]float64{
		"volatility_z": 2.4,
		"liquidity_z":  1.1,
		"momentum_z":   2.0,
		"convexity":    0.6,
		"stability":    0.9,
	}}

	o := newTestOrchestrator(t, provider)

	names := make([]string, 0, 4)
	for _, d := range o.Detectors() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{
		"volatility_regime_shift",
		"liquidity_stress",
		"momentum_exhaustion",
		"convexity_buildup",
	}, names)

	result, err := o.Run(context.Background(), "SPX")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Pressures)
	assert.Empty(t, result.Failures)
	assert.NotEmpty(t, result.RiskState.StateID)
	assert.NotEmpty(t, result.Gate.AllowedBehaviors)
}
