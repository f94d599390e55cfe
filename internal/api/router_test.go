package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/internal/api/handlers"
	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/pipeline"
	"github.com/rohan1090/market-risk-os/internal/providers"
	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "test", LogLevel: "error"})
}

// stubGates serves a fixed gate without a database
type stubGates struct {
	gate *core.BehaviorGate
	err  error
}

func (s *stubGates) LatestGate(ctx context.Context, symbol string) (*core.BehaviorGate, error) {
	return s.gate, s.err
}

func testOrchestrator(t *testing.T) *pipeline.Orchestrator {
	t.Helper()
	provider := providers.NewStaticProvider(map[string]map[string]float64{
		"SPX": {
			"volatility_z":  2.4,
			"liquidity_z":   1.1,
			"momentum_z":    0.4,
			"convexity":     0.3,
			"stability":     0.9,
			"missing_ratio": 0.0,
		},
	})
	o, err := pipeline.NewOrchestrator(provider, testLogger())
	require.NoError(t, err)
	return o
}

func newTestServer(t *testing.T, gates handlers.GateReader, hub *Hub) *httptest.Server {
	t.Helper()
	log := testLogger()

	// A nil *Hub must stay a nil interface inside the handler
	var feed handlers.Broadcaster
	if hub != nil {
		feed = hub
	}

	handler := handlers.NewPipelineHandler(testOrchestrator(t), gates, feed, log)
	srv := httptest.NewServer(NewRouter(handler, hub, log))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "market-risk-os", body["service"])
}

func TestRouter_ListDetectors(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Get(srv.URL + "/api/v1/detectors")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count     int                     `json:"count"`
		Detectors []handlers.DetectorInfo `json:"detectors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	require.Equal(t, 4, body.Count)
	names := make([]string, 0, len(body.Detectors))
	for _, d := range body.Detectors {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{
		"volatility_regime_shift",
		"liquidity_stress",
		"momentum_exhaustion",
		"convexity_buildup",
	}, names)
}

func TestRouter_RunSymbol(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Post(srv.URL+"/api/v1/run/SPX", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result pipeline.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))

	assert.Equal(t, "SPX", result.Symbol)
	assert.NotEmpty(t, result.RiskState.StateID)
	assert.Equal(t, result.RiskState.StateID, result.Gate.RiskStateID)
	assert.NotEmpty(t, result.Gate.AllowedBehaviors)
}

func TestRouter_RunUnknownSymbolIsBadGateway(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := http.Post(srv.URL+"/api/v1/run/EURUSD", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["error"], "EURUSD")
}

func TestRouter_GetLatestGate(t *testing.T) {
	detectedAt := time.Date(2026, 5, 1, 14, 30, 0, 0, time.UTC)
	gate, err := core.NewBehaviorGate(core.BehaviorGate{
		GateID:              "gate_state_SPX_1777991400",
		Symbol:              "SPX",
		RiskStateID:         "state_SPX_1777991400",
		AllowedBehaviors:    []core.BehaviorType{core.BehaviorHedgingOnly},
		ForbiddenBehaviors:  []core.BehaviorType{core.BehaviorCarry},
		AggressivenessLimit: 0.4,
		Confidence:          0.8,
		EnforcedUntil:       detectedAt.Add(24 * time.Hour),
		DetectedAt:          detectedAt,
	})
	require.NoError(t, err)

	srv := newTestServer(t, &stubGates{gate: &gate}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/gates/SPX")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got core.BehaviorGate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, gate.GateID, got.GateID)
	assert.Equal(t, gate.AllowedBehaviors, got.AllowedBehaviors)
}

func TestRouter_GetLatestGateNotFound(t *testing.T) {
	srv := newTestServer(t, &stubGates{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/gates/SPX")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler exploded")
	})

	wrapped := recoveryMiddleware(testLogger())(panicking)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Internal server error"))
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	wrapped := loggingMiddleware(testLogger())(ok)

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
