package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/gate"
	"github.com/rohan1090/market-risk-os/internal/interactions"
	"github.com/rohan1090/market-risk-os/internal/pressures"
	"github.com/rohan1090/market-risk-os/internal/providers"
	"github.com/rohan1090/market-risk-os/internal/state"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// Recorder persists completed evaluations. Writes are best-effort: the
// orchestrator logs persistence failures and returns the result anyway.
type Recorder interface {
	SaveRiskState(ctx context.Context, s core.RiskState) error
	SaveGateEvent(ctx context.Context, g core.BehaviorGate) error
}

// Orchestrator runs the five pipeline stages in order: feature retrieval,
// pressure detection, interaction evaluation, risk-state estimation,
// behavior-gate derivation.
// ⭐ SSOT: stage order and stage error policy are defined here and nowhere else
type Orchestrator struct {
	provider   providers.FeatureProvider
	registry   *pressures.Registry
	evaluator  *interactions.Evaluator
	estimator  *state.Estimator
	controller *gate.Controller
	recorder   Recorder
	clock      func() time.Time
	logger     *logger.Logger
}

// NewOrchestrator creates an orchestrator with the default detector set
// and the default gate policy
func NewOrchestrator(provider providers.FeatureProvider, log *logger.Logger) (*Orchestrator, error) {
	registry := pressures.NewRegistry()
	if err := registry.RegisterDefaults(); err != nil {
		return nil, fmt.Errorf("register default detectors: %w", err)
	}

	return &Orchestrator{
		provider:   provider,
		registry:   registry,
		evaluator:  interactions.NewEvaluator(log),
		estimator:  state.NewEstimator(log),
		controller: gate.NewController(nil, log),
		clock:      time.Now,
		logger:     log.Component("pipeline"),
	}, nil
}

// WithRegistry replaces the default detector registry
func (o *Orchestrator) WithRegistry(r *pressures.Registry) *Orchestrator {
	o.registry = r
	return o
}

// WithController replaces the default gate controller
func (o *Orchestrator) WithController(c *gate.Controller) *Orchestrator {
	o.controller = c
	return o
}

// WithRecorder attaches a persistence sink for completed evaluations
func (o *Orchestrator) WithRecorder(r Recorder) *Orchestrator {
	o.recorder = r
	return o
}

// Detectors returns the registered detectors in evaluation order
func (o *Orchestrator) Detectors() []pressures.Detector {
	return o.registry.List()
}

// Run executes one full evaluation for symbol. Every stage sees the same
// UTC timestamp. A provider failure aborts the run; a detector failure is
// recorded on the result and the run continues with the surviving set.
func (o *Orchestrator) Run(ctx context.Context, symbol string) (*Result, error) {
	started := time.Now()
	now := core.EnsureUTC(o.clock())

	featureMap, err := o.provider.GetFeatures(ctx, symbol, now)
	if err != nil {
		o.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}).Error("Feature retrieval failed")
		return nil, fmt.Errorf("feature retrieval: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	detected, failures := o.detectPressures(symbol, featureMap, now)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ixs, err := o.evaluator.Evaluate(detected)
	if err != nil {
		return nil, fmt.Errorf("interaction evaluation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	riskState, err := o.estimator.Estimate(symbol, detected, ixs, now)
	if err != nil {
		return nil, fmt.Errorf("risk state estimation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	behaviorGate, err := o.controller.Derive(riskState)
	if err != nil {
		return nil, fmt.Errorf("gate derivation: %w", err)
	}

	result := &Result{
		Symbol:       symbol,
		GeneratedAt:  now,
		Features:     featureMap,
		Pressures:    detected,
		Interactions: ixs,
		RiskState:    riskState,
		Gate:         behaviorGate,
		Failures:     failures,
	}

	o.record(ctx, result)

	o.logger.WithFields(map[string]interface{}{
		"symbol":       symbol,
		"pressures":    len(detected),
		"interactions": len(ixs),
		"state":        string(riskState.DominantState),
		"instability":  riskState.InstabilityScore,
		"failures":     len(failures),
		"duration_ms":  time.Since(started).Milliseconds(),
	}).Info("Pipeline run complete")

	return result, nil
}

// detectPressures runs every registered detector in registry order and
// isolates individual failures so one broken detector cannot sink the run.
func (o *Orchestrator) detectPressures(symbol string, featureMap map[string]float64, now time.Time) ([]core.Pressure, []*core.DetectorFailure) {
	var (
		detected []core.Pressure
		failures []*core.DetectorFailure
	)

	for _, d := range o.registry.List() {
		found, err := d.Detect(symbol, featureMap, now)
		if err != nil {
			failures = append(failures, core.NewDetectorFailure(d.Name(), err))
			o.logger.WithFields(map[string]interface{}{
				"symbol":   symbol,
				"detector": d.Name(),
				"error":    err.Error(),
			}).Warn("Detector failed, continuing without it")
			continue
		}
		detected = append(detected, found...)
	}

	return detected, failures
}

// record persists the evaluation when a recorder is attached. The
// evaluation already happened, so a failed write is logged and swallowed;
// the caller still gets the result.
func (o *Orchestrator) record(ctx context.Context, r *Result) {
	if o.recorder == nil {
		return
	}

	if err := o.recorder.SaveRiskState(ctx, r.RiskState); err != nil {
		o.logger.WithFields(map[string]interface{}{
			"symbol": r.Symbol,
			"error":  err.Error(),
		}).Warn("Risk state persistence failed")
	}
	if err := o.recorder.SaveGateEvent(ctx, r.Gate); err != nil {
		o.logger.WithFields(map[string]interface{}{
			"symbol": r.Symbol,
			"error":  err.Error(),
		}).Warn("Gate event persistence failed")
	}
}
