package jobs

import (
	"context"
	"fmt"

	"github.com/rohan1090/market-risk-os/internal/pipeline"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// WatchlistJob runs the full risk pipeline for every watchlist symbol
// ⭐ SSOT: the scheduled watchlist sweep is defined in this job only
type WatchlistJob struct {
	orchestrator *pipeline.Orchestrator
	symbols      []string
	schedule     string
	logger       *logger.Logger
}

// NewWatchlistJob creates a new watchlist evaluation job
func NewWatchlistJob(orch *pipeline.Orchestrator, symbols []string, schedule string, log *logger.Logger) *WatchlistJob {
	return &WatchlistJob{
		orchestrator: orch,
		symbols:      symbols,
		schedule:     schedule,
		logger:       log,
	}
}

// Name returns the job name
func (j *WatchlistJob) Name() string {
	return "watchlist_evaluation"
}

// Schedule returns the configured cron schedule
func (j *WatchlistJob) Schedule() string {
	return j.schedule
}

// Run evaluates every watchlist symbol through the pipeline.
// A failing symbol does not stop the sweep; the error reports how
// many symbols failed so the scheduler can retry the whole job.
func (j *WatchlistJob) Run(ctx context.Context) error {
	j.logger.WithField("symbols", len(j.symbols)).Info("Starting watchlist evaluation")

	failures := 0
	for _, symbol := range j.symbols {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := j.orchestrator.Run(ctx, symbol)
		if err != nil {
			failures++
			j.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			}).Warn("Watchlist evaluation failed for symbol")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"symbol":      symbol,
			"state":       result.RiskState.DominantState,
			"instability": result.RiskState.InstabilityScore,
		}).Info("Watchlist symbol evaluated")
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d evaluations failed", failures, len(j.symbols))
	}

	j.logger.Info("Watchlist evaluation completed successfully")
	return nil
}
