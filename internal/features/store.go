package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// Feature keys produced by the store
// ⭐ SSOT: detectors reference features by these names only
const (
	FeatureReturns          = "returns"
	FeatureVolatility       = "volatility"
	FeatureVolatilityZ      = "volatility_z"
	FeatureMomentumZ        = "momentum_z"
	FeatureLiquidityZ       = "liquidity_z"
	FeatureConvexity        = "convexity"
	FeatureStalenessSeconds = "staleness_seconds"
	FeatureMissingRatio     = "missing_ratio"
	FeatureStability        = "stability"
)

// Config holds the rolling windows for feature computation
type Config struct {
	ShortWindow int // recent realized-statistics window
	LongWindow  int // baseline window for z-scoring
}

// DefaultConfig returns the standard 20/60 bar windows
func DefaultConfig() Config {
	return Config{
		ShortWindow: 20,
		LongWindow:  60,
	}
}

// Series is the raw per-symbol input to feature computation.
// Slices are parallel: Closes[i], Volumes[i] and Timestamps[i] describe the
// same bar. Volumes may be empty when the source carries none.
type Series struct {
	Closes     []float64
	Volumes    []float64
	Timestamps []time.Time
}

// Store computes the per-symbol feature map from a bar series
type Store struct {
	cfg    Config
	logger *logger.Logger
}

// NewStore creates a feature store with the given windows
func NewStore(cfg Config, log *logger.Logger) *Store {
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = DefaultConfig().ShortWindow
	}
	if cfg.LongWindow <= 0 {
		cfg.LongWindow = DefaultConfig().LongWindow
	}
	return &Store{
		cfg:    cfg,
		logger: log,
	}
}

// Compute derives the full feature map for one symbol.
// Short histories degrade gracefully: baseline z-scores fall back to 0
// instead of failing, so a young series still produces a usable map.
func (s *Store) Compute(symbol string, series Series, now time.Time) (map[string]float64, error) {
	n := len(series.Closes)
	if n == 0 {
		return nil, fmt.Errorf("no bars for %s", symbol)
	}
	if len(series.Timestamps) != n {
		return nil, fmt.Errorf("series for %s: %d closes but %d timestamps", symbol, n, len(series.Timestamps))
	}
	if len(series.Volumes) != 0 && len(series.Volumes) != n {
		return nil, fmt.Errorf("series for %s: %d closes but %d volumes", symbol, n, len(series.Volumes))
	}
	for i, c := range series.Closes {
		if !isFinite(c) {
			return nil, fmt.Errorf("series for %s: close[%d] is not finite", symbol, i)
		}
	}

	returns := computeReturns(series.Closes)
	volatility := RollingStd(returns, s.cfg.ShortWindow)
	volatilityZ := s.volatilityZ(returns, volatility)

	lastReturn := 0.0
	momentumZ := 0.0
	if len(returns) > 0 {
		lastReturn = returns[len(returns)-1]
	}
	if len(returns) >= 2 {
		momentumZ = ZScore(lastReturn, RollingMean(returns, s.cfg.LongWindow), RollingStd(returns, s.cfg.LongWindow))
	}

	features := map[string]float64{
		FeatureReturns:          lastReturn,
		FeatureVolatility:       volatility,
		FeatureVolatilityZ:      volatilityZ,
		FeatureMomentumZ:        momentumZ,
		FeatureLiquidityZ:       s.liquidityZ(series.Volumes),
		FeatureConvexity:        s.convexity(series.Closes),
		FeatureStalenessSeconds: stalenessSeconds(series.Timestamps, now),
		FeatureMissingRatio:     missingRatio(series.Timestamps),
		FeatureStability:        Clamp(1.0/(1.0+math.Abs(volatilityZ)), 0.0, 1.0),
	}

	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"symbol":       symbol,
			"bars":         n,
			"volatility_z": features[FeatureVolatilityZ],
			"momentum_z":   features[FeatureMomentumZ],
			"liquidity_z":  features[FeatureLiquidityZ],
			"staleness_s":  features[FeatureStalenessSeconds],
		}).Debug("Computed feature map")
	}

	return features, nil
}

// computeReturns builds simple one-step returns from closes
func computeReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			returns = append(returns, 0.0)
			continue
		}
		returns = append(returns, (closes[i]-prev)/prev)
	}
	return returns
}

// volatilityZ standardizes the current short-window volatility against the
// trailing series of short-window volatilities
func (s *Store) volatilityZ(returns []float64, current float64) float64 {
	if len(returns) < s.cfg.ShortWindow {
		return 0.0
	}

	history := make([]float64, 0, len(returns)-s.cfg.ShortWindow+1)
	for t := s.cfg.ShortWindow; t <= len(returns); t++ {
		history = append(history, RollingStd(returns[:t], s.cfg.ShortWindow))
	}
	if len(history) < 2 {
		return 0.0
	}

	return ZScore(current, RollingMean(history, s.cfg.LongWindow), RollingStd(history, s.cfg.LongWindow))
}

// liquidityZ measures volume shortfall: positive when recent volume runs
// below its long baseline (thin book), negative when it runs above
func (s *Store) liquidityZ(volumes []float64) float64 {
	if len(volumes) < 2 {
		return 0.0
	}
	recent := RollingMean(volumes, s.cfg.ShortWindow)
	baseMean := RollingMean(volumes, s.cfg.LongWindow)
	baseStd := RollingStd(volumes, s.cfg.LongWindow)
	return -ZScore(recent, baseMean, baseStd)
}

// convexity squashes the z-scored latest price curvature (second difference)
// into [0, 1]. Flat or short series sit at the 0.5 sigmoid midpoint.
func (s *Store) convexity(closes []float64) float64 {
	if len(closes) < 3 {
		return 0.5
	}
	curvature := make([]float64, 0, len(closes)-2)
	for i := 1; i < len(closes)-1; i++ {
		curvature = append(curvature, closes[i+1]-2.0*closes[i]+closes[i-1])
	}
	if len(curvature) < 2 {
		return 0.5
	}
	last := curvature[len(curvature)-1]
	z := ZScore(last, RollingMean(curvature, s.cfg.LongWindow), RollingStd(curvature, s.cfg.LongWindow))
	return Squash01FromZ(z)
}

// stalenessSeconds is the age of the last bar relative to now, floored at 0
func stalenessSeconds(timestamps []time.Time, now time.Time) float64 {
	if len(timestamps) == 0 {
		return 0.0
	}
	age := now.UTC().Sub(timestamps[len(timestamps)-1].UTC()).Seconds()
	if age < 0 {
		return 0.0
	}
	return age
}

// missingRatio estimates the fraction of expected bars absent from the
// series, using the median bar interval as the expected cadence
func missingRatio(timestamps []time.Time) float64 {
	if len(timestamps) < 3 {
		return 0.0
	}

	deltas := make([]float64, 0, len(timestamps)-1)
	for i := 1; i < len(timestamps); i++ {
		d := timestamps[i].Sub(timestamps[i-1]).Seconds()
		if d > 0 {
			deltas = append(deltas, d)
		}
	}
	if len(deltas) == 0 {
		return 0.0
	}

	sort.Float64s(deltas)
	median := deltas[len(deltas)/2]
	if median <= 0 {
		return 0.0
	}

	span := timestamps[len(timestamps)-1].Sub(timestamps[0]).Seconds()
	expected := math.Round(span/median) + 1.0
	if expected <= 0 {
		return 0.0
	}

	return Clamp(1.0-float64(len(timestamps))/expected, 0.0, 1.0)
}
