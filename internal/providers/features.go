package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/internal/features"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// defaultHistoryDays is the bar lookback when none is configured
const defaultHistoryDays = 120

// StoreProvider derives feature snapshots from bars: it pulls the trailing
// history from a bar provider and runs it through the feature store.
type StoreProvider struct {
	bars   BarProvider
	store  *features.Store
	lookbk time.Duration
	logger *logger.Logger
}

// NewStoreProvider creates a bars-to-features provider.
// historyDays below 1 falls back to 120 calendar days.
func NewStoreProvider(bars BarProvider, store *features.Store, historyDays int, log *logger.Logger) *StoreProvider {
	if historyDays <= 0 {
		historyDays = defaultHistoryDays
	}
	if log != nil {
		log = log.Component("features")
	}
	return &StoreProvider{
		bars:   bars,
		store:  store,
		lookbk: time.Duration(historyDays) * 24 * time.Hour,
		logger: log,
	}
}

// GetFeatures computes the feature map for the symbol as of at
func (p *StoreProvider) GetFeatures(ctx context.Context, symbol string, at time.Time) (map[string]float64, error) {
	atUTC := core.EnsureUTC(at)
	start := atUTC.Add(-p.lookbk)

	bars, err := p.bars.GetBars(ctx, symbol, start, atUTC, TimeframeDaily)
	if err != nil {
		var provErr *core.ProviderError
		if errors.As(err, &provErr) {
			return nil, err
		}
		return nil, &core.ProviderError{Symbol: symbol, Err: err}
	}
	if len(bars) == 0 {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("no bars in the %s window", p.lookbk)}
	}

	series := features.Series{
		Closes:     make([]float64, len(bars)),
		Volumes:    make([]float64, len(bars)),
		Timestamps: make([]time.Time, len(bars)),
	}
	for i, b := range bars {
		series.Closes[i] = b.Close
		series.Volumes[i] = b.Volume
		series.Timestamps[i] = b.TS
	}

	featureMap, err := p.store.Compute(symbol, series, atUTC)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("feature computation: %w", err)}
	}

	return featureMap, nil
}

// StaticProvider serves fixed feature maps, keyed by symbol.
// The deterministic path for tests and offline runs.
type StaticProvider struct {
	features map[string]map[string]float64
}

// NewStaticProvider creates a provider over a fixed symbol-to-features map
func NewStaticProvider(featuresBySymbol map[string]map[string]float64) *StaticProvider {
	return &StaticProvider{features: featuresBySymbol}
}

// GetFeatures returns a copy of the configured map for the symbol
func (p *StaticProvider) GetFeatures(ctx context.Context, symbol string, at time.Time) (map[string]float64, error) {
	src, ok := p.features[symbol]
	if !ok {
		return nil, &core.ProviderError{Symbol: symbol, Err: errors.New("symbol not in static feature set")}
	}

	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out, nil
}
