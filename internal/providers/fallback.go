package providers

import (
	"context"
	"time"

	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// FallbackBarProvider chains two bar providers: reads go to the primary
// and fall back to the secondary when the primary fails. The scrape
// provider typically sits in the secondary slot as the no-API path.
type FallbackBarProvider struct {
	primary   BarProvider
	secondary BarProvider
	logger    *logger.Logger
}

// NewFallbackBarProvider wraps primary with a fallback.
// A nil secondary passes every call straight through.
func NewFallbackBarProvider(primary, secondary BarProvider, log *logger.Logger) *FallbackBarProvider {
	if log != nil {
		log = log.Component("provider_fallback")
	}
	return &FallbackBarProvider{
		primary:   primary,
		secondary: secondary,
		logger:    log,
	}
}

// GetBars serves from the primary provider, retrying the window against
// the secondary when the primary errors
func (p *FallbackBarProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]Bar, error) {
	bars, err := p.primary.GetBars(ctx, symbol, start, end, timeframe)
	if err == nil || p.secondary == nil {
		return bars, err
	}

	// A cancelled context caused the failure; a second attempt would lie
	if ctx.Err() != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}).Warn("Primary bar provider failed, trying fallback")
	}

	return p.secondary.GetBars(ctx, symbol, start, end, timeframe)
}
