package providers

import (
	"context"
	"fmt"
	"math"
	"time"
)

// TimeframeDaily is the only bar timeframe the pipeline consumes
const TimeframeDaily = "1D"

// Bar is one OHLCV observation with a UTC timestamp
type Bar struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// BarProvider returns historical bars for a symbol over [start, end),
// sorted ascending by timestamp.
type BarProvider interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]Bar, error)
}

// FeatureProvider produces the feature snapshot the detectors consume.
// Failures surface as *core.ProviderError and abort the run.
type FeatureProvider interface {
	GetFeatures(ctx context.Context, symbol string, at time.Time) (map[string]float64, error)
}

// ValidateBars checks bar-series invariants: UTC timestamps strictly
// ascending with no duplicates, finite prices, high/low bracketing
// open and close, non-negative volume.
func ValidateBars(bars []Bar) error {
	for i, b := range bars {
		if b.TS.IsZero() {
			return fmt.Errorf("bar[%d] timestamp is zero", i)
		}
		if b.TS.Location() != time.UTC {
			return fmt.Errorf("bar[%d] timestamp is not UTC", i)
		}

		prices := []struct {
			name  string
			value float64
		}{
			{"open", b.Open},
			{"high", b.High},
			{"low", b.Low},
			{"close", b.Close},
			{"volume", b.Volume},
		}
		for _, p := range prices {
			if !finite(p.value) {
				return fmt.Errorf("bar[%d].%s is not finite", i, p.name)
			}
		}

		if b.High < b.Open || b.High < b.Close || b.High < b.Low {
			return fmt.Errorf("bar[%d] high is below open/close/low", i)
		}
		if b.Low > b.Open || b.Low > b.Close {
			return fmt.Errorf("bar[%d] low is above open/close", i)
		}
		if b.Volume < 0 {
			return fmt.Errorf("bar[%d] volume is negative", i)
		}

		if i > 0 {
			prev := bars[i-1].TS
			if b.TS.Equal(prev) {
				return fmt.Errorf("bar[%d] duplicates timestamp %s", i, b.TS.Format(time.RFC3339))
			}
			if b.TS.Before(prev) {
				return fmt.Errorf("bars are not sorted ascending at index %d", i)
			}
		}
	}

	return nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
