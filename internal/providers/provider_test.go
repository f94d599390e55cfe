package providers

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohan1090/market-risk-os/pkg/config"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
	}
	return logger.New(cfg)
}

// dayBar builds a valid daily bar on 2026-05-<day> UTC
func dayBar(day int, open, high, low, closePrice, volume float64) Bar {
	return Bar{
		TS:     time.Date(2026, 5, day, 0, 0, 0, 0, time.UTC),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}
}

func TestValidateBars_AcceptsWellFormedSeries(t *testing.T) {
	bars := []Bar{
		dayBar(1, 100, 105, 98, 103, 1000),
		dayBar(2, 103, 104, 101, 102, 900),
		dayBar(3, 102, 102, 102, 102, 0), // flat session, zero volume
	}

	require.NoError(t, ValidateBars(bars))
	require.NoError(t, ValidateBars(nil))
}

func TestValidateBars_Rejects(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)

	tests := []struct {
		name string
		bars []Bar
		want string
	}{
		{
			name: "zero timestamp",
			bars: []Bar{{Open: 1, High: 1, Low: 1, Close: 1}},
			want: "timestamp is zero",
		},
		{
			name: "non-UTC timestamp",
			bars: []Bar{{
				TS: time.Date(2026, 5, 1, 9, 0, 0, 0, kst),
				Open: 1, High: 1, Low: 1, Close: 1,
			}},
			want: "timestamp is not UTC",
		},
		{
			name: "NaN close",
			bars: []Bar{func() Bar {
				b := dayBar(1, 100, 105, 98, 103, 1000)
				b.Close = math.NaN()
				return b
			}()},
			want: "close is not finite",
		},
		{
			name: "infinite volume",
			bars: []Bar{func() Bar {
				b := dayBar(1, 100, 105, 98, 103, 1000)
				b.Volume = math.Inf(1)
				return b
			}()},
			want: "volume is not finite",
		},
		{
			name: "high below low",
			bars: []Bar{dayBar(1, 100, 95, 98, 99, 1000)},
			want: "high is below",
		},
		{
			name: "low above close",
			bars: []Bar{dayBar(1, 100, 105, 101, 100.5, 1000)},
			want: "low is above",
		},
		{
			name: "negative volume",
			bars: []Bar{dayBar(1, 100, 105, 98, 103, -5)},
			want: "volume is negative",
		},
		{
			name: "duplicate timestamps",
			bars: []Bar{
				dayBar(1, 100, 105, 98, 103, 1000),
				dayBar(1, 103, 104, 101, 102, 900),
			},
			want: "duplicates timestamp",
		},
		{
			name: "out of order",
			bars: []Bar{
				dayBar(2, 103, 104, 101, 102, 900),
				dayBar(1, 100, 105, 98, 103, 1000),
			},
			want: "not sorted ascending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBars(tt.bars)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
