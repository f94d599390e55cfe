package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// FixtureProvider reads bars from a local JSON fixture file.
// Deterministic and offline: the file is read on every GetBars call, so
// tests can swap fixtures without rebuilding the provider.
//
// Supported fixture formats:
//   - a flat list of bar objects
//   - an object mapping symbol to a list of bar objects
type FixtureProvider struct {
	path   string
	logger *logger.Logger
}

// NewFixtureProvider creates a fixture-backed bar provider
func NewFixtureProvider(path string, log *logger.Logger) *FixtureProvider {
	if log != nil {
		log = log.Component("fixture")
	}
	return &FixtureProvider{
		path:   path,
		logger: log,
	}
}

// GetBars loads, filters and validates fixture bars for the symbol.
// The window is inclusive of start and exclusive of end. Rows with a
// missing timestamp or non-finite prices are skipped; a missing volume
// defaults to 0.
func (p *FixtureProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]Bar, error) {
	if timeframe != TimeframeDaily {
		return nil, &core.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("unsupported timeframe %q: only %q bars are available", timeframe, TimeframeDaily),
		}
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("read fixture: %w", err)}
	}

	rows, err := selectFixtureRows(data, symbol)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: err}
	}

	startUTC := core.EnsureUTC(start)
	endUTC := core.EnsureUTC(end)

	bars := make([]Bar, 0, len(rows))
	for _, item := range rows {
		var row map[string]interface{}
		if err := json.Unmarshal(item, &row); err != nil {
			continue
		}

		rawTS := row["ts"]
		if rawTS == nil {
			rawTS = row["datetime"]
		}
		if rawTS == nil {
			rawTS = row["timestamp"]
		}
		ts, ok := parseFixtureTS(rawTS)
		if !ok {
			continue
		}

		if ts.Before(startUTC) || !ts.Before(endUTC) {
			continue
		}

		open, okO := finiteValue(row["open"])
		high, okH := finiteValue(row["high"])
		low, okL := finiteValue(row["low"])
		closePrice, okC := finiteValue(row["close"])
		if !okO || !okH || !okL || !okC {
			continue
		}

		volume, okV := finiteValue(row["volume"])
		if !okV {
			volume = 0
		}

		bars = append(bars, Bar{
			TS:     ts,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })

	if err := ValidateBars(bars); err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("fixture bars: %w", err)}
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"path":   p.path,
			"bars":   len(bars),
		}).Debug("Loaded fixture bars")
	}

	return bars, nil
}

// selectFixtureRows resolves the row list for the symbol. A flat list
// serves every symbol; a symbol map must contain the symbol explicitly.
func selectFixtureRows(data []byte, symbol string) ([]json.RawMessage, error) {
	var flat []json.RawMessage
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var bySymbol map[string]json.RawMessage
	if err := json.Unmarshal(data, &bySymbol); err != nil {
		return nil, errors.New("fixture must be a bar list or a symbol map")
	}

	raw, ok := bySymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %q not present in fixture", symbol)
	}

	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("fixture rows for %q must be a list: %w", symbol, err)
	}

	return flat, nil
}

// parseFixtureTS accepts unix seconds (milliseconds above 1e11), RFC3339
// strings, and bare date/datetime strings read as UTC.
func parseFixtureTS(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		if !finite(x) {
			return time.Time{}, false
		}
		secs := x
		if secs > 1e11 {
			secs /= 1000
		}
		sec, frac := math.Modf(secs)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true

	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), true
		}
		for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}

	return time.Time{}, false
}

// finiteValue coerces a JSON value to a finite float64
func finiteValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if finite(x) {
			return x, true
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil && finite(f) {
			return f, true
		}
	}
	return 0, false
}
