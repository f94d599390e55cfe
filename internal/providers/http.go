package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/httputil"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// ChartProvider pulls daily bars from a chart JSON endpoint through the
// retrying HTTP client, throttled by an in-process token bucket.
// ⭐ SSOT: chart API calls go through this provider only
type ChartProvider struct {
	httpClient *httputil.Client
	limiter    *rate.Limiter
	baseURL    string
	logger     *logger.Logger
}

// NewChartProvider creates a chart API bar provider.
// perSecond/burst below 1 fall back to 5 req/s.
func NewChartProvider(httpClient *httputil.Client, baseURL string, perSecond, burst int, log *logger.Logger) *ChartProvider {
	if perSecond <= 0 {
		perSecond = 5
	}
	if burst <= 0 {
		burst = perSecond
	}
	if log != nil {
		log = log.Component("chart")
	}
	return &ChartProvider{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		baseURL:    baseURL,
		logger:     log,
	}
}

// chartPayload mirrors the chart endpoint response shape. Quote arrays
// carry nulls for halted sessions, so entries are pointers.
type chartPayload struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetBars fetches [start, end) daily bars for the symbol
func (p *ChartProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]Bar, error) {
	if timeframe != TimeframeDaily {
		return nil, &core.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("unsupported timeframe %q: only %q bars are available", timeframe, TimeframeDaily),
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	fullURL := fmt.Sprintf("%s/chart/%s?interval=1d&period1=%d&period2=%d",
		p.baseURL, url.PathEscape(symbol),
		core.EnsureUTC(start).Unix(), core.EnsureUTC(end).Unix(),
	)

	resp, err := p.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("chart request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("read response body failed: %w", err)}
	}

	bars, err := parseChartPayload(body)
	if err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: err}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })

	if err := ValidateBars(bars); err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("chart bars: %w", err)}
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   len(bars),
		}).Debug("Fetched chart bars")
	}

	return bars, nil
}

// parseChartPayload extracts bars from the chart response. Rows with a
// null open/high/low/close are skipped; a null volume reads as 0.
func parseChartPayload(body []byte) ([]Bar, error) {
	var payload chartPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("chart response was not valid JSON: %w", err)
	}

	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart payload missing result")
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart payload missing quote data")
	}
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, okO := quoteAt(quote.Open, i)
		high, okH := quoteAt(quote.High, i)
		low, okL := quoteAt(quote.Low, i)
		closePrice, okC := quoteAt(quote.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}

		volume, okV := quoteAt(quote.Volume, i)
		if !okV {
			volume = 0
		}

		bars = append(bars, Bar{
			TS:     time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars, nil
}

// quoteAt reads index i from a nullable quote array
func quoteAt(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil || !finite(*values[i]) {
		return 0, false
	}
	return *values[i], true
}
