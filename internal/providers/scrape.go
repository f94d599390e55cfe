package providers

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rohan1090/market-risk-os/internal/core"
	"github.com/rohan1090/market-risk-os/pkg/httputil"
	"github.com/rohan1090/market-risk-os/pkg/logger"
)

// maxScrapePages bounds pagination so a bad parse can never loop forever
const maxScrapePages = 150

var scrapeDateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// ScrapeProvider parses daily OHLCV rows out of an HTML quote table.
// The no-API fallback: it walks the paginated daily-price pages until the
// rows fall before the window start.
// ⭐ SSOT: quote-page scraping goes through this provider only
type ScrapeProvider struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// NewScrapeProvider creates an HTML quote-table bar provider.
// Distributed throttling rides on the shared HTTP client's rate limiter.
func NewScrapeProvider(httpClient *httputil.Client, baseURL string, log *logger.Logger) *ScrapeProvider {
	if log != nil {
		log = log.Component("scrape")
	}
	return &ScrapeProvider{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     log,
	}
}

// GetBars scrapes [start, end) daily bars for the symbol
func (p *ScrapeProvider) GetBars(ctx context.Context, symbol string, start, end time.Time, timeframe string) ([]Bar, error) {
	if timeframe != TimeframeDaily {
		return nil, &core.ProviderError{
			Symbol: symbol,
			Err:    fmt.Errorf("unsupported timeframe %q: only %q bars are available", timeframe, TimeframeDaily),
		}
	}

	startUTC := core.EnsureUTC(start)
	endUTC := core.EnsureUTC(end)

	var bars []Bar
	noDataPages := 0

	for page := 1; page <= maxScrapePages; page++ {
		select {
		case <-ctx.Done():
			return nil, &core.ProviderError{Symbol: symbol, Err: ctx.Err()}
		default:
		}

		pageURL := fmt.Sprintf("%s/item/sise_day.naver?code=%s&page=%d",
			p.baseURL, url.QueryEscape(symbol), page)

		resp, err := p.httpClient.Get(ctx, pageURL)
		if err != nil {
			return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("quote page request failed: %w", err)}
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("read quote page failed: %w", err)}
		}

		pageBars, lastDate, hasMore := parseQuoteTable(string(body), startUTC, endUTC)
		bars = append(bars, pageBars...)

		// Pages run newest-first: once rows fall before the window, stop
		if !lastDate.IsZero() && lastDate.Before(startUTC) {
			break
		}
		if !hasMore {
			break
		}
		if lastDate.IsZero() {
			noDataPages++
			if noDataPages >= 3 {
				break
			}
		} else {
			noDataPages = 0
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })

	if err := ValidateBars(bars); err != nil {
		return nil, &core.ProviderError{Symbol: symbol, Err: fmt.Errorf("scraped bars: %w", err)}
	}

	if p.logger != nil {
		p.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"bars":   len(bars),
		}).Debug("Scraped quote-table bars")
	}

	return bars, nil
}

// parseQuoteTable extracts bars from one daily-price page.
// Table columns: date | close | change | open | high | low | volume.
// Returns the parsed bars, the last date seen on the page (zero when the
// page had no data rows), and whether a further page link exists.
func parseQuoteTable(html string, start, end time.Time) ([]Bar, time.Time, bool) {
	var bars []Bar
	var lastDate time.Time

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return bars, lastDate, false
	}

	tables := doc.Find("table.type2")
	if tables.Length() < 1 {
		return bars, lastDate, false
	}

	tables.Eq(0).Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !scrapeDateRe.MatchString(dateText) {
			return
		}

		tradeDate, err := time.Parse("2006-01-02", strings.ReplaceAll(dateText, ".", "-"))
		if err != nil {
			return
		}

		lastDate = tradeDate

		if tradeDate.Before(start) || !tradeDate.Before(end) {
			return
		}

		closePrice := parseQuoteNum(cells.Eq(1).Text())
		openPrice := parseQuoteNum(cells.Eq(3).Text())
		highPrice := parseQuoteNum(cells.Eq(4).Text())
		lowPrice := parseQuoteNum(cells.Eq(5).Text())
		volume := parseQuoteNum(cells.Eq(6).Text())

		// Spacer rows parse to all-zero prices
		if closePrice == 0 {
			return
		}

		bars = append(bars, Bar{
			TS:     tradeDate,
			Open:   openPrice,
			High:   highPrice,
			Low:    lowPrice,
			Close:  closePrice,
			Volume: volume,
		})
	})

	hasMore := doc.Find(".pgRR").Length() > 0
	return bars, lastDate, hasMore
}

// parseQuoteNum strips separators and signs off a table cell value
func parseQuoteNum(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "+", "")
	if s == "" || s == "-" {
		return 0
	}
	n, _ := strconv.ParseFloat(s, 64)
	return n
}
