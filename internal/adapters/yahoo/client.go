package yahoo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"minerva/internal/adapters/config"
	"minerva/internal/adapters/redis"
	"minerva/internal/domain/marketdata"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

const (
	quoteSummaryPath = "/v10/finance/quoteSummary/"
	chartPath        = "/v8/finance/chart/"
	searchPath       = "/v1/finance/search"

	// Yahoo rejects requests without a browser user agent.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Compile-time check
var _ marketdata.Provider = (*Client)(nil)

// Client fetches quotes, daily history and symbol matches from the Yahoo
// Finance JSON endpoints.
type Client struct {
	cfg        config.MarketDataConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *redis.Client
	log        *logger.Logger
}

// NewClient creates a market data client. cache may be nil; lookups then go
// straight to the upstream on every call.
func NewClient(cfg config.MarketDataConfig, cache *redis.Client) *Client {
	var limiter *rate.Limiter
	if cfg.ReqPerMinute > 0 {
		burst := int(cfg.ReqPerMinute / 10)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.ReqPerMinute/60.0), burst)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		cache:      cache,
		log:        logger.Get().With("component", "yahoo"),
	}
}

// GetSnapshot fetches the current quote for a ticker.
func (c *Client) GetSnapshot(ctx context.Context, ticker string) (*marketdata.Snapshot, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty ticker")
	}

	cacheKey := "quote:" + ticker
	if c.cache != nil {
		var cached marketdata.Snapshot
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !redis.IsCacheMiss(err) {
			c.log.Warnf("Quote cache read failed: %v", err)
		}
	}

	params := url.Values{
		"modules": []string{"price,summaryDetail,financialData,assetProfile"},
	}

	payload, err := c.get(ctx, quoteSummaryPath+url.PathEscape(ticker), params)
	if err != nil {
		return nil, err
	}

	var res quoteSummaryResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, errors.Wrap(err, "unmarshal quote response")
	}
	if res.QuoteSummary.Error != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "quote %s: %s", ticker, res.QuoteSummary.Error.Description)
	}
	if len(res.QuoteSummary.Result) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "quote %s: empty result", ticker)
	}

	snapshot := res.QuoteSummary.Result[0].toSnapshot(ticker)
	if snapshot.Price.IsZero() {
		return nil, errors.Wrapf(errors.ErrNotFound, "quote %s: no market price", ticker)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, snapshot, c.cfg.CacheTTL); err != nil {
			c.log.Warnf("Quote cache write failed: %v", err)
		}
	}

	return snapshot, nil
}

// GetHistory fetches daily OHLCV bars for the trailing window.
func (c *Client) GetHistory(ctx context.Context, ticker string, days int) ([]marketdata.Bar, error) {
	if ticker == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty ticker")
	}
	if days <= 0 {
		days = c.cfg.HistoryDays
	}

	now := time.Now()
	params := url.Values{
		"interval": []string{"1d"},
		"period1":  []string{strconv.FormatInt(now.AddDate(0, 0, -days).Unix(), 10)},
		"period2":  []string{strconv.FormatInt(now.Unix(), 10)},
		"events":   []string{"history"},
	}

	payload, err := c.get(ctx, chartPath+url.PathEscape(ticker), params)
	if err != nil {
		return nil, err
	}

	var res chartResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, errors.Wrap(err, "unmarshal chart response")
	}
	if res.Chart.Error != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "history %s: %s", ticker, res.Chart.Error.Description)
	}
	if len(res.Chart.Result) == 0 || len(res.Chart.Result[0].Timestamp) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "history %s: no bars", ticker)
	}

	return res.Chart.Result[0].toBars(), nil
}

// SearchEquities looks up listed equities matching a free-text query.
// Non-equity quote types (ETFs, indices, currencies) are filtered out.
func (c *Client) SearchEquities(ctx context.Context, query string) ([]marketdata.EquityMatch, error) {
	if query == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "empty query")
	}

	cacheKey := "search:" + query
	if c.cache != nil {
		var cached []marketdata.EquityMatch
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !redis.IsCacheMiss(err) {
			c.log.Warnf("Search cache read failed: %v", err)
		}
	}

	params := url.Values{
		"q":                []string{query},
		"quotesCount":      []string{strconv.Itoa(c.cfg.MaxSearchResults)},
		"newsCount":        []string{"0"},
		"enableFuzzyQuery": []string{"false"},
		"quotesQueryId":    []string{"tss_match_phrase_query"},
	}

	payload, err := c.get(ctx, searchPath, params)
	if err != nil {
		return nil, err
	}

	var res searchResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, errors.Wrap(err, "unmarshal search response")
	}

	matches := make([]marketdata.EquityMatch, 0, len(res.Quotes))
	for _, q := range res.Quotes {
		if q.QuoteType != "EQUITY" {
			continue
		}
		matches = append(matches, marketdata.EquityMatch{
			Exchange:  q.Exchange,
			Symbol:    q.Symbol,
			ShortName: q.ShortName,
			Sector:    q.Sector,
			LongName:  q.LongName,
			QuoteType: q.QuoteType,
			Score:     q.Score,
		})
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, matches, c.cfg.CacheTTL); err != nil {
			c.log.Warnf("Search cache write failed: %v", err)
		}
	}

	return matches, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrRateLimitExceeded, "market data rate limiter wait")
		}
	}

	reqURL := c.cfg.BaseURL + path
	if query := params.Encode(); query != "" {
		reqURL = reqURL + "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create HTTP request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "upstream returned 404 for %s", path)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Wrapf(errors.ErrRateLimitExceeded, "upstream returned 429 for %s", path)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Wrapf(errors.ErrExternal, "upstream returned %d for %s: %s",
			resp.StatusCode, path, truncate(string(payload), 200))
	}

	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// yfValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} number wrapper.
type yfValue struct {
	Raw *float64 `json:"raw"`
}

func (v *yfValue) floatPtr() *float64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	val := *v.Raw
	return &val
}

func (v *yfValue) intPtr() *int64 {
	if v == nil || v.Raw == nil {
		return nil
	}
	val := int64(*v.Raw)
	return &val
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *yahooError          `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResult struct {
	Price *struct {
		RegularMarketPrice         *yfValue `json:"regularMarketPrice"`
		RegularMarketChangePercent *yfValue `json:"regularMarketChangePercent"`
		RegularMarketTime          *int64   `json:"regularMarketTime"`
		Currency                   string   `json:"currency"`
		MarketCap                  *yfValue `json:"marketCap"`
		QuoteType                  string   `json:"quoteType"`
	} `json:"price"`
	SummaryDetail *struct {
		DayHigh          *yfValue `json:"dayHigh"`
		DayLow           *yfValue `json:"dayLow"`
		AverageVolume    *yfValue `json:"averageVolume"`
		FiftyTwoWeekHigh *yfValue `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  *yfValue `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail"`
	FinancialData *struct {
		TargetHighPrice   *yfValue `json:"targetHighPrice"`
		TargetLowPrice    *yfValue `json:"targetLowPrice"`
		TargetMeanPrice   *yfValue `json:"targetMeanPrice"`
		TargetMedianPrice *yfValue `json:"targetMedianPrice"`
	} `json:"financialData"`
	AssetProfile *struct {
		Sector  string `json:"sector"`
		Website string `json:"website"`
	} `json:"assetProfile"`
	DefaultKeyStatistics *struct {
		FiftyTwoWeekChange *yfValue `json:"52WeekChange"`
	} `json:"defaultKeyStatistics"`
}

func (r quoteSummaryResult) toSnapshot(ticker string) *marketdata.Snapshot {
	snapshot := &marketdata.Snapshot{
		Symbol:    ticker,
		Timestamp: time.Now().UTC(),
	}

	if r.Price != nil {
		if r.Price.RegularMarketPrice != nil && r.Price.RegularMarketPrice.Raw != nil {
			snapshot.Price = decimal.NewFromFloat(*r.Price.RegularMarketPrice.Raw)
		}
		if r.Price.RegularMarketChangePercent != nil && r.Price.RegularMarketChangePercent.Raw != nil {
			snapshot.ChangePercent = *r.Price.RegularMarketChangePercent.Raw * 100
		}
		if r.Price.RegularMarketTime != nil {
			snapshot.Timestamp = time.Unix(*r.Price.RegularMarketTime, 0).UTC()
		}
		snapshot.Currency = r.Price.Currency
		snapshot.QuoteType = r.Price.QuoteType
		snapshot.MarketCap = r.Price.MarketCap.intPtr()
	}

	if r.SummaryDetail != nil {
		snapshot.DayHigh = r.SummaryDetail.DayHigh.floatPtr()
		snapshot.DayLow = r.SummaryDetail.DayLow.floatPtr()
		snapshot.AverageVolume = r.SummaryDetail.AverageVolume.intPtr()
		snapshot.AllTimeHigh = r.SummaryDetail.FiftyTwoWeekHigh.floatPtr()
		snapshot.AllTimeLow = r.SummaryDetail.FiftyTwoWeekLow.floatPtr()
	}

	if r.FinancialData != nil {
		snapshot.TargetHighPrice = r.FinancialData.TargetHighPrice.floatPtr()
		snapshot.TargetLowPrice = r.FinancialData.TargetLowPrice.floatPtr()
		snapshot.TargetMeanPrice = r.FinancialData.TargetMeanPrice.floatPtr()
		snapshot.TargetMedianPrice = r.FinancialData.TargetMedianPrice.floatPtr()
	}

	if r.AssetProfile != nil {
		snapshot.Sector = r.AssetProfile.Sector
		snapshot.Website = r.AssetProfile.Website
	}

	if r.DefaultKeyStatistics != nil {
		snapshot.FiftyTwoWeekChange = r.DefaultKeyStatistics.FiftyTwoWeekChange.floatPtr()
	}

	return snapshot
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (r chartResult) toBars() []marketdata.Bar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	quote := r.Indicators.Quote[0]

	bars := make([]marketdata.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		// Yahoo pads half-days and holidays with nulls.
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bar := marketdata.Bar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *quote.Close[i],
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = *quote.Open[i]
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = *quote.Low[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}

	return bars
}

type searchResponse struct {
	Quotes []struct {
		Exchange  string  `json:"exchange"`
		Symbol    string  `json:"symbol"`
		ShortName string  `json:"shortname"`
		LongName  string  `json:"longname"`
		Sector    string  `json:"sector"`
		QuoteType string  `json:"quoteType"`
		Score     float64 `json:"score"`
	} `json:"quotes"`
}
