package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"bandwatch/internal/version"
)

const yahooChartPath = "/v8/finance/chart/"

// YahooOptions parameterise the Yahoo Finance chart fetcher.
type YahooOptions struct {
	BaseURL   string
	Range     string
	Interval  string
	Timeout   time.Duration
	UserAgent string
}

// Yahoo fetches daily history from the Yahoo Finance chart API.
type Yahoo struct {
	opts    YahooOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewYahoo constructs a Yahoo fetcher.
func NewYahoo(opts YahooOptions, logger zerolog.Logger) *Yahoo {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Range == "" {
		opts.Range = "6mo"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}

	return &Yahoo{
		opts:    opts,
		logger:  logger.With().Str("component", "yahoo_fetcher").Logger(),
		client:  &http.Client{Timeout: opts.Timeout},
		baseURL: baseURL,
	}
}

// FetchDaily downloads the configured range of daily bars for symbol.
func (y *Yahoo) FetchDaily(ctx context.Context, symbol string) (PriceSeries, error) {
	if strings.TrimSpace(symbol) == "" {
		return PriceSeries{}, fmt.Errorf("symbol required")
	}

	ctx, cancel := context.WithTimeout(ctx, y.opts.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("range", y.opts.Range)
	query.Set("interval", y.opts.Interval)
	query.Set("includeAdjustedClose", "true")
	endpoint := y.baseURL + yahooChartPath + url.PathEscape(symbol) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PriceSeries{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(y.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return PriceSeries{}, fmt.Errorf("yahoo request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceSeries{}, fmt.Errorf("yahoo read body %s: %w", symbol, err)
	}

	var chart chartResponse
	decodeErr := json.Unmarshal(payload, &chart)

	if resp.StatusCode != http.StatusOK {
		return PriceSeries{}, parseHTTPError(symbol, resp.StatusCode, chart, decodeErr, payload)
	}
	if decodeErr != nil {
		return PriceSeries{}, fmt.Errorf("yahoo decode %s: %w", symbol, decodeErr)
	}
	if chart.Chart.Error != nil {
		return PriceSeries{}, fmt.Errorf("%w: yahoo %s: %s", ErrDataUnavailable, symbol, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return PriceSeries{}, fmt.Errorf("%w: yahoo returned no bars for %s", ErrDataUnavailable, symbol)
	}

	result := chart.Chart.Result[0]
	col, err := selectCloseColumn(result.columns())
	if err != nil {
		return PriceSeries{}, fmt.Errorf("%s: %w", symbol, err)
	}

	series, err := buildSeries(symbol, result.Timestamp, col, result.Meta.location())
	if err != nil {
		return PriceSeries{}, err
	}

	y.logger.Debug().Str("symbol", symbol).Str("field", series.Field).Int("points", series.Len()).Msg("history fetched")
	return series, nil
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartMeta struct {
	Symbol           string `json:"symbol"`
	GMTOffset        int    `json:"gmtoffset"`
	ExchangeTimezone string `json:"exchangeTimezoneName"`
}

func (m chartMeta) location() *time.Location {
	if m.ExchangeTimezone != "" {
		if loc, err := time.LoadLocation(m.ExchangeTimezone); err == nil {
			return loc
		}
	}
	return time.FixedZone("exchange", m.GMTOffset)
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// columns exposes the candidate price columns by canonical name.
func (r chartResult) columns() map[string][]*float64 {
	out := make(map[string][]*float64, 2)
	if len(r.Indicators.Quote) > 0 && r.Indicators.Quote[0].Close != nil {
		out[FieldClose] = r.Indicators.Quote[0].Close
	}
	if len(r.Indicators.AdjClose) > 0 && r.Indicators.AdjClose[0].AdjClose != nil {
		out[FieldAdjClose] = r.Indicators.AdjClose[0].AdjClose
	}
	return out
}

func parseHTTPError(symbol string, status int, chart chartResponse, decodeErr error, payload []byte) error {
	if decodeErr == nil && chart.Chart.Error != nil {
		if status == http.StatusNotFound {
			return fmt.Errorf("%w: yahoo %s (%d): %s", ErrDataUnavailable, symbol, status, chart.Chart.Error.Description)
		}
		return fmt.Errorf("yahoo api error %s (%d): %s", symbol, status, chart.Chart.Error.Description)
	}
	body := strings.TrimSpace(string(payload))
	if len(body) > 200 {
		body = body[:200]
	}
	if body != "" {
		return fmt.Errorf("yahoo api error %s (%d): %s", symbol, status, body)
	}
	return fmt.Errorf("yahoo api error %s (%d)", symbol, status)
}

var _ PriceFetcher = (*Yahoo)(nil)
