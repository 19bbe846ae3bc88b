package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://www.alphavantage.co"

// dailyLayout is the date format of TIME_SERIES_DAILY keys.
const dailyLayout = "2006-01-02"

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol string `json:"01. symbol"`
		Price  string `json:"05. price"`
	} `json:"Global Quote"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

type dailySeriesResponse struct {
	TimeSeriesDaily map[string]struct {
		Close string `json:"4. close"`
	} `json:"Time Series (Daily)"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// AlphaVantage fetches quotes from the Alpha Vantage GLOBAL_QUOTE endpoint.
type AlphaVantage struct {
	client *resty.Client
	apiKey string
	now    func() time.Time
}

func NewAlphaVantage(baseURL, apiKey string, timeout time.Duration) *AlphaVantage {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &AlphaVantage{client: client, apiKey: apiKey, now: time.Now}
}

func (a *AlphaVantage) Lookup(ctx context.Context, symbol string) (*Quote, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "GLOBAL_QUOTE",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", ErrUnavailable, symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch %s: status %d", ErrUnavailable, symbol, resp.StatusCode())
	}

	var result globalQuoteResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrUnavailable, symbol, err)
	}
	switch {
	case result.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.ErrorMessage)
	case result.Note != "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.Note)
	case result.Information != "" && result.GlobalQuote.Price == "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.Information)
	case result.GlobalQuote.Price == "":
		return nil, fmt.Errorf("%w: %s: no price in response", ErrUnavailable, symbol)
	}

	price, err := decimal.NewFromString(result.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad price %q", ErrUnavailable, symbol, result.GlobalQuote.Price)
	}
	price = price.Round(2)
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: %s: non-positive price %s", ErrUnavailable, symbol, price)
	}

	return &Quote{Symbol: symbol, Price: price, At: a.now()}, nil
}

// Daily returns the daily closing prices of symbol, newest first. Each Quote
// is stamped with midnight UTC of its trading day.
func (a *AlphaVantage) Daily(ctx context.Context, symbol string) ([]Quote, error) {
	symbol = normalize(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function": "TIME_SERIES_DAILY",
			"symbol":   symbol,
			"apikey":   a.apiKey,
		}).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("%w: fetch daily %s: %w", ErrUnavailable, symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: fetch daily %s: status %d", ErrUnavailable, symbol, resp.StatusCode())
	}

	var result dailySeriesResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: parse daily %s: %w", ErrUnavailable, symbol, err)
	}
	switch {
	case result.ErrorMessage != "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.ErrorMessage)
	case result.Note != "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.Note)
	case len(result.TimeSeriesDaily) == 0 && result.Information != "":
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, symbol, result.Information)
	case len(result.TimeSeriesDaily) == 0:
		return nil, fmt.Errorf("%w: %s: no daily series in response", ErrUnavailable, symbol)
	}

	series := make([]Quote, 0, len(result.TimeSeriesDaily))
	for date, bar := range result.TimeSeriesDaily {
		day, err := time.ParseInLocation(dailyLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad date %q", ErrUnavailable, symbol, date)
		}
		price, err := decimal.NewFromString(bar.Close)
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("%w: %s: bad close %q on %s", ErrUnavailable, symbol, bar.Close, date)
		}
		series = append(series, Quote{Symbol: symbol, Price: price.Round(2), At: day})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].At.After(series[j].At) })
	return series, nil
}
