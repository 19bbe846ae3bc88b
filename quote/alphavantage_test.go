package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAlphaVantageServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAlphaVantage_Lookup(t *testing.T) {
	srv := newAlphaVantageServer(t, http.StatusOK, `{
		"Global Quote": {"01. symbol": "IBM", "05. price": "182.4567"}
	}`)
	av := NewAlphaVantage(srv.URL, "test-key", time.Second)

	q, err := av.Lookup(context.Background(), " ibm ")
	require.NoError(t, err)
	assert.Equal(t, "IBM", q.Symbol)
	assert.Equal(t, "182.46", q.Price.StringFixed(2))
	assert.False(t, q.At.IsZero())
}

func TestAlphaVantage_Unavailable(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unknown symbol", status: http.StatusOK, body: `{"Global Quote": {}}`},
		{name: "rate limited", status: http.StatusOK, body: `{"Note": "Thank you for using Alpha Vantage!"}`},
		{name: "error message", status: http.StatusOK, body: `{"Error Message": "Invalid API call."}`},
		{name: "server error", status: http.StatusBadGateway, body: `oops`},
		{name: "not json", status: http.StatusOK, body: `<html></html>`},
		{name: "bad price", status: http.StatusOK, body: `{"Global Quote": {"05. price": "n/a"}}`},
		{name: "zero price", status: http.StatusOK, body: `{"Global Quote": {"05. price": "0.0000"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAlphaVantageServer(t, tc.status, tc.body)
			av := NewAlphaVantage(srv.URL, "test-key", time.Second)

			q, err := av.Lookup(context.Background(), "IBM")
			assert.Nil(t, q)
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestAlphaVantage_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)
	av := NewAlphaVantage(srv.URL, "test-key", 50*time.Millisecond)

	_, err := av.Lookup(context.Background(), "IBM")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func newDailyServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAlphaVantage_Daily(t *testing.T) {
	srv := newDailyServer(t, `{
		"Meta Data": {"2. Symbol": "IBM"},
		"Time Series (Daily)": {
			"2024-03-01": {"1. open": "185.00", "4. close": "185.456"},
			"2024-03-04": {"1. open": "186.00", "4. close": "187.00"},
			"2024-02-29": {"1. open": "184.00", "4. close": "184.10"}
		}
	}`)
	av := NewAlphaVantage(srv.URL, "test-key", time.Second)

	series, err := av.Daily(context.Background(), "ibm")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), series[0].At)
	assert.Equal(t, "187.00", series[0].Price.StringFixed(2))
	assert.Equal(t, "185.46", series[1].Price.StringFixed(2))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), series[2].At)
	for _, q := range series {
		assert.Equal(t, "IBM", q.Symbol)
	}
}

func TestAlphaVantage_DailyUnavailable(t *testing.T) {
	for _, body := range []string{
		`{}`,
		`{"Note": "Thank you for using Alpha Vantage!"}`,
		`{"Information": "premium endpoint"}`,
		`{"Time Series (Daily)": {"yesterday": {"4. close": "1.00"}}}`,
		`{"Time Series (Daily)": {"2024-03-01": {"4. close": "0"}}}`,
	} {
		srv := newDailyServer(t, body)
		av := NewAlphaVantage(srv.URL, "test-key", time.Second)

		series, err := av.Daily(context.Background(), "IBM")
		assert.Nil(t, series, body)
		assert.ErrorIs(t, err, ErrUnavailable, body)
	}
}
