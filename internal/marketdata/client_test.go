package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/crestline-labs/fincompare/internal/cache"
	"github.com/crestline-labs/fincompare/internal/resilience"
)

const quoteCSV = "Symbol,Date,Time,Open,High,Low,Close,Volume\naapl.us,2024-06-03,22:00:11,192.9,194.99,192.52,194.03,50080539\n"

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL + "/"),
		WithHTTPClient(srv.Client()),
		WithRateLimit(rate.Inf, 1),
	}
	c := NewClient(append(base, opts...)...)
	c.retry = resilience.Policy{Attempts: 3, BaseDelay: time.Microsecond}
	return c
}

func TestGetQuote(t *testing.T) {
	var gotSymbol atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSymbol.Store(r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(quoteCSV))
	})

	q, err := c.GetQuote(context.Background(), "AAPL.US")
	require.NoError(t, err)

	assert.Equal(t, "aapl.us", gotSymbol.Load(), "symbol is lowercased on the wire")
	assert.Equal(t, "AAPL.US", q.Symbol)
	assert.Equal(t, "2024-06-03", q.Date)
	assert.InDelta(t, 194.03, q.Close, 1e-9)
	assert.EqualValues(t, 50080539, q.Volume)
}

func TestGetQuoteEmptySymbol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.GetQuote(context.Background(), "  ")
	assert.Error(t, err)
}

func TestGetQuoteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(quoteCSV))
	})

	q, err := c.GetQuote(context.Background(), "aapl.us")
	require.NoError(t, err)
	assert.InDelta(t, 194.03, q.Close, 1e-9)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetQuoteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.GetQuote(context.Background(), "aapl.us")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGetQuoteUsesCache(t *testing.T) {
	wc := cache.NewWebDataCache(8, time.Minute, time.Hour)
	defer wc.Close()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(quoteCSV))
	}, WithCache(wc))

	for range 3 {
		q, err := c.GetQuote(context.Background(), "aapl.us")
		require.NoError(t, err)
		assert.InDelta(t, 194.03, q.Close, 1e-9)
	}
	assert.EqualValues(t, 1, calls.Load(), "repeat lookups are served from cache")
}

func TestGetQuoteFailuresAreNotCached(t *testing.T) {
	wc := cache.NewWebDataCache(8, time.Minute, time.Hour)
	defer wc.Close()

	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(quoteCSV))
	}, WithCache(wc))

	_, err := c.GetQuote(context.Background(), "aapl.us")
	require.Error(t, err)

	q, err := c.GetQuote(context.Background(), "aapl.us")
	require.NoError(t, err, "a failure must not poison the cache")
	assert.InDelta(t, 194.03, q.Close, 1e-9)
}

func TestParseQuoteCSV(t *testing.T) {
	t.Run("missing symbol reported as N/D", func(t *testing.T) {
		body := "Symbol,Date,Time,Open,High,Low,Close,Volume\nNOPE.US,N/D,N/D,N/D,N/D,N/D,N/D,N/D\n"
		_, err := parseQuoteCSV(body, "nope.us")
		assert.Error(t, err)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := parseQuoteCSV("Symbol,Date,Time,Open,High,Low,Close,Volume\n", "aapl.us")
		assert.Error(t, err)
	})

	t.Run("truncated row", func(t *testing.T) {
		_, err := parseQuoteCSV("h\naapl.us,2024-06-03,22:00\n", "aapl.us")
		assert.Error(t, err)
	})

	t.Run("volume N/D tolerated", func(t *testing.T) {
		body := "h\naapl.us,2024-06-03,22:00:11,192.9,194.99,192.52,194.03,N/D\n"
		q, err := parseQuoteCSV(body, "aapl.us")
		require.NoError(t, err)
		assert.Zero(t, q.Volume)
	})
}
