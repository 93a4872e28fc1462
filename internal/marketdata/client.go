// Package marketdata fetches daily stock quotes from a Stooq-compatible
// CSV endpoint. It fills the stockPrice metric when a document does not
// state one, so price-based ratios can still compute.
package marketdata

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crestline-labs/fincompare/internal/cache"
	"github.com/crestline-labs/fincompare/internal/resilience"
)

const defaultBaseURL = "https://stooq.com/q/l/"

// Quote is one daily quote row.
type Quote struct {
	Symbol string
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Client fetches quotes with rate limiting, retry, and a response cache in
// front of the wire.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	retry      resilience.Policy
	cache      *cache.WebDataCache
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different quote endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRateLimit replaces the default limiter.
func WithRateLimit(rps rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rps, burst) }
}

// WithCache fronts quote lookups with the given cache.
func WithCache(wc *cache.WebDataCache) Option {
	return func(c *Client) { c.cache = wc }
}

// NewClient creates a quote client. Without options it talks to stooq.com
// at 2 requests per second.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "fincompare/1.0",
		limiter:    rate.NewLimiter(2, 2),
		retry:      resilience.DefaultPolicy(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetQuote returns the latest daily quote for symbol (e.g. "aapl.us").
// Successful responses are cached; failures are never cached.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToLower(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, eris.New("marketdata: empty symbol")
	}

	body, err := c.fetchCSV(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return parseQuoteCSV(body, symbol)
}

func (c *Client) fetchCSV(ctx context.Context, symbol string) (string, error) {
	if c.cache != nil {
		return c.cache.GetOrFill(ctx, "quote "+symbol, func(ctx context.Context) (string, error) {
			return c.fetchCSVDirect(ctx, symbol)
		})
	}
	return c.fetchCSVDirect(ctx, symbol)
}

func (c *Client) fetchCSVDirect(ctx context.Context, symbol string) (string, error) {
	policy := c.retry
	policy.OnRetry = resilience.LogRetries("marketdata", "quote")

	return resilience.Run(ctx, policy, func(ctx context.Context) (string, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", eris.Wrap(err, "marketdata: rate limiter")
		}
		return c.doRequest(ctx, symbol)
	})
}

func (c *Client) doRequest(ctx context.Context, symbol string) (string, error) {
	q := url.Values{}
	q.Set("s", symbol)
	q.Set("f", "sd2t2ohlcv")
	q.Set("h", "")
	q.Set("e", "csv")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "marketdata: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", resilience.Unavailable("stooq", 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("marketdata: status %d for %s", resp.StatusCode, symbol)
		if resilience.RetryableStatus(resp.StatusCode) {
			return "", resilience.Unavailable("stooq", resp.StatusCode, err)
		}
		return "", err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", resilience.Unavailable("stooq", 0, err)
	}

	zap.L().Debug("marketdata: quote fetched",
		zap.String("symbol", symbol),
		zap.Int("bytes", len(body)),
	)
	return string(body), nil
}

// parseQuoteCSV decodes the single-row Stooq CSV payload. Stooq reports
// missing symbols with "N/D" fields rather than an error status.
func parseQuoteCSV(body, symbol string) (*Quote, error) {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	if len(lines) < 2 {
		return nil, eris.Errorf("marketdata: empty quote response for %s", symbol)
	}

	fields := strings.Split(strings.TrimSpace(lines[1]), ",")
	if len(fields) < 8 {
		return nil, eris.Errorf("marketdata: malformed quote row for %s", symbol)
	}
	if fields[3] == "N/D" || fields[6] == "N/D" {
		return nil, eris.Errorf("marketdata: no data for symbol %s", symbol)
	}

	open, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return nil, eris.Wrapf(err, "marketdata: parse open for %s", symbol)
	}
	high, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, eris.Wrapf(err, "marketdata: parse high for %s", symbol)
	}
	low, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return nil, eris.Wrapf(err, "marketdata: parse low for %s", symbol)
	}
	closePrice, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return nil, eris.Wrapf(err, "marketdata: parse close for %s", symbol)
	}

	volume := int64(0)
	if fields[7] != "N/D" {
		volume, err = strconv.ParseInt(fields[7], 10, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "marketdata: parse volume for %s", symbol)
		}
	}

	return &Quote{
		Symbol: strings.ToUpper(fields[0]),
		Date:   fields[1],
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
