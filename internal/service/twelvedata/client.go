package twelvedata

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/internal/domain/service"
	"FinScout/internal/service/provider"
	"FinScout/pkg/cache"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	xhttp "FinScout/pkg/http"
	"FinScout/pkg/logger"
	"FinScout/pkg/resilience"
)

const (
	providerName = "twelvedata"
	cacheName    = "market"
)

// Client is the Twelve Data REST client behind service.MarketData. Every
// call runs through the shared credit window, retry policy and circuit
// breaker; successful responses are kept in the market cache.
type Client struct {
	cfg     config.MarketDataConfig
	http    *xhttp.Client
	window  *resilience.CreditWindow
	retry   *resilience.Retry
	breaker *resilience.Breaker
	cache   cache.Service
	ttl     time.Duration
	met     repository.Metrics
	clk     clock.Clock
	log     *logger.Logger
}

var _ service.MarketData = (*Client)(nil)

// Option configures optional client collaborators.
type Option func(*Client)

// WithCache stores successful responses in c with the given TTL.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.ttl = ttl
	}
}

// WithMetrics records request telemetry on m.
func WithMetrics(m repository.Metrics) Option {
	return func(cl *Client) {
		cl.met = m
	}
}

// WithClock substitutes the clock used for pacing, backoff and timestamps.
func WithClock(clk clock.Clock) Option {
	return func(cl *Client) {
		cl.clk = clk
	}
}

// New builds a Client from config.
func New(cfg config.MarketDataConfig, lgr *logger.Logger, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		met: repository.NopMetrics{},
		clk: clock.NewSystem(),
		log: lgr,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout))
	c.window = resilience.NewCreditWindow(cfg.CreditWindow, c.clk)
	c.retry = resilience.NewRetry(cfg.Retry, provider.Retryable, c.clk)
	c.breaker = resilience.NewBreaker(cfg.Breaker, provider.Retryable, c.clk)
	return c
}

// Quote returns the current quote for one symbol. 1 credit.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	hit := true
	q, err := cache.Through(ctx, c.cache, cache.GenerateKey("quote", symbol), c.ttl, func() (models.Quote, error) {
		hit = false
		return c.fetchQuote(ctx, symbol)
	}, nil)
	c.note(hit)
	return q, err
}

// QuotesBatch returns quotes for several symbols with one request where the
// plan allows it. Symbols the provider answered with an error are absent
// from the result. Credit cost equals the symbol count.
func (c *Client) QuotesBatch(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}
	if len(symbols) == 1 {
		q, err := c.Quote(ctx, symbols[0])
		if err != nil {
			return nil, err
		}
		return map[string]models.Quote{symbols[0]: q}, nil
	}

	hit := true
	out, err := cache.Through(ctx, c.cache, "quotes:"+strings.Join(symbols, ","), c.ttl, func() (map[string]models.Quote, error) {
		hit = false
		return c.fetchBatch(ctx, symbols)
	}, nil)
	c.note(hit)
	return out, err
}

// History returns up to outputSize bars, most recent first. 1 credit.
func (c *Client) History(ctx context.Context, symbol, interval string, outputSize int) (models.Series, error) {
	key := cache.GenerateKeyWithParams("series", symbol, interval, outputSize)
	hit := true
	s, err := cache.Through(ctx, c.cache, key, c.ttl, func() (models.Series, error) {
		hit = false
		return c.fetchHistory(ctx, symbol, interval, outputSize)
	}, nil)
	c.note(hit)
	return s, err
}

// Fundamentals returns ratio statistics for one symbol. 1 credit.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	hit := true
	f, err := cache.Through(ctx, c.cache, "fundamentals:"+symbol, c.ttl, func() (models.Fundamentals, error) {
		hit = false
		return c.fetchFundamentals(ctx, symbol)
	}, nil)
	c.note(hit)
	return f, err
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	body, err := c.request(ctx, 1, "/quote", map[string]string{"symbol": symbol})
	if err != nil {
		return models.Quote{}, err
	}
	var p quotePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Quote{}, provider.Parse(providerName, "malformed quote payload", err)
	}
	if !p.Close.ok {
		return models.Quote{}, provider.Parse(providerName, "quote missing close for "+symbol, nil)
	}
	return p.toQuote(symbol, c.clk.Now()), nil
}

func (c *Client) fetchBatch(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	body, err := c.request(ctx, len(symbols), "/quote", map[string]string{"symbol": strings.Join(symbols, ",")})
	if err != nil {
		return nil, err
	}
	out, ok := decodeBatch(body, c.clk.Now())
	if !ok {
		c.log.Warn("unrecognized batch quote shape, retrying per symbol",
			logger.Int("symbols", len(symbols)))
		return c.quotesSequential(ctx, symbols)
	}
	return out, nil
}

// quotesSequential is the batch fallback for plans whose /quote endpoint
// only answers one symbol at a time. Per-symbol failures drop the symbol
// rather than the whole batch.
func (c *Client) quotesSequential(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	out := make(map[string]models.Quote, len(symbols))
	for _, symbol := range symbols {
		q, err := c.Quote(ctx, symbol)
		if err != nil {
			c.log.Warn("fallback quote failed", logger.String("symbol", symbol), logger.Error(err))
			continue
		}
		out[symbol] = q
	}
	return out, nil
}

func (c *Client) fetchHistory(ctx context.Context, symbol, interval string, outputSize int) (models.Series, error) {
	body, err := c.request(ctx, 1, "/time_series", map[string]string{
		"symbol":     symbol,
		"interval":   interval,
		"outputsize": strconv.Itoa(outputSize),
	})
	if err != nil {
		return models.Series{}, err
	}
	var p seriesPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Series{}, provider.Parse(providerName, "malformed time series payload", err)
	}
	return p.toSeries(symbol), nil
}

func (c *Client) fetchFundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	body, err := c.request(ctx, 1, "/statistics", map[string]string{"symbol": symbol})
	if err != nil {
		return models.Fundamentals{}, err
	}
	var p statisticsPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return models.Fundamentals{}, provider.Parse(providerName, "malformed statistics payload", err)
	}
	return p.toFundamentals(symbol), nil
}

// request performs one metered API call and returns the raw body. Each
// retry attempt acquires its own credits, since the provider bills every
// attempt. In-band error payloads become logical errors and stop the retry
// loop.
func (c *Client) request(ctx context.Context, credits int, path string, params map[string]string) ([]byte, error) {
	query := make(map[string][]string, len(params)+1)
	for k, v := range params {
		query[k] = []string{v}
	}
	query["apikey"] = []string{c.cfg.APIKey}

	var body []byte
	err := c.retry.Do(ctx, func() error {
		if err := c.window.Acquire(ctx, credits); err != nil {
			return provider.Protection(providerName, "credit window", err)
		}

		start := c.clk.Now()
		err := c.breaker.Do(func() error {
			body = nil
			return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
				Method:      xhttp.MethodGet,
				URL:         c.cfg.BaseURL + path,
				QueryParams: query,
			}, &body)
		})
		c.met.RecordProviderLatency(providerName, c.clk.Now().Sub(start).Seconds())
		c.met.RecordBreakerState(providerName, provider.BreakerGauge(c.breaker.State()))

		if err != nil {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.FromTransport(providerName, err)
		}
		if msg, bad := apiError(body); bad {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.Logical(providerName, msg)
		}
		c.met.RecordProviderRequest(providerName, "success")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) note(hit bool) {
	if c.cache == nil {
		return
	}
	if hit {
		c.met.RecordCacheHit(cacheName)
		return
	}
	c.met.RecordCacheMiss(cacheName)
}

