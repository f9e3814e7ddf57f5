package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
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
	"FinScout/pkg/util"
)

const (
	providerName = "newsapi"
	cacheName    = "news"
	statusOK     = "ok"
)

// macroQuery covers the monetary-policy vocabulary the macro stage scans for.
const macroQuery = `"Federal Reserve" OR "interest rate" OR inflation OR CPI OR "Jerome Powell" OR recession`

// Client is the NewsAPI /v2 client behind service.News. The daily request
// quota is generous enough that calls only run through retry and the
// circuit breaker; there is no per-minute pacing.
type Client struct {
	cfg     config.NewsConfig
	http    *xhttp.Client
	retry   *resilience.Retry
	breaker *resilience.Breaker
	cache   cache.Service
	ttl     time.Duration
	met     repository.Metrics
	clk     clock.Clock
	log     *logger.Logger
}

var _ service.News = (*Client)(nil)

// Option configures optional client collaborators.
type Option func(*Client)

// WithCache stores search results in c with the given TTL.
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

// WithClock substitutes the clock used for backoff and date windows.
func WithClock(clk clock.Clock) Option {
	return func(cl *Client) {
		cl.clk = clk
	}
}

// New builds a Client from config.
func New(cfg config.NewsConfig, lgr *logger.Logger, opts ...Option) *Client {
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
	c.retry = resilience.NewRetry(cfg.Retry, provider.Retryable, c.clk)
	c.breaker = resilience.NewBreaker(cfg.Breaker, provider.Retryable, c.clk)
	return c
}

// MacroNews returns recent monetary-policy and economy coverage.
func (c *Client) MacroNews(ctx context.Context, pageSize int) ([]models.Article, error) {
	return c.Search(ctx, macroQuery, pageSize, c.cfg.MacroDaysBack)
}

// StockNews returns recent coverage for one symbol. The company name, when
// known and distinct from the ticker, is quoted into the query so generic
// tickers like "A" do not flood the results.
func (c *Client) StockNews(ctx context.Context, symbol, name string, pageSize int) ([]models.Article, error) {
	query := symbol
	if name != "" && name != symbol {
		query = fmt.Sprintf("%q OR %s", name, symbol)
	}
	return c.Search(ctx, query, pageSize, c.cfg.StockDaysBack)
}

// Search runs an /everything query restricted to English articles from the
// configured domain whitelist, newest first.
func (c *Client) Search(ctx context.Context, query string, pageSize, daysBack int) ([]models.Article, error) {
	key := cache.GenerateKeyWithParams("search", query, pageSize, daysBack)
	hit := true
	articles, err := cache.Through(ctx, c.cache, key, c.ttl, func() ([]models.Article, error) {
		hit = false
		return c.search(ctx, query, pageSize, daysBack)
	}, nil)
	c.note(hit)
	return articles, err
}

func (c *Client) search(ctx context.Context, query string, pageSize, daysBack int) ([]models.Article, error) {
	params := map[string][]string{
		"q":        {query},
		"language": {"en"},
		"sortBy":   {"publishedAt"},
		"pageSize": {strconv.Itoa(pageSize)},
		"from":     {util.FormatDay(c.clk.Now().AddDate(0, 0, -daysBack))},
		"apiKey":   {c.cfg.APIKey},
	}
	if len(c.cfg.Domains) > 0 {
		params["domains"] = []string{strings.Join(c.cfg.Domains, ",")}
	}

	resp, err := c.fetch(ctx, "/everything", params)
	if err != nil {
		return nil, err
	}
	return resp.toArticles(), nil
}

// fetch performs one guarded API call. NewsAPI reports failures in-band
// with a non-"ok" status field; those become logical errors and stop the
// retry loop.
func (c *Client) fetch(ctx context.Context, path string, params map[string][]string) (searchResponse, error) {
	var out searchResponse
	err := c.retry.Do(ctx, func() error {
		var body []byte
		start := c.clk.Now()
		err := c.breaker.Do(func() error {
			return c.http.SendAndParse(ctx, &xhttp.RequestOptions{
				Method:      xhttp.MethodGet,
				URL:         c.cfg.BaseURL + path,
				QueryParams: params,
			}, &body)
		})
		c.met.RecordProviderLatency(providerName, c.clk.Now().Sub(start).Seconds())
		c.met.RecordBreakerState(providerName, provider.BreakerGauge(c.breaker.State()))

		if err != nil {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.FromTransport(providerName, err)
		}
		out = searchResponse{}
		if uerr := json.Unmarshal(body, &out); uerr != nil {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.Parse(providerName, "malformed search payload", uerr)
		}
		if out.Status != statusOK {
			c.met.RecordProviderRequest(providerName, "error")
			return provider.Logical(providerName, out.errorMessage())
		}
		c.met.RecordProviderRequest(providerName, "success")
		return nil
	})
	if err != nil {
		return searchResponse{}, err
	}
	return out, nil
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

type wireArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type searchResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []wireArticle `json:"articles"`
}

func (r searchResponse) errorMessage() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Code != "" {
		return "api error " + r.Code
	}
	return "api status " + r.Status
}

func (r searchResponse) toArticles() []models.Article {
	out := make([]models.Article, 0, len(r.Articles))
	for _, a := range r.Articles {
		out = append(out, models.Article{
			Title:       a.Title,
			Description: a.Description,
			Source:      a.Source.Name,
			URL:         a.URL,
			PublishedAt: parsePublished(a.PublishedAt),
		})
	}
	return out
}

// parsePublished reads the ISO-8601 publishedAt stamp. Unparseable values
// leave the article undated; the sentiment stage only reads titles.
func parsePublished(s string) time.Time {
	t, _ := util.ParseTime(s)
	return t
}
