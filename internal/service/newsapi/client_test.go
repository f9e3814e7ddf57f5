package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/service/provider"
	"FinScout/pkg/cache"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
	"FinScout/pkg/resilience"
)

func testCfg(baseURL string) config.NewsConfig {
	return config.NewsConfig{
		APIKey:        "news-key",
		BaseURL:       baseURL,
		MacroDaysBack: 3,
		StockDaysBack: 7,
		Domains:       []string{"reuters.com", "bloomberg.com"},
		Retry:         resilience.RetryConfig{InitialDelay: time.Millisecond, BackoffFactor: 2},
		Breaker:       resilience.BreakerConfig{Threshold: 100, RecoveryTimeout: time.Minute},
	}
}

const okBody = `{
	"status": "ok",
	"totalResults": 2,
	"articles": [
		{
			"source": {"id": "reuters", "name": "Reuters"},
			"title": "Fed signals patience on rate cuts",
			"description": "Officials want more inflation data.",
			"url": "https://reuters.com/a1",
			"publishedAt": "2026-08-24T14:30:00Z"
		},
		{
			"source": {"name": "Bloomberg"},
			"title": "CPI comes in cooler than expected",
			"url": "https://bloomberg.com/a2",
			"publishedAt": "not-a-date"
		}
	]
}`

func TestMacroNewsBuildsEverythingQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, `"Federal Reserve" OR "interest rate" OR inflation OR CPI OR "Jerome Powell" OR recession`, q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "10", q.Get("pageSize"))
		assert.Equal(t, "2026-08-22", q.Get("from"))
		assert.Equal(t, "reuters.com,bloomberg.com", q.Get("domains"))
		assert.Equal(t, "news-key", q.Get("apiKey"))
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	fake := clock.NewFake(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	c := New(testCfg(server.URL), logger.Nop(), WithClock(fake))

	articles, err := c.MacroNews(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "Fed signals patience on rate cuts", articles[0].Title)
	assert.Equal(t, "Officials want more inflation data.", articles[0].Description)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, "https://reuters.com/a1", articles[0].URL)
	assert.Equal(t, time.Date(2026, 8, 24, 14, 30, 0, 0, time.UTC), articles[0].PublishedAt)
	assert.True(t, articles[1].PublishedAt.IsZero())
}

func TestStockNewsQuotesCompanyName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `"Apple Inc" OR AAPL`, q.Get("q"))
		assert.Equal(t, "2026-08-18", q.Get("from"))
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer server.Close()

	fake := clock.NewFake(time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC))
	c := New(testCfg(server.URL), logger.Nop(), WithClock(fake))

	articles, err := c.StockNews(context.Background(), "AAPL", "Apple Inc", 5)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestStockNewsFallsBackToBareSymbol(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer server.Close()

	c := New(testCfg(server.URL), logger.Nop())

	_, err := c.StockNews(context.Background(), "NVDA", "", 5)
	require.NoError(t, err)
	_, err = c.StockNews(context.Background(), "KO", "KO", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"NVDA", "KO"}, queries)
}

func TestAPIErrorIsLogicalAndNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"status": "error", "code": "apiKeyInvalid", "message": "Your API key is invalid."}`))
	}))
	defer server.Close()

	cfg := testCfg(server.URL)
	cfg.Retry.MaxRetries = 3
	c := New(cfg, logger.Nop(), WithClock(clock.NewFake(time.Now())))

	_, err := c.MacroNews(context.Background(), 10)
	var pe *provider.Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.KindLogical, pe.Kind)
	assert.Contains(t, pe.Msg, "invalid")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer server.Close()

	cfg := testCfg(server.URL)
	cfg.Retry.MaxRetries = 2
	c := New(cfg, logger.Nop(), WithClock(clock.NewFake(time.Now())))

	_, err := c.MacroNews(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSearchServedFromCache(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(okBody))
	}))
	defer server.Close()

	mem := cache.NewMemoryCache()
	c := New(testCfg(server.URL), logger.Nop(), WithCache(mem, 15*time.Minute))

	first, err := c.MacroNews(context.Background(), 10)
	require.NoError(t, err)
	second, err := c.MacroNews(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, first[0].Title, second[0].Title)
}
