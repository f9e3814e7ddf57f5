package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinScout/internal/domain/repository"
	domsvc "FinScout/internal/domain/service"
	"FinScout/internal/handler/api"
	"FinScout/internal/middleware"
	internalrepo "FinScout/internal/repository"
	"FinScout/internal/scheduler"
	"FinScout/internal/service/newsapi"
	"FinScout/internal/service/ollama"
	"FinScout/internal/service/stream"
	"FinScout/internal/service/telegram"
	"FinScout/internal/service/twelvedata"
	"FinScout/internal/services/analysis"
	"FinScout/internal/services/classify"
	"FinScout/internal/usecase"
	"FinScout/pkg/cache"
	pkgch "FinScout/pkg/clickhouse"
	"FinScout/pkg/clock"
	"FinScout/pkg/config"
	xhttp "FinScout/pkg/http"
	pkgkafka "FinScout/pkg/kafka"
	"FinScout/pkg/logger"
	"FinScout/pkg/metrics"
	"FinScout/pkg/queue"
	"FinScout/pkg/server"
)

// ProvideLogger creates the process logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClock returns the wall clock.
func ProvideClock() clock.Clock {
	return clock.NewSystem()
}

// ProvideMetrics creates the Prometheus recorder, or a no-op when metrics
// are disabled.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.IsEnabled() {
		return domrepo.NopMetrics{}
	}
	return metrics.New()
}

// Caches bundles the named caches. Sweep aggregates their expiry cleanup
// for the end-of-run and hourly sweeps.
type Caches struct {
	Market    cache.Service
	News      cache.Service
	Sentiment cache.Service
	Sweep     usecase.Sweeper
}

type multiSweeper []usecase.Sweeper

func (m multiSweeper) CleanupExpired() int {
	n := 0
	for _, s := range m {
		n += s.CleanupExpired()
	}
	return n
}

// ProvideCaches builds the market, news, and sentiment caches sized from
// config. With Redis enabled each cache gains the shared L2 so warm
// entries survive restarts.
func ProvideCaches(cfg *config.Config, clk clock.Clock) (*Caches, error) {
	var redisCache *cache.RedisCache
	if cfg.Cache.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		redisCache = rc
	}

	build := func(spec config.CacheSpec) (cache.Service, usecase.Sweeper) {
		if redisCache != nil {
			lc := cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(spec.Size))
			return lc, lc
		}
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(spec.Size), cache.WithMemoryClock(clk))
		return mc, mc
	}

	market, sweepMarket := build(cfg.Cache.Market)
	news, sweepNews := build(cfg.Cache.News)
	sentiment, sweepSentiment := build(cfg.Cache.Sentiment)

	return &Caches{
		Market:    market,
		News:      news,
		Sentiment: sentiment,
		Sweep:     multiSweeper{sweepMarket, sweepNews, sweepSentiment},
	}, nil
}

// ProvideMarketData creates the market data client.
func ProvideMarketData(cfg *config.Config, caches *Caches, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) domsvc.MarketData {
	return twelvedata.New(cfg.MarketData, lgr,
		twelvedata.WithCache(caches.Market, cfg.Cache.Market.TTL),
		twelvedata.WithMetrics(met),
		twelvedata.WithClock(clk),
	)
}

// ProvideNews creates the news client.
func ProvideNews(cfg *config.Config, caches *Caches, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) domsvc.News {
	return newsapi.New(cfg.News, lgr,
		newsapi.WithCache(caches.News, cfg.Cache.News.TTL),
		newsapi.WithMetrics(met),
		newsapi.WithClock(clk),
	)
}

// ProvideLLM creates the local LLM client.
func ProvideLLM(cfg *config.Config, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) domsvc.LLM {
	return ollama.New(cfg.LLM, lgr, ollama.WithMetrics(met), ollama.WithClock(clk))
}

// ProvideClassifier creates the sentiment classifier chain.
func ProvideClassifier(cfg *config.Config, llm domsvc.LLM, caches *Caches, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) *classify.Chain {
	return classify.NewChain(llm, lgr,
		classify.WithCache(caches.Sentiment, cfg.Cache.Sentiment.TTL),
		classify.WithMetrics(met),
		classify.WithClock(clk),
	)
}

// ProvideQueue creates the notification dispatch queue.
func ProvideQueue(lgr *logger.Logger, clk clock.Clock) *queue.MemoryQueue {
	return queue.NewMemoryQueue(lgr, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  64,
		RetryLimit: 2,
		RetryDelay: 5 * time.Second,
	}, clk)
}

// ProvideNotifier wraps the Telegram sink behind the dispatch queue and
// registers the delivery jobs.
func ProvideNotifier(cfg *config.Config, q *queue.MemoryQueue, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) domsvc.Notifier {
	bot := telegram.New(cfg.Telegram, lgr, telegram.WithMetrics(met), telegram.WithClock(clk))
	qn := usecase.NewQueuedNotifier(bot, q, lgr)
	q.RegisterJobs(qn.Jobs())
	return qn
}

// ProvideStore creates the signal store for the configured backend and
// initializes it.
func ProvideStore(cfg *config.Config, lgr *logger.Logger) (domrepo.SignalStore, error) {
	var store domrepo.SignalStore
	switch cfg.Storage.Backend {
	case "clickhouse":
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.Storage.ClickHouse.Host),
			pkgch.WithPort(cfg.Storage.ClickHouse.Port),
			pkgch.WithDatabase(cfg.Storage.ClickHouse.Database),
			pkgch.WithCredentials(cfg.Storage.ClickHouse.User, cfg.Storage.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithTimeouts(cfg.Storage.ClickHouse.DialTimeout, cfg.Storage.ClickHouse.ReadTimeout),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store = internalrepo.NewClickHouseStore(client, lgr)
	case "memory":
		store = internalrepo.NewMemoryStore()
	default:
		store = internalrepo.NewFileStore(cfg.Storage.Dir, lgr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init %s store: %w", cfg.Storage.Backend, err)
	}
	return store, nil
}

// ProvidePublisher creates the signal event publisher for the configured
// backend.
func ProvidePublisher(cfg *config.Config) (domrepo.Publisher, error) {
	switch cfg.Publisher.Backend {
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Publisher.Kafka.Brokers...),
			pkgkafka.WithCompression(cfg.Publisher.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Publisher.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Publisher.Kafka.MaxAttempts),
			pkgkafka.WithBatchSize(cfg.Publisher.Kafka.BatchSize),
			pkgkafka.WithBatchTimeout(cfg.Publisher.Kafka.Linger),
			pkgkafka.WithTimeouts(cfg.Publisher.Kafka.WriteTimeout, cfg.Publisher.Kafka.WriteTimeout),
			pkgkafka.WithAsync(cfg.Publisher.Kafka.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaPublisher(producer, cfg.Publisher.Kafka.Topic), nil
	default:
		return internalrepo.NopPublisher{}, nil
	}
}

// ProvideStages assembles the five run analyzers.
func ProvideStages(cfg *config.Config, market domsvc.MarketData, news domsvc.News, chain *classify.Chain, lgr *logger.Logger) usecase.Stages {
	return usecase.Stages{
		Macro:        analysis.NewMacro(market, news, chain, cfg.Analysis.Macro, lgr),
		Market:       analysis.NewMarket(market, cfg.Watchlist.Symbols, cfg.Analysis.Market, lgr),
		Fundamentals: analysis.NewFundamentals(market, cfg.Analysis.Fundamentals, lgr),
		Technical:    analysis.NewTechnical(market, lgr),
		Sentiment:    analysis.NewSentiment(news, chain, cfg.Watchlist.Names, cfg.Analysis.Sentiment, lgr),
	}
}

// ProvideSynthesizer creates the score synthesizer.
func ProvideSynthesizer(cfg *config.Config, market domsvc.MarketData, clk clock.Clock, lgr *logger.Logger) *usecase.Synthesizer {
	return usecase.NewSynthesizer(market, cfg.Scoring, clk, lgr)
}

// ProvideResearch creates the run orchestrator.
func ProvideResearch(
	stages usecase.Stages,
	synth *usecase.Synthesizer,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	notifier domsvc.Notifier,
	caches *Caches,
	cfg *config.Config,
	met domrepo.Metrics,
	clk clock.Clock,
	lgr *logger.Logger,
) *usecase.Research {
	return usecase.NewResearch(stages, synth, store, publisher, notifier, caches.Sweep, cfg, met, clk, lgr)
}

// ProvideReview creates the rating/review usecase.
func ProvideReview(store domrepo.SignalStore, market domsvc.MarketData, notifier domsvc.Notifier, clk clock.Clock, lgr *logger.Logger) *usecase.Review {
	return usecase.NewReview(store, market, notifier, clk, lgr)
}

// ProvidePerformance creates the J+7 performance updater.
func ProvidePerformance(store domrepo.SignalStore, market domsvc.MarketData, clk clock.Clock, lgr *logger.Logger) *usecase.Performance {
	return usecase.NewPerformance(store, market, clk, lgr)
}

// ProvideExport creates the CSV/ML exporter.
func ProvideExport(store domrepo.SignalStore, lgr *logger.Logger) *usecase.Export {
	return usecase.NewExport(store, lgr)
}

// ProvideTickPump wires the websocket stream into the market cache. Nil
// when streaming is disabled.
func ProvideTickPump(cfg *config.Config, caches *Caches, met domrepo.Metrics, clk clock.Clock, lgr *logger.Logger) *middleware.TickPump {
	if !cfg.Stream.Enabled {
		return nil
	}
	client := stream.New(cfg.MarketData.APIKey, cfg.Stream, lgr)
	warmer := middleware.NewQuoteWarmer(caches.Market, cfg.Cache.Market.TTL, met)
	return middleware.NewTickPump(client, warmer, cfg.Watchlist.Symbols, cfg.Stream, clk, lgr)
}

// ProvideHandler creates the ops API handler.
func ProvideHandler(research *usecase.Research, review *usecase.Review, store domrepo.SignalStore, chain *classify.Chain, lgr *logger.Logger) *api.Handler {
	return api.New(research, review, store, chain, lgr)
}

// ProvideHTTPServer creates the echo server with the ops routes.
func ProvideHTTPServer(cfg *config.Config, handler *api.Handler, lgr *logger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.IsEnabled() {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithMetricsLogger(lgr),
	)
}

// ProvideScheduler creates the cron scheduler with the loop-mode jobs
// registered.
func ProvideScheduler(cfg *config.Config, research *usecase.Research, perf *usecase.Performance, caches *Caches, lgr *logger.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(lgr)
	if err := s.RegisterAll(scheduler.Jobs(cfg.Scheduler, research, perf, caches.Sweep, lgr)); err != nil {
		return nil, fmt.Errorf("schedule jobs: %w", err)
	}
	return s, nil
}

// ProvideApp assembles the application.
func ProvideApp(deps server.Deps) *server.App {
	return server.New(deps)
}
