package classify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/internal/domain/service"
	"FinScout/internal/service/provider"
	"FinScout/pkg/cache"
	"FinScout/pkg/clock"
	"FinScout/pkg/logger"
)

// defaultProbeTTL is how long one availability probe stays trusted. A whole
// classification batch runs well inside it, so the probe fires once per batch
// instead of once per article.
const defaultProbeTTL = 60 * time.Second

// transportFallbackConfidence is used when the model was reachable but the
// request itself failed; the heuristic gets less trust than on a clean miss.
const transportFallbackConfidence = 0.2

// Chain classifies with the model first and degrades to the keyword
// heuristic: model down, unparseable reply, or transport failure after
// retries all still produce a usable classification.
type Chain struct {
	llm     *LLM
	backend service.LLM
	kw      *Keyword
	log     *logger.Logger
	met     repository.Metrics
	clk     clock.Clock
	cache   cache.Service
	ttl     time.Duration

	probeTTL time.Duration

	mu       sync.Mutex
	probedAt time.Time
	probed   bool
	up       bool
	diag     diagState
}

type diagState struct {
	total       int
	parseOK     int
	parseFail   int
	fallbacks   int
	unavailable int
	avgConf     float64
	categories  map[string]int
}

var _ service.Classifier = (*Chain)(nil)

type ChainOption func(*Chain)

// WithCache stores classification results in s with the given TTL.
func WithCache(s cache.Service, ttl time.Duration) ChainOption {
	return func(c *Chain) {
		c.cache = s
		c.ttl = ttl
	}
}

// WithProbeTTL overrides how long an availability probe result is reused.
func WithProbeTTL(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.probeTTL = d
		}
	}
}

// WithClock injects the clock used for probe expiry.
func WithClock(clk clock.Clock) ChainOption {
	return func(c *Chain) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithMetrics wires fallback counting into the metrics recorder.
func WithMetrics(m repository.Metrics) ChainOption {
	return func(c *Chain) {
		if m != nil {
			c.met = m
		}
	}
}

func NewChain(backend service.LLM, lgr *logger.Logger, opts ...ChainOption) *Chain {
	c := &Chain{
		llm:      NewLLM(backend),
		backend:  backend,
		kw:       NewKeyword(),
		log:      lgr,
		met:      repository.NopMetrics{},
		clk:      clock.NewSystem(),
		probeTTL: defaultProbeTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.diag.categories = make(map[string]int)
	return c
}

// Sentiment classifies a headline, falling back to keywords when the model
// cannot answer. The only error it returns is ErrTextTooShort.
func (c *Chain) Sentiment(ctx context.Context, text string) (models.Classification, error) {
	return c.classify(ctx, "sentiment", text, c.llm.Sentiment, c.kw.Sentiment)
}

// FedTone classifies central-bank communication with the same degradation.
func (c *Chain) FedTone(ctx context.Context, text string) (models.Classification, error) {
	return c.classify(ctx, "fedtone", text, c.llm.FedTone, c.kw.FedTone)
}

type classifyFn func(context.Context, string) (models.Classification, error)

// classify serves repeats from the classification cache; the same headline
// routinely shows up for several watchlist symbols within one run.
func (c *Chain) classify(ctx context.Context, kind, text string, model, fallback classifyFn) (models.Classification, error) {
	if len(strings.TrimSpace(text)) < minTextLen {
		return models.Classification{}, ErrTextTooShort
	}
	return cache.Through(ctx, c.cache, cache.GenerateKey(kind, text), c.ttl, func() (models.Classification, error) {
		return c.classifyFresh(ctx, text, model, fallback)
	}, nil)
}

func (c *Chain) classifyFresh(ctx context.Context, text string, model, fallback classifyFn) (models.Classification, error) {
	if !c.Available(ctx) {
		res, _ := fallback(ctx, text)
		res.Fallback = true
		res.Reasoning = "fallback: model unavailable"
		c.record(res, false, true)
		c.met.RecordLLMFallback()
		return res, nil
	}

	res, err := model(ctx, text)
	if err == nil {
		c.record(res, true, false)
		return res, nil
	}

	res, _ = fallback(ctx, text)
	res.Fallback = true
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Kind == provider.KindParse {
		res.Reasoning = "fallback: unparseable reply"
	} else {
		res.Confidence = transportFallbackConfidence
		res.Reasoning = "fallback: request failed"
	}
	c.log.Warn("classifier fell back to keywords", logger.Error(err))
	c.record(res, false, false)
	c.met.RecordLLMFallback()
	return res, nil
}

// Available reports whether the model backend answers its health endpoint.
// The result is cached for probeTTL.
func (c *Chain) Available(ctx context.Context) bool {
	c.mu.Lock()
	now := c.clk.Now()
	if c.probed && now.Sub(c.probedAt) < c.probeTTL {
		up := c.up
		c.mu.Unlock()
		return up
	}
	c.mu.Unlock()

	up := c.backend.Available(ctx)

	c.mu.Lock()
	c.probed = true
	c.probedAt = now
	c.up = up
	c.mu.Unlock()
	return up
}

func (c *Chain) record(res models.Classification, parseOK, unavailable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.diag.total++
	if parseOK {
		c.diag.parseOK++
	} else {
		c.diag.parseFail++
	}
	if res.Fallback {
		c.diag.fallbacks++
	}
	if unavailable {
		c.diag.unavailable++
	}
	c.diag.avgConf += (res.Confidence - c.diag.avgConf) / float64(c.diag.total)
	c.diag.categories[res.Category]++
}

// Diagnostics returns a snapshot of classifier health since startup.
func (c *Chain) Diagnostics() models.ClassifierDiagnostics {
	c.mu.Lock()
	defer c.mu.Unlock()

	categories := make(map[string]int, len(c.diag.categories))
	for k, v := range c.diag.categories {
		categories[k] = v
	}
	rate := 0.0
	if c.diag.total > 0 {
		rate = float64(c.diag.parseOK) / float64(c.diag.total)
	}
	return models.ClassifierDiagnostics{
		TotalRequests:  c.diag.total,
		ParseSuccesses: c.diag.parseOK,
		ParseFailures:  c.diag.parseFail,
		Fallbacks:      c.diag.fallbacks,
		LLMUnavailable: c.diag.unavailable,
		AvgConfidence:  c.diag.avgConf,
		Categories:     categories,
		SuccessRate:    rate,
	}
}
