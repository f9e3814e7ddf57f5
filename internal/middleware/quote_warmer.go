package middleware

import (
	"context"
	"fmt"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/domain/repository"
	"FinScout/pkg/cache"
)

// QuoteWarmer writes stream ticks into the market cache under the same
// key the market data client reads, so a scheduled run finds a warm
// quote instead of spending an API credit.
type QuoteWarmer struct {
	cache cache.Service
	ttl   time.Duration
	met   repository.Metrics
}

// NewQuoteWarmer creates a warmer backed by the market cache.
func NewQuoteWarmer(c cache.Service, ttl time.Duration, met repository.Metrics) *QuoteWarmer {
	if met == nil {
		met = repository.NopMetrics{}
	}
	return &QuoteWarmer{cache: c, ttl: ttl, met: met}
}

// Process stores the tick as a quote. An already cached quote is
// repriced in place: the day change is recomputed against the previous
// close implied by the cached snapshot, and volume fields carry over.
func (w *QuoteWarmer) Process(ctx context.Context, tick *models.Tick) error {
	if tick == nil || tick.Symbol == "" {
		return fmt.Errorf("invalid tick")
	}
	if tick.Price <= 0 {
		return fmt.Errorf("non-positive price for %s", tick.Symbol)
	}

	quote := models.Quote{Symbol: tick.Symbol, Price: tick.Price, Timestamp: tick.Timestamp}
	key := cache.GenerateKey("quote", tick.Symbol)
	var cached models.Quote
	if err := w.cache.Get(ctx, key, &cached); err == nil {
		prevClose := cached.Price - cached.Change
		cached.Price = tick.Price
		cached.Timestamp = tick.Timestamp
		if prevClose > 0 {
			cached.Change = tick.Price - prevClose
			cached.ChangePercent = cached.Change / prevClose * 100
		}
		quote = cached
	}
	if err := w.cache.Set(ctx, key, quote, w.ttl); err != nil {
		return fmt.Errorf("warm quote %s: %w", tick.Symbol, err)
	}

	w.met.RecordStreamTick(tick.Symbol)
	w.met.RecordLastPrice(tick.Symbol, tick.Price)
	return nil
}
