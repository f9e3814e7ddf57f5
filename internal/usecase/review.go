package usecase

import (
	"context"
	"fmt"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	domsvc "FinScout/internal/domain/service"
	"FinScout/pkg/clock"
	"FinScout/pkg/logger"
)

// Review drives the manual feedback loop: surfacing unrated signals with
// their current prices and recording operator ratings.
type Review struct {
	store    domrepo.SignalStore
	market   domsvc.MarketData
	notifier domsvc.Notifier
	clk      clock.Clock
	log      *logger.Logger
}

// NewReview builds the review usecase.
func NewReview(store domrepo.SignalStore, market domsvc.MarketData, notifier domsvc.Notifier, clk clock.Clock, lgr *logger.Logger) *Review {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Review{store: store, market: market, notifier: notifier, clk: clk, log: lgr}
}

// Unrated lists signals still waiting for a rating, newest first.
func (r *Review) Unrated(ctx context.Context, limit int) ([]*models.SignalRecord, error) {
	return r.store.ListUnrated(ctx, limit)
}

// Notify sends the unrated list with live prices, then prompts for the
// newest one. Returns how many signals are pending.
func (r *Review) Notify(ctx context.Context) (int, error) {
	recs, err := r.store.ListUnrated(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("list unrated: %w", err)
	}

	prices := r.currentPrices(ctx, recs)
	if err := r.notifier.ReviewList(ctx, recs, prices); err != nil {
		return len(recs), fmt.Errorf("send review list: %w", err)
	}
	if len(recs) > 0 {
		if err := r.notifier.RatingPrompt(ctx, recs[0]); err != nil {
			r.log.Warn("rating prompt failed",
				logger.String("id", recs[0].ID), logger.Error(err))
		}
	}
	return len(recs), nil
}

// Rate records a 1-5 star rating for a signal.
func (r *Review) Rate(ctx context.Context, id string, stars int) error {
	if err := r.store.Rate(ctx, id, stars, r.clk.Now()); err != nil {
		return fmt.Errorf("rate signal %s: %w", id, err)
	}
	r.log.Info("signal rated", logger.String("id", id), logger.Int("stars", stars))
	return nil
}

// Statistics returns the aggregate history stats.
func (r *Review) Statistics(ctx context.Context) (*models.SignalStatistics, error) {
	return r.store.Statistics(ctx)
}

// NotifyStats sends the aggregate stats to the notifier.
func (r *Review) NotifyStats(ctx context.Context) (*models.SignalStatistics, error) {
	st, err := r.store.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("load statistics: %w", err)
	}
	if err := r.notifier.Stats(ctx, st); err != nil {
		return st, fmt.Errorf("send statistics: %w", err)
	}
	return st, nil
}

// currentPrices fetches live quotes for the listed symbols. Provider
// failures degrade to an empty map; the review still goes out.
func (r *Review) currentPrices(ctx context.Context, recs []*models.SignalRecord) map[string]float64 {
	if len(recs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(recs))
	symbols := make([]string, 0, len(recs))
	for _, rec := range recs {
		if !seen[rec.Symbol] {
			seen[rec.Symbol] = true
			symbols = append(symbols, rec.Symbol)
		}
	}

	quotes, err := r.market.QuotesBatch(ctx, symbols)
	if err != nil {
		r.log.Warn("review prices unavailable", logger.Error(err))
		return nil
	}
	prices := make(map[string]float64, len(quotes))
	for sym, q := range quotes {
		prices[sym] = q.Price
	}
	return prices
}
