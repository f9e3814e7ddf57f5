package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "FinScout/internal/domain/repository"
	domsvc "FinScout/internal/domain/service"
	"FinScout/pkg/clock"
	"FinScout/pkg/logger"
)

// performanceWindow is how long a signal ages before its return is measured.
const performanceWindow = 7 * 24 * time.Hour

// Performance back-fills the J+7 realized return on aged signals.
type Performance struct {
	store  domrepo.SignalStore
	market domsvc.MarketData
	clk    clock.Clock
	log    *logger.Logger
}

// NewPerformance builds the performance updater.
func NewPerformance(store domrepo.SignalStore, market domsvc.MarketData, clk clock.Clock, lgr *logger.Logger) *Performance {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Performance{store: store, market: market, clk: clk, log: lgr}
}

// Update measures every due signal against a fresh quote and records the
// realized return. Returns how many signals were updated; symbols the
// provider cannot quote stay due for the next pass.
func (p *Performance) Update(ctx context.Context) (int, error) {
	cutoff := p.clk.Now().Add(-performanceWindow)
	due, err := p.store.ListDuePerformance(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list due signals: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	updated := 0
	for _, rec := range due {
		q, err := p.market.Quote(ctx, rec.Symbol)
		if err != nil {
			p.log.Warn("performance quote unavailable",
				logger.String("id", rec.ID),
				logger.String("symbol", rec.Symbol),
				logger.Error(err))
			continue
		}
		if err := p.store.UpdatePerformance(ctx, rec.ID, q.Price, p.clk.Now()); err != nil {
			p.log.Error("record performance",
				logger.String("id", rec.ID), logger.Error(err))
			continue
		}
		updated++
	}

	p.log.Info("performance pass finished",
		logger.Int("due", len(due)), logger.Int("updated", updated))
	return updated, nil
}
