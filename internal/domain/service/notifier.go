package service

import (
	"context"

	"FinScout/internal/domain/models"
)

// Notifier delivers operator messages. Delivery failures must never abort the
// pipeline: callers log the returned error and move on.
type Notifier interface {
	SignalAlert(ctx context.Context, rec *models.SignalRecord) error
	RatingPrompt(ctx context.Context, rec *models.SignalRecord) error
	MacroWarning(ctx context.Context, m *models.MacroAnalysis) error
	DailySummary(ctx context.Context, res *models.RunResult) error
	ReviewList(ctx context.Context, recs []*models.SignalRecord, prices map[string]float64) error
	Stats(ctx context.Context, st *models.SignalStatistics) error
	ErrorAlert(ctx context.Context, runErr error) error
	Startup(ctx context.Context, watchlistSize int, llmAvailable bool) error
}
