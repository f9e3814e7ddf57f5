package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	"FinScout/pkg/logger"
)

// strongReturnPct marks a return as a strong success in the ML export.
const strongReturnPct = 2.0

var csvHeader = []string{
	"id", "timestamp", "symbol", "price_at_signal",
	"macro_score", "market_score", "fundamental_score", "sentiment_score",
	"technical_score", "total_score", "confidence",
	"rating", "price_after_7d", "actual_return",
}

var mlHeader = []string{
	"id", "symbol",
	"market", "fundamental", "sentiment", "total",
	"day_of_week", "hour",
	"actual_return", "is_success", "is_strong_success", "rating",
}

// Export writes the signal history to flat files, either raw for
// spreadsheets or normalized for model training.
type Export struct {
	store domrepo.SignalStore
	log   *logger.Logger
}

// NewExport builds the export usecase.
func NewExport(store domrepo.SignalStore, lgr *logger.Logger) *Export {
	return &Export{store: store, log: lgr}
}

// CSV writes every signal, oldest first, and returns the row count.
func (e *Export) CSV(ctx context.Context, path string) (int, error) {
	recs, err := e.chronological(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, csvRow(rec))
	}
	if err := writeCSV(path, csvHeader, rows); err != nil {
		return 0, err
	}
	e.log.Info("signals exported",
		logger.String("path", path), logger.Int("rows", len(rows)))
	return len(rows), nil
}

// ML writes a training set from signals with a measured return, oldest
// first: normalized features plus outcome targets.
func (e *Export) ML(ctx context.Context, path string) (int, error) {
	recs, err := e.chronological(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		if rec.ActualReturn == nil {
			continue
		}
		rows = append(rows, mlRow(rec))
	}
	if err := writeCSV(path, mlHeader, rows); err != nil {
		return 0, err
	}
	e.log.Info("training set exported",
		logger.String("path", path), logger.Int("rows", len(rows)))
	return len(rows), nil
}

func (e *Export) chronological(ctx context.Context) ([]*models.SignalRecord, error) {
	recs, err := e.store.ListAll(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	// store order is newest first
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func csvRow(rec *models.SignalRecord) []string {
	technical := ""
	if _, ok := rec.Scores[models.ScoreTechnical]; ok {
		technical = floatCell(rec.Score(models.ScoreTechnical))
	}
	return []string{
		rec.ID,
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.Symbol,
		floatPtrCell(rec.Price),
		floatCell(rec.Score(models.ScoreMacro)),
		floatCell(rec.Score(models.ScoreMarket)),
		floatCell(rec.Score(models.ScoreFundamental)),
		floatCell(rec.Score(models.ScoreSentiment)),
		technical,
		floatCell(rec.TotalScore),
		floatCell(rec.Confidence),
		intPtrCell(rec.Rating),
		floatPtrCell(rec.PriceAfter7d),
		floatPtrCell(rec.ActualReturn),
	}
}

func mlRow(rec *models.SignalRecord) []string {
	created := rec.CreatedAt.UTC()
	ret := *rec.ActualReturn
	return []string{
		rec.ID,
		rec.Symbol,
		floatCell((rec.Score(models.ScoreMarket) + 1) / 2),
		floatCell(normalizeFundamental(rec.Score(models.ScoreFundamental))),
		floatCell(rec.Score(models.ScoreSentiment) / 3),
		floatCell(rec.TotalScore / 10),
		strconv.Itoa(int(created.Weekday())),
		strconv.Itoa(created.Hour()),
		floatCell(ret),
		boolCell(ret > 0),
		boolCell(ret > strongReturnPct),
		intPtrCell(rec.Rating),
	}
}

// normalizeFundamental maps the fundamental score to [0,1]. Scores above 3
// can only come from the 0-5 ratio variant.
func normalizeFundamental(v float64) float64 {
	if v > 3 {
		return v / 5
	}
	return v / 3
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func floatCell(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatPtrCell(v *float64) string {
	if v == nil {
		return ""
	}
	return floatCell(*v)
}

func intPtrCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func boolCell(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
