package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	pkgch "FinScout/pkg/clickhouse"
	"FinScout/pkg/logger"
)

const signalsTable = "finscout.signals"

var signalsSchema = []string{
	`CREATE DATABASE IF NOT EXISTS finscout`,
	`CREATE TABLE IF NOT EXISTS ` + signalsTable + ` (
		id                     String,
		created_at             DateTime64(3, 'UTC'),
		symbol                 LowCardinality(String),
		price                  Nullable(Float64),
		macro_score            Float64,
		market_score           Float64,
		fundamental_score      Float64,
		sentiment_score        Float64,
		technical_score        Nullable(Float64),
		total_score            Float64,
		confidence             Float64,
		summaries              String,
		rating                 Nullable(Int32),
		rated_at               Nullable(DateTime64(3, 'UTC')),
		price_after_7d         Nullable(Float64),
		actual_return          Nullable(Float64),
		performance_updated_at Nullable(DateTime64(3, 'UTC')),
		updated_at             DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(updated_at)
	ORDER BY id`,
}

const insertSignal = `INSERT INTO ` + signalsTable + ` (
	id, created_at, symbol, price,
	macro_score, market_score, fundamental_score, sentiment_score, technical_score,
	total_score, confidence, summaries,
	rating, rated_at, price_after_7d, actual_return, performance_updated_at,
	updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectSignal = `SELECT id, created_at, symbol, price,
	macro_score, market_score, fundamental_score, sentiment_score, technical_score,
	total_score, confidence, summaries,
	rating, rated_at, price_after_7d, actual_return, performance_updated_at
FROM ` + signalsTable + ` FINAL`

// ClickHouseStore persists signals in ClickHouse. Rating and
// performance updates are re-inserts with a fresh updated_at version;
// ReplacingMergeTree keeps the latest row per id, so reads go through
// FINAL.
type ClickHouseStore struct {
	ch  *pkgch.Client
	db  *sql.DB
	log *logger.Logger
}

var _ domrepo.SignalStore = (*ClickHouseStore)(nil)

// NewClickHouseStore creates a store over an established client.
func NewClickHouseStore(ch *pkgch.Client, lgr *logger.Logger) *ClickHouseStore {
	return &ClickHouseStore{ch: ch, db: ch.DB(), log: lgr}
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, signalsSchema)
}

func (s *ClickHouseStore) Save(ctx context.Context, rec *models.SignalRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("signal id required")
	}
	return s.insert(ctx, rec, rec.CreatedAt)
}

func (s *ClickHouseStore) Get(ctx context.Context, id string) (*models.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectSignal+" WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("query signal %s: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query signal %s: %w", id, err)
		}
		return nil, domrepo.ErrSignalNotFound
	}
	return scanSignal(rows)
}

func (s *ClickHouseStore) ListAll(ctx context.Context, limit int) ([]*models.SignalRecord, error) {
	q := selectSignal + " ORDER BY created_at DESC"
	if limit > 0 {
		return s.list(ctx, q+" LIMIT ?", limit)
	}
	return s.list(ctx, q)
}

func (s *ClickHouseStore) ListUnrated(ctx context.Context, limit int) ([]*models.SignalRecord, error) {
	q := selectSignal + " WHERE rating IS NULL ORDER BY created_at DESC"
	if limit > 0 {
		return s.list(ctx, q+" LIMIT ?", limit)
	}
	return s.list(ctx, q)
}

func (s *ClickHouseStore) ListDuePerformance(ctx context.Context, olderThan time.Time) ([]*models.SignalRecord, error) {
	q := selectSignal + " WHERE created_at < ? AND price_after_7d IS NULL ORDER BY created_at ASC"
	return s.list(ctx, q, olderThan)
}

func (s *ClickHouseStore) Rate(ctx context.Context, id string, stars int, at time.Time) error {
	if err := validStars(stars); err != nil {
		return err
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Rating = &stars
	rec.RatedAt = &at
	return s.insert(ctx, rec, at)
}

func (s *ClickHouseStore) UpdatePerformance(ctx context.Context, id string, price float64, at time.Time) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.PriceAfter7d = &price
	rec.ActualReturn = returnPercent(rec.Price, price)
	rec.PerformanceUpdatedAt = &at
	return s.insert(ctx, rec, at)
}

func (s *ClickHouseStore) Statistics(ctx context.Context) (*models.SignalStatistics, error) {
	recs, err := s.ListAll(ctx, 0)
	if err != nil {
		return nil, err
	}
	return statisticsOf(recs), nil
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the connection pool is owned by the client.
func (s *ClickHouseStore) Close() error { return nil }

func (s *ClickHouseStore) insert(ctx context.Context, rec *models.SignalRecord, updatedAt time.Time) error {
	summaries := "{}"
	if len(rec.Summaries) > 0 {
		b, err := json.Marshal(rec.Summaries)
		if err != nil {
			return fmt.Errorf("encode summaries: %w", err)
		}
		summaries = string(b)
	}
	var technical interface{}
	if v, ok := rec.Scores[models.ScoreTechnical]; ok {
		technical = v
	}
	_, err := s.db.ExecContext(ctx, insertSignal,
		rec.ID,
		rec.CreatedAt,
		rec.Symbol,
		nullFloat(rec.Price),
		rec.Score(models.ScoreMacro),
		rec.Score(models.ScoreMarket),
		rec.Score(models.ScoreFundamental),
		rec.Score(models.ScoreSentiment),
		technical,
		rec.TotalScore,
		rec.Confidence,
		summaries,
		nullInt(rec.Rating),
		nullTime(rec.RatedAt),
		nullFloat(rec.PriceAfter7d),
		nullFloat(rec.ActualReturn),
		nullTime(rec.PerformanceUpdatedAt),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signal %s: %w", rec.ID, err)
	}
	return nil
}

func (s *ClickHouseStore) list(ctx context.Context, q string, args ...interface{}) ([]*models.SignalRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()
	var out []*models.SignalRecord
	for rows.Next() {
		rec, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSignal(rows *sql.Rows) (*models.SignalRecord, error) {
	var (
		rec                                   models.SignalRecord
		price, technical, after7d, actual     sql.NullFloat64
		macro, market, fundamental, sentiment float64
		summaries                             string
		rating                                sql.NullInt32
		ratedAt, perfAt                       sql.NullTime
	)
	if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Symbol, &price,
		&macro, &market, &fundamental, &sentiment, &technical,
		&rec.TotalScore, &rec.Confidence, &summaries,
		&rating, &ratedAt, &after7d, &actual, &perfAt); err != nil {
		return nil, fmt.Errorf("scan signal: %w", err)
	}
	rec.Scores = map[string]float64{
		models.ScoreMacro:       macro,
		models.ScoreMarket:      market,
		models.ScoreFundamental: fundamental,
		models.ScoreSentiment:   sentiment,
	}
	if technical.Valid {
		rec.Scores[models.ScoreTechnical] = technical.Float64
	}
	if summaries != "" && summaries != "{}" {
		if err := json.Unmarshal([]byte(summaries), &rec.Summaries); err != nil {
			return nil, fmt.Errorf("decode summaries for %s: %w", rec.ID, err)
		}
	}
	if price.Valid {
		rec.Price = &price.Float64
	}
	if rating.Valid {
		v := int(rating.Int32)
		rec.Rating = &v
	}
	if ratedAt.Valid {
		t := ratedAt.Time
		rec.RatedAt = &t
	}
	if after7d.Valid {
		rec.PriceAfter7d = &after7d.Float64
	}
	if actual.Valid {
		rec.ActualReturn = &actual.Float64
	}
	if perfAt.Valid {
		t := perfAt.Time
		rec.PerformanceUpdatedAt = &t
	}
	return &rec, nil
}

func nullFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return int32(*p)
}

func nullTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
