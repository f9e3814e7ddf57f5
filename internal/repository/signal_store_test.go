package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	"FinScout/pkg/logger"
)

func storesUnderTest(t *testing.T) map[string]domrepo.SignalStore {
	t.Helper()
	return map[string]domrepo.SignalStore{
		"file":   NewFileStore(t.TempDir(), logger.Nop()),
		"memory": NewMemoryStore(),
	}
}

func signalAt(id, symbol string, created time.Time, price float64) *models.SignalRecord {
	p := price
	return &models.SignalRecord{
		ID:        id,
		CreatedAt: created,
		Symbol:    symbol,
		Price:     &p,
		Scores: map[string]float64{
			models.ScoreMacro:       1,
			models.ScoreMarket:      1,
			models.ScoreFundamental: 2.1,
			models.ScoreSentiment:   1.5,
		},
		TotalScore: 7.6,
		Confidence: 0.7,
		Summaries:  map[string]string{"macro": "favorable rates"},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			rec := signalAt("sig-001", "AAPL", created, 189.84)
			require.NoError(t, store.Save(ctx, rec))

			got, err := store.Get(ctx, "sig-001")
			require.NoError(t, err)
			assert.Equal(t, rec, got)

			_, err = store.Get(ctx, "nope")
			assert.ErrorIs(t, err, domrepo.ErrSignalNotFound)

			assert.Error(t, store.Save(ctx, &models.SignalRecord{}))
			assert.NoError(t, store.Health(ctx))
		})
	}
}

func TestStoreListingsNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			// saved out of order on purpose
			require.NoError(t, store.Save(ctx, signalAt("sig-b", "MSFT", base.Add(time.Hour), 415)))
			require.NoError(t, store.Save(ctx, signalAt("sig-c", "NVDA", base.Add(2*time.Hour), 131)))
			require.NoError(t, store.Save(ctx, signalAt("sig-a", "AAPL", base, 189)))

			all, err := store.ListAll(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"sig-c", "sig-b", "sig-a"}, idsOf(all))

			capped, err := store.ListAll(ctx, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"sig-c", "sig-b"}, idsOf(capped))
		})
	}
}

func TestStoreRateAndUnrated(t *testing.T) {
	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	ratedAt := base.Add(72 * time.Hour)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			require.NoError(t, store.Save(ctx, signalAt("sig-a", "AAPL", base, 189)))
			require.NoError(t, store.Save(ctx, signalAt("sig-b", "MSFT", base.Add(time.Hour), 415)))

			require.NoError(t, store.Rate(ctx, "sig-b", 4, ratedAt))

			got, err := store.Get(ctx, "sig-b")
			require.NoError(t, err)
			require.NotNil(t, got.Rating)
			assert.Equal(t, 4, *got.Rating)
			require.NotNil(t, got.RatedAt)
			assert.Equal(t, ratedAt, *got.RatedAt)

			unrated, err := store.ListUnrated(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"sig-a"}, idsOf(unrated))

			assert.Error(t, store.Rate(ctx, "sig-a", 0, ratedAt))
			assert.Error(t, store.Rate(ctx, "sig-a", 6, ratedAt))
			assert.ErrorIs(t, store.Rate(ctx, "nope", 3, ratedAt), domrepo.ErrSignalNotFound)
		})
	}
}

func TestStoreUpdatePerformance(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * 24 * time.Hour)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			// two due signals, a fresh one, and one already updated
			require.NoError(t, store.Save(ctx, signalAt("sig-old", "AAPL", now.Add(-10*24*time.Hour), 100)))
			require.NoError(t, store.Save(ctx, signalAt("sig-older", "MSFT", now.Add(-12*24*time.Hour), 400)))
			require.NoError(t, store.Save(ctx, signalAt("sig-new", "NVDA", now.Add(-time.Hour), 131)))
			done := signalAt("sig-done", "KO", now.Add(-14*24*time.Hour), 60)
			after := 63.0
			done.PriceAfter7d = &after
			require.NoError(t, store.Save(ctx, done))

			due, err := store.ListDuePerformance(ctx, cutoff)
			require.NoError(t, err)
			assert.Equal(t, []string{"sig-older", "sig-old"}, idsOf(due))

			require.NoError(t, store.UpdatePerformance(ctx, "sig-old", 110, now))
			got, err := store.Get(ctx, "sig-old")
			require.NoError(t, err)
			require.NotNil(t, got.PriceAfter7d)
			assert.InDelta(t, 110, *got.PriceAfter7d, 1e-9)
			require.NotNil(t, got.ActualReturn)
			assert.InDelta(t, 10, *got.ActualReturn, 1e-9)
			require.NotNil(t, got.PerformanceUpdatedAt)
			assert.Equal(t, now, *got.PerformanceUpdatedAt)

			due, err = store.ListDuePerformance(ctx, cutoff)
			require.NoError(t, err)
			assert.Equal(t, []string{"sig-older"}, idsOf(due))
		})
	}
}

func TestStoreUpdatePerformanceWithoutEntryPrice(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))
			rec := signalAt("sig-a", "AAPL", now.Add(-10*24*time.Hour), 0)
			rec.Price = nil
			require.NoError(t, store.Save(ctx, rec))

			require.NoError(t, store.UpdatePerformance(ctx, "sig-a", 110, now))

			got, err := store.Get(ctx, "sig-a")
			require.NoError(t, err)
			require.NotNil(t, got.PriceAfter7d)
			assert.Nil(t, got.ActualReturn)
		})
	}
}

func TestStoreStatistics(t *testing.T) {
	base := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Init(ctx))

			mk := func(id string, offset time.Duration, rating *int, ret *float64) *models.SignalRecord {
				rec := signalAt(id, "AAPL", base.Add(offset), 100)
				rec.Rating = rating
				rec.ActualReturn = ret
				return rec
			}
			five, three := 5, 3
			up, down, flat := 4.0, -2.0, 0.0
			require.NoError(t, store.Save(ctx, mk("sig-a", 0, &five, &up)))
			require.NoError(t, store.Save(ctx, mk("sig-b", time.Hour, &three, &down)))
			require.NoError(t, store.Save(ctx, mk("sig-c", 2*time.Hour, nil, &flat)))
			require.NoError(t, store.Save(ctx, mk("sig-d", 3*time.Hour, nil, nil)))

			stats, err := store.Statistics(ctx)
			require.NoError(t, err)
			assert.Equal(t, 4, stats.Total)
			assert.Equal(t, 2, stats.Rated)
			assert.Equal(t, 2, stats.Unrated)
			assert.InDelta(t, 4.0, stats.AvgRating, 1e-9)
			assert.Equal(t, map[int]int{5: 1, 3: 1}, stats.RatingCounts)
			assert.Equal(t, 3, stats.WithPerformance)
			assert.InDelta(t, 2.0/3, stats.AvgReturn, 1e-9)
			assert.Equal(t, 1, stats.PositiveReturns)
			assert.Equal(t, 1, stats.NegativeReturns)
		})
	}
}

func TestFileStoreSkipsCorruptDocuments(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, logger.Nop())
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, signalAt("sig-good", "AAPL", created, 189)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sig-bad.json"), []byte("{broken"), 0o644))

	all, err := store.ListAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"sig-good"}, idsOf(all))

	_, err = store.Get(ctx, "sig-bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domrepo.ErrSignalNotFound)
}

func TestReturnPercent(t *testing.T) {
	entry := 100.0
	got := returnPercent(&entry, 110)
	require.NotNil(t, got)
	assert.InDelta(t, 10, *got, 1e-9)

	zero := 0.0
	assert.Nil(t, returnPercent(&zero, 110))
	assert.Nil(t, returnPercent(nil, 110))
}

func idsOf(recs []*models.SignalRecord) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.ID
	}
	return out
}
