package repository

import (
	"fmt"

	"FinScout/internal/domain/models"
)

// statisticsOf aggregates the signal history. Shared by every backend so
// the numbers come out identical regardless of storage.
func statisticsOf(recs []*models.SignalRecord) *models.SignalStatistics {
	stats := &models.SignalStatistics{RatingCounts: make(map[int]int)}
	var ratingSum, returnSum float64
	for _, rec := range recs {
		stats.Total++
		if rec.Rating != nil {
			stats.Rated++
			stats.RatingCounts[*rec.Rating]++
			ratingSum += float64(*rec.Rating)
		}
		if rec.ActualReturn != nil {
			stats.WithPerformance++
			returnSum += *rec.ActualReturn
			switch {
			case *rec.ActualReturn > 0:
				stats.PositiveReturns++
			case *rec.ActualReturn < 0:
				stats.NegativeReturns++
			}
		}
	}
	stats.Unrated = stats.Total - stats.Rated
	if stats.Rated > 0 {
		stats.AvgRating = ratingSum / float64(stats.Rated)
	}
	if stats.WithPerformance > 0 {
		stats.AvgReturn = returnSum / float64(stats.WithPerformance)
	}
	return stats
}

func validStars(stars int) error {
	if stars < 1 || stars > 5 {
		return fmt.Errorf("rating out of range: %d", stars)
	}
	return nil
}

// returnPercent computes the realized return against the entry price,
// nil when the entry price is unknown.
func returnPercent(entry *float64, price float64) *float64 {
	if entry == nil || *entry <= 0 {
		return nil
	}
	r := (price - *entry) / *entry * 100
	return &r
}

func ptrOf[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneRecord deep-copies a signal so callers cannot mutate stored state.
func cloneRecord(rec *models.SignalRecord) *models.SignalRecord {
	cp := *rec
	if rec.Scores != nil {
		cp.Scores = make(map[string]float64, len(rec.Scores))
		for k, v := range rec.Scores {
			cp.Scores[k] = v
		}
	}
	if rec.Summaries != nil {
		cp.Summaries = make(map[string]string, len(rec.Summaries))
		for k, v := range rec.Summaries {
			cp.Summaries[k] = v
		}
	}
	cp.Price = ptrOf(rec.Price)
	cp.Rating = ptrOf(rec.Rating)
	cp.RatedAt = ptrOf(rec.RatedAt)
	cp.PriceAfter7d = ptrOf(rec.PriceAfter7d)
	cp.ActualReturn = ptrOf(rec.ActualReturn)
	cp.PerformanceUpdatedAt = ptrOf(rec.PerformanceUpdatedAt)
	return &cp
}
