package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
)

// MemoryStore keeps signals in a map. Used by tests and dry runs.
type MemoryStore struct {
	mu      sync.RWMutex
	signals map[string]*models.SignalRecord
}

var _ domrepo.SignalStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory signal store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{signals: make(map[string]*models.SignalRecord)}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) Save(_ context.Context, rec *models.SignalRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("signal id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.signals[id]
	if !ok {
		return nil, domrepo.ErrSignalNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) ListAll(_ context.Context, limit int) ([]*models.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return capLimit(s.newestFirst(nil), limit), nil
}

func (s *MemoryStore) ListUnrated(_ context.Context, limit int) ([]*models.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unrated := s.newestFirst(func(rec *models.SignalRecord) bool { return rec.Rating == nil })
	return capLimit(unrated, limit), nil
}

func (s *MemoryStore) ListDuePerformance(_ context.Context, olderThan time.Time) ([]*models.SignalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	due := s.newestFirst(func(rec *models.SignalRecord) bool {
		return rec.CreatedAt.Before(olderThan) && rec.PriceAfter7d == nil
	})
	// oldest first so the longest-waiting signals are updated first
	for i, j := 0, len(due)-1; i < j; i, j = i+1, j-1 {
		due[i], due[j] = due[j], due[i]
	}
	return due, nil
}

func (s *MemoryStore) Rate(_ context.Context, id string, stars int, at time.Time) error {
	if err := validStars(stars); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.signals[id]
	if !ok {
		return domrepo.ErrSignalNotFound
	}
	rec.Rating = &stars
	rec.RatedAt = &at
	return nil
}

func (s *MemoryStore) UpdatePerformance(_ context.Context, id string, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.signals[id]
	if !ok {
		return domrepo.ErrSignalNotFound
	}
	rec.PriceAfter7d = &price
	rec.ActualReturn = returnPercent(rec.Price, price)
	rec.PerformanceUpdatedAt = &at
	return nil
}

func (s *MemoryStore) Statistics(context.Context) (*models.SignalStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return statisticsOf(s.newestFirst(nil)), nil
}

func (s *MemoryStore) Health(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// newestFirst snapshots matching records sorted by creation time
// descending. Callers hold the lock.
func (s *MemoryStore) newestFirst(match func(*models.SignalRecord) bool) []*models.SignalRecord {
	out := make([]*models.SignalRecord, 0, len(s.signals))
	for _, rec := range s.signals {
		if match == nil || match(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func capLimit(recs []*models.SignalRecord, limit int) []*models.SignalRecord {
	if limit > 0 && len(recs) > limit {
		return recs[:limit]
	}
	return recs
}
