package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"FinScout/internal/domain/models"
	domrepo "FinScout/internal/domain/repository"
	"FinScout/pkg/logger"
)

// FileStore keeps one JSON document per signal under dir. Listings load
// every document, which is fine at the volume a scheduled pipeline
// emits.
type FileStore struct {
	dir string
	log *logger.Logger

	mu sync.Mutex // serializes read-modify-write updates
}

var _ domrepo.SignalStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir. Init creates the
// directory.
func NewFileStore(dir string, lgr *logger.Logger) *FileStore {
	return &FileStore{dir: dir, log: lgr}
}

func (s *FileStore) Init(context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create signal dir: %w", err)
	}
	return nil
}

func (s *FileStore) Save(_ context.Context, rec *models.SignalRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("signal id required")
	}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode signal %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(s.path(rec.ID), b, 0o644); err != nil {
		return fmt.Errorf("write signal %s: %w", rec.ID, err)
	}
	return nil
}

func (s *FileStore) Get(_ context.Context, id string) (*models.SignalRecord, error) {
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domrepo.ErrSignalNotFound
		}
		return nil, fmt.Errorf("read signal %s: %w", id, err)
	}
	var rec models.SignalRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode signal %s: %w", id, err)
	}
	return &rec, nil
}

func (s *FileStore) ListAll(ctx context.Context, limit int) ([]*models.SignalRecord, error) {
	recs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return capLimit(recs, limit), nil
}

func (s *FileStore) ListUnrated(ctx context.Context, limit int) ([]*models.SignalRecord, error) {
	recs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	unrated := recs[:0:0]
	for _, rec := range recs {
		if rec.Rating == nil {
			unrated = append(unrated, rec)
		}
	}
	return capLimit(unrated, limit), nil
}

func (s *FileStore) ListDuePerformance(ctx context.Context, olderThan time.Time) ([]*models.SignalRecord, error) {
	recs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	due := recs[:0:0]
	for _, rec := range recs {
		if rec.CreatedAt.Before(olderThan) && rec.PriceAfter7d == nil {
			due = append(due, rec)
		}
	}
	// oldest first so the longest-waiting signals are updated first
	for i, j := 0, len(due)-1; i < j; i, j = i+1, j-1 {
		due[i], due[j] = due[j], due[i]
	}
	return due, nil
}

func (s *FileStore) Rate(ctx context.Context, id string, stars int, at time.Time) error {
	if err := validStars(stars); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Rating = &stars
	rec.RatedAt = &at
	return s.Save(ctx, rec)
}

func (s *FileStore) UpdatePerformance(ctx context.Context, id string, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.PriceAfter7d = &price
	rec.ActualReturn = returnPercent(rec.Price, price)
	rec.PerformanceUpdatedAt = &at
	return s.Save(ctx, rec)
}

func (s *FileStore) Statistics(ctx context.Context) (*models.SignalStatistics, error) {
	recs, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	return statisticsOf(recs), nil
}

func (s *FileStore) Health(context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("signal dir unavailable: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// loadAll reads every signal document, newest first. Unreadable files
// are skipped so one corrupt document cannot take down listings.
func (s *FileStore) loadAll(ctx context.Context) ([]*models.SignalRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list signals: %w", err)
	}
	out := make([]*models.SignalRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := s.Get(ctx, strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			s.log.Warn("skipping unreadable signal", logger.String("file", e.Name()), logger.Error(err))
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
