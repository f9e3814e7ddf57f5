package scheduler

import (
	"context"
	"errors"
	"time"

	"FinScout/internal/domain/models"
	"FinScout/internal/usecase"
	"FinScout/pkg/config"
	"FinScout/pkg/logger"
)

// runTimeout bounds one scheduled analysis run.
const runTimeout = 30 * time.Minute

// Runner starts one analysis run; satisfied by usecase.Research.
type Runner interface {
	Run(ctx context.Context, testMode bool) (*models.RunResult, error)
}

// Updater back-fills signal performance; satisfied by usecase.Performance.
type Updater interface {
	Update(ctx context.Context) (int, error)
}

// Sweeper evicts expired cache entries.
type Sweeper interface {
	CleanupExpired() int
}

// Jobs assembles the standard schedule: periodic analysis runs, the J+7
// performance pass, and cache sweeping. sweeper may be nil.
func Jobs(cfg config.SchedulerConfig, runner Runner, updater Updater, sweeper Sweeper, lgr *logger.Logger) []Job {
	jobs := []Job{
		{
			Name: "analysis_run",
			Spec: cfg.RunSpec,
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, runTimeout)
				defer cancel()
				_, err := runner.Run(ctx, false)
				if errors.Is(err, usecase.ErrRunInFlight) {
					lgr.Warn("scheduled run skipped, previous run still active")
					return nil
				}
				return err
			},
		},
		{
			Name: "performance_update",
			Spec: cfg.PerformanceSpec,
			Run: func(ctx context.Context) error {
				_, err := updater.Update(ctx)
				return err
			},
		},
	}
	if sweeper != nil {
		jobs = append(jobs, Job{
			Name: "cache_sweep",
			Spec: cfg.SweepSpec,
			Run: func(context.Context) error {
				if n := sweeper.CleanupExpired(); n > 0 {
					lgr.Debug("cache swept", logger.Int("evicted", n))
				}
				return nil
			},
		})
	}
	return jobs
}
