package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"FinScout/pkg/logger"
)

// Job is one scheduled task. Spec uses standard five-field cron syntax or
// an @every descriptor.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler drives the recurring jobs of the pipeline.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

// New builds an empty scheduler.
func New(lgr *logger.Logger) *Scheduler {
	return &Scheduler{cron: cron.New(), log: lgr}
}

// Register adds a job to the schedule. Job failures are logged, never
// propagated; the next tick fires regardless.
func (s *Scheduler) Register(job Job) error {
	if job.Spec == "" || job.Run == nil {
		return errors.New("scheduler: job needs a spec and a handler")
	}
	_, err := s.cron.AddFunc(job.Spec, func() {
		start := time.Now()
		s.log.Info("job started", logger.String("job", job.Name))
		if err := job.Run(context.Background()); err != nil {
			s.log.Error("job failed",
				logger.String("job", job.Name), logger.Error(err))
			return
		}
		s.log.Info("job finished",
			logger.String("job", job.Name),
			logger.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	s.log.Info("job registered",
		logger.String("job", job.Name), logger.String("spec", job.Spec))
	return nil
}

// RegisterAll registers every job, stopping at the first bad spec.
func (s *Scheduler) RegisterAll(jobs []Job) error {
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// Start begins firing jobs on their schedule.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("jobs", len(s.cron.Entries())))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// JobCount returns how many jobs are registered.
func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}
