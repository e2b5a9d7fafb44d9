// Package scheduler runs the periodic overdue sweep and reminder scan.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Jobs is the work the scheduler triggers
type Jobs interface {
	SweepOverdue(ctx context.Context) (int64, error)
	RunGlobalReminderSweep(ctx context.Context) (int, error)
}

type Config struct {
	SweepSpec    string
	ReminderSpec string
	Location     *time.Location
	JobTimeout   time.Duration
}

type Scheduler struct {
	cron       *cron.Cron
	jobs       Jobs
	jobTimeout time.Duration
	logger     zerolog.Logger
}

func New(jobs Jobs, cfg Config, logger zerolog.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	s := &Scheduler{
		// A run that overlaps the previous one is skipped rather than queued.
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:       jobs,
		jobTimeout: timeout,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}

	if _, err := s.cron.AddFunc(cfg.SweepSpec, func() { s.RunSweep(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule overdue sweep: %w", err)
	}

	if _, err := s.cron.AddFunc(cfg.ReminderSpec, func() { s.RunReminders(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule reminder scan: %w", err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn().Msg("Scheduler stopped before running jobs finished")
	}
}

// RunSweep runs one overdue sweep. Errors are logged and swallowed.
func (s *Scheduler) RunSweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	updated, err := s.jobs.SweepOverdue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Overdue sweep failed")
		return
	}

	s.logger.Info().Int64("updated", updated).Dur("took", time.Since(start)).Msg("Overdue sweep finished")
}

// RunReminders runs one global reminder scan. Errors are logged and swallowed.
func (s *Scheduler) RunReminders(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	start := time.Now()
	sent, err := s.jobs.RunGlobalReminderSweep(ctx)
	if err != nil {
		s.logger.Error().Err(err).Int("sent", sent).Msg("Reminder scan failed")
		return
	}

	s.logger.Info().Int("sent", sent).Dur("took", time.Since(start)).Msg("Reminder scan finished")
}
