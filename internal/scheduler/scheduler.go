// Package scheduler runs the engine's periodic jobs: the global rank
// recompute and the stale streak sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/fitquest/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Jobs is the part of the engine the scheduler drives.
type Jobs interface {
	UpdateUserRanks(ctx context.Context) error
	SweepStreaks(ctx context.Context, now time.Time) (int, error)
}

type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// New registers both jobs. Runs of the same job never overlap; a slow rank
// recompute simply skips the next tick.
func New(jobs Jobs, rankSpec, sweepSpec string) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
		jobs:   jobs,
		ctx:    ctx,
		cancel: cancel,
		now:    time.Now,
	}

	if _, err := s.cron.AddFunc(rankSpec, s.RunRankUpdate); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid rank schedule %q: %w", rankSpec, err)
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.RunStreakSweep); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid streak sweep schedule %q: %w", sweepSpec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped")
}

func (s *Scheduler) RunRankUpdate() {
	if err := s.jobs.UpdateUserRanks(s.ctx); err != nil {
		logger.Error("Rank update failed", "error", err)
	}
}

func (s *Scheduler) RunStreakSweep() {
	reset, err := s.jobs.SweepStreaks(s.ctx, s.now())
	if err != nil {
		logger.Error("Streak sweep failed", "error", err)
		return
	}
	if reset > 0 {
		logger.Info("Stale streaks reset", "profiles", reset)
	}
}
