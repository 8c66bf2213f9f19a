package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskly-api/internal/config"
	"github.com/phrazzld/taskly-api/internal/redact"
	"golang.org/x/sync/semaphore"
)

// ErrRunInProgress is returned by RunOnce when a previous run still holds the lock.
var ErrRunInProgress = errors.New("previous run still in progress")

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a Job daily at a fixed local time.
type Scheduler struct {
	job        Job
	hour       int
	minute     int
	loc        *time.Location
	maxRuntime time.Duration
	sem        *semaphore.Weighted

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler for job from the retention settings.
func NewScheduler(job Job, cfg config.RetentionConfig, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job cannot be nil")
	}
	at, err := time.Parse("15:04", cfg.RunAt)
	if err != nil {
		return nil, fmt.Errorf("invalid run_at %q: %w", cfg.RunAt, err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if cfg.MaxRuntime <= 0 {
		return nil, errors.New("max_runtime must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		job:        job,
		hour:       at.Hour(),
		minute:     at.Minute(),
		loc:        loc,
		maxRuntime: cfg.MaxRuntime,
		sem:        semaphore.NewWeighted(1),
		now:        time.Now,
		after:      time.After,
		logger:     logger.With(slog.String("component", "scheduler"), slog.String("job", job.Name())),
	}, nil
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start begins the daily schedule in the background.
func (s *Scheduler) Start() {
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started",
		slog.String("next_run", NextRun(s.now(), s.hour, s.minute, s.loc).Format(time.RFC3339)))
}

// Stop cancels any run in progress and waits for it to return.
func (s *Scheduler) Stop() {
	if s.cancelFunc == nil {
		return
	}
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		now := s.now()
		wait := NextRun(now, s.hour, s.minute, s.loc).Sub(now)

		select {
		case <-s.ctx.Done():
			return
		case <-s.after(wait):
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				_ = s.RunOnce(s.ctx)
			}()
		}
	}
}

// RunOnce runs the job immediately with the configured deadline. It returns
// ErrRunInProgress without running if another run holds the lock.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.sem.TryAcquire(1) {
		s.logger.Warn("skipped: previous run still in progress")
		return ErrRunInProgress
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, s.maxRuntime)
	defer cancel()

	start := s.now()
	s.logger.Info("job run started")

	err := s.job.Run(ctx)

	s.logger.Info("job run completed", slog.Duration("duration", s.now().Sub(start)))
	if err != nil {
		s.logger.Error("job run failed", slog.String("error", redact.Error(err)))
		return err
	}
	s.logger.Info("job run succeeded")
	return nil
}
