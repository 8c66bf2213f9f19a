package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/redact"
	"go.uber.org/multierr"
)

// TaskPurger finds and permanently removes archived tasks.
type TaskPurger interface {
	ArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error)
	Purge(ctx context.Context, task *domain.Task) error
}

// TokenPruner deletes access tokens that have expired.
type TokenPruner interface {
	PruneExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// RetentionResult summarizes one retention run.
type RetentionResult struct {
	Purged       int
	Failed       int
	TokensPruned int64
}

// RetentionJob purges tasks archived longer ago than the retention window,
// whether or not they were also soft-deleted.
type RetentionJob struct {
	tasks     TaskPurger
	tokens    TokenPruner
	window    time.Duration
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

var _ Job = (*RetentionJob)(nil)

// NewRetentionJob creates a RetentionJob. tokens may be nil to skip token pruning.
func NewRetentionJob(
	tasks TaskPurger,
	tokens TokenPruner,
	window time.Duration,
	batchSize int,
	logger *slog.Logger,
) (*RetentionJob, error) {
	if tasks == nil {
		return nil, errors.New("task purger cannot be nil")
	}
	if window <= 0 {
		return nil, errors.New("retention window must be positive")
	}
	if batchSize <= 0 {
		return nil, errors.New("batch size must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RetentionJob{
		tasks:     tasks,
		tokens:    tokens,
		window:    window,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "retention_job")),
	}, nil
}

// Name implements Job.
func (j *RetentionJob) Name() string { return "purge_archived_tasks" }

// Run implements Job.
func (j *RetentionJob) Run(ctx context.Context) error {
	_, err := j.Purge(ctx)
	return err
}

// Purge removes every task archived before now minus the window, one batch
// at a time. A task that fails to purge is logged and skipped; the run goes
// on and the returned error aggregates every failure. The run stops early
// when the context ends or a batch holds only tasks that already failed.
func (j *RetentionJob) Purge(ctx context.Context) (RetentionResult, error) {
	log := logger.FromContextOrDefault(ctx, j.logger)

	var result RetentionResult
	var errs error

	now := j.now().UTC()
	cutoff := now.Add(-j.window)
	failed := make(map[uuid.UUID]struct{})

	log.Info("purging archived tasks", slog.Time("cutoff", cutoff))

	for {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		batch, err := j.tasks.ArchivedBefore(ctx, cutoff, j.batchSize)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to list archived tasks: %w", err))
			break
		}

		progressed := false
		for _, task := range batch {
			if _, seen := failed[task.ID]; seen {
				continue
			}
			progressed = true

			if err := j.tasks.Purge(ctx, task); err != nil {
				failed[task.ID] = struct{}{}
				result.Failed++
				errs = multierr.Append(errs, fmt.Errorf("task %s: %w", task.ID, err))
				log.Error("failed to purge task",
					slog.String("task_id", task.ID.String()),
					slog.String("error", redact.Error(err)))
				continue
			}
			result.Purged++
		}

		if len(batch) < j.batchSize || !progressed {
			break
		}
	}

	if j.tokens != nil && ctx.Err() == nil {
		n, err := j.tokens.PruneExpiredTokens(ctx, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to prune expired tokens: %w", err))
		}
		result.TokensPruned = n
	}

	log.Info("retention run finished",
		slog.Int("purged", result.Purged),
		slog.Int("failed", result.Failed),
		slog.Int64("tokens_pruned", result.TokensPruned))
	return result, errs
}
