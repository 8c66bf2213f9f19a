package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// TaskOrder assigns a display position to one task.
type TaskOrder struct {
	ID    uuid.UUID
	Order int
}

// TaskStore defines the interface for task data persistence.
//
// Every read excludes soft-deleted tasks unless stated otherwise. Every
// mutation that takes a userID is scoped to tasks owned by that user, so a
// task belonging to someone else behaves as if it does not exist.
type TaskStore interface {
	// Create inserts a task. Tags and attachments are written by their own stores.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID loads a live task with its tags and attachments.
	// Returns ErrTaskNotFound if the task does not exist or was soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update writes the mutable columns of task (title, description, priority,
	// due date, completion, archive state, updated_at).
	// Returns ErrTaskNotFound if no live task with that ID belongs to task.UserID.
	Update(ctx context.Context, task *domain.Task) error

	// NextOrder returns one more than the user's highest task_order, or 1 when
	// the user has no live tasks.
	NextOrder(ctx context.Context, userID uuid.UUID) (int, error)

	// UpdateOrders sets task_order for each entry owned by userID. Entries for
	// tasks the user does not own are skipped. Returns the number of rows changed.
	UpdateOrders(ctx context.Context, userID uuid.UUID, orders []TaskOrder) (int64, error)

	// SoftDelete marks the user's task as deleted.
	// Returns ErrTaskNotFound if no live task matches.
	SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) error

	// HardDelete removes the task row, live or soft-deleted. Attachment rows
	// and tag links cascade.
	HardDelete(ctx context.Context, id uuid.UUID) error

	// List returns one page of the user's live tasks matching filter, each with
	// tags and attachments loaded.
	List(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) (*domain.TaskPage, error)

	// FindArchivedBefore returns up to limit tasks, live or soft-deleted, whose
	// archived_at is earlier than cutoff, oldest first. Live attachments are loaded.
	FindArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error)

	// WithTx returns a TaskStore that runs its queries on tx.
	WithTx(tx *sql.Tx) TaskStore
}
