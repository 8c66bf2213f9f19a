package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// TagStore defines the interface for tag persistence and task-tag links.
//
// Tags are shared by name across users; visibility is derived from the tasks
// that reference them.
type TagStore interface {
	// FindOrCreate returns the tag with name, inserting it if absent. It is a
	// single upsert, safe under concurrent callers.
	FindOrCreate(ctx context.Context, name string) (*domain.Tag, error)

	// GetByID returns the tag. Returns ErrTagNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error)

	// SyncTaskTags makes tagIDs the exact tag set of the task.
	SyncTaskTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error

	// DetachAll removes every tag link of the task and returns the detached tag IDs.
	DetachAll(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)

	// DeleteOrphans deletes those of tagIDs that no task references any more.
	DeleteOrphans(ctx context.Context, tagIDs []uuid.UUID) (int64, error)

	// ListForUser returns tags attached to the user's live tasks, ordered by name.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error)

	// SearchForUser returns at most limit of the user's tags whose name contains
	// query, case-insensitively.
	SearchForUser(ctx context.Context, userID uuid.UUID, query string, limit int) ([]domain.Tag, error)

	// UsedByUser reports whether any of the user's live tasks references the tag.
	UsedByUser(ctx context.Context, tagID, userID uuid.UUID) (bool, error)

	// UsedByOtherUsers reports whether any task not owned by userID references the tag.
	UsedByOtherUsers(ctx context.Context, tagID, userID uuid.UUID) (bool, error)

	// Rename changes the tag's name.
	// Returns ErrTagNotFound or ErrTagNameExists.
	Rename(ctx context.Context, tag *domain.Tag) error

	// Delete removes the tag and its task links. Returns ErrTagNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a TagStore that runs its queries on tx.
	WithTx(tx *sql.Tx) TagStore
}
