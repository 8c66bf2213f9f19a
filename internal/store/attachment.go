package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// AttachmentStore defines the interface for attachment metadata. Blobs live
// in the file store; rows here only point at them.
type AttachmentStore interface {
	// Create records metadata for a stored blob.
	// Returns ErrInvalidEntity if the task does not exist.
	Create(ctx context.Context, attachment *domain.Attachment) error

	// GetByID returns a live attachment.
	// Returns ErrAttachmentNotFound if it does not exist or was soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)

	// ListByTask returns the task's live attachments, oldest first.
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Attachment, error)

	// SoftDeleteByTask marks every live attachment of the task as deleted.
	SoftDeleteByTask(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error)

	// WithTx returns an AttachmentStore that runs its queries on tx.
	WithTx(tx *sql.Tx) AttachmentStore
}
