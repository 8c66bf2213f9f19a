package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
)

// PostgresAttachmentStore implements store.AttachmentStore.
type PostgresAttachmentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttachmentStore creates an attachment store. If logger is nil, a default logger will be used.
func NewPostgresAttachmentStore(db store.DBTX, logger *slog.Logger) *PostgresAttachmentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAttachmentStore{
		db:     db,
		logger: logger.With(slog.String("component", "attachment_store")),
	}
}

var _ store.AttachmentStore = (*PostgresAttachmentStore)(nil)

const attachmentColumns = `a.id, a.task_id, a.file_name, a.file_path, a.file_type, a.mime_type,
	a.size, a.deleted_at, a.created_at, a.updated_at`

func scanAttachment(row rowScanner) (*domain.Attachment, error) {
	var (
		a    domain.Attachment
		kind string
	)
	err := row.Scan(
		&a.ID,
		&a.TaskID,
		&a.FileName,
		&a.FilePath,
		&kind,
		&a.MIMEType,
		&a.Size,
		&a.DeletedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.FileKind = domain.FileKind(kind)
	return &a, nil
}

// Create implements store.AttachmentStore.Create
func (s *PostgresAttachmentStore) Create(ctx context.Context, a *domain.Attachment) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, task_id, file_name, file_path, file_type, mime_type,
			size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		a.ID,
		a.TaskID,
		a.FileName,
		a.FilePath,
		string(a.FileKind),
		a.MIMEType,
		a.Size,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create attachment",
			slog.String("error", err.Error()),
			slog.String("task_id", a.TaskID.String()))
		return MapError(err)
	}

	log.Debug("attachment recorded",
		slog.String("attachment_id", a.ID.String()),
		slog.String("task_id", a.TaskID.String()),
		slog.Int64("size", a.Size))
	return nil
}

// GetByID implements store.AttachmentStore.GetByID
func (s *PostgresAttachmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	a, err := scanAttachment(s.db.QueryRowContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments a
		WHERE a.id = $1 AND a.deleted_at IS NULL
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAttachmentNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get attachment",
			slog.String("error", err.Error()),
			slog.String("attachment_id", id.String()))
		return nil, MapError(err)
	}
	return a, nil
}

// ListByTask implements store.AttachmentStore.ListByTask
func (s *PostgresAttachmentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+`
		FROM attachments a
		WHERE a.task_id = $1 AND a.deleted_at IS NULL
		ORDER BY a.created_at, a.id
	`, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SoftDeleteByTask implements store.AttachmentStore.SoftDeleteByTask
func (s *PostgresAttachmentStore) SoftDeleteByTask(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attachments SET deleted_at = $1, updated_at = $1
		WHERE task_id = $2 AND deleted_at IS NULL
	`, at, taskID)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// WithTx implements store.AttachmentStore.WithTx
func (s *PostgresAttachmentStore) WithTx(tx *sql.Tx) store.AttachmentStore {
	return &PostgresAttachmentStore{db: tx, logger: s.logger}
}
