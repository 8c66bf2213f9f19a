package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
)

// PostgresTagStore implements store.TagStore on the tags and task_tag tables.
type PostgresTagStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTagStore creates a tag store. If logger is nil, a default logger will be used.
func NewPostgresTagStore(db store.DBTX, logger *slog.Logger) *PostgresTagStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTagStore{
		db:     db,
		logger: logger.With(slog.String("component", "tag_store")),
	}
}

var _ store.TagStore = (*PostgresTagStore)(nil)

// FindOrCreate implements store.TagStore.FindOrCreate.
// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
func (s *PostgresTagStore) FindOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	candidate, err := domain.NewTag(name)
	if err != nil {
		return nil, err
	}

	var tag domain.Tag
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO tags (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, updated_at
	`, candidate.ID, candidate.Name, candidate.CreatedAt).Scan(
		&tag.ID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert tag", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &tag, nil
}

// GetByID implements store.TagStore.GetByID
func (s *PostgresTagStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	var tag domain.Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, updated_at FROM tags WHERE id = $1
	`, id).Scan(&tag.ID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTagNotFound
		}
		return nil, MapError(err)
	}
	return &tag, nil
}

// SyncTaskTags implements store.TagStore.SyncTaskTags
func (s *PostgresTagStore) SyncTaskTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(tagIDs) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM task_tag WHERE task_id = $1`, taskID); err != nil {
			return MapError(err)
		}
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM task_tag WHERE task_id = ? AND tag_id NOT IN (?)`, taskID, tagIDs)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		log.Error("failed to detach stale tags",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return MapError(err)
	}

	now := time.Now().UTC()
	for _, tagID := range tagIDs {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO task_tag (task_id, tag_id, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			ON CONFLICT (task_id, tag_id) DO NOTHING
		`, taskID, tagID, now)
		if err != nil {
			log.Error("failed to attach tag",
				slog.String("error", err.Error()),
				slog.String("task_id", taskID.String()),
				slog.String("tag_id", tagID.String()))
			return MapError(err)
		}
	}
	return nil
}

// DetachAll implements store.TagStore.DetachAll
func (s *PostgresTagStore) DetachAll(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `DELETE FROM task_tag WHERE task_id = $1 RETURNING tag_id`, taskID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteOrphans implements store.TagStore.DeleteOrphans
func (s *PostgresTagStore) DeleteOrphans(ctx context.Context, tagIDs []uuid.UUID) (int64, error) {
	if len(tagIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		DELETE FROM tags
		WHERE id IN (?)
		AND NOT EXISTS (SELECT 1 FROM task_tag tt WHERE tt.tag_id = tags.id)`, tagIDs)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := result.RowsAffected()
	if err == nil && n > 0 {
		logger.FromContextOrDefault(ctx, s.logger).Debug("pruned orphan tags", slog.Int64("count", n))
	}
	return n, err
}

const userTagsQuery = `
	SELECT DISTINCT tg.id, tg.name, tg.created_at, tg.updated_at
	FROM tags tg
	JOIN task_tag tt ON tt.tag_id = tg.id
	JOIN tasks t ON t.id = tt.task_id
	WHERE t.user_id = $1 AND t.deleted_at IS NULL`

// ListForUser implements store.TagStore.ListForUser
func (s *PostgresTagStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error) {
	return s.queryTags(ctx, userTagsQuery+` ORDER BY tg.name`, userID)
}

// SearchForUser implements store.TagStore.SearchForUser
func (s *PostgresTagStore) SearchForUser(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	limit int,
) ([]domain.Tag, error) {
	return s.queryTags(ctx,
		userTagsQuery+` AND tg.name ILIKE $2 ESCAPE '\' ORDER BY tg.name LIMIT $3`,
		userID, "%"+escapeLike(query)+"%", limit)
}

func (s *PostgresTagStore) queryTags(ctx context.Context, query string, args ...any) ([]domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to query tags",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tags := []domain.Tag{}
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UsedByUser implements store.TagStore.UsedByUser
func (s *PostgresTagStore) UsedByUser(ctx context.Context, tagID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM task_tag tt JOIN tasks t ON t.id = tt.task_id
			WHERE tt.tag_id = $1 AND t.user_id = $2 AND t.deleted_at IS NULL
		)`, tagID, userID)
}

// UsedByOtherUsers implements store.TagStore.UsedByOtherUsers
func (s *PostgresTagStore) UsedByOtherUsers(ctx context.Context, tagID, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM task_tag tt JOIN tasks t ON t.id = tt.task_id
			WHERE tt.tag_id = $1 AND t.user_id <> $2
		)`, tagID, userID)
}

func (s *PostgresTagStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, MapError(err)
	}
	return ok, nil
}

// Rename implements store.TagStore.Rename
func (s *PostgresTagStore) Rename(ctx context.Context, tag *domain.Tag) error {
	if err := domain.ValidateTagName("name", tag.Name); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET name = $1, updated_at = $2 WHERE id = $3
	`, tag.Name, tag.UpdatedAt, tag.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrTagNameExists
		}
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTagNotFound)
}

// Delete implements store.TagStore.Delete
func (s *PostgresTagStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTagNotFound)
}

// WithTx implements store.TagStore.WithTx
func (s *PostgresTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return &PostgresTagStore{db: tx, logger: s.logger}
}
