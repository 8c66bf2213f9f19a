package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `t.id, t.user_id, t.title, t.description, t.priority, t.due_date,
	t.task_order, t.completed_at, t.archived_at, t.deleted_at, t.created_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task     domain.Task
		priority string
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&priority,
		&task.DueDate,
		&task.Order,
		&task.CompletedAt,
		&task.ArchivedAt,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.Priority = domain.Priority(priority)
	task.Tags = []domain.Tag{}
	task.Attachments = []domain.Attachment{}
	return &task, nil
}

// nullableTime converts an optional timestamp into a driver value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateLayout)
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, user_id, title, description, priority, due_date, task_order,
			completed_at, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		string(task.Priority),
		nullableDate(task.DueDate),
		task.Order,
		nullableTime(task.CompletedAt),
		nullableTime(task.ArchivedAt),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.Int("task_order", task.Order))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = $1 AND t.deleted_at IS NULL`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	if err := s.loadRelations(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, due_date = $4,
			completed_at = $5, archived_at = $6, updated_at = $7
		WHERE id = $8 AND user_id = $9 AND deleted_at IS NULL
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		string(task.Priority),
		nullableDate(task.DueDate),
		nullableTime(task.CompletedAt),
		nullableTime(task.ArchivedAt),
		task.UpdatedAt,
		task.ID,
		task.UserID,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// NextOrder implements store.TaskStore.NextOrder
func (s *PostgresTaskStore) NextOrder(ctx context.Context, userID uuid.UUID) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(task_order), 0) + 1
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL
	`, userID).Scan(&next)
	if err != nil {
		return 0, MapError(err)
	}
	return next, nil
}

// UpdateOrders implements store.TaskStore.UpdateOrders
func (s *PostgresTaskStore) UpdateOrders(
	ctx context.Context,
	userID uuid.UUID,
	orders []store.TaskOrder,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := time.Now().UTC()

	var changed int64
	for _, o := range orders {
		result, err := s.db.ExecContext(ctx, `
			UPDATE tasks SET task_order = $1, updated_at = $2
			WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
		`, o.Order, now, o.ID, userID)
		if err != nil {
			log.Error("failed to update task order",
				slog.String("error", err.Error()),
				slog.String("task_id", o.ID.String()))
			return changed, MapError(err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return changed, err
		}
		changed += n
	}

	if skipped := int64(len(orders)) - changed; skipped > 0 {
		log.Debug("reorder skipped tasks not owned by user", slog.Int64("skipped", skipped))
	}
	return changed, nil
}

// SoftDelete implements store.TaskStore.SoftDelete
func (s *PostgresTaskStore) SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`, at, id, userID)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// HardDelete implements store.TaskStore.HardDelete
func (s *PostgresTaskStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(
	ctx context.Context,
	userID uuid.UUID,
	filter domain.TaskFilter,
) (*domain.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	filter.Page = domain.ClampPage(filter.Page)
	filter.PerPage = domain.ClampPerPage(filter.PerPage)
	q := buildTaskListQuery(userID, filter)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t WHERE `+q.Where, q.Args...).Scan(&total); err != nil {
		log.Error("failed to count tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "count failed", MapError(err))
	}

	args := append(append([]any{}, q.Args...), filter.PerPage, filter.Offset())
	query := fmt.Sprintf(
		`SELECT %s FROM tasks t WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		taskColumns, q.Where, q.OrderBy, len(q.Args)+1, len(q.Args)+2,
	)

	tasks, err := s.queryTasks(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "query failed", err)
	}

	log.Debug("listed tasks",
		slog.Int("count", len(tasks)),
		slog.Int("total", total),
		slog.Int("page", filter.Page))
	return &domain.TaskPage{
		Tasks:   tasks,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

// FindArchivedBefore implements store.TaskStore.FindArchivedBefore
func (s *PostgresTaskStore) FindArchivedBefore(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks t
		WHERE t.archived_at IS NOT NULL AND t.archived_at < $1
		ORDER BY t.archived_at, t.id
		LIMIT $2`
	return s.queryTasks(ctx, query, cutoff, limit)
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadRelations(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// loadRelations attaches tags and live attachments to tasks with one query each.
func (s *PostgresTaskStore) loadRelations(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*domain.Task, len(tasks))
	ids := make([]uuid.UUID, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	tagQuery, args, err := sqlx.In(`
		SELECT tt.task_id, tg.id, tg.name, tg.created_at, tg.updated_at
		FROM task_tag tt
		JOIN tags tg ON tg.id = tt.tag_id
		WHERE tt.task_id IN (?)
		ORDER BY tg.name, tg.id`, ids)
	if err != nil {
		return fmt.Errorf("build tag query: %w", err)
	}
	if err := s.eachRow(ctx, sqlx.Rebind(sqlx.DOLLAR, tagQuery), args, func(rows *sql.Rows) error {
		var (
			taskID uuid.UUID
			tag    domain.Tag
		)
		if err := rows.Scan(&taskID, &tag.ID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt); err != nil {
			return err
		}
		if t, ok := byID[taskID]; ok {
			t.Tags = append(t.Tags, tag)
		}
		return nil
	}); err != nil {
		return store.NewStoreError("task", "load_tags", "query failed", err)
	}

	attQuery, args, err := sqlx.In(`
		SELECT `+attachmentColumns+`
		FROM attachments a
		WHERE a.task_id IN (?) AND a.deleted_at IS NULL
		ORDER BY a.created_at, a.id`, ids)
	if err != nil {
		return fmt.Errorf("build attachment query: %w", err)
	}
	if err := s.eachRow(ctx, sqlx.Rebind(sqlx.DOLLAR, attQuery), args, func(rows *sql.Rows) error {
		a, err := scanAttachment(rows)
		if err != nil {
			return err
		}
		if t, ok := byID[a.TaskID]; ok {
			t.Attachments = append(t.Attachments, *a)
		}
		return nil
	}); err != nil {
		return store.NewStoreError("task", "load_attachments", "query failed", err)
	}

	return nil
}

func (s *PostgresTaskStore) eachRow(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

