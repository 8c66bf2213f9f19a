package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/filestore"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// TaskInput carries the fields of a create or update request.
type TaskInput struct {
	Edit domain.TaskEdit

	// Tags replaces the task's tag set when HasTags is true. On update an
	// absent tags field leaves the current tags untouched.
	Tags    []string
	HasTags bool

	// Uploads are appended to the task's attachments.
	Uploads []Upload
}

// TaskService provides task lifecycle operations for an acting user.
type TaskService interface {
	// List returns one page of the actor's tasks matching params.
	List(ctx context.Context, actor *domain.User, params domain.TaskListParams) (*domain.TaskPage, error)

	// Get returns a task the actor owns, with tags and attachments.
	Get(ctx context.Context, actor *domain.User, taskID uuid.UUID) (*domain.Task, error)

	// Create stores a new task with its tags and uploads in one transaction.
	Create(ctx context.Context, actor *domain.User, in TaskInput) (*domain.Task, error)

	// Update edits a task, optionally replacing its tags and adding uploads.
	Update(ctx context.Context, actor *domain.User, taskID uuid.UUID, in TaskInput) (*domain.Task, error)

	// ToggleComplete flips the task between completed and not completed.
	ToggleComplete(ctx context.Context, actor *domain.User, taskID uuid.UUID) (*domain.Task, error)

	// ToggleArchive archives or restores a task.
	ToggleArchive(
		ctx context.Context,
		actor *domain.User,
		taskID uuid.UUID,
		direction domain.ArchiveDirection,
	) (*domain.Task, error)

	// Delete soft-deletes a task and its attachments, detaches its tags and
	// removes their blobs.
	Delete(ctx context.Context, actor *domain.User, taskID uuid.UUID) error

	// Reorder sets display order on the actor's tasks. Entries for tasks the
	// actor does not own are ignored.
	Reorder(ctx context.Context, actor *domain.User, orders []store.TaskOrder) error

	// OpenAttachment returns an attachment on one of the actor's tasks and its
	// contents. The caller closes the file.
	OpenAttachment(ctx context.Context, actor *domain.User, attachmentID uuid.UUID) (*domain.Attachment, afero.File, error)

	// ArchivedBefore lists tasks archived before cutoff, deleted or not.
	ArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error)

	// Purge permanently removes a task with the same cleanup as Delete.
	Purge(ctx context.Context, task *domain.Task) error
}

// TaskServiceImpl implements TaskService.
type TaskServiceImpl struct {
	db             *sql.DB
	tasks          store.TaskStore
	tags           store.TagStore
	attachments    store.AttachmentStore
	blobs          BlobStore
	maxUploadBytes int64
	now            func() time.Time
	logger         *slog.Logger
}

var _ TaskService = (*TaskServiceImpl)(nil)

// NewTaskService creates a TaskService. maxUploadBytes <= 0 uses
// domain.MaxAttachmentBytes.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	tags store.TagStore,
	attachments store.AttachmentStore,
	blobs BlobStore,
	maxUploadBytes int64,
	logger *slog.Logger,
) (*TaskServiceImpl, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if tags == nil {
		return nil, domain.NewValidationError("tags", "cannot be nil", domain.ErrValidation)
	}
	if attachments == nil {
		return nil, domain.NewValidationError("attachments", "cannot be nil", domain.ErrValidation)
	}
	if blobs == nil {
		return nil, domain.NewValidationError("blobs", "cannot be nil", domain.ErrValidation)
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = domain.MaxAttachmentBytes
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskServiceImpl{
		db:             db,
		tasks:          tasks,
		tags:           tags,
		attachments:    attachments,
		blobs:          blobs,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		logger:         logger.With(slog.String("component", "task_service")),
	}, nil
}

// List implements TaskService.List
func (s *TaskServiceImpl) List(
	ctx context.Context,
	actor *domain.User,
	params domain.TaskListParams,
) (*domain.TaskPage, error) {
	if err := domain.CanListTasks(actor).Err(); err != nil {
		return nil, err
	}

	filter, err := domain.ParseTaskListParams(params)
	if err != nil {
		return nil, err
	}

	page, err := s.tasks.List(ctx, actor.ID, filter)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", actor.ID.String()))
		return nil, NewTaskServiceError("list", "failed to list tasks", err)
	}
	return page, nil
}

// Get implements TaskService.Get
func (s *TaskServiceImpl) Get(ctx context.Context, actor *domain.User, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.load(ctx, "get", taskID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanViewTask(actor, task).Err(); err != nil {
		return nil, err
	}
	return task, nil
}

// Create implements TaskService.Create
func (s *TaskServiceImpl) Create(ctx context.Context, actor *domain.User, in TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.CanCreateTask(actor).Err(); err != nil {
		return nil, err
	}

	now := s.now()
	tagNames, err := s.validateInput(in, now)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(actor.ID, in.Edit)
	if err != nil {
		return nil, err
	}

	var stored []string
	var created *domain.Task
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		order, err := txTasks.NextOrder(ctx, actor.ID)
		if err != nil {
			return NewTaskServiceError("create", "failed to compute task order", err)
		}
		task.Order = order

		if err := txTasks.Create(ctx, task); err != nil {
			return NewTaskServiceError("create", "failed to save task", err)
		}

		if len(tagNames) > 0 {
			if err := s.syncTags(ctx, s.tags.WithTx(tx), task.ID, tagNames); err != nil {
				return NewTaskServiceError("create", "failed to save tags", err)
			}
		}

		stored, err = s.storeUploads(ctx, s.attachments.WithTx(tx), task.ID, in.Uploads)
		if err != nil {
			return NewTaskServiceError("create", "failed to save attachments", err)
		}

		created, err = txTasks.GetByID(ctx, task.ID)
		if err != nil {
			return NewTaskServiceError("create", "failed to reload task", err)
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, stored)
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("user_id", actor.ID.String()))
		return nil, err
	}

	log.Info("task created",
		slog.String("task_id", created.ID.String()),
		slog.Int("task_order", created.Order),
		slog.Int("tag_count", len(created.Tags)),
		slog.Int("attachment_count", len(created.Attachments)))
	return created, nil
}

// Update implements TaskService.Update
func (s *TaskServiceImpl) Update(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
	in TaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.load(ctx, "update", taskID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanUpdateTask(actor, task).Err(); err != nil {
		return nil, err
	}

	now := s.now()
	tagNames, err := s.validateInput(in, now)
	if err != nil {
		return nil, err
	}
	if err := task.ApplyEdit(in.Edit, now); err != nil {
		return nil, err
	}

	var stored []string
	var updated *domain.Task
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		err := txTasks.Update(ctx, task)
		if err != nil {
			return NewTaskServiceError("update", "failed to save task", err)
		}

		if in.HasTags {
			if err := s.syncTags(ctx, s.tags.WithTx(tx), task.ID, tagNames); err != nil {
				return NewTaskServiceError("update", "failed to save tags", err)
			}
		}

		stored, err = s.storeUploads(ctx, s.attachments.WithTx(tx), task.ID, in.Uploads)
		if err != nil {
			return NewTaskServiceError("update", "failed to save attachments", err)
		}

		updated, err = txTasks.GetByID(ctx, task.ID)
		if err != nil {
			return NewTaskServiceError("update", "failed to reload task", err)
		}
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, stored)
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, err
	}

	log.Debug("task updated", slog.String("task_id", taskID.String()))
	return updated, nil
}

// ToggleComplete implements TaskService.ToggleComplete
func (s *TaskServiceImpl) ToggleComplete(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
) (*domain.Task, error) {
	task, err := s.load(ctx, "toggle_complete", taskID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanCompleteTask(actor, task).Err(); err != nil {
		return nil, err
	}

	task.ToggleComplete(s.now())
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, NewTaskServiceError("toggle_complete", "failed to save task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task completion toggled",
		slog.String("task_id", taskID.String()),
		slog.Bool("completed", task.IsCompleted()))
	return task, nil
}

// ToggleArchive implements TaskService.ToggleArchive
func (s *TaskServiceImpl) ToggleArchive(
	ctx context.Context,
	actor *domain.User,
	taskID uuid.UUID,
	direction domain.ArchiveDirection,
) (*domain.Task, error) {
	op := direction.String()

	task, err := s.load(ctx, op, taskID)
	if err != nil {
		return nil, err
	}

	decision := domain.CanArchiveTask(actor, task)
	if direction == domain.ArchiveDirectionRestore {
		decision = domain.CanRestoreTask(actor, task)
	}
	if err := decision.Err(); err != nil {
		return nil, err
	}

	task.ApplyArchive(direction, s.now())
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, NewTaskServiceError(op, "failed to save task", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task archive state changed",
		slog.String("task_id", taskID.String()),
		slog.String("direction", op))
	return task, nil
}

// Delete implements TaskService.Delete
func (s *TaskServiceImpl) Delete(ctx context.Context, actor *domain.User, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.load(ctx, "delete", taskID)
	if err != nil {
		return err
	}
	if err := domain.CanDeleteTask(actor, task).Err(); err != nil {
		return err
	}

	now := s.now().UTC()
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.tasks.WithTx(tx).SoftDelete(ctx, actor.ID, task.ID, now); err != nil {
			return NewTaskServiceError("delete", "failed to delete task", err)
		}
		if _, err := s.attachments.WithTx(tx).SoftDeleteByTask(ctx, task.ID, now); err != nil {
			return NewTaskServiceError("delete", "failed to delete attachments", err)
		}
		if err := s.releaseTags(ctx, s.tags.WithTx(tx), task.ID); err != nil {
			return NewTaskServiceError("delete", "failed to release tags", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return err
	}

	s.removeBlobs(ctx, task)
	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.Int("attachment_count", len(task.Attachments)))
	return nil
}

// Reorder implements TaskService.Reorder
func (s *TaskServiceImpl) Reorder(ctx context.Context, actor *domain.User, orders []store.TaskOrder) error {
	if err := domain.CanReorderTasks(actor).Err(); err != nil {
		return err
	}

	var errs domain.ValidationErrors
	if len(orders) == 0 {
		errs.Add("tasks", "The tasks field is required.")
	}
	for i, o := range orders {
		if o.ID == uuid.Nil {
			errs.Add(fmt.Sprintf("tasks.%d.id", i), "The id field is required.")
		}
		if o.Order < 0 {
			errs.Add(fmt.Sprintf("tasks.%d.order", i), "The order must be at least 0.")
		}
	}
	if err := errs.OrNil(); err != nil {
		return err
	}

	var changed int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		changed, err = s.tasks.WithTx(tx).UpdateOrders(ctx, actor.ID, orders)
		if err != nil {
			return NewTaskServiceError("reorder", "failed to update task order", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("tasks reordered",
		slog.Int("requested", len(orders)),
		slog.Int64("changed", changed))
	return nil
}

// OpenAttachment implements TaskService.OpenAttachment
func (s *TaskServiceImpl) OpenAttachment(
	ctx context.Context,
	actor *domain.User,
	attachmentID uuid.UUID,
) (*domain.Attachment, afero.File, error) {
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, store.ErrAttachmentNotFound
		}
		return nil, nil, NewTaskServiceError("download", "failed to load attachment", err)
	}

	task, err := s.tasks.GetByID(ctx, att.TaskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil, store.ErrAttachmentNotFound
		}
		return nil, nil, NewTaskServiceError("download", "failed to load task", err)
	}
	if err := domain.CanDownloadAttachment(actor, task).Err(); err != nil {
		return nil, nil, err
	}

	f, err := s.blobs.Open(att.FilePath)
	if err != nil {
		if errors.Is(err, filestore.ErrBlobNotFound) {
			logger.FromContextOrDefault(ctx, s.logger).Warn("attachment blob missing",
				slog.String("attachment_id", att.ID.String()))
			return nil, nil, ErrBlobMissing
		}
		return nil, nil, NewTaskServiceError("download", "failed to open attachment", err)
	}
	return att, f, nil
}

// ArchivedBefore implements TaskService.ArchivedBefore
func (s *TaskServiceImpl) ArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error) {
	tasks, err := s.tasks.FindArchivedBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, NewTaskServiceError("archived_before", "failed to find archived tasks", err)
	}
	return tasks, nil
}

// Purge implements TaskService.Purge
func (s *TaskServiceImpl) Purge(ctx context.Context, task *domain.Task) error {
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.releaseTags(ctx, s.tags.WithTx(tx), task.ID); err != nil {
			return NewTaskServiceError("purge", "failed to release tags", err)
		}
		if err := s.tasks.WithTx(tx).HardDelete(ctx, task.ID); err != nil {
			return NewTaskServiceError("purge", "failed to delete task", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeBlobs(ctx, task)
	logger.FromContextOrDefault(ctx, s.logger).Debug("task purged",
		slog.String("task_id", task.ID.String()))
	return nil
}

func (s *TaskServiceImpl) load(ctx context.Context, op string, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, NewTaskServiceError(op, "failed to load task", err)
	}
	return task, nil
}

// validateInput checks the parts of in that the domain constructors do not
// and returns the normalized tag names.
func (s *TaskServiceImpl) validateInput(in TaskInput, now time.Time) ([]string, error) {
	var errs domain.ValidationErrors
	collect := func(err error) {
		var ve *domain.ValidationError
		var ves domain.ValidationErrors
		switch {
		case errors.As(err, &ves):
			errs = append(errs, ves...)
		case errors.As(err, &ve):
			errs = append(errs, ve)
		case err != nil:
			errs.Add("input", err.Error())
		}
	}

	collect(domain.ValidateDueDate(in.Edit.DueDate, now))

	var tagNames []string
	if in.HasTags {
		names, err := domain.NormalizeTagNames(in.Tags)
		collect(err)
		tagNames = names
	}

	for i, u := range in.Uploads {
		collect(domain.ValidateUpload(fmt.Sprintf("attachments.%d", i), u.FileName, u.Size, s.maxUploadBytes))
	}

	if err := errs.OrNil(); err != nil {
		return nil, err
	}
	return tagNames, nil
}

func (s *TaskServiceImpl) syncTags(ctx context.Context, tags store.TagStore, taskID uuid.UUID, names []string) error {
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		tag, err := tags.FindOrCreate(ctx, name)
		if err != nil {
			return err
		}
		ids = append(ids, tag.ID)
	}
	return tags.SyncTaskTags(ctx, taskID, ids)
}

// releaseTags detaches every tag from the task and deletes those no other
// task references.
func (s *TaskServiceImpl) releaseTags(ctx context.Context, tags store.TagStore, taskID uuid.UUID) error {
	detached, err := tags.DetachAll(ctx, taskID)
	if err != nil {
		return err
	}
	_, err = tags.DeleteOrphans(ctx, detached)
	return err
}

// storeUploads writes each upload's blob and records its metadata. It returns
// the stored paths, including on error, so the caller can discard them.
func (s *TaskServiceImpl) storeUploads(
	ctx context.Context,
	attachments store.AttachmentStore,
	taskID uuid.UUID,
	uploads []Upload,
) ([]string, error) {
	stored := make([]string, 0, len(uploads))
	for i, u := range uploads {
		file, err := s.blobs.Save(ctx, taskID, u.FileName, u.ContentType, u.Content)
		if err != nil {
			return stored, err
		}
		stored = append(stored, file.Path)

		// The declared size is client-supplied; the stored size is authoritative.
		if file.Size > s.maxUploadBytes {
			field := fmt.Sprintf("attachments.%d", i)
			return stored, domain.ValidateUpload(field, u.FileName, file.Size, s.maxUploadBytes)
		}

		att, err := domain.NewAttachment(taskID, u.FileName, file.Path, file.MIMEType, file.Size)
		if err != nil {
			return stored, fmt.Errorf("attachment %d: %w", i, err)
		}
		if err := attachments.Create(ctx, att); err != nil {
			return stored, err
		}
	}
	return stored, nil
}

// discardBlobs removes blobs written by a transaction that did not commit.
func (s *TaskServiceImpl) discardBlobs(ctx context.Context, paths []string) {
	var errs error
	for _, p := range paths {
		errs = multierr.Append(errs, s.blobs.Delete(ctx, p))
	}
	if errs != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to discard uncommitted blobs",
			slog.String("error", errs.Error()),
			slog.Int("count", len(multierr.Errors(errs))))
	}
}

// removeBlobs deletes the blobs of a task's attachments. Failures are logged
// and never undo the database change.
func (s *TaskServiceImpl) removeBlobs(ctx context.Context, task *domain.Task) {
	var errs error
	for _, a := range task.Attachments {
		if err := s.blobs.Delete(ctx, a.FilePath); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("attachment %s: %w", a.ID, err))
		}
	}
	if errs != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to remove attachment blobs",
			slog.String("error", errs.Error()),
			slog.String("task_id", task.ID.String()),
			slog.Int("failed", len(multierr.Errors(errs))))
	}
}
