package api

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/store"
)

// TaskHandler handles task and attachment requests.
type TaskHandler struct {
	tasks  service.TaskService
	urls   URLResolver
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, urls URLResolver, logger *slog.Logger) *TaskHandler {
	if tasks == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tasks cannot be nil for TaskHandler")
	}
	if urls == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("urls cannot be nil for TaskHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		tasks:  tasks,
		urls:   urls,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// List handles GET /tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	page, err := h.tasks.List(r.Context(), actor, listParamsFromQuery(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ListResponse{
		Data: tasksToResponse(page.Tasks, h.urls),
		Meta: PageMeta{
			CurrentPage: page.Page,
			LastPage:    page.LastPage(),
			Total:       page.Total,
			PerPage:     page.PerPage,
		},
	})
}

// Get handles GET /tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get task")
		return
	}
	h.respondTask(w, r, http.StatusOK, task)
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	in, cleanup, err := taskInputFromRequest(r)
	defer cleanup()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read task")
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.Int("attachments", len(task.Attachments)))
	h.respondTask(w, r, http.StatusCreated, task)
}

// Update handles POST and PUT /tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	in, cleanup, err := taskInputFromRequest(r)
	defer cleanup()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to read task")
		return
	}

	task, err := h.tasks.Update(r.Context(), actor, id, in)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}
	h.respondTask(w, r, http.StatusOK, task)
}

// Delete handles DELETE /tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleComplete handles PATCH /tasks/complete/{id} and /tasks/incomplete/{id}.
// Both routes flip the completion state.
func (h *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	task, err := h.tasks.ToggleComplete(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task status")
		return
	}
	h.respondTask(w, r, http.StatusOK, task)
}

// Archive handles PATCH /tasks/archive/{id}.
func (h *TaskHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.toggleArchive(w, r, domain.ArchiveDirectionArchive)
}

// Restore handles PATCH /tasks/restore/{id}.
func (h *TaskHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.toggleArchive(w, r, domain.ArchiveDirectionRestore)
}

func (h *TaskHandler) toggleArchive(w http.ResponseWriter, r *http.Request, direction domain.ArchiveDirection) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	task, err := h.tasks.ToggleArchive(r.Context(), actor, id, direction)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to "+direction.String()+" task")
		return
	}
	h.respondTask(w, r, http.StatusOK, task)
}

// Reorder handles PATCH /tasks/reorder.
func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}

	var req ReorderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	orders := make([]store.TaskOrder, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		// Both fields were checked by the validator.
		orders = append(orders, store.TaskOrder{ID: uuid.MustParse(item.ID), Order: *item.Order})
	}

	if err := h.tasks.Reorder(r.Context(), actor, orders); err != nil {
		HandleAPIError(w, r, err, "Failed to reorder tasks")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadAttachment handles GET /tasks/attachments/download/{id}.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	actor, id, ok := actorAndPathUUID(w, r, "id", log)
	if !ok {
		return
	}

	attachment, file, err := h.tasks.OpenAttachment(r.Context(), actor, id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to download attachment")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Warn("failed to close attachment", slog.String("error", err.Error()))
		}
	}()

	if attachment.MIMEType != "" {
		w.Header().Set("Content-Type", attachment.MIMEType)
	}
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": attachment.FileName}))
	http.ServeContent(w, r, attachment.FileName, attachment.UpdatedAt, file)
}

func (h *TaskHandler) respondTask(w http.ResponseWriter, r *http.Request, status int, task *domain.Task) {
	shared.RespondWithJSON(w, r, status, DataResponse{Data: taskToResponse(task, h.urls)})
}
