package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/service"
)

// TagHandler handles tag requests.
type TagHandler struct {
	tags   service.TagService
	logger *slog.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags service.TagService, logger *slog.Logger) *TagHandler {
	if tags == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("tags cannot be nil for TagHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TagHandler{
		tags:   tags,
		logger: logger.With(slog.String("component", "tag_handler")),
	}
}

// List handles GET /tags.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	tags, err := h.tags.List(r.Context(), actor)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tags")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DataResponse{Data: tagsToResponse(tags)})
}

// Search handles GET /tags/search?query=.
func (h *TagHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	tags, err := h.tags.Search(r.Context(), actor, r.URL.Query().Get("query"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search tags")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DataResponse{Data: tagsToResponse(tags)})
}

// Create handles POST /tags.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req TagRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tag, err := h.tags.Create(r.Context(), actor, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create tag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, DataResponse{Data: tagToResponse(*tag)})
}

// Rename handles PUT /tags/{id}.
func (h *TagHandler) Rename(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	var req TagRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	tag, err := h.tags.Rename(r.Context(), actor, id, req.Name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update tag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DataResponse{Data: tagToResponse(*tag)})
}

// Delete handles DELETE /tags/{id}.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := actorAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	if err := h.tags.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete tag")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{Message: "Tag deleted successfully"})
}
