package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/service"
)

// maxMultipartMemory is how much of a multipart body is held in memory
// before file parts spill to temporary files.
const maxMultipartMemory = 32 << 20

// actorFromRequest returns the authenticated user placed in the context by the
// auth middleware. It writes a 401 and returns false when there is none.
func actorFromRequest(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*domain.User, bool) {
	user := shared.UserFromContext(r.Context())
	if user == nil || user.ID == uuid.Nil {
		log.Warn("user not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthenticated.")
		return nil, false
	}
	return user, true
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// actorAndPathUUID combines actorFromRequest and getPathUUID, writing the
// error response when either fails.
func actorAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (*domain.User, uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	actor, ok := actorFromRequest(w, r, log)
	if !ok {
		return nil, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName, slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}
	return actor, id, true
}

// decodeAndValidate decodes a JSON body into req and runs struct validation.
func decodeAndValidate(r *http.Request, req any) error {
	if err := shared.DecodeJSON(r, req); err != nil {
		return domain.NewValidationError("", "Invalid request format", domain.ErrValidation)
	}
	return shared.ValidateRequest(req)
}

// listParamsFromQuery copies the raw list filters from the query string.
// per_page is also accepted as perPage.
func listParamsFromQuery(r *http.Request) domain.TaskListParams {
	q := r.URL.Query()
	perPage := q.Get("per_page")
	if perPage == "" {
		perPage = q.Get("perPage")
	}
	return domain.TaskListParams{
		Search:        q.Get("search"),
		Priority:      q.Get("priority"),
		Status:        q.Get("status"),
		Archived:      q.Get("archived"),
		DateFrom:      q.Get("dateFrom"),
		DateTo:        q.Get("dateTo"),
		SortBy:        q.Get("sortBy"),
		SortDirection: q.Get("sortDirection"),
		Page:          q.Get("page"),
		PerPage:       perPage,
	}
}

// taskInputFromRequest reads a task create or update from a multipart form or
// a JSON body. The returned cleanup closes any opened upload parts and must be
// called once the service has returned.
func taskInputFromRequest(r *http.Request) (service.TaskInput, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		return taskInputFromForm(r)
	default:
		var req TaskRequest
		if err := shared.DecodeJSON(r, &req); err != nil {
			return service.TaskInput{}, noop, domain.NewValidationError("", "Invalid request format", domain.ErrValidation)
		}
		in, err := taskInputFromJSON(req)
		return in, noop, err
	}
}

func taskInputFromJSON(req TaskRequest) (service.TaskInput, error) {
	in := service.TaskInput{
		Edit: domain.TaskEdit{Title: req.Title, Description: req.Description},
	}
	var errs domain.ValidationErrors
	if req.Priority != nil {
		addFieldError(&errs, parsePriorityField(*req.Priority, &in.Edit))
	}
	if req.DueDate != nil {
		addFieldError(&errs, parseDueDateField(*req.DueDate, &in.Edit))
	}
	if req.Tags != nil {
		in.HasTags = true
		in.Tags = *req.Tags
	}
	return in, errs.OrNil()
}

func taskInputFromForm(r *http.Request) (service.TaskInput, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return service.TaskInput{}, noop, domain.NewValidationError("", "Invalid request format", domain.ErrValidation)
	}

	form := r.PostForm
	in := service.TaskInput{
		Edit: domain.TaskEdit{
			Title:       form.Get("title"),
			Description: form.Get("description"),
		},
	}

	var errs domain.ValidationErrors
	if p := form.Get("priority"); p != "" {
		addFieldError(&errs, parsePriorityField(p, &in.Edit))
	}
	if d := form.Get("due_date"); d != "" {
		addFieldError(&errs, parseDueDateField(d, &in.Edit))
	}

	for _, key := range []string{"tags", "tags[]"} {
		values, present := form[key]
		if !present {
			continue
		}
		in.HasTags = true
		for _, v := range values {
			// An empty value lets a form clear every tag.
			if v != "" {
				in.Tags = append(in.Tags, v)
			}
		}
	}

	if err := errs.OrNil(); err != nil {
		return service.TaskInput{}, noop, err
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = append(headers, r.MultipartForm.File["attachments"]...)
		headers = append(headers, r.MultipartForm.File["attachments[]"]...)
	}
	return openUploads(r, in, headers)
}

func openUploads(r *http.Request, in service.TaskInput, headers []*multipart.FileHeader) (service.TaskInput, func(), error) {
	var files []multipart.File
	cleanup := func() {
		for _, f := range files {
			_ = f.Close()
		}
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return service.TaskInput{}, func() {}, fmt.Errorf("failed to open upload %d: %w", i, err)
		}
		files = append(files, f)
		in.Uploads = append(in.Uploads, service.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}
	return in, cleanup, nil
}

func parsePriorityField(raw string, edit *domain.TaskEdit) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	p, err := domain.ParsePriority(raw)
	if err != nil {
		return domain.NewValidationError("priority", "The selected priority is invalid.", domain.ErrValidation)
	}
	edit.Priority = &p
	return nil
}

func parseDueDateField(raw string, edit *domain.TaskEdit) error {
	due, err := domain.ParseDueDate(raw)
	if err != nil {
		return err
	}
	edit.DueDate = due
	return nil
}

func addFieldError(errs *domain.ValidationErrors, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		*errs = append(*errs, ve)
	}
}
