package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// Token is the bearer token for API authorization
	Token string `json:"token"`

	// ExpiresAt is when Token stops being accepted
	ExpiresAt time.Time `json:"expires_at"`

	User UserResponse `json:"user"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsGuest   bool      `json:"is_guest"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskRequest is the JSON form of a task create or update. A nil Tags means
// the field was absent, which leaves tags untouched on update.
type TaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    *string   `json:"priority"`
	DueDate     *string   `json:"due_date"`
	Tags        *[]string `json:"tags"`
}

// ReorderItem assigns a display position to one task.
type ReorderItem struct {
	ID    string `json:"id"    validate:"required,uuid"`
	Order *int   `json:"order" validate:"required,min=0"`
}

// ReorderRequest is the payload for PATCH /tasks/reorder.
type ReorderRequest struct {
	Tasks []ReorderItem `json:"tasks" validate:"required,min=1,dive"`
}

// TagRequest is the payload for tag create and rename.
type TagRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// TaskResponse is the public view of a task.
type TaskResponse struct {
	ID          uuid.UUID            `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Priority    domain.Priority      `json:"priority"`
	DueDate     *string              `json:"due_date"`
	TaskOrder   int                  `json:"task_order"`
	CompletedAt *time.Time           `json:"completed_at"`
	ArchivedAt  *time.Time           `json:"archived_at"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Tags        []TagResponse        `json:"tags"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// TagResponse is the public view of a tag.
type TagResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AttachmentResponse is the public view of an attachment.
type AttachmentResponse struct {
	ID            uuid.UUID `json:"id"`
	TaskID        uuid.UUID `json:"task_id"`
	FileName      string    `json:"file_name"`
	FileType      string    `json:"file_type"`
	MIMEType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	FormattedSize string    `json:"formatted_size"`
	URL           string    `json:"url"`
	Extension     string    `json:"extension"`
	IsImage       bool      `json:"is_image"`
	IsVideo       bool      `json:"is_video"`
	IsDocument    bool      `json:"is_document"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DataResponse wraps a single resource.
type DataResponse struct {
	Data any `json:"data"`
}

// PageMeta describes the page returned by a list endpoint.
type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
}

// ListResponse wraps one page of resources.
type ListResponse struct {
	Data any      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// URLResolver maps a stored blob path to a client-fetchable address.
type URLResolver interface {
	URL(path string) string
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		IsGuest:   u.IsGuest,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func tagToResponse(t domain.Tag) TagResponse {
	return TagResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func tagsToResponse(tags []domain.Tag) []TagResponse {
	out := make([]TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagToResponse(t))
	}
	return out
}

func attachmentToResponse(a *domain.Attachment, urls URLResolver) AttachmentResponse {
	return AttachmentResponse{
		ID:            a.ID,
		TaskID:        a.TaskID,
		FileName:      a.FileName,
		FileType:      string(a.FileKind),
		MIMEType:      a.MIMEType,
		Size:          a.Size,
		FormattedSize: a.FormattedSize(),
		URL:           urls.URL(a.FilePath),
		Extension:     a.Extension(),
		IsImage:       a.IsImage(),
		IsVideo:       a.IsVideo(),
		IsDocument:    a.IsDocument(),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func taskToResponse(t *domain.Task, urls URLResolver) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		TaskOrder:   t.Order,
		CompletedAt: t.CompletedAt,
		ArchivedAt:  t.ArchivedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Tags:        tagsToResponse(t.Tags),
		Attachments: make([]AttachmentResponse, 0, len(t.Attachments)),
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(domain.DateLayout)
		resp.DueDate = &due
	}
	for i := range t.Attachments {
		resp.Attachments = append(resp.Attachments, attachmentToResponse(&t.Attachments[i], urls))
	}
	return resp
}

func tasksToResponse(tasks []*domain.Task, urls URLResolver) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskToResponse(t, urls))
	}
	return out
}
