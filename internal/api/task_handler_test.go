package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskEnvelope struct {
	Data TaskResponse `json:"data"`
}

func sampleTask(owner uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:          uuid.New(),
		UserID:      owner,
		Title:       "T",
		Description: "D",
		Priority:    domain.PriorityHigh,
		Order:       1,
		CreatedAt:   testTime,
		UpdatedAt:   testTime,
		Tags:        []domain.Tag{{ID: uuid.New(), Name: "work"}},
	}
}

func TestTaskHandler_List(t *testing.T) {
	user := testUser()
	var got domain.TaskListParams
	tasks := &fakeTaskService{
		ListFn: func(_ context.Context, actor *domain.User, p domain.TaskListParams) (*domain.TaskPage, error) {
			assert.Equal(t, user.ID, actor.ID)
			got = p
			return &domain.TaskPage{Tasks: []*domain.Task{sampleTask(user.ID)}, Total: 21, Page: 2, PerPage: 10}, nil
		},
	}
	h := NewTaskHandler(tasks, staticURLs{}, nil)

	rr := serve(t, h.List, apiRequest{
		method:  http.MethodGet,
		pattern: "/tasks",
		path:    "/tasks?search=mil&priority=high&status=todo&archived=true&dateFrom=2025-01-01&sortBy=due_date&sortDirection=asc&page=2&perPage=10",
		user:    user,
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.TaskListParams{
		Search:        "mil",
		Priority:      "high",
		Status:        "todo",
		Archived:      "true",
		DateFrom:      "2025-01-01",
		SortBy:        "due_date",
		SortDirection: "asc",
		Page:          "2",
		PerPage:       "10",
	}, got)

	var resp struct {
		Data []TaskResponse `json:"data"`
		Meta PageMeta       `json:"meta"`
	}
	decodeResponse(t, rr, &resp)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, PageMeta{CurrentPage: 2, LastPage: 3, Total: 21, PerPage: 10}, resp.Meta)
}

func TestTaskHandler_ListValidationError(t *testing.T) {
	h := NewTaskHandler(&fakeTaskService{
		ListFn: func(context.Context, *domain.User, domain.TaskListParams) (*domain.TaskPage, error) {
			return nil, domain.NewValidationError("priority", "The selected priority is invalid.", nil)
		},
	}, staticURLs{}, nil)

	rr := serve(t, h.List, apiRequest{
		method: http.MethodGet, pattern: "/tasks", path: "/tasks?priority=banana", user: testUser(),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestTaskHandler_CreateJSON(t *testing.T) {
	user := testUser()
	var got service.TaskInput
	h := NewTaskHandler(&fakeTaskService{
		CreateFn: func(_ context.Context, _ *domain.User, in service.TaskInput) (*domain.Task, error) {
			got = in
			return sampleTask(user.ID), nil
		},
	}, staticURLs{}, nil)

	rr := serve(t, h.Create, apiRequest{
		method: http.MethodPost, pattern: "/tasks", path: "/tasks", user: user,
		body: strings.NewReader(`{"title":"T","description":"D","priority":"HIGH","due_date":"2030-01-02","tags":["work"]}`),
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "T", got.Edit.Title)
	require.NotNil(t, got.Edit.Priority)
	assert.Equal(t, domain.PriorityHigh, *got.Edit.Priority)
	require.NotNil(t, got.Edit.DueDate)
	assert.Equal(t, "2030-01-02", got.Edit.DueDate.Format(domain.DateLayout))
	assert.True(t, got.HasTags)
	assert.Equal(t, []string{"work"}, got.Tags)

	var resp taskEnvelope
	decodeResponse(t, rr, &resp)
	assert.Equal(t, 1, resp.Data.TaskOrder)
	assert.Nil(t, resp.Data.ArchivedAt)
	require.Len(t, resp.Data.Tags, 1)
	assert.Equal(t, "work", resp.Data.Tags[0].Name)
}

func TestTaskHandler_CreateMultipart(t *testing.T) {
	user := testUser()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "T"))
	require.NoError(t, mw.WriteField("description", "D"))
	require.NoError(t, mw.WriteField("tags[]", "work"))
	require.NoError(t, mw.WriteField("tags[]", "home"))
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="attachments[]"; filename="notes.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	var got service.TaskInput
	var content string
	h := NewTaskHandler(&fakeTaskService{
		CreateFn: func(_ context.Context, _ *domain.User, in service.TaskInput) (*domain.Task, error) {
			got = in
			if len(in.Uploads) == 1 {
				b, err := io.ReadAll(in.Uploads[0].Content)
				require.NoError(t, err)
				content = string(b)
			}
			return sampleTask(user.ID), nil
		},
	}, staticURLs{}, nil)

	rr := serve(t, h.Create, apiRequest{
		method: http.MethodPost, pattern: "/tasks", path: "/tasks", user: user,
		body: &body, contentType: mw.FormDataContentType(),
	})

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "T", got.Edit.Title)
	assert.Nil(t, got.Edit.Priority)
	assert.True(t, got.HasTags)
	assert.Equal(t, []string{"work", "home"}, got.Tags)
	require.Len(t, got.Uploads, 1)
	assert.Equal(t, "notes.txt", got.Uploads[0].FileName)
	assert.Equal(t, "text/plain", got.Uploads[0].ContentType)
	assert.Equal(t, int64(5), got.Uploads[0].Size)
	assert.Equal(t, "hello", content)
}

func TestTaskHandler_CreateRejectsBadFields(t *testing.T) {
	h := NewTaskHandler(&fakeTaskService{}, staticURLs{}, nil)

	rr := serve(t, h.Create, apiRequest{
		method: http.MethodPost, pattern: "/tasks", path: "/tasks", user: testUser(),
		body: strings.NewReader(`{"title":"T","description":"D","priority":"someday","due_date":"soon"}`),
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body errorBody
	decodeResponse(t, rr, &body)
	assert.Contains(t, body.Errors, "priority")
	assert.Contains(t, body.Errors, "due_date")
}

func TestTaskHandler_Update(t *testing.T) {
	user := testUser()
	task := sampleTask(user.ID)

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantHasTags bool
		wantTags    []string
	}{
		{name: "json without tags keeps them", method: http.MethodPut, body: `{"title":"T2","description":"D"}`},
		{
			name:        "json with empty tags clears them",
			method:      http.MethodPut,
			body:        `{"title":"T2","description":"D","tags":[]}`,
			wantHasTags: true,
			wantTags:    []string{},
		},
		{
			name:        "form with blank tags clears them",
			method:      http.MethodPost,
			body:        "title=T2&description=D&tags=",
			contentType: "application/x-www-form-urlencoded",
			wantHasTags: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.TaskInput
			var gotID uuid.UUID
			h := NewTaskHandler(&fakeTaskService{
				UpdateFn: func(_ context.Context, _ *domain.User, id uuid.UUID, in service.TaskInput) (*domain.Task, error) {
					gotID, got = id, in
					return task, nil
				},
			}, staticURLs{}, nil)

			rr := serve(t, h.Update, apiRequest{
				method: tt.method, pattern: "/tasks/{id}", path: "/tasks/" + task.ID.String(), user: user,
				body: strings.NewReader(tt.body), contentType: tt.contentType,
			})

			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, task.ID, gotID)
			assert.Equal(t, "T2", got.Edit.Title)
			assert.Equal(t, tt.wantHasTags, got.HasTags)
			if tt.wantTags != nil {
				assert.Equal(t, tt.wantTags, got.Tags)
			} else {
				assert.Empty(t, got.Tags)
			}
		})
	}
}

func TestTaskHandler_ErrorMapping(t *testing.T) {
	user := testUser()
	id := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"not owner", domain.CanViewTask(user, &domain.Task{UserID: uuid.New()}).Err(), http.StatusForbidden},
		{"guest", domain.CanViewTask(&domain.User{ID: user.ID, IsGuest: true}, nil).Err(), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTaskHandler(&fakeTaskService{
				GetFn: func(context.Context, *domain.User, uuid.UUID) (*domain.Task, error) { return nil, tt.err },
			}, staticURLs{}, nil)

			rr := serve(t, h.Get, apiRequest{
				method: http.MethodGet, pattern: "/tasks/{id}", path: "/tasks/" + id.String(), user: user,
			})
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	t.Run("malformed id", func(t *testing.T) {
		h := NewTaskHandler(&fakeTaskService{}, staticURLs{}, nil)
		rr := serve(t, h.Get, apiRequest{
			method: http.MethodGet, pattern: "/tasks/{id}", path: "/tasks/not-a-uuid", user: user,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("no user in context", func(t *testing.T) {
		h := NewTaskHandler(&fakeTaskService{}, staticURLs{}, nil)
		rr := serve(t, h.Get, apiRequest{method: http.MethodGet, pattern: "/tasks/{id}", path: "/tasks/" + id.String()})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	user := testUser()
	id := uuid.New()
	var deleted uuid.UUID
	h := NewTaskHandler(&fakeTaskService{
		DeleteFn: func(_ context.Context, _ *domain.User, taskID uuid.UUID) error { deleted = taskID; return nil },
	}, staticURLs{}, nil)

	rr := serve(t, h.Delete, apiRequest{
		method: http.MethodDelete, pattern: "/tasks/{id}", path: "/tasks/" + id.String(), user: user,
	})

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Equal(t, id, deleted)
}

func TestTaskHandler_ToggleComplete(t *testing.T) {
	user := testUser()
	task := sampleTask(user.ID)
	task.CompletedAt = &testTime
	h := NewTaskHandler(&fakeTaskService{
		ToggleCompleteFn: func(context.Context, *domain.User, uuid.UUID) (*domain.Task, error) { return task, nil },
	}, staticURLs{}, nil)

	rr := serve(t, h.ToggleComplete, apiRequest{
		method: http.MethodPatch, pattern: "/tasks/complete/{id}", path: "/tasks/complete/" + task.ID.String(), user: user,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp taskEnvelope
	decodeResponse(t, rr, &resp)
	require.NotNil(t, resp.Data.CompletedAt)
	assert.True(t, resp.Data.CompletedAt.Equal(testTime))
}

func TestTaskHandler_ArchiveAndRestore(t *testing.T) {
	user := testUser()
	task := sampleTask(user.ID)

	tests := []struct {
		name    string
		handler func(h *TaskHandler) http.HandlerFunc
		want    domain.ArchiveDirection
	}{
		{"archive", func(h *TaskHandler) http.HandlerFunc { return h.Archive }, domain.ArchiveDirectionArchive},
		{"restore", func(h *TaskHandler) http.HandlerFunc { return h.Restore }, domain.ArchiveDirectionRestore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.ArchiveDirection = -1
			h := NewTaskHandler(&fakeTaskService{
				ToggleArchiveFn: func(_ context.Context, _ *domain.User, _ uuid.UUID, d domain.ArchiveDirection) (*domain.Task, error) {
					got = d
					return task, nil
				},
			}, staticURLs{}, nil)

			rr := serve(t, tt.handler(h), apiRequest{
				method: http.MethodPatch, pattern: "/tasks/x/{id}", path: "/tasks/x/" + task.ID.String(), user: user,
			})

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTaskHandler_Reorder(t *testing.T) {
	user := testUser()
	a, b := uuid.New(), uuid.New()

	t.Run("passes orders through", func(t *testing.T) {
		var got []store.TaskOrder
		h := NewTaskHandler(&fakeTaskService{
			ReorderFn: func(_ context.Context, _ *domain.User, orders []store.TaskOrder) error { got = orders; return nil },
		}, staticURLs{}, nil)

		rr := serve(t, h.Reorder, apiRequest{
			method: http.MethodPatch, pattern: "/tasks/reorder", path: "/tasks/reorder", user: user,
			body: strings.NewReader(`{"tasks":[{"id":"` + a.String() + `","order":2},{"id":"` + b.String() + `","order":0}]}`),
		})

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, []store.TaskOrder{{ID: a, Order: 2}, {ID: b, Order: 0}}, got)
	})

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty list", `{"tasks":[]}`, "tasks"},
		{"bad id", `{"tasks":[{"id":"nope","order":1}]}`, "tasks.0.id"},
		{"missing order", `{"tasks":[{"id":"` + a.String() + `"}]}`, "tasks.0.order"},
		{"negative order", `{"tasks":[{"id":"` + a.String() + `","order":-1}]}`, "tasks.0.order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTaskHandler(&fakeTaskService{}, staticURLs{}, nil)

			rr := serve(t, h.Reorder, apiRequest{
				method: http.MethodPatch, pattern: "/tasks/reorder", path: "/tasks/reorder", user: user,
				body: strings.NewReader(tt.body),
			})

			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			var body errorBody
			decodeResponse(t, rr, &body)
			assert.Contains(t, body.Errors, tt.wantField)
		})
	}
}

func TestTaskHandler_DownloadAttachment(t *testing.T) {
	user := testUser()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "blob", []byte("report body"), 0o644))

	attachment := &domain.Attachment{
		ID:        uuid.New(),
		TaskID:    uuid.New(),
		FileName:  "Q2 report.txt",
		MIMEType:  "text/plain",
		UpdatedAt: testTime,
	}

	t.Run("streams the file", func(t *testing.T) {
		h := NewTaskHandler(&fakeTaskService{
			OpenAttachmentFn: func(_ context.Context, _ *domain.User, id uuid.UUID) (*domain.Attachment, afero.File, error) {
				assert.Equal(t, attachment.ID, id)
				f, err := fs.Open("blob")
				return attachment, f, err
			},
		}, staticURLs{}, nil)

		rr := serve(t, h.DownloadAttachment, apiRequest{
			method: http.MethodGet, pattern: "/tasks/attachments/download/{id}",
			path: "/tasks/attachments/download/" + attachment.ID.String(), user: user,
		})

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "report body", rr.Body.String())
		assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Q2 report.txt"`, rr.Header().Get("Content-Disposition"))
	})

	t.Run("missing blob", func(t *testing.T) {
		h := NewTaskHandler(&fakeTaskService{
			OpenAttachmentFn: func(context.Context, *domain.User, uuid.UUID) (*domain.Attachment, afero.File, error) {
				return nil, nil, service.ErrBlobMissing
			},
		}, staticURLs{}, nil)

		rr := serve(t, h.DownloadAttachment, apiRequest{
			method: http.MethodGet, pattern: "/tasks/attachments/download/{id}",
			path: "/tasks/attachments/download/" + attachment.ID.String(), user: user,
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
