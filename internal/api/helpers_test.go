package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/service/auth"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// fakeAccountService implements service.AccountService with function fields.
type fakeAccountService struct {
	RegisterFn     func(ctx context.Context, name, email, password string) (*service.Session, error)
	LoginFn        func(ctx context.Context, email, password string) (*service.Session, error)
	LoginAsGuestFn func(ctx context.Context) (*service.Session, error)
	LogoutFn       func(ctx context.Context, tokenID uuid.UUID) error
}

var _ service.AccountService = (*fakeAccountService)(nil)

func (f *fakeAccountService) Register(ctx context.Context, name, email, password string) (*service.Session, error) {
	return f.RegisterFn(ctx, name, email, password)
}

func (f *fakeAccountService) Login(ctx context.Context, email, password string) (*service.Session, error) {
	return f.LoginFn(ctx, email, password)
}

func (f *fakeAccountService) LoginAsGuest(ctx context.Context) (*service.Session, error) {
	return f.LoginAsGuestFn(ctx)
}

func (f *fakeAccountService) Logout(ctx context.Context, tokenID uuid.UUID) error {
	return f.LogoutFn(ctx, tokenID)
}

func (f *fakeAccountService) Authenticate(context.Context, string) (*domain.User, *auth.Claims, error) {
	panic("Authenticate is exercised by the middleware tests")
}

func (f *fakeAccountService) PruneExpiredTokens(context.Context, time.Time) (int64, error) {
	panic("PruneExpiredTokens is not reachable from handlers")
}

// fakeTaskService implements service.TaskService with function fields.
type fakeTaskService struct {
	ListFn           func(ctx context.Context, actor *domain.User, params domain.TaskListParams) (*domain.TaskPage, error)
	GetFn            func(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error)
	CreateFn         func(ctx context.Context, actor *domain.User, in service.TaskInput) (*domain.Task, error)
	UpdateFn         func(ctx context.Context, actor *domain.User, id uuid.UUID, in service.TaskInput) (*domain.Task, error)
	ToggleCompleteFn func(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error)
	ToggleArchiveFn  func(ctx context.Context, actor *domain.User, id uuid.UUID, d domain.ArchiveDirection) (*domain.Task, error)
	DeleteFn         func(ctx context.Context, actor *domain.User, id uuid.UUID) error
	ReorderFn        func(ctx context.Context, actor *domain.User, orders []store.TaskOrder) error
	OpenAttachmentFn func(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Attachment, afero.File, error)
}

var _ service.TaskService = (*fakeTaskService)(nil)

func (f *fakeTaskService) List(ctx context.Context, actor *domain.User, p domain.TaskListParams) (*domain.TaskPage, error) {
	return f.ListFn(ctx, actor, p)
}

func (f *fakeTaskService) Get(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error) {
	return f.GetFn(ctx, actor, id)
}

func (f *fakeTaskService) Create(ctx context.Context, actor *domain.User, in service.TaskInput) (*domain.Task, error) {
	return f.CreateFn(ctx, actor, in)
}

func (f *fakeTaskService) Update(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
	in service.TaskInput,
) (*domain.Task, error) {
	return f.UpdateFn(ctx, actor, id, in)
}

func (f *fakeTaskService) ToggleComplete(ctx context.Context, actor *domain.User, id uuid.UUID) (*domain.Task, error) {
	return f.ToggleCompleteFn(ctx, actor, id)
}

func (f *fakeTaskService) ToggleArchive(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
	d domain.ArchiveDirection,
) (*domain.Task, error) {
	return f.ToggleArchiveFn(ctx, actor, id, d)
}

func (f *fakeTaskService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	return f.DeleteFn(ctx, actor, id)
}

func (f *fakeTaskService) Reorder(ctx context.Context, actor *domain.User, orders []store.TaskOrder) error {
	return f.ReorderFn(ctx, actor, orders)
}

func (f *fakeTaskService) OpenAttachment(
	ctx context.Context,
	actor *domain.User,
	id uuid.UUID,
) (*domain.Attachment, afero.File, error) {
	return f.OpenAttachmentFn(ctx, actor, id)
}

func (f *fakeTaskService) ArchivedBefore(context.Context, time.Time, int) ([]*domain.Task, error) {
	panic("ArchivedBefore is not reachable from handlers")
}

func (f *fakeTaskService) Purge(context.Context, *domain.Task) error {
	panic("Purge is not reachable from handlers")
}

// fakeTagService implements service.TagService with function fields.
type fakeTagService struct {
	ListFn   func(ctx context.Context, actor *domain.User) ([]domain.Tag, error)
	SearchFn func(ctx context.Context, actor *domain.User, query string) ([]domain.Tag, error)
	CreateFn func(ctx context.Context, actor *domain.User, name string) (*domain.Tag, error)
	RenameFn func(ctx context.Context, actor *domain.User, id uuid.UUID, name string) (*domain.Tag, error)
	DeleteFn func(ctx context.Context, actor *domain.User, id uuid.UUID) error
}

var _ service.TagService = (*fakeTagService)(nil)

func (f *fakeTagService) List(ctx context.Context, actor *domain.User) ([]domain.Tag, error) {
	return f.ListFn(ctx, actor)
}

func (f *fakeTagService) Search(ctx context.Context, actor *domain.User, query string) ([]domain.Tag, error) {
	return f.SearchFn(ctx, actor, query)
}

func (f *fakeTagService) Create(ctx context.Context, actor *domain.User, name string) (*domain.Tag, error) {
	return f.CreateFn(ctx, actor, name)
}

func (f *fakeTagService) Rename(ctx context.Context, actor *domain.User, id uuid.UUID, name string) (*domain.Tag, error) {
	return f.RenameFn(ctx, actor, id, name)
}

func (f *fakeTagService) Delete(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	return f.DeleteFn(ctx, actor, id)
}

type staticURLs struct{}

func (staticURLs) URL(path string) string { return "/storage/" + path }

var testTime = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func testUser() *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Name:      "Ada",
		Email:     "ada@example.com",
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

// apiRequest describes one request against a single handler.
type apiRequest struct {
	method      string
	pattern     string // chi route pattern
	path        string
	body        io.Reader
	contentType string
	user        *domain.User
	claims      *auth.Claims
}

// serve mounts h at req.pattern, injects the authenticated user, and records
// the response.
func serve(t *testing.T, h http.HandlerFunc, req apiRequest) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if req.user != nil {
				r = r.WithContext(shared.WithUser(r.Context(), req.user, req.claims))
			}
			next.ServeHTTP(w, r)
		})
	})
	router.Method(req.method, req.pattern, h)

	httpReq := httptest.NewRequest(req.method, req.path, req.body)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	} else if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httpReq)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

// errorBody is the decoded form of shared.ErrorResponse.
type errorBody struct {
	Error  string              `json:"error"`
	Errors map[string][]string `json:"errors"`
}
