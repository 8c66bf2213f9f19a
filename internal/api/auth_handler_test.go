package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/service"
	"github.com/phrazzld/taskly-api/internal/service/auth"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSession(user *domain.User) *service.Session {
	return &service.Session{Token: "signed.jwt.token", ExpiresAt: testTime.Add(time.Hour), User: user}
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("creates account", func(t *testing.T) {
		var gotName, gotEmail, gotPassword string
		accounts := &fakeAccountService{
			RegisterFn: func(_ context.Context, name, email, password string) (*service.Session, error) {
				gotName, gotEmail, gotPassword = name, email, password
				return newSession(testUser()), nil
			},
		}
		h := NewAuthHandler(accounts, nil)

		rr := serve(t, h.Register, apiRequest{
			method:  http.MethodPost,
			pattern: "/register",
			path:    "/register",
			body:    strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"password123"}`),
		})

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, "Ada", gotName)
		assert.Equal(t, "ada@example.com", gotEmail)
		assert.Equal(t, "password123", gotPassword)

		var resp AuthResponse
		decodeResponse(t, rr, &resp)
		assert.Equal(t, "signed.jwt.token", resp.Token)
		assert.Equal(t, "ada@example.com", resp.User.Email)
		assert.NotContains(t, rr.Body.String(), "password")
	})

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{name: "missing fields", body: `{}`, wantFields: []string{"name", "email", "password"}},
		{name: "bad email", body: `{"name":"Ada","email":"nope","password":"password123"}`, wantFields: []string{"email"}},
		{name: "short password", body: `{"name":"Ada","email":"a@example.com","password":"short"}`, wantFields: []string{"password"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeAccountService{}, nil)

			rr := serve(t, h.Register, apiRequest{
				method: http.MethodPost, pattern: "/register", path: "/register",
				body: strings.NewReader(tt.body),
			})

			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			var body errorBody
			decodeResponse(t, rr, &body)
			for _, field := range tt.wantFields {
				assert.Contains(t, body.Errors, field)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		h := NewAuthHandler(&fakeAccountService{}, nil)
		rr := serve(t, h.Register, apiRequest{
			method: http.MethodPost, pattern: "/register", path: "/register",
			body: strings.NewReader(`{"name":`),
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("duplicate email", func(t *testing.T) {
		accounts := &fakeAccountService{
			RegisterFn: func(context.Context, string, string, string) (*service.Session, error) {
				return nil, domain.NewValidationError("email", "The email has already been taken.", store.ErrEmailExists)
			},
		}
		h := NewAuthHandler(accounts, nil)

		rr := serve(t, h.Register, apiRequest{
			method: http.MethodPost, pattern: "/register", path: "/register",
			body: strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"password123"}`),
		})

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		var body errorBody
		decodeResponse(t, rr, &body)
		assert.Equal(t, []string{"The email has already been taken."}, body.Errors["email"])
	})
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name        string
		loginErr    error
		wantStatus  int
		wantMessage string
	}{
		{name: "valid credentials", wantStatus: http.StatusOK},
		{name: "unknown email", loginErr: store.ErrUserNotFound, wantStatus: http.StatusNotFound, wantMessage: "User not found"},
		{
			name:        "wrong password",
			loginErr:    domain.ErrInvalidCredentials,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "Invalid credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testUser()
			accounts := &fakeAccountService{
				LoginFn: func(_ context.Context, email, password string) (*service.Session, error) {
					assert.Equal(t, "ada@example.com", email)
					if tt.loginErr != nil {
						return nil, tt.loginErr
					}
					return newSession(user), nil
				},
			}
			h := NewAuthHandler(accounts, nil)

			rr := serve(t, h.Login, apiRequest{
				method: http.MethodPost, pattern: "/login", path: "/login",
				body: strings.NewReader(`{"email":"ada@example.com","password":"password123"}`),
			})

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.loginErr != nil {
				var body errorBody
				decodeResponse(t, rr, &body)
				assert.Equal(t, tt.wantMessage, body.Error)
				return
			}
			var resp AuthResponse
			decodeResponse(t, rr, &resp)
			assert.Equal(t, user.ID, resp.User.ID)
		})
	}
}

func TestAuthHandler_Guest(t *testing.T) {
	guest := testUser()
	guest.IsGuest = true
	guest.Name = "Guest_AbCdEfGh"
	h := NewAuthHandler(&fakeAccountService{
		LoginAsGuestFn: func(context.Context) (*service.Session, error) { return newSession(guest), nil },
	}, nil)

	rr := serve(t, h.Guest, apiRequest{method: http.MethodPost, pattern: "/guest", path: "/guest"})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp AuthResponse
	decodeResponse(t, rr, &resp)
	assert.True(t, resp.User.IsGuest)
	assert.Equal(t, "Guest_AbCdEfGh", resp.User.Name)
}

func TestAuthHandler_Logout(t *testing.T) {
	user := testUser()
	claims := &auth.Claims{UserID: user.ID, ID: uuid.New()}

	t.Run("revokes current token", func(t *testing.T) {
		var revoked uuid.UUID
		h := NewAuthHandler(&fakeAccountService{
			LogoutFn: func(_ context.Context, id uuid.UUID) error { revoked = id; return nil },
		}, nil)

		rr := serve(t, h.Logout, apiRequest{
			method: http.MethodPost, pattern: "/logout", path: "/logout", user: user, claims: claims,
		})

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, claims.ID, revoked)
	})

	t.Run("already revoked", func(t *testing.T) {
		h := NewAuthHandler(&fakeAccountService{
			LogoutFn: func(context.Context, uuid.UUID) error { return auth.ErrRevokedToken },
		}, nil)

		rr := serve(t, h.Logout, apiRequest{
			method: http.MethodPost, pattern: "/logout", path: "/logout", user: user, claims: claims,
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("no claims", func(t *testing.T) {
		h := NewAuthHandler(&fakeAccountService{}, nil)
		rr := serve(t, h.Logout, apiRequest{method: http.MethodPost, pattern: "/logout", path: "/logout"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_CurrentUser(t *testing.T) {
	user := testUser()
	h := NewAuthHandler(&fakeAccountService{}, nil)

	rr := serve(t, h.CurrentUser, apiRequest{method: http.MethodGet, pattern: "/user", path: "/user", user: user})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data UserResponse `json:"data"`
	}
	decodeResponse(t, rr, &resp)
	assert.Equal(t, user.ID, resp.Data.ID)
	assert.Equal(t, "Ada", resp.Data.Name)
	assert.False(t, resp.Data.IsGuest)
}

func TestNewAuthHandlerPanicsWithoutService(t *testing.T) {
	assert.Panics(t, func() { NewAuthHandler(nil, nil) })
}
