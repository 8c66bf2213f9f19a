package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskly-api/internal/api/shared"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/service"
)

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	accounts service.AccountService
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(accounts service.AccountService, logger *slog.Logger) *AuthHandler {
	if accounts == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("accounts cannot be nil for AuthHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		accounts: accounts,
		logger:   logger.With(slog.String("component", "auth_handler")),
	}
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	session, err := h.accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to register user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	session, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// Guest handles POST /guest by creating a disposable guest account.
func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	session, err := h.accounts.LoginAsGuest(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create guest user")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).
		Info("guest user created", slog.String("user_id", session.User.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// Logout handles POST /logout by revoking the token used for this request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := shared.ClaimsFromContext(r.Context())
	if claims == nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	if err := h.accounts.Logout(r.Context(), claims.ID); err != nil {
		HandleAPIError(w, r, err, "Failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser handles GET /user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	user, ok := actorFromRequest(w, r, log)
	if !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, DataResponse{Data: userToResponse(user)})
}

func sessionToResponse(s *service.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      userToResponse(s.User),
	}
}
