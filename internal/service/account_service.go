package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/service/auth"
	"github.com/phrazzld/taskly-api/internal/store"
)

// Session is an authenticated user with a freshly issued bearer token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AccountService handles registration, login and token lifecycle.
type AccountService interface {
	// Register creates a user and signs them in.
	Register(ctx context.Context, name, email, password string) (*Session, error)

	// Login checks credentials and issues a token.
	// Returns store.ErrUserNotFound or domain.ErrInvalidCredentials.
	Login(ctx context.Context, email, password string) (*Session, error)

	// LoginAsGuest creates a throwaway guest account and signs it in.
	LoginAsGuest(ctx context.Context) (*Session, error)

	// Logout revokes the token with the given ID.
	Logout(ctx context.Context, tokenID uuid.UUID) error

	// Authenticate resolves a bearer token to its user. The token must be
	// well-formed, unexpired and not revoked.
	Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error)

	// PruneExpiredTokens deletes token records that expired before now.
	PruneExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// AccountServiceImpl implements AccountService.
type AccountServiceImpl struct {
	db       *sql.DB
	users    store.UserStore
	tokens   store.TokenStore
	jwt      auth.JWTService
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	logger   *slog.Logger
}

var _ AccountService = (*AccountServiceImpl)(nil)

// NewAccountService creates an AccountService.
func NewAccountService(
	db *sql.DB,
	users store.UserStore,
	tokens store.TokenStore,
	jwt auth.JWTService,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
) (*AccountServiceImpl, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if tokens == nil {
		return nil, domain.NewValidationError("tokens", "cannot be nil", domain.ErrValidation)
	}
	if jwt == nil {
		return nil, domain.NewValidationError("jwt", "cannot be nil", domain.ErrValidation)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	}
	if verifier == nil {
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AccountServiceImpl{
		db:       db,
		users:    users,
		tokens:   tokens,
		jwt:      jwt,
		hasher:   hasher,
		verifier: verifier,
		logger:   logger.With(slog.String("component", "account_service")),
	}, nil
}

// Register implements AccountService.Register
func (s *AccountServiceImpl) Register(ctx context.Context, name, email, password string) (*Session, error) {
	user, err := domain.NewUser(name, email, password)
	if err != nil {
		return nil, userValidationError(err)
	}
	return s.createAndSignIn(ctx, "register", user)
}

// LoginAsGuest implements AccountService.LoginAsGuest
func (s *AccountServiceImpl) LoginAsGuest(ctx context.Context) (*Session, error) {
	user, err := domain.NewGuestUser()
	if err != nil {
		return nil, NewAccountServiceError("guest", "failed to create guest user", err)
	}
	return s.createAndSignIn(ctx, "guest", user)
}

func (s *AccountServiceImpl) createAndSignIn(ctx context.Context, op string, user *domain.User) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, NewAccountServiceError(op, "failed to hash password", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	var session *Session
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		session, err = s.issue(ctx, s.tokens.WithTx(tx), user)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domain.NewValidationError("email", "The email has already been taken.", store.ErrEmailExists)
		}
		log.Error("failed to create account",
			slog.String("error", err.Error()),
			slog.String("operation", op))
		return nil, NewAccountServiceError(op, "failed to create account", err)
	}

	log.Info("account created",
		slog.String("user_id", user.ID.String()),
		slog.Bool("is_guest", user.IsGuest))
	return session, nil
}

// Login implements AccountService.Login
func (s *AccountServiceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, store.ErrUserNotFound
		}
		return nil, NewAccountServiceError("login", "failed to load user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("password mismatch", slog.String("user_id", user.ID.String()))
		return nil, domain.ErrInvalidCredentials
	}

	session, err := s.issue(ctx, s.tokens, user)
	if err != nil {
		return nil, NewAccountServiceError("login", "failed to issue token", err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))
	return session, nil
}

// issue signs a token for user and records its ID.
func (s *AccountServiceImpl) issue(ctx context.Context, tokens store.TokenStore, user *domain.User) (*Session, error) {
	issued, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	record := &domain.AccessToken{
		ID:        issued.ID,
		UserID:    user.ID,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: issued.IssuedAt,
	}
	if err := tokens.Create(ctx, record); err != nil {
		return nil, err
	}

	return &Session{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

// Logout implements AccountService.Logout
func (s *AccountServiceImpl) Logout(ctx context.Context, tokenID uuid.UUID) error {
	if err := s.tokens.Delete(ctx, tokenID); err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return auth.ErrRevokedToken
		}
		return NewAccountServiceError("logout", "failed to revoke token", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Debug("token revoked",
		slog.String("token_id", tokenID.String()))
	return nil
}

// Authenticate implements AccountService.Authenticate
func (s *AccountServiceImpl) Authenticate(ctx context.Context, token string) (*domain.User, *auth.Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, auth.ErrMissingToken
	}

	claims, err := s.jwt.ValidateToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	record, err := s.tokens.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrTokenNotFound) {
			return nil, nil, auth.ErrRevokedToken
		}
		return nil, nil, NewAccountServiceError("authenticate", "failed to load token", err)
	}
	if record.UserID != claims.UserID {
		return nil, nil, auth.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, auth.ErrInvalidToken
		}
		return nil, nil, NewAccountServiceError("authenticate", "failed to load user", err)
	}
	return user, claims, nil
}

// PruneExpiredTokens implements AccountService.PruneExpiredTokens
func (s *AccountServiceImpl) PruneExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, now)
	if err != nil {
		return 0, NewAccountServiceError("prune_tokens", "failed to delete expired tokens", err)
	}
	return n, nil
}

// userValidationError attaches the offending field to a domain user error.
func userValidationError(err error) error {
	var field, msg string
	switch {
	case errors.Is(err, domain.ErrEmptyName):
		field, msg = "name", "The name field is required."
	case errors.Is(err, domain.ErrNameTooLong):
		field, msg = "name", "The name may not be greater than 255 characters."
	case errors.Is(err, domain.ErrEmptyEmail):
		field, msg = "email", "The email field is required."
	case errors.Is(err, domain.ErrInvalidEmail):
		field, msg = "email", "The email must be a valid email address."
	case errors.Is(err, domain.ErrEmptyPassword):
		field, msg = "password", "The password field is required."
	case errors.Is(err, domain.ErrPasswordTooShort):
		field, msg = "password", "The password must be at least 8 characters."
	case errors.Is(err, domain.ErrPasswordTooLong):
		field, msg = "password", "The password may not be greater than 72 characters."
	default:
		return NewAccountServiceError("register", "invalid user", err)
	}
	return domain.NewValidationError(field, msg, domain.ErrValidation)
}
