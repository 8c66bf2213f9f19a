package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user. The caller sets HashedPassword beforehand.
	// Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// WithTx returns a UserStore that runs its queries on tx.
	WithTx(tx *sql.Tx) UserStore
}

// TokenStore records issued access tokens so they can be revoked.
type TokenStore interface {
	// Create records an issued token.
	Create(ctx context.Context, token *domain.AccessToken) error

	// Get returns the token with the given jti.
	// Returns ErrTokenNotFound if it was never issued or has been revoked.
	Get(ctx context.Context, id uuid.UUID) (*domain.AccessToken, error)

	// Delete revokes a token. Returns ErrTokenNotFound if it is already gone.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes tokens that expired before cutoff and reports how many.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a TokenStore that runs its queries on tx.
	WithTx(tx *sql.Tx) TokenStore
}
