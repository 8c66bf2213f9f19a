package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for the user. The returned
	// IssuedToken carries the token ID so the caller can record it for revocation.
	GenerateToken(ctx context.Context, userID uuid.UUID) (*IssuedToken, error)

	// ValidateToken checks the signature and time claims of tokenString and
	// extracts its claims. It does not consult revocation state.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// IssuedToken is a freshly signed token and the identifiers it carries.
type IssuedToken struct {
	Token     string
	ID        uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims represents the claims extracted from a validated token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID

	// ID is the token's jti, the key of its access_tokens row.
	ID uuid.UUID

	IssuedAt  time.Time
	ExpiresAt time.Time
}
