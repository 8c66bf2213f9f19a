package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the server-side record of an issued bearer token. The ID is
// the token's jti claim; deleting the record revokes the token.
type AccessToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the token is past its expiry at now.
func (t *AccessToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
