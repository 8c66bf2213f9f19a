package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/logger"
	"github.com/phrazzld/taskly-api/internal/store"
)

// PostgresTokenStore implements store.TokenStore on the access_tokens table.
type PostgresTokenStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTokenStore creates a token store. If logger is nil, a default logger will be used.
func NewPostgresTokenStore(db store.DBTX, logger *slog.Logger) *PostgresTokenStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTokenStore{
		db:     db,
		logger: logger.With(slog.String("component", "token_store")),
	}
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// Create implements store.TokenStore.Create
func (s *PostgresTokenStore) Create(ctx context.Context, token *domain.AccessToken) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO access_tokens (id, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`, token.ID, token.UserID, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		log.Error("failed to record access token",
			slog.String("error", err.Error()),
			slog.String("user_id", token.UserID.String()))
		return MapError(err)
	}
	return nil
}

// Get implements store.TokenStore.Get
func (s *PostgresTokenStore) Get(ctx context.Context, id uuid.UUID) (*domain.AccessToken, error) {
	var token domain.AccessToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM access_tokens
		WHERE id = $1
	`, id).Scan(&token.ID, &token.UserID, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTokenNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load access token",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return &token, nil
}

// Delete implements store.TokenStore.Delete
func (s *PostgresTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrTokenNotFound)
}

// DeleteExpired implements store.TokenStore.DeleteExpired
func (s *PostgresTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, MapError(err)
	}
	return result.RowsAffected()
}

// WithTx implements store.TokenStore.WithTx
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{db: tx, logger: s.logger}
}
