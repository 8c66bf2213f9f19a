package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockTokenStore is a mock of store.TokenStore for use with testify/mock
type TestifyMockTokenStore struct {
	mock.Mock
}

var _ store.TokenStore = (*TestifyMockTokenStore)(nil)

// Create is a mock implementation of store.TokenStore.Create
func (m *TestifyMockTokenStore) Create(ctx context.Context, token *domain.AccessToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// Get is a mock implementation of store.TokenStore.Get
func (m *TestifyMockTokenStore) Get(ctx context.Context, id uuid.UUID) (*domain.AccessToken, error) {
	args := m.Called(ctx, id)
	if token, ok := args.Get(0).(*domain.AccessToken); ok {
		return token, args.Error(1)
	}
	return nil, args.Error(1)
}

// Delete is a mock implementation of store.TokenStore.Delete
func (m *TestifyMockTokenStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DeleteExpired is a mock implementation of store.TokenStore.DeleteExpired
func (m *TestifyMockTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// WithTx returns the same mock so expectations carry into transactions.
func (m *TestifyMockTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return m
}
