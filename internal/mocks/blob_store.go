package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/platform/filestore"
	"github.com/spf13/afero"
)

// MockBlobStore wraps a filestore.Store and lets tests replace individual
// operations. Deleted records every path passed to Delete.
type MockBlobStore struct {
	*filestore.Store

	SaveFn   func(ctx context.Context, taskID uuid.UUID, fileName, declaredMIME string, r io.Reader) (*filestore.StoredFile, error)
	DeleteFn func(ctx context.Context, path string) error
	OpenFn   func(path string) (afero.File, error)

	Deleted []string
}

// NewMockBlobStore creates a mock backed by an in-memory filesystem.
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{Store: filestore.New(afero.NewMemMapFs(), "/storage", nil)}
}

// Save writes through to the in-memory store unless SaveFn is set.
func (m *MockBlobStore) Save(
	ctx context.Context,
	taskID uuid.UUID,
	fileName, declaredMIME string,
	r io.Reader,
) (*filestore.StoredFile, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, taskID, fileName, declaredMIME, r)
	}
	return m.Store.Save(ctx, taskID, fileName, declaredMIME, r)
}

// Delete records path and removes it unless DeleteFn is set.
func (m *MockBlobStore) Delete(ctx context.Context, path string) error {
	m.Deleted = append(m.Deleted, path)
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, path)
	}
	return m.Store.Delete(ctx, path)
}

// Open reads from the in-memory store unless OpenFn is set.
func (m *MockBlobStore) Open(path string) (afero.File, error) {
	if m.OpenFn != nil {
		return m.OpenFn(path)
	}
	return m.Store.Open(path)
}
