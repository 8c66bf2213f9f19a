package mocks

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/store"
)

// MockAttachmentStore implements store.AttachmentStore for testing. Unset
// function fields fall back to an in-memory map.
type MockAttachmentStore struct {
	CreateFn           func(ctx context.Context, attachment *domain.Attachment) error
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Attachment, error)
	ListByTaskFn       func(ctx context.Context, taskID uuid.UUID) ([]domain.Attachment, error)
	SoftDeleteByTaskFn func(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error)

	Attachments map[uuid.UUID]*domain.Attachment
}

var _ store.AttachmentStore = (*MockAttachmentStore)(nil)

// NewMockAttachmentStore creates a new mock store with initialized defaults
func NewMockAttachmentStore() *MockAttachmentStore {
	return &MockAttachmentStore{Attachments: make(map[uuid.UUID]*domain.Attachment)}
}

// Create implements store.AttachmentStore
func (m *MockAttachmentStore) Create(ctx context.Context, a *domain.Attachment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	m.Attachments[a.ID] = a
	return nil
}

// GetByID implements store.AttachmentStore
func (m *MockAttachmentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	a, ok := m.Attachments[id]
	if !ok || a.DeletedAt != nil {
		return nil, store.ErrAttachmentNotFound
	}
	return a, nil
}

// ListByTask implements store.AttachmentStore
func (m *MockAttachmentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]domain.Attachment, error) {
	if m.ListByTaskFn != nil {
		return m.ListByTaskFn(ctx, taskID)
	}
	out := []domain.Attachment{}
	for _, a := range m.Attachments {
		if a.TaskID == taskID && a.DeletedAt == nil {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// SoftDeleteByTask implements store.AttachmentStore
func (m *MockAttachmentStore) SoftDeleteByTask(ctx context.Context, taskID uuid.UUID, at time.Time) (int64, error) {
	if m.SoftDeleteByTaskFn != nil {
		return m.SoftDeleteByTaskFn(ctx, taskID, at)
	}
	var n int64
	for _, a := range m.Attachments {
		if a.TaskID == taskID && a.DeletedAt == nil {
			a.DeletedAt = &at
			n++
		}
	}
	return n, nil
}

// WithTx returns the same mock; queries are not transaction-aware.
func (m *MockAttachmentStore) WithTx(tx *sql.Tx) store.AttachmentStore {
	return m
}
