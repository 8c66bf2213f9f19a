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

// MockTaskStore implements store.TaskStore for testing. Unset function
// fields fall back to an in-memory map of tasks.
type MockTaskStore struct {
	CreateFn             func(ctx context.Context, task *domain.Task) error
	GetByIDFn            func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	UpdateFn             func(ctx context.Context, task *domain.Task) error
	NextOrderFn          func(ctx context.Context, userID uuid.UUID) (int, error)
	UpdateOrdersFn       func(ctx context.Context, userID uuid.UUID, orders []store.TaskOrder) (int64, error)
	SoftDeleteFn         func(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	HardDeleteFn         func(ctx context.Context, id uuid.UUID) error
	ListFn               func(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) (*domain.TaskPage, error)
	FindArchivedBeforeFn func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error)

	Tasks map[uuid.UUID]*domain.Task

	// Calls records method names in call order.
	Calls []string
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates a new mock store with initialized defaults
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{Tasks: make(map[uuid.UUID]*domain.Task)}
}

// Add seeds the default implementation with a task.
func (m *MockTaskStore) Add(task *domain.Task) {
	m.Tasks[task.ID] = task
}

// Create implements store.TaskStore
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.Calls = append(m.Calls, "Create")
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	m.Tasks[task.ID] = task
	return nil
}

// GetByID implements store.TaskStore
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.Calls = append(m.Calls, "GetByID")
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	task, ok := m.Tasks[id]
	if !ok || task.IsDeleted() {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

// Update implements store.TaskStore
func (m *MockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.Calls = append(m.Calls, "Update")
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	existing, ok := m.Tasks[task.ID]
	if !ok || existing.IsDeleted() || existing.UserID != task.UserID {
		return store.ErrTaskNotFound
	}
	m.Tasks[task.ID] = task
	return nil
}

// NextOrder implements store.TaskStore
func (m *MockTaskStore) NextOrder(ctx context.Context, userID uuid.UUID) (int, error) {
	m.Calls = append(m.Calls, "NextOrder")
	if m.NextOrderFn != nil {
		return m.NextOrderFn(ctx, userID)
	}
	highest := 0
	for _, t := range m.Tasks {
		if t.UserID == userID && !t.IsDeleted() && t.Order > highest {
			highest = t.Order
		}
	}
	return highest + 1, nil
}

// UpdateOrders implements store.TaskStore
func (m *MockTaskStore) UpdateOrders(ctx context.Context, userID uuid.UUID, orders []store.TaskOrder) (int64, error) {
	m.Calls = append(m.Calls, "UpdateOrders")
	if m.UpdateOrdersFn != nil {
		return m.UpdateOrdersFn(ctx, userID, orders)
	}
	var changed int64
	for _, o := range orders {
		if t, ok := m.Tasks[o.ID]; ok && t.UserID == userID && !t.IsDeleted() {
			t.Order = o.Order
			changed++
		}
	}
	return changed, nil
}

// SoftDelete implements store.TaskStore
func (m *MockTaskStore) SoftDelete(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	m.Calls = append(m.Calls, "SoftDelete")
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, userID, id, at)
	}
	t, ok := m.Tasks[id]
	if !ok || t.UserID != userID || t.IsDeleted() {
		return store.ErrTaskNotFound
	}
	t.DeletedAt = &at
	return nil
}

// HardDelete implements store.TaskStore
func (m *MockTaskStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	m.Calls = append(m.Calls, "HardDelete")
	if m.HardDeleteFn != nil {
		return m.HardDeleteFn(ctx, id)
	}
	if _, ok := m.Tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(m.Tasks, id)
	return nil
}

// List implements store.TaskStore. The default returns the user's live tasks
// in the requested archive partition ordered by task order, ignoring the
// other filters.
func (m *MockTaskStore) List(ctx context.Context, userID uuid.UUID, filter domain.TaskFilter) (*domain.TaskPage, error) {
	m.Calls = append(m.Calls, "List")
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, filter)
	}
	var tasks []*domain.Task
	for _, t := range m.Tasks {
		if t.UserID == userID && !t.IsDeleted() && t.IsArchived() == filter.Archived {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return &domain.TaskPage{
		Tasks:   tasks,
		Total:   len(tasks),
		Page:    filter.Page,
		PerPage: filter.PerPage,
	}, nil
}

// FindArchivedBefore implements store.TaskStore
func (m *MockTaskStore) FindArchivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Task, error) {
	m.Calls = append(m.Calls, "FindArchivedBefore")
	if m.FindArchivedBeforeFn != nil {
		return m.FindArchivedBeforeFn(ctx, cutoff, limit)
	}
	var tasks []*domain.Task
	for _, t := range m.Tasks {
		if t.ArchivedAt != nil && t.ArchivedAt.Before(cutoff) {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ArchivedAt.Before(*tasks[j].ArchivedAt) })
	if len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks, nil
}

// WithTx returns the same mock; queries are not transaction-aware.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
