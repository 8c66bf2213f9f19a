package mocks

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/store"
)

// MockTagStore implements store.TagStore for testing. Unset function fields
// fall back to an in-memory tag table and task-tag link table. Per-user
// queries default to every tag, since the mock does not know task owners.
type MockTagStore struct {
	FindOrCreateFn     func(ctx context.Context, name string) (*domain.Tag, error)
	GetByIDFn          func(ctx context.Context, id uuid.UUID) (*domain.Tag, error)
	SyncTaskTagsFn     func(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error
	DetachAllFn        func(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	DeleteOrphansFn    func(ctx context.Context, tagIDs []uuid.UUID) (int64, error)
	ListForUserFn      func(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error)
	SearchForUserFn    func(ctx context.Context, userID uuid.UUID, query string, limit int) ([]domain.Tag, error)
	UsedByUserFn       func(ctx context.Context, tagID, userID uuid.UUID) (bool, error)
	UsedByOtherUsersFn func(ctx context.Context, tagID, userID uuid.UUID) (bool, error)
	RenameFn           func(ctx context.Context, tag *domain.Tag) error
	DeleteFn           func(ctx context.Context, id uuid.UUID) error

	Tags  map[uuid.UUID]*domain.Tag
	Links map[uuid.UUID][]uuid.UUID // task ID to tag IDs
}

var _ store.TagStore = (*MockTagStore)(nil)

// NewMockTagStore creates a new mock store with initialized defaults
func NewMockTagStore() *MockTagStore {
	return &MockTagStore{
		Tags:  make(map[uuid.UUID]*domain.Tag),
		Links: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Add seeds the default implementation with a tag.
func (m *MockTagStore) Add(tag *domain.Tag) {
	m.Tags[tag.ID] = tag
}

// TagNames returns the names linked to the task, sorted.
func (m *MockTagStore) TagNames(taskID uuid.UUID) []string {
	names := []string{}
	for _, id := range m.Links[taskID] {
		if tag, ok := m.Tags[id]; ok {
			names = append(names, tag.Name)
		}
	}
	sort.Strings(names)
	return names
}

// FindOrCreate implements store.TagStore
func (m *MockTagStore) FindOrCreate(ctx context.Context, name string) (*domain.Tag, error) {
	if m.FindOrCreateFn != nil {
		return m.FindOrCreateFn(ctx, name)
	}
	candidate, err := domain.NewTag(name)
	if err != nil {
		return nil, err
	}
	for _, tag := range m.Tags {
		if tag.Name == candidate.Name {
			return tag, nil
		}
	}
	m.Tags[candidate.ID] = candidate
	return candidate, nil
}

// GetByID implements store.TagStore
func (m *MockTagStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tag, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	tag, ok := m.Tags[id]
	if !ok {
		return nil, store.ErrTagNotFound
	}
	copied := *tag
	return &copied, nil
}

// SyncTaskTags implements store.TagStore
func (m *MockTagStore) SyncTaskTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	if m.SyncTaskTagsFn != nil {
		return m.SyncTaskTagsFn(ctx, taskID, tagIDs)
	}
	if len(tagIDs) == 0 {
		delete(m.Links, taskID)
		return nil
	}
	m.Links[taskID] = append([]uuid.UUID(nil), tagIDs...)
	return nil
}

// DetachAll implements store.TagStore
func (m *MockTagStore) DetachAll(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	if m.DetachAllFn != nil {
		return m.DetachAllFn(ctx, taskID)
	}
	ids := m.Links[taskID]
	delete(m.Links, taskID)
	return ids, nil
}

// DeleteOrphans implements store.TagStore
func (m *MockTagStore) DeleteOrphans(ctx context.Context, tagIDs []uuid.UUID) (int64, error) {
	if m.DeleteOrphansFn != nil {
		return m.DeleteOrphansFn(ctx, tagIDs)
	}
	var n int64
	for _, id := range tagIDs {
		if _, ok := m.Tags[id]; ok && !m.linked(id) {
			delete(m.Tags, id)
			n++
		}
	}
	return n, nil
}

func (m *MockTagStore) linked(tagID uuid.UUID) bool {
	for _, ids := range m.Links {
		for _, id := range ids {
			if id == tagID {
				return true
			}
		}
	}
	return false
}

// ListForUser implements store.TagStore
func (m *MockTagStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error) {
	if m.ListForUserFn != nil {
		return m.ListForUserFn(ctx, userID)
	}
	return m.sorted(""), nil
}

// SearchForUser implements store.TagStore
func (m *MockTagStore) SearchForUser(
	ctx context.Context,
	userID uuid.UUID,
	query string,
	limit int,
) ([]domain.Tag, error) {
	if m.SearchForUserFn != nil {
		return m.SearchForUserFn(ctx, userID, query, limit)
	}
	tags := m.sorted(strings.ToLower(query))
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

func (m *MockTagStore) sorted(contains string) []domain.Tag {
	tags := []domain.Tag{}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag.Name), contains) {
			tags = append(tags, *tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags
}

// UsedByUser implements store.TagStore. The default reports any link.
func (m *MockTagStore) UsedByUser(ctx context.Context, tagID, userID uuid.UUID) (bool, error) {
	if m.UsedByUserFn != nil {
		return m.UsedByUserFn(ctx, tagID, userID)
	}
	return m.linked(tagID), nil
}

// UsedByOtherUsers implements store.TagStore. The default reports false.
func (m *MockTagStore) UsedByOtherUsers(ctx context.Context, tagID, userID uuid.UUID) (bool, error) {
	if m.UsedByOtherUsersFn != nil {
		return m.UsedByOtherUsersFn(ctx, tagID, userID)
	}
	return false, nil
}

// Rename implements store.TagStore
func (m *MockTagStore) Rename(ctx context.Context, tag *domain.Tag) error {
	if m.RenameFn != nil {
		return m.RenameFn(ctx, tag)
	}
	if err := domain.ValidateTagName("name", tag.Name); err != nil {
		return err
	}
	if _, ok := m.Tags[tag.ID]; !ok {
		return store.ErrTagNotFound
	}
	for id, other := range m.Tags {
		if id != tag.ID && other.Name == tag.Name {
			return store.ErrTagNameExists
		}
	}
	copied := *tag
	m.Tags[tag.ID] = &copied
	return nil
}

// Delete implements store.TagStore
func (m *MockTagStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	if _, ok := m.Tags[id]; !ok {
		return store.ErrTagNotFound
	}
	delete(m.Tags, id)
	for taskID, ids := range m.Links {
		kept := ids[:0]
		for _, tagID := range ids {
			if tagID != id {
				kept = append(kept, tagID)
			}
		}
		m.Links[taskID] = kept
	}
	return nil
}

// WithTx returns the same mock; queries are not transaction-aware.
func (m *MockTagStore) WithTx(tx *sql.Tx) store.TagStore {
	return m
}
