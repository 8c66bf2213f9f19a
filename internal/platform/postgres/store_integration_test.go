//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/phrazzld/taskly-api/internal/platform/postgres"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/phrazzld/taskly-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUser(t *testing.T, ctx context.Context, tx *sql.Tx) *domain.User {
	t.Helper()

	u, err := domain.NewUser("Test User", uuid.NewString()+"@example.com", "password123")
	require.NoError(t, err)
	u.HashedPassword = "$2a$10$abcdefghijklmnopqrstuv"
	require.NoError(t, postgres.NewPostgresUserStore(tx, nil).Create(ctx, u))
	return u
}

func createTestTask(t *testing.T, ctx context.Context, tx *sql.Tx, userID uuid.UUID, title string) *domain.Task {
	t.Helper()

	tasks := postgres.NewPostgresTaskStore(tx, nil)
	task, err := domain.NewTask(userID, domain.TaskEdit{Title: title, Description: "d"})
	require.NoError(t, err)
	task.Order, err = tasks.NextOrder(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, tasks.Create(ctx, task))
	return task
}

func TestUserStore_Integration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		u := createTestUser(t, ctx, tx)

		got, err := users.GetByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		dup, err := domain.NewUser("Other", u.Email, "password123")
		require.NoError(t, err)
		dup.HashedPassword = "hash"
		assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)

		_, err = users.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}

func TestTaskStore_Integration_ArchivePartitions(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(tx, nil)
		u := createTestUser(t, ctx, tx)

		first := createTestTask(t, ctx, tx, u.ID, "first")
		second := createTestTask(t, ctx, tx, u.ID, "second")
		assert.Equal(t, 1, first.Order)
		assert.Equal(t, 2, second.Order)

		second.ApplyArchive(domain.ArchiveDirectionArchive, time.Now().UTC())
		require.NoError(t, tasks.Update(ctx, second))

		live, err := tasks.List(ctx, u.ID, domain.DefaultTaskFilter())
		require.NoError(t, err)
		require.Len(t, live.Tasks, 1)
		assert.Equal(t, first.ID, live.Tasks[0].ID)

		f := domain.DefaultTaskFilter()
		f.Archived = true
		archived, err := tasks.List(ctx, u.ID, f)
		require.NoError(t, err)
		require.Len(t, archived.Tasks, 1)
		assert.Equal(t, second.ID, archived.Tasks[0].ID)

		found, err := tasks.FindArchivedBefore(ctx, time.Now().UTC().Add(time.Minute), 10)
		require.NoError(t, err)
		assert.NotEmpty(t, found)
	})
}

func TestTagStore_Integration_SyncAndPrune(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tags := postgres.NewPostgresTagStore(tx, nil)
		tasks := postgres.NewPostgresTaskStore(tx, nil)
		alice := createTestUser(t, ctx, tx)
		bob := createTestUser(t, ctx, tx)

		name := "tag-" + uuid.NewString()[:8]
		x, err := tags.FindOrCreate(ctx, name)
		require.NoError(t, err)
		again, err := tags.FindOrCreate(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, x.ID, again.ID)

		y, err := tags.FindOrCreate(ctx, name+"-y")
		require.NoError(t, err)

		task := createTestTask(t, ctx, tx, alice.ID, "tagged")
		require.NoError(t, tags.SyncTaskTags(ctx, task.ID, []uuid.UUID{x.ID, y.ID}))
		require.NoError(t, tags.SyncTaskTags(ctx, task.ID, []uuid.UUID{y.ID}))

		loaded, err := tasks.GetByID(ctx, task.ID)
		require.NoError(t, err)
		require.Len(t, loaded.Tags, 1)
		assert.Equal(t, y.ID, loaded.Tags[0].ID)

		bobTask := createTestTask(t, ctx, tx, bob.ID, "shared")
		require.NoError(t, tags.SyncTaskTags(ctx, bobTask.ID, []uuid.UUID{y.ID}))

		used, err := tags.UsedByOtherUsers(ctx, y.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, used)

		detached, err := tags.DetachAll(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{y.ID}, detached)

		pruned, err := tags.DeleteOrphans(ctx, []uuid.UUID{x.ID, y.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), pruned, "only the unreferenced tag is removed")

		_, err = tags.GetByID(ctx, y.ID)
		assert.NoError(t, err)
	})
}
