package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestBuildTaskListQuery_Defaults(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	q := buildTaskListQuery(userID, domain.DefaultTaskFilter())

	assert.Equal(t, "t.user_id = $1 AND t.deleted_at IS NULL AND t.archived_at IS NULL", q.Where)
	assert.Equal(t, []any{userID}, q.Args)
	assert.Equal(t, "t.created_at DESC, t.id ASC", q.OrderBy)
}

func TestBuildTaskListQuery_ArchivedPartition(t *testing.T) {
	t.Parallel()

	f := domain.DefaultTaskFilter()
	f.Archived = true
	q := buildTaskListQuery(uuid.New(), f)

	assert.Contains(t, q.Where, "t.archived_at IS NOT NULL")
	assert.NotContains(t, q.Where, "t.archived_at IS NULL")
}

func TestBuildTaskListQuery_AllFilters(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	f := domain.DefaultTaskFilter()
	f.Search = "50%_off"
	f.Priority = domain.PriorityHigh
	f.Status = domain.StatusCompleted
	f.DateFrom = &from
	f.DateTo = &to
	f.SortBy = domain.SortByDueDate
	f.SortDirection = domain.SortAsc

	q := buildTaskListQuery(userID, f)

	assert.Equal(t,
		`t.user_id = $1 AND t.deleted_at IS NULL AND t.archived_at IS NULL`+
			` AND t.title ILIKE $2 ESCAPE '\' AND t.priority = $3`+
			` AND t.completed_at IS NOT NULL AND t.due_date >= $4 AND t.due_date <= $5`,
		q.Where)
	assert.Equal(t, []any{userID, `%50\%\_off%`, "high", "2025-06-01", "2025-06-30"}, q.Args)
	assert.Equal(t, "t.due_date ASC NULLS LAST, t.id ASC", q.OrderBy)
}

func TestBuildTaskListQuery_TodoStatus(t *testing.T) {
	t.Parallel()

	f := domain.DefaultTaskFilter()
	f.Status = domain.StatusTodo
	q := buildTaskListQuery(uuid.New(), f)

	assert.Contains(t, q.Where, "t.completed_at IS NULL")
	assert.Len(t, q.Args, 1)
}

func TestTaskOrderBy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field     domain.SortField
		direction domain.SortDirection
		expected  string
	}{
		{domain.SortByCreatedAt, domain.SortDesc, "t.created_at DESC, t.id ASC"},
		{domain.SortByCreatedAt, domain.SortAsc, "t.created_at ASC, t.id ASC"},
		{domain.SortByDueDate, domain.SortDesc, "t.due_date DESC NULLS LAST, t.id ASC"},
		{domain.SortByCompletedAt, domain.SortAsc, "t.completed_at ASC NULLS LAST, t.id ASC"},
		{domain.SortByPriority, domain.SortAsc, "t.priority ASC, t.id ASC"},
		{domain.SortField("title; DROP TABLE tasks"), domain.SortDirection("sideways"), "t.created_at DESC, t.id ASC"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.field)+"_"+string(tt.direction), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, taskOrderBy(tt.field, tt.direction))
		})
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "plain", escapeLike("plain"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, escapeLike(`c:\dir`))
}
