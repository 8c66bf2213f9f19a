package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskListParams_Defaults(t *testing.T) {
	f, err := ParseTaskListParams(TaskListParams{})
	require.NoError(t, err)

	assert.Equal(t, DefaultTaskFilter(), f)
	assert.Equal(t, SortByCreatedAt, f.SortBy)
	assert.Equal(t, SortDesc, f.SortDirection)
	assert.False(t, f.Archived)
	assert.Equal(t, 0, f.Offset())
}

func TestParseTaskListParams_SortFallback(t *testing.T) {
	banana, err := ParseTaskListParams(TaskListParams{SortBy: "banana", SortDirection: "sideways"})
	require.NoError(t, err)
	none, err := ParseTaskListParams(TaskListParams{})
	require.NoError(t, err)

	assert.Equal(t, none, banana)

	f, err := ParseTaskListParams(TaskListParams{SortBy: "priority", SortDirection: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, SortByPriority, f.SortBy)
	assert.Equal(t, SortAsc, f.SortDirection)
}

func TestParseTaskListParams_Clamping(t *testing.T) {
	tests := []struct {
		page, perPage         string
		wantPage, wantPerPage int
	}{
		{"", "", 1, 10},
		{"0", "0", 1, 1},
		{"-4", "-3", 1, 1},
		{"3", "1000", 3, 50},
		{"2", "1", 2, 1},
		{"abc", "xyz", 1, 1},
		{"7", "50", 7, 50},
	}

	for _, tt := range tests {
		f, err := ParseTaskListParams(TaskListParams{Page: tt.page, PerPage: tt.perPage})
		require.NoError(t, err)
		assert.Equal(t, tt.wantPage, f.Page, "page=%q", tt.page)
		assert.Equal(t, tt.wantPerPage, f.PerPage, "per_page=%q", tt.perPage)
		assert.GreaterOrEqual(t, f.PerPage, MinPerPage)
		assert.LessOrEqual(t, f.PerPage, MaxPerPage)
	}
}

func TestParseTaskListParams_Filters(t *testing.T) {
	f, err := ParseTaskListParams(TaskListParams{
		Search:   "  report ",
		Priority: "High",
		Status:   "completed",
		Archived: "true",
		DateFrom: "2030-01-01",
		DateTo:   "2030-01-31",
		Page:     "2",
		PerPage:  "5",
	})
	require.NoError(t, err)

	assert.Equal(t, "report", f.Search)
	assert.Equal(t, PriorityHigh, f.Priority)
	assert.Equal(t, StatusCompleted, f.Status)
	assert.True(t, f.Archived)
	require.NotNil(t, f.DateFrom)
	require.NotNil(t, f.DateTo)
	assert.Equal(t, "2030-01-01", f.DateFrom.Format(DateLayout))
	assert.Equal(t, 5, f.Offset())
}

func TestParseTaskListParams_IgnoredAndRejected(t *testing.T) {
	f, err := ParseTaskListParams(TaskListParams{Status: "someday", Archived: "yes"})
	require.NoError(t, err)
	assert.Equal(t, StatusAny, f.Status)
	assert.False(t, f.Archived, "only \"true\" selects the archived partition")

	_, err = ParseTaskListParams(TaskListParams{Priority: "critical"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseTaskListParams(TaskListParams{DateFrom: "yesterday", DateTo: "2030-13-40"})
	require.ErrorIs(t, err, ErrValidation)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Fields(), "dateFrom")
	assert.Contains(t, verrs.Fields(), "dateTo")
}

func TestTaskPage_LastPage(t *testing.T) {
	assert.Equal(t, 1, (&TaskPage{Total: 0, PerPage: 10}).LastPage())
	assert.Equal(t, 1, (&TaskPage{Total: 10, PerPage: 10}).LastPage())
	assert.Equal(t, 2, (&TaskPage{Total: 11, PerPage: 10}).LastPage())
	assert.Equal(t, 21, (&TaskPage{Total: 1001, PerPage: 50}).LastPage())
}
