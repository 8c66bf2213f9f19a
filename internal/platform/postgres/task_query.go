package postgres

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskly-api/internal/domain"
)

// taskListQuery holds the pieces of a filtered task list query. Where and
// OrderBy reference the tasks table as "t"; Args are numbered from $1.
type taskListQuery struct {
	Where   string
	Args    []any
	OrderBy string
}

// buildTaskListQuery translates a normalized filter into SQL for one user's
// live tasks. Archived and non-archived tasks are never mixed.
func buildTaskListQuery(userID uuid.UUID, f domain.TaskFilter) taskListQuery {
	var q taskListQuery
	param := func(v any) string {
		q.Args = append(q.Args, v)
		return "$" + strconv.Itoa(len(q.Args))
	}

	conds := []string{
		"t.user_id = " + param(userID),
		"t.deleted_at IS NULL",
	}

	if f.Archived {
		conds = append(conds, "t.archived_at IS NOT NULL")
	} else {
		conds = append(conds, "t.archived_at IS NULL")
	}

	if f.Search != "" {
		conds = append(conds, `t.title ILIKE `+param("%"+escapeLike(f.Search)+"%")+` ESCAPE '\'`)
	}
	if f.Priority != "" {
		conds = append(conds, "t.priority = "+param(string(f.Priority)))
	}

	switch f.Status {
	case domain.StatusCompleted:
		conds = append(conds, "t.completed_at IS NOT NULL")
	case domain.StatusTodo:
		conds = append(conds, "t.completed_at IS NULL")
	}

	if f.DateFrom != nil {
		conds = append(conds, "t.due_date >= "+param(f.DateFrom.Format(domain.DateLayout)))
	}
	if f.DateTo != nil {
		conds = append(conds, "t.due_date <= "+param(f.DateTo.Format(domain.DateLayout)))
	}

	q.Where = strings.Join(conds, " AND ")
	q.OrderBy = taskOrderBy(f.SortBy, f.SortDirection)
	return q
}

// taskOrderBy only emits column names from a fixed allow-list, never caller
// input. The trailing id keeps ties in a stable order.
func taskOrderBy(field domain.SortField, direction domain.SortDirection) string {
	dir := "DESC"
	if direction == domain.SortAsc {
		dir = "ASC"
	}

	var primary string
	switch field {
	case domain.SortByDueDate:
		primary = "t.due_date " + dir + " NULLS LAST"
	case domain.SortByCompletedAt:
		primary = "t.completed_at " + dir + " NULLS LAST"
	case domain.SortByPriority:
		primary = "t.priority " + dir
	default:
		primary = "t.created_at " + dir
	}
	return primary + ", t.id ASC"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using '\' as escape.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
