package domain

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// SortField is a column the task list may be ordered by.
type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByDueDate     SortField = "due_date"
	SortByPriority    SortField = "priority"
	SortByCompletedAt SortField = "completed_at"
)

// SortDirection orders a task list.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// CompletionStatus filters tasks by completion.
type CompletionStatus string

const (
	StatusAny       CompletionStatus = ""
	StatusCompleted CompletionStatus = "completed"
	StatusTodo      CompletionStatus = "todo"
)

const (
	DefaultSortField     = SortByCreatedAt
	DefaultSortDirection = SortDesc
	DefaultPerPage       = 10
	MinPerPage           = 1
	MaxPerPage           = 50
)

// TaskListParams holds raw list query parameters as the client sent them.
type TaskListParams struct {
	Search        string
	Priority      string
	Status        string
	Archived      string
	DateFrom      string
	DateTo        string
	SortBy        string
	SortDirection string
	Page          string
	PerPage       string
}

// TaskFilter is the normalized form of TaskListParams. It is always applied
// to a single user's tasks.
type TaskFilter struct {
	Search        string
	Priority      Priority // empty means any
	Status        CompletionStatus
	Archived      bool
	DateFrom      *time.Time
	DateTo        *time.Time
	SortBy        SortField
	SortDirection SortDirection
	Page          int
	PerPage       int
}

// DefaultTaskFilter lists the first page of non-archived tasks, newest first.
func DefaultTaskFilter() TaskFilter {
	return TaskFilter{
		SortBy:        DefaultSortField,
		SortDirection: DefaultSortDirection,
		Page:          1,
		PerPage:       DefaultPerPage,
	}
}

// ParseTaskListParams normalizes raw parameters.
//
// Unknown sort fields and directions fall back to the defaults, paging values
// are clamped, and unknown status values are ignored. Malformed dates and
// priorities are validation errors.
func ParseTaskListParams(p TaskListParams) (TaskFilter, error) {
	f := DefaultTaskFilter()
	var errs ValidationErrors

	f.Search = strings.TrimSpace(p.Search)

	if raw := strings.TrimSpace(p.Priority); raw != "" {
		pr, err := ParsePriority(raw)
		if err != nil {
			errs.Add("priority", "The selected priority is invalid.")
		} else {
			f.Priority = pr
		}
	}

	switch CompletionStatus(strings.ToLower(strings.TrimSpace(p.Status))) {
	case StatusCompleted:
		f.Status = StatusCompleted
	case StatusTodo:
		f.Status = StatusTodo
	}

	f.Archived = strings.EqualFold(strings.TrimSpace(p.Archived), "true")

	if d, err := parseFilterDate(p.DateFrom); err != nil {
		errs.Add("dateFrom", "The date from is not a valid date.")
	} else {
		f.DateFrom = d
	}
	if d, err := parseFilterDate(p.DateTo); err != nil {
		errs.Add("dateTo", "The date to is not a valid date.")
	} else {
		f.DateTo = d
	}

	f.SortBy = ParseSortField(p.SortBy)
	f.SortDirection = ParseSortDirection(p.SortDirection)

	f.Page = ClampPage(parseLenientInt(p.Page, 1))
	f.PerPage = ClampPerPage(parseLenientInt(p.PerPage, DefaultPerPage))

	if err := errs.OrNil(); err != nil {
		return TaskFilter{}, err
	}
	return f, nil
}

// ParseSortField returns the matching field or the default for anything
// outside the allow-list.
func ParseSortField(s string) SortField {
	switch f := SortField(strings.TrimSpace(s)); f {
	case SortByCreatedAt, SortByDueDate, SortByPriority, SortByCompletedAt:
		return f
	}
	return DefaultSortField
}

// ParseSortDirection accepts asc/desc in any case and falls back to desc.
func ParseSortDirection(s string) SortDirection {
	switch d := SortDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case SortAsc, SortDesc:
		return d
	}
	return DefaultSortDirection
}

// ClampPage raises page to at least 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPerPage bounds perPage to [MinPerPage, MaxPerPage].
func ClampPerPage(perPage int) int {
	switch {
	case perPage < MinPerPage:
		return MinPerPage
	case perPage > MaxPerPage:
		return MaxPerPage
	}
	return perPage
}

// Offset is the number of rows skipped before the current page.
func (f TaskFilter) Offset() int {
	return (ClampPage(f.Page) - 1) * ClampPerPage(f.PerPage)
}

// parseLenientInt treats absent input as def and unparsable input as 0, so
// the caller's clamp decides the final value.
func parseLenientInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	return cast.ToInt(s)
}

func parseFilterDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// TaskPage is one page of a filtered task list.
type TaskPage struct {
	Tasks   []*Task
	Total   int
	Page    int
	PerPage int
}

// LastPage is ceil(Total/PerPage), never less than 1.
func (p *TaskPage) LastPage() int {
	if p.PerPage <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}
