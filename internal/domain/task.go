package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Priority ranks a task. Declaration order matters: the database enum sorts
// urgent < high < normal < low.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Priorities lists every priority in enum order.
var Priorities = []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow}

// ErrInvalidPriority is returned for a priority outside the enum.
var ErrInvalidPriority = errors.New("invalid priority")

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

// ParsePriority converts s into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

const (
	MaxTitleLength = 255
	// DateLayout is the wire and storage format for due dates.
	DateLayout = "2006-01-02"
)

// Task is a user's unit of work.
//
// ArchivedAt and DeletedAt are independent: an archived task is hidden from the
// default list but still live, while DeletedAt marks a soft delete.
type Task struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	Order       int
	CompletedAt *time.Time
	ArchivedAt  *time.Time
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Tags        []Tag
	Attachments []Attachment
}

// TaskEdit carries the caller-supplied fields for create and update.
// A nil Priority or DueDate means "not supplied".
type TaskEdit struct {
	Title       string
	Description string
	Priority    *Priority
	DueDate     *time.Time
}

// NewTask creates a task owned by userID. Priority defaults to normal.
// Order is assigned by the store.
func NewTask(userID uuid.UUID, edit TaskEdit) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       edit.Title,
		Description: edit.Description,
		Priority:    PriorityNormal,
		DueDate:     truncateDate(edit.DueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if edit.Priority != nil {
		task.Priority = *edit.Priority
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	var errs ValidationErrors

	if t.UserID == uuid.Nil {
		errs.Add("user_id", "cannot be empty")
	}
	if strings.TrimSpace(t.Title) == "" {
		errs.Add("title", "The title field is required.")
	} else if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		errs.Add("title", fmt.Sprintf("The title may not be greater than %d characters.", MaxTitleLength))
	}
	if strings.TrimSpace(t.Description) == "" {
		errs.Add("description", "The description field is required.")
	}
	if !t.Priority.Valid() {
		errs.Add("priority", "The selected priority is invalid.")
	}

	return errs.OrNil()
}

// ApplyEdit overwrites title and description and, when supplied, priority and
// due date. Omitted optional fields keep their current values.
func (t *Task) ApplyEdit(edit TaskEdit, now time.Time) error {
	next := *t
	next.Title = edit.Title
	next.Description = edit.Description
	if edit.Priority != nil {
		next.Priority = *edit.Priority
	}
	if edit.DueDate != nil {
		next.DueDate = truncateDate(edit.DueDate)
	}
	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = now.UTC()
	*t = next
	return nil
}

func (t *Task) IsCompleted() bool { return t.CompletedAt != nil }
func (t *Task) IsArchived() bool  { return t.ArchivedAt != nil }
func (t *Task) IsDeleted() bool   { return t.DeletedAt != nil }

// ToggleComplete flips completion: a completed task becomes incomplete, an
// incomplete one is completed at now.
func (t *Task) ToggleComplete(now time.Time) {
	if t.CompletedAt != nil {
		t.CompletedAt = nil
	} else {
		ts := now.UTC()
		t.CompletedAt = &ts
	}
	t.UpdatedAt = now.UTC()
}

// ArchiveDirection selects between archiving and restoring a task.
type ArchiveDirection int

const (
	ArchiveDirectionArchive ArchiveDirection = iota
	ArchiveDirectionRestore
)

func (d ArchiveDirection) String() string {
	if d == ArchiveDirectionRestore {
		return "restore"
	}
	return "archive"
}

// ApplyArchive sets ArchivedAt to now for ARCHIVE and clears it for RESTORE.
func (t *Task) ApplyArchive(direction ArchiveDirection, now time.Time) {
	if direction == ArchiveDirectionArchive {
		ts := now.UTC()
		t.ArchivedAt = &ts
	} else {
		t.ArchivedAt = nil
	}
	t.UpdatedAt = now.UTC()
}

// TagIDs returns the IDs of the tags currently loaded on the task.
func (t *Task) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.Tags))
	for _, tag := range t.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

// ParseDueDate parses a YYYY-MM-DD date. Empty input yields nil.
func ParseDueDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, NewValidationError("due_date", "The due date is not a valid date.", ErrValidation)
	}
	return &d, nil
}

// ValidateDueDate rejects dates before today in UTC.
func ValidateDueDate(d *time.Time, now time.Time) error {
	if d == nil {
		return nil
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if truncateDate(d).Before(today) {
		return NewValidationError("due_date", "The due date must be a date after or equal to today.", ErrValidation)
	}
	return nil
}

func truncateDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	u := d.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &day
}
