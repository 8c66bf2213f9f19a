package postgres_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskly-api/internal/platform/postgres"
	"github.com/phrazzld/taskly-api/internal/store"
	"github.com/stretchr/testify/assert"
)

// newPgError builds a driver error carrying the given SQLSTATE.
func newPgError(code string) *pgconn.PgError {
	return newConstraintError(code, "tasks_title_check")
}

func newConstraintError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "title",
		ConstraintName: constraint,
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "non-postgres error", err: errors.New("generic error"), expected: false},
		{name: "unique violation", err: newPgError("23505"), expected: true},
		{name: "foreign key violation", err: newPgError("23503"), expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, postgres.IsUniqueViolation(tt.err))
		})
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		result   sql.Result
		notFound error
		wantErr  bool
		errIs    error
	}{
		{name: "nil result", result: nil, wantErr: true},
		{
			name:    "zero rows falls back to generic not found",
			result:  sqlmock.NewResult(0, 0),
			wantErr: true,
			errIs:   store.ErrNotFound,
		},
		{
			name:     "zero rows uses entity error",
			result:   sqlmock.NewResult(0, 0),
			notFound: store.ErrTaskNotFound,
			wantErr:  true,
			errIs:    store.ErrTaskNotFound,
		},
		{name: "one row affected", result: sqlmock.NewResult(0, 1), notFound: store.ErrTaskNotFound},
		{
			name:    "rows affected error",
			result:  sqlmock.NewErrorResult(errors.New("rows affected error")),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := postgres.CheckRowsAffected(tt.result, tt.notFound)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	generic := errors.New("generic error")
	undefinedTable := newPgError("42P01")

	tests := []struct {
		name  string
		err   error
		errIs error
		same  bool
	}{
		{name: "no rows", err: sql.ErrNoRows, errIs: store.ErrNotFound},
		{name: "unique violation", err: newPgError("23505"), errIs: store.ErrDuplicate},
		{name: "foreign key violation", err: newPgError("23503"), errIs: store.ErrInvalidEntity},
		{name: "check constraint violation", err: newPgError("23514"), errIs: store.ErrInvalidEntity},
		{name: "not null violation", err: newPgError("23502"), errIs: store.ErrInvalidEntity},
		{
			name:  "duplicate email",
			err:   newConstraintError("23505", "users_email_lower_key"),
			errIs: store.ErrEmailExists,
		},
		{
			name:  "duplicate tag name",
			err:   newConstraintError("23505", "tags_name_key"),
			errIs: store.ErrTagNameExists,
		},
		{
			name:  "attachment for missing task",
			err:   newConstraintError("23503", "attachments_task_id_fkey"),
			errIs: store.ErrTaskNotFound,
		},
		{name: "other postgres error", err: undefinedTable, same: true},
		{name: "generic error", err: generic, same: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mapped := postgres.MapError(tt.err)
			if tt.same {
				assert.Equal(t, tt.err, mapped)
				return
			}
			assert.ErrorIs(t, mapped, tt.errIs)
		})
	}

	assert.NoError(t, postgres.MapError(nil))
}
