package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/worksheetgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	rowsAffected int64
	err          error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }

func (r fakeResult) RowsAffected() (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.rowsAffected, nil
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "no rows", err: sql.ErrNoRows, expected: store.ErrNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, expected: store.ErrDuplicate},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_worksheet_id_fkey"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "check violation",
			err:      &pgconn.PgError{Code: checkViolationCode, ConstraintName: "tasks_task_type_check"},
			expected: store.ErrInvalidEntity,
		},
		{
			name:     "not null violation",
			err:      &pgconn.PgError{Code: notNullViolationCode, ColumnName: "question"},
			expected: store.ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tt.err), tt.expected)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("unmapped error passes through", func(t *testing.T) {
		orig := errors.New("connection reset")
		assert.Same(t, orig, MapError(orig))
	})

	t.Run("check violation names constraint", func(t *testing.T) {
		err := MapError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "worksheets_status_check"})
		assert.Contains(t, err.Error(), "worksheets_status_check")
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: uniqueViolationCode}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolationCode})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: foreignKeyViolationCode}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrWorksheetNotFound))
	assert.True(t, IsNotFoundError(fmt.Errorf("wrapped: %w", store.ErrNotFound)))
	assert.False(t, IsNotFoundError(errors.New("other")))
	assert.False(t, IsNotFoundError(nil))
}

func TestCheckRowsAffected(t *testing.T) {
	tests := []struct {
		name        string
		result      sql.Result
		entity      string
		wantErr     error
		wantMessage string
	}{
		{name: "one row", result: fakeResult{rowsAffected: 1}},
		{name: "no rows named", result: fakeResult{}, entity: "worksheet", wantErr: store.ErrNotFound, wantMessage: "worksheet not found"},
		{name: "no rows unnamed", result: fakeResult{}, wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRowsAffected(tt.result, tt.entity)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMessage != "" {
				assert.Contains(t, err.Error(), tt.wantMessage)
			}
		})
	}

	t.Run("rows affected error", func(t *testing.T) {
		err := CheckRowsAffected(fakeResult{err: errors.New("driver")}, "worksheet")
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("nil result", func(t *testing.T) {
		assert.Error(t, CheckRowsAffected(nil, "worksheet"))
	})
}

func TestMapUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "worksheets_pkey"}

	t.Run("specific error", func(t *testing.T) {
		err := MapUniqueViolation(unique, "worksheet", "", store.ErrWorksheetExists)
		assert.ErrorIs(t, err, store.ErrWorksheetExists)
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("entity name", func(t *testing.T) {
		err := MapUniqueViolation(unique, "worksheet", "", nil)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.Contains(t, err.Error(), "worksheet already exists")
	})

	t.Run("constraint name", func(t *testing.T) {
		err := MapUniqueViolation(unique, "", "tasks_worksheet_id_order_index_key", nil)
		assert.Contains(t, err.Error(), "duplicate value for constraint: tasks_worksheet_id_order_index_key")
	})

	t.Run("no details", func(t *testing.T) {
		err := MapUniqueViolation(unique, "", "", nil)
		assert.Contains(t, err.Error(), "duplicate entry")
	})

	t.Run("other error unchanged", func(t *testing.T) {
		orig := errors.New("other")
		assert.Same(t, orig, MapUniqueViolation(orig, "worksheet", "", store.ErrWorksheetExists))
	})
}
