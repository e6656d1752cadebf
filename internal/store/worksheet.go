package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
)

// WorksheetStore defines the persistence surface for worksheets and their
// generated task sets.
type WorksheetStore interface {
	// Create saves a new worksheet.
	// Returns ErrInvalidEntity if the worksheet fails validation and
	// ErrWorksheetExists if the ID is already taken.
	Create(ctx context.Context, ws *domain.Worksheet) error

	// GetByID retrieves a worksheet by its unique ID.
	// Returns ErrWorksheetNotFound if the worksheet does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)

	// List returns every worksheet, newest upload first. ExtractedText is
	// left empty.
	List(ctx context.Context) ([]*domain.Worksheet, error)

	// SetStatus updates the status of an existing worksheet.
	// Returns ErrWorksheetNotFound if the worksheet does not exist.
	SetStatus(ctx context.Context, id uuid.UUID, status domain.WorksheetStatus) error

	// ReplaceTasks deletes every task of the worksheet and inserts tasks in
	// their given order as one atomic unit.
	// Returns ErrWorksheetNotFound if the worksheet does not exist and
	// ErrInvalidEntity if the task set fails validation.
	ReplaceTasks(ctx context.Context, id uuid.UUID, tasks []domain.TaskRecord) error

	// ListTasks returns the worksheet's tasks, with their IDs, ordered by
	// order index.
	// Returns an empty slice when the worksheet has no tasks.
	ListTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error)

	// GetTask retrieves a single task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error)

	// WithTx returns a WorksheetStore that runs its statements on tx.
	WithTx(tx *sql.Tx) WorksheetStore
}
