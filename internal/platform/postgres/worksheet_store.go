package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/store"
)

// PostgresWorksheetStore implements the store.WorksheetStore interface
// using a PostgreSQL database as the storage backend.
type PostgresWorksheetStore struct {
	db     store.DBTX
	sqlDB  *sql.DB // nil when bound to a caller-managed transaction
	logger *slog.Logger
}

// Ensure PostgresWorksheetStore implements store.WorksheetStore interface
var _ store.WorksheetStore = (*PostgresWorksheetStore)(nil)

// NewPostgresWorksheetStore creates a new PostgreSQL implementation of the
// WorksheetStore interface. If logger is nil, a default logger will be used.
func NewPostgresWorksheetStore(db *sql.DB, logger *slog.Logger) *PostgresWorksheetStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresWorksheetStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "worksheet_store")),
	}
}

// WithTx implements store.WorksheetStore.WithTx
func (s *PostgresWorksheetStore) WithTx(tx *sql.Tx) store.WorksheetStore {
	return &PostgresWorksheetStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.WorksheetStore.Create
func (s *PostgresWorksheetStore) Create(ctx context.Context, ws *domain.Worksheet) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := ws.Validate(); err != nil {
		log.Warn("worksheet validation failed during create",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO worksheets (id, filename, original_filename, file_type, extracted_text, status, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		ws.ID,
		ws.Filename,
		ws.OriginalFilename,
		string(ws.FileType),
		ws.ExtractedText,
		string(ws.Status),
		ws.UploadedAt,
		ws.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, "worksheet", "", store.ErrWorksheetExists)
		}
		log.Error("failed to create worksheet",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", ws.ID.String()))
		return store.NewStoreError("worksheet", "create", "insert failed", MapError(err))
	}

	log.Info("worksheet created",
		slog.String("worksheet_id", ws.ID.String()),
		slog.String("file_type", string(ws.FileType)),
		slog.String("status", string(ws.Status)))
	return nil
}

// GetByID implements store.WorksheetStore.GetByID
func (s *PostgresWorksheetStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, filename, original_filename, file_type, extracted_text, status, uploaded_at, updated_at
		FROM worksheets
		WHERE id = $1
	`

	var ws domain.Worksheet
	var fileType, status string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ws.ID,
		&ws.Filename,
		&ws.OriginalFilename,
		&fileType,
		&ws.ExtractedText,
		&status,
		&ws.UploadedAt,
		&ws.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("worksheet not found", slog.String("worksheet_id", id.String()))
			return nil, store.ErrWorksheetNotFound
		}
		log.Error("failed to get worksheet by ID",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return nil, store.NewStoreError("worksheet", "get", "query failed", MapError(err))
	}

	ws.FileType = domain.FileType(fileType)
	ws.Status = domain.WorksheetStatus(status)
	return &ws, nil
}

// List implements store.WorksheetStore.List
func (s *PostgresWorksheetStore) List(ctx context.Context) ([]*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, filename, original_filename, file_type, status, uploaded_at, updated_at
		FROM worksheets
		ORDER BY uploaded_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to list worksheets", slog.String("error", err.Error()))
		return nil, store.NewStoreError("worksheet", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	worksheets := make([]*domain.Worksheet, 0)
	for rows.Next() {
		var ws domain.Worksheet
		var fileType, status string
		if err := rows.Scan(
			&ws.ID,
			&ws.Filename,
			&ws.OriginalFilename,
			&fileType,
			&status,
			&ws.UploadedAt,
			&ws.UpdatedAt,
		); err != nil {
			return nil, store.NewStoreError("worksheet", "list", "scan failed", err)
		}
		ws.FileType = domain.FileType(fileType)
		ws.Status = domain.WorksheetStatus(status)
		worksheets = append(worksheets, &ws)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("worksheet", "list", "row iteration failed", err)
	}
	return worksheets, nil
}

// SetStatus implements store.WorksheetStore.SetStatus
func (s *PostgresWorksheetStore) SetStatus(ctx context.Context, id uuid.UUID, status domain.WorksheetStatus) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !status.Valid() {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidWorksheetStatus)
	}

	query := `
		UPDATE worksheets
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := s.db.ExecContext(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update worksheet status",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return store.NewStoreError("worksheet", "set_status", "update failed", MapError(err))
	}
	if err := CheckRowsAffected(result, "worksheet"); err != nil {
		if IsNotFoundError(err) {
			return store.ErrWorksheetNotFound
		}
		return err
	}

	log.Debug("worksheet status updated",
		slog.String("worksheet_id", id.String()),
		slog.String("status", string(status)))
	return nil
}

// ReplaceTasks implements store.WorksheetStore.ReplaceTasks
// When the store is not bound to a transaction the delete and the inserts
// run in a new one.
func (s *PostgresWorksheetStore) ReplaceTasks(ctx context.Context, id uuid.UUID, tasks []domain.TaskRecord) error {
	if err := domain.ValidateTaskSet(tasks); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	if s.sqlDB == nil {
		return s.replaceTasks(ctx, id, tasks)
	}

	err := store.RunInTransaction(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		txStore := &PostgresWorksheetStore{db: tx, logger: s.logger}
		return txStore.replaceTasks(ctx, id, tasks)
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrInvalidEntity) {
		return fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
	}
	return err
}

func (s *PostgresWorksheetStore) replaceTasks(ctx context.Context, id uuid.UUID, tasks []domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Lock the worksheet row so concurrent replacements serialise.
	var locked uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT id FROM worksheets WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrWorksheetNotFound
		}
		return store.NewStoreError("task", "replace", "lock worksheet failed", MapError(err))
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE worksheet_id = $1`, id); err != nil {
		return store.NewStoreError("task", "replace", "delete failed", MapError(err))
	}

	query := `
		INSERT INTO tasks (id, worksheet_id, task_type, question, task_data, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	for _, t := range tasks {
		data, err := json.Marshal(t.Data)
		if err != nil {
			return fmt.Errorf("%w: encode task %d: %w", store.ErrInvalidEntity, t.OrderIndex, err)
		}
		if _, err := s.db.ExecContext(ctx, query,
			uuid.New(), id, string(t.TaskType), t.Question, data, t.OrderIndex, now,
		); err != nil {
			return store.NewStoreError("task", "replace", "insert failed", MapError(err))
		}
	}

	log.Info("worksheet tasks replaced",
		slog.String("worksheet_id", id.String()),
		slog.Int("task_count", len(tasks)))
	return nil
}

// ListTasks implements store.WorksheetStore.ListTasks
func (s *PostgresWorksheetStore) ListTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_type, question, task_data, order_index
		FROM tasks
		WHERE worksheet_id = $1
		ORDER BY order_index
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("worksheet_id", id.String()))
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]domain.TaskRecord, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "row iteration failed", err)
	}
	return tasks, nil
}

// GetTask implements store.WorksheetStore.GetTask
func (s *PostgresWorksheetStore) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, task_type, question, task_data, order_index
		FROM tasks
		WHERE id = $1
	`
	t, err := scanTask(s.db.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", taskID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}
	return &t, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.TaskRecord, error) {
	var t domain.TaskRecord
	var taskType string
	var data []byte
	if err := row.Scan(&t.ID, &taskType, &t.Question, &data, &t.OrderIndex); err != nil {
		return domain.TaskRecord{}, err
	}
	t.TaskType = domain.TaskType(taskType)
	decoded, err := domain.DecodeTaskData(t.TaskType, data)
	if err != nil {
		return domain.TaskRecord{}, fmt.Errorf("decode task data: %w", err)
	}
	t.Data = decoded
	return t, nil
}
