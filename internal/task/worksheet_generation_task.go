package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/generation"
	"github.com/sethvargo/go-retry"
)

// Common errors
var (
	ErrNilWorksheetRepository = errors.New("worksheet repository cannot be nil")
	ErrNilTaskEnsurer         = errors.New("task ensurer cannot be nil")
	ErrNilLogger              = errors.New("logger cannot be nil")
	ErrEmptyWorksheetID       = errors.New("worksheet ID cannot be empty")
	ErrInvalidTaskCount       = errors.New("task count must be positive")
)

// WorksheetRepository is the slice of store.WorksheetStore the task needs.
type WorksheetRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.WorksheetStatus) error
	ReplaceTasks(ctx context.Context, id uuid.UUID, tasks []domain.TaskRecord) error
}

// TaskEnsurer produces the task set for a text, from cache or by generation.
// It is implemented by *generation.Orchestrator.
type TaskEnsurer interface {
	EnsureTasks(ctx context.Context, text string, count int) ([]domain.TaskRecord, error)
}

// RetryPolicy bounds retries of transient generation failures.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// BaseDelay is the first backoff interval; it doubles per retry.
	BaseDelay time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	return retry.WithMaxRetries(p.MaxRetries, retry.WithJitterPercent(10, retry.NewExponential(base)))
}

type worksheetGenerationPayload struct {
	WorksheetID uuid.UUID `json:"worksheet_id"`
	NumTasks    int       `json:"num_tasks"`
}

// WorksheetGenerationTask generates and persists the task set of one
// worksheet, then marks the worksheet completed. Any failure marks it failed.
type WorksheetGenerationTask struct {
	id          uuid.UUID
	worksheetID uuid.UUID
	numTasks    int
	repo        WorksheetRepository
	ensurer     TaskEnsurer
	retry       RetryPolicy
	logger      *slog.Logger
	status      atomic.Value // TaskStatus
}

// NewWorksheetGenerationTask creates a new worksheet generation task
func NewWorksheetGenerationTask(
	worksheetID uuid.UUID,
	numTasks int,
	repo WorksheetRepository,
	ensurer TaskEnsurer,
	policy RetryPolicy,
	logger *slog.Logger,
) (*WorksheetGenerationTask, error) {
	if repo == nil {
		return nil, ErrNilWorksheetRepository
	}
	if ensurer == nil {
		return nil, ErrNilTaskEnsurer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if worksheetID == uuid.Nil {
		return nil, ErrEmptyWorksheetID
	}
	if numTasks <= 0 {
		return nil, ErrInvalidTaskCount
	}

	t := &WorksheetGenerationTask{
		id:          uuid.New(),
		worksheetID: worksheetID,
		numTasks:    numTasks,
		repo:        repo,
		ensurer:     ensurer,
		retry:       policy,
		logger: logger.With(
			slog.String("task_type", TaskTypeWorksheetGeneration),
			slog.String("worksheet_id", worksheetID.String())),
	}
	t.status.Store(TaskStatusPending)
	return t, nil
}

// ID returns the task's unique identifier
func (t *WorksheetGenerationTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *WorksheetGenerationTask) Type() string {
	return TaskTypeWorksheetGeneration
}

// Payload returns the task data as a byte slice
func (t *WorksheetGenerationTask) Payload() []byte {
	data, err := json.Marshal(worksheetGenerationPayload{
		WorksheetID: t.worksheetID,
		NumTasks:    t.numTasks,
	})
	if err != nil {
		t.logger.Error("failed to marshal task payload", slog.String("error", err.Error()))
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *WorksheetGenerationTask) Status() TaskStatus {
	return t.status.Load().(TaskStatus)
}

// Execute loads the worksheet, ensures its task set with retries on
// transient generation failures, replaces the stored tasks and records the
// final worksheet status.
func (t *WorksheetGenerationTask) Execute(ctx context.Context) error {
	t.status.Store(TaskStatusProcessing)
	t.logger.InfoContext(ctx, "starting worksheet generation task", slog.Int("num_tasks", t.numTasks))

	if err := ctx.Err(); err != nil {
		return t.fail(ctx, "task cancelled by context", err)
	}

	ws, err := t.repo.GetByID(ctx, t.worksheetID)
	if err != nil {
		t.status.Store(TaskStatusFailed)
		t.logger.ErrorContext(ctx, "failed to retrieve worksheet", slog.String("error", err.Error()))
		return fmt.Errorf("failed to retrieve worksheet: %w", err)
	}

	tasks, err := t.ensureWithRetry(ctx, ws.ExtractedText)
	if err != nil {
		return t.fail(ctx, "failed to generate tasks", err)
	}

	if err := t.repo.ReplaceTasks(ctx, t.worksheetID, tasks); err != nil {
		return t.fail(ctx, "failed to save generated tasks", err)
	}

	if err := t.repo.SetStatus(ctx, t.worksheetID, domain.WorksheetStatusCompleted); err != nil {
		// The task set is saved; only the status flag is stale.
		t.logger.ErrorContext(ctx, "failed to mark worksheet completed",
			slog.String("error", err.Error()),
			slog.Int("tasks_saved", len(tasks)))
	}

	t.status.Store(TaskStatusCompleted)
	t.logger.InfoContext(ctx, "worksheet generation task completed", slog.Int("tasks_saved", len(tasks)))
	return nil
}

func (t *WorksheetGenerationTask) ensureWithRetry(ctx context.Context, text string) ([]domain.TaskRecord, error) {
	var tasks []domain.TaskRecord
	attempt := 0
	err := retry.Do(ctx, t.retry.backoff(), func(ctx context.Context) error {
		attempt++
		var err error
		tasks, err = t.ensurer.EnsureTasks(ctx, text, t.numTasks)
		if err != nil && generation.IsTransient(err) {
			t.logger.WarnContext(ctx, "transient generation failure, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
	return tasks, err
}

// fail marks the worksheet failed on a context that outlives cancellation,
// so shutdown does not leave worksheets stuck in processing.
func (t *WorksheetGenerationTask) fail(ctx context.Context, msg string, err error) error {
	t.status.Store(TaskStatusFailed)
	t.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))

	if setErr := t.repo.SetStatus(context.WithoutCancel(ctx), t.worksheetID, domain.WorksheetStatusFailed); setErr != nil {
		t.logger.ErrorContext(ctx, "failed to mark worksheet failed", slog.String("error", setErr.Error()))
	}
	return fmt.Errorf("%s: %w", msg, err)
}
