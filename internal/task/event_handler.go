package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/events"
)

// TaskCreator builds a generation task for a worksheet.
type TaskCreator interface {
	CreateTask(worksheetID uuid.UUID, numTasks int) (Task, error)
}

// TaskSubmitter accepts tasks for background execution.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to turn worksheet generation events into submitted tasks.
type TaskFactoryEventHandler struct {
	taskFactory TaskCreator
	taskRunner  TaskSubmitter
	logger      *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	taskFactory TaskCreator,
	taskRunner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		taskFactory: taskFactory,
		taskRunner:  taskRunner,
		logger:      logger.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent creates and submits a WorksheetGenerationTask for
// worksheet generation events. Other event types are ignored.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	log := h.logger.With(slog.String("event_id", event.ID.String()))

	if event.Type != events.TypeWorksheetGeneration {
		log.DebugContext(ctx, "ignoring event with unsupported type", slog.String("event_type", event.Type))
		return nil
	}

	var payload events.WorksheetGenerationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		log.ErrorContext(ctx, "failed to unmarshal payload", slog.String("error", err.Error()))
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		log.ErrorContext(ctx, "invalid payload", slog.String("error", err.Error()))
		return err
	}

	log = log.With(slog.String("worksheet_id", payload.WorksheetID.String()))

	task, err := h.taskFactory.CreateTask(payload.WorksheetID, payload.NumTasks)
	if err != nil {
		log.ErrorContext(ctx, "failed to create task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.taskRunner.Submit(ctx, task); err != nil {
		log.ErrorContext(ctx, "failed to submit task",
			slog.String("task_id", task.ID().String()),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.InfoContext(ctx, "task created and submitted",
		slog.String("task_id", task.ID().String()),
		slog.Int("num_tasks", payload.NumTasks))
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
