package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// WorksheetGenerationTaskFactory creates WorksheetGenerationTask instances
type WorksheetGenerationTaskFactory struct {
	repo    WorksheetRepository
	ensurer TaskEnsurer
	retry   RetryPolicy
	logger  *slog.Logger
}

// NewWorksheetGenerationTaskFactory creates a new factory for WorksheetGenerationTasks
func NewWorksheetGenerationTaskFactory(
	repo WorksheetRepository,
	ensurer TaskEnsurer,
	policy RetryPolicy,
	logger *slog.Logger,
) *WorksheetGenerationTaskFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorksheetGenerationTaskFactory{
		repo:    repo,
		ensurer: ensurer,
		retry:   policy,
		logger:  logger.With(slog.String("component", "worksheet_generation_task_factory")),
	}
}

// CreateTask creates a new WorksheetGenerationTask for the specified worksheet
func (f *WorksheetGenerationTaskFactory) CreateTask(worksheetID uuid.UUID, numTasks int) (Task, error) {
	task, err := NewWorksheetGenerationTask(worksheetID, numTasks, f.repo, f.ensurer, f.retry, f.logger)
	if err != nil {
		return nil, err
	}
	return task, nil
}
