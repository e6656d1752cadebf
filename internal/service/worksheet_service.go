package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/events"
	"github.com/phrazzld/worksheetgen/internal/extract"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/store"
)

// MaxTaskCount caps the number of tasks a caller may request.
const MaxTaskCount = 100

// WorksheetRepository defines the repository interface for the service layer.
// It is satisfied by store.WorksheetStore.
type WorksheetRepository interface {
	Create(ctx context.Context, ws *domain.Worksheet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)
	List(ctx context.Context) ([]*domain.Worksheet, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.WorksheetStatus) error
	ListTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.TaskRecord, error)
}

// TextExtractor pulls text out of uploaded documents.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, kind extract.SourceKind) (*extract.Document, error)
}

// UploadRequest is one document submitted for task generation.
type UploadRequest struct {
	// Filename is the client-supplied name; it is sanitised before use.
	Filename string
	Data     []byte
	// NumTasks is the number of tasks to generate; zero selects the default.
	NumTasks int
}

// WorksheetServiceConfig holds the limits applied to uploads.
type WorksheetServiceConfig struct {
	MaxUploadBytes  int64
	DefaultNumTasks int
}

// WorksheetService provides the worksheet use cases.
type WorksheetService struct {
	repo      WorksheetRepository
	extractor TextExtractor
	uploads   *UploadStore
	emitter   events.EventEmitter
	config    WorksheetServiceConfig
	logger    *slog.Logger
}

// NewWorksheetService creates a WorksheetService.
// It returns an error if any of the required dependencies are nil.
func NewWorksheetService(
	repo WorksheetRepository,
	extractor TextExtractor,
	uploads *UploadStore,
	emitter events.EventEmitter,
	config WorksheetServiceConfig,
	logger *slog.Logger,
) (*WorksheetService, error) {
	if repo == nil {
		return nil, &WorksheetServiceError{Operation: "create_service", Message: "repo cannot be nil"}
	}
	if extractor == nil {
		return nil, &WorksheetServiceError{Operation: "create_service", Message: "extractor cannot be nil"}
	}
	if uploads == nil {
		return nil, &WorksheetServiceError{Operation: "create_service", Message: "uploads cannot be nil"}
	}
	if emitter == nil {
		return nil, &WorksheetServiceError{Operation: "create_service", Message: "emitter cannot be nil"}
	}
	if config.DefaultNumTasks <= 0 {
		return nil, &WorksheetServiceError{Operation: "create_service", Message: "default task count must be positive"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &WorksheetService{
		repo:      repo,
		extractor: extractor,
		uploads:   uploads,
		emitter:   emitter,
		config:    config,
		logger:    logger.With(slog.String("component", "worksheet_service")),
	}, nil
}

// Upload validates and stores a document, creates its worksheet in the
// processing state and schedules task generation.
//
// Extraction failures are returned unwrapped so callers can match
// extract.ErrExtraction and extract.ErrUnsupportedType. If scheduling
// fails the worksheet is marked failed before the error is returned.
func (s *WorksheetService) Upload(ctx context.Context, req UploadRequest) (*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	filename := SanitizeFilename(req.Filename)
	if filename == "" {
		return nil, ErrInvalidFilename
	}

	kind, err := extract.KindFromFilename(filename)
	if err != nil {
		return nil, err
	}
	fileType := domain.FileType(strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")))

	if s.config.MaxUploadBytes > 0 && int64(len(req.Data)) > s.config.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(req.Data), s.config.MaxUploadBytes)
	}

	numTasks, err := s.taskCount(req.NumTasks)
	if err != nil {
		return nil, err
	}

	doc, err := s.extractor.Extract(ctx, req.Data, kind)
	if err != nil {
		log.WarnContext(ctx, "text extraction failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, err
	}

	if _, err := s.uploads.Save(filename, req.Data); err != nil {
		log.ErrorContext(ctx, "failed to store upload",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return nil, NewWorksheetServiceError("upload", "failed to store upload", err)
	}

	ws, err := domain.NewWorksheet(filename, req.Filename, fileType, doc.RawText)
	if err != nil {
		return nil, NewWorksheetServiceError("upload", "invalid worksheet", err)
	}
	if err := s.repo.Create(ctx, ws); err != nil {
		log.ErrorContext(ctx, "failed to create worksheet",
			slog.String("worksheet_id", ws.ID.String()),
			slog.String("error", err.Error()))
		return nil, NewWorksheetServiceError("upload", "failed to save worksheet", err)
	}

	log.InfoContext(ctx, "worksheet created",
		slog.String("worksheet_id", ws.ID.String()),
		slog.String("filename", filename),
		slog.Int("text_length", len(doc.RawText)),
		slog.Int("num_tasks", numTasks))

	if err := s.schedule(ctx, log, ws.ID, numTasks); err != nil {
		ws.Status = domain.WorksheetStatusFailed
		return ws, NewWorksheetServiceError("upload", "failed to schedule generation", err)
	}
	return ws, nil
}

// Regenerate schedules a fresh task set for an existing worksheet. The
// previous set stays readable until the new one replaces it.
func (s *WorksheetService) Regenerate(ctx context.Context, id uuid.UUID, numTasks int) (*domain.Worksheet, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	count, err := s.taskCount(numTasks)
	if err != nil {
		return nil, err
	}

	ws, err := s.GetWorksheet(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetStatus(ctx, id, domain.WorksheetStatusProcessing); err != nil {
		return nil, NewWorksheetServiceError("regenerate", "failed to update status", mapStoreError(err))
	}
	ws.Status = domain.WorksheetStatusProcessing

	if err := s.schedule(ctx, log, id, count); err != nil {
		ws.Status = domain.WorksheetStatusFailed
		return ws, NewWorksheetServiceError("regenerate", "failed to schedule generation", err)
	}
	return ws, nil
}

// GetWorksheet retrieves a worksheet by its ID.
func (s *WorksheetService) GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	ws, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, NewWorksheetServiceError("get_worksheet", "failed to retrieve worksheet", mapStoreError(err))
	}
	return ws, nil
}

// GetTasks returns a worksheet's tasks ordered by order index.
func (s *WorksheetService) GetTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error) {
	if _, err := s.GetWorksheet(ctx, id); err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListTasks(ctx, id)
	if err != nil {
		return nil, NewWorksheetServiceError("get_tasks", "failed to list tasks", mapStoreError(err))
	}
	return tasks, nil
}

// ListWorksheets returns every worksheet, newest upload first.
func (s *WorksheetService) ListWorksheets(ctx context.Context) ([]*domain.Worksheet, error) {
	worksheets, err := s.repo.List(ctx)
	if err != nil {
		return nil, NewWorksheetServiceError("list_worksheets", "failed to list worksheets", err)
	}
	return worksheets, nil
}

// CheckAnswer grades a submitted answer against the stored task.
//
// Malformed answers yield domain.ErrInvalidAnswer and short-answer tasks
// yield domain.ErrCheckUnsupported; both are returned unwrapped.
func (s *WorksheetService) CheckAnswer(ctx context.Context, taskID uuid.UUID, answer any) (*domain.CheckResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return nil, NewWorksheetServiceError("check_answer", "failed to retrieve task", mapStoreError(err))
	}

	result, err := task.Data.Check(answer)
	if err != nil {
		log.DebugContext(ctx, "answer not checked",
			slog.String("task_id", taskID.String()),
			slog.String("task_type", string(task.TaskType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.DebugContext(ctx, "answer checked",
		slog.String("task_id", taskID.String()),
		slog.String("task_type", string(task.TaskType)),
		slog.Bool("is_correct", result.IsCorrect))
	return &result, nil
}

func (s *WorksheetService) taskCount(n int) (int, error) {
	switch {
	case n == 0:
		return s.config.DefaultNumTasks, nil
	case n < 0 || n > MaxTaskCount:
		return 0, fmt.Errorf("%w: %d not in [1,%d]", ErrInvalidTaskCount, n, MaxTaskCount)
	default:
		return n, nil
	}
}

// schedule emits the generation event and marks the worksheet failed if
// that is not possible.
func (s *WorksheetService) schedule(ctx context.Context, log *slog.Logger, id uuid.UUID, numTasks int) error {
	event, err := events.NewWorksheetGenerationEvent(id, numTasks)
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err == nil {
		return nil
	}

	log.ErrorContext(ctx, "failed to schedule task generation",
		slog.String("worksheet_id", id.String()),
		slog.String("error", err.Error()))
	if setErr := s.repo.SetStatus(context.WithoutCancel(ctx), id, domain.WorksheetStatusFailed); setErr != nil {
		log.ErrorContext(ctx, "failed to mark worksheet failed",
			slog.String("worksheet_id", id.String()),
			slog.String("error", setErr.Error()))
	}
	return fmt.Errorf("%w: %w", ErrEnqueueFailed, err)
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		return ErrWorksheetNotFound
	}
	return err
}
