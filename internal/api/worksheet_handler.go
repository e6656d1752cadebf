package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/api/shared"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/service"
)

const (
	// uploadFormField is the multipart field carrying the document.
	uploadFormField = "file"

	// multipartOverhead is allowed on top of the file limit for headers,
	// boundaries and the other form fields.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is buffered in memory before
	// spilling to temporary files.
	multipartMemory = 8 << 20
)

// WorksheetService is the subset of service.WorksheetService the handlers use.
type WorksheetService interface {
	Upload(ctx context.Context, req service.UploadRequest) (*domain.Worksheet, error)
	Regenerate(ctx context.Context, id uuid.UUID, numTasks int) (*domain.Worksheet, error)
	GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error)
	GetTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error)
	ListWorksheets(ctx context.Context) ([]*domain.Worksheet, error)
	CheckAnswer(ctx context.Context, taskID uuid.UUID, answer any) (*domain.CheckResult, error)
}

var _ WorksheetService = (*service.WorksheetService)(nil)

// WorksheetHandler handles worksheet upload and task HTTP requests.
type WorksheetHandler struct {
	worksheets     WorksheetService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewWorksheetHandler creates a new WorksheetHandler. maxUploadBytes bounds
// the uploaded file; zero disables the limit.
func NewWorksheetHandler(worksheets WorksheetService, maxUploadBytes int64, logger *slog.Logger) *WorksheetHandler {
	if worksheets == nil {
		panic("worksheets cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorksheetHandler{
		worksheets:     worksheets,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("component", "worksheet_handler")),
	}
}

// Upload handles POST /api/upload requests.
//
// The body is a multipart form with the document in the "file" field and an
// optional "num_tasks" field. Generation runs in the background, so a
// successful upload answers 202 with the worksheet in the processing state.
func (h *WorksheetHandler) Upload(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if h.maxUploadBytes > 0 {
		limit := h.maxUploadBytes + multipartOverhead
		if r.ContentLength > limit {
			HandleAPIError(w, r, fmt.Errorf("%w: request of %d bytes", service.ErrFileTooLarge, r.ContentLength), "")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			HandleAPIError(w, r, fmt.Errorf("%w: %w", service.ErrFileTooLarge, err), "")
			return
		}
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrMissingFile, err), "")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		HandleAPIError(w, r, ErrMissingFile, "")
		return
	}

	numTasks := 0
	if raw := r.FormValue("num_tasks"); raw != "" {
		numTasks, err = strconv.Atoi(raw)
		if err != nil {
			HandleAPIError(w, r, fmt.Errorf("%w: %q", service.ErrInvalidTaskCount, raw), "")
			return
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: read upload: %w", ErrInvalidRequest, err), "")
		return
	}

	ws, err := h.worksheets.Upload(r.Context(), service.UploadRequest{
		Filename: header.Filename,
		Data:     data,
		NumTasks: numTasks,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("worksheet uploaded",
		slog.String("worksheet_id", ws.ID.String()),
		slog.Int("size_bytes", len(data)))
	shared.RespondWithJSON(w, r, http.StatusAccepted, worksheetToResponse(ws))
}

// GetWorksheet handles GET /api/worksheets/{id} requests.
func (h *WorksheetHandler) GetWorksheet(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.worksheets.GetWorksheet(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, worksheetToResponse(ws))
}

// ListWorksheets handles GET /api/worksheets requests.
func (h *WorksheetHandler) ListWorksheets(w http.ResponseWriter, r *http.Request) {
	worksheets, err := h.worksheets.ListWorksheets(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := WorksheetListResponse{Worksheets: make([]WorksheetResponse, 0, len(worksheets))}
	for _, ws := range worksheets {
		resp.Worksheets = append(resp.Worksheets, worksheetToResponse(ws))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetTasks handles GET /api/worksheets/{id}/tasks requests.
// Tasks are returned in order_index order; a worksheet still processing
// returns its previous set, which may be empty.
func (h *WorksheetHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	ws, err := h.worksheets.GetWorksheet(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	tasks, err := h.worksheets.GetTasks(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if tasks == nil {
		tasks = []domain.TaskRecord{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TasksResponse{
		WorksheetID: ws.ID,
		Status:      string(ws.Status),
		Tasks:       tasks,
	})
}

// Regenerate handles POST /api/worksheets/{id}/regenerate requests.
// The JSON body is optional.
func (h *WorksheetHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	var req RegenerateRequest
	if err := shared.DecodeOptionalJSON(r, &req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	ws, err := h.worksheets.Regenerate(r.Context(), id, req.NumTasks)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("worksheet regeneration scheduled", slog.String("worksheet_id", id.String()))
	shared.RespondWithJSON(w, r, http.StatusAccepted, worksheetToResponse(ws))
}

// CheckAnswer handles POST /api/tasks/{id}/check requests.
func (h *WorksheetHandler) CheckAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := handlePathUUID(w, r, "id")
	if !ok {
		return
	}

	var req CheckAnswerRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		HandleAPIError(w, r, fmt.Errorf("%w: %w", ErrInvalidRequest, err), "")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	result, err := h.worksheets.CheckAnswer(r.Context(), id, req.Answer)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, CheckAnswerResponse{
		IsCorrect:     result.IsCorrect,
		Feedback:      result.Feedback,
		CorrectAnswer: result.CorrectAnswer,
	})
}
