package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
)

// WorksheetResponse is the public view of a worksheet. The extracted text
// is not exposed.
type WorksheetResponse struct {
	ID               uuid.UUID `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FileType         string    `json:"file_type"`
	Status           string    `json:"status"`
	UploadedAt       time.Time `json:"uploaded_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// WorksheetListResponse lists worksheets, newest upload first.
type WorksheetListResponse struct {
	Worksheets []WorksheetResponse `json:"worksheets"`
}

// TasksResponse lists a worksheet's tasks in order_index order.
type TasksResponse struct {
	WorksheetID uuid.UUID           `json:"worksheet_id"`
	Status      string              `json:"status"`
	Tasks       []domain.TaskRecord `json:"tasks"`
}

// RegenerateRequest is the optional body of the regenerate endpoint.
// A zero NumTasks selects the configured default.
type RegenerateRequest struct {
	NumTasks int `json:"num_tasks" validate:"omitempty,gte=1,lte=100"`
}

// CheckAnswerRequest is the body of the check endpoint. Answer is an option
// index for multiple choice, text for fill in the blank and an item to
// target object for drag and drop.
type CheckAnswerRequest struct {
	Answer any `json:"answer"`
}

// Validate requires an answer. The shape is checked against the task later.
func (r *CheckAnswerRequest) Validate() error {
	if r.Answer == nil {
		return ErrMissingAnswer
	}
	return nil
}

// CheckAnswerResponse is the outcome of checking one answer.
// CorrectAnswer is only set for multiple choice tasks.
type CheckAnswerResponse struct {
	IsCorrect     bool   `json:"is_correct"`
	Feedback      string `json:"feedback"`
	CorrectAnswer *int   `json:"correct_answer"`
}

// CacheClearResponse reports how many keys a cache clear removed.
type CacheClearResponse struct {
	Scope   string `json:"scope"`
	Removed int    `json:"removed"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

func worksheetToResponse(ws *domain.Worksheet) WorksheetResponse {
	return WorksheetResponse{
		ID:               ws.ID,
		Filename:         ws.Filename,
		OriginalFilename: ws.OriginalFilename,
		FileType:         string(ws.FileType),
		Status:           string(ws.Status),
		UploadedAt:       ws.UploadedAt,
		UpdatedAt:        ws.UpdatedAt,
	}
}
