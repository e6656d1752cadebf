package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/extract"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWorksheetService struct {
	mock.Mock
}

func (m *mockWorksheetService) Upload(ctx context.Context, req service.UploadRequest) (*domain.Worksheet, error) {
	args := m.Called(ctx, req)
	ws, _ := args.Get(0).(*domain.Worksheet)
	return ws, args.Error(1)
}

func (m *mockWorksheetService) Regenerate(ctx context.Context, id uuid.UUID, numTasks int) (*domain.Worksheet, error) {
	args := m.Called(ctx, id, numTasks)
	ws, _ := args.Get(0).(*domain.Worksheet)
	return ws, args.Error(1)
}

func (m *mockWorksheetService) GetWorksheet(ctx context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	args := m.Called(ctx, id)
	ws, _ := args.Get(0).(*domain.Worksheet)
	return ws, args.Error(1)
}

func (m *mockWorksheetService) GetTasks(ctx context.Context, id uuid.UUID) ([]domain.TaskRecord, error) {
	args := m.Called(ctx, id)
	tasks, _ := args.Get(0).([]domain.TaskRecord)
	return tasks, args.Error(1)
}

func (m *mockWorksheetService) ListWorksheets(ctx context.Context) ([]*domain.Worksheet, error) {
	args := m.Called(ctx)
	worksheets, _ := args.Get(0).([]*domain.Worksheet)
	return worksheets, args.Error(1)
}

func (m *mockWorksheetService) CheckAnswer(ctx context.Context, taskID uuid.UUID, answer any) (*domain.CheckResult, error) {
	args := m.Called(ctx, taskID, answer)
	result, _ := args.Get(0).(*domain.CheckResult)
	return result, args.Error(1)
}

func testWorksheet(status domain.WorksheetStatus) *domain.Worksheet {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Worksheet{
		ID:               uuid.New(),
		Filename:         "photosynthesis.pdf",
		OriginalFilename: "Photosynthesis.pdf",
		FileType:         domain.FileTypePDF,
		ExtractedText:    "Plants convert light into chemical energy.",
		Status:           status,
		UploadedAt:       now,
		UpdatedAt:        now,
	}
}

func newTestRouter(t *testing.T, svc WorksheetService, maxUpload int64) http.Handler {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	h := NewWorksheetHandler(svc, maxUpload, log)

	r := chi.NewRouter()
	r.Post("/api/upload", h.Upload)
	r.Get("/api/worksheets", h.ListWorksheets)
	r.Get("/api/worksheets/{id}", h.GetWorksheet)
	r.Get("/api/worksheets/{id}/tasks", h.GetTasks)
	r.Post("/api/worksheets/{id}/regenerate", h.Regenerate)
	r.Post("/api/tasks/{id}/check", h.CheckAnswer)
	return r
}

func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWorksheetHandler_Upload(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake")

	t.Run("accepted", func(t *testing.T) {
		svc := new(mockWorksheetService)
		ws := testWorksheet(domain.WorksheetStatusProcessing)
		svc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.Filename == "Photosynthesis.pdf" && req.NumTasks == 5 && bytes.Equal(req.Data, pdf)
		})).Return(ws, nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(w, multipartUpload(t, "Photosynthesis.pdf", pdf, map[string]string{"num_tasks": "5"}))

		assert.Equal(t, http.StatusAccepted, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, ws.ID.String(), body["id"])
		assert.Equal(t, "processing", body["status"])
		assert.Equal(t, "pdf", body["file_type"])
		assert.NotContains(t, body, "extracted_text")
		svc.AssertExpectations(t)
	})

	t.Run("default task count", func(t *testing.T) {
		svc := new(mockWorksheetService)
		svc.On("Upload", mock.Anything, mock.MatchedBy(func(req service.UploadRequest) bool {
			return req.NumTasks == 0
		})).Return(testWorksheet(domain.WorksheetStatusProcessing), nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, multipartUpload(t, "notes.docx", []byte("PK"), nil))

		assert.Equal(t, http.StatusAccepted, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing file", func(t *testing.T) {
		svc := new(mockWorksheetService)
		w := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(w, multipartUpload(t, "", nil, map[string]string{"num_tasks": "5"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No file provided", decodeBody(t, w)["error"])
		svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("non numeric task count", func(t *testing.T) {
		svc := new(mockWorksheetService)
		w := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(w, multipartUpload(t, "a.pdf", pdf, map[string]string{"num_tasks": "lots"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("request larger than limit", func(t *testing.T) {
		svc := new(mockWorksheetService)
		big := bytes.Repeat([]byte("x"), 2*multipartOverhead)
		w := httptest.NewRecorder()
		newTestRouter(t, svc, 16).ServeHTTP(w, multipartUpload(t, "big.pdf", big, nil))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
	})

	t.Run("not a multipart request", func(t *testing.T) {
		svc := new(mockWorksheetService)
		req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(`{"file":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		newTestRouter(t, svc, 1<<20).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	serviceErrors := []struct {
		name   string
		err    error
		status int
	}{
		{"file too large", fmt.Errorf("%w: 20 bytes exceeds limit of 10", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"unsupported type", fmt.Errorf("%w: .txt", extract.ErrUnsupportedType), http.StatusUnsupportedMediaType},
		{"extraction failure", &extract.Error{Kind: extract.KindPDF, Reason: "no text"}, http.StatusUnprocessableEntity},
		{"invalid filename", service.ErrInvalidFilename, http.StatusBadRequest},
		{
			"enqueue failure",
			service.NewWorksheetServiceError("upload", "failed to schedule generation", service.ErrEnqueueFailed),
			http.StatusServiceUnavailable,
		},
	}
	for _, tc := range serviceErrors {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockWorksheetService)
			svc.On("Upload", mock.Anything, mock.Anything).Return(nil, tc.err)

			w := httptest.NewRecorder()
			newTestRouter(t, svc, 1<<20).ServeHTTP(w, multipartUpload(t, "a.pdf", pdf, nil))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, GetSafeErrorMessage(tc.err), decodeBody(t, w)["error"])
		})
	}
}

func TestWorksheetHandler_GetWorksheet(t *testing.T) {
	svc := new(mockWorksheetService)
	ws := testWorksheet(domain.WorksheetStatusCompleted)
	missing := uuid.New()
	svc.On("GetWorksheet", mock.Anything, ws.ID).Return(ws, nil)
	svc.On("GetWorksheet", mock.Anything, missing).Return(nil, service.ErrWorksheetNotFound)
	router := newTestRouter(t, svc, 0)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+ws.ID.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decodeBody(t, w)["status"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+missing.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorksheetHandler_GetTasks(t *testing.T) {
	t.Run("ordered tasks", func(t *testing.T) {
		svc := new(mockWorksheetService)
		ws := testWorksheet(domain.WorksheetStatusCompleted)
		tasks := []domain.TaskRecord{
			{
				TaskType:   domain.TaskTypeMultipleChoice,
				Question:   "What do plants convert light into?",
				Data:       domain.MultipleChoiceData{Options: []string{"Chemical energy", "Heat"}, CorrectAnswer: 0},
				OrderIndex: 0,
			},
			{
				TaskType:   domain.TaskTypeFillBlank,
				Question:   "Photosynthesis happens in the ___.",
				Data:       domain.FillBlankData{CorrectAnswers: []string{"chloroplast"}},
				OrderIndex: 1,
			},
		}
		svc.On("GetWorksheet", mock.Anything, ws.ID).Return(ws, nil)
		svc.On("GetTasks", mock.Anything, ws.ID).Return(tasks, nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+ws.ID.String()+"/tasks", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			WorksheetID string `json:"worksheet_id"`
			Status      string `json:"status"`
			Tasks       []struct {
				TaskType   string                 `json:"task_type"`
				Question   string                 `json:"question"`
				TaskData   map[string]interface{} `json:"task_data"`
				OrderIndex int                    `json:"order_index"`
			} `json:"tasks"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ws.ID.String(), resp.WorksheetID)
		assert.Equal(t, "completed", resp.Status)
		require.Len(t, resp.Tasks, 2)
		assert.Equal(t, "multiple_choice", resp.Tasks[0].TaskType)
		assert.Equal(t, []interface{}{"Chemical energy", "Heat"}, resp.Tasks[0].TaskData["options"])
		assert.Equal(t, "fill_blank", resp.Tasks[1].TaskType)
		assert.Equal(t, 1, resp.Tasks[1].OrderIndex)
	})

	t.Run("no tasks yet", func(t *testing.T) {
		svc := new(mockWorksheetService)
		ws := testWorksheet(domain.WorksheetStatusProcessing)
		svc.On("GetWorksheet", mock.Anything, ws.ID).Return(ws, nil)
		svc.On("GetTasks", mock.Anything, ws.ID).Return(nil, nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+ws.ID.String()+"/tasks", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			fmt.Sprintf(`{"worksheet_id":%q,"status":"processing","tasks":[]}`, ws.ID.String()),
			w.Body.String())
	})

	t.Run("unknown worksheet", func(t *testing.T) {
		svc := new(mockWorksheetService)
		id := uuid.New()
		svc.On("GetWorksheet", mock.Anything, id).Return(nil, service.ErrWorksheetNotFound)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+id.String()+"/tasks", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		svc.AssertNotCalled(t, "GetTasks", mock.Anything, mock.Anything)
	})
}

func TestWorksheetHandler_Regenerate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		numTasks   int
		called     bool
		svcErr     error
		wantStatus int
	}{
		{name: "explicit count", body: `{"num_tasks": 7}`, numTasks: 7, called: true, wantStatus: http.StatusAccepted},
		{name: "empty body uses default", body: "", numTasks: 0, called: true, wantStatus: http.StatusAccepted},
		{name: "count above limit", body: `{"num_tasks": 500}`, wantStatus: http.StatusBadRequest},
		{name: "negative count", body: `{"num_tasks": -3}`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"tasks": 3}`, wantStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"num_tasks":`, wantStatus: http.StatusBadRequest},
		{
			name:       "unknown worksheet",
			body:       `{"num_tasks": 3}`,
			numTasks:   3,
			called:     true,
			svcErr:     service.ErrWorksheetNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockWorksheetService)
			ws := testWorksheet(domain.WorksheetStatusProcessing)
			if tc.called {
				if tc.svcErr != nil {
					svc.On("Regenerate", mock.Anything, ws.ID, tc.numTasks).Return(nil, tc.svcErr)
				} else {
					svc.On("Regenerate", mock.Anything, ws.ID, tc.numTasks).Return(ws, nil)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/api/worksheets/"+ws.ID.String()+"/regenerate", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.called {
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "Regenerate", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestWorksheetHandler_ListWorksheets(t *testing.T) {
	t.Run("newest first", func(t *testing.T) {
		svc := new(mockWorksheetService)
		newer := testWorksheet(domain.WorksheetStatusProcessing)
		older := testWorksheet(domain.WorksheetStatusCompleted)
		older.UploadedAt = newer.UploadedAt.Add(-time.Hour)
		svc.On("ListWorksheets", mock.Anything).Return([]*domain.Worksheet{newer, older}, nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp WorksheetListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Worksheets, 2)
		assert.Equal(t, newer.ID, resp.Worksheets[0].ID)
		assert.Equal(t, older.ID, resp.Worksheets[1].ID)
		assert.NotContains(t, w.Body.String(), "extracted_text")
	})

	t.Run("empty", func(t *testing.T) {
		svc := new(mockWorksheetService)
		svc.On("ListWorksheets", mock.Anything).Return(nil, nil)

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"worksheets":[]}`, w.Body.String())
	})

	t.Run("store failure", func(t *testing.T) {
		svc := new(mockWorksheetService)
		svc.On("ListWorksheets", mock.Anything).Return(nil, fmt.Errorf("connection refused"))

		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestWorksheetHandler_CheckAnswer(t *testing.T) {
	correctIndex := 2

	tests := []struct {
		name       string
		body       string
		answer     any
		result     *domain.CheckResult
		svcErr     error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "fill blank correct",
			body:       `{"answer": "Chloroplast"}`,
			answer:     "Chloroplast",
			result:     &domain.CheckResult{IsCorrect: true, Feedback: "Organelle."},
			wantStatus: http.StatusOK,
			wantBody:   `{"is_correct":true,"feedback":"Organelle.","correct_answer":null}`,
		},
		{
			name:       "multiple choice wrong",
			body:       `{"answer": 1}`,
			answer:     float64(1),
			result:     &domain.CheckResult{IsCorrect: false, CorrectAnswer: &correctIndex},
			wantStatus: http.StatusOK,
			wantBody:   `{"is_correct":false,"feedback":"","correct_answer":2}`,
		},
		{
			name:       "drag drop object",
			body:       `{"answer": {"leaf": "green"}}`,
			answer:     map[string]any{"leaf": "green"},
			result:     &domain.CheckResult{IsCorrect: true},
			wantStatus: http.StatusOK,
			wantBody:   `{"is_correct":true,"feedback":"","correct_answer":null}`,
		},
		{name: "missing answer", body: `{}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"Answer is required"}`},
		{name: "null answer", body: `{"answer": null}`, wantStatus: http.StatusBadRequest, wantBody: `{"error":"Answer is required"}`},
		{name: "malformed json", body: `{"answer":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"response": "x"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "wrong shape",
			body:       `{"answer": "Cells"}`,
			answer:     "Cells",
			svcErr:     fmt.Errorf("%w: want index", domain.ErrInvalidAnswer),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short answer",
			body:       `{"answer": "Cells split."}`,
			answer:     "Cells split.",
			svcErr:     fmt.Errorf("%w: short_answer", domain.ErrCheckUnsupported),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "unknown task",
			body:       `{"answer": "x"}`,
			answer:     "x",
			svcErr:     service.ErrTaskNotFound,
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Task not found"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockWorksheetService)
			taskID := uuid.New()
			called := tc.result != nil || tc.svcErr != nil
			if called {
				svc.On("CheckAnswer", mock.Anything, taskID, tc.answer).Return(tc.result, tc.svcErr)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID.String()+"/check", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			newTestRouter(t, svc, 0).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, w.Body.String())
			}
			if called {
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "CheckAnswer", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}

	t.Run("invalid task id", func(t *testing.T) {
		svc := new(mockWorksheetService)
		w := httptest.NewRecorder()
		newTestRouter(t, svc, 0).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tasks/nope/check", strings.NewReader(`{"answer":"x"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
