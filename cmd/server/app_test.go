package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/config"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
	"github.com/phrazzld/worksheetgen/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepo is an in-process worksheet repository for wiring tests.
type memoryRepo struct {
	mu         sync.Mutex
	worksheets map[uuid.UUID]domain.Worksheet
	tasks      map[uuid.UUID][]domain.TaskRecord
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		worksheets: make(map[uuid.UUID]domain.Worksheet),
		tasks:      make(map[uuid.UUID][]domain.TaskRecord),
	}
}

func (r *memoryRepo) Create(_ context.Context, ws *domain.Worksheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.worksheets[ws.ID]; ok {
		return store.ErrWorksheetExists
	}
	r.worksheets[ws.ID] = *ws
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.worksheets[id]
	if !ok {
		return nil, store.ErrWorksheetNotFound
	}
	return &ws, nil
}

func (r *memoryRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.WorksheetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.worksheets[id]
	if !ok {
		return store.ErrWorksheetNotFound
	}
	ws.Status = status
	r.worksheets[id] = ws
	return nil
}

func (r *memoryRepo) ReplaceTasks(_ context.Context, id uuid.UUID, tasks []domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.worksheets[id]; !ok {
		return store.ErrWorksheetNotFound
	}
	stored := domain.CloneTasks(tasks)
	for i := range stored {
		stored[i].ID = uuid.New()
	}
	r.tasks[id] = stored
	return nil
}

func (r *memoryRepo) ListTasks(_ context.Context, id uuid.UUID) ([]domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return domain.CloneTasks(r.tasks[id]), nil
}

func (r *memoryRepo) List(_ context.Context) ([]*domain.Worksheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Worksheet, 0, len(r.worksheets))
	for _, ws := range r.worksheets {
		ws.ExtractedText = ""
		out = append(out, &ws)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.After(out[j].UploadedAt) })
	return out, nil
}

func (r *memoryRepo) GetTask(_ context.Context, taskID uuid.UUID) (*domain.TaskRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tasks := range r.tasks {
		for _, task := range tasks {
			if task.ID == taskID {
				cp := domain.CloneTasks([]domain.TaskRecord{task})[0]
				return &cp, nil
			}
		}
	}
	return nil, store.ErrTaskNotFound
}

const completionContent = `{"tasks":[` +
	`{"task_type":"multiple_choice","question":"Which organelle makes ATP?",` +
	`"task_data":{"options":["Mitochondrion","Ribosome"],"correct_answer":0}},` +
	`{"task_type":"fill_blank","question":"The cell membrane is a lipid ___.",` +
	`"task_data":{"correct_answers":["bilayer"],"case_sensitive":false}}]}`

func fakeOpenAIServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		body, _ := json.Marshal(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": completionContent},
			}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			MaxUploadBytes:  1 << 20,
			ShutdownTimeout: time.Second,
		},
		LLM: config.LLMConfig{
			Provider:         "openai",
			OpenAIAPIKey:     "sk-test",
			OpenAIModel:      "gpt-4o",
			BaseURL:          baseURL,
			RequestTimeout:   5 * time.Second,
			DefaultTaskCount: 15,
			Temperature:      0.7,
			MaxTokens:        2000,
			MaxRetries:       1,
			RetryBaseDelay:   time.Millisecond,
		},
		Cache: config.CacheConfig{
			Backend:    "memory",
			TTL:        24 * time.Hour,
			MemorySize: 64,
		},
		Uploads: config.UploadsConfig{Dir: "/uploads"},
		Tasks:   config.TasksConfig{WorkerCount: 2, QueueSize: 8},
	}
}

func buildDOCX(t *testing.T, paragraph string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`</Types>`},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>` + paragraph + `</w:t></w:r></w:p>` +
			`</w:body></w:document>`},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("num_tasks", "2"))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestApplication(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	app, err := newApplication(context.Background(), cfg, log, newMemoryRepo(), afero.NewMemMapFs())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func waitForStatus(t *testing.T, router http.Handler, id string, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+id, nil))
		var ws struct {
			Status string `json:"status"`
		}
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &ws) == nil && ws.Status == want
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUploadGeneratesTasksEndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAIServer(t, &calls)
	app := newTestApplication(t, testConfig(srv.URL))
	app.taskRunner.Start()
	router := app.setupRouter()

	doc := buildDOCX(t, "Cells are the basic unit of life. Mitochondria produce ATP.")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "Cell Biology.docx", doc))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var uploaded struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		FileType string `json:"file_type"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &uploaded))
	assert.Equal(t, "Cell_Biology.docx", uploaded.Filename)
	assert.Equal(t, "docx", uploaded.FileType)
	assert.Equal(t, "processing", uploaded.Status)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	waitForStatus(t, router, uploaded.ID, "completed")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+uploaded.ID+"/tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Tasks []struct {
			ID         string `json:"id"`
			TaskType   string `json:"task_type"`
			OrderIndex int    `json:"order_index"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Tasks, 2)
	assert.Equal(t, "multiple_choice", listed.Tasks[0].TaskType)
	assert.Equal(t, 0, listed.Tasks[0].OrderIndex)
	assert.Equal(t, "fill_blank", listed.Tasks[1].TaskType)
	assert.Equal(t, 1, listed.Tasks[1].OrderIndex)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tasks/"+listed.Tasks[1].ID+"/check",
		strings.NewReader(`{"answer": " BILAYER "}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"is_correct":true,"feedback":"","correct_answer":null}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/tasks/"+listed.Tasks[0].ID+"/check",
		strings.NewReader(`{"answer": 1}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"is_correct":false,"feedback":"","correct_answer":0}`, w.Body.String())

	// Same text under another name is served from the cache.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "copy.docx", doc))
	require.Equal(t, http.StatusAccepted, w.Code)
	var second struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	waitForStatus(t, router, second.ID, "completed")
	assert.Equal(t, int32(1), calls.Load())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var all struct {
		Worksheets []struct {
			ID string `json:"id"`
		} `json:"worksheets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Worksheets, 2)
	assert.Equal(t, second.ID, all.Worksheets[0].ID)
	assert.Equal(t, uploaded.ID, all.Worksheets[1].ID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Backend     string `json:"backend"`
		TasksCached int    `json:"tasks_cached"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.TasksCached)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/cache/clear?scope=tasks", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scope":"tasks","removed":1}`, w.Body.String())

	// With the cache cleared, regenerating at the same count calls the model again.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/worksheets/"+second.ID+"/regenerate",
		strings.NewReader(`{"num_tasks": 2}`)))
	require.Equal(t, http.StatusAccepted, w.Code)
	waitForStatus(t, router, second.ID, "completed")
	assert.Equal(t, int32(2), calls.Load())
}

func TestUploadRejections(t *testing.T) {
	var calls atomic.Int32
	srv := fakeOpenAIServer(t, &calls)
	app := newTestApplication(t, testConfig(srv.URL))
	router := app.setupRouter()

	tests := []struct {
		name     string
		filename string
		data     []byte
		status   int
	}{
		{"unsupported extension", "notes.txt", []byte("plain text"), http.StatusUnsupportedMediaType},
		{"pdf that is not a pdf", "fake.pdf", []byte("definitely not a pdf"), http.StatusUnprocessableEntity},
		{"legacy binary doc", "old.doc", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, http.StatusUnprocessableEntity},
		{"name with nothing usable", "日本語", []byte("%PDF-1.4"), http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, uploadRequest(t, tc.filename, tc.data))
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, calls.Load())
}

func TestRouterHealthAndUnknownRoutes(t *testing.T) {
	app := newTestApplication(t, testConfig("http://127.0.0.1:1"))
	router := app.setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/worksheets/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/memos", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBuildCacheBackend(t *testing.T) {
	fs := afero.NewMemMapFs()

	b, closer, err := buildCacheBackend(context.Background(), config.CacheConfig{Backend: "memory", MemorySize: 8}, fs)
	require.NoError(t, err)
	assert.Nil(t, closer)
	assert.Equal(t, "memory", b.Name())

	b, _, err = buildCacheBackend(context.Background(), config.CacheConfig{Backend: "file", Dir: "/cache"}, fs)
	require.NoError(t, err)
	assert.Equal(t, "file", b.Name())
	exists, err := afero.DirExists(fs, "/cache")
	require.NoError(t, err)
	assert.True(t, exists)

	_, _, err = buildCacheBackend(context.Background(), config.CacheConfig{Backend: "redis", RedisURL: "not a url"}, fs)
	assert.Error(t, err)

	_, _, err = buildCacheBackend(context.Background(), config.CacheConfig{Backend: "memcached"}, fs)
	assert.Error(t, err)
}

func TestBuildGenerator(t *testing.T) {
	log, _ := logger.GetTestLogger(t)

	g, err := buildGenerator(context.Background(), log, testConfig("http://127.0.0.1:1").LLM)
	require.NoError(t, err)
	assert.NotNil(t, g)

	cfg := testConfig("").LLM
	cfg.Provider = "mistral"
	_, err = buildGenerator(context.Background(), log, cfg)
	assert.Error(t, err)
}
