package task

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/store"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID     uuid.UUID
	TaskStatus TaskStatus
	ExecuteFn  func(ctx context.Context) error
}

func newMockTask(fn func(ctx context.Context) error) *MockTask {
	if fn == nil {
		fn = func(ctx context.Context) error { return nil }
	}
	return &MockTask{TaskID: uuid.New(), TaskStatus: TaskStatusPending, ExecuteFn: fn}
}

func (t *MockTask) ID() uuid.UUID                     { return t.TaskID }
func (t *MockTask) Type() string                      { return "mock_task" }
func (t *MockTask) Payload() []byte                   { return []byte("{}") }
func (t *MockTask) Status() TaskStatus                { return t.TaskStatus }
func (t *MockTask) Execute(ctx context.Context) error { return t.ExecuteFn(ctx) }

// fakeRepo is an in-memory WorksheetRepository.
type fakeRepo struct {
	mu         sync.Mutex
	worksheets map[uuid.UUID]*domain.Worksheet
	tasks      map[uuid.UUID][]domain.TaskRecord
	statuses   []domain.WorksheetStatus
	replaceErr error
	statusErr  error
}

func newFakeRepo(ws ...*domain.Worksheet) *fakeRepo {
	r := &fakeRepo{
		worksheets: make(map[uuid.UUID]*domain.Worksheet),
		tasks:      make(map[uuid.UUID][]domain.TaskRecord),
	}
	for _, w := range ws {
		r.worksheets[w.ID] = w
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Worksheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.worksheets[id]
	if !ok {
		return nil, store.ErrWorksheetNotFound
	}
	cp := *ws
	return &cp, nil
}

func (r *fakeRepo) SetStatus(_ context.Context, id uuid.UUID, status domain.WorksheetStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	if r.statusErr != nil {
		return r.statusErr
	}
	ws, ok := r.worksheets[id]
	if !ok {
		return store.ErrWorksheetNotFound
	}
	ws.Status = status
	return nil
}

func (r *fakeRepo) ReplaceTasks(_ context.Context, id uuid.UUID, tasks []domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.tasks[id] = domain.CloneTasks(tasks)
	return nil
}

func (r *fakeRepo) status(id uuid.UUID) domain.WorksheetStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.worksheets[id].Status
}

// fakeEnsurer returns scripted results, one per call; the last result repeats.
type fakeEnsurer struct {
	mu      sync.Mutex
	results []ensureResult
	calls   int
	texts   []string
}

type ensureResult struct {
	tasks []domain.TaskRecord
	err   error
}

func (e *fakeEnsurer) EnsureTasks(_ context.Context, text string, _ int) ([]domain.TaskRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	if i >= len(e.results) {
		i = len(e.results) - 1
	}
	e.calls++
	e.texts = append(e.texts, text)
	return e.results[i].tasks, e.results[i].err
}

func (e *fakeEnsurer) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func testWorksheet() *domain.Worksheet {
	ws, err := domain.NewWorksheet("notes.pdf", "Notes.pdf", domain.FileTypePDF, "2+2=4")
	if err != nil {
		panic(err)
	}
	return ws
}

func oneTask() []domain.TaskRecord {
	return []domain.TaskRecord{{
		TaskType:   domain.TaskTypeMultipleChoice,
		Question:   "What is 2+2?",
		Data:       domain.MultipleChoiceData{Options: []string{"3", "4"}, CorrectAnswer: 1},
		OrderIndex: 0,
	}}
}
