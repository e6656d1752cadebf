package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
)

// TaskType identifies which exercise variant a task is.
type TaskType string

// Supported task variants
const (
	TaskTypeMultipleChoice TaskType = "multiple_choice"
	TaskTypeFillBlank      TaskType = "fill_blank"
	TaskTypeShortAnswer    TaskType = "short_answer"
	TaskTypeDragDrop       TaskType = "drag_drop"
)

// Validation errors for tasks
var (
	ErrUnknownTaskType   = errors.New("unknown task type")
	ErrEmptyQuestion     = errors.New("task question cannot be empty")
	ErrNegativeOrder     = errors.New("task order index cannot be negative")
	ErrMissingTaskData   = errors.New("task data is required")
	ErrTaskDataMismatch  = errors.New("task data does not match task type")
	ErrInvalidTaskData   = errors.New("invalid task data")
	ErrNonContiguousTask = errors.New("task order indices must be contiguous from zero")
)

// TaskTypes returns the supported task variants in prompt order.
func TaskTypes() []TaskType {
	return []TaskType{
		TaskTypeMultipleChoice,
		TaskTypeFillBlank,
		TaskTypeShortAnswer,
		TaskTypeDragDrop,
	}
}

// Valid reports whether t is one of the known variants.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeMultipleChoice, TaskTypeFillBlank, TaskTypeShortAnswer, TaskTypeDragDrop:
		return true
	default:
		return false
	}
}

// ParseTaskType converts s into a TaskType.
// Matching is exact: the generator is instructed to emit lower-case names.
func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTaskType, s)
	}
	return t, nil
}

// TaskData is the type-specific payload of a task. The set of
// implementations is closed: one struct per TaskType.
type TaskData interface {
	// Type returns the TaskType this payload belongs to.
	Type() TaskType

	// Validate checks the payload shape.
	Validate() error

	// Check grades a learner's answer as decoded from JSON.
	Check(answer any) (CheckResult, error)

	isTaskData()
}

// MultipleChoiceData is the payload for TaskTypeMultipleChoice.
type MultipleChoiceData struct {
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

func (MultipleChoiceData) Type() TaskType { return TaskTypeMultipleChoice }
func (MultipleChoiceData) isTaskData()    {}

// Validate requires at least one option and an in-range answer index.
func (d MultipleChoiceData) Validate() error {
	if len(d.Options) == 0 {
		return fmt.Errorf("%w: options cannot be empty", ErrInvalidTaskData)
	}
	if d.CorrectAnswer < 0 || d.CorrectAnswer >= len(d.Options) {
		return fmt.Errorf("%w: correct_answer %d out of range [0,%d)",
			ErrInvalidTaskData, d.CorrectAnswer, len(d.Options))
	}
	return nil
}

// FillBlankData is the payload for TaskTypeFillBlank.
type FillBlankData struct {
	CorrectAnswers []string `json:"correct_answers"`
	CaseSensitive  bool     `json:"case_sensitive"`
	Explanation    string   `json:"explanation,omitempty"`
}

func (FillBlankData) Type() TaskType { return TaskTypeFillBlank }
func (FillBlankData) isTaskData()    {}

// Validate requires at least one accepted answer.
func (d FillBlankData) Validate() error {
	if len(d.CorrectAnswers) == 0 {
		return fmt.Errorf("%w: correct_answers cannot be empty", ErrInvalidTaskData)
	}
	return nil
}

// ShortAnswerData is the payload for TaskTypeShortAnswer.
type ShortAnswerData struct {
	SampleAnswer string   `json:"sample_answer"`
	KeyPoints    []string `json:"key_points,omitempty"`
	MaxLength    int      `json:"max_length,omitempty"`
}

func (ShortAnswerData) Type() TaskType { return TaskTypeShortAnswer }
func (ShortAnswerData) isTaskData()    {}

// Validate requires a sample answer.
func (d ShortAnswerData) Validate() error {
	if d.SampleAnswer == "" {
		return fmt.Errorf("%w: sample_answer cannot be empty", ErrInvalidTaskData)
	}
	if d.MaxLength < 0 {
		return fmt.Errorf("%w: max_length cannot be negative", ErrInvalidTaskData)
	}
	return nil
}

// DragDropData is the payload for TaskTypeDragDrop.
type DragDropData struct {
	Items          []string          `json:"items"`
	Targets        []string          `json:"targets"`
	CorrectMatches map[string]string `json:"correct_matches"`
}

func (DragDropData) Type() TaskType { return TaskTypeDragDrop }
func (DragDropData) isTaskData()    {}

// Validate requires items and targets of equal length and a match for every
// item that points at one of the targets.
func (d DragDropData) Validate() error {
	if len(d.Items) == 0 {
		return fmt.Errorf("%w: items cannot be empty", ErrInvalidTaskData)
	}
	if len(d.Items) != len(d.Targets) {
		return fmt.Errorf("%w: %d items but %d targets",
			ErrInvalidTaskData, len(d.Items), len(d.Targets))
	}

	targets := make(map[string]struct{}, len(d.Targets))
	for _, t := range d.Targets {
		targets[t] = struct{}{}
	}
	for _, item := range d.Items {
		target, ok := d.CorrectMatches[item]
		if !ok {
			return fmt.Errorf("%w: no match for item %q", ErrInvalidTaskData, item)
		}
		if _, ok := targets[target]; !ok {
			return fmt.Errorf("%w: item %q matched to unknown target %q",
				ErrInvalidTaskData, item, target)
		}
	}
	return nil
}

// TaskRecord is a single validated exercise within a worksheet's task set.
// ID is assigned when the set is persisted and is zero before that.
type TaskRecord struct {
	ID         uuid.UUID
	TaskType   TaskType
	Question   string
	Data       TaskData
	OrderIndex int
}

// Validate checks the record and its payload.
func (t TaskRecord) Validate() error {
	if !t.TaskType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, t.TaskType)
	}
	if t.Question == "" {
		return ErrEmptyQuestion
	}
	if t.OrderIndex < 0 {
		return ErrNegativeOrder
	}
	if t.Data == nil {
		return ErrMissingTaskData
	}
	if t.Data.Type() != t.TaskType {
		return fmt.Errorf("%w: %s payload on %s task", ErrTaskDataMismatch, t.Data.Type(), t.TaskType)
	}
	return t.Data.Validate()
}

// taskRecordJSON is the wire form shared by the cache and the API.
type taskRecordJSON struct {
	ID         *uuid.UUID      `json:"id,omitempty"`
	TaskType   TaskType        `json:"task_type"`
	Question   string          `json:"question"`
	TaskData   json.RawMessage `json:"task_data"`
	OrderIndex int             `json:"order_index"`
}

// MarshalJSON implements json.Marshaler.
func (t TaskRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(t.Data)
	if err != nil {
		return nil, err
	}
	var id *uuid.UUID
	if t.ID != uuid.Nil {
		id = &t.ID
	}
	return json.Marshal(taskRecordJSON{
		ID:         id,
		TaskType:   t.TaskType,
		Question:   t.Question,
		TaskData:   data,
		OrderIndex: t.OrderIndex,
	})
}

// UnmarshalJSON implements json.Unmarshaler. The payload is decoded into the
// concrete type selected by task_type.
func (t *TaskRecord) UnmarshalJSON(b []byte) error {
	var raw taskRecordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	data, err := DecodeTaskData(raw.TaskType, raw.TaskData)
	if err != nil {
		return err
	}
	*t = TaskRecord{
		TaskType:   raw.TaskType,
		Question:   raw.Question,
		Data:       data,
		OrderIndex: raw.OrderIndex,
	}
	if raw.ID != nil {
		t.ID = *raw.ID
	}
	return nil
}

// DecodeTaskData decodes a strictly typed JSON payload for the given type.
func DecodeTaskData(taskType TaskType, b []byte) (TaskData, error) {
	switch taskType {
	case TaskTypeMultipleChoice:
		var d MultipleChoiceData
		err := json.Unmarshal(b, &d)
		return d, err
	case TaskTypeFillBlank:
		var d FillBlankData
		err := json.Unmarshal(b, &d)
		return d, err
	case TaskTypeShortAnswer:
		var d ShortAnswerData
		err := json.Unmarshal(b, &d)
		return d, err
	case TaskTypeDragDrop:
		var d DragDropData
		err := json.Unmarshal(b, &d)
		return d, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
}

// ValidateTaskSet checks every record and that order indices run 0..N-1.
func ValidateTaskSet(tasks []TaskRecord) error {
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i, err)
		}
		if t.OrderIndex != i {
			return fmt.Errorf("%w: task %d has order index %d", ErrNonContiguousTask, i, t.OrderIndex)
		}
	}
	return nil
}

// CloneTasks returns a deep copy of tasks. Payload slices and maps are
// copied so the result can be modified without affecting the source.
func CloneTasks(tasks []TaskRecord) []TaskRecord {
	if tasks == nil {
		return nil
	}
	out := make([]TaskRecord, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].Data = cloneTaskData(t.Data)
	}
	return out
}

func cloneTaskData(d TaskData) TaskData {
	switch v := d.(type) {
	case MultipleChoiceData:
		v.Options = slices.Clone(v.Options)
		return v
	case FillBlankData:
		v.CorrectAnswers = slices.Clone(v.CorrectAnswers)
		return v
	case ShortAnswerData:
		v.KeyPoints = slices.Clone(v.KeyPoints)
		return v
	case DragDropData:
		v.Items = slices.Clone(v.Items)
		v.Targets = slices.Clone(v.Targets)
		v.CorrectMatches = maps.Clone(v.CorrectMatches)
		return v
	default:
		return d
	}
}
