package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/phrazzld/worksheetgen/internal/domain"
	"github.com/phrazzld/worksheetgen/internal/platform/logger"
)

// errDrop marks a candidate that is skipped rather than failing the batch.
var errDrop = errors.New("candidate dropped")

// Validator filters a RawResponse into well-formed task records.
type Validator struct {
	logger *slog.Logger
}

// NewValidator creates a Validator. A nil logger uses slog.Default().
func NewValidator(l *slog.Logger) *Validator {
	if l == nil {
		l = slog.Default()
	}
	return &Validator{logger: l.With(slog.String("component", "response_validator"))}
}

// Validate returns the candidates of raw that have a known task type, a
// non-empty question and a task_data payload of the right shape, in their
// original order and re-indexed from zero.
//
// Individual bad candidates are dropped and logged. The whole response is
// rejected with ErrMalformedResponse only when the tasks array is missing.
// The result is never nil; it is empty when nothing survived.
func (v *Validator) Validate(ctx context.Context, raw RawResponse) ([]domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, v.logger)

	if raw == nil {
		return nil, fmt.Errorf("%w: response is empty", ErrMalformedResponse)
	}
	rawTasks, ok := raw["tasks"]
	if !ok {
		return nil, fmt.Errorf("%w: missing 'tasks' key", ErrMalformedResponse)
	}
	candidates, ok := rawTasks.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: 'tasks' is %T, not an array", ErrMalformedResponse, rawTasks)
	}

	out := make([]domain.TaskRecord, 0, len(candidates))
	for i, c := range candidates {
		rec, err := parseCandidate(c)
		if err != nil {
			log.WarnContext(ctx, "skipping invalid task",
				slog.Int("index", i),
				slog.String("reason", err.Error()))
			continue
		}
		rec.OrderIndex = len(out)
		out = append(out, rec)
	}

	log.InfoContext(ctx, "validated generated tasks",
		slog.Int("candidates", len(candidates)),
		slog.Int("accepted", len(out)),
		slog.Int("dropped", len(candidates)-len(out)))

	return out, nil
}

func parseCandidate(c any) (domain.TaskRecord, error) {
	obj, ok := c.(map[string]any)
	if !ok {
		return domain.TaskRecord{}, dropf("candidate is %T, not an object", c)
	}

	rawType, hasType := obj["task_type"]
	rawQuestion, hasQuestion := obj["question"]
	rawData, hasData := obj["task_data"]
	if !hasType || !hasQuestion || !hasData {
		return domain.TaskRecord{}, dropf("missing required fields")
	}

	typeName, ok := rawType.(string)
	if !ok {
		return domain.TaskRecord{}, dropf("task_type is %T, not a string", rawType)
	}
	taskType, err := domain.ParseTaskType(typeName)
	if err != nil {
		return domain.TaskRecord{}, dropf("invalid task type %q", typeName)
	}

	question, ok := rawQuestion.(string)
	if !ok || question == "" {
		return domain.TaskRecord{}, dropf("question must be a non-empty string")
	}

	fields, ok := rawData.(map[string]any)
	if !ok {
		return domain.TaskRecord{}, dropf("task_data is %T, not an object", rawData)
	}

	var data domain.TaskData
	switch taskType {
	case domain.TaskTypeMultipleChoice:
		data, err = parseMultipleChoice(fields)
	case domain.TaskTypeFillBlank:
		data, err = parseFillBlank(fields)
	case domain.TaskTypeShortAnswer:
		data, err = parseShortAnswer(fields)
	case domain.TaskTypeDragDrop:
		data, err = parseDragDrop(fields)
	}
	if err != nil {
		return domain.TaskRecord{}, err
	}

	rec := domain.TaskRecord{TaskType: taskType, Question: question, Data: data}
	if err := rec.Validate(); err != nil {
		return domain.TaskRecord{}, dropf("%v", err)
	}
	return rec, nil
}

func parseMultipleChoice(f map[string]any) (domain.TaskData, error) {
	options, err := requiredStrings(f, "options")
	if err != nil {
		return nil, err
	}
	answer, err := requiredInt(f, "correct_answer")
	if err != nil {
		return nil, err
	}
	explanation, err := optionalString(f, "explanation")
	if err != nil {
		return nil, err
	}
	return domain.MultipleChoiceData{
		Options:       options,
		CorrectAnswer: answer,
		Explanation:   explanation,
	}, nil
}

func parseFillBlank(f map[string]any) (domain.TaskData, error) {
	answers, err := requiredStrings(f, "correct_answers")
	if err != nil {
		return nil, err
	}
	raw, ok := f["case_sensitive"]
	if !ok {
		return nil, dropf("case_sensitive is required")
	}
	caseSensitive, ok := raw.(bool)
	if !ok {
		return nil, dropf("case_sensitive is %T, not a boolean", raw)
	}
	explanation, err := optionalString(f, "explanation")
	if err != nil {
		return nil, err
	}
	return domain.FillBlankData{
		CorrectAnswers: answers,
		CaseSensitive:  caseSensitive,
		Explanation:    explanation,
	}, nil
}

func parseShortAnswer(f map[string]any) (domain.TaskData, error) {
	raw, ok := f["sample_answer"]
	if !ok {
		return nil, dropf("sample_answer is required")
	}
	sample, ok := raw.(string)
	if !ok {
		return nil, dropf("sample_answer is %T, not a string", raw)
	}

	d := domain.ShortAnswerData{SampleAnswer: sample}
	if present(f, "key_points") {
		points, err := stringSlice(f["key_points"], "key_points")
		if err != nil {
			return nil, err
		}
		d.KeyPoints = points
	}
	if present(f, "max_length") {
		n, err := requiredInt(f, "max_length")
		if err != nil {
			return nil, err
		}
		d.MaxLength = n
	}
	return d, nil
}

func parseDragDrop(f map[string]any) (domain.TaskData, error) {
	items, err := requiredStrings(f, "items")
	if err != nil {
		return nil, err
	}
	targets, err := requiredStrings(f, "targets")
	if err != nil {
		return nil, err
	}
	raw, ok := f["correct_matches"].(map[string]any)
	if !ok {
		return nil, dropf("correct_matches must be an object")
	}
	matches := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := scalarString(v)
		if !ok {
			return nil, dropf("correct_matches[%q] is %T, not a scalar", k, v)
		}
		matches[k] = s
	}
	return domain.DragDropData{Items: items, Targets: targets, CorrectMatches: matches}, nil
}

func requiredStrings(f map[string]any, key string) ([]string, error) {
	raw, ok := f[key]
	if !ok {
		return nil, dropf("%s is required", key)
	}
	out, err := stringSlice(raw, key)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, dropf("%s cannot be empty", key)
	}
	return out, nil
}

// stringSlice accepts arrays of scalars. Numbers and booleans are kept in
// their JSON spelling, so [3,4] becomes ["3","4"].
func stringSlice(raw any, key string) ([]string, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, dropf("%s is %T, not an array", key, raw)
	}
	out := make([]string, len(list))
	for i, v := range list {
		s, ok := scalarString(v)
		if !ok {
			return nil, dropf("%s[%d] is %T, not a scalar", key, i, v)
		}
		out[i] = s
	}
	return out, nil
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// present reports whether an optional field is set. JSON null counts as
// absent.
func present(f map[string]any, key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

func optionalString(f map[string]any, key string) (string, error) {
	if !present(f, key) {
		return "", nil
	}
	raw := f[key]
	s, ok := raw.(string)
	if !ok {
		return "", dropf("%s is %T, not a string", key, raw)
	}
	return s, nil
}

// requiredInt accepts JSON numbers that hold a whole value.
func requiredInt(f map[string]any, key string) (int, error) {
	raw, ok := f[key]
	if !ok {
		return 0, dropf("%s is required", key)
	}
	switch n := raw.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return 0, dropf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i > math.MaxInt32 || i < math.MinInt32 {
			return 0, dropf("%s must be an integer, got %s", key, n)
		}
		return int(i), nil
	case int:
		return n, nil
	default:
		return 0, dropf("%s is %T, not a number", key, raw)
	}
}

func dropf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errDrop, fmt.Sprintf(format, args...))
}
