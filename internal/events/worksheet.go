package events

import (
	"errors"

	"github.com/google/uuid"
)

// TypeWorksheetGeneration requests generation of a worksheet's task set.
const TypeWorksheetGeneration = "worksheet_generation"

// ErrInvalidPayload is returned for malformed event payloads.
var ErrInvalidPayload = errors.New("invalid event payload")

// WorksheetGenerationPayload is the payload of a TypeWorksheetGeneration event.
type WorksheetGenerationPayload struct {
	WorksheetID uuid.UUID `json:"worksheet_id"`
	NumTasks    int       `json:"num_tasks"`
}

// Validate checks that the payload names a worksheet and a positive count.
func (p WorksheetGenerationPayload) Validate() error {
	if p.WorksheetID == uuid.Nil {
		return errors.Join(ErrInvalidPayload, errors.New("worksheet_id is required"))
	}
	if p.NumTasks <= 0 {
		return errors.Join(ErrInvalidPayload, errors.New("num_tasks must be positive"))
	}
	return nil
}

// NewWorksheetGenerationEvent builds a TypeWorksheetGeneration event.
func NewWorksheetGenerationEvent(worksheetID uuid.UUID, numTasks int) (*TaskRequestEvent, error) {
	payload := WorksheetGenerationPayload{WorksheetID: worksheetID, NumTasks: numTasks}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return NewTaskRequestEvent(TypeWorksheetGeneration, payload)
}
