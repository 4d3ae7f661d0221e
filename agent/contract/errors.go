package contract

import (
	"errors"
	"fmt"
)

// Request Builder failures. The user corrects the form and resubmits.
var (
	ErrMissingCredential = errors.New("browserbase api key is missing")
	ErrInvalidLocation   = errors.New("location is invalid")
	ErrInvalidDateRange  = errors.New("check-out date must be after check-in date")
	ErrInvalidPartySize  = errors.New("number of adults is out of range")
)

var (
	ErrPipelineExecution = errors.New("pipeline execution failed")

	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrToolInvoke      = errors.New("tool invoke failed")
	ErrIterationLimit  = errors.New("iteration limit reached")
)

// Pipeline stages reported by PipelineError.
const (
	StageValidate    = "validate"
	StagePlanning    = "planning"
	StageSearch      = "search"
	StageEnrich      = "enrich"
	StageFinalize    = "finalize"
	StageOrchestrate = "orchestrate"
)

// PipelineError is the single failure surfaced by a crew run. It matches
// ErrPipelineExecution and unwraps to the underlying cause.
type PipelineError struct {
	Stage string
	Err   error
}

func NewPipelineError(stage string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: stage=%s", ErrPipelineExecution, e.Stage)
	}
	return fmt.Sprintf("%s: stage=%s: %v", ErrPipelineExecution, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return target == ErrPipelineExecution
}
