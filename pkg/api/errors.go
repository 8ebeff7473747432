package api

import (
	"errors"
	"fmt"
)

type (
	// FlowError is the typed failure surfaced by the executor. It names the
	// flow, the stage that failed and the kind of failure
	FlowError struct {
		Err   error     `json:"-"`
		Kind  ErrorKind `json:"kind"`
		Flow  Name      `json:"flow"`
		Stage Stage     `json:"stage"`
	}

	// ItemError identifies the fan-out item whose sub-flow failed
	ItemError struct {
		Err   error
		Index int
	}

	// ErrorKind tags a FlowError
	ErrorKind string

	// Stage is the executor activity during which a failure occurred
	Stage string
)

const (
	KindInputValidation  ErrorKind = "InputValidationError"
	KindModelInvocation  ErrorKind = "ModelInvocationError"
	KindEmptyOutput      ErrorKind = "EmptyOutputError"
	KindOutputValidation ErrorKind = "OutputValidationError"
	KindFanOutPartial    ErrorKind = "FanOutPartialFailure"
)

const (
	StageValidateInput  Stage = "validate_input"
	StageRenderPrompt   Stage = "render_prompt"
	StageInvokeModel    Stage = "invoke_model"
	StageInvokeHandler  Stage = "invoke_handler"
	StageFanOut         Stage = "fan_out"
	StageValidateOutput Stage = "validate_output"
)

var (
	ErrInputValidation  = errors.New("input validation failed")
	ErrModelInvocation  = errors.New("model invocation failed")
	ErrEmptyOutput      = errors.New("model produced no usable output")
	ErrOutputValidation = errors.New("output validation failed")
	ErrFanOutPartial    = errors.New("fan-out item failed")
)

var kindErrors = map[ErrorKind]error{
	KindInputValidation:  ErrInputValidation,
	KindModelInvocation:  ErrModelInvocation,
	KindEmptyOutput:      ErrEmptyOutput,
	KindOutputValidation: ErrOutputValidation,
	KindFanOutPartial:    ErrFanOutPartial,
}

// NewFlowError creates a FlowError of the given kind
func NewFlowError(kind ErrorKind, flow Name, stage Stage, err error) *FlowError {
	return &FlowError{
		Kind:  kind,
		Flow:  flow,
		Stage: stage,
		Err:   err,
	}
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow %q failed at %s: %s: %v",
		e.Flow, e.Stage, e.Kind, e.Err)
}

// Is matches the sentinel error of the FlowError's kind
func (e *FlowError) Is(target error) bool {
	return kindErrors[e.Kind] == target
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// AsFlowError extracts the outermost FlowError from err
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
