package api

import "time"

type (
	// ExecutionEvent reports a state transition of a single flow execution
	ExecutionEvent struct {
		Timestamp time.Time `json:"timestamp"`
		ID        string    `json:"id"`
		Flow      Name      `json:"flow"`
		State     State     `json:"state"`
		Kind      ErrorKind `json:"kind,omitempty"`
		Error     string    `json:"error,omitempty"`
	}

	// State is a step of the single-request state machine
	State string
)

const (
	StateReceived        State = "received"
	StateInputValidated  State = "input_validated"
	StatePromptRendered  State = "prompt_rendered"
	StateModelInvoked    State = "model_invoked"
	StateOutputValidated State = "output_validated"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// IsTerminal reports whether no further transitions follow the state
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}
