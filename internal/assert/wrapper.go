package assert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/config"
	"github.com/kode4food/atelier/pkg/api"
)

// Wrapper wraps testify assertions with flow-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *require.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 10 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus flow-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    require.New(t),
	}
}

// DefinitionValid asserts that a flow definition is valid
func (w *Wrapper) DefinitionValid(def *api.FlowDefinition) {
	w.Helper()
	w.NoError(def.Validate())
	w.NotEmpty(def.Name)

	switch def.Kind() {
	case api.FlowKindTemplate, api.FlowKindDirect:
		w.NotEmpty(def.Model, "model flows should name a model")
	case api.FlowKindFanOut:
		w.NotEmpty(def.FanOut.Flow, "fan-out flows should name a sub-flow")
	case api.FlowKindHandler:
		w.NotNil(def.Handler)
	}
}

// DefinitionInvalid asserts that a flow definition is invalid and returns
// the validation error
func (w *Wrapper) DefinitionInvalid(
	def *api.FlowDefinition, expected error,
) error {
	w.Helper()
	err := def.Validate()
	w.Error(err)
	if expected != nil {
		w.ErrorIs(err, expected)
	}
	return err
}

// FlowFailed asserts that err is a FlowError of the given kind raised by the
// named flow at the given stage
func (w *Wrapper) FlowFailed(
	err error, flow api.Name, kind api.ErrorKind, stage api.Stage,
) *api.FlowError {
	w.Helper()
	fe, ok := api.AsFlowError(err)
	w.Require.True(ok, "expected a flow error, got %v", err)
	w.Equal(flow, fe.Flow)
	w.Equal(kind, fe.Kind)
	w.Equal(stage, fe.Stage)
	return fe
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= config.MaxTCPPort)
	w.True(cfg.Model.Timeout > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, expected error) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if expected != nil {
		w.ErrorIs(err, expected)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
