package helpers

import (
	"context"
	"sync"
	"time"

	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/pkg/api"
)

// MockModel is a recording model.Client for tests. Responses, errors and
// delays are keyed by the rendered prompt; invocations without a matching
// key get the default response
type MockModel struct {
	responses   map[string]*api.InvocationResult
	errors      map[string]error
	delays      map[string]time.Duration
	fallback    *api.InvocationResult
	fallbackErr error
	invoked     []*api.ModelInvocationSpec
	invokedCh   chan struct{}
	mu          sync.Mutex
}

var _ model.Client = (*MockModel)(nil)

// NewMockModel creates a mock model that returns an empty result until
// configured otherwise
func NewMockModel() *MockModel {
	return &MockModel{
		responses: map[string]*api.InvocationResult{},
		errors:    map[string]error{},
		delays:    map[string]time.Duration{},
		invokedCh: make(chan struct{}, 1),
	}
}

// Invoke records the invocation and returns the configured result or error.
// A configured delay is cut short by context cancellation
func (m *MockModel) Invoke(
	ctx context.Context, spec *api.ModelInvocationSpec,
) (*api.InvocationResult, error) {
	m.mu.Lock()
	cp := *spec
	m.invoked = append(m.invoked, &cp)
	delay := m.delays[spec.Prompt]
	err, hasErr := m.errors[spec.Prompt]
	res, hasRes := m.responses[spec.Prompt]
	if !hasErr {
		err = m.fallbackErr
	}
	if !hasRes {
		res = m.fallback
	}
	select {
	case m.invokedCh <- struct{}{}:
	default:
	}
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

// SetResponse configures the result returned for a prompt
func (m *MockModel) SetResponse(prompt string, res *api.InvocationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = res
}

// SetOutput configures the structured output returned for a prompt
func (m *MockModel) SetOutput(prompt string, out api.Args) {
	m.SetResponse(prompt, &api.InvocationResult{Output: out})
}

// SetMedia configures the media URI returned for a prompt
func (m *MockModel) SetMedia(prompt, uri string) {
	m.SetResponse(prompt, &api.InvocationResult{
		Media: &api.MediaDescriptor{URI: uri, MIMEType: "image/png"},
	})
}

// SetError configures the error returned for a prompt
func (m *MockModel) SetError(prompt string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[prompt] = err
}

// SetDelay holds the response for a prompt back by d
func (m *MockModel) SetDelay(prompt string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[prompt] = d
}

// SetDefault configures the result for prompts without a specific response
func (m *MockModel) SetDefault(res *api.InvocationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = res
}

// SetDefaultOutput configures the structured output for prompts without a
// specific response
func (m *MockModel) SetDefaultOutput(out api.Args) {
	m.SetDefault(&api.InvocationResult{Output: out})
}

// SetDefaultError configures the error for prompts without a specific error
func (m *MockModel) SetDefaultError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbackErr = err
}

// Invocations returns copies of every spec received, in arrival order
func (m *MockModel) Invocations() []*api.ModelInvocationSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*api.ModelInvocationSpec, len(m.invoked))
	copy(res, m.invoked)
	return res
}

// Prompts returns the prompts received, in arrival order
func (m *MockModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]string, len(m.invoked))
	for i, spec := range m.invoked {
		res[i] = spec.Prompt
	}
	return res
}

// CallCount returns the number of invocations received
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoked)
}

// LastInvocation returns the most recent spec received, or nil
func (m *MockModel) LastInvocation() *api.ModelInvocationSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.invoked) == 0 {
		return nil
	}
	return m.invoked[len(m.invoked)-1]
}

// WaitForInvocation blocks until any invocation has been received or the
// timeout expires
func (m *MockModel) WaitForInvocation(timeout time.Duration) bool {
	if m.CallCount() > 0 {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.invokedCh:
		return true
	case <-timer.C:
		return m.CallCount() > 0
	}
}
