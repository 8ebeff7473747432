package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/pkg/api"
)

func TestFilterFlows(t *testing.T) {
	filter := events.FilterFlows("image", "lyrics")

	assert.True(t, filter(&api.ExecutionEvent{Flow: "image"}))
	assert.True(t, filter(&api.ExecutionEvent{Flow: "lyrics"}))
	assert.False(t, filter(&api.ExecutionEvent{Flow: "moodboard"}))
}

func TestFilterStates(t *testing.T) {
	filter := events.FilterStates(api.StateCompleted)

	assert.True(t, filter(&api.ExecutionEvent{State: api.StateCompleted}))
	assert.False(t, filter(&api.ExecutionEvent{State: api.StateReceived}))
}

func TestFilterTerminal(t *testing.T) {
	filter := events.FilterTerminal()

	assert.True(t, filter(&api.ExecutionEvent{State: api.StateCompleted}))
	assert.True(t, filter(&api.ExecutionEvent{State: api.StateFailed}))
	assert.False(t, filter(&api.ExecutionEvent{State: api.StateModelInvoked}))
}

func TestFilterExecution(t *testing.T) {
	filter := events.FilterExecution("abc")

	assert.True(t, filter(&api.ExecutionEvent{ID: "abc"}))
	assert.False(t, filter(&api.ExecutionEvent{ID: "def"}))
}

func TestCombinedFilters(t *testing.T) {
	image := events.FilterFlows("image")
	done := events.FilterTerminal()

	and := events.AndFilters(image, done)
	or := events.OrFilters(image, done)

	imageDone := &api.ExecutionEvent{Flow: "image", State: api.StateFailed}
	imageBusy := &api.ExecutionEvent{Flow: "image", State: api.StateReceived}
	otherDone := &api.ExecutionEvent{Flow: "other", State: api.StateCompleted}
	otherBusy := &api.ExecutionEvent{Flow: "other", State: api.StateReceived}

	assert.True(t, and(imageDone))
	assert.False(t, and(imageBusy))
	assert.False(t, and(otherDone))

	assert.True(t, or(imageBusy))
	assert.True(t, or(otherDone))
	assert.False(t, or(otherBusy))

	assert.True(t, events.AcceptAll(otherBusy))
}
