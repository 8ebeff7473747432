package wait

import (
	"testing"
	"time"

	"github.com/kode4food/caravan/topic"

	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/pkg/api"
)

// Wait reads execution events from a consumer until a condition holds
type Wait struct {
	t        *testing.T
	consumer topic.Consumer[*api.ExecutionEvent]
	timeout  time.Duration
}

const DefaultTimeout = time.Second * 5

// On creates a waiter for the consumer. Create the consumer before
// triggering the action being waited on
func On(t *testing.T, consumer topic.Consumer[*api.ExecutionEvent]) *Wait {
	return &Wait{
		t:        t,
		consumer: consumer,
		timeout:  DefaultTimeout,
	}
}

// WithTimeout returns a copy of the waiter using a different timeout
func (w *Wait) WithTimeout(timeout time.Duration) *Wait {
	res := *w
	res.timeout = timeout
	return &res
}

// ForEvents waits for count matching events and returns them
func (w *Wait) ForEvents(
	count int, filter events.Filter,
) []*api.ExecutionEvent {
	w.t.Helper()

	deadline := time.NewTimer(w.timeout)
	defer deadline.Stop()

	var res []*api.ExecutionEvent
	for len(res) < count {
		select {
		case ev, ok := <-w.consumer.Receive():
			if !ok {
				w.t.Fatalf(
					"event consumer closed before receiving %d events", count,
				)
			}
			if filter(ev) {
				res = append(res, ev)
			}
		case <-deadline.C:
			w.t.Fatalf("timeout waiting for %d events", count)
		}
	}
	return res
}

// ForEvent waits for a single matching event
func (w *Wait) ForEvent(filter events.Filter) *api.ExecutionEvent {
	w.t.Helper()
	return w.ForEvents(1, filter)[0]
}

// Completed matches completion of the named flows
func Completed(flows ...api.Name) events.Filter {
	return events.AndFilters(
		events.FilterStates(api.StateCompleted),
		events.FilterFlows(flows...),
	)
}

// Failed matches failure of the named flows
func Failed(flows ...api.Name) events.Filter {
	return events.AndFilters(
		events.FilterStates(api.StateFailed),
		events.FilterFlows(flows...),
	)
}

// Terminal matches completion or failure of the named flows
func Terminal(flows ...api.Name) events.Filter {
	return events.AndFilters(
		events.FilterTerminal(),
		events.FilterFlows(flows...),
	)
}
