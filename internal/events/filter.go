package events

import (
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/util"
)

// Filter selects the execution events a consumer is interested in
type Filter func(*api.ExecutionEvent) bool

// FilterFlows matches events raised by any of the named flows
func FilterFlows(names ...api.Name) Filter {
	lookup := util.SetOf(names...)
	return func(ev *api.ExecutionEvent) bool {
		return lookup.Contains(ev.Flow)
	}
}

// FilterStates matches events that report one of the given states
func FilterStates(states ...api.State) Filter {
	lookup := util.SetOf(states...)
	return func(ev *api.ExecutionEvent) bool {
		return lookup.Contains(ev.State)
	}
}

// FilterExecution matches the events of a single execution
func FilterExecution(id string) Filter {
	return func(ev *api.ExecutionEvent) bool {
		return ev.ID == id
	}
}

// FilterTerminal matches completed and failed events
func FilterTerminal() Filter {
	return func(ev *api.ExecutionEvent) bool {
		return ev.State.IsTerminal()
	}
}

// AcceptAll matches every event
func AcceptAll(*api.ExecutionEvent) bool {
	return true
}

// OrFilters matches when any filter matches
func OrFilters(filters ...Filter) Filter {
	return func(ev *api.ExecutionEvent) bool {
		for _, filter := range filters {
			if filter(ev) {
				return true
			}
		}
		return false
	}
}

// AndFilters matches when every filter matches
func AndFilters(filters ...Filter) Filter {
	return func(ev *api.ExecutionEvent) bool {
		for _, filter := range filters {
			if !filter(ev) {
				return false
			}
		}
		return true
	}
}
