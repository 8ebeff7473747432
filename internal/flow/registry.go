package flow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kode4food/atelier/internal/prompt"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/util/call"
)

type (
	// Registry is the explicit, read-only mapping from flow name to its
	// validated definition
	Registry struct {
		flows map[api.Name]*entry
		names []api.Name
	}

	entry struct {
		def   *api.FlowDefinition
		check *script.Check
	}
)

var (
	ErrFlowNotFound      = errors.New("flow not found")
	ErrNotRegistered     = errors.New("definition is not the registered flow")
	ErrInvalidDefinition = errors.New("invalid flow definition")
	ErrDuplicateFlow     = errors.New("duplicate flow name")
	ErrUnknownSubFlow    = errors.New("fan-out references unknown flow")
	ErrNestedFanOut      = errors.New("fan-out sub-flow cannot fan out")
	ErrSubFlowMismatch   = errors.New("fan-out sub-flow schema mismatch")
)

// NewRegistry validates every definition, compiles its check script and
// resolves fan-out sub-flows. Definitions must not be modified afterwards
func NewRegistry(
	scripts *script.Registry, defs ...*api.FlowDefinition,
) (*Registry, error) {
	res := &Registry{
		flows: make(map[api.Name]*entry, len(defs)),
		names: make([]api.Name, 0, len(defs)),
	}

	for _, def := range defs {
		if def == nil {
			return nil, fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
		}
		err := call.Perform(
			def.Validate,
			call.WithArg(checkTemplate, def),
			call.WithArg(res.checkUnique, def.Name),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: flow %q: %w",
				ErrInvalidDefinition, def.Name, err)
		}
		check, err := scripts.CompileCheck(def)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
		}
		res.flows[def.Name] = &entry{def: def, check: check}
		res.names = append(res.names, def.Name)
	}
	slices.Sort(res.names)

	for _, name := range res.names {
		if err := res.checkFanOut(res.flows[name].def); err != nil {
			return nil, fmt.Errorf("%w: flow %q: %w",
				ErrInvalidDefinition, name, err)
		}
	}
	return res, nil
}

// Get returns the definition registered under name
func (r *Registry) Get(name api.Name) (*api.FlowDefinition, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.def, nil
}

// List returns every registered definition ordered by name
func (r *Registry) List() []*api.FlowDefinition {
	res := make([]*api.FlowDefinition, len(r.names))
	for i, name := range r.names {
		res[i] = r.flows[name].def
	}
	return res
}

// Names returns the registered flow names in lexical order
func (r *Registry) Names() []api.Name {
	return slices.Clone(r.names)
}

// Len returns the number of registered flows
func (r *Registry) Len() int {
	return len(r.names)
}

func (r *Registry) checkUnique(name api.Name) error {
	if _, ok := r.flows[name]; ok {
		return ErrDuplicateFlow
	}
	return nil
}

func checkTemplate(def *api.FlowDefinition) error {
	if def.Template == nil {
		return nil
	}
	return prompt.Check(def.Template, def.Input)
}

func (r *Registry) lookup(name api.Name) (*entry, error) {
	if e, ok := r.flows[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, name)
}

func (r *Registry) checkFanOut(def *api.FlowDefinition) error {
	f := def.FanOut
	if f == nil {
		return nil
	}
	sub, ok := r.flows[f.Flow]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubFlow, f.Flow)
	}
	if sub.def.FanOut != nil {
		return fmt.Errorf("%w: %s", ErrNestedFanOut, f.Flow)
	}
	if _, ok := sub.def.Input[f.As]; !ok {
		return fmt.Errorf("%w: %s has no input %q",
			ErrSubFlowMismatch, f.Flow, f.As)
	}
	if _, ok := sub.def.Output[f.Collect]; !ok {
		return fmt.Errorf("%w: %s has no output %q",
			ErrSubFlowMismatch, f.Flow, f.Collect)
	}
	return nil
}
