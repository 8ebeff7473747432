package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/internal/prompt"
	"github.com/kode4food/atelier/internal/schema"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/log"
)

type (
	// Executor runs registered flows against a model client. It holds no
	// per-request state and is safe for concurrent use
	Executor struct {
		registry *Registry
		client   model.Client
		events   events.Publisher
		newID    func() string
	}

	// Option configures an Executor
	Option func(*Executor)

	execution struct {
		*Executor
		def   *api.FlowDefinition
		check *script.Check
		id    string
	}
)

var (
	ErrNoOutput     = errors.New("no output returned")
	ErrNoMedia      = errors.New("no media URI returned")
	ErrNotAnArray   = errors.New("fan-out field is not an array")
	ErrMissingValue = errors.New("sub-flow output missing collected field")
)

// WithPublisher publishes every state transition to p
func WithPublisher(p events.Publisher) Option {
	return func(e *Executor) {
		e.events = p
	}
}

// WithIDGenerator replaces the generator of execution identifiers
func WithIDGenerator(fn func() string) Option {
	return func(e *Executor) {
		e.newID = fn
	}
}

// NewExecutor creates an executor for the flows in reg. The client is the
// only path to the generative backend
func NewExecutor(
	reg *Registry, client model.Client, opts ...Option,
) *Executor {
	e := &Executor{
		registry: reg,
		client:   client,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the flow catalog the executor serves
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Run looks up the named flow and executes it
func (e *Executor) Run(
	ctx context.Context, name api.Name, input api.Args,
) (api.Args, error) {
	def, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, def, input)
}

// Execute runs one request end to end. It returns either a value that
// satisfies the flow's output schema or a *api.FlowError. The model is
// invoked at most once and never after a failed input validation
func (e *Executor) Execute(
	ctx context.Context, def *api.FlowDefinition, input api.Args,
) (api.Args, error) {
	ent, err := e.resolve(def)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, ent, input)
}

// ExecuteAll runs one execution per input concurrently. Results are returned
// in input order. If any execution fails, the whole batch fails with a
// FanOutPartialFailure identifying the failed item, no partial results are
// returned, and the remaining executions see a cancelled context
func (e *Executor) ExecuteAll(
	ctx context.Context, def *api.FlowDefinition, inputs []api.Args,
) ([]api.Args, error) {
	ent, err := e.resolve(def)
	if err != nil {
		return nil, err
	}
	res, err := e.gather(ctx, ent, inputs)
	if err != nil {
		return nil, api.NewFlowError(
			api.KindFanOutPartial, def.Name, api.StageFanOut, err,
		)
	}
	return res, nil
}

// resolve maps def to its registered entry. Only the registered definition
// itself is accepted, a copy or a stranger under the same name is not
func (e *Executor) resolve(def *api.FlowDefinition) (*entry, error) {
	if def == nil {
		return nil, api.NewFlowError(
			api.KindInputValidation, "", api.StageValidateInput,
			ErrFlowNotFound,
		)
	}
	ent, err := e.registry.lookup(def.Name)
	if err == nil && ent.def != def {
		err = fmt.Errorf("%w: %s", ErrNotRegistered, def.Name)
	}
	if err != nil {
		slog.Debug("Flow rejected",
			log.Flow(def.Name),
			log.Error(err))
		return nil, api.NewFlowError(
			api.KindInputValidation, def.Name, api.StageValidateInput, err,
		)
	}
	return ent, nil
}

func (e *Executor) execute(
	ctx context.Context, ent *entry, input api.Args,
) (api.Args, error) {
	x := &execution{
		Executor: e,
		def:      ent.def,
		check:    ent.check,
		id:       e.newID(),
	}
	return x.run(ctx, input)
}

func (e *Executor) gather(
	ctx context.Context, ent *entry, inputs []api.Args,
) ([]api.Args, error) {
	res := make([]api.Args, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		g.Go(func() error {
			out, err := e.execute(gctx, ent, in)
			if err != nil {
				return &api.ItemError{Index: i, Err: err}
			}
			res[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (x *execution) run(
	ctx context.Context, input api.Args,
) (api.Args, error) {
	x.transition(api.StateReceived)

	in, err := schema.Validate(x.def.Input, input)
	if err != nil {
		return nil, x.fail(api.KindInputValidation, api.StageValidateInput, err)
	}
	x.transition(api.StateInputValidated)

	var out api.Args
	switch x.def.Kind() {
	case api.FlowKindHandler:
		out, err = x.invokeHandler(ctx, in)
	case api.FlowKindFanOut:
		out, err = x.fanOut(ctx, in)
	default:
		out, err = x.invokeModel(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return x.validateOutput(in, out)
}

func (x *execution) invokeModel(
	ctx context.Context, in api.Args,
) (api.Args, error) {
	spec := &api.ModelInvocationSpec{
		Model:    x.def.Model,
		Modality: x.def.Modality,
		Config:   x.def.Config,
		Output:   x.def.Output,
	}
	if x.def.Kind() == api.FlowKindDirect {
		spec.Input = in
	} else {
		p, err := prompt.Render(x.def.Template, in)
		if err != nil {
			return nil, x.fail(
				api.KindInputValidation, api.StageRenderPrompt, err,
			)
		}
		spec.Prompt = p
	}
	x.transition(api.StatePromptRendered)

	res, err := x.client.Invoke(ctx, spec)
	if err != nil {
		return nil, x.fail(api.KindModelInvocation, api.StageInvokeModel, err)
	}
	x.transition(api.StateModelInvoked)

	if x.def.MediaField != "" {
		if res == nil || res.Media == nil || res.Media.URI == "" {
			return nil, x.fail(api.KindEmptyOutput, api.StageInvokeModel,
				ErrNoMedia)
		}
		return api.Args{x.def.MediaField: res.Media.URI}, nil
	}
	if res == nil || len(res.Output) == 0 {
		return nil, x.fail(api.KindEmptyOutput, api.StageInvokeModel,
			ErrNoOutput)
	}
	return res.Output, nil
}

func (x *execution) invokeHandler(
	ctx context.Context, in api.Args,
) (api.Args, error) {
	out, err := x.def.Handler(ctx, in)
	if err != nil {
		return nil, x.fail(
			api.KindModelInvocation, api.StageInvokeHandler, err,
		)
	}
	x.transition(api.StateModelInvoked)
	if len(out) == 0 {
		return nil, x.fail(api.KindEmptyOutput, api.StageInvokeHandler,
			ErrNoOutput)
	}
	return out, nil
}

func (x *execution) fanOut(
	ctx context.Context, in api.Args,
) (api.Args, error) {
	f := x.def.FanOut
	sub, err := x.registry.lookup(f.Flow)
	if err != nil {
		return nil, x.fail(api.KindFanOutPartial, api.StageFanOut, err)
	}

	items, ok := schema.AsArray(in[f.Over])
	if !ok {
		return nil, x.fail(api.KindInputValidation, api.StageFanOut,
			fmt.Errorf("%w: %s", ErrNotAnArray, f.Over))
	}
	inputs := make([]api.Args, len(items))
	for i, item := range items {
		inputs[i] = api.Args{f.As: item}
	}

	res, err := x.gather(ctx, sub, inputs)
	if err != nil {
		return nil, x.fail(api.KindFanOutPartial, api.StageFanOut, err)
	}
	x.transition(api.StateModelInvoked)

	collected := make([]any, len(res))
	for i, out := range res {
		val, ok := out[f.Collect]
		if !ok {
			return nil, x.fail(api.KindEmptyOutput, api.StageFanOut,
				&api.ItemError{Index: i, Err: ErrMissingValue})
		}
		collected[i] = val
	}
	return api.Args{f.Into: collected}, nil
}

func (x *execution) validateOutput(in, out api.Args) (api.Args, error) {
	res, err := schema.Validate(x.def.Output, out)
	if err != nil {
		return nil, x.fail(
			api.KindOutputValidation, api.StageValidateOutput, err,
		)
	}
	if x.check != nil {
		if err := x.check.Run(in.Merge(res)); err != nil {
			return nil, x.fail(
				api.KindOutputValidation, api.StageValidateOutput, err,
			)
		}
	}
	x.transition(api.StateOutputValidated)
	x.transition(api.StateCompleted)
	return res, nil
}

func (x *execution) transition(state api.State) {
	slog.Debug("Flow state changed",
		log.Flow(x.def.Name),
		log.ExecutionID(x.id),
		log.State(state))
	x.publish(&api.ExecutionEvent{
		ID:    x.id,
		Flow:  x.def.Name,
		State: state,
	})
}

func (x *execution) fail(
	kind api.ErrorKind, stage api.Stage, err error,
) error {
	fe := api.NewFlowError(kind, x.def.Name, stage, err)
	slog.Debug("Flow failed",
		log.Flow(x.def.Name),
		log.ExecutionID(x.id),
		log.Stage(stage),
		log.Kind(kind),
		log.Error(err))
	x.publish(&api.ExecutionEvent{
		ID:    x.id,
		Flow:  x.def.Name,
		State: api.StateFailed,
		Kind:  kind,
		Error: fe.Error(),
	})
	return fe
}

func (x *execution) publish(ev *api.ExecutionEvent) {
	if x.events != nil {
		x.events.Publish(ev)
	}
}
