package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/ale"
	"github.com/kode4food/ale/core/bootstrap"
	"github.com/kode4food/ale/data"
	"github.com/kode4food/ale/env"
	"github.com/kode4food/ale/eval"

	"github.com/kode4food/atelier/pkg/api"
)

type (
	// AleEnv runs Ale check scripts as lambdas over the flow's fields
	AleEnv struct {
		env *env.Environment
	}

	aleLambda struct {
		proc   data.Procedure
		params []string
	}
)

const aleLambdaForm = "(lambda (%s) %s)"

var (
	ErrAleCompile         = errors.New("ale compile error")
	ErrAleNotProcedure    = errors.New("ale script is not a procedure")
	ErrAleCall            = errors.New("ale execution error")
	ErrAleBadCompiledType = errors.New("expected compiled ale procedure")
)

// NewAleEnv creates an Ale environment with the core library loaded
func NewAleEnv() *AleEnv {
	e := env.NewEnvironment()
	bootstrap.Into(e)
	return &AleEnv{env: e}
}

// Compile evaluates the script as the body of a lambda whose parameters
// are the named fields
func (e *AleEnv) Compile(params []string, script string) (Compiled, error) {
	src := fmt.Sprintf(aleLambdaForm, strings.Join(params, " "), script)
	return guard(ErrAleCompile, func() (Compiled, error) {
		res, err := eval.String(e.env.GetAnonymous(), data.String(src))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAleCompile, err)
		}
		proc, ok := res.(data.Procedure)
		if !ok {
			return nil, fmt.Errorf("%w, got %T", ErrAleNotProcedure, res)
		}
		return &aleLambda{proc: proc, params: params}, nil
	})
}

// Evaluate applies the lambda. Any result other than false or null holds
func (e *AleEnv) Evaluate(c Compiled, args api.Args) (bool, error) {
	fn, ok := c.(*aleLambda)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrAleBadCompiledType, c)
	}

	vals := make(data.Vector, len(fn.params))
	for i, v := range argValues(fn.params, args) {
		vals[i] = toAle(v)
	}

	res, err := guard(ErrAleCall, func() (ale.Value, error) {
		return fn.proc.Call(vals...), nil
	})
	if err != nil {
		return false, err
	}
	return res != data.False && res != data.Null, nil
}

func toAle(value any) ale.Value {
	switch v := value.(type) {
	case bool:
		return data.Bool(v)
	case string:
		return data.String(v)
	case int64:
		return data.Integer(v)
	case float64:
		if v == float64(int64(v)) {
			return data.Integer(int64(v))
		}
		return data.Float(v)
	case []any:
		res := make(data.Vector, len(v))
		for i, item := range v {
			res[i] = toAle(item)
		}
		return res
	case map[string]any:
		obj := data.NewObject()
		for k, item := range v {
			pair := data.NewCons(data.Keyword(k), toAle(item))
			obj = obj.Put(pair).(*data.Object)
		}
		return obj
	default:
		return data.Null
	}
}

// guard converts a panic raised inside the Ale runtime into an error
func guard[T any](base error, fn func() (T, error)) (res T, err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case error:
			err = fmt.Errorf("%w: %w", base, r)
		default:
			err = fmt.Errorf("%w: %v", base, r)
		}
	}()
	return fn()
}
