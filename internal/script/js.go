package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/kode4food/atelier/pkg/api"
)

type (
	// JSEnv provides a JavaScript execution environment backed by goja
	JSEnv struct {
		vms chan *goja.Runtime
	}

	compiledJS struct {
		prog     *goja.Program
		argNames []string
	}
)

const (
	jsPoolSize        = 10
	jsProgramName     = "check.js"
	jsFunctionWrapper = "(function(%s) {\n%s\n})"
)

var (
	ErrJSCompile     = errors.New("javascript compile error")
	ErrJSExecution   = errors.New("javascript execution error")
	ErrJSBadCompiled = errors.New("expected compiled javascript program")
	ErrJSNotFunction = errors.New("javascript program is not a function")
)

// NewJSEnv creates a JavaScript environment with a small runtime pool
func NewJSEnv() *JSEnv {
	return &JSEnv{
		vms: make(chan *goja.Runtime, jsPoolSize),
	}
}

// Compile wraps the script body in a function taking the named arguments.
// The body must return the predicate's value
func (e *JSEnv) Compile(argNames []string, script string) (Compiled, error) {
	src := fmt.Sprintf(jsFunctionWrapper, strings.Join(argNames, ", "), script)
	prog, err := goja.Compile(jsProgramName, src, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSCompile, err)
	}
	return &compiledJS{prog: prog, argNames: argNames}, nil
}

// Evaluate runs the compiled function and returns its truthiness
func (e *JSEnv) Evaluate(c Compiled, args api.Args) (bool, error) {
	comp, ok := c.(*compiledJS)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrJSBadCompiled, c)
	}

	vm := e.getRuntime()
	defer e.returnRuntime(vm)

	val, err := vm.RunProgram(comp.prog)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrJSExecution, err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return false, ErrJSNotFunction
	}

	vals := make([]goja.Value, len(comp.argNames))
	for i, v := range argValues(comp.argNames, args) {
		vals[i] = vm.ToValue(v)
	}

	res, err := fn(goja.Undefined(), vals...)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrJSExecution, err)
	}
	return res.ToBoolean(), nil
}

func (e *JSEnv) getRuntime() *goja.Runtime {
	select {
	case vm := <-e.vms:
		return vm
	default:
		return goja.New()
	}
}

func (e *JSEnv) returnRuntime(vm *goja.Runtime) {
	select {
	case e.vms <- vm:
	default:
	}
}
