package script

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/kode4food/atelier/pkg/api"
)

type (
	// LuaEnv runs Lua check scripts on a pool of sandboxed states
	LuaEnv struct {
		states chan *lua.State
	}

	luaChunk struct {
		code   []byte
		params []string
	}
)

const (
	luaPoolSize  = 10
	luaChunkName = "check"
	luaParamLine = "local %s = select(%d, ...)\n"
)

var (
	ErrLuaCompileError = errors.New("lua compile error")
	ErrLuaLoad         = errors.New("lua load error")
	ErrLuaExecution    = errors.New("lua execution error")
	ErrLuaBadCompiled  = errors.New("expected compiled lua script")
)

// globals removed from every state
var luaUnsafe = []string{
	"io", "os", "debug", "package", "require", "dofile", "loadfile", "load",
}

// NewLuaEnv creates a Lua environment
func NewLuaEnv() *LuaEnv {
	return &LuaEnv{
		states: make(chan *lua.State, luaPoolSize),
	}
}

// Compile binds each parameter to a local of the same name ahead of the
// script body and precompiles the result to bytecode
func (e *LuaEnv) Compile(params []string, script string) (Compiled, error) {
	var src strings.Builder
	for i, p := range params {
		_, _ = fmt.Fprintf(&src, luaParamLine, p, i+1)
	}
	src.WriteString(script)

	L := newLuaState()
	if err := lua.LoadString(L, src.String()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaCompileError, err)
	}

	var code bytes.Buffer
	if err := L.Dump(&code); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLuaCompileError, err)
	}
	return &luaChunk{code: code.Bytes(), params: params}, nil
}

// Evaluate runs a compiled chunk and reports the truthiness of its result
func (e *LuaEnv) Evaluate(c Compiled, args api.Args) (bool, error) {
	chunk, ok := c.(*luaChunk)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrLuaBadCompiled, c)
	}

	L := e.acquire()
	defer e.release(L)

	err := L.Load(bytes.NewReader(chunk.code), luaChunkName, "b")
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaLoad, err)
	}
	for _, v := range argValues(chunk.params, args) {
		pushLua(L, v)
	}
	if err := L.ProtectedCall(len(chunk.params), 1, 0); err != nil {
		return false, fmt.Errorf("%w: %w", ErrLuaExecution, err)
	}
	return L.ToBoolean(-1), nil
}

func (e *LuaEnv) acquire() *lua.State {
	select {
	case L := <-e.states:
		return L
	default:
		return newLuaState()
	}
}

func (e *LuaEnv) release(L *lua.State) {
	L.SetTop(0)
	select {
	case e.states <- L:
	default:
	}
}

func newLuaState() *lua.State {
	L := lua.NewState()
	lua.OpenLibraries(L)
	for _, name := range luaUnsafe {
		L.PushNil()
		L.SetGlobal(name)
	}
	return L
}

func pushLua(L *lua.State, value any) {
	switch v := value.(type) {
	case bool:
		L.PushBoolean(v)
	case string:
		L.PushString(v)
	case int64:
		L.PushInteger(int(v))
	case float64:
		L.PushNumber(v)
	case []any:
		L.CreateTable(len(v), 0)
		for i, item := range v {
			pushLua(L, item)
			L.RawSetInt(-2, i+1)
		}
	case map[string]any:
		L.CreateTable(0, len(v))
		for k, item := range v {
			pushLua(L, item)
			L.SetField(-2, k)
		}
	default:
		L.PushNil()
	}
}
