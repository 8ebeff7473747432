package script_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

func TestLuaEvaluate(t *testing.T) {
	env := script.NewLuaEnv()

	comp, err := env.Compile([]string{"action", "suggestions"}, `
		local n = #suggestions
		if action == "ENHANCE" then return n >= 3 and n <= 5 end
		return n >= 5 and n <= 10
	`)
	require.NoError(t, err)

	ok, err := env.Evaluate(comp, api.Args{
		"action":      "ENHANCE",
		"suggestions": []any{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.Evaluate(comp, api.Args{
		"action":      "RHYMES",
		"suggestions": []string{"a", "b", "c"},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLuaCompileError(t *testing.T) {
	env := script.NewLuaEnv()
	_, err := env.Compile([]string{"a"}, "return (a +")
	assert.ErrorIs(t, err, script.ErrLuaCompileError)
}

func TestLuaSandbox(t *testing.T) {
	env := script.NewLuaEnv()
	comp, err := env.Compile(nil, "return os.exit(1)")
	require.NoError(t, err)

	_, err = env.Evaluate(comp, api.Args{})
	assert.ErrorIs(t, err, script.ErrLuaExecution)
}

func TestLuaBadCompiled(t *testing.T) {
	env := script.NewLuaEnv()
	_, err := env.Evaluate("nope", api.Args{})
	assert.ErrorIs(t, err, script.ErrLuaBadCompiled)
}

func TestAleEvaluate(t *testing.T) {
	env := script.NewAleEnv()

	comp, err := env.Compile([]string{"x"}, "(> x 10)")
	require.NoError(t, err)

	ok, err := env.Evaluate(comp, api.Args{"x": float64(15)})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.Evaluate(comp, api.Args{"x": 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAleBadCompiled(t *testing.T) {
	env := script.NewAleEnv()
	_, err := env.Evaluate("nope", api.Args{})
	assert.ErrorIs(t, err, script.ErrAleBadCompiledType)
}

func TestJSEvaluate(t *testing.T) {
	env := script.NewJSEnv()

	comp, err := env.Compile([]string{"chapters"}, `
		for (var i = 0; i < chapters.length; i++) {
			if (!chapters[i].title) return false;
		}
		return chapters.length > 0;
	`)
	require.NoError(t, err)

	ok, err := env.Evaluate(comp, api.Args{
		"chapters": []any{
			map[string]any{"title": "Arrival"},
			map[string]any{"title": "Departure"},
		},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = env.Evaluate(comp, api.Args{
		"chapters": []any{map[string]any{"title": ""}},
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJSCompileError(t *testing.T) {
	env := script.NewJSEnv()
	_, err := env.Compile([]string{"a"}, "return (a +")
	assert.ErrorIs(t, err, script.ErrJSCompile)
}

func TestJSExecutionError(t *testing.T) {
	env := script.NewJSEnv()
	comp, err := env.Compile([]string{"a"}, "return a.missing.deeper;")
	require.NoError(t, err)

	_, err = env.Evaluate(comp, api.Args{"a": map[string]any{}})
	assert.ErrorIs(t, err, script.ErrJSExecution)
}

func TestRegistryGet(t *testing.T) {
	reg := script.NewRegistry()

	for _, lang := range []string{
		api.ScriptLangAle, api.ScriptLangLua, api.ScriptLangJS,
	} {
		env, err := reg.Get(lang)
		assert.NoError(t, err)
		assert.NotNil(t, env)
	}

	_, err := reg.Get("cobol")
	assert.ErrorIs(t, err, script.ErrUnsupportedLanguage)
}

func TestCompileCheck(t *testing.T) {
	reg := script.NewRegistry()
	def := &api.FlowDefinition{
		Name:   "count",
		Input:  api.Schema{"limit": api.Required(api.TypeInteger)},
		Output: api.Schema{"total": api.Required(api.TypeInteger)},
		Check: &api.ScriptConfig{
			Language: api.ScriptLangLua,
			Script:   "return total <= limit",
		},
	}

	check, err := reg.CompileCheck(def)
	require.NoError(t, err)

	assert.NoError(t, check.Run(api.Args{"limit": 10, "total": 3}))
	err = check.Run(api.Args{"limit": 10, "total": 30})
	assert.ErrorIs(t, err, script.ErrCheckFailed)
}

func TestCompileCheckNone(t *testing.T) {
	reg := script.NewRegistry()
	check, err := reg.CompileCheck(&api.FlowDefinition{Name: "plain"})
	assert.NoError(t, err)
	assert.Nil(t, check)
}

func TestCompileCheckError(t *testing.T) {
	reg := script.NewRegistry()
	_, err := reg.CompileCheck(&api.FlowDefinition{
		Name:  "broken",
		Check: &api.ScriptConfig{Language: api.ScriptLangJS, Script: "{"},
	})
	assert.ErrorIs(t, err, script.ErrJSCompile)
}

func TestNestedValues(t *testing.T) {
	args := api.Args{
		"chapters": []map[string]any{
			{"title": "Noise", "pages": 12},
			{"title": "Tide", "pages": 7.5},
		},
		"meta": api.Args{"draft": true},
	}
	params := []string{"chapters", "meta"}

	tests := []struct {
		env    script.Environment
		script string
	}{
		{
			script.NewLuaEnv(),
			`return #chapters == 2 and chapters[2].title == "Tide" and
				chapters[1].pages == 12 and meta.draft`,
		},
		{
			script.NewJSEnv(),
			`return chapters.length === 2 && chapters[1].title === "Tide" &&
				chapters[0].pages === 12 && meta.draft;`,
		},
		{
			script.NewAleEnv(),
			`(and chapters meta)`,
		},
	}

	for _, tt := range tests {
		comp, err := tt.env.Compile(params, tt.script)
		require.NoError(t, err)
		ok, err := tt.env.Evaluate(comp, args)
		require.NoError(t, err)
		assert.True(t, ok, tt.script)
	}
}
