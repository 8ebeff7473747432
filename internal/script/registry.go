// Package script evaluates flow check predicates written in Lua, Ale or
// JavaScript
package script

import (
	"errors"
	"fmt"

	"github.com/kode4food/atelier/pkg/api"
)

type (
	// Registry manages script environments for different languages
	Registry struct {
		envs map[string]Environment
	}

	// Environment defines the interface for script environments
	Environment interface {
		// Compile compiles a predicate that reads the named arguments
		Compile(argNames []string, script string) (Compiled, error)

		// Evaluate runs a compiled predicate with the given arguments
		Evaluate(c Compiled, args api.Args) (bool, error)
	}

	// Compiled represents a compiled script for any supported language
	Compiled any

	// Check is a predicate compiled for a specific flow definition
	Check struct {
		env      Environment
		compiled Compiled
		language string
	}
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported script language")
	ErrCheckFailed         = errors.New("check script returned false")
)

// NewRegistry creates a new script registry with Ale, Lua and JavaScript
// environments
func NewRegistry() *Registry {
	return &Registry{
		envs: map[string]Environment{
			api.ScriptLangAle: NewAleEnv(),
			api.ScriptLangLua: NewLuaEnv(),
			api.ScriptLangJS:  NewJSEnv(),
		},
	}
}

// Register adds or replaces the environment for a language
func (r *Registry) Register(language string, env Environment) {
	r.envs[language] = env
}

// Get returns the script environment for the given language
func (r *Registry) Get(language string) (Environment, error) {
	env, ok := r.envs[language]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	return env, nil
}

// CompileCheck compiles the definition's check script. A definition without
// a check yields a nil Check
func (r *Registry) CompileCheck(def *api.FlowDefinition) (*Check, error) {
	if def.Check == nil {
		return nil, nil
	}
	env, err := r.Get(def.Check.Language)
	if err != nil {
		return nil, err
	}
	comp, err := env.Compile(def.CheckArgNames(), def.Check.Script)
	if err != nil {
		return nil, fmt.Errorf("flow %q check: %w", def.Name, err)
	}
	return &Check{
		env:      env,
		compiled: comp,
		language: def.Check.Language,
	}, nil
}

// Run evaluates the check, returning ErrCheckFailed when the predicate does
// not hold
func (c *Check) Run(args api.Args) error {
	ok, err := c.env.Evaluate(c.compiled, args)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w (%s)", ErrCheckFailed, c.language)
	}
	return nil
}
