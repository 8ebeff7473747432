package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/prompt"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

func TestRegistryGet(t *testing.T) {
	reg, err := flow.NewRegistry(script.NewRegistry(),
		rhymeFlow(), pictureFlow(), galleryFlow(),
	)
	require.NoError(t, err)

	def, err := reg.Get("picture")
	require.NoError(t, err)
	assert.Equal(t, api.Name("picture"), def.Name)

	_, err = reg.Get("missing")
	assert.ErrorIs(t, err, flow.ErrFlowNotFound)
}

func TestRegistryListSorted(t *testing.T) {
	reg, err := flow.NewRegistry(script.NewRegistry(),
		rhymeFlow(), pictureFlow(), galleryFlow(),
	)
	require.NoError(t, err)

	assert.Equal(t,
		[]api.Name{"gallery", "picture", "rhymes"}, reg.Names(),
	)
	assert.Equal(t, 3, reg.Len())

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, api.Name("gallery"), list[0].Name)
	assert.Equal(t, api.Name("rhymes"), list[2].Name)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	_, err := flow.NewRegistry(script.NewRegistry(), rhymeFlow(), rhymeFlow())
	assert.ErrorIs(t, err, flow.ErrInvalidDefinition)
	assert.ErrorIs(t, err, flow.ErrDuplicateFlow)
}

func TestRegistryRejectsInvalid(t *testing.T) {
	def := rhymeFlow()
	def.Model = ""

	_, err := flow.NewRegistry(script.NewRegistry(), def)
	assert.ErrorIs(t, err, flow.ErrInvalidDefinition)
	assert.ErrorIs(t, err, api.ErrFlowModelEmpty)
}

func TestRegistryRejectsNil(t *testing.T) {
	_, err := flow.NewRegistry(script.NewRegistry(), nil)
	assert.ErrorIs(t, err, flow.ErrInvalidDefinition)
}

func TestRegistryRejectsUndeclaredTemplateField(t *testing.T) {
	def := rhymeFlow()
	def.Template.Parts = append(def.Template.Parts, api.Field("secret"))

	_, err := flow.NewRegistry(script.NewRegistry(), def)
	assert.ErrorIs(t, err, flow.ErrInvalidDefinition)
	assert.ErrorIs(t, err, prompt.ErrUnknownField)
}

func TestRegistryRejectsBadCheck(t *testing.T) {
	def := rhymeFlow()
	def.Check = &api.ScriptConfig{
		Language: api.ScriptLangLua,
		Script:   "return (",
	}

	_, err := flow.NewRegistry(script.NewRegistry(), def)
	assert.ErrorIs(t, err, flow.ErrInvalidDefinition)
	assert.ErrorIs(t, err, script.ErrLuaCompileError)
}

func TestRegistryFanOutResolution(t *testing.T) {
	_, err := flow.NewRegistry(script.NewRegistry(), galleryFlow())
	assert.ErrorIs(t, err, flow.ErrUnknownSubFlow)

	gallery := galleryFlow()
	gallery.FanOut.Collect = "missing"
	_, err = flow.NewRegistry(script.NewRegistry(), pictureFlow(), gallery)
	assert.ErrorIs(t, err, flow.ErrSubFlowMismatch)

	gallery = galleryFlow()
	gallery.FanOut.As = "missing"
	_, err = flow.NewRegistry(script.NewRegistry(), pictureFlow(), gallery)
	assert.ErrorIs(t, err, flow.ErrSubFlowMismatch)

	nested := galleryFlow()
	nested.Name = "nested"
	nested.FanOut.Flow = "gallery"
	nested.FanOut.As = "prompts"
	nested.FanOut.Collect = "uris"
	_, err = flow.NewRegistry(script.NewRegistry(),
		pictureFlow(), galleryFlow(), nested,
	)
	assert.ErrorIs(t, err, flow.ErrNestedFanOut)
}

func TestExecuteUnregistered(t *testing.T) {
	env := newTestEnv(t)
	def := rhymeFlow()
	def.Name = "unregistered"

	_, err := env.exec.Execute(context.Background(), def, api.Args{})
	assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	assert.ErrorIs(t, err, api.ErrInputValidation)

	fe, ok := api.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, api.Name("unregistered"), fe.Flow)
	assert.Equal(t, api.StageValidateInput, fe.Stage)
	assert.Zero(t, env.model.CallCount())
}

func TestExecuteRejectsUnregisteredCopy(t *testing.T) {
	env := newTestEnv(t)
	def := rhymeFlow()

	_, err := env.exec.Execute(context.Background(), def, api.Args{
		"word": "night", "mood": "calm",
	})
	assert.ErrorIs(t, err, flow.ErrNotRegistered)
	assert.ErrorIs(t, err, api.ErrInputValidation)

	fe, ok := api.AsFlowError(err)
	require.True(t, ok)
	assert.Equal(t, def.Name, fe.Flow)
	assert.Zero(t, env.model.CallCount())
}

func TestExecuteAllUnregistered(t *testing.T) {
	env := newTestEnv(t)
	def := pictureFlow()
	def.Name = "unregistered"

	res, err := env.exec.ExecuteAll(context.Background(), def,
		[]api.Args{{"prompt": "p1"}, {"prompt": "p2"}},
	)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	assert.ErrorIs(t, err, api.ErrInputValidation)
	assert.NotErrorIs(t, err, api.ErrFanOutPartial)

	var item *api.ItemError
	assert.False(t, errors.As(err, &item))
	assert.Zero(t, env.model.CallCount())
}

func TestExecuteNilDefinition(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.exec.Execute(context.Background(), nil, api.Args{})
	assert.ErrorIs(t, err, flow.ErrFlowNotFound)
	assert.ErrorIs(t, err, api.ErrInputValidation)
}
