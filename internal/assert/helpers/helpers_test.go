package helpers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/assert/helpers"
	"github.com/kode4food/atelier/pkg/api"
)

func TestMockModelResponses(t *testing.T) {
	m := helpers.NewMockModel()
	m.SetOutput("a", api.Args{"x": 1})
	m.SetMedia("b", "uri-b")
	m.SetDefaultOutput(api.Args{"x": "default"})

	ctx := context.Background()
	res, err := m.Invoke(ctx, &api.ModelInvocationSpec{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Output["x"])

	res, err = m.Invoke(ctx, &api.ModelInvocationSpec{Prompt: "b"})
	require.NoError(t, err)
	assert.Equal(t, "uri-b", res.Media.URI)

	res, err = m.Invoke(ctx, &api.ModelInvocationSpec{Prompt: "c"})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Output["x"])

	assert.Equal(t, 3, m.CallCount())
	assert.Equal(t, []string{"a", "b", "c"}, m.Prompts())
	assert.Equal(t, "c", m.LastInvocation().Prompt)
	assert.Len(t, m.Invocations(), 3)
}

func TestMockModelErrors(t *testing.T) {
	m := helpers.NewMockModel()
	boom := errors.New("boom")
	m.SetError("bad", boom)
	m.SetDefaultError(assert.AnError)

	_, err := m.Invoke(context.Background(), &api.ModelInvocationSpec{
		Prompt: "bad",
	})
	assert.ErrorIs(t, err, boom)

	_, err = m.Invoke(context.Background(), &api.ModelInvocationSpec{
		Prompt: "other",
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMockModelDelayCancelled(t *testing.T) {
	m := helpers.NewMockModel()
	m.SetDelay("slow", time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		m.WaitForInvocation(time.Second)
		cancel()
	}()

	_, err := m.Invoke(ctx, &api.ModelInvocationSpec{Prompt: "slow"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockModelNoInvocation(t *testing.T) {
	m := helpers.NewMockModel()
	assert.Nil(t, m.LastInvocation())
	assert.False(t, m.WaitForInvocation(10*time.Millisecond))
}

func TestNewTestEnv(t *testing.T) {
	env := helpers.NewTestEnv(t)

	assert.NotNil(t, env.Executor)
	assert.NotNil(t, env.Docs)
	assert.NoError(t, env.Config.Validate())

	_, err := env.Executor.Registry().Get("moodboard")
	assert.NoError(t, err)
	_, err = env.Executor.Registry().Get("documents-list")
	assert.NoError(t, err)
}
