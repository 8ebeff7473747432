package flows_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/assert/helpers"
	"github.com/kode4food/atelier/internal/flows"
	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

func TestImagePrompt(t *testing.T) {
	tests := []struct {
		name     string
		input    api.Args
		expected string
	}{
		{
			name:     "no_style",
			input:    api.Args{"prompt": "a lighthouse"},
			expected: "a lighthouse",
		},
		{
			name:     "style_none",
			input:    api.Args{"prompt": "a lighthouse", "style": "none"},
			expected: "a lighthouse",
		},
		{
			name:     "style_empty",
			input:    api.Args{"prompt": "a lighthouse", "style": ""},
			expected: "a lighthouse",
		},
		{
			name:     "style_blank",
			input:    api.Args{"prompt": "a fox", "style": "  "},
			expected: "a fox, style   ",
		},
		{
			name:     "style_given",
			input:    api.Args{"prompt": "a lighthouse", "style": "watercolor"},
			expected: "a lighthouse, style watercolor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := helpers.NewTestEnv(t)
			env.Model.SetMedia(tt.expected, "data:image/png;base64,AAAA")

			out, err := env.Executor.Run(
				context.Background(), flows.ImageFlow, tt.input,
			)
			require.NoError(t, err)
			assert.Equal(t, "data:image/png;base64,AAAA", out["imageDataUri"])

			spec := env.Model.LastInvocation()
			assert.Equal(t, tt.expected, spec.Prompt)
			assert.Equal(t, helpers.TestImageModel, spec.Model)
			assert.Equal(t, api.ModalityTextAndImage, spec.Modality)
		})
	}
}

func TestImageEmptyResult(t *testing.T) {
	env := helpers.NewTestEnv(t)
	env.Model.SetDefault(&api.InvocationResult{
		Media: &api.MediaDescriptor{URI: ""},
	})

	out, err := env.Executor.Run(context.Background(), flows.ImageFlow,
		api.Args{"prompt": "a lighthouse"},
	)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, api.ErrEmptyOutput)
}

func TestImageMissingPrompt(t *testing.T) {
	env := helpers.NewTestEnv(t)

	_, err := env.Executor.Run(context.Background(), flows.ImageFlow,
		api.Args{"style": "ink"},
	)
	assert.ErrorIs(t, err, api.ErrInputValidation)
	assert.Zero(t, env.Model.CallCount())
}

func TestMoodboardOrder(t *testing.T) {
	env := helpers.NewTestEnv(t)
	prompts := []any{"p1", "p2", "p3", "p4"}
	for i, p := range prompts {
		env.Model.SetMedia(p.(string), fmt.Sprintf("uri-%s", p))
		env.Model.SetDelay(p.(string),
			time.Duration(len(prompts)-i)*15*time.Millisecond)
	}

	out, err := env.Executor.Run(context.Background(), flows.MoodboardFlow,
		api.Args{"prompts": prompts},
	)
	require.NoError(t, err)
	assert.Equal(t,
		[]any{"uri-p1", "uri-p2", "uri-p3", "uri-p4"}, out["imageDataUris"],
	)
	assert.Equal(t, 4, env.Model.CallCount())
}

func TestMoodboardOneFailure(t *testing.T) {
	env := helpers.NewTestEnv(t)
	for _, p := range []string{"p1", "p2", "p4"} {
		env.Model.SetMedia(p, "uri-"+p)
	}
	env.Model.SetError("p3", model.ErrHTTPError)

	out, err := env.Executor.Run(context.Background(), flows.MoodboardFlow,
		api.Args{"prompts": []any{"p1", "p2", "p3", "p4"}},
	)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, api.ErrFanOutPartial)

	var item *api.ItemError
	require.ErrorAs(t, err, &item)
	assert.Equal(t, 2, item.Index)
}

func TestMoodboardCheck(t *testing.T) {
	def := flows.Moodboard()
	require.NotNil(t, def.Check)
	assert.Equal(t, api.ScriptLangAle, def.Check.Language)

	check, err := script.NewRegistry().CompileCheck(def)
	require.NoError(t, err)

	prompts := []any{"a", "b"}
	assert.NoError(t, check.Run(api.Args{
		"prompts":       prompts,
		"imageDataUris": []any{"uri-a", "uri-b"},
	}))
	assert.ErrorIs(t, check.Run(api.Args{
		"prompts":       prompts,
		"imageDataUris": []any{"uri-a"},
	}), script.ErrCheckFailed)
}

func TestMoodboardEmpty(t *testing.T) {
	env := helpers.NewTestEnv(t)

	_, err := env.Executor.Run(context.Background(), flows.MoodboardFlow,
		api.Args{"prompts": []any{}},
	)
	assert.ErrorIs(t, err, api.ErrInputValidation)
	assert.Zero(t, env.Model.CallCount())
}

func TestImageIdempotent(t *testing.T) {
	env := helpers.NewTestEnv(t)
	env.Model.SetMedia("a fox, style ink", "uri-fox")

	in := api.Args{"prompt": "a fox", "style": "ink"}
	first, err := env.Executor.Run(context.Background(), flows.ImageFlow, in)
	require.NoError(t, err)
	second, err := env.Executor.Run(context.Background(), flows.ImageFlow, in)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
