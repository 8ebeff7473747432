package flows_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/assert/helpers"
	"github.com/kode4food/atelier/internal/flows"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

func story() api.Args {
	return api.Args{
		"title":    "Salt and Static",
		"logline":  "A radio operator hears the sea answer back.",
		"synopsis": "On a remote island, a signal grows stronger each night.",
		"characters": []any{
			map[string]any{
				"name":        "Ines",
				"role":        "protagonist",
				"description": "A tired radio operator",
			},
		},
		"chapters": []any{
			map[string]any{"title": "Noise", "summary": "The first signal."},
			map[string]any{"title": "Tide", "summary": "It answers."},
		},
	}
}

func TestNarrative(t *testing.T) {
	env := helpers.NewTestEnv(t)
	env.Model.SetDefaultOutput(story())

	out, err := env.Executor.Run(context.Background(), flows.NarrativeFlow,
		api.Args{
			"prompt":     "a lighthouse keeper's radio",
			"characters": "Ines, a radio operator",
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "Salt and Static", out["title"])
	assert.Len(t, out["chapters"], 2)

	p := env.Model.LastInvocation().Prompt
	assert.Contains(t, p, "Premise: a lighthouse keeper's radio")
	assert.Contains(t, p, "Include these characters: Ines, a radio operator")
	assert.NotContains(t, p, "Write in this style")
}

func TestNarrativeUnnamedChapter(t *testing.T) {
	env := helpers.NewTestEnv(t)
	out := story()
	out["chapters"] = []any{
		map[string]any{"title": "  ", "summary": "Nothing."},
	}
	env.Model.SetDefaultOutput(out)

	_, err := env.Executor.Run(context.Background(), flows.NarrativeFlow,
		api.Args{"prompt": "a story"},
	)
	assert.ErrorIs(t, err, api.ErrOutputValidation)
	assert.ErrorIs(t, err, script.ErrCheckFailed)
}

func TestNarrativeMalformedCharacters(t *testing.T) {
	env := helpers.NewTestEnv(t)
	out := story()
	out["characters"] = []any{map[string]any{"name": "Ines"}}
	env.Model.SetDefaultOutput(out)

	_, err := env.Executor.Run(context.Background(), flows.NarrativeFlow,
		api.Args{"prompt": "a story"},
	)
	assert.ErrorIs(t, err, api.ErrOutputValidation)
	assert.Contains(t, err.Error(), "characters[0].description")
}
