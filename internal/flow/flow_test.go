package flow_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kode4food/atelier/internal/assert/helpers"
	"github.com/kode4food/atelier/internal/events"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/script"
	"github.com/kode4food/atelier/pkg/api"
)

func rhymeFlow() *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:     "rhymes",
		Model:    "text-model",
		Modality: api.ModalityText,
		Template: api.NewTemplate(
			api.Text("Rhymes for "),
			api.Field("word"),
			api.When("mood", api.Text(" in a "), api.Field("mood"),
				api.Text(" mood")),
		),
		Input: api.Schema{
			"word": api.Required(api.TypeString),
			"mood": api.Optional(api.TypeString),
		},
		Output: api.Schema{
			"suggestions": api.ArrayOf(
				api.Required(api.TypeString),
			).WithItemBounds(1, 3),
		},
	}
}

func pictureFlow() *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:       "picture",
		Model:      "image-model",
		Modality:   api.ModalityTextAndImage,
		MediaField: "uri",
		Template:   api.NewTemplate(api.Field("prompt")),
		Input: api.Schema{
			"prompt": api.Required(api.TypeString),
		},
		Output: api.Schema{
			"uri": api.Required(api.TypeString),
		},
	}
}

func galleryFlow() *api.FlowDefinition {
	return &api.FlowDefinition{
		Name: "gallery",
		FanOut: &api.FanOutSpec{
			Flow:    "picture",
			Over:    "prompts",
			As:      "prompt",
			Collect: "uri",
			Into:    "uris",
		},
		Input: api.Schema{
			"prompts": api.ArrayOf(
				api.Required(api.TypeString),
			).WithItemBounds(1, 0),
		},
		Output: api.Schema{
			"uris": api.ArrayOf(api.Required(api.TypeString)),
		},
	}
}

type testEnv struct {
	model *helpers.MockModel
	exec  *flow.Executor
	hub   *events.Hub
}

func newTestEnv(t *testing.T, defs ...*api.FlowDefinition) *testEnv {
	t.Helper()
	if len(defs) == 0 {
		defs = []*api.FlowDefinition{rhymeFlow(), pictureFlow(), galleryFlow()}
	}
	reg, err := flow.NewRegistry(script.NewRegistry(), defs...)
	require.NoError(t, err)

	hub := events.NewHub()
	t.Cleanup(hub.Close)

	mock := helpers.NewMockModel()
	return &testEnv{
		model: mock,
		exec:  flow.NewExecutor(reg, mock, flow.WithPublisher(hub)),
		hub:   hub,
	}
}

func (e *testEnv) def(t *testing.T, name api.Name) *api.FlowDefinition {
	t.Helper()
	def, err := e.exec.Registry().Get(name)
	require.NoError(t, err)
	return def
}
