package flows

import "github.com/kode4food/atelier/pkg/api"

const (
	ImageFlow     api.Name = "image"
	MoodboardFlow api.Name = "moodboard"

	// NoStyle disables the style hint of an image prompt
	NoStyle = "none"
)

// every prompt has exactly one image
const moodboardCheck = `(= (length prompts) (length imageDataUris))`

// Image generates a single image from a prompt and an optional style
func Image(model string) *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:        ImageFlow,
		Description: "Generate an image from a prompt",
		Model:       model,
		Modality:    api.ModalityTextAndImage,
		MediaField:  "imageDataUri",
		Config: &api.GenerationConfig{
			ResponseModalities: []api.ResponseModality{
				api.ResponseText, api.ResponseImage,
			},
		},
		Input: api.Schema{
			"prompt": api.Required(api.TypeString).WithMinLength(1),
			"style":  api.Optional(api.TypeString),
		},
		Output: api.Schema{
			"imageDataUri": api.Required(api.TypeString).WithMinLength(1),
		},
		Template: api.NewTemplate(
			api.Field("prompt"),
			api.When("style",
				api.Text(", style "), api.Field("style"),
			).Except(NoStyle),
		),
	}
}

// Moodboard generates one image per prompt, in prompt order
func Moodboard() *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:        MoodboardFlow,
		Description: "Generate a board of images, one per prompt",
		FanOut: &api.FanOutSpec{
			Flow:    ImageFlow,
			Over:    "prompts",
			As:      "prompt",
			Collect: "imageDataUri",
			Into:    "imageDataUris",
		},
		Input: api.Schema{
			"prompts": api.ArrayOf(
				api.Required(api.TypeString),
			).WithItemBounds(1, 0),
		},
		Output: api.Schema{
			"imageDataUris": api.ArrayOf(api.Required(api.TypeString)),
		},
		Check: &api.ScriptConfig{
			Language: api.ScriptLangAle,
			Script:   moodboardCheck,
		},
	}
}
