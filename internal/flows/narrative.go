package flows

import "github.com/kode4food/atelier/pkg/api"

const NarrativeFlow api.Name = "narrative"

const narrativeCheck = `
function named(field) {
	return function (item) {
		return typeof item[field] === "string" && item[field].trim() !== "";
	};
}
return characters.every(named("name")) && chapters.every(named("title"));
`

// Narrative drafts a structured story outline from a premise
func Narrative(model string) *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:        NarrativeFlow,
		Description: "Draft a story outline with characters and chapters",
		Model:       model,
		Modality:    api.ModalityText,
		Input: api.Schema{
			"prompt":     api.Required(api.TypeString).WithMinLength(1),
			"characters": api.Optional(api.TypeString),
			"style":      api.Optional(api.TypeString),
		},
		Output: api.Schema{
			"title":    api.Required(api.TypeString).WithMinLength(1),
			"logline":  api.Required(api.TypeString),
			"synopsis": api.Required(api.TypeString),
			"characters": api.ArrayOf(api.ObjectOf(api.Schema{
				"name":        api.Required(api.TypeString),
				"role":        api.Required(api.TypeString),
				"description": api.Required(api.TypeString),
			})).WithItemBounds(1, 0),
			"chapters": api.ArrayOf(api.ObjectOf(api.Schema{
				"title":   api.Required(api.TypeString),
				"summary": api.Required(api.TypeString),
			})).WithItemBounds(1, 0),
		},
		Template: api.NewTemplate(
			api.Text("Draft a story outline with a title, a one-sentence "+
				"logline, a synopsis, character profiles and chapter "+
				"outlines.\nPremise: "),
			api.Field("prompt"),
			api.When("characters",
				api.Text("\nInclude these characters: "),
				api.Field("characters"),
			),
			api.When("style",
				api.Text("\nWrite in this style: "), api.Field("style"),
			),
		),
		Check: &api.ScriptConfig{
			Language: api.ScriptLangJS,
			Script:   narrativeCheck,
		},
	}
}
