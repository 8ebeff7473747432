package flows

import "github.com/kode4food/atelier/pkg/api"

const (
	LyricsFlow api.Name = "lyrics"

	ActionEnhance = "ENHANCE"
	ActionRhymes  = "RHYMES"
)

const lyricsCheck = `
local n = #suggestions
if action == "ENHANCE" then
	return n >= 3 and n <= 5
end
return n >= 5 and n <= 10
`

// Lyrics suggests rewrites or rhymes for a selected passage of a song
func Lyrics(model string) *api.FlowDefinition {
	return &api.FlowDefinition{
		Name:        LyricsFlow,
		Description: "Suggest enhanced rewrites or rhymes for selected lyrics",
		Model:       model,
		Modality:    api.ModalityText,
		Input: api.Schema{
			"fullText":   api.Required(api.TypeString),
			"textToEdit": api.Required(api.TypeString).WithMinLength(1),
			"mood":       api.Required(api.TypeString),
			"action": api.Required(api.TypeString).
				WithEnum(ActionEnhance, ActionRhymes),
		},
		Output: api.Schema{
			"suggestions": api.ArrayOf(
				api.Required(api.TypeString).WithMinLength(1),
			).WithItemBounds(3, 10),
		},
		Template: api.NewTemplate(
			api.Text("You are a songwriting assistant. "),
			api.When("action",
				api.Text("Suggest 3 to 5 improved rewrites of the selected "+
					"text that keep its meaning and fit the song."),
			).Matching(ActionEnhance),
			api.When("action",
				api.Text("Suggest 5 to 10 words or short phrases that "+
					"rhyme with the selected text and fit the song."),
			).Matching(ActionRhymes),
			api.Text("\nMood: "), api.Field("mood"),
			api.Text("\nSelected text: "), api.Field("textToEdit"),
			api.Text("\nFull lyrics:\n"), api.Field("fullText"),
		),
		Check: &api.ScriptConfig{
			Language: api.ScriptLangLua,
			Script:   lyricsCheck,
		},
	}
}
