package api

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/kode4food/atelier/pkg/util"
)

type (
	// FlowDefinition is the immutable declaration of a flow: its schemas, how
	// its body is produced and which model serves it
	FlowDefinition struct {
		Input       Schema            `json:"input"`
		Output      Schema            `json:"output"`
		Template    *Template         `json:"template,omitempty"`
		FanOut      *FanOutSpec       `json:"fan_out,omitempty"`
		Check       *ScriptConfig     `json:"check,omitempty"`
		Config      *GenerationConfig `json:"config,omitempty"`
		Handler     Handler           `json:"-"`
		Name        Name              `json:"name"`
		Description string            `json:"description,omitempty"`
		Model       string            `json:"model,omitempty"`
		Modality    Modality          `json:"modality,omitempty"`
		MediaField  Name              `json:"media_field,omitempty"`
		Direct      bool              `json:"direct,omitempty"`
	}

	// FanOutSpec describes a composite flow. Each element of the input array
	// Over becomes the field As of a sub-flow request, and each sub-flow
	// output's Collect field lands at the same index of the output array Into
	FanOutSpec struct {
		Flow    Name `json:"flow"`
		Over    Name `json:"over"`
		As      Name `json:"as"`
		Collect Name `json:"collect"`
		Into    Name `json:"into"`
	}

	// ScriptConfig holds a predicate evaluated against the merged input and
	// output of a flow
	ScriptConfig struct {
		Language string `json:"language"`
		Script   string `json:"script"`
	}

	// Handler serves a flow locally instead of calling a model
	Handler func(context.Context, Args) (Args, error)

	// FlowKind identifies how a flow's body is produced
	FlowKind string
)

const (
	FlowKindTemplate FlowKind = "template"
	FlowKindDirect   FlowKind = "direct"
	FlowKindFanOut   FlowKind = "fan_out"
	FlowKindHandler  FlowKind = "handler"

	ScriptLangAle = "ale"
	ScriptLangLua = "lua"
	ScriptLangJS  = "js"
)

var (
	ErrFlowNameEmpty       = errors.New("flow name empty")
	ErrFlowModelEmpty      = errors.New("flow model empty")
	ErrFlowBodyMissing     = errors.New("flow has no template, handler or fan-out")
	ErrFlowBodyAmbiguous   = errors.New("flow has more than one body")
	ErrInvalidModality     = errors.New("invalid modality")
	ErrMediaFieldInvalid   = errors.New("media field must be an output string")
	ErrMediaRequiresImage  = errors.New("media field requires image modality")
	ErrFanOutFieldInvalid  = errors.New("invalid fan-out field")
	ErrScriptLanguageEmpty = errors.New("script language empty")
	ErrScriptEmpty         = errors.New("script empty")
	ErrInvalidScriptLang   = errors.New("invalid script language")
)

var (
	validModalities = util.SetOf(ModalityText, ModalityTextAndImage)

	validScriptLangs = util.SetOf(ScriptLangAle, ScriptLangLua, ScriptLangJS)
)

// Kind reports how the flow's body is produced
func (d *FlowDefinition) Kind() FlowKind {
	switch {
	case d.Handler != nil:
		return FlowKindHandler
	case d.FanOut != nil:
		return FlowKindFanOut
	case d.Direct:
		return FlowKindDirect
	default:
		return FlowKindTemplate
	}
}

// Validate checks that the definition is complete and self-consistent
func (d *FlowDefinition) Validate() error {
	if d.Name == "" {
		return ErrFlowNameEmpty
	}
	if err := d.validateBody(); err != nil {
		return fmt.Errorf("flow %q: %w", d.Name, err)
	}
	if err := d.Input.Validate(); err != nil {
		return fmt.Errorf("flow %q input: %w", d.Name, err)
	}
	if err := d.Output.Validate(); err != nil {
		return fmt.Errorf("flow %q output: %w", d.Name, err)
	}

	var err error
	switch d.Kind() {
	case FlowKindTemplate:
		err = d.Template.Validate()
	case FlowKindFanOut:
		err = d.validateFanOut()
	}
	if err == nil {
		err = d.validateMedia()
	}
	if err == nil {
		err = d.validateCheck()
	}
	if err != nil {
		return fmt.Errorf("flow %q: %w", d.Name, err)
	}
	return nil
}

func (d *FlowDefinition) validateBody() error {
	bodies := 0
	if d.Template != nil {
		bodies++
	}
	if d.Direct {
		bodies++
	}
	if d.FanOut != nil {
		bodies++
	}
	if d.Handler != nil {
		bodies++
	}
	switch bodies {
	case 0:
		return ErrFlowBodyMissing
	case 1:
	default:
		return ErrFlowBodyAmbiguous
	}

	if d.Template != nil || d.Direct {
		if d.Model == "" {
			return ErrFlowModelEmpty
		}
		if !validModalities.Contains(d.Modality) {
			return fmt.Errorf("%w: %q", ErrInvalidModality, d.Modality)
		}
	}
	return nil
}

func (d *FlowDefinition) validateFanOut() error {
	f := d.FanOut
	if f.Flow == "" || f.As == "" || f.Collect == "" {
		return fmt.Errorf("%w: sub-flow, as and collect are required",
			ErrFanOutFieldInvalid)
	}
	if in, ok := d.Input[f.Over]; !ok || in.Type != TypeArray {
		return fmt.Errorf("%w: over %q must be an input array",
			ErrFanOutFieldInvalid, f.Over)
	}
	if out, ok := d.Output[f.Into]; !ok || out.Type != TypeArray {
		return fmt.Errorf("%w: into %q must be an output array",
			ErrFanOutFieldInvalid, f.Into)
	}
	return nil
}

func (d *FlowDefinition) validateMedia() error {
	if d.MediaField == "" {
		return nil
	}
	if d.Modality != ModalityTextAndImage {
		return ErrMediaRequiresImage
	}
	out, ok := d.Output[d.MediaField]
	if !ok || out.Type != TypeString {
		return fmt.Errorf("%w: %q", ErrMediaFieldInvalid, d.MediaField)
	}
	return nil
}

func (d *FlowDefinition) validateCheck() error {
	if d.Check == nil {
		return nil
	}
	if d.Check.Language == "" {
		return ErrScriptLanguageEmpty
	}
	if !validScriptLangs.Contains(d.Check.Language) {
		return fmt.Errorf("%w: %s", ErrInvalidScriptLang, d.Check.Language)
	}
	if d.Check.Script == "" {
		return ErrScriptEmpty
	}
	return nil
}

// CheckArgNames returns the sorted names visible to the check script: every
// declared input and output field
func (d *FlowDefinition) CheckArgNames() []string {
	var res []string
	for _, s := range []Schema{d.Input, d.Output} {
		for name := range s {
			if !slices.Contains(res, string(name)) {
				res = append(res, string(name))
			}
		}
	}
	slices.Sort(res)
	return res
}
