// Package prompt renders flow templates into the instruction text handed to
// a model
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kode4food/atelier/pkg/api"
)

const listSeparator = ", "

var (
	ErrTemplateNil  = errors.New("template is nil")
	ErrUnknownField = errors.New("template field not in input")
	ErrRenderValue  = errors.New("failed to render field value")
)

// Render substitutes validated input fields into the template. Only fields
// present in the input are interpolated; the same input always renders the
// same string
func Render(t *api.Template, in api.Args) (string, error) {
	if t == nil {
		return "", ErrTemplateNil
	}
	var sb strings.Builder
	if err := renderParts(&sb, t.Parts, in); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Check reports an error if the template reads any field that the input
// schema does not declare
func Check(t *api.Template, input api.Schema) error {
	if t == nil {
		return ErrTemplateNil
	}
	for _, name := range t.Fields() {
		if _, ok := input[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}
	return nil
}

func renderParts(sb *strings.Builder, parts []api.Segment, in api.Args) error {
	for _, seg := range parts {
		switch {
		case seg.Text != "":
			sb.WriteString(seg.Text)
		case seg.Field != "":
			val, ok := in[seg.Field]
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownField, seg.Field)
			}
			str, err := formatValue(val)
			if err != nil {
				return fmt.Errorf("%w %q: %w", ErrRenderValue, seg.Field, err)
			}
			sb.WriteString(str)
		case seg.When != "":
			if !included(seg, in) {
				continue
			}
			if err := renderParts(sb, seg.Parts, in); err != nil {
				return err
			}
		}
	}
	return nil
}

func included(seg api.Segment, in api.Args) bool {
	val, ok := in[seg.When]
	if !ok || isEmpty(val) {
		return false
	}
	str, isStr := val.(string)
	if seg.Equals != "" && (!isStr || str != seg.Equals) {
		return false
	}
	if isStr && slices.Contains(seg.Unless, str) {
		return false
	}
	return true
}

func isEmpty(val any) bool {
	switch v := val.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func formatValue(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []string:
		return strings.Join(v, listSeparator), nil
	case []any:
		if strs, ok := allStrings(v); ok {
			return strings.Join(strs, listSeparator), nil
		}
	}
	data, err := json.Marshal(val)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func allStrings(items []any) ([]string, bool) {
	res := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		res[i] = s
	}
	return res, true
}
