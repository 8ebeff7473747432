package api

import (
	"errors"
	"slices"
)

type (
	// Template is an ordered list of prompt segments rendered against a
	// validated flow input
	Template struct {
		Parts []Segment `json:"parts"`
	}

	// Segment is one piece of a template. Exactly one of Text, Field or When
	// is set. A When segment renders its Parts only if the named field is
	// present and non-empty, equals Equals (when set) and is not one of the
	// Unless values
	Segment struct {
		Text   string    `json:"text,omitempty"`
		Field  Name      `json:"field,omitempty"`
		When   Name      `json:"when,omitempty"`
		Equals string    `json:"equals,omitempty"`
		Unless []string  `json:"unless,omitempty"`
		Parts  []Segment `json:"parts,omitempty"`
	}
)

var (
	ErrSegmentEmpty     = errors.New("template segment empty")
	ErrSegmentAmbiguous = errors.New("template segment has multiple kinds")
)

// NewTemplate creates a template from the provided segments
func NewTemplate(parts ...Segment) *Template {
	return &Template{Parts: parts}
}

// Text creates a literal segment
func Text(s string) Segment {
	return Segment{Text: s}
}

// Field creates a segment interpolating the named input field
func Field(name Name) Segment {
	return Segment{Field: name}
}

// When creates a conditional section included only when the named field is
// present and non-empty
func When(name Name, parts ...Segment) Segment {
	return Segment{When: name, Parts: parts}
}

// Matching restricts a conditional section to a specific field value
func (s Segment) Matching(value string) Segment {
	s.Equals = value
	return s
}

// Except excludes a conditional section for the given field values
func (s Segment) Except(values ...string) Segment {
	s.Unless = append(slices.Clone(s.Unless), values...)
	return s
}

// Validate checks that every segment in the template is well formed
func (t *Template) Validate() error {
	return validateSegments(t.Parts)
}

// Fields returns the distinct input fields the template reads, in order of
// first appearance
func (t *Template) Fields() []Name {
	var res []Name
	collectFields(t.Parts, &res)
	return res
}

func validateSegments(parts []Segment) error {
	for _, seg := range parts {
		kinds := 0
		if seg.Text != "" {
			kinds++
		}
		if seg.Field != "" {
			kinds++
		}
		if seg.When != "" {
			kinds++
		}
		switch kinds {
		case 0:
			return ErrSegmentEmpty
		case 1:
		default:
			return ErrSegmentAmbiguous
		}
		if err := validateSegments(seg.Parts); err != nil {
			return err
		}
	}
	return nil
}

func collectFields(parts []Segment, res *[]Name) {
	add := func(n Name) {
		if n != "" && !slices.Contains(*res, n) {
			*res = append(*res, n)
		}
	}
	for _, seg := range parts {
		add(seg.Field)
		add(seg.When)
		collectFields(seg.Parts, res)
	}
}
