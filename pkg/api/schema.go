package api

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kode4food/atelier/pkg/util"
)

type (
	// Schema declares the accepted fields of a flow's input or output
	Schema map[Name]*FieldSpec

	// FieldSpec describes the shape of a single field. Items describes the
	// elements of an array field, Fields the members of an object field
	FieldSpec struct {
		Role      FieldRole  `json:"role,omitempty"`
		Type      FieldType  `json:"type"`
		Enum      []string   `json:"enum,omitempty"`
		Items     *FieldSpec `json:"items,omitempty"`
		Fields    Schema     `json:"fields,omitempty"`
		MinItems  int        `json:"min_items,omitempty"`
		MaxItems  int        `json:"max_items,omitempty"`
		MinLength int        `json:"min_length,omitempty"`
	}

	FieldRole string
	FieldType string
)

const (
	RoleRequired FieldRole = "required"
	RoleOptional FieldRole = "optional"
)

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeAny     FieldType = "any"
)

var (
	ErrFieldNameEmpty      = errors.New("field name empty")
	ErrFieldNil            = errors.New("field has nil definition")
	ErrInvalidFieldRole    = errors.New("invalid field role")
	ErrInvalidFieldType    = errors.New("invalid field type")
	ErrEnumRequiresString  = errors.New("enum requires a string field")
	ErrItemsRequiresArray  = errors.New("items requires an array field")
	ErrFieldsRequireObject = errors.New("fields require an object field")
	ErrInvalidItemBounds   = errors.New("invalid item bounds")
	ErrNegativeMinLength   = errors.New("min_length cannot be negative")
)

var (
	validFieldRoles = util.SetOf(RoleRequired, RoleOptional)

	validFieldTypes = util.SetOf(
		TypeString,
		TypeNumber,
		TypeInteger,
		TypeBoolean,
		TypeObject,
		TypeArray,
		TypeAny,
	)
)

// Required declares a required field of the given type
func Required(typ FieldType) *FieldSpec {
	return &FieldSpec{Role: RoleRequired, Type: typ}
}

// Optional declares an optional field of the given type
func Optional(typ FieldType) *FieldSpec {
	return &FieldSpec{Role: RoleOptional, Type: typ}
}

// ArrayOf declares a required array field whose elements match items
func ArrayOf(items *FieldSpec) *FieldSpec {
	return &FieldSpec{Role: RoleRequired, Type: TypeArray, Items: items}
}

// ObjectOf declares a required object field with the given members
func ObjectOf(fields Schema) *FieldSpec {
	return &FieldSpec{Role: RoleRequired, Type: TypeObject, Fields: fields}
}

// WithEnum returns a copy of the spec restricted to the given values
func (fs *FieldSpec) WithEnum(values ...string) *FieldSpec {
	res := *fs
	res.Enum = values
	return &res
}

// WithItemBounds returns a copy of the spec whose array length must fall
// within [min, max]. A zero max leaves the upper bound open
func (fs *FieldSpec) WithItemBounds(min, max int) *FieldSpec {
	res := *fs
	res.MinItems = min
	res.MaxItems = max
	return &res
}

// WithMinLength returns a copy of the spec requiring string values of at
// least n characters
func (fs *FieldSpec) WithMinLength(n int) *FieldSpec {
	res := *fs
	res.MinLength = n
	return &res
}

// IsRequired reports whether the field must be present. Array items and
// object members without a role are treated as required
func (fs *FieldSpec) IsRequired() bool {
	return fs.Role != RoleOptional
}

// Validate checks that the field definition itself is well formed
func (fs *FieldSpec) Validate(name Name) error {
	if fs.Role != "" && !validFieldRoles.Contains(fs.Role) {
		return fmt.Errorf("%w: %s for field %q",
			ErrInvalidFieldRole, fs.Role, name)
	}

	if !validFieldTypes.Contains(fs.Type) {
		return fmt.Errorf("%w: %s for field %q",
			ErrInvalidFieldType, fs.Type, name)
	}

	if len(fs.Enum) > 0 && fs.Type != TypeString {
		return fmt.Errorf("%w: %q", ErrEnumRequiresString, name)
	}

	if fs.MinLength < 0 {
		return fmt.Errorf("%w: %q", ErrNegativeMinLength, name)
	}

	if fs.Items != nil || fs.MinItems != 0 || fs.MaxItems != 0 {
		if fs.Type != TypeArray {
			return fmt.Errorf("%w: %q", ErrItemsRequiresArray, name)
		}
	}

	if fs.MinItems < 0 || fs.MaxItems < 0 ||
		(fs.MaxItems != 0 && fs.MaxItems < fs.MinItems) {
		return fmt.Errorf("%w: [%d, %d] for field %q",
			ErrInvalidItemBounds, fs.MinItems, fs.MaxItems, name)
	}

	if fs.Items != nil {
		if err := fs.Items.Validate(name + "[]"); err != nil {
			return err
		}
	}

	if fs.Fields != nil {
		if fs.Type != TypeObject {
			return fmt.Errorf("%w: %q", ErrFieldsRequireObject, name)
		}
		if err := fs.Fields.validate(name + "."); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every field definition in the schema
func (s Schema) Validate() error {
	return s.validate("")
}

func (s Schema) validate(prefix Name) error {
	for _, name := range s.SortedNames() {
		if name == "" {
			return ErrFieldNameEmpty
		}
		fs := s[name]
		if fs == nil {
			return fmt.Errorf("%w: %q", ErrFieldNil, prefix+name)
		}
		if err := fs.Validate(prefix + name); err != nil {
			return err
		}
	}
	return nil
}

// SortedNames returns the schema's field names in lexical order
func (s Schema) SortedNames() []Name {
	names := make([]Name, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Describe renders a compact, deterministic description of the expected
// shape, used in validation messages and model instructions
func (fs *FieldSpec) Describe() string {
	switch {
	case fs.Type == TypeString && len(fs.Enum) > 0:
		return fmt.Sprintf("string, one of %v", fs.Enum)
	case fs.Type == TypeArray && fs.Items != nil:
		return fmt.Sprintf("array of %s%s", fs.Items.Describe(), fs.bounds())
	case fs.Type == TypeArray:
		return "array" + fs.bounds()
	case fs.Type == TypeObject && len(fs.Fields) > 0:
		return fmt.Sprintf("object with %v", fs.Fields.SortedNames())
	default:
		return string(fs.Type)
	}
}

func (fs *FieldSpec) bounds() string {
	switch {
	case fs.MaxItems > 0:
		return fmt.Sprintf(" (%d to %d items)", fs.MinItems, fs.MaxItems)
	case fs.MinItems > 0:
		return fmt.Sprintf(" (at least %d items)", fs.MinItems)
	default:
		return ""
	}
}
