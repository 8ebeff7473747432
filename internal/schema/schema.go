package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/tidwall/gjson"

	"github.com/kode4food/atelier/pkg/api"
)

// ValidationError names the offending field and the shape it was expected
// to have
type ValidationError struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Reason   string `json:"reason"`
}

const (
	reasonMissing    = "missing required field"
	reasonUnexpected = "unexpected field"
	reasonWrongType  = "wrong type %s"
	reasonEnum       = "value %q not allowed"
	reasonItemCount  = "has %d items"
	reasonTooShort   = "has %d characters"

	unknownType = "unknown"
)

var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrNotAnObject = errors.New("JSON value is not an object")
	ErrSchemaNil   = errors.New("schema is nil")
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %s (expected %s)",
		e.Field, e.Reason, e.Expected)
}

// Validate checks value against s and returns it unchanged when it conforms.
// Missing required fields, undeclared fields, wrong primitive types, values
// outside an enumeration and out-of-bounds arrays are rejected. Absent
// optional fields are accepted
func Validate(s api.Schema, value api.Args) (api.Args, error) {
	if s == nil {
		return nil, ErrSchemaNil
	}
	if err := validateObject("", s, toStringMap(value)); err != nil {
		return nil, err
	}
	return value, nil
}

// ParseObject decodes a JSON object into Args without validating it.
// Nested objects become map[string]any and numbers become float64
func ParseObject(data []byte) (api.Args, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return nil, ErrNotAnObject
	}
	res := api.Args{}
	obj.ForEach(func(key, val gjson.Result) bool {
		res[api.Name(key.String())] = val.Value()
		return true
	})
	return res, nil
}

func validateObject(prefix string, s api.Schema, obj map[string]any) error {
	for _, name := range s.SortedNames() {
		fs := s[name]
		path := prefix + string(name)
		val, ok := obj[string(name)]
		if !ok || val == nil {
			if fs.IsRequired() {
				return fail(path, fs, reasonMissing)
			}
			continue
		}
		if err := validateValue(path, fs, val); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := s[api.Name(k)]; !ok {
			return &ValidationError{
				Field:    prefix + k,
				Expected: "no such field",
				Reason:   reasonUnexpected,
			}
		}
	}
	return nil
}

func validateValue(path string, fs *api.FieldSpec, val any) error {
	switch fs.Type {
	case api.TypeString:
		return validateString(path, fs, val)
	case api.TypeNumber:
		if _, ok := toFloat(val); !ok {
			return wrongType(path, fs, val)
		}
	case api.TypeInteger:
		f, ok := toFloat(val)
		if !ok || f != math.Trunc(f) {
			return wrongType(path, fs, val)
		}
	case api.TypeBoolean:
		if _, ok := val.(bool); !ok {
			return wrongType(path, fs, val)
		}
	case api.TypeObject:
		obj, ok := asObject(val)
		if !ok {
			return wrongType(path, fs, val)
		}
		if fs.Fields != nil {
			return validateObject(path+".", fs.Fields, obj)
		}
	case api.TypeArray:
		return validateArray(path, fs, val)
	}
	return nil
}

func validateString(path string, fs *api.FieldSpec, val any) error {
	str, ok := val.(string)
	if !ok {
		return wrongType(path, fs, val)
	}
	if len(fs.Enum) > 0 && !slices.Contains(fs.Enum, str) {
		return fail(path, fs, fmt.Sprintf(reasonEnum, str))
	}
	if n := len([]rune(str)); n < fs.MinLength {
		return fail(path, fs, fmt.Sprintf(reasonTooShort, n))
	}
	return nil
}

func validateArray(path string, fs *api.FieldSpec, val any) error {
	items, ok := AsArray(val)
	if !ok {
		return wrongType(path, fs, val)
	}
	if len(items) < fs.MinItems ||
		(fs.MaxItems > 0 && len(items) > fs.MaxItems) {
		return fail(path, fs, fmt.Sprintf(reasonItemCount, len(items)))
	}
	if fs.Items == nil {
		return nil
	}
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		if item == nil {
			return fail(itemPath, fs.Items, reasonMissing)
		}
		if err := validateValue(itemPath, fs.Items, item); err != nil {
			return err
		}
	}
	return nil
}

func fail(path string, fs *api.FieldSpec, reason string) error {
	return &ValidationError{
		Field:    path,
		Expected: fs.Describe(),
		Reason:   reason,
	}
}

func wrongType(path string, fs *api.FieldSpec, val any) error {
	return fail(path, fs, fmt.Sprintf(reasonWrongType, typeName(val)))
}

func typeName(val any) string {
	switch val.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	default:
		if _, ok := asObject(val); ok {
			return "object"
		}
		if _, ok := AsArray(val); ok {
			return "array"
		}
		return unknownType
	}
}

func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asObject(val any) (map[string]any, bool) {
	switch v := val.(type) {
	case map[string]any:
		return v, true
	case api.Args:
		return toStringMap(v), true
	default:
		return nil, false
	}
}

// AsArray returns the elements of an array value in any of the shapes that
// JSON decoding or Go callers produce
func AsArray(val any) ([]any, bool) {
	switch v := val.(type) {
	case []any:
		return v, true
	case []string:
		res := make([]any, len(v))
		for i, s := range v {
			res[i] = s
		}
		return res, true
	case []map[string]any:
		res := make([]any, len(v))
		for i, m := range v {
			res[i] = m
		}
		return res, true
	default:
		return nil, false
	}
}

func toStringMap(a api.Args) map[string]any {
	res := make(map[string]any, len(a))
	for k, v := range a {
		res[string(k)] = v
	}
	return res
}
