package api

import "maps"

type (
	// Args represents a map of named values passed to or returned from flows
	Args map[Name]any

	// Name is a string identifier for flows, fields and arguments
	Name string
)

// Merge returns a new Args containing a's values overlaid with other's
func (a Args) Merge(other Args) Args {
	res := make(Args, len(a)+len(other))
	maps.Copy(res, a)
	maps.Copy(res, other)
	return res
}

// GetString retrieves a string value from args, returning defaultValue if not
// found or wrong type
func (a Args) GetString(name Name, defaultValue string) string {
	val, ok := a[name]
	if !ok {
		return defaultValue
	}
	str, ok := val.(string)
	if !ok {
		return defaultValue
	}
	return str
}
