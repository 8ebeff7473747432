package script

import (
	"encoding/json"
	"fmt"

	"github.com/kode4food/atelier/pkg/api"
)

// normalize reduces a flow value to the types every script environment
// understands: nil, bool, string, int64, float64, []any and map[string]any
func normalize(value any) any {
	switch v := value.(type) {
	case nil, bool, string, int64, float64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []string:
		res := make([]any, len(v))
		for i, s := range v {
			res[i] = s
		}
		return res
	case []any:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = normalize(item)
		}
		return res
	case []map[string]any:
		res := make([]any, len(v))
		for i, item := range v {
			res[i] = normalize(item)
		}
		return res
	case map[string]any:
		res := make(map[string]any, len(v))
		for k, item := range v {
			res[k] = normalize(item)
		}
		return res
	case api.Args:
		res := make(map[string]any, len(v))
		for k, item := range v {
			res[string(k)] = normalize(item)
		}
		return res
	default:
		return fmt.Sprint(v)
	}
}

func argValues(params []string, args api.Args) []any {
	res := make([]any, len(params))
	for i, p := range params {
		res[i] = normalize(args[api.Name(p)])
	}
	return res
}
