package feeder

import (
	"strings"

	"github.com/spf13/cast"
)

// Expand replaces {{field}} placeholders in the strings of value with the
// fields of record. Maps and slices are copied, not modified. A string that is
// exactly one placeholder takes the field value with its type.
func Expand(value any, record Record) any {
	switch v := value.(type) {
	case string:
		return expandString(v, record)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Expand(item, record)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Expand(item, record)
		}
		return out
	default:
		return value
	}
}

func expandString(s string, record Record) any {
	if !strings.Contains(s, "{{") {
		return s
	}
	if name, ok := strings.CutPrefix(s, "{{"); ok {
		if name, ok = strings.CutSuffix(name, "}}"); ok && !strings.Contains(name, "{{") {
			if v, found := record[name]; found {
				return v
			}
		}
	}
	result := s
	for key, v := range record {
		result = strings.ReplaceAll(result, "{{"+key+"}}", cast.ToString(v))
	}
	return result
}
