package request

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/spf13/cast"
)

// Location is the part of a request that a configured property is written into.
type Location string

const (
	LocationURL    Location = "url"
	LocationQuery  Location = "queryParameter"
	LocationHeader Location = "header"
	LocationBody   Location = "body"
)

// Input is the per-call caller input. Params feed URL segments and dynamic
// properties of every location; Body carries caller-supplied body fields (a map
// or struct for JSON/form bodies, any value for opaque bodies).
type Input struct {
	Params map[string]any `json:"params,omitempty"`
	Body   any            `json:"body,omitempty"`
}

// Params is shorthand for an Input carrying only params.
func Params(kv map[string]any) Input {
	return Input{Params: kv}
}

func (in Input) lookup(name string) (any, bool) {
	if in.Params == nil {
		return nil, false
	}
	v, ok := in.Params[name]
	return v, ok
}

// formatScalar renders a string/number/boolean the way it appears on the wire.
func formatScalar(v any) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// asFields converts a keyed body value into a fresh map. Structs are converted
// through their JSON representation so struct tags are honoured.
func asFields(v any) (map[string]any, bool) {
	switch vt := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		return copyMap(vt), true
	case map[string]string:
		out := make(map[string]any, len(vt))
		for k, s := range vt {
			out[k] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

func copyMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// isFalsy reports whether a mock return value counts as "no content".
func isFalsy(v any) bool {
	switch vt := v.(type) {
	case nil:
		return true
	case bool:
		return !vt
	case string:
		return vt == ""
	case int:
		return vt == 0
	case int64:
		return vt == 0
	case float64:
		return vt == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}
