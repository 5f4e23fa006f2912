package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// asString converts a setting value to a string.
func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	default:
		return cast.ToStringE(v)
	}
}

// asBool accepts booleans and the strings strconv understands; an empty string
// is false.
func asBool(value interface{}) (bool, error) {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return false, nil
	}
	return cast.ToBoolE(value)
}

func asFloat64(value interface{}) (float64, error) {
	return cast.ToFloat64E(value)
}

// asDuration parses duration strings; bare numbers are seconds.
func asDuration(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil
		}
		return time.ParseDuration(v)
	}
	secs, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// asStringSlice accepts lists and comma separated strings.
func asStringSlice(value interface{}) ([]string, error) {
	if value == nil {
		return nil, nil
	}
	var items []string
	switch v := value.(type) {
	case string:
		items = strings.Split(v, ",")
	case []string:
		items = v
	case []interface{}:
		for i, item := range v {
			str, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, str)
		}
	default:
		return nil, fmt.Errorf("unsupported string slice type %T", value)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}
