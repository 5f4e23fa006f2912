// Package extractor reads values out of response data, either by a gjson
// dot-path or by a regular expression over the rendered body.
package extractor

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Rule names one value to pull from a response.
type Rule struct {
	// Name is the key the value is reported under.
	Name string

	// JSONPath is a gjson path ("$.user.id", "user.id", "items.0.id").
	JSONPath string

	// Regex is a pattern with an optional capture group.
	Regex string
}

// ParseRule parses "name=path" or "name=~regex".
func ParseRule(raw string) (Rule, error) {
	name, expr, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || expr == "" {
		return Rule{}, fmt.Errorf("invalid extract rule %q: expected name=path or name=~regex", raw)
	}
	if pattern, isRegex := strings.CutPrefix(expr, "~"); isRegex {
		return Rule{Name: name, Regex: pattern}, nil
	}
	return Rule{Name: name, JSONPath: expr}, nil
}

// Apply evaluates every rule against data. Failures are logged and reported as
// empty strings so one bad rule does not hide the others.
func Apply(data any, rules []Rule, logger *zap.Logger) map[string]string {
	result := make(map[string]string, len(rules))
	if len(rules) == 0 {
		return result
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	body := render(data)
	for _, rule := range rules {
		var value string
		switch {
		case rule.JSONPath != "":
			value = findJSONPath(body, rule.JSONPath, logger)
		case rule.Regex != "":
			value = findRegex(body, rule.Regex, logger)
		}
		result[rule.Name] = value
	}
	return result
}

// render turns response data back into bytes; strings and byte slices are kept
// as they are.
func render(data any) []byte {
	switch v := data.(type) {
	case nil:
		return nil
	case []byte:
		return v
	case string:
		return []byte(v)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return []byte(fmt.Sprint(data))
	}
	return raw
}
