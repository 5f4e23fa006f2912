package extractor

import (
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// normalizePath accepts "$.field", "$" and plain gjson paths.
func normalizePath(path string) string {
	if len(path) > 0 && path[0] == '$' {
		if len(path) > 1 && path[1] == '.' {
			return path[2:]
		}
		if len(path) == 1 {
			return "@this"
		}
	}
	return path
}

// Path returns the value at path inside data. ok is false when the path does
// not exist; the returned value is then nil.
func Path(data any, path string) (value any, ok bool, err error) {
	body := render(data)
	if len(body) > 0 && !gjson.ValidBytes(body) {
		return nil, false, fmt.Errorf("unwrap %q: response data is not JSON", path)
	}
	result := gjson.GetBytes(body, normalizePath(path))
	if !result.Exists() {
		return nil, false, nil
	}
	return result.Value(), true, nil
}

func findJSONPath(body []byte, path string, logger *zap.Logger) string {
	result := gjson.GetBytes(body, normalizePath(path))
	if !result.Exists() {
		logger.Warn("JSONPath not found", zap.String("path", path))
		return ""
	}
	return result.String()
}
