package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
)

// BodyType selects how the merged body is put on the wire.
type BodyType string

const (
	BodyJSON    BodyType = "JSON"
	BodyForm    BodyType = "formFields"
	BodyText    BodyType = "text"
	BodyHTML    BodyType = "html"
	BodyUnknown BodyType = "unknown"
	BodyLiteral BodyType = "literal"
	BodyNone    BodyType = "none"
)

// DefaultFormSeparator joins the elements of a repeated form field.
const DefaultFormSeparator = ","

// ContentType is the header value attached for the body type; literal and none
// bodies get none.
func (b BodyType) ContentType() string {
	switch b {
	case BodyJSON:
		return "application/json"
	case BodyForm:
		return "application/x-www-form-urlencoded"
	case BodyText:
		return "text/plain"
	case BodyHTML:
		return "text/html"
	case BodyUnknown:
		return "application/octet-stream"
	default:
		return ""
	}
}

// keyed reports whether the body type holds named fields.
func (b BodyType) keyed() bool {
	return b == BodyJSON || b == BodyForm
}

func (b BodyType) valid() bool {
	switch b {
	case BodyJSON, BodyForm, BodyText, BodyHTML, BodyUnknown, BodyLiteral, BodyNone:
		return true
	}
	return false
}

// serializeBody produces the wire form of body.
func serializeBody(body any, bodyType BodyType, separator string) (string, error) {
	switch bodyType {
	case BodyJSON:
		raw, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode JSON body: %w", err)
		}
		return string(raw), nil
	case BodyForm:
		return encodeForm(body, separator), nil
	case BodyText, BodyHTML, BodyUnknown:
		return formatScalar(body), nil
	case BodyLiteral:
		if s, ok := body.(string); ok {
			return s, nil
		}
		return formatScalar(body), nil
	case BodyNone:
		return "", nil
	default:
		return "", newConfigError(CodeInvalidBodyType, http.StatusBadRequest, "unknown body type: %q", bodyType)
	}
}

// encodeForm renders fields as sorted, percent-encoded key=value pairs. Slice
// values become one pair whose elements are joined by separator.
func encodeForm(body any, separator string) string {
	fields, ok := asFields(body)
	if !ok {
		return url.QueryEscape(formatScalar(body))
	}
	if separator == "" {
		separator = DefaultFormSeparator
	}
	pairs := make([]string, 0, len(fields))
	for _, key := range sortedKeys(fields) {
		value := fields[key]
		if value == nil {
			continue
		}
		pairs = append(pairs, url.QueryEscape(key)+"="+encodeFormValue(value, separator))
	}
	return strings.Join(pairs, "&")
}

func encodeFormValue(value any, separator string) string {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return url.QueryEscape(formatScalar(value))
	}
	elems := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elems = append(elems, url.QueryEscape(formatScalar(rv.Index(i).Interface())))
	}
	return strings.Join(elems, url.QueryEscape(separator))
}

// encodeQuery renders query parameters, skipping nil values. Slice values
// repeat the key.
func encodeQuery(query map[string]any) string {
	values := url.Values{}
	for key, value := range query {
		if value == nil {
			continue
		}
		rv := reflect.ValueOf(value)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			for i := 0; i < rv.Len(); i++ {
				values.Add(key, formatScalar(rv.Index(i).Interface()))
			}
			continue
		}
		values.Set(key, formatScalar(value))
	}
	return values.Encode()
}
