package request

import (
	"net/http"
	"net/url"
	"strings"
)

// urlTemplate is a parsed URL pattern such as
// "https://api.example.com/products/{id:4567}/reviews".
type urlTemplate struct {
	raw      string
	prefix   string
	segments []urlSegment
}

type urlSegment struct {
	name       string
	def        string
	hasDefault bool
	suffix     string
}

// parseURLTemplate splits raw on "{"; each later part must contain "}" which
// closes a variable written as "name" or "name:default".
func parseURLTemplate(raw string) (urlTemplate, error) {
	parts := strings.Split(raw, "{")
	t := urlTemplate{raw: raw, prefix: parts[0]}
	for _, part := range parts[1:] {
		end := strings.Index(part, "}")
		if end == -1 {
			return urlTemplate{}, newConfigError(CodeInvalidURL, http.StatusBadRequest,
				"URL variables must be delimited by opening and closing curly brackets; %q has an unclosed bracket", raw)
		}
		spec, suffix := part[:end], part[end+1:]
		if strings.Contains(suffix, "}") {
			return urlTemplate{}, newConfigError(CodeInvalidURL, http.StatusBadRequest,
				"URL %q has a closing curly bracket without an opening one", raw)
		}
		seg := urlSegment{name: spec, suffix: suffix}
		if name, def, ok := strings.Cut(spec, ":"); ok {
			seg.name, seg.def, seg.hasDefault = name, def, true
		}
		seg.name = strings.TrimSpace(seg.name)
		if seg.name == "" {
			return urlTemplate{}, newConfigError(CodeInvalidURL, http.StatusBadRequest,
				"URL %q has a variable with no name", raw)
		}
		t.segments = append(t.segments, seg)
	}
	if strings.Contains(t.prefix, "}") {
		return urlTemplate{}, newConfigError(CodeInvalidURL, http.StatusBadRequest,
			"URL %q has a closing curly bracket without an opening one", raw)
	}
	return t, nil
}

// dynamics describes the URL variables as dynamic properties; variables
// without an inline default are required.
func (t urlTemplate) dynamics() []DynamicProp {
	out := make([]DynamicProp, 0, len(t.segments))
	for _, seg := range t.segments {
		d := DynamicProp{Name: seg.name, Location: LocationURL, Required: !seg.hasDefault}
		if seg.hasDefault {
			d.Default = seg.def
		}
		out = append(out, d)
	}
	return out
}

// resolve substitutes caller params first, inline defaults second. Caller
// values are path-escaped; defaults are part of the pattern and used verbatim.
func (t urlTemplate) resolve(in Input) (string, error) {
	var b strings.Builder
	b.WriteString(t.prefix)
	for _, seg := range t.segments {
		switch v, ok := in.lookup(seg.name); {
		case ok:
			b.WriteString(url.PathEscape(formatScalar(v)))
		case seg.hasDefault:
			b.WriteString(seg.def)
		default:
			return "", newConfigError(CodeURLDynamicsInvalid, http.StatusBadRequest,
				"attempt to build URL failed because there was no default value for %q nor was it passed into the request", seg.name)
		}
		b.WriteString(seg.suffix)
	}
	return b.String(), nil
}
