package request

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Resolved is the transport-ready request produced for one call. It is a pure
// function of the template, the caller input and the per-call options.
type Resolved struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Query      map[string]any    `json:"queryParameters"`
	Body       any               `json:"body,omitempty"`
	Payload    string            `json:"payload,omitempty"`
	BodyType   BodyType          `json:"bodyType"`
	IsMock     bool              `json:"isMockRequest"`
	MockConfig MockConfig        `json:"mockConfig"`
	Options    Options           `json:"options,omitempty"`
	Unwrap     string            `json:"unwrap,omitempty"`
}

// RequestInfo resolves the request for in without sending it. A required
// dynamic value that is missing fails with CodeMissingRequired.
func (t *Template) RequestInfo(in Input, opts Options) (*Resolved, error) {
	// query parameters: dynamics first, statics on top
	query, err := t.locations.resolveDynamics(LocationQuery, in)
	if err != nil {
		return nil, err
	}
	for k, v := range t.query {
		query[k] = v
	}

	baseURL, err := t.url.resolve(in)
	if err != nil {
		return nil, err
	}

	bodyType := t.BodyType()
	headers := map[string]string{}
	if ct := bodyType.ContentType(); ct != "" && hasBody(t.method) {
		headers["Content-Type"] = ct
	}
	dynHeaders, err := t.locations.resolveDynamics(LocationHeader, in)
	if err != nil {
		return nil, err
	}
	for k, v := range canonicalHeaders(dynHeaders) {
		headers[k] = formatScalar(v)
	}
	for k, v := range t.headers {
		headers[k] = formatScalar(v)
	}

	body, err := t.mergeBody(in, bodyType)
	if err != nil {
		return nil, err
	}

	mockConfig, transportOpts, err := splitOptions(t.defaults, t.designOptions, opts)
	if err != nil {
		return nil, err
	}

	resolved := &Resolved{
		Method:     t.method,
		URL:        baseURL,
		Headers:    headers,
		Query:      query,
		Body:       body,
		BodyType:   bodyType,
		IsMock:     t.defaults.isMock(mockConfig),
		MockConfig: mockConfig,
		Options:    transportOpts,
		Unwrap:     t.unwrap,
	}

	if err := t.runCalculations(in, resolved); err != nil {
		return nil, err
	}

	if bodyType != BodyNone {
		payload, err := serializeBody(resolved.Body, bodyType, t.formSeparator)
		if err != nil {
			return nil, err
		}
		resolved.Payload = payload
	}

	if qs := encodeQuery(resolved.Query); qs != "" {
		resolved.URL = baseURL + "?" + qs
	}
	return resolved, nil
}

// canonicalHeaders rekeys in by canonical header name. When two keys fold to
// the same name the one sorting last wins.
func canonicalHeaders[V any](in map[string]V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for _, k := range sortedKeys(in) {
		out[http.CanonicalHeaderKey(k)] = in[k]
	}
	return out
}

// mergeBody layers template body fields, caller body fields and dynamic body
// values, later layers winning. A non-keyed caller body is sent as is only
// when the template configures no body fields; otherwise it is rejected.
func (t *Template) mergeBody(in Input, bodyType BodyType) (any, error) {
	if bodyType == BodyNone {
		return nil, nil
	}
	if !bodyType.keyed() {
		return in.Body, nil
	}

	dynamics, err := t.locations.resolveDynamics(LocationBody, in)
	if err != nil {
		return nil, err
	}
	callerFields, keyed := asFields(in.Body)
	if in.Body != nil && !keyed {
		if t.configuresBody() {
			return nil, newConfigError(CodeInvalidBodyType, http.StatusBadRequest,
				"the %s body of %s has configured fields, so the caller body must be a map or struct, got %T",
				bodyType, t.label(), in.Body)
		}
		return in.Body, nil
	}

	body := copyMap(t.body)
	if body == nil {
		body = map[string]any{}
	}
	for k, v := range callerFields {
		body[k] = v
	}
	for k, v := range dynamics {
		body[k] = v
	}
	return body, nil
}

func (t *Template) configuresBody() bool {
	return len(t.body) > 0 ||
		len(t.locations.dynamicsAt(LocationBody)) > 0 ||
		len(t.locations.calcsAt(LocationBody)) > 0
}

// runCalculations evaluates every calculated property against one snapshot of
// the request taken before any of them ran, so calculations cannot observe each
// other. Static query and header values are never overwritten.
func (t *Template) runCalculations(in Input, r *Resolved) error {
	if len(t.locations.calcs) == 0 {
		return nil
	}
	snapshot := Context{
		Method:     r.Method,
		URL:        r.URL,
		Headers:    copyMap(r.Headers),
		Query:      copyMap(r.Query),
		BodyType:   r.BodyType,
		MockConfig: r.MockConfig,
	}
	if fields, ok := r.Body.(map[string]any); ok {
		snapshot.Body = copyMap(fields)
	} else {
		snapshot.Body = r.Body
	}

	for _, calc := range t.locations.calcs {
		value, err := calc.Compute(in, snapshot)
		if err != nil {
			return &ConfigError{
				Code:    CodeCalculationFailed,
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf("calculating %s property %q: %v", calc.Location, calc.Name, err),
				Cause:   err,
			}
		}
		switch calc.Location {
		case LocationQuery:
			if _, static := t.query[calc.Name]; !static {
				r.Query[calc.Name] = value
			}
		case LocationHeader:
			name := http.CanonicalHeaderKey(calc.Name)
			if _, static := t.headers[name]; !static {
				r.Headers[name] = formatScalar(value)
			}
		case LocationBody:
			fields, ok := r.Body.(map[string]any)
			if !ok || !r.BodyType.keyed() {
				t.logger.Debug("skipping body calculation for a non-keyed body",
					zap.String("prop", calc.Name), zap.String("body_type", string(r.BodyType)))
				continue
			}
			fields[calc.Name] = value
		}
	}
	return nil
}
