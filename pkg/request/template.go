package request

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MockFunc answers a request on the mock path.
type MockFunc func(ctx context.Context, req *ActiveRequest) (any, error)

// Mapper transforms the (unwrapped) response data.
type Mapper func(data any) (any, error)

// ErrorHandler sees every normalized failure. Returning handled=false keeps the
// error fatal; otherwise recovered replaces the response data.
type ErrorHandler func(err *RequestError) (recovered any, handled bool)

// Template is a finalized endpoint configuration. It is read-only, so any
// number of goroutines may resolve and dispatch requests against it.
type Template struct {
	name          string
	method        string
	url           urlTemplate
	query         map[string]any
	headers       map[string]any
	body          map[string]any
	bodyType      BodyType
	formSeparator string
	locations     locations
	designOptions Options
	defaults      Defaults
	mockFn        MockFunc
	unwrap        string
	mapper        Mapper
	errorHandler  ErrorHandler

	transport Transport
	logger    *zap.Logger
	tracer    trace.Tracer
	observer  Observer
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures the collaborators of a template at creation time.
type Option func(*Template)

// WithDefaults sets the process-wide mock defaults.
func WithDefaults(d Defaults) Option {
	return func(t *Template) { t.defaults = d }
}

// WithTransport replaces the default HTTP transport.
func WithTransport(tr Transport) Option {
	return func(t *Template) {
		if tr != nil {
			t.transport = tr
		}
	}
}

// WithLogger sets the logger used for configuration and dispatch diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(t *Template) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTracer wraps every dispatch in a client span.
func WithTracer(tr trace.Tracer) Option {
	return func(t *Template) { t.tracer = tr }
}

// WithObserver reports every dispatch to o.
func WithObserver(o Observer) Option {
	return func(t *Template) { t.observer = o }
}

// Get starts the configuration of a GET endpoint.
func Get(url string, opts ...Option) *Builder { return newBuilder(http.MethodGet, url, opts) }

// Delete starts the configuration of a DELETE endpoint.
func Delete(url string, opts ...Option) *Builder { return newBuilder(http.MethodDelete, url, opts) }

// Post starts the configuration of a POST endpoint.
func Post(url string, opts ...Option) *Builder { return newBuilder(http.MethodPost, url, opts) }

// Put starts the configuration of a PUT endpoint.
func Put(url string, opts ...Option) *Builder { return newBuilder(http.MethodPut, url, opts) }

// Patch starts the configuration of a PATCH endpoint.
func Patch(url string, opts ...Option) *Builder { return newBuilder(http.MethodPatch, url, opts) }

// New starts the configuration of an endpoint for an arbitrary verb; only the
// five REST verbs are accepted.
func New(method, url string, opts ...Option) *Builder {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodPost, http.MethodPut, http.MethodPatch:
		return newBuilder(method, url, opts)
	}
	b := newBuilder(http.MethodGet, url, opts)
	return b.fail("method", newConfigError(CodeInvalidMethod, http.StatusBadRequest, "unsupported method %q", method))
}

func hasBody(method string) bool {
	return method != http.MethodGet && method != http.MethodDelete
}

// Name is the registry name of the template, if any.
func (t *Template) Name() string { return t.name }

// Method is the HTTP verb.
func (t *Template) Method() string { return t.method }

// URLPattern is the URL template as configured.
func (t *Template) URLPattern() string { return t.url.raw }

// BodyType is the effective body type; GET and DELETE always report none.
func (t *Template) BodyType() BodyType {
	if !hasBody(t.method) {
		return BodyNone
	}
	return t.bodyType
}

// Dynamics lists the dynamic properties configured at loc.
func (t *Template) Dynamics(loc Location) []DynamicProp {
	if loc == LocationURL {
		return t.url.dynamics()
	}
	return t.locations.dynamicsAt(loc)
}

// Calculations lists the calculated properties configured at loc.
func (t *Template) Calculations(loc Location) []CalculatedProp {
	return t.locations.calcsAt(loc)
}

// Seal returns the execution-only handle for t.
func (t *Template) Seal() *Sealed {
	return &Sealed{t: t, handler: t.errorHandler}
}

// String renders "METHOD url" using defaults only; it falls back to the raw
// pattern when the URL needs caller input.
func (t *Template) String() string {
	info, err := t.RequestInfo(Input{}, nil)
	if err != nil {
		return t.method + " " + t.url.raw
	}
	return info.Method + " " + info.URL
}

// MarshalJSON describes the endpoint: verb, URL pattern, calculated properties
// and the required and optional parameters.
func (t *Template) MarshalJSON() ([]byte, error) {
	var required, optional, calculators []string
	dynamics := append(t.url.dynamics(), t.locations.dynamics...)
	for _, d := range dynamics {
		if d.Required {
			required = append(required, d.Name)
		} else {
			optional = append(optional, d.Name)
		}
	}
	for _, c := range t.locations.calcs {
		calculators = append(calculators, c.Name)
	}
	return json.Marshal(struct {
		Name               string   `json:"name,omitempty"`
		Method             string   `json:"method"`
		URL                string   `json:"url"`
		Calculators        []string `json:"calculators"`
		RequiredParameters []string `json:"requiredParameters"`
		OptionalParameters []string `json:"optionalParameters"`
	}{t.name, t.method, t.url.raw, calculators, required, optional})
}
