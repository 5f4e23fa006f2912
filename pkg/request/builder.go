package request

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Builder accumulates an endpoint configuration. The first configuration error
// is kept (and logged) at the call that caused it; later calls are ignored and
// Build or Seal returns it. A builder cannot be reused once built.
type Builder struct {
	t     *Template
	err   error
	built bool
}

func newBuilder(method, rawURL string, opts []Option) *Builder {
	t := &Template{
		method:        method,
		query:         map[string]any{},
		headers:       map[string]any{},
		formSeparator: DefaultFormSeparator,
		designOptions: Options{},
		logger:        zap.NewNop(),
		sleep:         sleepContext,
	}
	if hasBody(method) {
		t.bodyType = BodyJSON
	} else {
		t.bodyType = BodyNone
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.transport == nil {
		t.transport = NewHTTPTransport(30 * time.Second)
	}

	b := &Builder{t: t}
	parsed, err := parseURLTemplate(rawURL)
	if err != nil {
		return b.fail("url", err)
	}
	t.url = parsed
	return b
}

// Err reports the first configuration error, if any.
func (b *Builder) Err() error { return b.err }

func (b *Builder) fail(op string, err error) *Builder {
	if b.err == nil {
		b.err = err
		b.t.logger.Warn("invalid request configuration",
			zap.String("op", op),
			zap.String("method", b.t.method),
			zap.String("url", b.t.url.raw),
			zap.Error(err))
	}
	return b
}

// usable guards every configuration step.
func (b *Builder) usable(op string) bool {
	if b.built {
		b.fail(op, newConfigError(CodeSealed, http.StatusBadRequest, "the configuration was already built; %s is not allowed", op))
		return false
	}
	return b.err == nil
}

// Named sets the name used by a Registry and in serialized requests.
func (b *Builder) Named(name string) *Builder {
	if b.usable("name") {
		b.t.name = strings.TrimSpace(name)
	}
	return b
}

// Query replaces the query parameter configuration. Static values win over
// same-named dynamic and calculated values.
func (b *Builder) Query(props Properties) *Builder {
	if !b.usable("query") {
		return b
	}
	c, err := classify(props)
	if err != nil {
		return b.fail("query", err)
	}
	b.t.query = c.static
	b.t.locations = b.t.locations.setForLocation(LocationQuery, c.dynamics, c.calcs)
	return b
}

// Headers replaces the header configuration. Header names are matched
// case-insensitively; static values are stored under their canonical name.
func (b *Builder) Headers(props Properties) *Builder {
	if !b.usable("headers") {
		return b
	}
	c, err := classify(props)
	if err != nil {
		return b.fail("headers", err)
	}
	b.t.headers = canonicalHeaders(c.static)
	b.t.locations = b.t.locations.setForLocation(LocationHeader, c.dynamics, c.calcs)
	return b
}

// Body replaces the body defaults. Only JSON and form bodies of verbs that
// carry a body can be configured this way.
func (b *Builder) Body(props Properties) *Builder {
	if !b.usable("body") {
		return b
	}
	if !hasBody(b.t.method) {
		return b.fail("body", newConfigError(CodeBodyNotAllowed, http.StatusBadRequest,
			"you can not set body parameters when configuring a %s request", b.t.method))
	}
	if !b.t.bodyType.keyed() {
		return b.fail("body", newConfigError(CodeBodyNotAllowed, http.StatusBadRequest,
			"only JSON and form bodies can be configured with body fields; body type is %s", b.t.bodyType))
	}
	c, err := classify(props)
	if err != nil {
		return b.fail("body", err)
	}
	b.t.body = c.static
	b.t.locations = b.t.locations.setForLocation(LocationBody, c.dynamics, c.calcs)
	return b
}

// BodyAsJSON sends the body as a JSON document.
func (b *Builder) BodyAsJSON() *Builder { return b.bodyAs(BodyJSON) }

// BodyAsForm sends the body as url-encoded form fields; separator joins the
// elements of repeated fields.
func (b *Builder) BodyAsForm(separator ...string) *Builder {
	if len(separator) > 0 && separator[0] != "" && b.usable("body type") {
		b.t.formSeparator = separator[0]
	}
	return b.bodyAs(BodyForm)
}

// BodyAsText sends the body as plain text.
func (b *Builder) BodyAsText() *Builder { return b.bodyAs(BodyText) }

// BodyAsHTML sends the body as HTML.
func (b *Builder) BodyAsHTML() *Builder { return b.bodyAs(BodyHTML) }

// BodyAsUnknown sends the body as application/octet-stream.
func (b *Builder) BodyAsUnknown() *Builder { return b.bodyAs(BodyUnknown) }

// BodyAsLiteral sends the caller's body string untouched and sets no
// Content-Type.
func (b *Builder) BodyAsLiteral() *Builder { return b.bodyAs(BodyLiteral) }

// BodyType selects the body type by name.
func (b *Builder) BodyType(bt BodyType) *Builder { return b.bodyAs(bt) }

func (b *Builder) bodyAs(bt BodyType) *Builder {
	if !b.usable("body type") {
		return b
	}
	if !bt.valid() {
		return b.fail("body type", newConfigError(CodeInvalidBodyType, http.StatusBadRequest, "unknown body type: %q", bt))
	}
	if !hasBody(b.t.method) {
		if bt == BodyNone {
			return b
		}
		return b.fail("body type", newConfigError(CodeInvalidBodyType, http.StatusBadRequest,
			"you can not state a body type other than none for a %s request", b.t.method))
	}
	if !bt.keyed() && (len(b.t.body) > 0 || len(b.t.locations.dynamicsAt(LocationBody)) > 0 || len(b.t.locations.calcsAt(LocationBody)) > 0) {
		return b.fail("body type", newConfigError(CodeInvalidBodyType, http.StatusBadRequest,
			"body fields are configured, so the body type must stay JSON or form fields (got %s)", bt))
	}
	b.t.bodyType = bt
	return b
}

// Unwrap sets a dot-path (gjson syntax) to the part of the response that is
// returned; it applies before the mapper.
func (b *Builder) Unwrap(path string) *Builder {
	if b.usable("unwrap") {
		b.t.unwrap = strings.TrimSpace(path)
	}
	return b
}

// Mapper transforms the response data before it is returned.
func (b *Builder) Mapper(fn Mapper) *Builder {
	if b.usable("mapper") {
		b.t.mapper = fn
	}
	return b
}

// ErrorHandler installs the recovery handler.
func (b *Builder) ErrorHandler(fn ErrorHandler) *Builder {
	if b.usable("error handler") {
		b.t.errorHandler = fn
	}
	return b
}

// MockFn installs the function answering mock requests.
func (b *Builder) MockFn(fn MockFunc) *Builder {
	if b.usable("mock function") {
		b.t.mockFn = fn
	}
	return b
}

// Options sets the design-time option bag; per-call options override it.
func (b *Builder) Options(opts Options) *Builder {
	if b.usable("options") {
		b.t.designOptions = copyMap(opts)
	}
	return b
}

// Build finalizes the configuration.
func (b *Builder) Build() (*Template, error) {
	if b.built && b.err == nil {
		return nil, newConfigError(CodeSealed, http.StatusBadRequest, "the configuration was already built")
	}
	b.built = true
	if b.err != nil {
		return nil, b.err
	}
	return b.t, nil
}

// Seal finalizes the configuration and returns the execution-only handle.
func (b *Builder) Seal() (*Sealed, error) {
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	return t.Seal(), nil
}

// MustSeal is Seal for package-level endpoint declarations; it panics on a
// configuration error.
func (b *Builder) MustSeal() *Sealed {
	s, err := b.Seal()
	if err != nil {
		panic(err)
	}
	return s
}
