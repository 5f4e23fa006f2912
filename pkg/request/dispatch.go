package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/confreq/internal/extractor"
	"github.com/torosent/confreq/internal/tracing"
)

// Observer is notified once per dispatch, after the outcome is known.
type Observer interface {
	ObserveDispatch(DispatchEvent)
}

// DispatchEvent describes one finished call.
type DispatchEvent struct {
	Template string
	Method   string
	Mock     bool
	Status   int
	Latency  time.Duration
	// Err is the normalized failure; nil on success and when Handled is set.
	Err     *RequestError
	Handled bool
}

// Request resolves the request for in and dispatches it on the mock or the
// network path. It returns the (unwrapped and mapped) response data.
func (t *Template) Request(ctx context.Context, in Input, opts Options) (any, error) {
	resp, err := t.send(ctx, in, opts, t.errorHandler)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Mock is Request with the mock path forced on.
func (t *Template) Mock(ctx context.Context, in Input, opts Options) (any, error) {
	return t.Request(ctx, in, forceMock(opts))
}

// Do is Request returning the whole response envelope.
func (t *Template) Do(ctx context.Context, in Input, opts Options) (*Response, error) {
	return t.send(ctx, in, opts, t.errorHandler)
}

func forceMock(opts Options) Options {
	out := copyMap(opts)
	out[OptMock] = true
	return out
}

func (t *Template) label() string {
	if t.name != "" {
		return t.name
	}
	return t.method + " " + t.url.raw
}

func (t *Template) send(ctx context.Context, in Input, opts Options, handler ErrorHandler) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	active := &ActiveRequest{template: t, input: in, options: copyMap(opts)}

	resolved, err := t.RequestInfo(in, opts)
	if err != nil {
		return t.finish(active, err, LocationResolve, handler, start)
	}
	active.resolved = resolved

	if t.tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartRequestSpan(ctx, t.tracer, resolved.Method, t.label())
		defer func() {
			tracing.EndSpan(span, err, attribute.Bool("confreq.mock", resolved.IsMock))
		}()
	}

	resp, err := t.dispatch(ctx, active)
	if err != nil {
		return t.finish(active, err, LocationDispatch, handler, start)
	}
	data, err := t.shape(resp.Data)
	if err != nil {
		return t.finish(active, err, LocationMapping, handler, start)
	}
	resp.Data = data
	t.observe(active, DispatchEvent{Status: resp.Status}, start)
	return resp, nil
}

// finish normalizes a failure, runs the handler and reports the outcome.
func (t *Template) finish(a *ActiveRequest, err error, location string, handler ErrorHandler, start time.Time) (*Response, error) {
	wrapped := Wrap(err, location, a.resolved)
	if wrapped.Request == nil && a.resolved == nil {
		wrapped.Request = t.partialSnapshot(a.input)
	}
	resp, handled := t.recover(wrapped, a.resolved, handler)
	if !handled {
		t.observe(a, DispatchEvent{Status: wrapped.Status, Err: wrapped}, start)
		return nil, wrapped
	}
	t.observe(a, DispatchEvent{Status: resp.Status, Handled: true}, start)
	return resp, nil
}

// partialSnapshot describes a call that failed to resolve: the URL pattern,
// the static query and headers, and the caller body.
func (t *Template) partialSnapshot(in Input) *Snapshot {
	headers := make(map[string]string, len(t.headers))
	for k, v := range t.headers {
		headers[k] = formatScalar(v)
	}
	return &Snapshot{
		URL:     t.url.raw,
		Headers: headers,
		Query:   copyMap(t.query),
		Body:    in.Body,
	}
}

func (t *Template) dispatch(ctx context.Context, a *ActiveRequest) (*Response, error) {
	r := a.resolved
	if r.IsMock {
		t.logger.Debug("dispatching on the mock path",
			zap.String("template", t.label()),
			zap.String("network_delay", string(r.MockConfig.NetworkDelay)))
		return t.dispatchMock(ctx, a)
	}

	t.logger.Debug("dispatching on the network path",
		zap.String("template", t.label()),
		zap.String("method", r.Method),
		zap.String("url", r.URL))
	topts := TransportOptions{Headers: copyMap(r.Headers), Overlay: copyMap(r.Options)}
	var (
		resp *Response
		err  error
	)
	switch r.Method {
	case http.MethodGet:
		resp, err = t.transport.Get(ctx, r.URL, topts)
	case http.MethodDelete:
		resp, err = t.transport.Delete(ctx, r.URL, topts)
	case http.MethodPost:
		resp, err = t.transport.Post(ctx, r.URL, r.Payload, topts)
	case http.MethodPut:
		resp, err = t.transport.Put(ctx, r.URL, r.Payload, topts)
	case http.MethodPatch:
		resp, err = t.transport.Patch(ctx, r.URL, r.Payload, topts)
	default:
		return nil, newConfigError(CodeInvalidMethod, http.StatusBadRequest, "unsupported method %q", r.Method)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("transport returned no response for %s %s", r.Method, r.URL)
	}
	if resp.Status >= http.StatusMultipleChoices {
		return nil, &responseError{resp: resp}
	}
	return resp, nil
}

// dispatchMock fails with CodeMockNotReady before any delay when no mock
// function is configured.
func (t *Template) dispatchMock(ctx context.Context, a *ActiveRequest) (*Response, error) {
	if t.mockFn == nil {
		return nil, newConfigError(CodeMockNotReady, http.StatusNotImplemented,
			"the mock function for %s is not ready; configure one with MockFn", t.label())
	}

	data, err := t.mockFn(ctx, a)
	if err != nil {
		status := http.StatusBadRequest
		var s interface{ HTTPStatus() int }
		if errors.As(err, &s) && s.HTTPStatus() > 0 {
			status = s.HTTPStatus()
		}
		return nil, &ConfigError{
			Code:    CodeInvalidMockCall,
			Status:  status,
			Message: fmt.Sprintf("mock call for %s failed: %v", t.label(), err),
			Cause:   err,
		}
	}

	delay, err := a.resolved.MockConfig.NetworkDelay.pick()
	if err != nil {
		return nil, err
	}
	if err := t.sleep(ctx, delay); err != nil {
		return nil, err
	}

	resp := &Response{
		Data:       data,
		Status:     http.StatusOK,
		StatusText: http.StatusText(http.StatusOK),
		Headers:    copyMap(a.resolved.Headers),
		Config:     copyMap(a.resolved.Options),
	}
	if isFalsy(data) {
		resp.Status = http.StatusNoContent
		resp.StatusText = http.StatusText(http.StatusNoContent)
	}
	return resp, nil
}

// shape applies the unwrap path and then the mapper. The mapper only sees
// non-nil data.
func (t *Template) shape(data any) (any, error) {
	if t.unwrap != "" && data != nil {
		value, ok, err := extractor.Path(data, t.unwrap)
		if err != nil {
			return nil, err
		}
		if !ok {
			t.logger.Debug("unwrap path not found in response",
				zap.String("template", t.label()), zap.String("path", t.unwrap))
		}
		data = value
	}
	if t.mapper != nil && data != nil {
		return t.mapper(data)
	}
	return data, nil
}

// recover gives handler the chance to substitute a payload for a failure.
// Mock readiness failures are never recoverable.
func (t *Template) recover(wrapped *RequestError, resolved *Resolved, handler ErrorHandler) (*Response, bool) {
	t.logger.Debug("request failed",
		zap.String("template", t.label()),
		zap.String("kind", wrapped.Kind),
		zap.String("code", wrapped.Code),
		zap.Int("status", wrapped.Status),
		zap.String("location", wrapped.Location),
		zap.Error(wrapped.Cause))

	if handler == nil || wrapped.Code == CodeMockNotReady {
		return nil, false
	}
	recovered, handled := handler(wrapped)
	if !handled {
		return nil, false
	}
	resp := &Response{
		Data:       recovered,
		Status:     http.StatusAccepted,
		StatusText: fmt.Sprintf("An error was handled by the error handler [%s]", wrapped.Name()),
	}
	if resolved != nil {
		resp.Headers = copyMap(resolved.Headers)
		resp.Config = copyMap(resolved.Options)
	}
	return resp, true
}

func (t *Template) observe(a *ActiveRequest, ev DispatchEvent, start time.Time) {
	if t.observer == nil {
		return
	}
	ev.Template = t.label()
	ev.Method = t.method
	ev.Latency = time.Since(start)
	if a.resolved != nil {
		ev.Mock = a.resolved.IsMock
	}
	t.observer.ObserveDispatch(ev)
}

// responseError is a response whose status is 300 or above.
type responseError struct {
	resp *Response
}

func (e *responseError) Error() string {
	return fmt.Sprintf("request failed with status %d %s", e.resp.Status, e.resp.StatusText)
}

func (e *responseError) HTTPStatus() int { return e.resp.Status }

func (e *responseError) HTTPStatusText() string {
	if e.resp.StatusText != "" {
		return e.resp.StatusText
	}
	return http.StatusText(e.resp.Status)
}

func (e *responseError) ResponseBody() string {
	switch v := e.resp.Data.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	raw, err := json.Marshal(e.resp.Data)
	if err != nil {
		return fmt.Sprint(e.resp.Data)
	}
	return string(raw)
}
