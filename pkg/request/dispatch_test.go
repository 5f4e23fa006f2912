package request_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/torosent/confreq/pkg/request"
)

type sentRequest struct {
	Method  string
	URL     string
	Body    string
	Options request.TransportOptions
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentRequest
	resp *request.Response
	err  error
}

func (f *fakeTransport) record(method, url, body string, opts request.TransportOptions) (*request.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentRequest{Method: method, URL: url, Body: body, Options: opts})
	if f.err != nil {
		return nil, f.err
	}
	if f.resp == nil {
		return &request.Response{Data: map[string]any{"ok": true}, Status: http.StatusOK, StatusText: "OK"}, nil
	}
	resp := *f.resp
	return &resp, nil
}

func (f *fakeTransport) Get(_ context.Context, url string, opts request.TransportOptions) (*request.Response, error) {
	return f.record(http.MethodGet, url, "", opts)
}

func (f *fakeTransport) Delete(_ context.Context, url string, opts request.TransportOptions) (*request.Response, error) {
	return f.record(http.MethodDelete, url, "", opts)
}

func (f *fakeTransport) Post(_ context.Context, url, body string, opts request.TransportOptions) (*request.Response, error) {
	return f.record(http.MethodPost, url, body, opts)
}

func (f *fakeTransport) Put(_ context.Context, url, body string, opts request.TransportOptions) (*request.Response, error) {
	return f.record(http.MethodPut, url, body, opts)
}

func (f *fakeTransport) Patch(_ context.Context, url, body string, opts request.TransportOptions) (*request.Response, error) {
	return f.record(http.MethodPatch, url, body, opts)
}

func (f *fakeTransport) calls() []sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentRequest(nil), f.sent...)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []request.DispatchEvent
}

func (o *recordingObserver) ObserveDispatch(ev request.DispatchEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) all() []request.DispatchEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]request.DispatchEvent(nil), o.events...)
}

var mockOn = request.Options{request.OptMock: true}

func TestNetworkDispatch(t *testing.T) {
	transport := &fakeTransport{}
	tmpl := build(t, request.Post("https://x/users/{id}", request.WithTransport(transport)).
		Headers(request.Properties{"Authorization": request.Dynamic(request.WithDefault("Bearer t"))}))

	data, err := tmpl.Request(context.Background(), request.Input{
		Params: map[string]any{"id": "7"},
		Body:   map[string]any{"name": "Ada"},
	}, request.Options{"timeout": "2s"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, data)

	calls := transport.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "https://x/users/7", calls[0].URL)
	assert.JSONEq(t, `{"name":"Ada"}`, calls[0].Body)
	assert.Equal(t, "Bearer t", calls[0].Options.Headers["Authorization"])
	assert.Equal(t, "application/json", calls[0].Options.Headers["Content-Type"])
	assert.Equal(t, "2s", calls[0].Options.Overlay["timeout"])
	assert.NotContains(t, calls[0].Options.Overlay, request.OptMock)
}

func TestEveryVerbDispatches(t *testing.T) {
	transport := &fakeTransport{}
	builders := map[string]*request.Builder{
		http.MethodGet:    request.Get("https://x/r", request.WithTransport(transport)),
		http.MethodDelete: request.Delete("https://x/r", request.WithTransport(transport)),
		http.MethodPost:   request.Post("https://x/r", request.WithTransport(transport)),
		http.MethodPut:    request.Put("https://x/r", request.WithTransport(transport)),
		http.MethodPatch:  request.Patch("https://x/r", request.WithTransport(transport)),
	}
	for method, b := range builders {
		tmpl := build(t, b)
		_, err := tmpl.Request(context.Background(), request.Input{}, nil)
		require.NoError(t, err, method)
	}

	seen := map[string]bool{}
	for _, call := range transport.calls() {
		seen[call.Method] = true
	}
	assert.Len(t, seen, 5)
}

func TestErrorStatusBecomesRequestError(t *testing.T) {
	transport := &fakeTransport{resp: &request.Response{
		Data:       map[string]any{"error": "nope"},
		Status:     http.StatusNotFound,
		StatusText: "Not Found",
	}}
	tmpl := build(t, request.Get("https://x/users/{id}", request.WithTransport(transport)).
		Query(request.Properties{"expand": "roles"}))

	_, err := tmpl.Request(context.Background(), request.Params(map[string]any{"id": "9"}), nil)
	require.Error(t, err)

	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.ErrorKind, reqErr.Kind)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Equal(t, "Not Found", reqErr.StatusText)
	assert.Equal(t, "Not Found", reqErr.Code)
	assert.Equal(t, "active-request/404", reqErr.Name())
	assert.Equal(t, request.LocationDispatch, reqErr.Location)
	assert.JSONEq(t, `{"error":"nope"}`, reqErr.ResponseBody)
	require.NotNil(t, reqErr.Request)
	assert.Equal(t, "https://x/users/9?expand=roles", reqErr.Request.URL)
	assert.Equal(t, "roles", reqErr.Request.Query["expand"])
}

func TestTransportFailure(t *testing.T) {
	transport := &fakeTransport{err: context.DeadlineExceeded}
	tmpl := build(t, request.Get("https://x/slow", request.WithTransport(transport)))

	_, err := tmpl.Request(context.Background(), request.Input{}, nil)
	require.Error(t, err)
	assert.True(t, request.IsCode(err, "timeout"))

	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, -1, reqErr.Status)
	assert.Equal(t, "active-request/timeout", reqErr.Name())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveFailureLocation(t *testing.T) {
	transport := &fakeTransport{}
	tmpl := build(t, request.Get("https://x/users/{org}", request.WithTransport(transport)).
		Query(request.Properties{"q": request.Dynamic(request.Required()), "limit": 10}).
		Headers(request.Properties{"x-client": "cli"}))

	_, err := tmpl.Request(context.Background(), request.Params(map[string]any{"org": "acme"}), nil)
	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.LocationResolve, reqErr.Location)
	assert.Equal(t, request.CodeMissingRequired, reqErr.Code)
	assert.Equal(t, http.StatusBadRequest, reqErr.Status)
	require.NotNil(t, reqErr.Request)
	assert.Equal(t, "https://x/users/{org}", reqErr.Request.URL)
	assert.Equal(t, map[string]any{"limit": 10}, reqErr.Request.Query)
	assert.Equal(t, map[string]string{"X-Client": "cli"}, reqErr.Request.Headers)
	assert.Empty(t, transport.calls())
}

func TestWrapPassesRequestErrorsThrough(t *testing.T) {
	inner := request.Wrap(errors.New("first"), request.LocationDispatch, nil)
	outer := request.Wrap(inner, request.LocationMapping, nil)
	assert.Same(t, inner, outer)
	assert.Equal(t, request.LocationDispatch, outer.Location)
	assert.Equal(t, "unknown", outer.Code)
	assert.Equal(t, "active-request/unknown: first [surrounding-request]", outer.Error())

	assert.Nil(t, request.Wrap(nil, request.LocationDispatch, nil))
}

func TestErrorHandlerRecovers(t *testing.T) {
	transport := &fakeTransport{resp: &request.Response{Status: http.StatusInternalServerError, StatusText: "Internal Server Error"}}
	var seen *request.RequestError
	tmpl := build(t, request.Get("https://x/flaky", request.WithTransport(transport)).
		Headers(request.Properties{"X-Env": "test"}).
		ErrorHandler(func(err *request.RequestError) (any, bool) {
			seen = err
			return map[string]any{"fallback": true}, true
		}))

	resp, err := tmpl.Do(context.Background(), request.Input{}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.Status)
	assert.Equal(t, "An error was handled by the error handler [active-request/500]", resp.StatusText)
	assert.Equal(t, map[string]any{"fallback": true}, resp.Data)
	assert.Equal(t, "test", resp.Headers["X-Env"])
	require.NotNil(t, seen)
	assert.Equal(t, http.StatusInternalServerError, seen.Status)
}

func TestErrorHandlerDeclines(t *testing.T) {
	transport := &fakeTransport{resp: &request.Response{Status: http.StatusBadGateway}}
	tmpl := build(t, request.Get("https://x/flaky", request.WithTransport(transport)).
		ErrorHandler(func(*request.RequestError) (any, bool) { return nil, false }))

	_, err := tmpl.Request(context.Background(), request.Input{}, nil)
	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadGateway, reqErr.Status)
	assert.Equal(t, "Bad Gateway", reqErr.StatusText)
}

func TestErrorHandlerSeesResolveFailures(t *testing.T) {
	handled := false
	tmpl := build(t, request.Get("https://x/users/{id}").
		ErrorHandler(func(err *request.RequestError) (any, bool) {
			handled = err.Location == request.LocationResolve
			return "recovered", true
		}))

	data, err := tmpl.Request(context.Background(), request.Input{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", data)
	assert.True(t, handled)
}

func TestMockNotReady(t *testing.T) {
	handlerCalled := false
	tmpl := build(t, request.Get("https://x/products/{id}").
		Options(request.Options{request.OptNetworkDelay: request.DelayVeryHeavy}).
		ErrorHandler(func(*request.RequestError) (any, bool) {
			handlerCalled = true
			return nil, true
		}))

	start := time.Now()
	_, err := tmpl.Mock(context.Background(), request.Params(map[string]any{"id": "1"}), nil)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, request.IsCode(err, request.CodeMockNotReady))
	assert.False(t, handlerCalled)

	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotImplemented, reqErr.Status)
}

func TestMockDispatch(t *testing.T) {
	transport := &fakeTransport{}
	tmpl := build(t, request.Get("https://x/products/{id}", request.WithTransport(transport)).
		MockFn(func(_ context.Context, a *request.ActiveRequest) (any, error) {
			return map[string]any{"id": a.Params()["id"], "url": a.Resolved().URL}, nil
		}))

	resp, err := tmpl.Do(context.Background(), request.Params(map[string]any{"id": "42"}), mockOn)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]any{"id": "42", "url": "https://x/products/42"}, resp.Data)
	assert.Empty(t, transport.calls())
}

func TestMockNoContent(t *testing.T) {
	tmpl := build(t, request.Delete("https://x/products/{id}").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return nil, nil }))

	resp, err := tmpl.Do(context.Background(), request.Params(map[string]any{"id": "1"}), mockOn)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.Equal(t, "No Content", resp.StatusText)
	assert.Nil(t, resp.Data)
}

func TestMockZeroValuesAreNoContent(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{"int32 zero", int32(0), http.StatusNoContent},
		{"uint zero", uint(0), http.StatusNoContent},
		{"uint8 zero", uint8(0), http.StatusNoContent},
		{"float32 zero", float32(0), http.StatusNoContent},
		{"int16 zero", int16(0), http.StatusNoContent},
		{"int32 value", int32(3), http.StatusOK},
		{"float32 value", float32(0.5), http.StatusOK},
		{"empty struct", struct{}{}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value := tt.value
			tmpl := build(t, request.Get("https://x/counters").
				MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return value, nil }))

			resp, err := tmpl.Do(context.Background(), request.Input{}, mockOn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestMockFunctionFailure(t *testing.T) {
	tmpl := build(t, request.Get("https://x/products").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) {
			return nil, errors.New("fixture missing")
		}))

	_, err := tmpl.Mock(context.Background(), request.Input{}, nil)
	require.Error(t, err)
	assert.True(t, request.IsCode(err, request.CodeInvalidMockCall))
	assert.Contains(t, err.Error(), "fixture missing")
}

func TestMockDelayHonoursContext(t *testing.T) {
	tmpl := build(t, request.Get("https://x/products").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return "late", nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tmpl.Request(ctx, request.Input{}, request.Options{
		request.OptMock:         true,
		request.OptNetworkDelay: "very-heavy",
	})
	require.Error(t, err)
	assert.True(t, request.IsCode(err, "canceled"))
}

func TestMockPrecedence(t *testing.T) {
	mockFn := func(context.Context, *request.ActiveRequest) (any, error) { return "mocked", nil }

	tests := []struct {
		name     string
		defaults request.Defaults
		design   request.Options
		call     request.Options
		wantMock bool
	}{
		{name: "off by default"},
		{name: "process toggle", defaults: request.Defaults{Mock: true}, wantMock: true},
		{name: "alternate toggle", defaults: request.Defaults{AltMock: true}, wantMock: true},
		{name: "design option wins over toggle", defaults: request.Defaults{Mock: true}, design: request.Options{request.OptMock: false}},
		{name: "design option enables", design: request.Options{request.OptMock: true}, wantMock: true},
		{name: "call option wins over design", design: request.Options{request.OptMock: true}, call: request.Options{request.OptMock: "false"}},
		{name: "call option enables", call: request.Options{request.OptMock: true}, wantMock: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{}
			b := request.Get("https://x/items", request.WithDefaults(tt.defaults), request.WithTransport(transport)).MockFn(mockFn)
			if tt.design != nil {
				b = b.Options(tt.design)
			}
			tmpl := build(t, b)

			info, err := tmpl.RequestInfo(request.Input{}, tt.call)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMock, info.IsMock)

			data, err := tmpl.Request(context.Background(), request.Input{}, tt.call)
			require.NoError(t, err)
			if tt.wantMock {
				assert.Equal(t, "mocked", data)
				assert.Empty(t, transport.calls())
			} else {
				assert.Len(t, transport.calls(), 1)
			}
		})
	}
}

func TestMockConfigFromDefaults(t *testing.T) {
	tmpl := build(t, request.Get("https://x/items", request.WithDefaults(request.Defaults{
		NetworkDelay:  request.DelayMedium,
		AuthWhitelist: []string{"admin"},
	})))

	info, err := tmpl.RequestInfo(request.Input{}, request.Options{request.OptAuthBlacklist: "guest, bot"})
	require.NoError(t, err)
	assert.Equal(t, request.DelayMedium, info.MockConfig.NetworkDelay)
	assert.Equal(t, []string{"admin"}, info.MockConfig.AuthWhitelist)
	assert.Equal(t, []string{"guest", "bot"}, info.MockConfig.AuthBlacklist)
}

func TestInvalidNetworkDelayOption(t *testing.T) {
	tmpl := build(t, request.Get("https://x/items"))

	_, err := tmpl.RequestInfo(request.Input{}, request.Options{request.OptNetworkDelay: "glacial"})
	require.Error(t, err)
	assert.True(t, request.IsCode(err, request.CodeInvalidNetworkDelay))
}

func TestNetworkDelayRanges(t *testing.T) {
	lo, hi, err := request.DelayLight.Range()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, lo)
	assert.Equal(t, 50*time.Millisecond, hi)

	lo, hi, err = request.NetworkDelay("").Range()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, lo)
	assert.Equal(t, 50*time.Millisecond, hi)

	lo, hi, err = request.DelayVeryHeavy.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Second, lo)
	assert.Equal(t, 2*time.Second, hi)
}

func TestMockDB(t *testing.T) {
	db := map[string]string{"42": "Answer"}
	tmpl := build(t, request.Get("https://x/items/{id}").
		MockFn(func(_ context.Context, a *request.ActiveRequest) (any, error) {
			handle, err := a.MockDB()
			if err != nil {
				return nil, err
			}
			return handle.(map[string]string)[a.Params()["id"].(string)], nil
		}))

	data, err := tmpl.Request(context.Background(), request.Params(map[string]any{"id": "42"}), request.Options{
		request.OptMock:   true,
		request.OptMockDB: db,
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer", data)
}

func TestMockDBOutsideMockPath(t *testing.T) {
	tmpl := build(t, request.Get("https://x/items").Named("items"))
	reg := request.NewRegistry()
	require.NoError(t, reg.Register(tmpl))

	ser, err := tmpl.Serialize(request.Input{}, nil)
	require.NoError(t, err)
	active, err := reg.Restore(ser)
	require.NoError(t, err)

	_, err = active.MockDB()
	require.Error(t, err)
	assert.True(t, request.IsCode(err, request.CodeNotMock))
}

func TestUnwrapAndMapper(t *testing.T) {
	tmpl := build(t, request.Get("https://x/users/{id}").
		Unwrap("data.user").
		Mapper(func(data any) (any, error) {
			return data.(map[string]any)["name"], nil
		}).
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) {
			return map[string]any{"data": map[string]any{"user": map[string]any{"name": "Ada"}}}, nil
		}))

	data, err := tmpl.Mock(context.Background(), request.Params(map[string]any{"id": "1"}), nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", data)
}

func TestMapperFailure(t *testing.T) {
	tmpl := build(t, request.Get("https://x/users").
		Mapper(func(any) (any, error) { return nil, errors.New("bad shape") }).
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return []any{1}, nil }))

	_, err := tmpl.Mock(context.Background(), request.Input{}, nil)
	var reqErr *request.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, request.LocationMapping, reqErr.Location)
	assert.Contains(t, reqErr.Message, "bad shape")
}

func TestObserverSeesEveryDispatch(t *testing.T) {
	obs := &recordingObserver{}
	transport := &fakeTransport{resp: &request.Response{Status: http.StatusServiceUnavailable}}
	ok := build(t, request.Get("https://x/ok", request.WithObserver(obs)).
		Named("ok").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return "fine", nil }))
	failing := build(t, request.Get("https://x/down", request.WithObserver(obs), request.WithTransport(transport)))
	recovered := build(t, request.Get("https://x/down", request.WithObserver(obs), request.WithTransport(transport)).
		Named("recovered").
		ErrorHandler(func(*request.RequestError) (any, bool) { return "cached", true }))

	_, err := ok.Mock(context.Background(), request.Input{}, nil)
	require.NoError(t, err)
	_, err = failing.Request(context.Background(), request.Input{}, nil)
	require.Error(t, err)
	_, err = recovered.Request(context.Background(), request.Input{}, nil)
	require.NoError(t, err)

	events := obs.all()
	require.Len(t, events, 3)

	assert.Equal(t, "ok", events[0].Template)
	assert.True(t, events[0].Mock)
	assert.Equal(t, http.StatusOK, events[0].Status)
	assert.Nil(t, events[0].Err)
	assert.Positive(t, events[0].Latency)

	assert.Equal(t, "GET https://x/down", events[1].Template)
	assert.Equal(t, http.MethodGet, events[1].Method)
	assert.False(t, events[1].Mock)
	assert.Equal(t, http.StatusServiceUnavailable, events[1].Status)
	require.NotNil(t, events[1].Err)
	assert.Equal(t, "Service Unavailable", events[1].Err.Code)

	assert.Equal(t, "recovered", events[2].Template)
	assert.True(t, events[2].Handled)
	assert.Equal(t, http.StatusAccepted, events[2].Status)
	assert.Nil(t, events[2].Err)
}

func TestTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tmpl := build(t, request.Get("https://x/users", request.WithTracer(provider.Tracer("test"))).
		Named("listUsers").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return []any{}, nil }))

	_, err := tmpl.Mock(context.Background(), request.Input{}, nil)
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET listUsers", spans[0].Name())
}

func TestDispatchLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tmpl := build(t, request.Get("https://x/items", request.WithLogger(zap.New(core))).
		Named("items").
		MockFn(func(context.Context, *request.ActiveRequest) (any, error) { return "x", nil }))

	_, err := tmpl.Mock(context.Background(), request.Input{}, nil)
	require.NoError(t, err)

	entries := logs.FilterMessage("dispatching on the mock path").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "items", entries[0].ContextMap()["template"])
}

func TestHTTPTransport(t *testing.T) {
	var gotMethod, gotBody, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Token")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"n1"}`))
	}))
	defer server.Close()

	tmpl := build(t, request.Post(server.URL+"/notes", request.WithTransport(request.NewHTTPTransport(5*time.Second))).
		Headers(request.Properties{"X-Token": request.Dynamic()}))

	resp, err := tmpl.Do(context.Background(), request.Input{
		Params: map[string]any{"X-Token": "secret"},
		Body:   map[string]any{"text": "hi"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, map[string]any{"id": "n1"}, resp.Data)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "secret", gotHeader)
	assert.JSONEq(t, `{"text":"hi"}`, gotBody)
}

func TestHTTPTransportRejectsBadTimeout(t *testing.T) {
	tmpl := build(t, request.Get("http://127.0.0.1:1/never", request.WithTransport(request.NewHTTPTransport(time.Second))))

	_, err := tmpl.Request(context.Background(), request.Input{}, request.Options{"timeout": "soon"})
	require.Error(t, err)
	assert.True(t, request.IsCode(err, request.CodeInvalidOption))
}

func TestHTTPTransportSendsOverriddenContentType(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get("Content-Type")]++
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	tmpl := build(t, request.Post(server.URL+"/upload", request.WithTransport(request.NewHTTPTransport(5*time.Second))).
		Headers(request.Properties{"content-type": "text/csv"}))

	for i := 0; i < 50; i++ {
		_, err := tmpl.Request(context.Background(), request.Input{Body: map[string]any{"a": 1}}, nil)
		require.NoError(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"text/csv": 50}, seen)
}
