package request

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cast"

	"github.com/torosent/confreq/internal/httpclient"
)

// Transport performs the network side of a request, one operation per verb.
type Transport interface {
	Get(ctx context.Context, url string, opts TransportOptions) (*Response, error)
	Delete(ctx context.Context, url string, opts TransportOptions) (*Response, error)
	Post(ctx context.Context, url, body string, opts TransportOptions) (*Response, error)
	Put(ctx context.Context, url, body string, opts TransportOptions) (*Response, error)
	Patch(ctx context.Context, url, body string, opts TransportOptions) (*Response, error)
}

// TransportOptions carries the resolved headers and the transport overlay.
type TransportOptions struct {
	Headers map[string]string
	Overlay Options
}

// Response is the envelope produced by both the network and the mock path.
type Response struct {
	Data       any
	Status     int
	StatusText string
	Headers    map[string]string
	Config     Options
}

// HTTPTransport is the default Transport over net/http.
type HTTPTransport struct {
	client *httpclient.Client
}

// NewHTTPTransport creates a Transport whose requests time out after timeout
// (zero disables the client timeout).
func NewHTTPTransport(timeout time.Duration, opts ...httpclient.Option) *HTTPTransport {
	return &HTTPTransport{client: httpclient.New(timeout, opts...)}
}

func (h *HTTPTransport) Get(ctx context.Context, url string, opts TransportOptions) (*Response, error) {
	return h.do(ctx, http.MethodGet, url, nil, opts)
}

func (h *HTTPTransport) Delete(ctx context.Context, url string, opts TransportOptions) (*Response, error) {
	return h.do(ctx, http.MethodDelete, url, nil, opts)
}

func (h *HTTPTransport) Post(ctx context.Context, url, body string, opts TransportOptions) (*Response, error) {
	return h.do(ctx, http.MethodPost, url, &body, opts)
}

func (h *HTTPTransport) Put(ctx context.Context, url, body string, opts TransportOptions) (*Response, error) {
	return h.do(ctx, http.MethodPut, url, &body, opts)
}

func (h *HTTPTransport) Patch(ctx context.Context, url, body string, opts TransportOptions) (*Response, error) {
	return h.do(ctx, http.MethodPatch, url, &body, opts)
}

func (h *HTTPTransport) do(ctx context.Context, method, url string, body *string, opts TransportOptions) (*Response, error) {
	req := httpclient.Request{
		Method:  method,
		URL:     url,
		Headers: opts.Headers,
		Body:    body,
	}
	if raw, ok := opts.Overlay["timeout"]; ok {
		timeout, err := cast.ToDurationE(raw)
		if err != nil {
			return nil, newConfigError(CodeInvalidOption, http.StatusBadRequest, "option \"timeout\": %v", err)
		}
		req.Timeout = timeout
	}

	res, err := h.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Response{
		Data:       res.Data,
		Status:     res.StatusCode,
		StatusText: res.Status,
		Headers:    res.Headers,
		Config:     opts.Overlay,
	}, nil
}
