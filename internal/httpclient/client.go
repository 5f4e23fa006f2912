package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/torosent/confreq/internal/tracing"
)

// Request is a fully resolved request: the URL already carries its query string
// and Body is the serialized payload (nil for verbs without a body).
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    *string
	// Timeout bounds this request only; zero keeps the client timeout.
	Timeout time.Duration
}

// Result is a received response.
type Result struct {
	StatusCode int
	Status     string
	Headers    map[string]string
	Body       []byte
	// Data is the decoded JSON document for JSON responses, the body text for
	// other non-empty responses and nil otherwise.
	Data any
}

// Client sends resolved requests over a pooled net/http client.
type Client struct {
	http      *http.Client
	propagate bool
	userAgent string
	maxBody   int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled client, e.g. with an httptest client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithPropagation injects W3C trace context headers into every request.
func WithPropagation(enabled bool) Option {
	return func(c *Client) { c.propagate = enabled }
}

// WithUserAgent sets the User-Agent header unless the request carries one.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = strings.TrimSpace(ua) }
}

// WithMaxBodySize caps how many response bytes are read; zero means unlimited.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

func New(timeout time.Duration, opts ...Option) *Client {
	c := &Client{http: NewClient(timeout), maxBody: DefaultMaxBodySize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req. Any received response is returned as a Result, whatever its
// status; only transport failures are errors.
func (c *Client) Do(ctx context.Context, req Request) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := strings.TrimSpace(req.URL)
	if target == "" {
		return nil, fmt.Errorf("target URL is required")
	}

	headers, err := buildHeaders(req.Headers)
	if err != nil {
		return nil, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = strings.NewReader(*req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header = headers
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if c.propagate {
		tracing.InjectHTTPHeaders(ctx, httpReq.Header)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := readBody(resp.Body, c.maxBody)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	result := &Result{
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Headers:    flattenHeaders(resp.Header),
		Body:       raw,
	}
	result.Data, err = decodeBody(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildHeaders canonicalizes keys and rejects CR/LF in keys and values. Keys
// that fold to the same name are applied in sorted order, so the last one wins.
func buildHeaders(in map[string]string) (http.Header, error) {
	keys := make([]string, 0, len(in))
	for key := range in {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	headers := make(http.Header, len(in))
	for _, key := range keys {
		value := in[key]
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header key %q", key)
		}
		canonicalKey := http.CanonicalHeaderKey(trimmedKey)
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", canonicalKey)
		}
		headers.Set(canonicalKey, value)
	}
	return headers, nil
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// statusText strips the numeric prefix net/http puts in Status.
func statusText(resp *http.Response) string {
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
