package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Configuration error codes.
const (
	CodeInvalidURL          = "invalid-url"
	CodeURLDynamicsInvalid  = "url-dynamics-invalid"
	CodeBodyNotAllowed      = "body-not-allowed"
	CodeInvalidBodyType     = "invalid-body-type"
	CodeInvalidDescriptor   = "invalid-descriptor"
	CodeMissingRequired     = "missing-required"
	CodeMockNotReady        = "mock-not-ready"
	CodeInvalidMockCall     = "invalid-mock-call"
	CodeInvalidNetworkDelay = "invalid-network-delay"
	CodeCalculationFailed   = "calculation-failed"
	CodeSealed              = "sealed"
	CodeNotMock             = "not-mock"
	CodeUnknownTemplate     = "unknown-template"
	CodeInvalidMethod       = "invalid-method"
	CodeInvalidOption       = "invalid-option"
)

// Catch-site locations recorded on a RequestError.
const (
	// LocationResolve marks failures raised while building the request, before
	// anything was sent.
	LocationResolve = "resolve-request"
	// LocationDispatch marks failures raised by the transport or mock call.
	LocationDispatch = "surrounding-request"
	// LocationMapping marks failures raised by the response mapper.
	LocationMapping = "response-mapping"
)

// ErrorKind tags errors already normalized by Wrap.
const ErrorKind = "ActiveRequestError"

// ConfigError reports a misconfigured template or a request that cannot be
// built from the given input.
type ConfigError struct {
	Code    string
	Message string
	Status  int
	Cause   error
}

func newConfigError(code string, status int, format string, args ...any) *ConfigError {
	return &ConfigError{Code: code, Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configured-request/%s: %s", e.Code, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// HTTPStatus exposes the status that best describes the failure.
func (e *ConfigError) HTTPStatus() int { return e.Status }

// IsCode reports whether err carries the given code, either as a ConfigError or
// as a RequestError wrapping one.
func IsCode(err error, code string) bool {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code == code {
		return true
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Code == code {
		return true
	}
	return false
}

// Snapshot is the state of a request at the time it failed.
type Snapshot struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Query   map[string]any    `json:"queryParameters,omitempty"`
	Body    any               `json:"body,omitempty"`
}

// RequestError is the single error shape a caller of Request or Mock observes.
type RequestError struct {
	Kind         string
	Code         string
	Status       int
	StatusText   string
	Message      string
	Location     string
	Request      *Snapshot
	ResponseBody string
	Cause        error
}

// Wrap normalizes err into a *RequestError. Errors that already are one are
// returned unchanged so nested catch sites never double-wrap.
func Wrap(err error, location string, resolved *Resolved) *RequestError {
	if err == nil {
		return nil
	}
	var existing *RequestError
	if errors.As(err, &existing) {
		return existing
	}

	out := &RequestError{
		Kind:     ErrorKind,
		Status:   -1,
		Message:  err.Error(),
		Location: location,
		Cause:    err,
	}

	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) && status.HTTPStatus() > 0 {
		out.Status = status.HTTPStatus()
	}
	var statusText interface{ HTTPStatusText() string }
	if errors.As(err, &statusText) {
		out.StatusText = statusText.HTTPStatusText()
	}
	if out.StatusText == "" && out.Status > 0 {
		out.StatusText = http.StatusText(out.Status)
	}
	var body interface{ ResponseBody() string }
	if errors.As(err, &body) {
		out.ResponseBody = body.ResponseBody()
	}

	var cfgErr *ConfigError
	switch {
	case errors.As(err, &cfgErr):
		out.Code = cfgErr.Code
		out.Message = cfgErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		out.Code = "timeout"
	case errors.Is(err, context.Canceled):
		out.Code = "canceled"
	case out.StatusText != "":
		out.Code = out.StatusText
	default:
		out.Code = "unknown"
	}

	if resolved != nil {
		out.Request = &Snapshot{
			URL:     resolved.URL,
			Headers: copyMap(resolved.Headers),
			Query:   copyMap(resolved.Query),
			Body:    resolved.Body,
		}
	}
	return out
}

// Name mirrors the status (or code when no status applies), e.g. "active-request/404".
func (e *RequestError) Name() string {
	if e.Status != -1 {
		return "active-request/" + strconv.Itoa(e.Status)
	}
	return "active-request/" + e.Code
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s [%s]", e.Name(), e.Message, e.Location)
}

func (e *RequestError) Unwrap() error { return e.Cause }

// HTTPStatus returns the wrapped status, or -1 when none applies.
func (e *RequestError) HTTPStatus() int { return e.Status }

func (e *RequestError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind         string    `json:"kind"`
		Code         string    `json:"code"`
		Status       int       `json:"httpStatusCode"`
		StatusText   string    `json:"httpStatusText,omitempty"`
		Message      string    `json:"message"`
		Location     string    `json:"location"`
		Request      *Snapshot `json:"request,omitempty"`
		ResponseBody string    `json:"responseBody,omitempty"`
	}{e.Kind, e.Code, e.Status, e.StatusText, e.Message, e.Location, e.Request, e.ResponseBody})
}
