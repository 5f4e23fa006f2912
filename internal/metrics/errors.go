package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"strconv"

	"github.com/torosent/confreq/pkg/request"
)

// engineCodes are failure codes the engine assigns itself. They are reported
// verbatim.
var engineCodes = map[string]bool{
	request.CodeInvalidURL:          true,
	request.CodeURLDynamicsInvalid:  true,
	request.CodeBodyNotAllowed:      true,
	request.CodeInvalidBodyType:     true,
	request.CodeInvalidDescriptor:   true,
	request.CodeMissingRequired:     true,
	request.CodeMockNotReady:        true,
	request.CodeInvalidMockCall:     true,
	request.CodeInvalidNetworkDelay: true,
	request.CodeCalculationFailed:   true,
	request.CodeSealed:              true,
	request.CodeNotMock:             true,
	request.CodeUnknownTemplate:     true,
	request.CodeInvalidMethod:       true,
	request.CodeInvalidOption:       true,
	"timeout":                       true,
	"canceled":                      true,
}

// ErrorLabel groups a failed dispatch for reports: engine codes as is, error
// responses as "http-<status>", anything else by the kind of its cause.
func ErrorLabel(err *request.RequestError) string {
	switch {
	case err == nil:
		return ""
	case engineCodes[err.Code]:
		return err.Code
	case err.Status >= 300:
		return "http-" + strconv.Itoa(err.Status)
	}
	return causeLabel(err.Cause)
}

func causeLabel(cause error) string {
	var (
		dnsErr *net.DNSError
		opErr  *net.OpError
		urlErr *url.Error
	)
	switch {
	case cause == nil:
		return "Unknown error"
	case errors.Is(cause, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(cause, context.Canceled):
		return "canceled"
	case errors.As(cause, &dnsErr):
		return "DNS lookup failed"
	case errors.As(cause, &opErr) && opErr.Op != "":
		return "Network " + opErr.Op + " error"
	case errors.Is(cause, io.EOF), errors.Is(cause, io.ErrUnexpectedEOF):
		return "Connection closed"
	case errors.As(cause, &urlErr):
		return "Request URL error"
	}
	return "Unknown error"
}
